package jwt

import (
	"errors"
	"sync"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	TokenTypeAccess     = "access"
	TokenTypeOAuthState = "oauth_state"

	oauthStateTTL = 10 * time.Minute
)

var ErrWrongTokenType = errors.New("token type mismatch")

// Subject identifies who an access token speaks for. Exactly one of Email
// (local login) or SessionID (external sign-in) is set.
type Subject struct {
	Email     string
	SessionID string
}

type Service interface {
	GenerateAccessToken(subject Subject) (token string, expiresAt int64, err error)
	// GenerateOAuthState issues a short-lived signed state value carrying nonce.
	GenerateOAuthState(nonce string) (string, error)
	ValidateOAuthState(state string) (nonce string, err error)
	JWTAuth() *jwtauth.JWTAuth
	AccessTTL() time.Duration
	RevokeToken(token string, expiresAt time.Time)
	IsTokenRevoked(token string) bool
}

type JWTService struct {
	accessTTL     time.Duration
	tokenAuth     *jwtauth.JWTAuth
	revokedTokens map[string]time.Time
	mu            sync.RWMutex
	now           func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func (j *JWTService) AccessTTL() time.Duration {
	return j.accessTTL
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) (Service, error) {
	accessTTL, err := time.ParseDuration(accessTokenExpirationTime)
	if err != nil {
		return nil, err
	}
	return &JWTService{
		accessTTL:     accessTTL,
		tokenAuth:     jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		revokedTokens: make(map[string]time.Time),
		now:           time.Now,
	}, nil
}

func (j *JWTService) GenerateAccessToken(subject Subject) (token string, expiresAt int64, err error) {
	now := j.now()
	expiresAt = now.Add(j.accessTTL).Unix()

	claims := map[string]interface{}{
		"type": TokenTypeAccess,
		"iat":  now.Unix(),
		"exp":  expiresAt,
	}
	if subject.SessionID != "" {
		claims["sid"] = subject.SessionID
	} else {
		claims["sub"] = subject.Email
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// GenerateOAuthState generates a signed state token for the authorization-code flow.
func (j *JWTService) GenerateOAuthState(nonce string) (string, error) {
	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"type":  TokenTypeOAuthState,
		"nonce": nonce,
		"exp":   j.now().Add(oauthStateTTL).Unix(),
	})
	return tokenString, err
}

// ValidateOAuthState validates a state token and returns its nonce.
func (j *JWTService) ValidateOAuthState(state string) (string, error) {
	token, err := j.tokenAuth.Decode(state)
	if err != nil {
		return "", err
	}
	if err := jwt.Validate(token, jwt.WithAcceptableSkew(30*time.Second)); err != nil {
		return "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != TokenTypeOAuthState {
		return "", ErrWrongTokenType
	}
	nonce, ok := token.Get("nonce")
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}
	nonceStr, ok := nonce.(string)
	if !ok || nonceStr == "" {
		return "", jwt.ErrInvalidJWT()
	}
	return nonceStr, nil
}

// RevokeToken remembers token until it would have expired anyway.
func (j *JWTService) RevokeToken(token string, expiresAt time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now()
	for t, exp := range j.revokedTokens {
		if exp.Before(now) {
			delete(j.revokedTokens, t)
		}
	}
	j.revokedTokens[token] = expiresAt
}

func (j *JWTService) IsTokenRevoked(token string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	_, revoked := j.revokedTokens[token]
	return revoked
}
