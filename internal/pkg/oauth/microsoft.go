package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const graphMeURL = "https://graph.microsoft.com/v1.0/me?$select=id,displayName,mail,userPrincipalName,jobTitle,department,officeLocation"

type MicrosoftService interface {
	// GenerateNonce returns a random value to bind into the state token.
	GenerateNonce() (string, error)
	// AuthCodeURL builds the authorization URL for a state.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	// Profile fetches the signed-in user from Microsoft Graph.
	Profile(ctx context.Context, token *oauth2.Token) (MicrosoftProfile, error)
}

type MicrosoftServiceImpl struct {
	config *oauth2.Config
	meURL  string
}

// MicrosoftProfile is the subset of the Graph user resource used for provisioning.
type MicrosoftProfile struct {
	ID                string  `json:"id"`
	DisplayName       string  `json:"displayName"`
	Mail              *string `json:"mail"`
	UserPrincipalName string  `json:"userPrincipalName"`
	JobTitle          *string `json:"jobTitle"`
	Department        *string `json:"department"`
	OfficeLocation    *string `json:"officeLocation"`
}

// Email prefers the mailbox address over the UPN.
func (p MicrosoftProfile) Email() string {
	if p.Mail != nil && *p.Mail != "" {
		return *p.Mail
	}
	return p.UserPrincipalName
}

func NewMicrosoftService(tenantID, clientID, clientSecret, redirectURL string, scopes []string) MicrosoftService {
	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		Endpoint:     microsoft.AzureADEndpoint(tenantID),
	}
	return &MicrosoftServiceImpl{config: config, meURL: graphMeURL}
}

// GenerateNonce generates a random URL-safe string.
func (m *MicrosoftServiceImpl) GenerateNonce() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (m *MicrosoftServiceImpl) AuthCodeURL(state string) string {
	return m.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

func (m *MicrosoftServiceImpl) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := m.config.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (m *MicrosoftServiceImpl) Profile(ctx context.Context, token *oauth2.Token) (MicrosoftProfile, error) {
	client := m.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.meURL, nil)
	if err != nil {
		return MicrosoftProfile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return MicrosoftProfile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return MicrosoftProfile{}, fmt.Errorf("graph /me returned %d: %s", resp.StatusCode, body)
	}

	var profile MicrosoftProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return MicrosoftProfile{}, err
	}
	return profile, nil
}
