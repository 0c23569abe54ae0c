package postgresql

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/session"
)

type sessionStoreImpl struct {
	db  *database.DB
	now func() time.Time
}

// NewSessionStore returns the relational session.Store. Only a hash of the
// session id is persisted.
func NewSessionStore(db *database.DB) session.Store {
	return &sessionStoreImpl{db: db, now: time.Now}
}

func (s *sessionStoreImpl) hashID(id string) string {
	hash := sha256.Sum256([]byte(id))
	return base64.StdEncoding.EncodeToString(hash[:])
}

func (s *sessionStoreImpl) Create(ctx context.Context, sess session.Session) error {
	q := GetQuerier(ctx, s.db)
	_, err := q.Exec(ctx, `
		INSERT INTO sessions (id, employee_id, provider, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.hashID(sess.ID), sess.EmployeeID, sess.Provider, sess.ExpiresAt.UTC(), sess.CreatedAt.UTC())
	return err
}

func (s *sessionStoreImpl) Get(ctx context.Context, id string) (session.Session, error) {
	q := GetQuerier(ctx, s.db)
	sess := session.Session{ID: id}
	err := q.QueryRow(ctx, `
		SELECT employee_id, provider, expires_at, created_at
		FROM sessions WHERE id = $1
	`, s.hashID(id)).Scan(&sess.EmployeeID, &sess.Provider, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, err
	}
	if sess.Expired(s.now()) {
		return session.Session{}, session.ErrNotFound
	}
	return sess, nil
}

func (s *sessionStoreImpl) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, s.db)
	_, err := q.Exec(ctx, `DELETE FROM sessions WHERE id = $1 OR expires_at < NOW()`, s.hashID(id))
	return err
}
