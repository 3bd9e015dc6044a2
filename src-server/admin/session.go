package admin

import (
	"context"
	"errors"
	"fmt"
	"invitation/src-server/jwt"
	"invitation/src-server/model"
	"invitation/src-server/storage"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
)

const DefaultSessionTTL = 24 * time.Hour

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionExpired = errors.New("session expired")
)

type Session struct {
	AdminID string    `json:"adminId"`
	LoginAt time.Time `json:"loginAt"`
}

// Valid applies the freshness rule: the admin still exists and the login
// is younger than ttl.
func (s Session) Valid(now time.Time, ttl time.Duration, known bool) bool {
	if !known || s.AdminID == "" || s.LoginAt.IsZero() {
		return false
	}
	age := now.Sub(s.LoginAt)
	return age >= -time.Minute && age < ttl
}

// Sessions issues session tokens and keeps the login time of every admin
// in the local store, so logging out revokes the token.
type Sessions struct {
	db     bun.IDB
	store  *storage.Adapter
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(db bun.IDB, store *storage.Adapter, secret string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{db: db, store: store, secret: secret, ttl: ttl, now: time.Now}
}

func (s *Sessions) WithClock(now func() time.Time) *Sessions {
	s.now = now
	return s
}

func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Login checks the credentials and returns a signed token.
func (s *Sessions) Login(ctx context.Context, adminID, password string) (string, Session, error) {
	if _, err := model.Authenticate(ctx, s.db, adminID, password); err != nil {
		return "", Session{}, err
	}
	session := Session{AdminID: adminID, LoginAt: s.now().UTC().Truncate(time.Second)}
	token, err := jwt.Encode(jwt.NewPayload(adminID, session.LoginAt, s.ttl), s.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("(*Sessions).Login: %w", err)
	}
	if _, err := storage.Update(ctx, s.store, storage.KeyAdminSession, map[string]time.Time{}, func(m map[string]time.Time) (map[string]time.Time, error) {
		if m == nil {
			m = make(map[string]time.Time)
		}
		m[adminID] = session.LoginAt
		return m, nil
	}); err != nil {
		return "", Session{}, fmt.Errorf("(*Sessions).Login: %w", err)
	}
	slog.Info("admin logged in", "admin_id", adminID)
	return token, session, nil
}

// Check resolves token to a live session. Stale sessions are discarded.
func (s *Sessions) Check(ctx context.Context, token string) (Session, error) {
	payload, err := jwt.Decode(token, s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("(*Sessions).Check: %w: %w", ErrInvalidSession, err)
	}
	session := Session{AdminID: payload.AdminID, LoginAt: payload.IssuedAtTime().UTC()}

	logins := storage.Get(ctx, s.store, storage.KeyAdminSession, map[string]time.Time{})
	stored, ok := logins[session.AdminID]
	if !ok || !stored.Equal(session.LoginAt) {
		return Session{}, ErrInvalidSession
	}

	known, err := model.AdminExists(ctx, s.db, session.AdminID)
	if err != nil {
		return Session{}, fmt.Errorf("(*Sessions).Check: %w", err)
	}
	if !session.Valid(s.now(), s.ttl, known) {
		s.discard(ctx, session.AdminID)
		return Session{}, ErrSessionExpired
	}
	return session, nil
}

func (s *Sessions) Logout(ctx context.Context, session Session) {
	s.discard(ctx, session.AdminID)
	slog.Info("admin logged out", "admin_id", session.AdminID)
}

func (s *Sessions) discard(ctx context.Context, adminID string) {
	if _, err := storage.Update(ctx, s.store, storage.KeyAdminSession, map[string]time.Time{}, func(m map[string]time.Time) (map[string]time.Time, error) {
		delete(m, adminID)
		return m, nil
	}); err != nil {
		slog.Error("can't discard admin session", "admin_id", adminID, "error", err)
	}
}
