package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/taskdesk/internal/client/client"
	"github.com/dmitrijs2005/taskdesk/internal/client/models"
	"github.com/dmitrijs2005/taskdesk/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/dmitrijs2005/taskdesk/internal/dbx"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// MinPasswordLength applies to registration only.
const MinPasswordLength = 6

// timeNow is the clock used by all stores in this package.
var timeNow = time.Now

type SessionState string

const (
	StateLoading       SessionState = "loading"
	StateAnonymous     SessionState = "anonymous"
	StateAuthenticated SessionState = "authenticated"
)

type EventKind string

const (
	EventLogin    EventKind = "login"
	EventLogout   EventKind = "logout"
	EventExpired  EventKind = "expired"
	EventRestored EventKind = "restored"
)

// SessionEvent is delivered to session observers. User is nil for logout
// and expired.
type SessionEvent struct {
	Kind EventKind
	User *models.User
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate checks the form locally before anything is sent.
func (in RegisterInput) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "Name is required"
	}
	if !strings.Contains(in.Email, "@") {
		fields["email"] = "Please enter a valid email"
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		fields["password"] = "Password must be at least 6 characters long"
	}
	if in.Password != in.ConfirmPassword {
		fields["confirm_password"] = "Passwords do not match"
	}
	if len(fields) > 0 {
		return &common.ValidationError{Fields: fields}
	}
	return nil
}

// PasswordStrength scores password out of 100 with a display label.
func PasswordStrength(password string) (int, string) {
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	score := 0
	for _, ok := range []bool{utf8.RuneCountInString(password) >= 8, lower, upper, digit} {
		if ok {
			score += 25
		}
	}

	switch {
	case score < 25:
		return score, "Weak"
	case score < 50:
		return score, "Fair"
	case score < 75:
		return score, "Good"
	default:
		return score, "Strong"
	}
}

// Authorizer is the view of the session other stores depend on.
type Authorizer interface {
	Current() *models.User
	Expire(ctx context.Context)
}

// SessionStore owns who is signed in and the persisted credential.
type SessionStore struct {
	client client.Client
	db     *sql.DB
	logger logging.Logger

	mu      sync.RWMutex
	state   SessionState
	session *models.Session

	observers observers[SessionEvent]
}

var _ Authorizer = (*SessionStore)(nil)

// NewSessionStore returns a store in the loading state. Call Restore once
// at startup to leave it.
func NewSessionStore(c client.Client, db *sql.DB, logger logging.Logger) *SessionStore {
	return &SessionStore{
		client: c,
		db:     db,
		logger: logger.With("component", "session"),
		state:  StateLoading,
	}
}

func (s *SessionStore) repo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (s *SessionStore) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns a copy of the signed-in user, or nil.
func (s *SessionStore) Current() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	u := s.session.User
	return &u
}

func (s *SessionStore) IsAdmin() bool {
	u := s.Current()
	return u != nil && u.IsAdmin
}

// Subscribe registers fn for session events.
func (s *SessionStore) Subscribe(fn func(SessionEvent)) (unsubscribe func()) {
	return s.observers.add(fn)
}

// Login authenticates with the server. On failure nothing changes and the
// error carries the server's message when there is one.
func (s *SessionStore) Login(ctx context.Context, email, password string) (*models.User, error) {
	fields := map[string]string{}
	if strings.TrimSpace(email) == "" {
		fields["email"] = "Email is required"
	}
	if password == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		return nil, &common.ValidationError{Fields: fields}
	}

	sess, err := s.client.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		s.logger.Warn(ctx, "login failed", "error", err)
		return nil, fmt.Errorf("login: %w", err)
	}
	return s.establish(ctx, sess, EventLogin), nil
}

// Register validates in locally, creates the account and signs in.
func (s *SessionStore) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	sess, err := s.client.Register(ctx, strings.TrimSpace(in.Name), strings.TrimSpace(in.Email), in.Password)
	if err != nil {
		s.logger.Warn(ctx, "register failed", "error", err)
		return nil, fmt.Errorf("register: %w", err)
	}
	return s.establish(ctx, sess, EventLogin), nil
}

func (s *SessionStore) establish(ctx context.Context, sess *models.Session, kind EventKind) *models.User {
	s.client.SetToken(sess.Token)
	if err := s.persist(ctx, sess); err != nil {
		s.logger.Warn(ctx, "persist session", "error", err)
	}

	s.mu.Lock()
	s.session = sess
	s.state = StateAuthenticated
	s.mu.Unlock()

	u := sess.User
	s.logger.Info(ctx, "signed in", "user_id", u.ID, "admin", u.IsAdmin)
	s.observers.notify(SessionEvent{Kind: kind, User: &u})
	return &u
}

// Logout ends the session locally. It always succeeds.
func (s *SessionStore) Logout(ctx context.Context) {
	s.end(ctx, EventLogout)
}

// Expire ends the session after the server stopped accepting it.
func (s *SessionStore) Expire(ctx context.Context) {
	s.end(ctx, EventExpired)
}

func (s *SessionStore) end(ctx context.Context, kind EventKind) {
	s.client.SetToken("")
	if err := s.clearPersisted(ctx); err != nil {
		s.logger.Warn(ctx, "clear persisted session", "error", err)
	}

	s.mu.Lock()
	had := s.session != nil
	s.session = nil
	s.state = StateAnonymous
	s.mu.Unlock()

	if !had {
		return
	}
	if kind == EventExpired {
		s.logger.Info(ctx, "session expired")
	}
	s.observers.notify(SessionEvent{Kind: kind})
}

// Restore re-establishes a persisted session. A missing, malformed, expired
// or rejected credential leaves the store anonymous with a nil error. If the
// server cannot be reached the credential is kept and the error returned.
func (s *SessionStore) Restore(ctx context.Context) error {
	sess, err := s.loadPersisted(ctx)
	if err != nil && ctx.Err() != nil {
		// Interrupted, not corrupt: keep the credential for the next start.
		s.setAnonymous()
		return fmt.Errorf("restore session: %w", err)
	}
	if err != nil || sess == nil {
		if err != nil {
			s.logger.Warn(ctx, "discarding persisted session", "error", err)
			s.discard(ctx)
		}
		s.setAnonymous()
		return nil
	}

	if tokenExpired(sess.Token, timeNow()) {
		s.logger.Info(ctx, "persisted token expired")
		s.discard(ctx)
		s.setAnonymous()
		return nil
	}

	s.client.SetToken(sess.Token)
	if err := s.client.VerifySession(ctx); err != nil {
		s.client.SetToken("")
		s.setAnonymous()
		if client.IsAuthFailure(err) {
			s.logger.Info(ctx, "persisted session rejected")
			s.discard(ctx)
			return nil
		}
		s.logger.Warn(ctx, "verify session", "error", err)
		return fmt.Errorf("restore session: %w", err)
	}

	s.mu.Lock()
	s.session = sess
	s.state = StateAuthenticated
	s.mu.Unlock()

	u := sess.User
	s.observers.notify(SessionEvent{Kind: EventRestored, User: &u})
	return nil
}

func (s *SessionStore) setAnonymous() {
	s.mu.Lock()
	s.session = nil
	s.state = StateAnonymous
	s.mu.Unlock()
}

func (s *SessionStore) discard(ctx context.Context) {
	if err := s.clearPersisted(ctx); err != nil {
		s.logger.Warn(ctx, "clear persisted session", "error", err)
	}
}

// tokenExpired reports whether token is a JWT whose exp has passed. Tokens
// that are not JWTs are left for the server to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}

func (s *SessionStore) loadPersisted(ctx context.Context) (*models.Session, error) {
	kv, err := s.repo(s.db).Scan(ctx, metadata.SessionPrefix)
	if err != nil {
		return nil, err
	}
	token, rawUser := kv[metadata.KeySessionToken], kv[metadata.KeySessionUser]
	if len(token) == 0 && len(rawUser) == 0 {
		return nil, nil
	}
	if len(token) == 0 || len(rawUser) == 0 {
		return nil, errors.New("incomplete persisted session")
	}

	var u models.User
	if err := json.Unmarshal(rawUser, &u); err != nil {
		return nil, fmt.Errorf("decode persisted user: %w", err)
	}
	if u.ID <= 0 {
		return nil, errors.New("persisted user has no id")
	}
	return &models.Session{Token: string(token), User: u}, nil
}

func (s *SessionStore) persist(ctx context.Context, sess *models.Session) error {
	rawUser, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		if err := repo.Set(ctx, metadata.KeySessionToken, []byte(sess.Token)); err != nil {
			return err
		}
		return repo.Set(ctx, metadata.KeySessionUser, rawUser)
	})
}

func (s *SessionStore) clearPersisted(ctx context.Context) error {
	return s.repo(s.db).Delete(ctx, metadata.KeySessionToken, metadata.KeySessionUser)
}
