// Package auth provides the client session manager: it owns the authenticated
// user and the bearer token, persists them as one unit in local storage and
// restores them on start.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/gobarber/internal/api"
	"github.com/patric-chuzhbe/gobarber/internal/logger"
	"github.com/patric-chuzhbe/gobarber/internal/models"
	"github.com/patric-chuzhbe/gobarber/internal/user"
)

var (
	// ErrAuthentication means the API rejected the credentials or the token.
	ErrAuthentication = errors.New("authentication failed")

	// ErrInvalidState means the operation needs an active session and there is none.
	ErrInvalidState = errors.New("no active session")

	// ErrTransport means the API could not be reached or answered with a failure.
	ErrTransport = api.ErrTransport
)

type transport interface {
	PostAnonymous(ctx context.Context, path string, body, out any) error
	Get(ctx context.Context, path string, out any) error
}

type sessionKeeper interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItems(ctx context.Context, items map[string]string) error
	RemoveItems(ctx context.Context, keys ...string) error
}

// SessionManager moves between the unauthenticated and authenticated states.
// Every transition writes or clears the token and user keys with a single
// storage call, under the same lock that guards the in-memory session.
type SessionManager struct {
	transport transport
	storage   sessionKeeper
	now       func() time.Time

	mu      sync.RWMutex
	session *models.Session

	listenersMu sync.Mutex
	listeners   []func(*models.Session)
}

type InitOption func(*SessionManager)

// WithClock replaces time.Now when checking token expiry.
func WithClock(now func() time.Time) InitOption {
	return func(m *SessionManager) {
		m.now = now
	}
}

// New creates a SessionManager. Restore must be called once before use to pick
// up a session persisted by a previous run.
func New(transport transport, storage sessionKeeper, options ...InitOption) *SessionManager {
	m := &SessionManager{
		transport: transport,
		storage:   storage,
		now:       time.Now,
	}
	for _, option := range options {
		option(m)
	}

	return m
}

// Restore loads the persisted session. The token is trusted without asking the
// API unless it is a JWT whose exp claim has already passed. A stored pair that
// is incomplete, unreadable or expired is cleared and nil is returned.
func (m *SessionManager) Restore(ctx context.Context) (*models.Session, error) {
	m.mu.Lock()

	token, hasToken, err := m.storage.GetItem(ctx, models.StorageKeyToken)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("in internal/auth/auth.go/Restore(): error while reading the token: %w", err)
	}
	rawUser, hasUser, err := m.storage.GetItem(ctx, models.StorageKeyUser)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("in internal/auth/auth.go/Restore(): error while reading the user: %w", err)
	}

	if !hasToken && !hasUser {
		m.session = nil
		m.mu.Unlock()
		return nil, nil
	}

	var usr user.User
	usable := hasToken && hasUser && token != ""
	if usable {
		if err := json.Unmarshal([]byte(rawUser), &usr); err != nil {
			logger.Log.Infoln("discarding unreadable stored user", zap.Error(err))
			usable = false
		}
	}
	if usable && m.isExpired(token) {
		logger.Log.Infoln("discarding expired stored token")
		usable = false
	}

	if !usable {
		m.session = nil
		err := m.storage.RemoveItems(ctx, models.StorageKeyToken, models.StorageKeyUser)
		m.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("in internal/auth/auth.go/Restore(): error while clearing the stored session: %w", err)
		}
		return nil, nil
	}

	m.session = &models.Session{Token: token, User: usr}
	restored := *m.session
	m.mu.Unlock()

	m.notify(&restored)

	return &restored, nil
}

// SignIn exchanges credentials for a session and persists it. On any failure
// neither storage nor a pre-existing session is touched.
func (m *SessionManager) SignIn(ctx context.Context, credentials models.Credentials) (*models.Session, error) {
	var session models.Session
	err := m.transport.PostAnonymous(ctx, models.EndpointSessions, credentials, &session)
	if err != nil {
		if isRejection(err) {
			return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if session.Token == "" || session.User.IsZero() {
		return nil, fmt.Errorf("%w: sign in answer carries no session", ErrTransport)
	}

	rawUser, err := json.Marshal(session.User)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	err = m.storage.SetItems(ctx, map[string]string{
		models.StorageKeyToken: session.Token,
		models.StorageKeyUser:  string(rawUser),
	})
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("in internal/auth/auth.go/SignIn(): error while persisting the session: %w", err)
	}
	m.session = &session
	signedIn := session
	m.mu.Unlock()

	m.notify(&signedIn)

	return &signedIn, nil
}

// SignOut clears the session from storage and memory. Without an active
// session it does nothing. If storage cannot be cleared the session stays.
func (m *SessionManager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return nil
	}

	if err := m.storage.RemoveItems(ctx, models.StorageKeyToken, models.StorageKeyUser); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("in internal/auth/auth.go/SignOut(): error while clearing the session: %w", err)
	}
	m.session = nil
	m.mu.Unlock()

	m.notify(nil)

	return nil
}

// UpdateUser replaces the session user and persists it; the token is kept.
func (m *SessionManager) UpdateUser(ctx context.Context, usr user.User) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return ErrInvalidState
	}

	if err := m.persistUser(ctx, usr); err != nil {
		m.mu.Unlock()
		return err
	}
	updated := *m.session
	m.mu.Unlock()

	m.notify(&updated)

	return nil
}

// HandleUnauthorized is the transport's signal that token was rejected. The
// session is dropped only if it still uses that token.
func (m *SessionManager) HandleUnauthorized(ctx context.Context, token string) {
	if err := m.signOutToken(ctx, token); err != nil {
		logger.Log.Errorln("Error calling the `m.signOutToken()`", zap.Error(err))
	}
}

// Revalidate asks the API for the profile of the current session. A rejected
// token signs the user out; an accepted one refreshes the stored user.
func (m *SessionManager) Revalidate(ctx context.Context) error {
	token := m.Token()
	if token == "" {
		return ErrInvalidState
	}

	var usr user.User
	if err := m.transport.Get(ctx, models.EndpointProfile, &usr); err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			if signOutErr := m.signOutToken(ctx, token); signOutErr != nil {
				return signOutErr
			}
			return fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		return fmt.Errorf("revalidate: %w", err)
	}

	m.mu.Lock()
	if m.session == nil || m.session.Token != token {
		m.mu.Unlock()
		return nil
	}
	if err := m.persistUser(ctx, usr); err != nil {
		m.mu.Unlock()
		return err
	}
	updated := *m.session
	m.mu.Unlock()

	m.notify(&updated)

	return nil
}

// User returns a copy of the session user; ok is false when unauthenticated.
func (m *SessionManager) User() (usr user.User, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil {
		return user.User{}, false
	}

	return m.session.User, true
}

// Token returns the bearer token or "" when unauthenticated.
func (m *SessionManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil {
		return ""
	}

	return m.session.Token
}

func (m *SessionManager) IsAuthenticated() bool {
	return m.Token() != ""
}

// Session returns a copy of the current session or nil.
func (m *SessionManager) Session() *models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil {
		return nil
	}
	session := *m.session

	return &session
}

// OnChange registers listener, called with the new session (nil after sign-out)
// after every transition or user update.
func (m *SessionManager) OnChange(listener func(*models.Session)) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()

	m.listeners = append(m.listeners, listener)
}

func (m *SessionManager) notify(session *models.Session) {
	m.listenersMu.Lock()
	listeners := append([]func(*models.Session){}, m.listeners...)
	m.listenersMu.Unlock()

	for _, listener := range listeners {
		var arg *models.Session
		if session != nil {
			copied := *session
			arg = &copied
		}
		listener(arg)
	}
}

func (m *SessionManager) signOutToken(ctx context.Context, token string) error {
	m.mu.Lock()
	if m.session == nil || m.session.Token != token {
		m.mu.Unlock()
		return nil
	}
	if err := m.storage.RemoveItems(ctx, models.StorageKeyToken, models.StorageKeyUser); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("in internal/auth/auth.go/signOutToken(): error while clearing the session: %w", err)
	}
	m.session = nil
	m.mu.Unlock()

	m.notify(nil)

	return nil
}

// persistUser must be called with mu held and an active session.
func (m *SessionManager) persistUser(ctx context.Context, usr user.User) error {
	rawUser, err := json.Marshal(usr)
	if err != nil {
		return err
	}
	if err := m.storage.SetItems(ctx, map[string]string{models.StorageKeyUser: string(rawUser)}); err != nil {
		return fmt.Errorf("in internal/auth/auth.go/persistUser(): error while persisting the user: %w", err)
	}
	m.session = &models.Session{Token: m.session.Token, User: usr}

	return nil
}

// isExpired inspects the exp claim without verifying the signature; the
// signature is the API's business. Tokens that are not JWTs never expire here.
func (m *SessionManager) isExpired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return false
	}

	return claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(m.now())
}

func isRejection(err error) bool {
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) {
		return false
	}

	switch statusErr.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}

	return false
}
