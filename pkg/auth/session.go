package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/timeclock/pkg/client"
	"github.com/cuemby/timeclock/pkg/events"
	"github.com/cuemby/timeclock/pkg/log"
	"github.com/cuemby/timeclock/pkg/metrics"
	"github.com/cuemby/timeclock/pkg/storage"
	"github.com/cuemby/timeclock/pkg/types"
	"github.com/golang-jwt/jwt/v4"
)

var (
	// ErrLoginRequired means there is no usable token and the user must log in
	ErrLoginRequired = errors.New("login required")

	// ErrForbidden means the logged-in user lacks the admin role
	ErrForbidden = errors.New("admin role required")
)

// API is the part of the attendance service the session needs
type API interface {
	Login(ctx context.Context, creds client.Credentials) (*client.TokenResponse, error)
	Register(ctx context.Context, r client.RegisterRequest) (*client.TokenResponse, error)
	Me(ctx context.Context) (*types.User, error)
}

// Session is the process-wide login state: bearer token plus the loaded profile.
// Login creates it, Logout tears it down, and a 401 from any call invalidates it.
type Session struct {
	mu     sync.RWMutex
	store  storage.Store
	api    API
	broker events.Publisher
	token  string
	user   *types.User
	now    func() time.Time
}

// NewSession creates a logged-out session backed by store
func NewSession(store storage.Store, broker events.Publisher) *Session {
	if broker == nil {
		broker = events.Discard
	}
	return &Session{
		store:  store,
		broker: broker,
		now:    time.Now,
	}
}

// Bind attaches the API client. The client in turn uses the session as its
// TokenSource, so the two are wired after construction.
func (s *Session) Bind(api API) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.api = api
}

// Token implements client.TokenSource
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the loaded profile, or nil when logged out
func (s *Session) User() *types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// RequireUser returns the loaded profile or ErrLoginRequired
func (s *Session) RequireUser() (*types.User, error) {
	user := s.User()
	if user == nil {
		return nil, ErrLoginRequired
	}
	return user, nil
}

// RequireAdmin returns the loaded profile if it has the admin role
func (s *Session) RequireAdmin() (*types.User, error) {
	user, err := s.RequireUser()
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, ErrForbidden
	}
	return user, nil
}

// Login exchanges credentials for a token, persists it and loads the profile
func (s *Session) Login(ctx context.Context, creds client.Credentials) (*types.User, error) {
	api := s.boundAPI()
	if api == nil {
		return nil, fmt.Errorf("session has no API client")
	}

	resp, err := api.Login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if err := s.store.SaveToken(resp.Token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	s.mu.Lock()
	s.token = resp.Token
	s.mu.Unlock()

	user, err := s.fetchProfile(ctx, api)
	if err != nil {
		return nil, err
	}

	logger := log.WithUserID(user.ID)
	logger.Info().Str("role", string(user.Role)).Msg("Logged in")
	s.broker.Publish(&events.Event{
		Type:    events.EventUserLoggedIn,
		Message: user.Username,
		User:    user,
	})
	return user, nil
}

// Load restores a persisted token and refreshes the profile from GET /auth/me
func (s *Session) Load(ctx context.Context) (*types.User, error) {
	api := s.boundAPI()
	if api == nil {
		return nil, fmt.Errorf("session has no API client")
	}

	token := s.Token()
	if token == "" {
		stored, err := s.store.GetToken()
		if errors.Is(err, storage.ErrNotFound) {
			metrics.UpdateComponent(metrics.ComponentAuth, false, "not logged in")
			return nil, ErrLoginRequired
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read token: %w", err)
		}
		token = stored
	}

	if expired(token, s.now()) {
		logger := log.WithComponent("auth")
		logger.Info().Msg("Stored token expired")
		s.teardown("token expired")
		return nil, ErrLoginRequired
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	return s.fetchProfile(ctx, api)
}

// Refresh re-reads the profile, e.g. after the open-session reference changed
func (s *Session) Refresh(ctx context.Context) (*types.User, error) {
	api := s.boundAPI()
	if api == nil {
		return nil, fmt.Errorf("session has no API client")
	}
	if s.Token() == "" {
		return nil, ErrLoginRequired
	}
	return s.fetchProfile(ctx, api)
}

// Register creates another account. It requires an admin session and never
// replaces the admin's own token with the new user's.
func (s *Session) Register(ctx context.Context, r client.RegisterRequest) error {
	if _, err := s.RequireAdmin(); err != nil {
		return err
	}
	api := s.boundAPI()
	if api == nil {
		return fmt.Errorf("session has no API client")
	}
	if _, err := api.Register(ctx, r); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	logger := log.WithComponent("auth")
	logger.Info().Str("username", r.Username).Str("role", string(r.Role)).Msg("Registered user")
	return nil
}

// Logout removes the token and cached profile
func (s *Session) Logout() error {
	return s.teardown("logout")
}

// Invalidate tears the session down after the service rejected the token
func (s *Session) Invalidate() {
	if err := s.teardown("unauthorized"); err != nil {
		logger := log.WithComponent("auth")
		logger.Error().Err(err).Msg("Failed to clear credentials")
	}
}

func (s *Session) boundAPI() API {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.api
}

func (s *Session) fetchProfile(ctx context.Context, api API) (*types.User, error) {
	user, err := api.Me(ctx)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			// The client's 401 handler normally tore down already
			s.teardown("unauthorized")
			return nil, ErrLoginRequired
		}
		metrics.UpdateComponent(metrics.ComponentAuth, false, err.Error())
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if err := s.store.SaveProfile(user); err != nil {
		logger := log.WithComponent("auth")
		logger.Warn().Err(err).Msg("Failed to cache profile")
	}

	s.mu.Lock()
	previous := s.user
	s.user = user
	s.mu.Unlock()

	metrics.UpdateComponent(metrics.ComponentAuth, true, "")

	if previous == nil || previous.ID != user.ID {
		s.broker.Publish(&events.Event{
			Type: events.EventUserChanged,
			User: user,
		})
	}
	return user, nil
}

// teardown clears in-memory and persisted credentials and announces the logout
func (s *Session) teardown(reason string) error {
	s.mu.Lock()
	hadUser := s.user != nil
	hadToken := s.token != ""
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	var errs []error
	if err := s.store.DeleteToken(); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete token: %w", err))
	}
	if err := s.store.DeleteProfile(); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete profile: %w", err))
	}

	metrics.UpdateComponent(metrics.ComponentAuth, false, reason)

	if hadUser || hadToken {
		logger := log.WithComponent("auth")
		logger.Info().Str("reason", reason).Msg("Session ended")
		s.broker.Publish(&events.Event{
			Type:     events.EventUserLoggedOut,
			Metadata: map[string]string{"reason": reason},
		})
	}
	if hadUser {
		s.broker.Publish(&events.Event{Type: events.EventUserChanged})
	}
	return errors.Join(errs...)
}

// expired reports whether a JWT's exp claim has passed. Tokens that are not JWTs,
// or carry no exp, are left for the service to judge.
func expired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
