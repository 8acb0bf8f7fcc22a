// Package session holds the logged-in user and the cached site config.
//
// All writes go through Session methods; the API client reads the token via
// Token and reports 401s through Clear.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"plotline-cli/internal/model"

	"go.uber.org/zap"
)

// Persisted keys.
const (
	KeyToken        = "token"
	KeyUser         = "user"
	KeyStatus       = "status"
	KeySystemName   = "system_name"
	KeyFooterHTML   = "footer_html"
	KeyHomePageLink = "home_page_link"
	KeyNotice       = "notice"
)

// ErrNotLoggedIn is returned by operations that need a session.
var ErrNotLoggedIn = errors.New("not logged in; run `plotline login`")

// KV is the persistent store the session reads at startup and writes on change.
type KV interface {
	Get(ctx context.Context, k string) (string, bool, error)
	Set(ctx context.Context, k, v string) error
	SetMany(ctx context.Context, pairs map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// API is the backend surface the session needs.
type API interface {
	Login(ctx context.Context, username, password string) (model.User, error)
	AccessToken(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
	SelfWithToken(ctx context.Context, token string) (model.User, error)
	Status(ctx context.Context) (model.Status, error)
	Notice(ctx context.Context) (string, error)
	HomePageRaw(ctx context.Context) (string, error)
}

type Session struct {
	kv     KV
	logger *zap.Logger

	mu        sync.RWMutex
	user      *model.User
	token     string
	onCleared []func()
}

// Load restores the session from kv. A corrupt user record is dropped.
func Load(ctx context.Context, kv KV, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{kv: kv, logger: logger.Named("session")}

	tok, _, err := kv.Get(ctx, KeyToken)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	s.token = strings.TrimSpace(tok)

	raw, ok, err := kv.Get(ctx, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if ok && raw != "" {
		var u model.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			s.logger.Warn("dropping unreadable user record", zap.Error(err))
		} else {
			s.user = &u
		}
	}
	return s, nil
}

// Token implements apiclient.TokenSource.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// LoggedIn reports whether a credential is held. The server remains the authority.
func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// OnCleared registers fn to run after the session is cleared (logout or 401).
func (s *Session) OnCleared(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onCleared = append(s.onCleared, fn)
	s.mu.Unlock()
}

// Login authenticates with username/password and persists the issued token.
func (s *Session) Login(ctx context.Context, api API, username, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.User{}, errors.New("username and password are required")
	}
	u, err := api.Login(ctx, username, password)
	if err != nil {
		return model.User{}, err
	}
	tok, err := api.AccessToken(ctx)
	if err != nil {
		return model.User{}, fmt.Errorf("login succeeded but no access token was issued: %w", err)
	}
	if err := s.set(ctx, u, tok); err != nil {
		return model.User{}, err
	}
	s.logger.Info("logged in", zap.Int("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// LoginWithToken adopts an existing access token after the server confirms it.
// A rejected token leaves the current session as it was.
func (s *Session) LoginWithToken(ctx context.Context, api API, token string) (model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.User{}, errors.New("token is required")
	}
	u, err := api.SelfWithToken(ctx, token)
	if err != nil {
		return model.User{}, err
	}
	if err := s.set(ctx, u, token); err != nil {
		return model.User{}, err
	}
	s.logger.Info("logged in with token", zap.Int("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

func (s *Session) set(ctx context.Context, u model.User, token string) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.kv.SetMany(ctx, map[string]string{KeyToken: token, KeyUser: string(b)}); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	s.mu.Lock()
	s.user = &u
	s.token = token
	s.mu.Unlock()
	return nil
}

// Logout tells the server, then clears local state regardless of the outcome.
func (s *Session) Logout(ctx context.Context, api API) error {
	var apiErr error
	if s.LoggedIn() {
		apiErr = api.Logout(ctx)
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	if apiErr != nil {
		return fmt.Errorf("logged out locally; server logout failed: %w", apiErr)
	}
	return nil
}

// Clear drops the credential and user. It is the single sink for 401 responses.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	had := s.token != "" || s.user != nil
	s.token = ""
	s.user = nil
	listeners := append([]func(){}, s.onCleared...)
	s.mu.Unlock()

	if err := s.kv.Delete(ctx, KeyToken, KeyUser); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if had {
		s.logger.Info("session cleared")
		for _, fn := range listeners {
			fn()
		}
	}
	return nil
}

// Unauthorized adapts Clear to apiclient's 401 hook.
func (s *Session) Unauthorized() {
	if err := s.Clear(context.Background()); err != nil {
		s.logger.Warn("failed to clear session after 401", zap.Error(err))
	}
}
