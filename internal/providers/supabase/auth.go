// Package supabase implements the auth collaborator against a Supabase
// GoTrue endpoint.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"verba/internal/domain"
)

// Config controls the Supabase project endpoint.
type Config struct {
	URL     string
	AnonKey string

	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
}

// Auth implements ports.AuthGateway. The current session is held in memory;
// there is no token refresh, a signed-in user stays valid until sign-out or
// expiry.
type Auth struct {
	cfg Config

	mu      sync.Mutex
	session *domain.AuthSession
}

func NewAuth(cfg Config) *Auth {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	return &Auth{cfg: cfg}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`

	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"msg"`
}

func (a *Auth) SignUp(ctx context.Context, email, password string) (domain.AuthSession, error) {
	return a.authenticate(ctx, "/auth/v1/signup", email, password)
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (domain.AuthSession, error) {
	return a.authenticate(ctx, "/auth/v1/token?grant_type=password", email, password)
}

func (a *Auth) authenticate(ctx context.Context, path, email, password string) (domain.AuthSession, error) {
	if a.cfg.URL == "" || a.cfg.AnonKey == "" {
		return domain.AuthSession{}, errors.New("SUPABASE_URL and SUPABASE_ANON_KEY are not configured")
	}

	body, err := json.Marshal(credentialsRequest{Email: email, Password: password})
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("failed to encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.URL+path, bytes.NewReader(body))
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", a.cfg.AnonKey)

	resp, err := a.cfg.HTTPClient.Do(req)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("failed to read auth response: %w", err)
	}

	var parsed sessionResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return domain.AuthSession{}, fmt.Errorf("unexpected auth response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || parsed.AccessToken == "" {
		return domain.AuthSession{}, errors.New(authErrorMessage(parsed, resp.StatusCode))
	}

	session := domain.AuthSession{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second),
		User:         domain.User{ID: parsed.User.ID, Email: parsed.User.Email},
	}

	a.mu.Lock()
	a.session = &session
	a.mu.Unlock()
	return session, nil
}

func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	session := a.session
	a.session = nil
	a.mu.Unlock()
	if session == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.URL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to build logout request: %w", err)
	}
	req.Header.Set("apikey", a.cfg.AnonKey)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := a.cfg.HTTPClient.Do(req)
	if err != nil {
		// The local session is already gone; a failed revoke is not fatal.
		return nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// CurrentSession returns the in-memory session, or nil once it has expired.
func (a *Auth) CurrentSession(ctx context.Context) (*domain.AuthSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil, nil
	}
	if !a.session.ExpiresAt.IsZero() && time.Now().After(a.session.ExpiresAt) {
		a.session = nil
		return nil, nil
	}
	session := *a.session
	return &session, nil
}

func (a *Auth) CurrentUser(ctx context.Context) (*domain.User, error) {
	session, err := a.CurrentSession(ctx)
	if err != nil || session == nil {
		return nil, err
	}
	user := session.User
	return &user, nil
}

func authErrorMessage(parsed sessionResponse, status int) string {
	for _, candidate := range []string{parsed.ErrorDescription, parsed.Message, parsed.Error} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return fmt.Sprintf("authentication failed with status %d", status)
}
