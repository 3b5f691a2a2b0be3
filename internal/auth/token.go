package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"courier-driver-agent/internal/apperr"
)

type tokenPairDTO struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type credentialsDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshDTO struct {
	Refresh string `json:"refresh"`
}

// TokenProvider manages the driver's JWT session against the backend
// token endpoints. It is the gateway's TokenSource and the lifecycle
// coordinator's auth collaborator.
type TokenProvider struct {
	mu      sync.Mutex
	http    *http.Client
	baseURL string

	access  string
	refresh string
	loading bool
}

// NewTokenProvider creates a token provider against the given base URL.
func NewTokenProvider(baseURL string, timeout time.Duration) *TokenProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TokenProvider{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// IsLoggedIn reports whether an access token is held.
func (p *TokenProvider) IsLoggedIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.access != ""
}

// IsLoading reports whether a token exchange is in flight.
func (p *TokenProvider) IsLoading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// AccessToken returns the current bearer token, empty when logged out.
func (p *TokenProvider) AccessToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.access
}

// Login exchanges credentials for a token pair.
func (p *TokenProvider) Login(ctx context.Context, username, password string) error {
	return p.exchange(ctx, "/api/v1/auth/token/", credentialsDTO{Username: username, Password: password})
}

// Refresh trades the refresh token for a fresh access token.
func (p *TokenProvider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	refresh := p.refresh
	p.mu.Unlock()
	if refresh == "" {
		return fmt.Errorf("token refresh: %w: no refresh token", apperr.ErrAuth)
	}
	return p.exchange(ctx, "/api/v1/auth/token/refresh/", refreshDTO{Refresh: refresh})
}

// Logout drops the session tokens.
func (p *TokenProvider) Logout() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.access = ""
	p.refresh = ""
}

func (p *TokenProvider) exchange(ctx context.Context, path string, in any) error {
	p.setLoading(true)
	defer p.setLoading(false)

	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("token exchange: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("token exchange: %w: %v", apperr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("token exchange: %w (%d)", apperr.ErrAuth, resp.StatusCode)
		}
		return fmt.Errorf("token exchange: %w (%d)", apperr.ErrNetwork, resp.StatusCode)
	}

	var pair tokenPairDTO
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return fmt.Errorf("token exchange: decode: %w", err)
	}
	if pair.Access == "" {
		return fmt.Errorf("token exchange: %w: empty access token", apperr.ErrAuth)
	}

	p.mu.Lock()
	p.access = pair.Access
	if pair.Refresh != "" {
		p.refresh = pair.Refresh
	}
	p.mu.Unlock()
	return nil
}

func (p *TokenProvider) setLoading(v bool) {
	p.mu.Lock()
	p.loading = v
	p.mu.Unlock()
}
