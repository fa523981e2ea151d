package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

var ErrUnauthorized = errors.New("session is not valid")

// Identity is what the session collaborator resolves a bearer token to.
type Identity struct {
	ActorID  string `json:"actor_id"`
	Role     Role   `json:"role"`
	SellerID uint64 `json:"seller_id"`
}

// SessionLookup resolves a bearer token to an identity. The platform's
// auth service implements it over HTTP; tests substitute fakes.
type SessionLookup interface {
	Lookup(ctx context.Context, token string) (*Identity, error)
}

type HTTPSessionLookup struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSessionLookup(baseURL string, timeout time.Duration) *HTTPSessionLookup {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSessionLookup{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (l *HTTPSessionLookup) Lookup(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/internal/sessions/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth service returned status %d", resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, err
	}
	if identity.ActorID == "" || identity.Role == "" {
		return nil, ErrUnauthorized
	}
	return &identity, nil
}
