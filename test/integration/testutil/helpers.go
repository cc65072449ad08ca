//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/bettingtipspro/tracker/internal/service"
)

var _ service.Mailer = (*CapturingMailer)(nil)

// CapturingMailer records password reset links instead of sending them.
type CapturingMailer struct {
	mu    sync.Mutex
	links map[string]string
}

func (m *CapturingMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links == nil {
		m.links = map[string]string{}
	}
	m.links[to] = link
	return nil
}

// ResetToken returns the token from the last link mailed to email.
func (m *CapturingMailer) ResetToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := url.Parse(m.links[email])
	if err != nil {
		return ""
	}
	return u.Query().Get("token")
}

// SignUp creates a user and returns the auth token and user ID.
func (env *TestEnv) SignUp(email, password string) (token string, userID uuid.UUID) {
	env.t.Helper()
	resp := env.POST("/auth/signup", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		env.t.Fatalf("SignUp: expected 201, got %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
		User  struct {
			ID uuid.UUID `json:"id"`
		} `json:"user"`
	}
	DecodeData(env.t, resp, &result)
	return result.Token, result.User.ID
}

// Login authenticates an existing user and returns the auth token.
func (env *TestEnv) Login(email, password string) string {
	env.t.Helper()
	resp := env.POST("/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		env.t.Fatalf("Login: expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	DecodeData(env.t, resp, &result)
	return result.Token
}

// CreateBet posts body to /bets and returns the stored bet id.
func (env *TestEnv) CreateBet(token string, body map[string]interface{}) uuid.UUID {
	env.t.Helper()
	resp := env.POST("/bets", body, token)
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		env.t.Fatalf("CreateBet: expected 201, got %d", resp.StatusCode)
	}
	var bet struct {
		ID uuid.UUID `json:"id"`
	}
	DecodeData(env.t, resp, &bet)
	return bet.ID
}

// BetBody returns a valid create request that callers can tweak.
func BetBody(match string, odds, stake float64) map[string]interface{} {
	return map[string]interface{}{
		"match_name": match,
		"sport":      "Football",
		"bet_type":   "simple",
		"prediction": "Victoire domicile",
		"odds":       odds,
		"stake":      stake,
	}
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	return env.Do(http.MethodGet, path, nil, "", nil)
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.Do(http.MethodPost, path, body, token, nil)
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	return env.Do(http.MethodGet, path, nil, token, nil)
}

// AuthPUT performs an authenticated PUT request.
func (env *TestEnv) AuthPUT(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.Do(http.MethodPut, path, body, token, nil)
}

// AuthPATCH performs an authenticated PATCH request.
func (env *TestEnv) AuthPATCH(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.Do(http.MethodPatch, path, body, token, nil)
}

// AuthDELETE performs an authenticated DELETE request.
func (env *TestEnv) AuthDELETE(path, token string) *http.Response {
	env.t.Helper()
	return env.Do(http.MethodDelete, path, nil, token, nil)
}

// Do sends a request with a JSON body, an optional bearer token and extra
// headers.
func (env *TestEnv) Do(method, path string, body interface{}, token string, headers map[string]string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("%s %s: new request: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}
