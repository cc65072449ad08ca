//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// DecodeData decodes the data field of a success envelope into dst.
func DecodeData(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	var body struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	DecodeJSON(t, resp, &body)
	if !body.Success {
		t.Fatalf("DecodeData: response is not a success envelope")
	}
	if err := json.Unmarshal(body.Data, dst); err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
}

// AssertStatus checks that the response has the expected HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertErrorCode checks that the failure envelope carries the expected code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var errResp struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
		Error   string `json:"error"`
	}
	DecodeJSON(t, resp, &errResp)
	if errResp.Success {
		t.Errorf("expected a failure envelope")
	}
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (error: %s)", expectedCode, errResp.Code, errResp.Error)
	}
}

// CountBets returns how many bets userID owns.
func CountBets(t *testing.T, env *TestEnv, userID uuid.UUID) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var n int
	if err := env.Pool.QueryRow(ctx, "SELECT count(*) FROM bets WHERE user_id = $1", userID).Scan(&n); err != nil {
		t.Fatalf("CountBets: query: %v", err)
	}
	return n
}

// BackdateBet moves a bet's created_at into the past.
func BackdateBet(t *testing.T, env *TestEnv, betID uuid.UUID, createdAt time.Time) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := env.Pool.Exec(ctx, "UPDATE bets SET created_at = $1 WHERE id = $2", createdAt, betID); err != nil {
		t.Fatalf("BackdateBet: %v", err)
	}
}
