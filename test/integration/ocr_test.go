//go:build integration

package integration

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bettingtipspro/tracker/internal/ocr"
	"github.com/bettingtipspro/tracker/test/integration/testutil"
)

const tinyPNG = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

type stubModel struct {
	reply string
	err   error
}

func (m stubModel) Name() string { return "stub" }

func (m stubModel) Generate(context.Context, ocr.Request) (string, error) {
	return m.reply, m.err
}

type ocrView struct {
	Match      string  `json:"match"`
	Odds       float64 `json:"odds"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Draft      map[string]interface{} `json:"draft"`
}

func TestOCR_ExtractThenSaveDraft(t *testing.T) {
	env := testutil.NewTestEnvWith(t, testutil.Options{
		VisionModel: stubModel{reply: "```json\n" + `{"match":"Lens : Lille","sport":"Football","betType":"simple",` +
			`"prediction":"Lens gagne","odds":2.1,"stake":5000,"date":"2026-04-02","confidence":0.9}` + "\n```"},
	})
	token, userID := env.SignUp("ocr@example.com", "securepass123")

	resp := env.POST("/ocr/extract", map[string]string{"image": tinyPNG}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var x ocrView
	testutil.DecodeData(t, resp, &x)
	assert.Equal(t, "vision", x.Source)
	assert.Equal(t, "Lens vs Lille", x.Match)
	assert.Equal(t, true, x.Draft["is_ocr_extracted"])
	assert.Equal(t, "2026-04-02", x.Draft["match_date"])

	// The draft is accepted as-is by POST /bets.
	resp = env.POST("/bets", x.Draft, token)
	testutil.AssertStatus(t, resp, http.StatusCreated)
	resp.Body.Close()
	assert.Equal(t, 1, testutil.CountBets(t, env, userID))
}

func TestOCR_DegradesToFallback(t *testing.T) {
	env := testutil.NewTestEnvWith(t, testutil.Options{
		VisionModel: stubModel{err: errors.New("503 from upstream")},
		TextModel:   stubModel{reply: "not json"},
	})
	token, _ := env.SignUp("ocr-fallback@example.com", "securepass123")

	resp := env.POST("/ocr/extract", map[string]string{"image": tinyPNG}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var x ocrView
	testutil.DecodeData(t, resp, &x)
	assert.Equal(t, "fallback", x.Source)
	assert.InDelta(t, 0.8, x.Confidence, 1e-9)
}

func TestOCR_InvalidImage(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.SignUp("ocr-invalid@example.com", "securepass123")

	resp := env.POST("/ocr/extract", map[string]string{"image": "data:image/png;base64,@@@"}, token)
	testutil.AssertStatus(t, resp, http.StatusBadRequest)
	testutil.AssertErrorCode(t, resp, "VALIDATION_ERROR")
}

func TestOCR_RateLimited(t *testing.T) {
	env := testutil.NewTestEnvWith(t, testutil.Options{OCRRateLimit: 2})
	token, _ := env.SignUp("ocr-limit@example.com", "securepass123")

	for i := 0; i < 2; i++ {
		resp := env.POST("/ocr/quick", map[string]string{"image": tinyPNG}, token)
		testutil.AssertStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	resp := env.POST("/ocr/quick", map[string]string{"image": tinyPNG}, token)
	testutil.AssertStatus(t, resp, http.StatusTooManyRequests)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	testutil.AssertErrorCode(t, resp, "RATE_LIMITED")
}
