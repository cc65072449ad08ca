package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/bettingtipspro/tracker/internal/domain"
	"github.com/bettingtipspro/tracker/internal/guard"
	"github.com/bettingtipspro/tracker/internal/ocr"
)

// maxOCRBodyBytes leaves room for a base64 image of ocr.MaxImageBytes.
const maxOCRBodyBytes = ocr.MaxImageBytes*4/3 + 64<<10

// OCRHandler exposes ticket extraction.
type OCRHandler struct {
	extractor *ocr.Extractor
	limiter   *guard.RateLimiter
}

// NewOCRHandler creates an OCRHandler. limiter is checked per user.
func NewOCRHandler(extractor *ocr.Extractor, limiter *guard.RateLimiter) *OCRHandler {
	return &OCRHandler{extractor: extractor, limiter: limiter}
}

type imageRequest struct {
	Image string `json:"image"`
}

type validateRequest struct {
	Image     string     `json:"image"`
	Extracted ocr.Ticket `json:"extracted"`
}

// ocrResponse adds a bet draft ready for POST /bets.
type ocrResponse struct {
	*ocr.Extraction
	Draft domain.CreateBetInput `json:"draft"`
}

func newOCRResponse(x *ocr.Extraction) ocrResponse {
	return ocrResponse{Extraction: x, Draft: x.CreateInput()}
}

// Extract handles POST /ocr/extract.
func (h *OCRHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var input imageRequest
	if !h.admit(w, r, &input) {
		return
	}
	x, err := h.extractor.Extract(r.Context(), input.Image)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, newOCRResponse(x))
}

// Quick handles POST /ocr/quick.
func (h *OCRHandler) Quick(w http.ResponseWriter, r *http.Request) {
	var input imageRequest
	if !h.admit(w, r, &input) {
		return
	}
	x, err := h.extractor.QuickExtract(r.Context(), input.Image)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, newOCRResponse(x))
}

// Validate handles POST /ocr/validate.
func (h *OCRHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var input validateRequest
	if !h.admit(w, r, &input) {
		return
	}
	x, err := h.extractor.Validate(r.Context(), input.Extracted, input.Image)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, newOCRResponse(x))
}

// admit applies the per-user rate limit and decodes the body.
func (h *OCRHandler) admit(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	sess, ok := requireSession(w, r)
	if !ok {
		return false
	}
	if res := h.limiter.Check(r.Context(), sess.UserID.String()); !res.Allowed {
		if res.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
		}
		RespondError(w, r, domain.ErrRateLimited(nil))
		return false
	}
	if err := decodeJSONLimit(w, r, dst, maxOCRBodyBytes); err != nil {
		RespondError(w, r, err)
		return false
	}
	return true
}
