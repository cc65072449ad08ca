package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bettingtipspro/tracker/internal/domain"
	"github.com/bettingtipspro/tracker/internal/export"
	"github.com/bettingtipspro/tracker/internal/guard"
	"github.com/bettingtipspro/tracker/internal/service"
)

// IdempotencyHeader lets clients retry POST /bets without double entries.
const IdempotencyHeader = "Idempotency-Key"

// BetHandler handles bet CRUD, aggregates and export.
type BetHandler struct {
	betSvc      *service.BetService
	idempotency *guard.IdempotencyGuard
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(betSvc *service.BetService, idempotency *guard.IdempotencyGuard) *BetHandler {
	return &BetHandler{betSvc: betSvc, idempotency: idempotency}
}

// List handles GET /bets?limit=&search=&sport=&status=.
func (h *BetHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			RespondError(w, r, domain.ErrValidation("limit invalide"))
			return
		}
		limit = n
	}

	bets, err := h.betSvc.List(r.Context(), sess.UserID, service.ListOptions{
		Limit:  limit,
		Filter: filterFromQuery(r),
	})
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, bets)
}

// Create handles POST /bets.
func (h *BetHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var input domain.CreateBetInput
	if err := DecodeJSON(w, r, &input); err != nil {
		RespondError(w, r, err)
		return
	}

	var key string
	if k := r.Header.Get(IdempotencyHeader); k != "" {
		key = sess.UserID.String() + ":" + k
		if res := h.idempotency.Check(r.Context(), key); !res.Allowed {
			RespondError(w, r, domain.ErrDuplicateRequest())
			return
		}
	}

	bet, err := h.betSvc.Create(r.Context(), sess.UserID, input)
	if err != nil {
		if key != "" {
			h.idempotency.Remove(key)
		}
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, bet)
}

// Get handles GET /bets/{id}.
func (h *BetHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	id, ok := betID(w, r)
	if !ok {
		return
	}
	bet, err := h.betSvc.Get(r.Context(), sess.UserID, id)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, bet)
}

// Update handles PATCH /bets/{id}.
func (h *BetHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	id, ok := betID(w, r)
	if !ok {
		return
	}
	var patch domain.BetPatch
	if err := DecodeJSON(w, r, &patch); err != nil {
		RespondError(w, r, err)
		return
	}
	bet, err := h.betSvc.Update(r.Context(), sess.UserID, id, patch)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, bet)
}

type statusRequest struct {
	Status domain.BetStatus `json:"status"`
}

// UpdateStatus handles PATCH /bets/{id}/status.
func (h *BetHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	id, ok := betID(w, r)
	if !ok {
		return
	}
	var input statusRequest
	if err := DecodeJSON(w, r, &input); err != nil {
		RespondError(w, r, err)
		return
	}
	bet, err := h.betSvc.UpdateStatus(r.Context(), sess.UserID, id, input.Status)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, bet)
}

// Delete handles DELETE /bets/{id}.
func (h *BetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	id, ok := betID(w, r)
	if !ok {
		return
	}
	if err := h.betSvc.Delete(r.Context(), sess.UserID, id); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]uuid.UUID{"id": id})
}

// Stats handles GET /bets/stats.
func (h *BetHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	res, err := h.betSvc.Stats(r.Context(), sess.UserID)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, res)
}

// Performance handles GET /bets/performance?period=7|30|90|365.
func (h *BetHandler) Performance(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	report, err := h.betSvc.Performance(r.Context(), sess.UserID, r.URL.Query().Get("period"))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, report)
}

// Breakdown handles GET /bets/breakdown?period=1month|3months|6months|1year|all.
func (h *BetHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	report, err := h.betSvc.Breakdown(r.Context(), sess.UserID, r.URL.Query().Get("period"))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, report)
}

// Export handles GET /bets/export and streams the filtered history as CSV.
func (h *BetHandler) Export(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	res, err := h.betSvc.Export(r.Context(), sess.UserID, filterFromQuery(r))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.Filename))
	w.Header().Set("X-Row-Count", strconv.Itoa(res.Rows))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func filterFromQuery(r *http.Request) export.Filter {
	q := r.URL.Query()
	return export.Filter{
		Search: q.Get("search"),
		Sport:  q.Get("sport"),
		Status: q.Get("status"),
	}
}

func betID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, domain.ErrValidation("identifiant de pari invalide"))
		return uuid.Nil, false
	}
	return id, true
}
