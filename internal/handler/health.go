package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bettingtipspro/tracker/internal/infra"
)

// HealthHandler returns a health check endpoint.
func HealthHandler(db infra.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := infra.HealthCheck(r.Context(), db); err != nil {
			LoggerFrom(r.Context()).Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, envelope{
				Code:  "UNHEALTHY",
				Error: "base de données injoignable",
			})
			return
		}
		RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}
