package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/bettingtipspro/tracker/internal/domain"
)

// maxBodyBytes caps JSON request bodies outside the OCR routes.
const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RespondJSON writes a success envelope with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// RespondError writes a failure envelope, detecting domain.AppError for
// status codes. Causes go to the request logger and never to the client.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		appErr = domain.ErrInternal("", err)
	}
	logger := LoggerFrom(r.Context())
	if appErr.Status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("code", appErr.Code), zap.Error(err))
	} else if appErr.Cause != nil {
		logger.Warn("request rejected", zap.String("code", appErr.Code), zap.Error(appErr.Cause))
	}
	writeJSON(w, appErr.Status, envelope{Code: appErr.Code, Error: appErr.Message})
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// DecodeJSON reads and decodes a JSON request body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return decodeJSONLimit(w, r, dst, maxBodyBytes)
}

func decodeJSONLimit(w http.ResponseWriter, r *http.Request, dst interface{}, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.ErrValidation("corps de requête trop volumineux")
		}
		return domain.ErrValidation("corps de requête invalide")
	}
	return nil
}
