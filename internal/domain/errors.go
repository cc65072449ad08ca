package domain

import "fmt"

// AppError is the base domain error type. Message is user-facing (French);
// Cause is logged but never serialized.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// User-facing messages shared across handlers and services.
const (
	MsgUnauthorized = "Non autorisé"
	MsgRateLimited  = "Trop de requêtes. Veuillez patienter un moment."
	MsgUnexpected   = "Erreur inattendue"
)

// Standard domain error constructors.

func ErrNotFound(msg string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: msg, Status: 404}
}

func ErrBetNotFound() *AppError {
	return ErrNotFound("Pari introuvable")
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	if msg == "" {
		msg = MsgUnauthorized
	}
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrRateLimited(cause error) *AppError {
	return &AppError{Code: "RATE_LIMITED", Message: MsgRateLimited, Status: 429, Cause: cause}
}

func ErrInternal(msg string, cause error) *AppError {
	if msg == "" {
		msg = MsgUnexpected
	}
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}

func ErrAccountLocked(msg string) *AppError {
	return &AppError{Code: "ACCOUNT_LOCKED", Message: msg, Status: 429}
}

func ErrDuplicateRequest() *AppError {
	return &AppError{Code: "DUPLICATE_REQUEST", Message: "Requête déjà traitée", Status: 409}
}
