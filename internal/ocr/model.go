package ocr

import "context"

// Request is one model call. Image is optional; Structured asks for JSON
// matching the ticket schema.
type Request struct {
	Prompt     string
	Image      []byte
	MIMEType   string
	Structured bool
	MaxTokens  int32
}

// Model generates a text reply. Name keys the circuit breaker.
type Model interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}
