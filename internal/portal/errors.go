package portal

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the backend rejects the bearer token.
// Callers are expected to send the user back through login.
var ErrUnauthorized = errors.New("portal: token ausente ou expirado")

// APIError carries a business error reported by the backend (4xx with a
// message body).
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("portal: backend retornou %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("portal: backend retornou %d", e.StatusCode)
}

// DecodeError indicates the backend answered 2xx with a payload that does
// not match the expected shape. Malformed payloads are rejected at this
// boundary instead of propagating partial data to callers.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("portal: resposta inválida de %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
