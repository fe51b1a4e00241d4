// Package apperr defines the error taxonomy shared by the proxy handlers.
// Every failure that crosses the API boundary is one of these kinds, so the
// HTTP layer can map it to a status code and a structured body without
// inspecting error strings.
package apperr

import "fmt"

// Validation indicates missing or malformed user input. User-correctable.
type Validation struct {
	Message string
}

func (e *Validation) Error() string { return e.Message }

// Validationf builds a Validation error from a format string.
func Validationf(format string, args ...any) *Validation {
	return &Validation{Message: fmt.Sprintf(format, args...)}
}

// Credential indicates the vendor API key is not configured.
// Operator-correctable.
type Credential struct {
	Message string
}

func (e *Credential) Error() string { return e.Message }

// MissingKey is the uniform credential error for proxies that need the vendor.
func MissingKey() *Credential {
	return &Credential{Message: "OPENAI_API_KEY not set"}
}

// Vendor indicates a non-success response from the vendor API. Carries the
// vendor's own status code and message.
type Vendor struct {
	Status  int
	Message string
}

func (e *Vendor) Error() string {
	return fmt.Sprintf("vendor returned status %d: %s", e.Status, e.Message)
}

// Network indicates a transport-level failure talking to the vendor or a
// fetched URL. Never retried.
type Network struct {
	Op  string
	Err error
}

func (e *Network) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Network) Unwrap() error { return e.Err }
