package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"chatrelay/internal/apperr"
	"chatrelay/internal/extract"
	"chatrelay/internal/storage"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// writeError maps the error taxonomy to HTTP statuses. Every proxy handler
// funnels failures through here so no transport error escapes unstructured.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation *apperr.Validation
		credential *apperr.Credential
		vendor     *apperr.Vendor
		network    *apperr.Network
		extraction *extract.Error
	)

	switch {
	case errors.As(err, &validation):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", validation.Message)
	case errors.As(err, &extraction):
		httpError(w, http.StatusBadRequest, "extraction_error", "%s", extraction.Error())
	case errors.As(err, &credential):
		httpError(w, http.StatusInternalServerError, "credential_error", "%s", credential.Message)
	case errors.As(err, &vendor):
		httpError(w, http.StatusBadGateway, "api_error", "%s", vendor.Error())
	case errors.As(err, &network):
		httpError(w, http.StatusBadGateway, "api_error", "%s", network.Error())
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "not found")
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
