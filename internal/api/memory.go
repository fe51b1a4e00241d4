package api

import (
	"encoding/json"
	"net/http"

	"chatrelay/internal/apperr"
)

func handleGetMemory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Memory.Get())
	}
}

type updateMemoryRequest struct {
	Facts       []string       `json:"facts,omitempty"`
	Topics      []string       `json:"topics,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

func handleUpdateMemory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req updateMemoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Validationf("invalid request body: %v", err))
			return
		}

		mem, err := deps.Memory.Update(req.Facts, req.Topics, req.Preferences)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, mem)
	}
}
