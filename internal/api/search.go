package api

import (
	"encoding/json"
	"net/http"

	"chatrelay/internal/apperr"
)

type searchRequest struct {
	Query string   `json:"query,omitempty"`
	URLs  []string `json:"urls,omitempty"`
}

func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Validationf("invalid request body: %v", err))
			return
		}
		if req.Query == "" && len(req.URLs) == 0 {
			writeError(w, apperr.Validationf("Missing query or URLs"))
			return
		}

		result, err := deps.Search.Browse(r.Context(), req.Query, req.URLs)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type intentRequest struct {
	Text string `json:"text"`
}

func handleIntent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req intentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Validationf("invalid request body: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, deps.Classify(req.Text))
	}
}
