package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chatrelay/internal/apperr"
)

func handleListConversations(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversations, err := deps.Conversations.List()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
	}
}

type createConversationRequest struct {
	Name  string `json:"name,omitempty"`
	Model string `json:"model,omitempty"`
}

func handleCreateConversation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req createConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Validationf("invalid request body: %v", err))
			return
		}

		model := req.Model
		if model == "" {
			model = deps.DefaultModel
		}
		conv, err := deps.Conversations.Create(req.Name, model)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, conv)
	}
}

type updateConversationRequest struct {
	Name   *string `json:"name,omitempty"`
	Model  *string `json:"model,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

func handleUpdateConversation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req updateConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Validationf("invalid request body: %v", err))
			return
		}
		if req.Name == nil && req.Model == nil && req.Active == nil {
			writeError(w, apperr.Validationf("nothing to update"))
			return
		}

		id := chi.URLParam(r, "id")
		if req.Name != nil {
			if *req.Name == "" {
				writeError(w, apperr.Validationf("name must not be empty"))
				return
			}
			if _, err := deps.Conversations.Rename(id, *req.Name); err != nil {
				writeError(w, err)
				return
			}
		}
		if req.Model != nil {
			if _, err := deps.Conversations.SetModel(id, *req.Model); err != nil {
				writeError(w, err)
				return
			}
		}
		if req.Active != nil && *req.Active {
			if err := deps.Conversations.SetActive(id); err != nil {
				writeError(w, err)
				return
			}
		}

		conv, err := deps.Conversations.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

func handleDeleteConversation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Conversations.Delete(chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListMessages(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, err := deps.Conversations.Messages(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
	}
}

func handleClearMessages(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Conversations.ClearMessages(chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type appendMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func handleAppendMessage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req appendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Validationf("invalid request body: %v", err))
			return
		}
		if req.Role != "user" && req.Role != "assistant" && req.Role != "system" {
			writeError(w, apperr.Validationf("role must be user, assistant, or system"))
			return
		}
		if req.Content == "" {
			writeError(w, apperr.Validationf("content is required"))
			return
		}

		id := chi.URLParam(r, "id")
		if err := deps.Conversations.AppendMessage(id, req.Role, req.Content); err != nil {
			writeError(w, err)
			return
		}
		conv, err := deps.Conversations.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, conv)
	}
}
