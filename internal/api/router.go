// Package api implements the HTTP surface of the daemon: vendor proxy
// endpoints (chat, images, audio, upload, search) plus management routes for
// sources, conversations, and user memory.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"chatrelay/internal/conversation"
	"chatrelay/internal/embed"
	"chatrelay/internal/intent"
	"chatrelay/internal/memory"
	"chatrelay/internal/openai"
	"chatrelay/internal/search"
	"chatrelay/internal/source"
)

// Deps holds everything the handlers need.
type Deps struct {
	Vendor        *openai.Client
	Embedder      *embed.Requestor
	Sources       *source.Store
	Conversations *conversation.Manager
	Memory        *memory.Manager
	Search        *search.Service
	Classify      intent.Classifier

	// DefaultModel is used when a request names no model.
	DefaultModel string
	// Token, when non-empty, gates the management routes behind bearer auth.
	// Proxy routes stay open; the daemon binds to loopback.
	Token string
}

// NewHandler returns the complete HTTP handler.
func NewHandler(deps Deps) http.Handler {
	if deps.Classify == nil {
		deps.Classify = intent.Detect
	}

	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Post("/v1/chat/completions", handleChatCompletions(deps))
	r.Post("/v1/images", handleGenerateImage(deps))
	r.Post("/v1/images/edits", handleImageEdit(deps))
	r.Post("/v1/audio", handleAudio(deps))
	r.Post("/v1/upload", handleUpload(deps))
	r.Post("/v1/search", handleSearch(deps))
	r.Post("/v1/intent", handleIntent(deps))

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}

		r.Get("/v1/sources", handleListSources(deps))
		r.Post("/v1/sources", handleAddSource(deps))
		r.Post("/v1/sources/embeddings", handleBackfillEmbeddings(deps))
		r.Get("/v1/sources/selection", handleSelectedSources(deps))
		r.Delete("/v1/sources/{id}", handleRemoveSource(deps))
		r.Put("/v1/sources/{id}/selection", handleSelectSource(deps))
		r.Delete("/v1/sources/{id}/selection", handleDeselectSource(deps))

		r.Get("/v1/conversations", handleListConversations(deps))
		r.Post("/v1/conversations", handleCreateConversation(deps))
		r.Patch("/v1/conversations/{id}", handleUpdateConversation(deps))
		r.Delete("/v1/conversations/{id}", handleDeleteConversation(deps))
		r.Get("/v1/conversations/{id}/messages", handleListMessages(deps))
		r.Post("/v1/conversations/{id}/messages", handleAppendMessage(deps))
		r.Delete("/v1/conversations/{id}/messages", handleClearMessages(deps))

		r.Get("/v1/memory", handleGetMemory(deps))
		r.Patch("/v1/memory", handleUpdateMemory(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
