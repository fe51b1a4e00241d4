package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chatrelay/internal/apperr"
	"chatrelay/internal/extract"
	"chatrelay/internal/source"
)

func handleListSources(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := deps.Sources.List()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
	}
}

type addSourceRequest struct {
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

func handleAddSource(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		defer r.Body.Close()

		var req addSourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Validationf("invalid request body: %v", err))
			return
		}
		if req.Name == "" {
			writeError(w, apperr.Validationf("name is required"))
			return
		}
		if req.Text == "" {
			writeError(w, apperr.Validationf("text is required"))
			return
		}

		embedding := req.Embedding
		if embedding == nil {
			embedding = deps.Embedder.Embed(r.Context(), req.Text, extract.CategoryText)
		}

		src, err := deps.Sources.Add(source.Source{
			Name:      req.Name,
			Text:      req.Text,
			Embedding: embedding,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, src)
	}
}

// handleBackfillEmbeddings computes vectors for sources stored without one,
// batching the vendor calls. Sources that already carry an embedding are
// never recomputed.
func handleBackfillEmbeddings(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Vendor.Configured() {
			writeError(w, apperr.MissingKey())
			return
		}

		sources, err := deps.Sources.List()
		if err != nil {
			writeError(w, err)
			return
		}

		var missing []source.Source
		for _, src := range sources {
			if src.Embedding == nil {
				missing = append(missing, src)
			}
		}

		texts := make([]string, len(missing))
		for i, src := range missing {
			texts[i] = src.Text
		}

		embedded := 0
		for i, vec := range deps.Embedder.EmbedBatch(r.Context(), texts) {
			if vec == nil {
				continue
			}
			if err := deps.Sources.SetEmbedding(missing[i].ID, vec); err != nil {
				writeError(w, err)
				return
			}
			embedded++
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"embedded": embedded,
			"skipped":  len(sources) - embedded,
		})
	}
}

func handleRemoveSource(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Sources.Remove(chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleSelectedSources(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		selected, err := deps.Sources.Selected()
		if err != nil {
			writeError(w, err)
			return
		}
		ids, err := deps.Sources.SelectedIDs()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sources":     selected,
			"selectedIds": ids,
		})
	}
}

func handleSelectSource(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Sources.Select(chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleDeselectSource(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Sources.Deselect(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}
