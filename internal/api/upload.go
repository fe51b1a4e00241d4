package api

import (
	"io"
	"net/http"

	"chatrelay/internal/apperr"
	"chatrelay/internal/extract"
)

const maxUploadSize = 25 << 20 // 25MB

type uploadResponse struct {
	Text         string `json:"text"`
	FileCategory string `json:"fileCategory"`
	FileName     string `json:"fileName"`
	FileType     string `json:"fileType"`
	FileSize     int    `json:"fileSize"`
	Base64Data   string `json:"base64Data,omitempty"`
	// Embedding is null (not omitted) when no vector was produced, so
	// clients can distinguish "skipped" from "field missing".
	Embedding []float32 `json:"embedding"`
}

func handleUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		defer r.Body.Close()

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, apperr.Validationf("No file uploaded"))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, apperr.Validationf("reading uploaded file: %v", err))
			return
		}

		mimeType := header.Header.Get("Content-Type")
		result, err := extract.Extract(data, header.Filename, mimeType)
		if err != nil {
			writeError(w, err)
			return
		}

		embedding := deps.Embedder.Embed(r.Context(), result.Text, result.Category)

		writeJSON(w, http.StatusOK, uploadResponse{
			Text:         result.Text,
			FileCategory: string(result.Category),
			FileName:     header.Filename,
			FileType:     mimeType,
			FileSize:     len(data),
			Base64Data:   result.Base64Data,
			Embedding:    embedding,
		})
	}
}
