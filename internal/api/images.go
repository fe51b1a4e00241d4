package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"chatrelay/internal/apperr"
	"chatrelay/internal/openai"
)

type generateImageRequest struct {
	Prompt  string `json:"prompt"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
	Style   string `json:"style,omitempty"`
}

func handleGenerateImage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req generateImageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Validationf("invalid request body: %v", err))
			return
		}
		if req.Prompt == "" {
			writeError(w, apperr.Validationf("prompt is required"))
			return
		}

		if !deps.Vendor.Configured() {
			writeError(w, apperr.MissingKey())
			return
		}

		resp, err := deps.Vendor.GenerateImage(r.Context(), openai.GenerateImageRequest{
			Prompt:  req.Prompt,
			Size:    req.Size,
			Quality: req.Quality,
			Style:   req.Style,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(resp)
	}
}

func handleImageEdit(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		defer r.Body.Close()

		image, err := formImage(r, "image")
		if err != nil {
			writeError(w, err)
			return
		}
		if image == nil {
			writeError(w, apperr.Validationf("image is required"))
			return
		}

		operation := r.FormValue("operation")
		if operation == "" {
			operation = "edit"
		}

		if !deps.Vendor.Configured() {
			writeError(w, apperr.MissingKey())
			return
		}

		var resp json.RawMessage
		switch operation {
		case "edit":
			prompt := r.FormValue("prompt")
			if prompt == "" {
				writeError(w, apperr.Validationf("prompt is required for edits"))
				return
			}
			mask, err := formImage(r, "mask")
			if err != nil {
				writeError(w, err)
				return
			}
			resp, err = deps.Vendor.EditImage(r.Context(), *image, prompt, mask)
			if err != nil {
				writeError(w, err)
				return
			}
		case "variation":
			resp, err = deps.Vendor.ImageVariation(r.Context(), *image)
			if err != nil {
				writeError(w, err)
				return
			}
		default:
			writeError(w, apperr.Validationf(`Invalid operation. Use "edit" or "variation"`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(resp)
	}
}

// formImage reads an optional multipart file field. A missing field returns
// (nil, nil) so the caller decides whether it was required.
func formImage(r *http.Request, field string) (*openai.ImageFile, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperr.Validationf("reading %s: %v", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperr.Validationf("reading %s: %v", field, err)
	}
	return &openai.ImageFile{Name: header.Filename, Data: data}, nil
}
