package api

import (
	"errors"
	"io"
	"net/http"

	"chatrelay/internal/apperr"
)

func handleAudio(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		defer r.Body.Close()

		operation := r.FormValue("operation")

		if !deps.Vendor.Configured() {
			writeError(w, apperr.MissingKey())
			return
		}

		switch operation {
		case "transcribe":
			handleTranscribe(deps, w, r)
		case "speak":
			handleSpeak(deps, w, r)
		default:
			writeError(w, apperr.Validationf(`Invalid operation. Use "transcribe" or "speak"`))
		}
	}
}

func handleTranscribe(deps Deps, w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeError(w, apperr.Validationf("audio file is required"))
			return
		}
		writeError(w, apperr.Validationf("reading audio: %v", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, apperr.Validationf("reading audio: %v", err))
		return
	}

	text, err := deps.Vendor.Transcribe(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func handleSpeak(deps Deps, w http.ResponseWriter, r *http.Request) {
	text := r.FormValue("text")
	if text == "" {
		writeError(w, apperr.Validationf("text is required"))
		return
	}

	audio, err := deps.Vendor.Speak(r.Context(), text, r.FormValue("voice"), r.FormValue("model"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", `attachment; filename="speech.mp3"`)
	w.Write(audio)
}
