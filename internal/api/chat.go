package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"chatrelay/internal/apperr"
	"chatrelay/internal/composer"
	"chatrelay/internal/openai"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Chat defaults forwarded to the vendor on every completion.
const (
	chatTemperature = 0.7
	chatMaxTokens   = 2048
)

type chatRequest struct {
	Messages json.RawMessage `json:"messages"`
	Model    string          `json:"model"`
	Context  string          `json:"context,omitempty"`
	// Stream defaults to true when omitted; the UI always streams.
	Stream *bool `json:"stream,omitempty"`
}

func handleChatCompletions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Validationf("invalid request body: %v", err))
			return
		}

		if !hasMessages(req.Messages) {
			writeError(w, apperr.Validationf("messages is required and must not be empty"))
			return
		}

		if !deps.Vendor.Configured() {
			writeError(w, apperr.MissingKey())
			return
		}

		requested := req.Model
		if requested == "" {
			requested = deps.DefaultModel
		}
		model := openai.ResolveModel(requested)
		if model != requested {
			slog.Debug("mapped requested model", "requested", requested, "model", model)
		}

		messages, err := composer.Compose(req.Messages, chatContext(deps, req.Context))
		if err != nil {
			writeError(w, apperr.Validationf("invalid messages: %v", err))
			return
		}

		stream := true
		if req.Stream != nil {
			stream = *req.Stream
		}

		rc, err := deps.Vendor.Chat(r.Context(), openai.ChatRequest{
			Model:       model,
			Messages:    messages,
			Temperature: chatTemperature,
			MaxTokens:   chatMaxTokens,
			Stream:      stream,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		defer rc.Close()

		if stream {
			streamResponse(w, rc)
			return
		}

		body, err := io.ReadAll(rc)
		if err != nil {
			writeError(w, &apperr.Network{Op: "reading upstream response", Err: err})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}

// chatContext appends the server-held source selection to the caller's
// context block. The caller's block (attachments assembled client-side)
// comes first, matching the assembler's own ordering. A failed selection
// read degrades to the supplied context alone rather than failing the chat.
func chatContext(deps Deps, supplied string) string {
	selected, err := deps.Sources.Selected()
	if err != nil {
		slog.Warn("reading selected sources", "error", err)
		return supplied
	}
	assembled := composer.Assemble(nil, selected)
	switch {
	case assembled == "":
		return supplied
	case supplied == "":
		return assembled
	default:
		return supplied + "\n\n" + assembled
	}
}

// streamResponse relays upstream SSE chunks in arrival order, flushing each
// so the client sees tokens as they land. A closed client connection stops
// the loop; the deferred body close releases the upstream connection.
func streamResponse(w http.ResponseWriter, rc io.Reader) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	reader := bufio.NewReader(rc)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if _, werr := w.Write(line); werr != nil {
				// Client went away; stop relaying.
				return
			}
			flusher.Flush()
		}
		if err != nil {
			if err != io.EOF {
				slog.Error("upstream stream read error", "error", err)
				errPayload, marshalErr := json.Marshal(map[string]any{
					"error": map[string]any{
						"message": "upstream read error",
						"type":    "server_error",
					},
				})
				if marshalErr == nil {
					fmt.Fprintf(w, "data: %s\n\n", errPayload)
					flusher.Flush()
				}
			}
			return
		}
	}
}

func hasMessages(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return false
	}
	return len(arr) > 0
}
