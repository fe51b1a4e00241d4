package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"chatrelay/internal/apperr"
)

const (
	transcribeModel = "whisper-1"
	defaultTTSModel = "tts-1"
	defaultTTSVoice = "alloy"
)

// Transcribe sends an audio payload to the speech-to-text endpoint and
// returns the transcript.
func (c *Client) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	fields := map[string]string{
		"model":           transcribeModel,
		"response_format": "json",
	}
	files := []multipartFile{{field: "file", name: filename, data: audio}}

	req, err := c.multipartRequest(ctx, "/audio/transcriptions", fields, files)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &apperr.Network{Op: "transcription request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", vendorError(resp)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding transcript: %w", err)
	}
	return parsed.Text, nil
}

// Speak synthesizes speech for the given text and returns raw MP3 audio.
// Empty voice and model fall back to the defaults.
func (c *Client) Speak(ctx context.Context, text, voice, model string) ([]byte, error) {
	if voice == "" {
		voice = defaultTTSVoice
	}
	if model == "" {
		model = defaultTTSModel
	}

	body, err := json.Marshal(map[string]string{
		"model":           model,
		"input":           text,
		"voice":           voice,
		"response_format": "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperr.Network{Op: "speech request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, vendorError(resp)
	}

	return io.ReadAll(resp.Body)
}
