package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
)

func TestTranscribe(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q, want /audio/transcriptions", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q, want whisper-1", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "clip.mp3" {
			t.Errorf("filename = %q, want clip.mp3", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "fake-audio" {
			t.Errorf("file content = %q", data)
		}
		fmt.Fprint(w, `{"text":"hello from audio"}`)
	})

	text, err := c.Transcribe(context.Background(), "clip.mp3", []byte("fake-audio"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello from audio" {
		t.Errorf("text = %q", text)
	}
}

func TestSpeakDefaults(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("path = %q, want /audio/speech", r.URL.Path)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["voice"] != "alloy" {
			t.Errorf("voice = %q, want default alloy", req["voice"])
		}
		if req["model"] != "tts-1" {
			t.Errorf("model = %q, want default tts-1", req["model"])
		}
		if req["input"] != "say this" {
			t.Errorf("input = %q", req["input"])
		}
		w.Write([]byte("mp3-bytes"))
	})

	audio, err := c.Speak(context.Background(), "say this", "", "")
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Errorf("audio = %q", audio)
	}
}

func TestSpeakExplicitVoice(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["voice"] != "nova" {
			t.Errorf("voice = %q, want nova", req["voice"])
		}
		w.Write([]byte("x"))
	})

	if _, err := c.Speak(context.Background(), "hi", "nova", ""); err != nil {
		t.Fatalf("Speak: %v", err)
	}
}
