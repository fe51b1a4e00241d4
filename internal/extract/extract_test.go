package extract

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestExtractText(t *testing.T) {
	result, err := Extract([]byte("  hello world\n"), "notes.txt", "text/plain")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Category != CategoryText {
		t.Errorf("category = %q, want text", result.Category)
	}
	if result.Text != "hello world" {
		t.Errorf("text = %q, want trimmed content", result.Text)
	}
	if result.Base64Data != "" {
		t.Errorf("text file produced base64 data")
	}
}

func TestExtractMarkdown(t *testing.T) {
	result, err := Extract([]byte("# Title"), "README.md", "application/octet-stream")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Category != CategoryText {
		t.Errorf("category = %q, want text", result.Category)
	}
}

func TestExtractTextInvalidEncoding(t *testing.T) {
	_, err := Extract([]byte{0xff, 0xfe, 0xfd}, "broken.txt", "text/plain")
	var extractErr *Error
	if !errors.As(err, &extractErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if extractErr.Reason != ReasonInvalidEncoding {
		t.Errorf("reason = %q, want %q", extractErr.Reason, ReasonInvalidEncoding)
	}
}

func TestExtractJSON(t *testing.T) {
	result, err := Extract([]byte(`{"a":1,"b":[true,null]}`), "data.json", "application/json")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Category != CategoryStructured {
		t.Errorf("category = %q, want structured", result.Category)
	}
	if !strings.Contains(result.Text, "\"a\": 1") {
		t.Errorf("text not pretty-printed: %q", result.Text)
	}
}

func TestExtractJSONInvalid(t *testing.T) {
	_, err := Extract([]byte(`{"a":`), "data.json", "application/json")
	var extractErr *Error
	if !errors.As(err, &extractErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if extractErr.Reason != ReasonInvalidJSON {
		t.Errorf("reason = %q, want %q", extractErr.Reason, ReasonInvalidJSON)
	}
}

func TestExtractImage(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	result, err := Extract(payload, "photo.png", "image/png")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Category != CategoryImage {
		t.Errorf("category = %q, want image", result.Category)
	}
	if result.Text != "[Image: photo.png]" {
		t.Errorf("text = %q, want placeholder", result.Text)
	}
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
	if result.Base64Data != want {
		t.Errorf("base64Data = %q, want %q", result.Base64Data, want)
	}
}

func TestExtractInvalidPDF(t *testing.T) {
	_, err := Extract([]byte("not a pdf"), "doc.pdf", "application/pdf")
	var extractErr *Error
	if !errors.As(err, &extractErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if extractErr.Reason != ReasonInvalidPDF {
		t.Errorf("reason = %q, want %q", extractErr.Reason, ReasonInvalidPDF)
	}
}

func TestExtractUnsupported(t *testing.T) {
	_, err := Extract([]byte{0x00}, "archive.zip", "application/zip")
	var extractErr *Error
	if !errors.As(err, &extractErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if extractErr.Reason != ReasonUnsupportedType {
		t.Errorf("reason = %q, want %q", extractErr.Reason, ReasonUnsupportedType)
	}
	if !strings.Contains(extractErr.Error(), "application/zip") {
		t.Errorf("message should name the MIME type: %q", extractErr.Error())
	}
}

// Extension wins over declared MIME type: a .pdf named file is treated as a
// PDF even if the client declares text/plain.
func TestExtractExtensionPrecedence(t *testing.T) {
	_, err := Extract([]byte("plain text"), "doc.pdf", "text/plain")
	var extractErr *Error
	if !errors.As(err, &extractErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if extractErr.Reason != ReasonInvalidPDF {
		t.Errorf("reason = %q, want pdf dispatch", extractErr.Reason)
	}
}
