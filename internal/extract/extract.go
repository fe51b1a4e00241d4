// Package extract converts uploaded files into plain text plus a category
// tag. Dispatch is by extension and declared MIME type; extraction never
// truncates — any character budget is applied downstream.
package extract

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Category classifies an uploaded file by how its content was handled.
type Category string

const (
	CategoryDocument   Category = "document"
	CategoryImage      Category = "image"
	CategoryText       Category = "text"
	CategoryStructured Category = "structured"
	CategoryUnknown    Category = "unknown"
)

// Extraction failure reasons.
const (
	ReasonInvalidPDF      = "invalid-pdf"
	ReasonInvalidEncoding = "invalid-encoding"
	ReasonInvalidJSON     = "invalid-json"
	ReasonUnsupportedType = "unsupported-type"
)

// Error is a user-correctable extraction failure.
type Error struct {
	Reason   string
	MIMEType string
	Err      error
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonInvalidPDF:
		return "failed to parse PDF; ensure the file is a valid PDF"
	case ReasonInvalidEncoding:
		return "failed to read text file; ensure the file is valid UTF-8 text"
	case ReasonInvalidJSON:
		return "failed to parse JSON file; ensure the file contains valid JSON"
	case ReasonUnsupportedType:
		return fmt.Sprintf("unsupported file type: %s; supported types: PDF, images, text files, JSON", e.MIMEType)
	}
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the outcome of a successful extraction.
type Result struct {
	Text     string
	Category Category
	// Base64Data is a data URL carrying the original payload; set for
	// images only, so vision-capable callers can still use the file.
	Base64Data string
}

// Extract converts a file into plain text and a category. It is pure and
// stateless per call; failures are *Error values.
func Extract(data []byte, name, mimeType string) (Result, error) {
	lower := strings.ToLower(name)

	switch {
	case strings.HasSuffix(lower, ".pdf"):
		text, err := pdfText(data)
		if err != nil {
			return Result{}, &Error{Reason: ReasonInvalidPDF, MIMEType: mimeType, Err: err}
		}
		return Result{Text: text, Category: CategoryDocument}, nil

	case strings.HasPrefix(mimeType, "image/"):
		// No text extraction for images; the placeholder keeps provenance
		// readable in an assembled prompt.
		return Result{
			Text:       fmt.Sprintf("[Image: %s]", name),
			Category:   CategoryImage,
			Base64Data: fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)),
		}, nil

	case strings.HasSuffix(lower, ".txt"), strings.HasSuffix(lower, ".md"), mimeType == "text/plain":
		if !utf8.Valid(data) {
			return Result{}, &Error{Reason: ReasonInvalidEncoding, MIMEType: mimeType}
		}
		return Result{Text: strings.TrimSpace(string(data)), Category: CategoryText}, nil

	case strings.HasSuffix(lower, ".json"):
		var parsed any
		if err := json.Unmarshal(data, &parsed); err != nil {
			return Result{}, &Error{Reason: ReasonInvalidJSON, MIMEType: mimeType, Err: err}
		}
		pretty, err := json.MarshalIndent(parsed, "", "  ")
		if err != nil {
			return Result{}, &Error{Reason: ReasonInvalidJSON, MIMEType: mimeType, Err: err}
		}
		return Result{Text: string(pretty), Category: CategoryStructured}, nil
	}

	return Result{}, &Error{Reason: ReasonUnsupportedType, MIMEType: mimeType}
}

// pdfText extracts plain text from a PDF payload. The parser panics on some
// malformed inputs, so the recover turns those into ordinary errors.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}
