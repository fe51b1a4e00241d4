package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"chatrelay/internal/apperr"
)

// Image generation defaults. Generation is pinned to one vendor model; the
// caller controls only size, quality, and style.
const (
	imageModel          = "dall-e-3"
	defaultImageSize    = "1024x1024"
	defaultImageQuality = "standard"
	defaultImageStyle   = "natural"
	editImageSize       = "1024x1024"
)

// GenerateImageRequest holds caller-supplied image generation parameters.
// Zero values fall back to the documented defaults.
type GenerateImageRequest struct {
	Prompt  string
	Size    string
	Quality string
	Style   string
}

// GenerateImage requests a single image generation and returns the vendor's
// JSON response unmodified.
func (c *Client) GenerateImage(ctx context.Context, req GenerateImageRequest) (json.RawMessage, error) {
	if req.Size == "" {
		req.Size = defaultImageSize
	}
	if req.Quality == "" {
		req.Quality = defaultImageQuality
	}
	if req.Style == "" {
		req.Style = defaultImageStyle
	}

	body, err := json.Marshal(map[string]any{
		"model":   imageModel,
		"prompt":  req.Prompt,
		"n":       1,
		"size":    req.Size,
		"quality": req.Quality,
		"style":   req.Style,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	return c.doImageRequest(httpReq, "image generation")
}

// ImageFile is an uploaded image payload with its original filename.
type ImageFile struct {
	Name string
	Data []byte
}

// EditImage requests an image edit guided by prompt, with an optional mask,
// and returns the vendor's JSON response unmodified.
func (c *Client) EditImage(ctx context.Context, image ImageFile, prompt string, mask *ImageFile) (json.RawMessage, error) {
	fields := map[string]string{
		"prompt": prompt,
		"n":      "1",
		"size":   editImageSize,
	}
	files := []multipartFile{{field: "image", name: image.Name, data: image.Data}}
	if mask != nil {
		files = append(files, multipartFile{field: "mask", name: mask.Name, data: mask.Data})
	}

	httpReq, err := c.multipartRequest(ctx, "/images/edits", fields, files)
	if err != nil {
		return nil, err
	}
	return c.doImageRequest(httpReq, "image edit")
}

// ImageVariation requests a variation of the given image and returns the
// vendor's JSON response unmodified.
func (c *Client) ImageVariation(ctx context.Context, image ImageFile) (json.RawMessage, error) {
	fields := map[string]string{
		"n":    "1",
		"size": editImageSize,
	}
	files := []multipartFile{{field: "image", name: image.Name, data: image.Data}}

	httpReq, err := c.multipartRequest(ctx, "/images/variations", fields, files)
	if err != nil {
		return nil, err
	}
	return c.doImageRequest(httpReq, "image variation")
}

func (c *Client) doImageRequest(req *http.Request, op string) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperr.Network{Op: op + " request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, vendorError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", op, err)
	}
	return json.RawMessage(body), nil
}

type multipartFile struct {
	field string
	name  string
	data  []byte
}

// multipartRequest builds a multipart/form-data POST with the given string
// fields and file parts.
func (c *Client) multipartRequest(ctx context.Context, path string, fields map[string]string, files []multipartFile) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, val := range fields {
		if val == "" {
			continue
		}
		if err := w.WriteField(key, val); err != nil {
			return nil, fmt.Errorf("writing field %q: %w", key, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		if err != nil {
			return nil, fmt.Errorf("creating file part %q: %w", f.field, err)
		}
		if _, err := part.Write(f.data); err != nil {
			return nil, fmt.Errorf("writing file part %q: %w", f.field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.authorize(req)
	return req, nil
}
