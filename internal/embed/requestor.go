// Package embed computes optional embedding vectors for extracted text.
// Embedding is an enhancement, never a gate: every skip and failure path
// returns no vector rather than an error, so an upload succeeds whether or
// not its embedding does.
package embed

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"chatrelay/internal/extract"
)

// maxEmbedChars bounds the text sent to the vendor. The cut is a hard byte
// slice, not rune- or word-aware, and may split a multi-byte sequence at the
// boundary. This matches the reference behavior and is kept as a documented
// imprecision.
const maxEmbedChars = 8000

const batchConcurrency = 4

// Vendor is the slice of the vendor client the requestor needs.
type Vendor interface {
	Embeddings(ctx context.Context, model, input string) ([]float32, error)
	Configured() bool
}

// Requestor attaches embedding vectors to extracted text.
type Requestor struct {
	vendor Vendor
	model  string
	logger *slog.Logger
}

// NewRequestor creates a Requestor embedding with the given model.
func NewRequestor(vendor Vendor, model string) *Requestor {
	return &Requestor{
		vendor: vendor,
		model:  model,
		logger: slog.Default(),
	}
}

// Embed attempts to compute an embedding for the given text. It returns nil
// without error when no credential is configured, the category is image, or
// the text is empty — these are silent skips, not failures. Vendor or
// network failures are logged and likewise yield nil.
func (r *Requestor) Embed(ctx context.Context, text string, category extract.Category) []float32 {
	if !r.vendor.Configured() || category == extract.CategoryImage || text == "" {
		return nil
	}

	input := text
	if len(input) > maxEmbedChars {
		input = input[:maxEmbedChars]
	}

	vec, err := r.vendor.Embeddings(ctx, r.model, input)
	if err != nil {
		r.logger.Warn("embedding computation failed", "model", r.model, "error", err)
		return nil
	}
	return vec
}

// EmbedBatch embeds multiple texts concurrently. Each entry follows the same
// skip and degrade rules as Embed; a nil vector in the result marks a skipped
// or failed entry. Returns nil for empty input.
func (r *Requestor) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return nil
	}

	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, text := range texts {
		g.Go(func() error {
			results[i] = r.Embed(gCtx, text, extract.CategoryText)
			return nil
		})
	}

	// Embed never returns an error; Wait is for completion only.
	_ = g.Wait()
	return results
}
