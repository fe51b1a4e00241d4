// Package composer assembles uploaded attachments and selected sources into
// a single bounded context block, and injects that block into a message list
// as a synthetic leading system message.
package composer

import (
	"fmt"
	"strings"

	"chatrelay/internal/extract"
	"chatrelay/internal/source"
)

// Attachment is a freshly uploaded, not-yet-persisted file pending inclusion
// in the next sent message.
type Attachment struct {
	Name     string           `json:"name"`
	Text     string           `json:"text"`
	Category extract.Category `json:"category"`
}

// selectedSourcesLabel heads the block of persisted sources so a reader of
// the final prompt can trace provenance.
const selectedSourcesLabel = "[Selected Sources]"

// Assemble concatenates attachments (in upload order) and selected sources
// (in store order) into one labeled context block. Returns "" when there is
// nothing to include; an empty block must never become a context message.
// The assembled block is prompt context only — it is never sent for
// embedding.
func Assemble(attachments []Attachment, selected []source.Source) string {
	var blocks []string

	for _, att := range attachments {
		blocks = append(blocks, formatAttachment(att))
	}

	if len(selected) > 0 {
		var sb strings.Builder
		sb.WriteString(selectedSourcesLabel)
		for _, src := range selected {
			fmt.Fprintf(&sb, "\n[Source: %s]\n%s", src.Name, strings.TrimSpace(src.Text))
		}
		blocks = append(blocks, sb.String())
	}

	return strings.Join(blocks, "\n\n")
}

func formatAttachment(att Attachment) string {
	switch {
	case att.Category == extract.CategoryImage:
		return fmt.Sprintf("[Image: %s]", att.Name)
	case strings.TrimSpace(att.Text) == "":
		return fmt.Sprintf("[File: %s] (no content extracted)", att.Name)
	default:
		return fmt.Sprintf("[File: %s]\n%s", att.Name, strings.TrimSpace(att.Text))
	}
}
