package openai

import "strings"

// DefaultModel is the vendor model used when the caller requests none.
const DefaultModel = "gpt-4o"

// ResolveModel maps a caller-requested model name to a vendor-accepted one.
// The mapping is total and deterministic: every input resolves to exactly one
// model name. Forward-looking or aliased names map to a known model by prefix
// rule; anything else passes through unchanged and is left to the vendor to
// accept or reject.
func ResolveModel(requested string) string {
	name := strings.TrimSpace(requested)
	if name == "" {
		return DefaultModel
	}

	switch {
	case strings.HasPrefix(name, "gpt-5"):
		return DefaultModel
	case strings.HasPrefix(name, "o3"), strings.HasPrefix(name, "o4"):
		// Reasoning-family aliases.
		return DefaultModel
	case strings.Contains(name, "4.1"):
		return DefaultModel
	}

	return name
}
