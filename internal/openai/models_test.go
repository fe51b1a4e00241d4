package openai

import "testing"

func TestResolveModel(t *testing.T) {
	tests := []struct {
		requested string
		want      string
	}{
		{"", "gpt-4o"},
		{"   ", "gpt-4o"},
		{"gpt-5", "gpt-4o"},
		{"gpt-5-turbo", "gpt-4o"},
		{"o3", "gpt-4o"},
		{"o3-mini", "gpt-4o"},
		{"o4-mini", "gpt-4o"},
		{"gpt-4.1", "gpt-4o"},
		{"gpt-4.1-nano", "gpt-4o"},
		{"gpt-4o", "gpt-4o"},
		{"gpt-4-turbo", "gpt-4-turbo"},
		{"gpt-3.5-turbo", "gpt-3.5-turbo"},
		{"claude-3", "claude-3"},
	}

	for _, tt := range tests {
		if got := ResolveModel(tt.requested); got != tt.want {
			t.Errorf("ResolveModel(%q) = %q, want %q", tt.requested, got, tt.want)
		}
	}
}

func TestResolveModelDeterministic(t *testing.T) {
	for _, name := range []string{"", "gpt-5-preview", "custom-model"} {
		first := ResolveModel(name)
		for i := 0; i < 3; i++ {
			if got := ResolveModel(name); got != first {
				t.Fatalf("ResolveModel(%q) not deterministic: %q then %q", name, first, got)
			}
		}
	}
}
