package intent

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"search for the best pizza in town", true},
		{"SEARCH FOR something", true},
		{"please browse that site", true},
		{"find information about quantum computing", true},
		{"what's the latest news on go releases", true},
		{"what is the current exchange rate", true},
		{"any recent papers on this", true},
		{"summarize https://example.com/post", true},
		{"check http://example.com", true},
		{"explain how goroutines work", false},
		{"write me a haiku", false},
		{"", false},
	}

	for _, tt := range tests {
		got := Detect(tt.text)
		if got.TriggerSearch != tt.want {
			t.Errorf("Detect(%q).TriggerSearch = %v, want %v (rationale: %s)",
				tt.text, got.TriggerSearch, tt.want, got.Rationale)
		}
		if got.Rationale == "" {
			t.Errorf("Detect(%q) returned empty rationale", tt.text)
		}
	}
}
