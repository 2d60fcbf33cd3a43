package turn

import (
	"strings"
	"testing"
)

func TestShouldRememberMatchesConfiguredTriggers(t *testing.T) {
	triggers := []string{"remember that", "my name is"}

	cases := []struct {
		text string
		want bool
	}{
		{"Please remember that I hate cilantro", true},
		{"REMEMBER THAT i commute by bike", true},
		{"my name is Sam", true},
		{"what's the capital of France?", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := shouldRemember(triggers, tc.text); got != tc.want {
			t.Fatalf("shouldRemember(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestShouldRememberWithNoTriggers(t *testing.T) {
	if shouldRemember(nil, "remember that everything") {
		t.Fatalf("no configured triggers should never match")
	}
}

func TestSummarizeExchangeTruncatesAssistant(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := summarizeExchange("my name is Sam", long)
	if !strings.Contains(got, "my name is Sam") {
		t.Fatalf("summary %q should contain the user text", got)
	}
	if len(got) > 300 {
		t.Fatalf("summary length = %d, want assistant side truncated", len(got))
	}
	if !strings.HasSuffix(got, "...)") {
		t.Fatalf("summary %q should mark truncation", got)
	}
}
