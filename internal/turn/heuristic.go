package turn

import (
	"fmt"
	"strings"
)

const rememberImportance = 0.8

// shouldRemember reports whether a user message warrants a long-term memory
// write. The check is plain lowercase substring matching against configured
// trigger phrases; the triggers are configuration, not a model judgment.
func shouldRemember(triggers []string, userText string) bool {
	text := strings.ToLower(userText)
	for _, trigger := range triggers {
		if trigger != "" && strings.Contains(text, trigger) {
			return true
		}
	}
	return false
}

// summarizeExchange derives the memory text written back after a remembered
// turn. The assistant side is truncated so one verbose reply cannot dominate
// future recall.
func summarizeExchange(userText, assistantText string) string {
	const maxAssistant = 200
	assistantText = strings.TrimSpace(assistantText)
	if len(assistantText) > maxAssistant {
		assistantText = assistantText[:maxAssistant] + "..."
	}
	return fmt.Sprintf("User said: %s (assistant replied: %s)", strings.TrimSpace(userText), assistantText)
}
