package composer

import (
	"encoding/json"
	"fmt"
	"strings"
)

const contextPreamble = "The following context may be useful:\n"

// Compose injects a context block into a raw message list as a single
// synthetic leading system message. The block is never merged into an
// existing message, and an empty block leaves the messages untouched.
// Message fields beyond role/content are preserved through raw JSON.
func Compose(messages json.RawMessage, context string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(context)
	if trimmed == "" {
		return messages, nil
	}

	msgs, err := parseMessages(messages)
	if err != nil {
		return nil, fmt.Errorf("parsing messages: %w", err)
	}

	sys := makeSystemMessage(contextPreamble + trimmed)
	msgs = append([]rawMsg{sys}, msgs...)

	out, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("marshaling messages: %w", err)
	}
	return out, nil
}

// rawMsg preserves all JSON fields on a message while allowing role/content access.
type rawMsg map[string]json.RawMessage

func parseMessages(data json.RawMessage) ([]rawMsg, error) {
	var msgs []rawMsg
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func makeSystemMessage(content string) rawMsg {
	m := make(rawMsg)
	m["role"], _ = json.Marshal("system")
	m["content"], _ = json.Marshal(content)
	return m
}
