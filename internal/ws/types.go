package ws

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Frames pushed to listeners are bare command strings. Listeners may send
// commands back either bare or wrapped in JSON.
type InboundMessage struct {
	Cmd string `json:"cmd"`
}

// CommandFromFrame extracts the command text from an inbound frame. A frame
// that looks like JSON but has no cmd yields "".
func CommandFromFrame(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var msg InboundMessage
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return ""
		}
		return strings.TrimSpace(msg.Cmd)
	}
	return string(trimmed)
}
