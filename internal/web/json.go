package web

import (
	"encoding/json"
	"strings"
)

// CommandJSON is the JSON reply to POST /command.
type CommandJSON struct {
	Command   string   `json:"command"`
	Responses []string `json:"responses"`
}

func formatCommandJSON(line string, responses []string) []byte {
	if responses == nil {
		responses = []string{}
	}
	data, _ := json.MarshalIndent(CommandJSON{Command: line, Responses: responses}, "", "  ")
	return data
}

func formatCommandText(responses []string) []byte {
	if len(responses) == 0 {
		return nil
	}
	return []byte(strings.Join(responses, "\n") + "\n")
}

// wantsJSON reports whether the client asked for a JSON reply.
func wantsJSON(accept, format string) bool {
	if format != "" {
		return format == "json"
	}
	return strings.Contains(accept, "application/json")
}
