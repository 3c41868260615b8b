package claude

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cliResult is the object printed by --output-format json.
type cliResult struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	IsError   bool   `json:"is_error"`
	Result    string `json:"result"`
	Content   string `json:"content"`
	SessionID string `json:"session_id"`
}

// ParseResponse extracts the answer text and session id from CLI output.
// Output with leading noise is tolerated; output without a JSON object
// yields empty values. An error is returned when the CLI reports one.
func ParseResponse(raw []byte) (content, sessionID string, err error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", "", nil
	}

	var res cliResult
	if jsonErr := json.Unmarshal([]byte(text), &res); jsonErr != nil {
		extracted := ExtractJSON(text)
		if extracted == "" || json.Unmarshal([]byte(extracted), &res) != nil {
			return "", "", nil
		}
	}

	content = res.Result
	if content == "" {
		content = res.Content
	}
	if res.IsError {
		return content, res.SessionID, fmt.Errorf("claude reported an error (%s): %s", res.Subtype, truncate(content, 200))
	}
	return content, res.SessionID, nil
}

// ExtractJSON returns the substring from the first '{' to the last '}',
// or "" when there is none.
func ExtractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return ""
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
