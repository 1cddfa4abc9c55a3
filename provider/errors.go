package provider

import (
	"strings"

	"github.com/tidwall/gjson"
)

// FormatAPIError extracts the most useful human-readable message out of a
// raw provider error body. Providers return wildly inconsistent error
// shapes (OpenAI nests under error.message, Google under error.status,
// some just return a bare string); this walks the common shapes in
// priority order and falls back to returning raw unchanged when nothing
// parses. Any "HTTP NNN: " prefix preceding the JSON body is preserved.
func FormatAPIError(raw string) string {
	braceIdx := strings.IndexByte(raw, '{')
	if braceIdx == -1 {
		return raw
	}

	prefix := strings.TrimSpace(raw[:braceIdx])
	jsonPart := raw[braceIdx:]

	if !gjson.Valid(jsonPart) {
		return raw
	}

	msg, ok := extractErrorMessage(jsonPart)
	if !ok {
		return raw
	}

	if prefix == "" {
		return msg
	}
	return prefix + " " + msg
}

func extractErrorMessage(jsonBody string) (string, bool) {
	result := gjson.Parse(jsonBody)

	if errObj := result.Get("error"); errObj.Exists() {
		if errObj.IsObject() {
			if msg := errObj.Get("message"); msg.Exists() {
				text := msg.String()
				if code := errObj.Get("code"); code.Exists() {
					return text + " (code: " + code.String() + ")", true
				}
				if status := errObj.Get("status"); status.Exists() {
					return text + " (status: " + status.String() + ")", true
				}
				return text, true
			}
		} else if errObj.Type == gjson.String {
			return errObj.String(), true
		}
	}

	if msg := result.Get("message"); msg.Exists() && msg.Type == gjson.String {
		return msg.String(), true
	}

	return "", false
}
