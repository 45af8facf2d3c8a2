package chat

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// The system prompt asks the model to answer with a small JSON envelope so
// that replies survive models that wrap output in prose or code fences.
type replyEnvelope struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ErrEmptyReply is returned when the model produced no usable text.
var ErrEmptyReply = errors.New("empty model reply")

// DecodeReply extracts the reply text from raw model output. Output that
// parses as a {"type":"reply","text":...} envelope (strictly, or after JSON
// repair) yields the envelope text; anything else is returned verbatim.
func DecodeReply(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", ErrEmptyReply
	}

	obj, ok := extractJSONObject(trimmed)
	if !ok {
		return trimmed, nil
	}

	env, err := parseEnvelope(obj)
	if err != nil {
		// Braces in ordinary prose; not an envelope.
		return trimmed, nil
	}
	if !strings.EqualFold(env.Type, "reply") {
		return trimmed, nil
	}
	text := strings.TrimSpace(env.Text)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func parseEnvelope(obj string) (replyEnvelope, error) {
	var env replyEnvelope
	if err := json.Unmarshal([]byte(obj), &env); err == nil {
		return env, nil
	}
	repaired, err := jsonrepair.JSONRepair(obj)
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal([]byte(repaired), &env); err != nil {
		return env, err
	}
	return env, nil
}

// extractJSONObject returns the first balanced top-level JSON object in s,
// ignoring braces inside string literals.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}
	inString := false
	escapeNext := false
	depth := 0
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			if escapeNext {
				escapeNext = false
				continue
			}
			if ch == '\\' {
				escapeNext = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
