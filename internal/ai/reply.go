package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

const (
	fence     = "```"
	jsonFence = "```json"
)

// CleanReply strips a Markdown code fence around the model output.
// A ```json fence wins over a bare one; only the first block is used.
func CleanReply(raw string) string {
	s := raw
	if i := strings.Index(s, jsonFence); i >= 0 {
		s = s[i+len(jsonFence):]
		if j := strings.Index(s, fence); j >= 0 {
			s = s[:j]
		}
	} else if i := strings.Index(s, fence); i >= 0 {
		s = s[i+len(fence):]
		if j := strings.Index(s, fence); j >= 0 {
			s = s[:j]
		}
	}
	return strings.TrimSpace(s)
}

// DecodeReply cleans raw and unmarshals it into v. Near-JSON (trailing
// commas, single quotes, truncated brackets) gets one repair attempt; the
// original parse error is reported if that does not help.
func DecodeReply(raw string, v any) error {
	cleaned := CleanReply(raw)

	err := json.Unmarshal([]byte(cleaned), v)
	if err == nil {
		return nil
	}

	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return fmt.Errorf("decode reply: %w", err)
	}

	repaired, repairErr := jsonrepair.JSONRepair(cleaned)
	if repairErr != nil || !looksStructured(repaired) {
		return fmt.Errorf("decode reply: %w", err)
	}
	if err2 := json.Unmarshal([]byte(repaired), v); err2 != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}

// repair happily turns prose into a JSON string; only accept objects/arrays
func looksStructured(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}
