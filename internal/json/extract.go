// Package json provides JSON extraction utilities for parsing LLM responses.
//
// Models asked for JSON-only output still frequently wrap the payload in a
// markdown code fence or surround it with prose. This package strips those
// wrappers before parsing.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseObject extracts and parses a JSON object from a model response.
// It handles the common response patterns:
// 1. Pure JSON - parsed directly
// 2. JSON wrapped in a code fence (```json ... ``` or ``` ... ```)
// 3. A JSON object embedded in surrounding text
func ParseObject(response string) (map[string]any, error) {
	jsonStr, err := extract(response)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON object: %w", err)
	}
	return result, nil
}

// Extract returns the JSON portion of a response string without parsing it
// into a concrete type.
func Extract(response string) (string, error) {
	return extract(response)
}

func extract(response string) (string, error) {
	if strings.TrimSpace(response) == "" {
		return "", fmt.Errorf("empty response")
	}

	response = StripFence(response)

	// Try the full response first
	var test any
	if err := json.Unmarshal([]byte(response), &test); err == nil {
		return response, nil
	}

	// Fall back to the first '{' .. last '}' span. Simple brace matching:
	// may fail if braces are unbalanced inside strings.
	start := strings.Index(response, "{")
	if start != -1 {
		end := strings.LastIndex(response, "}")
		if end > start {
			jsonStr := response[start : end+1]
			if err := json.Unmarshal([]byte(jsonStr), &test); err == nil {
				return jsonStr, nil
			}
		}
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("failed to extract valid JSON from response: %q", preview)
}

// StripFence removes a markdown code fence wrapping the response, handling
// an optional language tag after the opening backticks (```json).
func StripFence(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop the language tag, if any, up to the first newline
	if idx := strings.IndexByte(trimmed, '\n'); idx != -1 {
		firstLine := strings.TrimSpace(trimmed[:idx])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{[") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
