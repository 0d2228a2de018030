package llm

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// StripCodeFence removes a surrounding Markdown code fence, with optional
// language tag, from model output.
func StripCodeFence(text string) string {
	stripped := strings.TrimSpace(text)
	if !strings.HasPrefix(stripped, "```") {
		return stripped
	}
	lines := strings.Split(stripped, "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(lines[len(lines)-1], "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ParseItems decodes candidate triples from model output. It accepts a bare
// JSON array, a single object, an object with a "triples" key, or any of
// those embedded in surrounding prose. Unknown keys are ignored.
func ParseItems(text string) ([]RawItem, error) {
	cleaned := StripCodeFence(text)
	if cleaned == "" {
		return nil, nil
	}

	if items, err := decodeItems([]byte(cleaned)); err == nil {
		return items, nil
	}

	// Fall back to the outermost embedded JSON payload.
	if payload := embeddedJSON(cleaned, '[', ']'); payload != "" {
		if items, err := decodeItems([]byte(payload)); err == nil {
			return items, nil
		}
	}
	if payload := embeddedJSON(cleaned, '{', '}'); payload != "" {
		if items, err := decodeItems([]byte(payload)); err == nil {
			return items, nil
		}
	}

	return nil, eris.New("llm: no JSON payload found in model output")
}

func decodeItems(data []byte) ([]RawItem, error) {
	var items []RawItem
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var wrapper struct {
		Triples []RawItem `json:"triples"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && len(wrapper.Triples) > 0 {
		return wrapper.Triples, nil
	}

	var single RawItem
	if err := json.Unmarshal(data, &single); err == nil && (single.Head != "" || single.Tail != "") {
		return []RawItem{single}, nil
	}

	return nil, eris.New("llm: undecodable JSON payload")
}

func embeddedJSON(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// RenderExampleItems serializes few-shot items the way backends show them in
// demonstration turns.
func RenderExampleItems(items []RawItem) string {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}
