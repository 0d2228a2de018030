// Package llm defines the language-model client contract consumed by the
// extraction pipeline: a grounded extraction operation and an ungrounded
// JSON generation operation, with a single error category. Backends live in
// subpackages and never leak their SDK types through this interface.
package llm

import "context"

// RawItem is one loosely typed candidate triple returned by a backend.
// Unknown keys in the model output are ignored during decoding; validation
// and provenance tagging happen in the pipeline, not here.
type RawItem struct {
	Head           string `json:"head"`
	Relation       string `json:"relation"`
	Tail           string `json:"tail"`
	Inference      string `json:"inference,omitempty"`
	Justification  string `json:"justification,omitempty"`
	CharStart      *int   `json:"char_start,omitempty"`
	CharEnd        *int   `json:"char_end,omitempty"`
	ExtractionText string `json:"extraction_text,omitempty"`
}

// FewShotExample is a source span paired with the items a model should
// produce for it. Rendered by backends as demonstration turns.
type FewShotExample struct {
	Text  string
	Items []RawItem
}

// Schema optionally constrains entity and relation labels.
type Schema struct {
	EntityTypes   []string
	RelationTypes []string
}

// ExtractRequest drives the grounded extraction operation.
type ExtractRequest struct {
	Text        string
	Prompt      string
	Examples    []FewShotExample
	Schema      *Schema
	Temperature float64
	MaxTokens   int
}

// GenerateRequest drives the ungrounded JSON generation operation. The
// prompt is fully rendered by the caller.
type GenerateRequest struct {
	Prompt      string
	Schema      *Schema
	Temperature float64
	MaxTokens   int
}

// Client is the capability set the pipeline depends on. All failures are
// surfaced as *ClientError.
type Client interface {
	// ExtractGrounded extracts candidate triples from text. Items may carry
	// char_start/char_end source grounding when the backend supports it.
	ExtractGrounded(ctx context.Context, req ExtractRequest) ([]RawItem, error)

	// GenerateJSON produces candidate triples from a fully rendered prompt.
	// Grounding is not required and is usually absent.
	GenerateJSON(ctx context.Context, req GenerateRequest) ([]RawItem, error)

	// ModelName returns the backend's model identifier for audit metadata.
	ModelName() string
}
