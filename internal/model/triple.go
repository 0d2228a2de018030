package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// InferenceType classifies how a triple was obtained from the text.
type InferenceType string

const (
	// InferenceExplicit marks a triple directly stated in the source text.
	InferenceExplicit InferenceType = "explicit"
	// InferenceContextual marks a triple inferred for connectivity.
	InferenceContextual InferenceType = "contextual"
)

// Valid reports whether the inference type is a member of the closed enum.
func (i InferenceType) Valid() bool {
	return i == InferenceExplicit || i == InferenceContextual
}

// ExtractionMode selects the extraction prompt variant.
type ExtractionMode string

const (
	ModeOpen        ExtractionMode = "open"
	ModeConstrained ExtractionMode = "constrained"
)

// Valid reports whether the mode is a member of the closed enum.
func (m ExtractionMode) Valid() bool {
	return m == ModeOpen || m == ModeConstrained
}

// Triple is a directed (head, relation, tail) assertion with provenance.
// Char offsets are byte offsets into the source text.
type Triple struct {
	Head            string        `json:"head"`
	Relation        string        `json:"relation"`
	Tail            string        `json:"tail"`
	Inference       InferenceType `json:"inference"`
	Justification   string        `json:"justification,omitempty"`
	CharStart       *int          `json:"char_start,omitempty"`
	CharEnd         *int          `json:"char_end,omitempty"`
	ExtractionText  string        `json:"extraction_text,omitempty"`
	IterationSource int           `json:"iteration_source"`
}

// Grounded reports whether the triple carries a source character span.
func (t Triple) Grounded() bool {
	return t.CharStart != nil && t.CharEnd != nil
}

var foldCaser = cases.Fold()

// Normalize case-folds and trims an entity or relation string for identity
// comparison. Display strings keep their original case.
func Normalize(s string) string {
	return foldCaser.String(strings.TrimSpace(s))
}

// TripleKey is the identity of a triple: the case-folded, whitespace-trimmed
// (head, relation, tail). Inference, grounding, and iteration are excluded so
// re-extractions of the same fact dedup against each other.
type TripleKey struct {
	Head     string
	Relation string
	Tail     string
}

// Key returns the triple's identity.
func (t Triple) Key() TripleKey {
	return TripleKey{
		Head:     Normalize(t.Head),
		Relation: Normalize(t.Relation),
		Tail:     Normalize(t.Tail),
	}
}

// StopReason terminates a refinement run. The set is closed.
type StopReason string

const (
	StopConnectivityGoalAchieved  StopReason = "connectivity_goal_achieved"
	StopMaxIterationsReached      StopReason = "max_iterations_reached"
	StopNoNewTriplesFound         StopReason = "no_new_triples_found"
	StopNoConnectivityImprovement StopReason = "no_connectivity_improvement"
	StopLLMFailure                StopReason = "llm_failure"
	StopCancelled                 StopReason = "cancelled"
)
