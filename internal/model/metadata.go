package model

// IterationStatus marks the outcome of a single refinement iteration.
type IterationStatus string

const (
	IterationSuccess IterationStatus = "success"
	IterationFailed  IterationStatus = "failed"
)

// IterationRecord is one entry of the refinement trace.
type IterationRecord struct {
	Iteration              int             `json:"iteration"`
	NewTriples             int             `json:"new_triples"`
	TotalTriples           int             `json:"total_triples"`
	DisconnectedComponents int             `json:"disconnected_components"`
	Status                 IterationStatus `json:"status"`
	EarlyStopReason        StopReason      `json:"early_stop_reason,omitempty"`
	Error                  string          `json:"error,omitempty"`
}

// RefinementTrace is the audit record produced by the connectivity refiner.
type RefinementTrace struct {
	Iterations        []IterationRecord `json:"iterations"`
	IterationsUsed    int               `json:"iterations_used"`
	StopReason        StopReason        `json:"stop_reason"`
	PartialResult     bool              `json:"partial_result"`
	InitialComponents int               `json:"initial_components"`
	FinalComponents   int               `json:"final_components"`
	DroppedItems      int               `json:"dropped_items"`
}

// ExtractionMethod identifies the overall extraction strategy.
type ExtractionMethod string

const (
	MethodIterative ExtractionMethod = "iterative_connectivity_aware"
	MethodSimple    ExtractionMethod = "simple_one_step"
)

// InputStats describes the source text.
type InputStats struct {
	TextLengthChars int `json:"text_length_chars"`
	TextLengthWords int `json:"text_length_words"`
}

// ResultCounts tallies the returned triples by provenance.
type ResultCounts struct {
	TotalTriples      int     `json:"total_triples"`
	InitialTriples    int     `json:"initial_triples"`
	BridgingTriples   int     `json:"bridging_triples"`
	Explicit          int     `json:"explicit"`
	Contextual        int     `json:"contextual"`
	SourceGrounded    int     `json:"source_grounded"`
	InitialPct        float64 `json:"initial_pct"`
	BridgingPct       float64 `json:"bridging_pct"`
	ExplicitPct       float64 `json:"explicit_pct"`
	ContextualPct     float64 `json:"contextual_pct"`
	SourceGroundedPct float64 `json:"source_grounded_pct"`
	DroppedItems      int     `json:"dropped_items"`
}

// GraphStats summarizes the graph induced by the final triple set.
type GraphStats struct {
	Nodes                  int     `json:"nodes"`
	Edges                  int     `json:"edges"`
	DisconnectedComponents int     `json:"disconnected_components"`
	IsConnected            bool    `json:"is_connected"`
	AvgDegree              float64 `json:"avg_degree"`
}

// EntityStats reports how many entities literally appear in the source text.
// Membership uses case-folded substring containment.
type EntityStats struct {
	TotalUnique     int     `json:"total_unique"`
	AppearingInText int     `json:"appearing_in_text"`
	InferredOnly    int     `json:"inferred_only"`
	AppearingPct    float64 `json:"appearing_pct"`
	InferredPct     float64 `json:"inferred_pct"`
}

// RelationStats reports relation label usage.
type RelationStats struct {
	UniqueRelations int            `json:"unique_relations"`
	Top             map[string]int `json:"top_k"`
}

// InitialExtractionStats records the state after the initial LM call.
type InitialExtractionStats struct {
	Triples                int `json:"triples"`
	DisconnectedComponents int `json:"disconnected_components"`
}

// FinalState records the state when refinement stopped.
type FinalState struct {
	TotalTriples            int        `json:"total_triples"`
	DisconnectedComponents  int        `json:"disconnected_components"`
	IsConnected             bool       `json:"is_connected"`
	IterationsUsed          int        `json:"iterations_used"`
	StopReason              StopReason `json:"stop_reason"`
	ConnectivityImprovement int        `json:"connectivity_improvement"`
}

// IterativeStats is present only for the iterative method.
type IterativeStats struct {
	MaxDisconnected      int                    `json:"max_disconnected"`
	MaxIterations        int                    `json:"max_iterations"`
	InitialExtraction    InitialExtractionStats `json:"initial_extraction"`
	RefinementIterations []IterationRecord      `json:"refinement_iterations"`
	FinalState           FinalState             `json:"final_state"`
	TotalLLMCalls        int                    `json:"total_llm_calls"`
}

// PromptIdentifiers names the prompt resources used for a run.
type PromptIdentifiers struct {
	Extraction string `json:"extraction"`
	Bridging   string `json:"bridging"`
}

// ExtractionMetadata is the per-record audit record.
type ExtractionMetadata struct {
	RecordID            string            `json:"record_id"`
	ExtractionMethod    ExtractionMethod  `json:"extraction_method"`
	ModelIdentifier     string            `json:"model_identifier"`
	Temperature         float64           `json:"temperature"`
	Timestamp           string            `json:"timestamp"`
	DomainID            string            `json:"domain_id"`
	Mode                ExtractionMode    `json:"mode"`
	PromptIdentifiers   PromptIdentifiers `json:"prompt_identifiers"`
	Input               InputStats        `json:"input"`
	ExtractionResults   ResultCounts      `json:"extraction_results"`
	GraphStructure      GraphStats        `json:"graph_structure"`
	EntityAnalysis      EntityStats       `json:"entity_analysis"`
	RelationAnalysis    RelationStats     `json:"relation_analysis"`
	IterativeExtraction *IterativeStats   `json:"iterative_extraction,omitempty"`
	PartialResult       bool              `json:"partial_result"`
	EmptyInput          bool              `json:"empty_input,omitempty"`
}
