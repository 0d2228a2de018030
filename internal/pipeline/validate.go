package pipeline

import (
	"strings"

	"go.uber.org/zap"

	"github.com/FabioYanezRomero/kg-constructor/internal/model"
	"github.com/FabioYanezRomero/kg-constructor/pkg/llm"
)

// phase identifies which part of the pipeline emitted an item; validation
// rules differ between the two.
type phase int

const (
	phaseInitial phase = iota
	phaseRefinement
)

// validateItems shapes raw LM items into triples. Invalid items are dropped
// with a warning rather than failing the call: models occasionally emit
// partial items, and degraded-but-useful output beats a hard failure. The
// dropped count is surfaced into metadata.
func validateItems(items []llm.RawItem, ph phase, iteration int, text string) ([]model.Triple, int) {
	triples := make([]model.Triple, 0, len(items))
	dropped := 0
	for _, item := range items {
		t, reason := validateItem(item, ph, iteration, text)
		if reason != "" {
			dropped++
			zap.L().Warn("pipeline: dropping invalid triple",
				zap.String("reason", reason),
				zap.String("head", item.Head),
				zap.String("relation", item.Relation),
				zap.String("tail", item.Tail),
				zap.Int("iteration", iteration),
			)
			continue
		}
		triples = append(triples, t)
	}
	return triples, dropped
}

func validateItem(item llm.RawItem, ph phase, iteration int, text string) (model.Triple, string) {
	t := model.Triple{
		Head:            strings.TrimSpace(item.Head),
		Relation:        strings.TrimSpace(item.Relation),
		Tail:            strings.TrimSpace(item.Tail),
		Justification:   strings.TrimSpace(item.Justification),
		ExtractionText:  strings.TrimSpace(item.ExtractionText),
		IterationSource: iteration,
	}

	if t.Head == "" || t.Relation == "" || t.Tail == "" {
		return model.Triple{}, "empty head, relation, or tail"
	}

	switch ph {
	case phaseRefinement:
		// Bridging triples are contextual by definition, whatever the model
		// labeled them, and must say why they were inferred.
		t.Inference = model.InferenceContextual
		if t.Justification == "" {
			return model.Triple{}, "contextual bridging triple without justification"
		}
	default:
		inf := model.InferenceType(strings.ToLower(strings.TrimSpace(item.Inference)))
		if inf == "" {
			inf = model.InferenceExplicit
		}
		if !inf.Valid() {
			return model.Triple{}, "unknown inference label " + string(inf)
		}
		t.Inference = inf
	}

	// Grounding is opportunistic: keep the span only when it is internally
	// consistent with the text, otherwise strip the fields and keep the
	// triple. Offsets are byte offsets; extraction_text is compared after
	// collapsing whitespace runs.
	if item.CharStart != nil && item.CharEnd != nil {
		s, e := *item.CharStart, *item.CharEnd
		if s >= 0 && s <= e && e <= len(text) {
			span := text[s:e]
			if t.ExtractionText == "" || normalizeSpace(span) == normalizeSpace(t.ExtractionText) {
				start, end := s, e
				t.CharStart = &start
				t.CharEnd = &end
			}
		}
	}

	return t, ""
}

// normalizeSpace collapses runs of whitespace, the documented policy for
// comparing extraction_text against the grounded span.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// dedupe removes identity duplicates, first occurrence wins. First-wins
// preserves the earliest char grounding, keeping provenance reproducible.
func dedupe(triples []model.Triple) []model.Triple {
	seen := make(map[model.TripleKey]struct{}, len(triples))
	out := triples[:0:0]
	for _, t := range triples {
		key := t.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
