package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/FabioYanezRomero/kg-constructor/internal/domain"
	"github.com/FabioYanezRomero/kg-constructor/internal/graph"
	"github.com/FabioYanezRomero/kg-constructor/internal/model"
)

const topRelations = 10

// AssembleMetadata produces the per-record audit record from the final
// triple set and the refinement trace.
func AssembleMetadata(record model.Record, initialCount int, triples []model.Triple, trace *model.RefinementTrace, opts Options, bundle *domain.Bundle, modelName string) model.ExtractionMetadata {
	method := model.MethodIterative
	if opts.MaxIterations <= 0 {
		method = model.MethodSimple
	}

	g := graph.Build(triples)
	comps := g.Components()

	meta := model.ExtractionMetadata{
		RecordID:         record.ID,
		ExtractionMethod: method,
		ModelIdentifier:  modelName,
		Temperature:      opts.Temperature,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		DomainID:         opts.Domain,
		Mode:             opts.Mode,
		PromptIdentifiers: model.PromptIdentifiers{
			Extraction: bundle.PromptID(opts.Mode),
			Bridging:   bundle.BridgingPromptID(),
		},
		Input: model.InputStats{
			TextLengthChars: len(record.Text),
			TextLengthWords: len(strings.Fields(record.Text)),
		},
		ExtractionResults: countResults(triples, trace.DroppedItems),
		GraphStructure: model.GraphStats{
			Nodes:                  g.NumNodes(),
			Edges:                  g.NumEdges(),
			DisconnectedComponents: len(comps),
			IsConnected:            len(comps) == 1,
			AvgDegree:              g.AvgDegree(),
		},
		EntityAnalysis:   analyzeEntities(triples, record.Text),
		RelationAnalysis: analyzeRelations(triples),
		PartialResult:    trace.PartialResult,
	}

	if method == model.MethodIterative {
		meta.IterativeExtraction = &model.IterativeStats{
			MaxDisconnected: opts.MaxDisconnected,
			MaxIterations:   opts.MaxIterations,
			InitialExtraction: model.InitialExtractionStats{
				Triples:                initialCount,
				DisconnectedComponents: trace.InitialComponents,
			},
			RefinementIterations: trace.Iterations,
			FinalState: model.FinalState{
				TotalTriples:           len(triples),
				DisconnectedComponents: trace.FinalComponents,
				IsConnected:            trace.FinalComponents == 1,
				IterationsUsed:         trace.IterationsUsed,
				StopReason:             trace.StopReason,
				// May be zero or negative; preserved unclamped.
				ConnectivityImprovement: trace.InitialComponents - trace.FinalComponents,
			},
			TotalLLMCalls: 1 + trace.IterationsUsed,
		}
	}

	return meta
}

func emptyInputMetadata(record model.Record, opts Options, modelName string) model.ExtractionMetadata {
	method := model.MethodIterative
	if opts.MaxIterations <= 0 {
		method = model.MethodSimple
	}
	return model.ExtractionMetadata{
		RecordID:         record.ID,
		ExtractionMethod: method,
		ModelIdentifier:  modelName,
		Temperature:      opts.Temperature,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		DomainID:         opts.Domain,
		Mode:             opts.Mode,
		RelationAnalysis: model.RelationStats{Top: map[string]int{}},
		EmptyInput:       true,
	}
}

func countResults(triples []model.Triple, dropped int) model.ResultCounts {
	c := model.ResultCounts{TotalTriples: len(triples), DroppedItems: dropped}
	for _, t := range triples {
		if t.IterationSource == 0 {
			c.InitialTriples++
		} else {
			c.BridgingTriples++
		}
		switch t.Inference {
		case model.InferenceContextual:
			c.Contextual++
		default:
			c.Explicit++
		}
		if t.Grounded() {
			c.SourceGrounded++
		}
	}
	c.InitialPct = pct(c.InitialTriples, c.TotalTriples)
	c.BridgingPct = pct(c.BridgingTriples, c.TotalTriples)
	c.ExplicitPct = pct(c.Explicit, c.TotalTriples)
	c.ContextualPct = pct(c.Contextual, c.TotalTriples)
	c.SourceGroundedPct = pct(c.SourceGrounded, c.TotalTriples)
	return c
}

// analyzeEntities reports which entities literally appear in the source
// text, using case-folded substring containment.
func analyzeEntities(triples []model.Triple, text string) model.EntityStats {
	folded := model.Normalize(text)
	entities := make(map[string]struct{})
	for _, t := range triples {
		entities[model.Normalize(t.Head)] = struct{}{}
		entities[model.Normalize(t.Tail)] = struct{}{}
	}

	stats := model.EntityStats{TotalUnique: len(entities)}
	for e := range entities {
		if e != "" && strings.Contains(folded, e) {
			stats.AppearingInText++
		} else {
			stats.InferredOnly++
		}
	}
	stats.AppearingPct = pct(stats.AppearingInText, stats.TotalUnique)
	stats.InferredPct = pct(stats.InferredOnly, stats.TotalUnique)
	return stats
}

func analyzeRelations(triples []model.Triple) model.RelationStats {
	counts := make(map[string]int)
	for _, t := range triples {
		counts[model.Normalize(t.Relation)]++
	}

	type rc struct {
		relation string
		count    int
	}
	ranked := make([]rc, 0, len(counts))
	for r, n := range counts {
		ranked = append(ranked, rc{r, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].relation < ranked[j].relation
	})

	top := make(map[string]int, topRelations)
	for i, r := range ranked {
		if i == topRelations {
			break
		}
		top[r.relation] = r.count
	}

	return model.RelationStats{UniqueRelations: len(counts), Top: top}
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}
