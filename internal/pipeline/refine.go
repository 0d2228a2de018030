package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/FabioYanezRomero/kg-constructor/internal/domain"
	"github.com/FabioYanezRomero/kg-constructor/internal/graph"
	"github.com/FabioYanezRomero/kg-constructor/internal/model"
	"github.com/FabioYanezRomero/kg-constructor/pkg/llm"
)

// Refine iteratively reduces the number of weakly connected components in
// the graph induced by the accumulated triples. Each iteration renders the
// component structure into the domain's bridging prompt, asks the LM for
// bridging triples, dedups them against everything seen so far, and stops on
// one of the closed set of stop reasons.
//
// The graph is rebuilt from the triple set every iteration rather than
// mutated incrementally: component indices are not stable across mutations,
// and a full rebuild is linear in a triple set that stays small.
//
// Client failures mid-refinement never discard accumulated triples; the
// only error return is a domain ResourceError, which is fatal.
func Refine(ctx context.Context, client llm.Client, bundle *domain.Bundle, text string, initial []model.Triple, opts Options) ([]model.Triple, *model.RefinementTrace, error) {
	bridgePrompt, err := bundle.BridgingPrompt()
	if err != nil {
		return nil, nil, err
	}
	schema, err := bundle.Schema()
	if err != nil {
		return nil, nil, err
	}

	all := dedupe(append([]model.Triple(nil), initial...))
	seen := make(map[model.TripleKey]struct{}, len(all))
	for _, t := range all {
		seen[t.Key()] = struct{}{}
	}

	prev := len(graph.Build(all).Components())
	trace := &model.RefinementTrace{InitialComponents: prev, FinalComponents: prev}

	log := zap.L().With(zap.String("domain", bundle.Name()))

	// Refinement disabled: hand the initial triples back verbatim. The stop
	// reason still reports whether the goal was already met.
	if opts.MaxIterations <= 0 {
		if prev <= opts.MaxDisconnected {
			trace.StopReason = model.StopConnectivityGoalAchieved
		} else {
			trace.StopReason = model.StopMaxIterationsReached
		}
		return all, trace, nil
	}

	// Goal already met by the initial extraction: no bridging call is made.
	if prev <= opts.MaxDisconnected {
		trace.StopReason = model.StopConnectivityGoalAchieved
		return all, trace, nil
	}

	for k := 1; k <= opts.MaxIterations; k++ {
		// Cancellation observed between iterations maps to cancelled, with
		// everything accumulated so far preserved.
		if ctx.Err() != nil {
			trace.StopReason = model.StopCancelled
			trace.PartialResult = true
			return all, trace, nil
		}

		g := graph.Build(all)
		comps := g.Components()
		prompt := domain.RenderBridging(bridgePrompt, len(comps), graph.FormatComponents(comps), text)

		items, err := client.GenerateJSON(ctx, llm.GenerateRequest{
			Prompt:      prompt,
			Schema:      toClientSchema(schema),
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		})
		if err != nil {
			if llm.IsCancellation(err) {
				trace.StopReason = model.StopCancelled
			} else {
				trace.StopReason = model.StopLLMFailure
			}
			trace.PartialResult = true
			trace.Iterations = append(trace.Iterations, model.IterationRecord{
				Iteration:              k,
				TotalTriples:           len(all),
				DisconnectedComponents: prev,
				Status:                 model.IterationFailed,
				Error:                  err.Error(),
			})
			log.Warn("refine: bridging call failed, keeping accumulated triples",
				zap.Int("iteration", k),
				zap.Error(err),
			)
			return all, trace, nil
		}

		valid, dropped := validateItems(items, phaseRefinement, k, text)
		trace.DroppedItems += dropped

		var newTriples []model.Triple
		for _, t := range valid {
			if _, ok := seen[t.Key()]; ok {
				continue
			}
			newTriples = append(newTriples, t)
		}

		if len(newTriples) == 0 {
			trace.Iterations = append(trace.Iterations, model.IterationRecord{
				Iteration:              k,
				NewTriples:             0,
				TotalTriples:           len(all),
				DisconnectedComponents: prev,
				Status:                 model.IterationSuccess,
				EarlyStopReason:        model.StopNoNewTriplesFound,
			})
			trace.IterationsUsed = k
			trace.StopReason = model.StopNoNewTriplesFound
			return all, trace, nil
		}

		for _, t := range newTriples {
			seen[t.Key()] = struct{}{}
		}
		all = append(all, newTriples...)

		cur := len(graph.Build(all).Components())
		trace.FinalComponents = cur

		if cur >= prev {
			// The new triples stay: they validated and may still be useful.
			// Only the loop terminates.
			trace.Iterations = append(trace.Iterations, model.IterationRecord{
				Iteration:              k,
				NewTriples:             len(newTriples),
				TotalTriples:           len(all),
				DisconnectedComponents: cur,
				Status:                 model.IterationSuccess,
				EarlyStopReason:        model.StopNoConnectivityImprovement,
			})
			trace.IterationsUsed = k
			trace.StopReason = model.StopNoConnectivityImprovement
			return all, trace, nil
		}

		trace.Iterations = append(trace.Iterations, model.IterationRecord{
			Iteration:              k,
			NewTriples:             len(newTriples),
			TotalTriples:           len(all),
			DisconnectedComponents: cur,
			Status:                 model.IterationSuccess,
		})
		trace.IterationsUsed = k
		prev = cur

		log.Debug("refine: iteration complete",
			zap.Int("iteration", k),
			zap.Int("new_triples", len(newTriples)),
			zap.Int("components", cur),
		)

		if cur <= opts.MaxDisconnected {
			trace.StopReason = model.StopConnectivityGoalAchieved
			return all, trace, nil
		}
	}

	trace.StopReason = model.StopMaxIterationsReached
	return all, trace, nil
}
