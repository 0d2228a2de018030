package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/FabioYanezRomero/kg-constructor/internal/domain"
	"github.com/FabioYanezRomero/kg-constructor/internal/model"
	"github.com/FabioYanezRomero/kg-constructor/pkg/llm"
)

// ExtractInitial performs the one-shot grounded extraction against the
// domain's extraction prompt and few-shot examples. Returns the validated,
// identity-deduped triples (iteration_source 0) and the dropped-item count.
// Zero items is not an error; client failures propagate to the caller.
func ExtractInitial(ctx context.Context, client llm.Client, bundle *domain.Bundle, text string, opts Options) ([]model.Triple, int, error) {
	prompt, err := bundle.Prompt(opts.Mode)
	if err != nil {
		return nil, 0, err
	}
	examples, err := bundle.Examples()
	if err != nil {
		return nil, 0, err
	}
	schema, err := bundle.Schema()
	if err != nil {
		return nil, 0, err
	}

	items, err := client.ExtractGrounded(ctx, llm.ExtractRequest{
		Text:        text,
		Prompt:      prompt,
		Examples:    toClientExamples(examples),
		Schema:      toClientSchema(schema),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return nil, 0, eris.Wrap(err, "extract: initial extraction")
	}

	triples, dropped := validateItems(items, phaseInitial, 0, text)
	triples = dedupe(triples)

	zap.L().Debug("extract: initial extraction complete",
		zap.String("domain", bundle.Name()),
		zap.Int("triples", len(triples)),
		zap.Int("dropped", dropped),
	)
	return triples, dropped, nil
}

func toClientExamples(examples []domain.FewShotExample) []llm.FewShotExample {
	out := make([]llm.FewShotExample, 0, len(examples))
	for _, ex := range examples {
		items := make([]llm.RawItem, 0, len(ex.Extractions))
		for _, e := range ex.Extractions {
			items = append(items, llm.RawItem{
				Head:           e.Head,
				Relation:       e.Relation,
				Tail:           e.Tail,
				Inference:      e.Inference,
				Justification:  e.Justification,
				CharStart:      e.CharStart,
				CharEnd:        e.CharEnd,
				ExtractionText: e.ExtractionText,
			})
		}
		out = append(out, llm.FewShotExample{Text: ex.Text, Items: items})
	}
	return out
}

func toClientSchema(s *domain.Schema) *llm.Schema {
	if s == nil {
		return nil
	}
	return &llm.Schema{EntityTypes: s.EntityTypes, RelationTypes: s.RelationTypes}
}
