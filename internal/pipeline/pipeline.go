// Package pipeline implements the iterative connectivity-aware extraction
// engine: initial grounded extraction, the bridging refinement loop, triple
// validation, and audit-metadata assembly. The pipeline performs no I/O of
// its own beyond LM calls; persistence belongs to the caller.
package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/FabioYanezRomero/kg-constructor/internal/domain"
	"github.com/FabioYanezRomero/kg-constructor/internal/model"
	"github.com/FabioYanezRomero/kg-constructor/pkg/llm"
)

// Options carries the per-run extraction knobs.
type Options struct {
	Domain          string
	Mode            model.ExtractionMode
	MaxDisconnected int
	MaxIterations   int
	Temperature     float64
	MaxTokens       int
}

// Pipeline composes extraction and refinement for one record at a time.
// Safe for concurrent use across records: it holds no mutable state.
type Pipeline struct {
	client  llm.Client
	domains *domain.Registry
}

// New creates a pipeline over an LM client and a domain registry.
func New(client llm.Client, domains *domain.Registry) *Pipeline {
	return &Pipeline{client: client, domains: domains}
}

// ProcessRecord runs extraction for a single record: initial extraction,
// connectivity refinement, metadata assembly. Records are independent; no
// state is shared across calls.
func (p *Pipeline) ProcessRecord(ctx context.Context, record model.Record, opts Options) (*model.ExtractionResult, error) {
	log := zap.L().With(zap.String("record", record.ID), zap.String("domain", opts.Domain))

	if strings.TrimSpace(record.Text) == "" {
		log.Info("pipeline: empty input, skipping extraction")
		meta := emptyInputMetadata(record, opts, p.client.ModelName())
		return &model.ExtractionResult{RecordID: record.ID, Triples: []model.Triple{}, Metadata: meta}, nil
	}

	bundle, err := p.domains.Get(opts.Domain)
	if err != nil {
		return nil, err
	}

	initial, dropped, err := ExtractInitial(ctx, p.client, bundle, record.Text, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: record %s", record.ID)
	}

	triples, trace, err := Refine(ctx, p.client, bundle, record.Text, initial, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: record %s", record.ID)
	}
	trace.DroppedItems += dropped

	meta := AssembleMetadata(record, len(initial), triples, trace, opts, bundle, p.client.ModelName())

	log.Info("pipeline: record complete",
		zap.Int("triples", len(triples)),
		zap.Int("components", trace.FinalComponents),
		zap.String("stop_reason", string(trace.StopReason)),
		zap.Bool("partial", trace.PartialResult),
	)

	return &model.ExtractionResult{RecordID: record.ID, Triples: triples, Metadata: meta}, nil
}
