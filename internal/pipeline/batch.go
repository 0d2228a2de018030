package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FabioYanezRomero/kg-constructor/internal/model"
)

// BatchOutcome pairs a record with its result or failure. Per-record errors
// never abort the batch.
type BatchOutcome struct {
	RecordID string
	Result   *model.ExtractionResult
	Err      error
}

// ProcessBatch fans ProcessRecord out over records with a bounded worker
// pool. Outcomes are returned in input order; ordering of execution across
// records is unspecified. onDone, when non-nil, is invoked as each record
// finishes (from worker goroutines).
func (p *Pipeline) ProcessBatch(ctx context.Context, records []model.Record, opts Options, concurrency int, onDone func(BatchOutcome)) []BatchOutcome {
	if concurrency <= 0 {
		concurrency = 1
	}

	outcomes := make([]BatchOutcome, len(records))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, record := range records {
		g.Go(func() error {
			result, err := p.ProcessRecord(gCtx, record, opts)
			outcome := BatchOutcome{RecordID: record.ID, Result: result, Err: err}
			if err != nil {
				zap.L().Error("batch: record failed",
					zap.String("record", record.ID),
					zap.Error(err),
				)
			}

			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()

			if onDone != nil {
				onDone(outcome)
			}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}
