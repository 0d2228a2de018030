// Package store persists extraction runs and their results locally. The
// core pipeline never touches it; only the CLI and the server do.
package store

import (
	"context"
	"time"

	"github.com/FabioYanezRomero/kg-constructor/internal/model"
)

// RunStatus tracks a run through its lifecycle.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusExtracting RunStatus = "extracting"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// Run is one extraction attempt for one record.
type Run struct {
	ID        string    `json:"id"`
	RecordID  string    `json:"record_id"`
	Domain    string    `json:"domain"`
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   RunStatus `json:"status,omitempty"`
	RecordID string    `json:"record_id,omitempty"`
	Limit    int       `json:"limit,omitempty"`
	Offset   int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for extraction runs.
type Store interface {
	CreateRun(ctx context.Context, recordID, domain string) (*Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status RunStatus, errMsg string) error
	SaveResult(ctx context.Context, runID string, result *model.ExtractionResult) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	GetResult(ctx context.Context, runID string) (*model.ExtractionResult, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
