package stores

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies how a journaled run ended.
type Outcome string

const (
	// OutcomeValid means the document parsed and passed every semantic check.
	OutcomeValid Outcome = "valid"
	// OutcomeInvalid means the document parsed but validation reported violations.
	OutcomeInvalid Outcome = "invalid"
	// OutcomeError means the run aborted before validation completed,
	// typically a read or parse failure.
	OutcomeError Outcome = "error"
)

// Run represents a single journaled invocation of the validation pipeline.
type Run struct {
	ID             string        `json:"id"`
	DocumentPath   string        `json:"document_path"`
	SourceHash     string        `json:"source_hash"`
	Outcome        Outcome       `json:"outcome"`
	ViolationCount int           `json:"violation_count"`
	Violations     string        `json:"violations"` // JSON array
	Duration       time.Duration `json:"duration"`
	CreatedAt      time.Time     `json:"created_at"`
}

// NewRun returns a Run with a fresh ID, stamped with the current time.
// The caller fills in the outcome and violation fields once the pipeline
// has finished.
func NewRun(documentPath, sourceHash string) *Run {
	return &Run{
		ID:           uuid.New().String(),
		DocumentPath: documentPath,
		SourceHash:   sourceHash,
		Violations:   "[]",
		CreatedAt:    time.Now().UTC(),
	}
}

// DefaultPath returns the journal location used when none is configured,
// relative to the current working directory.
func DefaultPath() string {
	return filepath.Join(".incus-composer", "journal.db")
}

// Store defines the interface for the run journal.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	ListRunsByDocument(ctx context.Context, documentPath string, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Utility
	HealthCheck(ctx context.Context) error
}
