package repository

import (
	"time"

	"fieldrelay/internal/model"
)

// ResultRepository defines the interface for analysis-result persistence.
// The log is append-only: results are never mutated or reordered.
type ResultRepository interface {
	// Create operations
	Insert(result *model.AnalysisResult) (int64, error)

	// Read operations
	GetAll() ([]model.AnalysisResult, error)
	GetSince(t time.Time) ([]model.AnalysisResult, error)
	GetTotalCount() (int, error)
}
