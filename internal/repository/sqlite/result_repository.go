package sqlite

import (
	"fmt"
	"time"

	"fieldrelay/internal/model"
)

// ResultRepository handles analysis-result data operations in SQLite.
type ResultRepository struct {
	db *DB
}

// NewResultRepository creates a new result repository.
func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Insert appends a new analysis result and returns its ID.
func (r *ResultRepository) Insert(result *model.AnalysisResult) (int64, error) {
	query := `
		INSERT INTO analysis_results (source_id, image_ref, analysis_text, attempt, completed_at)
		VALUES (?, ?, ?, ?, ?)
	`

	res, err := r.db.Conn().Exec(query,
		result.SourceID,
		result.ImageRef,
		result.AnalysisText,
		result.Attempt,
		result.CompletedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert id: %w", err)
	}

	return id, nil
}

// GetAll returns every stored result in insertion order.
func (r *ResultRepository) GetAll() ([]model.AnalysisResult, error) {
	query := `
		SELECT id, source_id, image_ref, analysis_text, attempt, completed_at
		FROM analysis_results
		ORDER BY id ASC
	`
	return r.queryResults(query)
}

// GetSince returns results completed after t, in insertion order.
func (r *ResultRepository) GetSince(t time.Time) ([]model.AnalysisResult, error) {
	query := `
		SELECT id, source_id, image_ref, analysis_text, attempt, completed_at
		FROM analysis_results
		WHERE completed_at > ?
		ORDER BY id ASC
	`
	return r.queryResults(query, t)
}

// GetTotalCount returns the number of stored results.
func (r *ResultRepository) GetTotalCount() (int, error) {
	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM analysis_results`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return count, nil
}

func (r *ResultRepository) queryResults(query string, args ...interface{}) ([]model.AnalysisResult, error) {
	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []model.AnalysisResult
	for rows.Next() {
		var res model.AnalysisResult
		if err := rows.Scan(&res.ID, &res.SourceID, &res.ImageRef, &res.AnalysisText, &res.Attempt, &res.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}

	return results, rows.Err()
}
