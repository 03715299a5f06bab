package store

import (
	"fmt"
	"time"

	"fieldrelay/internal/model"
	"fieldrelay/internal/repository"
)

// Store is the durable result log: a SQLite repository for queries plus
// an append-only JSONL journal mirroring every record. Append is the
// single writer; reads may run concurrently and always observe a
// consistent prefix.
type Store struct {
	repo    repository.ResultRepository
	journal *Journal
}

// New combines a result repository and a journal into a Store.
func New(repo repository.ResultRepository, journal *Journal) *Store {
	return &Store{repo: repo, journal: journal}
}

// Append durably records a completed analysis. The journal line is
// written first so the external format stays ahead of the queryable
// index; either failure surfaces to the caller.
func (s *Store) Append(result *model.AnalysisResult) error {
	if s.journal != nil {
		if err := s.journal.Append(result); err != nil {
			return fmt.Errorf("journal append: %w", err)
		}
	}

	id, err := s.repo.Insert(result)
	if err != nil {
		return fmt.Errorf("repository insert: %w", err)
	}
	result.ID = id
	return nil
}

// ReadAll returns every stored result in insertion order.
func (s *Store) ReadAll() ([]model.AnalysisResult, error) {
	return s.repo.GetAll()
}

// ReadSince returns results completed after t, in insertion order.
func (s *Store) ReadSince(t time.Time) ([]model.AnalysisResult, error) {
	return s.repo.GetSince(t)
}

// Count returns the number of stored results.
func (s *Store) Count() (int, error) {
	return s.repo.GetTotalCount()
}

// Close closes the journal. The repository's DB handle is owned by the
// caller that opened it.
func (s *Store) Close() error {
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}
