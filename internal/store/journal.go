package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fieldrelay/internal/model"
)

// JournalRecord is one line of the append-only result journal. The field
// set matches the relay's external persistence format: timestamp,
// image reference, analysis text.
type JournalRecord struct {
	Timestamp    string `json:"timestamp"`
	ImageRef     string `json:"imageRef"`
	AnalysisText string `json:"analysisText"`
}

// Journal is an append-only JSONL file of completed analyses. Each append
// writes one full line and syncs, so the file parses cleanly after every
// append even if the process dies mid-run.
type Journal struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenJournal opens or creates the journal file for appending.
func OpenJournal(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	return &Journal{path: path, file: f}, nil
}

// Append writes one record for the result and syncs it to disk.
func (j *Journal) Append(result *model.AnalysisResult) error {
	rec := JournalRecord{
		Timestamp:    result.CompletedAt.UTC().Format(time.RFC3339),
		ImageRef:     result.ImageRef,
		AnalysisText: result.AnalysisText,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode journal record: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.file.Write(line); err != nil {
		return fmt.Errorf("failed to append journal record: %w", err)
	}
	return j.file.Sync()
}

// ReadAll parses the whole journal in append order.
func (j *Journal) ReadAll() ([]JournalRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var records []JournalRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var rec JournalRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("corrupt journal line: %w", err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// Close closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
