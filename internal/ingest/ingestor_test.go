package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldrelay/internal/dispatch"
	"fieldrelay/internal/logger"
	"fieldrelay/internal/metrics"
	"fieldrelay/internal/model"
	"fieldrelay/internal/vision"
)

type providerFunc func(ctx context.Context, imageRef string) (string, error)

func (f providerFunc) Analyze(ctx context.Context, imageRef string) (string, error) {
	return f(ctx, imageRef)
}

type nopStore struct{}

func (nopStore) Append(*model.AnalysisResult) error { return nil }

type nopPublisher struct{}

func (nopPublisher) PublishProcessedData(model.AnalysisResult) {}

func newTestIngestor(provider vision.Provider) (*Ingestor, *dispatch.Dispatcher) {
	d := dispatch.New(provider, nopStore{}, nopPublisher{}, logger.Discard(), metrics.NewNop(), dispatch.Options{
		Timeout: time.Second,
		Backoff: time.Millisecond,
	})
	return New(d, logger.Discard(), metrics.NewNop()), d
}

func okProvider() vision.Provider {
	return providerFunc(func(ctx context.Context, imageRef string) (string, error) {
		return "ok", nil
	})
}

// ========================================
// Validation Tests
// ========================================

func TestIngestor_RejectsEmptyImageRef(t *testing.T) {
	ing, d := newTestIngestor(okProvider())
	defer d.Shutdown(time.Second)

	if _, err := ing.Submit("glasses-1", ""); !errors.Is(err, ErrInvalidImageRef) {
		t.Errorf("Expected ErrInvalidImageRef for empty ref, got %v", err)
	}
}

func TestIngestor_RejectsMalformedImageRef(t *testing.T) {
	ing, d := newTestIngestor(okProvider())
	defer d.Shutdown(time.Second)

	malformed := []string{
		"not a url at all",
		"://missing-scheme",
		"relative/path.jpg",
	}

	for _, ref := range malformed {
		if _, err := ing.Submit("glasses-1", ref); !errors.Is(err, ErrInvalidImageRef) {
			t.Errorf("Expected ErrInvalidImageRef for %q, got %v", ref, err)
		}
	}
}

func TestIngestor_RejectsEmptySourceID(t *testing.T) {
	ing, d := newTestIngestor(okProvider())
	defer d.Shutdown(time.Second)

	if _, err := ing.Submit("", "https://x/img.jpg"); !errors.Is(err, ErrEmptySourceID) {
		t.Errorf("Expected ErrEmptySourceID, got %v", err)
	}
}

// ========================================
// Submission Tests
// ========================================

func TestIngestor_AcceptedSubmissionResolves(t *testing.T) {
	ing, d := newTestIngestor(okProvider())
	defer d.Shutdown(time.Second)

	ticket, err := ing.Submit("glasses-1", "https://x/img1.jpg")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := ticket.Wait(ctx)
	if err != nil {
		t.Fatalf("Analysis failed: %v", err)
	}
	if result.SourceID != "glasses-1" {
		t.Errorf("Expected source glasses-1, got %s", result.SourceID)
	}
	if result.ImageRef != "https://x/img1.jpg" {
		t.Errorf("Expected submitted image ref, got %s", result.ImageRef)
	}
}

func TestIngestor_ClosedRejectsSubmissions(t *testing.T) {
	ing, d := newTestIngestor(okProvider())
	defer d.Shutdown(time.Second)

	ing.Close()

	if _, err := ing.Submit("glasses-1", "https://x/img.jpg"); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed after shutdown, got %v", err)
	}
}
