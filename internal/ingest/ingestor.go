package ingest

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldrelay/internal/dispatch"
	"fieldrelay/internal/logger"
	"fieldrelay/internal/metrics"
	"fieldrelay/internal/model"
)

var (
	// ErrEmptySourceID rejects submissions without a capture source.
	ErrEmptySourceID = errors.New("source id is empty")

	// ErrInvalidImageRef rejects empty or malformed image references.
	ErrInvalidImageRef = errors.New("image reference is empty or malformed")

	// ErrClosed rejects submissions after shutdown has begun.
	ErrClosed = errors.New("ingestor is closed")
)

// Ingestor validates capture submissions and hands them to the
// dispatcher. It has no side effects beyond enqueuing.
type Ingestor struct {
	dispatcher *dispatch.Dispatcher
	logger     *logger.Logger
	metrics    *metrics.Metrics

	mu     sync.Mutex
	closed bool
}

// New creates an Ingestor in front of d.
func New(d *dispatch.Dispatcher, log *logger.Logger, m *metrics.Metrics) *Ingestor {
	return &Ingestor{dispatcher: d, logger: log, metrics: m}
}

// Submit validates and enqueues one capture event. The returned ticket
// resolves when the analysis completes, fails, or is superseded by a
// newer frame from the same source.
func (i *Ingestor) Submit(sourceID, imageRef string) (*dispatch.Ticket, error) {
	i.mu.Lock()
	closed := i.closed
	i.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	if sourceID == "" {
		i.metrics.CapturesRejected.Inc()
		return nil, ErrEmptySourceID
	}
	if err := validateImageRef(imageRef); err != nil {
		i.metrics.CapturesRejected.Inc()
		i.logger.Warning("Rejected capture from source %s: %v", sourceID, err)
		return nil, err
	}

	event := model.CaptureEvent{
		ID:         uuid.NewString(),
		SourceID:   sourceID,
		ImageRef:   imageRef,
		ReceivedAt: time.Now().UTC(),
	}

	ticket, err := i.dispatcher.Enqueue(event)
	if err != nil {
		return nil, err
	}

	i.metrics.CapturesReceived.Inc()
	i.logger.Info("Capture accepted from source %s: %s", sourceID, imageRef)
	return ticket, nil
}

// Close stops accepting new submissions.
func (i *Ingestor) Close() {
	i.mu.Lock()
	i.closed = true
	i.mu.Unlock()
}

func validateImageRef(imageRef string) error {
	if imageRef == "" {
		return ErrInvalidImageRef
	}
	u, err := url.ParseRequestURI(imageRef)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImageRef, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("%w: missing scheme", ErrInvalidImageRef)
	}
	return nil
}
