package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"fieldrelay/internal/logger"
	"fieldrelay/internal/metrics"
	"fieldrelay/internal/model"
	"fieldrelay/internal/vision"
)

var (
	// ErrSuperseded resolves tickets whose capture was replaced in the
	// pending slot by a newer frame before dispatch.
	ErrSuperseded = errors.New("capture superseded by a newer frame")

	// ErrShuttingDown rejects work submitted or still pending during shutdown.
	ErrShuttingDown = errors.New("relay is shutting down")
)

// ResultSink receives completed analyses for durable storage.
type ResultSink interface {
	Append(result *model.AnalysisResult) error
}

// Publisher fans completed analyses out to live subscribers.
type Publisher interface {
	PublishProcessedData(result model.AnalysisResult)
}

// Options tune the provider call policy.
type Options struct {
	Timeout time.Duration // per provider attempt, default 30s
	Retries int           // retries after the first attempt, zero means none
	Backoff time.Duration // base retry delay, doubled per retry, default 1s
}

func (o *Options) applyDefaults() {
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Backoff == 0 {
		o.Backoff = time.Second
	}
}

// Dispatcher runs one sequential analysis worker per capture source.
// Each source holds at most one pending event (latest wins) and has at
// most one provider call in flight; sources proceed independently.
type Dispatcher struct {
	provider vision.Provider
	store    ResultSink
	hub      Publisher
	logger   *logger.Logger
	metrics  *metrics.Metrics
	opts     Options

	mu      sync.Mutex
	workers map[string]*sourceWorker
	closed  bool

	quit       chan struct{}
	hardCtx    context.Context
	hardCancel context.CancelFunc
	wg         sync.WaitGroup
}

// pendingEntry pairs a capture event with its caller's ticket.
type pendingEntry struct {
	event  model.CaptureEvent
	ticket *Ticket
}

// sourceWorker is one source's pending slot plus the wake signal for its
// worker goroutine.
type sourceWorker struct {
	mu      sync.Mutex
	pending *pendingEntry
	wake    chan struct{}
}

// take removes and returns the pending entry, or nil.
func (w *sourceWorker) take() *pendingEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	e := w.pending
	w.pending = nil
	return e
}

// New creates a Dispatcher.
func New(provider vision.Provider, store ResultSink, hub Publisher, log *logger.Logger, m *metrics.Metrics, opts Options) *Dispatcher {
	opts.applyDefaults()
	hardCtx, hardCancel := context.WithCancel(context.Background())
	return &Dispatcher{
		provider:   provider,
		store:      store,
		hub:        hub,
		logger:     log,
		metrics:    m,
		opts:       opts,
		workers:    make(map[string]*sourceWorker),
		quit:       make(chan struct{}),
		hardCtx:    hardCtx,
		hardCancel: hardCancel,
	}
}

// Enqueue places event in its source's pending slot, replacing (and
// resolving as superseded) any event already waiting there. The worker
// goroutine for the source is created on first use.
func (d *Dispatcher) Enqueue(event model.CaptureEvent) (*Ticket, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrShuttingDown
	}
	w, ok := d.workers[event.SourceID]
	if !ok {
		w = &sourceWorker{wake: make(chan struct{}, 1)}
		d.workers[event.SourceID] = w
		d.wg.Add(1)
		go d.runWorker(event.SourceID, w)
		d.logger.Info("Started analysis worker for source: %s", event.SourceID)
	}
	d.mu.Unlock()

	ticket := newTicket()

	w.mu.Lock()
	if w.pending != nil {
		w.pending.ticket.resolve(nil, ErrSuperseded)
		d.metrics.CapturesReplaced.Inc()
		d.logger.Info("Source %s: pending capture replaced by newer frame", event.SourceID)
	}
	w.pending = &pendingEntry{event: event, ticket: ticket}
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}

	// Shutdown may have begun between the closed check and the slot
	// write; make sure the entry cannot be stranded unresolved.
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		if e := w.take(); e != nil {
			e.ticket.resolve(nil, ErrShuttingDown)
		}
	}

	return ticket, nil
}

// runWorker drains one source's pending slot until shutdown.
func (d *Dispatcher) runWorker(sourceID string, w *sourceWorker) {
	defer d.wg.Done()

	for {
		select {
		case <-w.wake:
			for {
				// Once shutdown begins, whatever is still pending is
				// dropped rather than started.
				select {
				case <-d.quit:
					if e := w.take(); e != nil {
						e.ticket.resolve(nil, ErrShuttingDown)
					}
					d.logger.Info("Analysis worker stopped for source: %s", sourceID)
					return
				default:
				}
				e := w.take()
				if e == nil {
					break
				}
				d.process(e)
			}
		case <-d.quit:
			if e := w.take(); e != nil {
				e.ticket.resolve(nil, ErrShuttingDown)
			}
			d.logger.Info("Analysis worker stopped for source: %s", sourceID)
			return
		}
	}
}

// process runs the provider call with the retry policy, then stores,
// broadcasts and resolves. A persist failure is logged and does not
// block the broadcast or the caller's result.
func (d *Dispatcher) process(e *pendingEntry) {
	event := e.event
	var lastErr error

	for attempt := 1; attempt <= d.opts.Retries+1; attempt++ {
		ctx, cancel := context.WithTimeout(d.hardCtx, d.opts.Timeout)
		d.metrics.AnalysesInFlight.Inc()
		start := time.Now()
		text, err := d.provider.Analyze(ctx, event.ImageRef)
		d.metrics.ProviderLatency.Observe(time.Since(start).Seconds())
		d.metrics.AnalysesInFlight.Dec()
		cancel()

		if err == nil {
			result := model.AnalysisResult{
				SourceID:     event.SourceID,
				ImageRef:     event.ImageRef,
				AnalysisText: text,
				CompletedAt:  time.Now().UTC(),
				Attempt:      attempt,
			}
			if serr := d.store.Append(&result); serr != nil {
				d.metrics.PersistFailures.Inc()
				d.logger.Error("Failed to persist result for source %s: %v", event.SourceID, serr)
			} else {
				d.metrics.AnalysesCompleted.Inc()
			}
			d.hub.PublishProcessedData(result)
			e.ticket.resolve(&result, nil)
			return
		}

		lastErr = err
		if vision.IsPermanent(err) {
			d.logger.Warning("Provider rejected capture from source %s: %v", event.SourceID, err)
			break
		}
		if d.hardCtx.Err() != nil {
			break
		}
		if attempt > d.opts.Retries {
			break
		}

		delay := d.opts.Backoff * time.Duration(1<<(attempt-1))
		d.logger.Warning("Analysis attempt %d for source %s failed: %v (retrying in %s)", attempt, event.SourceID, err, delay)
		select {
		case <-time.After(delay):
		case <-d.quit:
			e.ticket.resolve(nil, ErrShuttingDown)
			return
		}
	}

	d.metrics.AnalysesFailed.Inc()
	d.logger.Error("Analysis failed for source %s (%s): %v", event.SourceID, event.ImageRef, lastErr)
	e.ticket.resolve(nil, lastErr)
}

// Shutdown stops the workers: pending events are dropped immediately,
// in-flight provider calls get the grace period, then are aborted.
func (d *Dispatcher) Shutdown(grace time.Duration) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.quit)

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		d.hardCancel()
		<-done
	}
	d.hardCancel()
}
