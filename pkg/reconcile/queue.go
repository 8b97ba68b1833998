// Package reconcile keeps each namespace's vectors in step with the system
// of record. Namespaces are synchronized by a bounded pool of workers. A
// failed sync is retried with linear backoff until it is abandoned, and a
// periodic sweep picks up retries whose timers were lost.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/eventstream"
	"github.com/papercomputeco/nook/pkg/metrics"
	"github.com/papercomputeco/nook/pkg/records"
	"github.com/papercomputeco/nook/pkg/vector"
)

const (
	DefaultMaxRetryAttempts = 3
	DefaultBackoffUnit      = 5 * time.Second
	DefaultSweepInterval    = 15 * time.Minute

	defaultNumWorkers   uint = 2
	defaultQueueSize    uint = 256
	defaultInboxSize         = 64
	defaultSyncDeadline      = 2 * time.Minute
)

// Indexer replaces the documents of a namespace.
type Indexer interface {
	IndexDocuments(ctx context.Context, namespaceID string, docs []vector.Document) error
}

// StoreStats reports vector store statistics.
type StoreStats interface {
	Stats(ctx context.Context) vector.Stats
}

// Config is the configuration options for the sync queue.
type Config struct {
	// Source yields the documents of a namespace from the system of record.
	Source records.Source

	// Indexer writes the documents into the vector store.
	Indexer Indexer

	// Store is optional and only used to enrich Stats.
	Store StoreStats

	// NumWorkers is the number of concurrent namespace syncs (defaults to 2).
	NumWorkers uint

	// QueueSize is the capacity of each dispatch channel (defaults to 256).
	QueueSize uint

	// MaxRetryAttempts is the number of failed runs after which a namespace
	// is abandoned (defaults to 3).
	MaxRetryAttempts int

	// BackoffUnit is multiplied by the attempt count to get the retry delay
	// (defaults to 5s).
	BackoffUnit time.Duration

	// SweepInterval is how often lost retries are re-queued (defaults to 15m).
	SweepInterval time.Duration

	// SyncTimeout bounds a single namespace sync (defaults to 2m).
	SyncTimeout time.Duration

	Logger *zap.Logger
}

// Stats is a point-in-time view of the queue.
type Stats struct {
	QueueDepth          int           `json:"queue_depth"`
	Running             int           `json:"running"`
	PendingRetry        int           `json:"pending_retry"`
	Abandoned           int           `json:"abandoned"`
	AbandonedNamespaces []string      `json:"abandoned_namespaces"`
	Store               *vector.Stats `json:"store,omitempty"`
}

type entry struct {
	state    State
	attempts int
	timer    *time.Timer
}

// Queue coalesces and runs namespace synchronizations.
type Queue struct {
	config *Config
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
	started bool

	queue  chan string
	urgent chan string
	inbox  chan eventstream.RecordChangedEvent
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewQueue validates c and applies defaults. Workers start with Start.
func NewQueue(c *Config) (*Queue, error) {
	if c.Source == nil {
		return nil, errors.New("sync queue requires a record source")
	}
	if c.Indexer == nil {
		return nil, errors.New("sync queue requires an indexer")
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.MaxRetryAttempts <= 0 {
		c.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if c.BackoffUnit <= 0 {
		c.BackoffUnit = DefaultBackoffUnit
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.SyncTimeout <= 0 {
		c.SyncTimeout = defaultSyncDeadline
	}

	return &Queue{
		config:  c,
		logger:  c.Logger,
		entries: make(map[string]*entry),
		queue:   make(chan string, c.QueueSize),
		urgent:  make(chan string, c.QueueSize),
		inbox:   make(chan eventstream.RecordChangedEvent, defaultInboxSize),
		done:    make(chan struct{}),
	}, nil
}

// Start launches the workers, the retry sweep and the inbox consumer. They
// run until Close or until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started || q.closed {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	q.wg.Add(int(q.config.NumWorkers))
	for i := range q.config.NumWorkers {
		go q.worker(ctx, i)
	}

	q.wg.Add(2)
	go q.sweeper(ctx)
	go q.consumeInbox(ctx)
}

// Inbox accepts record change events. Each event enqueues its namespace.
func (q *Queue) Inbox() chan<- eventstream.RecordChangedEvent {
	return q.inbox
}

// Enqueue schedules a sync of namespaceID. It returns false when the
// namespace is already queued or running, or when it could not be queued.
//
// An explicit enqueue of a namespace waiting on a retry runs it now, and an
// explicit enqueue of an abandoned namespace re-admits it with its attempts
// reset. Immediate requests are dispatched ahead of the FIFO.
func (q *Queue) Enqueue(namespaceID string, immediate bool) bool {
	if namespaceID == "" {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	e, ok := q.entries[namespaceID]
	if !ok {
		e = &entry{}
		q.entries[namespaceID] = e
	}

	prev := e.state
	switch prev {
	case Queued, Running:
		q.logger.Debug("sync already pending, coalesced",
			zap.String("namespace", namespaceID),
			zap.Stringer("state", prev),
		)
		return false
	case RetryPending:
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	case Abandoned:
		e.attempts = 0
	}

	if !q.dispatchLocked(namespaceID, e, immediate) {
		if prev == Idle {
			delete(q.entries, namespaceID)
		}
		return false
	}

	q.logger.Debug("sync queued",
		zap.String("namespace", namespaceID),
		zap.Bool("immediate", immediate),
	)
	q.updateGaugesLocked()
	return true
}

// dispatchLocked marks e queued and hands the namespace to a channel.
func (q *Queue) dispatchLocked(namespaceID string, e *entry, immediate bool) bool {
	ch := q.queue
	if immediate {
		ch = q.urgent
	}

	select {
	case ch <- namespaceID:
		e.state = Queued
		return true
	default:
		q.logger.Error("sync not queued, queue full",
			zap.String("namespace", namespaceID),
		)
		return false
	}
}

// State reports the lifecycle state of a namespace.
func (q *Queue) State(namespaceID string) State {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e, ok := q.entries[namespaceID]; ok {
		return e.state
	}
	return Idle
}

// Attempts reports the consecutive failed runs of a namespace.
func (q *Queue) Attempts(namespaceID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e, ok := q.entries[namespaceID]; ok {
		return e.attempts
	}
	return 0
}

// Stats returns a snapshot of the queue and, when configured, of the store.
func (q *Queue) Stats(ctx context.Context) Stats {
	q.mu.Lock()
	s := Stats{AbandonedNamespaces: []string{}}
	for ns, e := range q.entries {
		switch e.state {
		case Queued:
			s.QueueDepth++
		case Running:
			s.Running++
		case RetryPending:
			s.PendingRetry++
		case Abandoned:
			s.Abandoned++
			s.AbandonedNamespaces = append(s.AbandonedNamespaces, ns)
		}
	}
	q.mu.Unlock()

	sort.Strings(s.AbandonedNamespaces)

	if q.config.Store != nil {
		storeStats := q.config.Store.Stats(ctx)
		s.Store = &storeStats
	}
	return s
}

// Close stops accepting work, cancels retry timers and waits for in-flight
// syncs to finish. Queued namespaces that have not started are dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, e := range q.entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
	close(q.done)
	q.mu.Unlock()

	q.wg.Wait()
}

// worker is the inner worker thread that pulls namespaces off the dispatch
// channels, preferring immediate requests.
func (q *Queue) worker(ctx context.Context, id uint) {
	defer q.wg.Done()
	q.logger.Debug("sync worker started", zap.Uint("worker_id", id))

	for {
		var ns string
		select {
		case ns = <-q.urgent:
		default:
			select {
			case ns = <-q.urgent:
			case ns = <-q.queue:
			case <-q.done:
				q.logger.Debug("sync worker stopped", zap.Uint("worker_id", id))
				return
			case <-ctx.Done():
				q.logger.Debug("sync worker stopped", zap.Uint("worker_id", id))
				return
			}
		}

		q.run(ctx, ns)
	}
}

// run syncs one namespace and moves it to its next state.
func (q *Queue) run(ctx context.Context, namespaceID string) {
	q.mu.Lock()
	e, ok := q.entries[namespaceID]
	if !ok || e.state != Queued || q.closed {
		q.mu.Unlock()
		return
	}
	e.state = Running
	q.updateGaugesLocked()
	q.mu.Unlock()

	runID := uuid.NewString()
	started := time.Now()
	err := q.syncNamespace(ctx, namespaceID)

	q.mu.Lock()
	defer q.mu.Unlock()

	if err == nil {
		delete(q.entries, namespaceID)
		q.updateGaugesLocked()
		metrics.SyncRuns.WithLabelValues("success").Inc()
		q.logger.Info("namespace synced",
			zap.String("namespace", namespaceID),
			zap.String("run_id", runID),
			zap.Duration("took", time.Since(started)),
		)
		return
	}

	e.attempts++

	if e.attempts >= q.config.MaxRetryAttempts {
		e.state = Abandoned
		q.updateGaugesLocked()
		metrics.SyncRuns.WithLabelValues("abandoned").Inc()
		q.logger.Error("namespace sync abandoned",
			zap.String("namespace", namespaceID),
			zap.String("run_id", runID),
			zap.Int("attempts", e.attempts),
			zap.Error(err),
		)
		return
	}

	delay := time.Duration(e.attempts) * q.config.BackoffUnit
	e.state = RetryPending
	if !q.closed {
		e.timer = time.AfterFunc(delay, func() { q.retry(namespaceID) })
	}
	q.updateGaugesLocked()
	metrics.SyncRuns.WithLabelValues("retry").Inc()
	q.logger.Warn("namespace sync failed, retry scheduled",
		zap.String("namespace", namespaceID),
		zap.String("run_id", runID),
		zap.Int("attempts", e.attempts),
		zap.Duration("retry_in", delay),
		zap.Error(err),
	)
}

func (q *Queue) syncNamespace(ctx context.Context, namespaceID string) error {
	ctx, cancel := context.WithTimeout(ctx, q.config.SyncTimeout)
	defer cancel()

	docs, err := q.config.Source.Documents(ctx, namespaceID)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}

	if err := q.config.Indexer.IndexDocuments(ctx, namespaceID, docs); err != nil {
		return fmt.Errorf("indexing documents: %w", err)
	}
	return nil
}

// retry fires when a backoff timer expires.
func (q *Queue) retry(namespaceID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[namespaceID]
	if !ok || e.state != RetryPending || q.closed {
		return
	}
	e.timer = nil

	if !q.dispatchLocked(namespaceID, e, false) {
		// The sweep re-queues it once there is room.
		return
	}
	q.updateGaugesLocked()
}

// Sweep re-queues namespaces waiting on a retry whose timer is not armed.
// It returns the number of namespaces re-queued.
func (q *Queue) Sweep() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}

	n := 0
	for ns, e := range q.entries {
		if e.state != RetryPending || e.timer != nil {
			continue
		}
		if q.dispatchLocked(ns, e, false) {
			n++
		}
	}
	if n > 0 {
		q.logger.Info("sweep re-queued namespaces", zap.Int("count", n))
		q.updateGaugesLocked()
	}
	return n
}

func (q *Queue) sweeper(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			q.Sweep()
		case <-q.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (q *Queue) consumeInbox(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case event := <-q.inbox:
			queued := q.Enqueue(event.NamespaceID, false)
			q.logger.Debug("record change received",
				zap.String("event_id", event.EventID),
				zap.String("namespace", event.NamespaceID),
				zap.String("record_type", event.RecordType),
				zap.Bool("queued", queued),
			)
		case <-q.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (q *Queue) updateGaugesLocked() {
	depth, abandoned := 0, 0
	for _, e := range q.entries {
		switch e.state {
		case Queued:
			depth++
		case Abandoned:
			abandoned++
		}
	}
	metrics.SyncQueueDepth.Set(float64(depth))
	metrics.SyncAbandoned.Set(float64(abandoned))
}
