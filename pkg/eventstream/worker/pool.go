// Package worker provides an asynchronous worker pool that delivers trajectory
// events to an eventstream.Publisher.
//
// The pool decouples publishing from the storage hot path so a slow or
// unavailable broker never delays Add. Events are routed to workers by tag key,
// so events for one bucket are published in the order they were enqueued.
package worker

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/replay/pkg/eventstream"
	"github.com/papercomputeco/replay/pkg/logger"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives every enqueued event.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of each worker's buffered queue (defaults to 256).
	QueueSize uint

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool publishes events asynchronously via a worker pool.
type Pool struct {
	publisher eventstream.Publisher
	queues    []chan *eventstream.TrajectoryAddedEvent
	wg        sync.WaitGroup
	logger    *slog.Logger

	// mu guards closed so Enqueue never sends on a closed queue.
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}

	numWorkers := c.NumWorkers
	if numWorkers == 0 {
		numWorkers = defaultNumWorkers
	}

	queueSize := c.QueueSize
	if queueSize == 0 {
		queueSize = defaultJobQueueSize
	}

	if numWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", numWorkers)
	}

	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}

	wp := &Pool{
		publisher: c.Publisher,
		queues:    make([]chan *eventstream.TrajectoryAddedEvent, numWorkers),
		logger:    l,
	}

	wp.wg.Add(int(numWorkers))
	for i := range wp.queues {
		wp.queues[i] = make(chan *eventstream.TrajectoryAddedEvent, queueSize)
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits an event for publishing.
// Returns true if enqueued, false if the worker's queue is full or the pool is
// closed, resulting in the event being dropped
func (p *Pool) Enqueue(event *eventstream.TrajectoryAddedEvent) bool {
	if event == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("event not queued, pool closed, event dropped",
			"event_id", event.EventID,
			"trajectory_id", event.TrajectoryID,
		)
		return false
	}

	select {
	case p.queues[p.shard(event.TagKey)] <- event:
		p.logger.Debug("event queued",
			"event_id", event.EventID,
			"trajectory_id", event.TrajectoryID,
		)
		return true
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			"event_id", event.EventID,
			"trajectory_id", event.TrajectoryID,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight events to drain.
// Later calls to Enqueue drop their event. Close is safe to call twice.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) shard(tagKey string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tagKey))
	return int(h.Sum32() % uint32(len(p.queues)))
}

// worker is the inner worker thread that continuously pulls events off its queue
func (p *Pool) worker(id int) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for event := range p.queues[id] {
		p.publish(event)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

// publish delivers one event. Failures are logged and the event is dropped.
func (p *Pool) publish(event *eventstream.TrajectoryAddedEvent) {
	if err := p.publisher.PublishTrajectoryAdded(context.Background(), event); err != nil {
		p.logger.Warn("failed to publish event",
			"event_id", event.EventID,
			"trajectory_id", event.TrajectoryID,
			"error", err,
		)
		return
	}

	p.logger.Debug("published event",
		"event_id", event.EventID,
		"trajectory_id", event.TrajectoryID,
	)
}
