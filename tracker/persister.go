package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Swapnanilmanna1701/tracker/domain"
)

// ErrPersisterClosed is returned by SaveTasks after Close.
var ErrPersisterClosed = errors.New("persister is closed")

const defaultWriteTimeout = 10 * time.Second

// AsyncPersister writes snapshots on a background goroutine. Only the latest
// pending snapshot is kept, so a slow backend never blocks the store and the
// last write always carries the newest collection.
type AsyncPersister struct {
	target  Persister
	logger  *log.Logger
	timeout time.Duration

	mu         sync.Mutex
	pending    []domain.Task
	hasPending bool
	closed     bool

	kick chan struct{}
	done chan struct{}
}

// NewAsyncPersister starts the writer goroutine. A non-positive timeout uses
// the default per-write timeout.
func NewAsyncPersister(target Persister, logger *log.Logger, timeout time.Duration) *AsyncPersister {
	if target == nil {
		panic("tracker.NewAsyncPersister: target is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	p := &AsyncPersister{
		target:  target,
		logger:  logger,
		timeout: timeout,
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go p.worker()
	return p
}

// SaveTasks records tasks as the pending snapshot and returns immediately.
func (p *AsyncPersister) SaveTasks(_ context.Context, tasks []domain.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPersisterClosed
	}
	p.pending = tasks
	p.hasPending = true
	select {
	case p.kick <- struct{}{}:
	default:
	}
	return nil
}

// Close stops the writer after the pending snapshot is written.
func (p *AsyncPersister) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.kick)
	p.mu.Unlock()

	<-p.done
	p.flush()
}

func (p *AsyncPersister) worker() {
	defer close(p.done)
	for range p.kick {
		p.flush()
	}
}

func (p *AsyncPersister) flush() {
	p.mu.Lock()
	tasks, ok := p.pending, p.hasPending
	p.pending, p.hasPending = nil, false
	p.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	start := time.Now()
	if err := p.target.SaveTasks(ctx, tasks); err != nil {
		p.logger.WithError(err).WithField("tasks", len(tasks)).Warn("async persist failed")
		return
	}
	p.logger.WithFields(log.Fields{
		"tasks":    len(tasks),
		"write_ms": float64(time.Since(start)) / float64(time.Millisecond),
	}).Debug("tasks persisted")
}
