package alarm

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// drainTimeout bounds delivery of alarms still queued at shutdown.
const drainTimeout = 3 * time.Second

// WorkerPool fans alarms out to every sender on a fixed number of goroutines.
type WorkerPool struct {
	size    int
	jobs    chan Alarm
	senders []Sender
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, senders []Sender, log *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Alarm, size*8),
		senders: senders,
		log:     log,
	}
}

// Start launches the worker goroutines. They stop when ctx is done.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has returned.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log := wp.log.With(zap.Int("worker", id))
	log.Debug("alarm worker started")
	for {
		select {
		case a := <-wp.jobs:
			wp.deliver(ctx, a)
		case <-ctx.Done():
			wp.drain()
			log.Debug("alarm worker stopped")
			return
		}
	}
}

// drain delivers whatever is still queued using a short-lived context.
func (wp *WorkerPool) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case a := <-wp.jobs:
			wp.deliver(ctx, a)
		default:
			return
		}
	}
}

func (wp *WorkerPool) deliver(ctx context.Context, a Alarm) {
	for _, s := range wp.senders {
		if err := s.Send(ctx, a); err != nil {
			wp.log.Error("alarm delivery failed",
				zap.String("sender", s.Name()),
				zap.String("alarm_id", a.ID),
				zap.Int("event", a.Event),
				zap.Error(err))
			continue
		}
		wp.log.Debug("alarm delivered", zap.String("sender", s.Name()), zap.String("alarm_id", a.ID))
	}
}

// Dispatch queues an alarm without blocking. It reports false when the queue is full.
func (wp *WorkerPool) Dispatch(a Alarm) bool {
	select {
	case wp.jobs <- a:
		return true
	default:
		wp.log.Warn("alarm queue full, dropping", zap.String("alarm_id", a.ID), zap.Int("event", a.Event))
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Alarm {
	return wp.jobs
}
