package llmcall

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RecorderConfig configures the recorder.
type RecorderConfig struct {
	Store         *Store
	BatchSize     int           // Flush after N calls (default: 50)
	FlushInterval time.Duration // Or after duration (default: 2s)
	QueueSize     int           // Buffer size (default: 256)
	Logger        *slog.Logger
}

// Recorder handles fire-and-forget call recording. Calls are queued and
// written to the store in batches by a background goroutine.
type Recorder struct {
	store  *Store
	logger *slog.Logger

	batchSize     int
	flushInterval time.Duration

	queue   chan *Call
	flushCh chan chan struct{}

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	mu        sync.RWMutex
	stopped   bool
}

// NewRecorder creates a new call recorder. A nil Store makes Record a no-op.
func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Recorder{
		store:         cfg.Store,
		logger:        cfg.Logger,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		queue:         make(chan *Call, cfg.QueueSize),
		flushCh:       make(chan chan struct{}),
	}
}

// Start begins writing queued calls.
func (r *Recorder) Start() {
	r.startOnce.Do(func() {
		r.wg.Add(1)
		go r.run()
	})
}

// Stop flushes remaining calls and stops the writer.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		close(r.queue)
		r.mu.Unlock()
		r.wg.Wait()
	})
}

// RecordCall queues a call. It never blocks the caller; calls are dropped
// when the queue is full or the recorder is stopped.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || r.store == nil || call == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return
	}
	select {
	case r.queue <- call:
	default:
		r.logger.Warn("call queue full, dropping record", "id", call.ID, "page_num", call.PageNumber)
	}
}

// Flush writes everything queued so far and returns when it is stored.
func (r *Recorder) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case r.flushCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	batch := make([]*Call, 0, r.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.store.Insert(ctx, batch...); err != nil {
			r.logger.Error("failed to store call records", "count", len(batch), "error", err)
		} else {
			r.logger.Debug("stored call records", "count", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case call, ok := <-r.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, call)
			if len(batch) >= r.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case done := <-r.flushCh:
		drain:
			for {
				select {
				case call, ok := <-r.queue:
					if !ok {
						break drain
					}
					batch = append(batch, call)
				default:
					break drain
				}
			}
			flush()
			close(done)
		}
	}
}
