package sink

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// AsyncSink wraps an inner Sink with a bounded queue serviced by a small
// worker pool, so a slow or blocking sink never makes the logging hot
// path suspend (spec.md §5: "no other operation on the log hot path may
// suspend"). Adapted from the teacher's pkg/workerpool.WorkerPool
// (fixed-size worker goroutines draining a buffered task channel).
//
// Write is non-blocking: once the queue is full, further writes are
// dropped and counted rather than applying backpressure to the caller.
type AsyncSink struct {
	inner Sink
	queue chan []byte
	wg    sync.WaitGroup

	mu       sync.Mutex
	cond     *sync.Cond
	inflight int

	closeOnce sync.Once
	dropped   prometheus.Counter
}

// NewAsyncSink starts workerCount goroutines draining a queue of size
// queueSize, each writing to inner.
func NewAsyncSink(inner Sink, queueSize, workerCount int) *AsyncSink {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workerCount <= 0 {
		workerCount = 1
	}
	s := &AsyncSink{
		inner: inner,
		queue: make(chan []byte, queueSize),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foundation_sink_async_dropped_total",
			Help: "Events dropped because an async sink's queue was full.",
		}),
	}
	s.cond = sync.NewCond(&s.mu)
	for i := 0; i < workerCount; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Collectors exposes the drop counter for registration.
func (s *AsyncSink) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.dropped}
}

func (s *AsyncSink) worker() {
	defer s.wg.Done()
	for p := range s.queue {
		_ = s.inner.Write(p) // best-effort: sink write errors never propagate to the caller (spec.md §7)
		s.mu.Lock()
		s.inflight--
		if s.inflight == 0 {
			s.cond.Broadcast()
		}
		s.mu.Unlock()
	}
}

func (s *AsyncSink) Write(p []byte) error {
	cp := make([]byte, len(p))
	copy(cp, p)

	s.mu.Lock()
	select {
	case s.queue <- cp:
		s.inflight++
		s.mu.Unlock()
	default:
		s.mu.Unlock()
		s.dropped.Inc()
	}
	return nil
}

// Flush blocks until every queued write has reached the inner sink, then
// flushes it.
func (s *AsyncSink) Flush() error {
	s.mu.Lock()
	for s.inflight > 0 {
		s.cond.Wait()
	}
	s.mu.Unlock()
	return s.inner.Flush()
}

// Close is idempotent: it drains the queue, stops the workers, and closes
// the inner sink exactly once.
func (s *AsyncSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.queue)
		s.wg.Wait()
		err = s.inner.Close()
	})
	return err
}
