package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry keeps one TokenBucket per logger name in a single map guarded by
// one RWMutex; the map is not sharded.
type Registry struct {
	mu       sync.RWMutex
	buckets  map[string]*TokenBucket
	admitted prometheus.Counter
	denied   prometheus.Counter
}

// NewRegistry returns an empty limiter registry.
func NewRegistry() *Registry {
	return &Registry{
		buckets: make(map[string]*TokenBucket),
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foundation_ratelimit_admitted_total",
			Help: "Admissions granted by per-logger-name rate limiters.",
		}),
		denied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foundation_ratelimit_denied_total",
			Help: "Admissions denied by per-logger-name rate limiters.",
		}),
	}
}

// Collectors exposes the admission counters for registration.
func (r *Registry) Collectors() []prometheus.Collector {
	return []prometheus.Collector{r.admitted, r.denied}
}

// Attach installs bucket for loggerName, replacing any previous bucket.
func (r *Registry) Attach(loggerName string, bucket *TokenBucket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets[loggerName] = bucket
}

// Detach removes any bucket attached to loggerName.
func (r *Registry) Detach(loggerName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buckets, loggerName)
}

// Lookup returns the bucket attached to loggerName, if any.
func (r *Registry) Lookup(loggerName string) (*TokenBucket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buckets[loggerName]
	return b, ok
}

// Admit consults the bucket attached to loggerName, if any; loggers with no
// attached bucket are always admitted (spec.md §4.3 step 6: "if this
// logger_name has an attached rate limiter, consult it").
func (r *Registry) Admit(loggerName string, cost float64) bool {
	bucket, ok := r.Lookup(loggerName)
	if !ok {
		return true
	}
	ok = bucket.TryAcquire(cost, time.Time{})
	if ok {
		r.admitted.Inc()
	} else {
		r.denied.Inc()
	}
	return ok
}
