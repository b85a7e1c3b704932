package observability

import (
	"sort"
	"sync"
	"time"

	"cantina/internal/reliability"
)

type MethodSnapshot struct {
	Count         int64   `json:"count"`
	Errors        int64   `json:"errors"`
	InFlight      int64   `json:"in_flight"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	LastLatencyMs float64 `json:"last_latency_ms"`
}

type SagaSnapshot struct {
	Started     int64 `json:"started"`
	Completed   int64 `json:"completed"`
	Compensated int64 `json:"compensated"`
}

type Snapshot struct {
	UptimeSec       int64                      `json:"uptime_sec"`
	TotalRequests   int64                      `json:"total_requests"`
	TotalErrors     int64                      `json:"total_errors"`
	InFlight        int64                      `json:"in_flight"`
	RateLimitWaits  int64                      `json:"rate_limit_waits"`
	RateLimitWaitMs int64                      `json:"rate_limit_wait_ms"`
	Sagas           map[string]SagaSnapshot    `json:"sagas"`
	Breakers        []reliability.BreakerStats `json:"breakers"`
	Methods         map[string]MethodSnapshot  `json:"methods"`
}

type methodStats struct {
	count        int64
	errors       int64
	inFlight     int64
	totalLatency time.Duration
	maxLatency   time.Duration
	lastLatency  time.Duration
}

type sagaStats struct {
	started     int64
	completed   int64
	compensated int64
}

// Metrics aggregates request spans, saga outcomes, rate-limit waits and
// registered breaker stats behind one mutex.
type Metrics struct {
	mu             sync.Mutex
	start          time.Time
	methods        map[string]*methodStats
	sagas          map[string]*sagaStats
	breakers       map[string]func() reliability.BreakerStats
	rateLimitWaits int64
	rateLimitWait  time.Duration
}

type CallSpan struct {
	metrics *Metrics
	method  string
	start   time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		start:    time.Now(),
		methods:  make(map[string]*methodStats),
		sagas:    make(map[string]*sagaStats),
		breakers: make(map[string]func() reliability.BreakerStats),
	}
}

func (m *Metrics) Start(method string) *CallSpan {
	if m == nil {
		return &CallSpan{}
	}
	m.mu.Lock()
	stats := m.ensureMethod(method)
	stats.inFlight++
	m.mu.Unlock()
	return &CallSpan{
		metrics: m,
		method:  method,
		start:   time.Now(),
	}
}

func (s *CallSpan) End(err error) {
	if s == nil || s.metrics == nil {
		return
	}
	dur := time.Since(s.start)
	s.metrics.finish(s.method, dur, err != nil)
}

func (m *Metrics) AddRateLimitWait(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.mu.Lock()
	m.rateLimitWaits++
	m.rateLimitWait += d
	m.mu.Unlock()
}

// SagaStarted counts one saga run beginning.
func (m *Metrics) SagaStarted(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.ensureSaga(name).started++
	m.mu.Unlock()
}

// SagaCompleted counts one run where every step succeeded.
func (m *Metrics) SagaCompleted(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.ensureSaga(name).completed++
	m.mu.Unlock()
}

// SagaCompensated counts one run that was rolled back.
func (m *Metrics) SagaCompensated(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.ensureSaga(name).compensated++
	m.mu.Unlock()
}

// RegisterBreaker adds a breaker stats source to the snapshot. Re-registering
// a name replaces the previous source.
func (m *Metrics) RegisterBreaker(name string, stats func() reliability.BreakerStats) {
	if m == nil || stats == nil {
		return
	}
	m.mu.Lock()
	m.breakers[name] = stats
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	snap := Snapshot{
		UptimeSec:       int64(now.Sub(m.start).Seconds()),
		Methods:         make(map[string]MethodSnapshot),
		Sagas:           make(map[string]SagaSnapshot),
		RateLimitWaits:  m.rateLimitWaits,
		RateLimitWaitMs: int64(m.rateLimitWait / time.Millisecond),
	}

	for method, stats := range m.methods {
		avg := 0.0
		if stats.count > 0 {
			avg = float64(stats.totalLatency.Milliseconds()) / float64(stats.count)
		}
		snap.Methods[method] = MethodSnapshot{
			Count:         stats.count,
			Errors:        stats.errors,
			InFlight:      stats.inFlight,
			AvgLatencyMs:  avg,
			MaxLatencyMs:  float64(stats.maxLatency.Milliseconds()),
			LastLatencyMs: float64(stats.lastLatency.Milliseconds()),
		}
		snap.TotalRequests += stats.count
		snap.TotalErrors += stats.errors
		snap.InFlight += stats.inFlight
	}

	for name, stats := range m.sagas {
		snap.Sagas[name] = SagaSnapshot{
			Started:     stats.started,
			Completed:   stats.completed,
			Compensated: stats.compensated,
		}
	}

	names := make([]string, 0, len(m.breakers))
	for name := range m.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		snap.Breakers = append(snap.Breakers, m.breakers[name]())
	}

	return snap
}

func (m *Metrics) ensureMethod(method string) *methodStats {
	stats, ok := m.methods[method]
	if !ok {
		stats = &methodStats{}
		m.methods[method] = stats
	}
	return stats
}

func (m *Metrics) ensureSaga(name string) *sagaStats {
	stats, ok := m.sagas[name]
	if !ok {
		stats = &sagaStats{}
		m.sagas[name] = stats
	}
	return stats
}

func (m *Metrics) finish(method string, dur time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	stats := m.ensureMethod(method)
	stats.inFlight--
	stats.count++
	if failed {
		stats.errors++
	}
	stats.totalLatency += dur
	if dur > stats.maxLatency {
		stats.maxLatency = dur
	}
	stats.lastLatency = dur
	m.mu.Unlock()
}
