package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects counters for turns and memory mutations.
type Metrics struct {
	mu sync.RWMutex

	Turns        int64
	TurnsFailed  int64
	FactsSaved   int64
	FactsPruned  int64
	ForgetMisses int64
	Duplicates   int64
	SavesBlocked int64
	Recalls      int64
	JudgeCalls   int64

	generationLatencies []time.Duration
	embedLatencies      []time.Duration

	exporter Exporter
}

func NewMetrics() *Metrics {
	return &Metrics{
		generationLatencies: make([]time.Duration, 0, 256),
		embedLatencies:      make([]time.Duration, 0, 256),
	}
}

func (m *Metrics) IncTurns()        { atomic.AddInt64(&m.Turns, 1) }
func (m *Metrics) IncTurnsFailed()  { atomic.AddInt64(&m.TurnsFailed, 1) }
func (m *Metrics) IncFactsSaved()   { atomic.AddInt64(&m.FactsSaved, 1) }
func (m *Metrics) IncFactsPruned()  { atomic.AddInt64(&m.FactsPruned, 1) }
func (m *Metrics) IncForgetMisses() { atomic.AddInt64(&m.ForgetMisses, 1) }
func (m *Metrics) IncDuplicates()   { atomic.AddInt64(&m.Duplicates, 1) }
func (m *Metrics) IncSavesBlocked() { atomic.AddInt64(&m.SavesBlocked, 1) }
func (m *Metrics) IncRecalls()      { atomic.AddInt64(&m.Recalls, 1) }
func (m *Metrics) IncJudgeCalls()   { atomic.AddInt64(&m.JudgeCalls, 1) }

// RecordGenerationLatency records how long one model completion took.
func (m *Metrics) RecordGenerationLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generationLatencies = append(m.generationLatencies, d)
}

// RecordEmbedLatency records how long one embedding call took.
func (m *Metrics) RecordEmbedLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedLatencies = append(m.embedLatencies, d)
}

// GetSummary returns a summary of collected metrics.
func (m *Metrics) GetSummary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := map[string]interface{}{
		"turns":         atomic.LoadInt64(&m.Turns),
		"turns_failed":  atomic.LoadInt64(&m.TurnsFailed),
		"facts_saved":   atomic.LoadInt64(&m.FactsSaved),
		"facts_pruned":  atomic.LoadInt64(&m.FactsPruned),
		"forget_misses": atomic.LoadInt64(&m.ForgetMisses),
		"duplicates":    atomic.LoadInt64(&m.Duplicates),
		"saves_blocked": atomic.LoadInt64(&m.SavesBlocked),
		"recalls":       atomic.LoadInt64(&m.Recalls),
		"judge_calls":   atomic.LoadInt64(&m.JudgeCalls),
	}

	if avg, ok := average(m.generationLatencies); ok {
		summary["avg_generation_ms"] = avg.Milliseconds()
	}
	if avg, ok := average(m.embedLatencies); ok {
		summary["avg_embed_ms"] = avg.Milliseconds()
	}
	return summary
}

func average(ds []time.Duration) (time.Duration, bool) {
	if len(ds) == 0 {
		return 0, false
	}
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total / time.Duration(len(ds)), true
}

// Reset zeroes every counter and drops recorded latencies.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range []*int64{
		&m.Turns, &m.TurnsFailed, &m.FactsSaved, &m.FactsPruned, &m.ForgetMisses,
		&m.Duplicates, &m.SavesBlocked, &m.Recalls, &m.JudgeCalls,
	} {
		atomic.StoreInt64(c, 0)
	}
	m.generationLatencies = m.generationLatencies[:0]
	m.embedLatencies = m.embedLatencies[:0]
}

// SetExporter attaches an exporter used by Flush.
func (m *Metrics) SetExporter(e Exporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exporter = e
}

// Flush writes the current counters through the exporter, if any.
func (m *Metrics) Flush(event string, labels map[string]string) error {
	m.mu.RLock()
	exporter := m.exporter
	m.mu.RUnlock()
	if exporter == nil {
		return nil
	}
	return exporter.Export(Report{
		At:       time.Now().UTC(),
		Event:    event,
		Counters: m.GetSummary(),
		Labels:   labels,
	})
}
