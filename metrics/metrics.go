// Package metrics exposes prometheus collectors for LLM calls, chapters, diagrams and tenders.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auto_bid_writer/generator"
)

const namespace = "bidgen"

// Outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeTimeout     = "timeout"
	OutcomePlaceholder = "placeholder"
	OutcomeRevised     = "revised"
	OutcomeFailed      = "failed"
	OutcomeAborted     = "aborted"
	OutcomeSkipped     = "skipped"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	llmRequests *prometheus.CounterVec
	llmDuration *prometheus.HistogramVec
	chapters    *prometheus.CounterVec
	diagrams    *prometheus.CounterVec
	tenders     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "LLM completion requests by persona and outcome.",
		}, []string{"persona", "outcome"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM completion latency by persona.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120, 240},
		}, []string{"persona"}),
		chapters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chapters_total",
			Help:      "Synthesized chapters by outcome.",
		}, []string{"outcome"}),
		diagrams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagrams_total",
			Help:      "Rendered diagrams by outcome.",
		}, []string{"outcome"}),
		tenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenders_total",
			Help:      "Tender runs by outcome.",
		}, []string{"outcome"}),
	}
	for _, c := range []prometheus.Collector{m.llmRequests, m.llmDuration, m.chapters, m.diagrams, m.tenders} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry in the prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// InstrumentLLM wraps llm so every call is counted and timed by persona.
func (m *Metrics) InstrumentLLM(llm generator.LLMClient) generator.LLMClient {
	if m == nil {
		return llm
	}
	return generator.LLMFunc(func(ctx context.Context, p generator.Prompt) (string, error) {
		start := time.Now()
		out, err := llm.Complete(ctx, p)
		m.llmDuration.WithLabelValues(p.Persona).Observe(time.Since(start).Seconds())
		m.llmRequests.WithLabelValues(p.Persona, callOutcome(err)).Inc()
		return out, err
	})
}

func callOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

// ObserveChapter records a finished chapter draft.
func (m *Metrics) ObserveChapter(d generator.ChapterDraft) {
	if m == nil {
		return
	}
	switch {
	case d.Failed():
		m.chapters.WithLabelValues(OutcomePlaceholder).Inc()
	case d.Revised:
		m.chapters.WithLabelValues(OutcomeRevised).Inc()
	default:
		m.chapters.WithLabelValues(OutcomeOK).Inc()
	}
}

// ObserveDiagram matches publisher.LayoutOptions.OnDiagram.
func (m *Metrics) ObserveDiagram(ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeFailed
	}
	m.diagrams.WithLabelValues(outcome).Inc()
}

// ObserveTender records the end of one tender run.
func (m *Metrics) ObserveTender(outcome string) {
	if m == nil {
		return
	}
	m.tenders.WithLabelValues(outcome).Inc()
}
