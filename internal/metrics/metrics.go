// Package metrics records exploration progress as Prometheus metrics.
//
// Every Recorder owns its own registry, so several sessions in one process
// (tests, the harness) never share counters. A nil *Recorder is valid and
// records nothing.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "concuerror"

// Run outcomes used as the "outcome" label of RunsTotal.
const (
	OutcomeOK    = "ok"
	OutcomeFault = "fault"
)

// Recorder holds the exploration metrics.
type Recorder struct {
	registry *prometheus.Registry

	// RunsTotal counts completed executions.
	// Labels: outcome (ok, fault)
	RunsTotal *prometheus.CounterVec

	// TicketsTotal counts recorded tickets.
	// Labels: kind (crash, deadlock, assertion, step_limit)
	TicketsTotal *prometheus.CounterVec

	// RoundsTotal counts completed preemption rounds.
	RoundsTotal prometheus.Counter

	// FrontierPending is the number of schedules waiting in the frontier.
	FrontierPending prometheus.Gauge

	// FrontierDuplicates counts alternatives the frontier dropped as already seen.
	FrontierDuplicates prometheus.Counter

	// RunDecisions is the distribution of decisions per run.
	RunDecisions prometheus.Histogram
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed target executions by outcome",
		}, []string{"outcome"}),
		TicketsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_total",
			Help:      "Recorded error tickets by kind",
		}, []string{"kind"}),
		RoundsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Completed preemption rounds",
		}),
		FrontierPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_pending",
			Help:      "Schedules queued in the frontier",
		}),
		FrontierDuplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frontier_duplicates_total",
			Help:      "Saved schedules dropped as already queued or explored",
		}),
		RunDecisions: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_decisions",
			Help:      "Scheduling decisions per execution",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// Registry returns the registry the metrics are registered with.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordRun counts one completed execution of the given number of
// decisions.
func (r *Recorder) RecordRun(outcome string, decisions int) {
	if r == nil {
		return
	}
	r.RunsTotal.WithLabelValues(outcome).Inc()
	r.RunDecisions.Observe(float64(decisions))
}

// RecordTicket counts one ticket of kind.
func (r *Recorder) RecordTicket(kind string) {
	if r == nil {
		return
	}
	r.TicketsTotal.WithLabelValues(kind).Inc()
}

// RecordRound counts one completed round.
func (r *Recorder) RecordRound() {
	if r == nil {
		return
	}
	r.RoundsTotal.Inc()
}

// SetPending sets the frontier size.
func (r *Recorder) SetPending(n int) {
	if r == nil {
		return
	}
	r.FrontierPending.Set(float64(n))
}

// RecordDuplicate counts one schedule the frontier refused as a duplicate.
func (r *Recorder) RecordDuplicate() {
	if r == nil {
		return
	}
	r.FrontierDuplicates.Inc()
}

// WriteText writes every metric in the Prometheus text exposition format.
func (r *Recorder) WriteText(w io.Writer) error {
	if r == nil {
		return nil
	}
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
