// Package metrics exposes Prometheus instrumentation for the evaluator:
// reasoner builds, atom evaluations, applied edits and learned clauses.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "hexowl"

// Outcome labels for evaluations.
const (
	OutcomeOK           = "ok"
	OutcomeInconsistent = "inconsistent"
	OutcomeReused       = "reused"
	OutcomeError        = "error"
)

var (
	// reasonerBuilds counts reasoner snapshots built after load or mutation.
	reasonerBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reasoner",
		Name:      "builds_total",
		Help:      "Total reasoner snapshots built",
	})

	// reasonerBuildDuration measures snapshot construction time.
	reasonerBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "reasoner",
		Name:      "build_duration_seconds",
		Help:      "Reasoner snapshot build latency in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	// evaluations counts external atom evaluations.
	// Labels: atom, outcome (ok, inconsistent, reused, error)
	evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "atoms",
		Name:      "evaluations_total",
		Help:      "Total external atom evaluations by outcome",
	}, []string{"atom", "outcome"})

	// evaluationDuration measures atom evaluation latency.
	// Labels: atom
	evaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "atoms",
		Name:      "evaluation_duration_seconds",
		Help:      "External atom evaluation latency in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"atom"})

	// editsApplied counts effective hypothetical edits.
	// Labels: kind (addc, delc, addop, delop, adddp, deldp)
	editsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "knowledge",
		Name:      "edits_applied_total",
		Help:      "Total effective edits applied to store contexts",
	}, []string{"kind"})

	// openContexts tracks store contexts held by registries.
	openContexts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "knowledge",
		Name:      "open_contexts",
		Help:      "Store contexts currently open",
	})

	// nogoodsLearned counts emitted conflict clauses.
	// Labels: source (alternative, current)
	nogoodsLearned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "learning",
		Name:      "nogoods_total",
		Help:      "Total conflict clauses emitted",
	}, []string{"source"})
)

// ObserveReasonerBuild records one snapshot build.
func ObserveReasonerBuild(d time.Duration) {
	reasonerBuilds.Inc()
	reasonerBuildDuration.Observe(d.Seconds())
}

// ObserveEvaluation records one atom evaluation.
func ObserveEvaluation(atom, outcome string, d time.Duration) {
	evaluations.WithLabelValues(atom, outcome).Inc()
	evaluationDuration.WithLabelValues(atom).Observe(d.Seconds())
}

// AddEdits counts an effective edit of the given kind.
func AddEdits(kind string, n int) {
	editsApplied.WithLabelValues(kind).Add(float64(n))
}

// ContextOpened and ContextClosed move the open-context gauge.
func ContextOpened() { openContexts.Inc() }

func ContextClosed() { openContexts.Dec() }

// NogoodLearned counts a clause by source.
func NogoodLearned(source string) {
	nogoodsLearned.WithLabelValues(source).Inc()
}

// Dump writes every hexowl metric family in the text exposition format.
func Dump(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), namespace+"_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
