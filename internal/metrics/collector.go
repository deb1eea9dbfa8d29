// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records engine metrics to Prometheus.
type Collector struct {
	// Behavior tree metrics
	treeExecutionsTotal   *prometheus.CounterVec
	treeExecutionDuration *prometheus.HistogramVec

	// State machine metrics
	stateTransitionsTotal   *prometheus.CounterVec
	stateTransitionDuration *prometheus.HistogramVec
	timedTransitionsTotal   *prometheus.CounterVec

	// Persistence metrics
	persistenceOpsTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a metrics collector registered on reg.
// A nil reg registers on the default Prometheus registerer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.treeExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tree_executions_total",
			Help:      "Total number of behavior tree executions",
		},
		[]string{"tree", "status"},
	)

	c.treeExecutionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tree_execution_duration_seconds",
			Help:      "Behavior tree execution duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"tree"},
	)

	c.stateTransitionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of state machine transitions",
		},
		[]string{"machine", "from_state", "to_state"},
	)

	c.stateTransitionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "state_transition_duration_seconds",
			Help:      "State machine transition duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"machine"},
	)

	c.timedTransitionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timed_transitions_fired_total",
			Help:      "Total number of timed or scheduled transitions that fired",
		},
		[]string{"machine", "from_state", "to_state"},
	)

	c.persistenceOpsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_operations_total",
			Help:      "Total number of state persistence operations",
		},
		[]string{"machine", "operation", "status"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordTreeExecution records one behavior tree run.
func (c *Collector) RecordTreeExecution(tree, status string, duration time.Duration) {
	c.treeExecutionsTotal.WithLabelValues(tree, status).Inc()
	c.treeExecutionDuration.WithLabelValues(tree).Observe(duration.Seconds())
}

// RecordStateTransition records one completed state machine transition.
func (c *Collector) RecordStateTransition(machine, fromState, toState string, duration time.Duration) {
	c.stateTransitionsTotal.WithLabelValues(machine, fromState, toState).Inc()
	c.stateTransitionDuration.WithLabelValues(machine).Observe(duration.Seconds())
}

// RecordTimedTransition records a timed or scheduled transition firing.
func (c *Collector) RecordTimedTransition(machine, fromState, toState string) {
	c.timedTransitionsTotal.WithLabelValues(machine, fromState, toState).Inc()
}

// RecordPersistenceOperation records a snapshot save/load/delete outcome.
func (c *Collector) RecordPersistenceOperation(machine, operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.persistenceOpsTotal.WithLabelValues(machine, operation, status).Inc()
}
