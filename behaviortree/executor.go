package behaviortree

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/internal/metrics"
)

// Result captures the outcome of one tree run.
type Result struct {
	TreeName  string        `json:"tree_name"`
	RunID     string        `json:"run_id"`
	Status    Status        `json:"status"`
	Err       error         `json:"-"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Executor runs a Tree once per call, recording timing, tracing and
// metrics. It is the top-level fault boundary for a tree run: any panic or
// error escaping the root is caught, marked on the trace, and returned as a
// Failure result — Execute never panics and the Result always carries a
// terminal status.
type Executor[C any] struct {
	logger    *zap.Logger
	tracer    trace.Tracer
	collector *metrics.Collector
}

// NewExecutor creates a tree executor. logger may be nil; collector may be
// nil to disable metrics.
func NewExecutor[C any](logger *zap.Logger, collector *metrics.Collector) *Executor[C] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor[C]{
		logger:    logger.With(zap.String("component", "tree_executor")),
		tracer:    otel.Tracer("agentcore/behaviortree"),
		collector: collector,
	}
}

// Execute runs the tree once (a single tick).
func (e *Executor[C]) Execute(ctx context.Context, tree *Tree[C], data C) Result {
	runID := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "tree.execute",
		trace.WithAttributes(
			attribute.String("tree.name", tree.Name()),
			attribute.String("tree.run_id", runID),
		),
	)
	defer span.End()

	start := time.Now()
	status, err := e.run(ctx, tree, data)
	duration := time.Since(start)

	if err != nil {
		status = StatusFailure
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("tree execution errored",
			zap.String("tree", tree.Name()),
			zap.String("run_id", runID),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	} else {
		e.logger.Debug("tree execution completed",
			zap.String("tree", tree.Name()),
			zap.String("run_id", runID),
			zap.String("status", status.String()),
			zap.Duration("duration", duration),
		)
	}
	span.SetAttributes(
		attribute.String("tree.status", status.String()),
		attribute.Int64("tree.duration_ms", duration.Milliseconds()),
	)

	if e.collector != nil {
		e.collector.RecordTreeExecution(tree.Name(), status.String(), duration)
	}

	return Result{
		TreeName:  tree.Name(),
		RunID:     runID,
		Status:    status,
		Err:       err,
		StartedAt: start,
		Duration:  duration,
	}
}

// run invokes the root with panic protection. Leaves already convert their
// own failures, but composite bugs and bridge nodes can still escape.
func (e *Executor[C]) run(ctx context.Context, tree *Tree[C], data C) (status Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			status = StatusFailure
			err = fmt.Errorf("tree %s panicked: %v", tree.Name(), r)
		}
	}()
	return tree.Execute(ctx, data)
}
