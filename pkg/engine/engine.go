// Package engine provides the dispatcher that drives a station graph to
// completion. It seeds the entry stations, dequeues pending work units with a
// bounded wait, and executes each unit on its own worker goroutine under a
// bounded admission limiter, until the queue is empty and nothing is in
// flight.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/wehubfusion/Daedalus/internal/tracing"
	"github.com/wehubfusion/Daedalus/pkg/concurrency"
	"github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/queue"
	"github.com/wehubfusion/Daedalus/pkg/station"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultPollInterval is the bounded wait used when dequeuing pending units.
// Each time the wait elapses without a unit, the engine re-checks whether the
// run is complete.
const DefaultPollInterval = time.Second

// Failure records one work unit whose execution failed. Failures do not stop
// the run; unaffected branches keep making progress and the collected
// failures are surfaced on the Result after completion.
type Failure struct {
	// UnitID identifies the failed work unit.
	UnitID uuid.UUID

	// Station is the name of the station the unit was destined for.
	Station string

	// Item is the payload the unit carried.
	Item any

	// Err is the routing or processing error that terminated the unit.
	Err error
}

// Result summarizes one completed (or cancelled) run.
type Result struct {
	// RunID identifies the run in logs.
	RunID uuid.UUID

	// Completed is true when the run drained the queue with no work left in
	// flight. It is false when the run was cancelled.
	Completed bool

	// Processed is the number of work units executed without error.
	Processed int64

	// Failures lists every unit whose execution failed, in completion order.
	Failures []Failure

	// Duration is the wall-clock time the run took.
	Duration time.Duration
}

// Engine owns the shared queue and the admission limiter and drives one run
// from seeding through completion detection. An engine runs at most once;
// construct a new engine for each run.
type Engine struct {
	graph           *station.Graph
	limiter         *concurrency.Limiter
	queue           *queue.Queue
	logger          *zap.Logger
	pollInterval    time.Duration
	runID           uuid.UUID
	started         atomic.Bool
	inflight        atomic.Int64
	processed       atomic.Int64
	tracer          trace.Tracer
	tracingShutdown func(context.Context) error
}

// New creates an engine for the given station specs. workerLimit bounds how
// many station executions may run concurrently; when it is zero or negative
// the limit is taken from the environment-driven concurrency configuration.
// The logger is required. tracingConfig is optional - if nil, no tracing will
// be set up. Configuration errors in the specs (duplicate input names, output
// names with no consumer, missing producers) are returned here, before a run
// is ever reachable.
func New(workerLimit int, specs map[string]station.Spec, logger *zap.Logger, tracingConfig *TracingConfig) (*Engine, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	graph, err := station.NewGraph(specs)
	if err != nil {
		return nil, err
	}

	if workerLimit <= 0 {
		cfg := concurrency.LoadConfig()
		workerLimit = cfg.WorkerLimit
		logger.Info("Worker limit resolved from environment",
			zap.Int("worker_limit", workerLimit),
			zap.String("source", string(cfg.Source)))
	}

	e := &Engine{
		graph:        graph,
		limiter:      concurrency.NewLimiter(workerLimit),
		queue:        queue.New(),
		logger:       logger,
		pollInterval: DefaultPollInterval,
		runID:        uuid.New(),
		tracer:       otel.Tracer("daedalus/engine"),
	}

	// Setup tracing if configuration is provided
	if tracingConfig != nil {
		ctx := context.Background()
		shutdown, err := tracing.SetupTracing(ctx, tracingConfig.toInternalConfig(), logger)
		if err != nil {
			logger.Warn("Failed to setup tracing, continuing without tracing", zap.Error(err))
		} else {
			e.tracingShutdown = shutdown
			logger.Info("Tracing setup complete",
				zap.String("service", tracingConfig.ServiceName),
				zap.String("endpoint", tracingConfig.OTLPEndpoint))
		}
	}

	return e, nil
}

// SetPollInterval overrides the bounded dequeue wait. It must be called
// before Run.
func (e *Engine) SetPollInterval(d time.Duration) {
	if d > 0 {
		e.pollInterval = d
	}
}

// Graph returns the engine's immutable station graph.
func (e *Engine) Graph() *station.Graph {
	return e.graph
}

// Metrics returns the admission limiter's metrics for the run so far.
func (e *Engine) Metrics() concurrency.Metrics {
	return e.limiter.GetMetrics()
}

// Run drives the pipeline to completion and blocks until the queue is empty
// and no worker is in flight. It may be called at most once per engine; a
// second call fails with a rerun error without re-seeding or re-processing
// anything. On cancellation Run stops dispatching, waits for in-flight
// workers to finish their current units, and returns the context error with
// a partial Result.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if !e.started.CompareAndSwap(false, true) {
		return nil, errors.NewRerunError("Run may only be invoked once per engine")
	}

	start := time.Now()
	e.logger.Info("Run started",
		zap.String("run_id", e.runID.String()),
		zap.Int("worker_limit", e.limiter.Limit()),
		zap.Int("stations", e.graph.Len()),
		zap.Int("entry_stations", len(e.graph.Entries())))

	var (
		wg        sync.WaitGroup
		failures  = make(chan Failure, 16)
		collected []Failure
		done      = make(chan struct{})
	)
	go func() {
		defer close(done)
		for f := range failures {
			collected = append(collected, f)
		}
	}()

	// Seeding is admitted exactly like a worker so backpressure applies
	// from the very first items.
	if err := e.limiter.Acquire(ctx); err != nil {
		close(failures)
		<-done
		return e.result(start, false, collected), err
	}
	e.inflight.Add(1)
	wg.Add(1)
	go e.seed(&wg)

	runErr := e.dispatch(ctx, &wg, failures)

	// Workers still running keep their current units; wait for them so the
	// failure channel has no senders left before it is closed.
	wg.Wait()
	close(failures)
	<-done

	res := e.result(start, runErr == nil, collected)
	e.logger.Info("Run finished",
		zap.String("run_id", e.runID.String()),
		zap.Bool("completed", res.Completed),
		zap.Int64("processed", res.Processed),
		zap.Int("failures", len(res.Failures)),
		zap.Duration("duration", res.Duration))
	return res, runErr
}

// dispatch is the main loop: dequeue with a bounded wait, admit, spawn.
// It returns nil when the run is complete and the context error when
// cancelled.
func (e *Engine) dispatch(ctx context.Context, wg *sync.WaitGroup, failures chan<- Failure) error {
	for {
		unit, ok := e.queue.Dequeue(ctx, e.pollInterval)
		if !ok {
			if ctx.Err() != nil {
				e.logger.Info("Run cancelled",
					zap.String("run_id", e.runID.String()),
					zap.Error(ctx.Err()))
				return ctx.Err()
			}
			// Queue length alone cannot distinguish "done" from "all items
			// currently inside workers": a worker enqueues its fan-out
			// before it leaves the in-flight count, so inflight == 0 with
			// an empty queue means nothing is left anywhere.
			if e.inflight.Load() == 0 && e.queue.Len() == 0 {
				return nil
			}
			continue
		}

		// Blocks while the pool is saturated; this is the run's only
		// backpressure mechanism.
		if err := e.limiter.Acquire(ctx); err != nil {
			e.logger.Info("Run cancelled while awaiting admission",
				zap.String("run_id", e.runID.String()),
				zap.Error(err))
			return err
		}
		e.inflight.Add(1)
		wg.Add(1)
		go e.work(ctx, unit, wg, failures)
	}
}

// seed enqueues one nil-payload unit per entry station, then leaves the
// in-flight count and releases its pre-acquired admission slot.
func (e *Engine) seed(wg *sync.WaitGroup) {
	defer func() {
		e.inflight.Add(-1)
		e.limiter.Release()
		wg.Done()
	}()

	for _, entry := range e.graph.Entries() {
		unit := queue.NewUnit(entry, nil)
		e.logger.Debug("Seeding entry station",
			zap.String("run_id", e.runID.String()),
			zap.String("station", entry.Name()),
			zap.String("unit_id", unit.ID.String()))
		e.queue.Enqueue(unit)
	}
}

// work executes one unit, fans its outputs out to the queue, and records a
// failure when the producer or routing fails. The fan-out enqueues happen
// before the in-flight decrement, which termination detection relies on.
func (e *Engine) work(ctx context.Context, unit queue.Unit, wg *sync.WaitGroup, failures chan<- Failure) {
	defer func() {
		e.inflight.Add(-1)
		e.limiter.Release()
		wg.Done()
	}()

	ctx, span := e.tracer.Start(ctx, "engine.work",
		trace.WithAttributes(
			attribute.String("run.id", e.runID.String()),
			attribute.String("unit.id", unit.ID.String()),
			attribute.String("station", unit.Station.Name()),
		))
	defer span.End()

	start := time.Now()
	err := e.execute(ctx, unit)
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int64("processing.duration_ms", elapsed.Milliseconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("Work unit failed",
			zap.String("run_id", e.runID.String()),
			zap.String("unit_id", unit.ID.String()),
			zap.String("station", unit.Station.Name()),
			zap.Duration("processing_time", elapsed),
			zap.Error(err))
		failures <- Failure{
			UnitID:  unit.ID,
			Station: unit.Station.Name(),
			Item:    unit.Item,
			Err:     err,
		}
		return
	}

	span.SetStatus(codes.Ok, "Unit processed successfully")
	e.processed.Add(1)
	e.logger.Debug("Work unit processed",
		zap.String("run_id", e.runID.String()),
		zap.String("unit_id", unit.ID.String()),
		zap.String("station", unit.Station.Name()),
		zap.Duration("processing_time", elapsed))
}

// execute runs the station against the unit's item, converting producer
// panics into processing errors so a misbehaving producer cannot take the
// whole run down.
func (e *Engine) execute(ctx context.Context, unit queue.Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewProcessingError(
				fmt.Sprintf("station %q panicked: %v", unit.Station.Name(), r), nil)
		}
	}()

	return unit.Station.Execute(ctx, unit.Item, func(dest *station.Station, item any) error {
		e.queue.Enqueue(queue.NewUnit(dest, item))
		return nil
	})
}

func (e *Engine) result(start time.Time, completed bool, failures []Failure) *Result {
	return &Result{
		RunID:     e.runID,
		Completed: completed,
		Processed: e.processed.Load(),
		Failures:  failures,
		Duration:  time.Since(start),
	}
}

// Close gracefully shuts down the engine's tracing resources. This should be
// called when the engine is no longer needed.
func (e *Engine) Close() error {
	if e.tracingShutdown != nil {
		return tracing.ShutdownTracing(e.tracingShutdown, e.logger)
	}
	return nil
}
