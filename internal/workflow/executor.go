package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// Inbound events that trigger workflow runs.
const (
	EventTicketCreated = "ticket/created.requested"
	EventTicketUpdated = "ticket/updated.requested"
)

// DefaultRetries is the executor-level retry bound applied when a
// workflow registers without its own.
const DefaultRetries = 3

// Event is the payload-bearing trigger for one workflow run.
type Event struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent builds an event with a fresh run identifier.
func NewEvent(name string, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// PayloadString returns a string payload field, or "" when absent.
func (e Event) PayloadString(key string) string {
	if v, ok := e.Payload[key].(string); ok {
		return v
	}
	return ""
}

// HandlerFunc executes one workflow run for an event.
type HandlerFunc func(ctx context.Context, run *Run, event Event) error

type registration struct {
	workflow string
	retries  int
	fn       HandlerFunc
}

// Executor dispatches events to registered workflow functions with
// at-least-once semantics: a failed run is re-executed up to the
// registered retry bound, and completed steps are memoized in the
// step store so a retried run resumes at the last uncompleted step.
type Executor struct {
	mu       sync.RWMutex
	handlers map[string]registration
	store    StepStore
	logger   *zap.Logger
	metrics  *observability.Metrics
	backoff  time.Duration
	wg       sync.WaitGroup
}

// NewExecutor creates an executor backed by the given step store.
func NewExecutor(store StepStore, logger *zap.Logger, metrics *observability.Metrics) *Executor {
	return &Executor{
		handlers: make(map[string]registration),
		store:    store,
		logger:   logger,
		metrics:  metrics,
		backoff:  time.Second,
	}
}

// SetBackoff overrides the pause between retry attempts.
func (e *Executor) SetBackoff(d time.Duration) {
	e.backoff = d
}

// Register binds a workflow function to an event name. retries < 0
// selects DefaultRetries.
func (e *Executor) Register(workflow, eventName string, retries int, fn HandlerFunc) {
	if retries < 0 {
		retries = DefaultRetries
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[eventName] = registration{workflow: workflow, retries: retries, fn: fn}
}

// Dispatch hands an event to its registered workflow and returns
// immediately; the run executes on its own goroutine, detached from
// the caller's cancellation.
func (e *Executor) Dispatch(ctx context.Context, event Event) error {
	e.mu.RLock()
	reg, ok := e.handlers[event.Name]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no workflow registered for event %q", event.Name)
	}

	runCtx := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.process(runCtx, reg, event)
	}()
	return nil
}

// Wait blocks until all in-flight runs finish. Used on shutdown and
// in tests.
func (e *Executor) Wait() {
	e.wg.Wait()
}

func (e *Executor) process(ctx context.Context, reg registration, event Event) {
	attempts := reg.retries + 1
	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		run := &Run{
			ID:     event.ID,
			store:  e.store,
			logger: e.logger.With(zap.String("workflow", reg.workflow), zap.String("run_id", event.ID)),
		}
		err = reg.fn(ctx, run, event)
		if err == nil {
			e.logger.Info("workflow run completed",
				zap.String("workflow", reg.workflow),
				zap.String("run_id", event.ID))
			e.metrics.RecordWorkflowRun(reg.workflow, observability.OutcomeCompleted)
			return
		}
		if isNonRetryable(err) {
			break
		}
		if attempt < attempts {
			e.logger.Warn("workflow attempt failed; retrying",
				zap.String("workflow", reg.workflow),
				zap.String("run_id", event.ID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if e.backoff > 0 {
				time.Sleep(e.backoff)
			}
		}
	}

	outcome := outcomeForError(err)
	e.logger.Error("workflow run failed",
		zap.String("workflow", reg.workflow),
		zap.String("run_id", event.ID),
		zap.String("outcome", outcome),
		zap.Error(err))
	e.metrics.RecordWorkflowRun(reg.workflow, outcome)
}

// Run carries the step memoization context of one workflow run. Step
// results are keyed by run ID and step name, so every step executes
// at most once per run across retries.
type Run struct {
	ID     string
	store  StepStore
	logger *zap.Logger
}

// Step executes a memoized step and returns its typed result. A
// result already present in the store is returned without executing
// fn again.
func Step[T any](ctx context.Context, r *Run, name string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if data, ok, err := r.store.Get(ctx, r.ID, name); err == nil && ok {
		var cached T
		if err := json.Unmarshal(data, &cached); err == nil {
			r.logger.Debug("step result memoized", zap.String("step", name))
			return cached, nil
		}
	}

	result, err := fn(ctx)
	if err != nil {
		return zero, fmt.Errorf("step %s: %w", name, err)
	}

	if data, err := json.Marshal(result); err == nil {
		if serr := r.store.Set(ctx, r.ID, name, data); serr != nil {
			r.logger.Warn("persist step result", zap.String("step", name), zap.Error(serr))
		}
	}
	return result, nil
}

// Do executes a memoized step that produces no result.
func (r *Run) Do(ctx context.Context, name string, fn func(context.Context) error) error {
	_, err := Step(ctx, r, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// nonRetryableError marks a deliberate terminal outcome the executor
// must not retry.
type nonRetryableError struct {
	err error
}

func (e *nonRetryableError) Error() string { return e.err.Error() }
func (e *nonRetryableError) Unwrap() error { return e.err }

// NonRetryable wraps an error so the executor fails the run without
// further attempts.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryableError{err: err}
}

func isNonRetryable(err error) bool {
	var nr *nonRetryableError
	return errors.As(err, &nr)
}
