package flightplan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/simon020286/go-flightplan/builder"
	"github.com/simon020286/go-flightplan/models"
)

// DefaultFinallyTimeout bounds the finally steps when none is configured
const DefaultFinallyTimeout = 10 * time.Second

// RunState is the terminal state of a run
type RunState string

const (
	// StateCompleted means every step ran
	StateCompleted RunState = "completed"
	// StateExited means an action requested the end of the sequence
	StateExited RunState = "exited"
	// StateAborted means a failing step with the abort policy ended the run
	StateAborted RunState = "aborted"
	// StateCancelled means the run context ended before the last step
	StateCancelled RunState = "cancelled"
)

// StepResult is the outcome of a single step
type StepResult struct {
	ID        string
	Phase     models.Phase
	StartedAt time.Time
	Duration  time.Duration
	Err       error // nil on success, *models.ActionError otherwise
	Exited    bool  // the action returned models.ErrExit
	Skipped   bool  // the step never ran
}

// Report summarises a finished run
type Report struct {
	RunID     string
	State     RunState
	StartedAt time.Time
	Duration  time.Duration
	Steps     []StepResult
	Err       error // cause of an abort or cancellation
}

// Failed returns the steps whose action failed
func (r *Report) Failed() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// Ran reports whether the sequence reached its end, by exhausting the
// steps or through an exit action
func (r *Report) Ran() bool {
	return r.State == StateCompleted || r.State == StateExited
}

// Runner executes an ordered list of steps, one at a time, waiting each
// step's delay before invoking its action.
type Runner struct {
	steps   []*models.Step
	finally []*models.Step
	mutex   sync.RWMutex

	clock          clockwork.Clock
	logger         *slog.Logger
	finallyTimeout time.Duration
	runID          string

	// Lifecycle management
	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
	used    atomic.Bool
	done    chan struct{}
	report  *Report

	sched    *schedule
	eventBus *eventBus

	// Action given up on by an earlier invoke, still running.
	// Only touched by the run goroutine.
	abandoned <-chan error
}

// NewRunner creates a runner on the real clock
func NewRunner() *Runner {
	clock := clockwork.NewRealClock()
	runID := builder.GenerateRunID()
	return &Runner{
		clock:          clock,
		logger:         slog.Default(),
		finallyTimeout: DefaultFinallyTimeout,
		runID:          runID,
		done:           make(chan struct{}),
		sched:          newSchedule(clock),
		eventBus:       newEventBus(runID, clock),
	}
}

// RunID returns the identifier stamped on every event of this runner
func (r *Runner) RunID() string {
	return r.runID
}

// SetClock replaces the clock used for delays, timeouts and timestamps.
// It must be called before Start.
func (r *Runner) SetClock(clock clockwork.Clock) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.clock = clock
	r.sched = newSchedule(clock)
	r.eventBus.setClock(clock)
}

// Clock returns the runner's clock
func (r *Runner) Clock() clockwork.Clock {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.clock
}

// SetLogger sets the logger for step failures and lifecycle messages
func (r *Runner) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.logger = logger
}

// SetFinallyTimeout bounds the total time of the finally steps.
// Zero or negative restores the default.
func (r *Runner) SetFinallyTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultFinallyTimeout
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.finallyTimeout = d
}

// AddListener adds a listener to receive events from the runner
func (r *Runner) AddListener(listener models.EventListener) {
	r.eventBus.addListener(listener)
}

// AddStep appends a step to the timed sequence.
// An empty ID is replaced with step-N.
func (r *Runner) AddStep(step *models.Step) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.steps = append(r.steps, r.prepare(step, "step", len(r.steps)+1))
}

// AddFinally appends a step run on abort or cancellation, without its delay
func (r *Runner) AddFinally(step *models.Step) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.finally = append(r.finally, r.prepare(step, "finally", len(r.finally)+1))
}

func (r *Runner) prepare(step *models.Step, prefix string, n int) *models.Step {
	if step == nil {
		panic("step cannot be nil")
	}
	if step.Action == nil {
		panic("step action cannot be nil")
	}
	if step.ID == "" {
		step.ID = fmt.Sprintf("%s-%d", prefix, n)
	}
	if step.OnError == "" {
		step.OnError = models.OnErrorContinue
	}
	return step
}

// Steps returns the timed steps in order
func (r *Runner) Steps() []*models.Step {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]*models.Step(nil), r.steps...)
}

// Validate checks that the sequence can run
// - At least one step
// - Non-negative delays and timeouts
// - Unique step IDs across steps and finally steps
func (r *Runner) Validate() error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if len(r.steps) == 0 {
		return fmt.Errorf("runner has no steps")
	}

	seen := make(map[string]bool)
	all := append(append([]*models.Step(nil), r.steps...), r.finally...)
	for _, step := range all {
		if seen[step.ID] {
			return fmt.Errorf("duplicate step ID '%s'", step.ID)
		}
		seen[step.ID] = true

		if step.Delay < 0 {
			return fmt.Errorf("step '%s': negative delay %s", step.ID, step.Delay)
		}
		if step.Timeout < 0 {
			return fmt.Errorf("step '%s': negative timeout %s", step.ID, step.Timeout)
		}
		if _, err := models.ParseErrorPolicy(string(step.OnError), models.OnErrorContinue); err != nil {
			return fmt.Errorf("step '%s': %w", step.ID, err)
		}
	}
	return nil
}

// Start runs the sequence in background (non blocking).
// A runner runs once; starting it again returns an error.
func (r *Runner) Start(parentCtx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return fmt.Errorf("runner already running")
	}
	if r.used.Load() {
		r.running.Store(false)
		return fmt.Errorf("runner already used")
	}

	if err := r.Validate(); err != nil {
		r.running.Store(false)
		return fmt.Errorf("runner validation failed: %w", err)
	}
	r.used.Store(true)

	ctx, cancel := context.WithCancel(parentCtx)
	r.mutex.Lock()
	r.ctx, r.cancel = ctx, cancel
	r.mutex.Unlock()

	go func() {
		defer func() {
			cancel()
			r.running.Store(false)
			close(r.done)
		}()

		report := r.execute(ctx)

		r.mutex.Lock()
		r.report = report
		r.mutex.Unlock()
	}()

	return nil
}

// Stop cancels the run and waits for the finally steps to finish
func (r *Runner) Stop() error {
	if !r.running.Load() {
		return fmt.Errorf("runner not running")
	}

	r.mutex.RLock()
	cancel := r.cancel
	r.mutex.RUnlock()
	if cancel != nil {
		cancel()
	}

	timeout := time.After(30 * time.Second)
	select {
	case <-r.done:
		return nil
	case <-timeout:
		return fmt.Errorf("runner stop timeout")
	}
}

// Wait waits for the run to end. Called before Start, it also waits for
// the run to start.
func (r *Runner) Wait() {
	<-r.done
}

// IsRunning indicates whether the runner is currently executing
func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// Report returns the report of the finished run, nil before the run ends
func (r *Runner) Report() *Report {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.report
}

// Execute runs the sequence and blocks until it ends.
// Action failures are part of the report, not of the returned error.
func (r *Runner) Execute(ctx context.Context) (*Report, error) {
	if err := r.Start(ctx); err != nil {
		return nil, err
	}
	r.Wait()
	return r.Report(), nil
}

// execute is the internal run loop
func (r *Runner) execute(ctx context.Context) *Report {
	r.mutex.RLock()
	steps := r.steps
	finally := r.finally
	clock := r.clock
	logger := r.logger
	r.mutex.RUnlock()

	// Nothing armed by this run outlives it
	defer r.sched.clear()

	report := &Report{
		RunID:     r.runID,
		State:     StateCompleted,
		StartedAt: clock.Now(),
	}
	r.eventBus.EmitRunStarted(len(steps))

	for i, step := range steps {
		r.eventBus.EmitStepScheduled(step.ID, models.PhaseMain, step.Delay)

		if err := r.sleep(ctx, step.Delay); err != nil {
			report.State = StateCancelled
			report.Err = err
			r.skip(report, steps[i:])
			break
		}

		result := r.runStep(ctx, step, models.PhaseMain)
		report.Steps = append(report.Steps, result)

		if result.Exited {
			report.State = StateExited
			r.skip(report, steps[i+1:])
			break
		}
		if result.Err == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			report.State = StateCancelled
			report.Err = err
			r.skip(report, steps[i+1:])
			break
		}
		if step.OnError == models.OnErrorAbort {
			report.State = StateAborted
			report.Err = result.Err
			r.skip(report, steps[i+1:])
			break
		}
	}

	if report.State == StateAborted || report.State == StateCancelled {
		logger.Warn("sequence interrupted, running finally steps", "state", report.State, "error", report.Err)
		report.Steps = append(report.Steps, r.runFinally(ctx, finally)...)
	}

	report.Duration = clock.Since(report.StartedAt)
	if report.Err != nil {
		r.eventBus.EmitRunError(report.State, report.Err)
	}
	r.eventBus.EmitRunCompleted(report.State, report.Duration)
	return report
}

// sleep waits d on the runner's clock, or until ctx ends
func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	fired, release := r.sched.after(d)
	defer release()

	select {
	case <-fired:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runStep invokes one action and turns its outcome into a StepResult
func (r *Runner) runStep(ctx context.Context, step *models.Step, phase models.Phase) StepResult {
	clock := r.Clock()
	result := StepResult{
		ID:        step.ID,
		Phase:     phase,
		StartedAt: clock.Now(),
	}
	r.eventBus.EmitStepStarted(step.ID, phase)

	err := r.invoke(ctx, step)
	result.Duration = clock.Since(result.StartedAt)

	if errors.Is(err, models.ErrExit) {
		result.Exited = true
		err = nil
	}
	if err != nil {
		result.Err = models.ErrAction(step.ID, err)
		r.logger.Warn("step failed", "step", step.ID, "phase", phase, "error", err)
		r.eventBus.EmitStepError(step.ID, phase, err)
		return result
	}

	r.eventBus.EmitStepCompleted(step.ID, phase, result.Duration)
	return result
}

// invoke calls the action and returns when it does, when the step
// timeout expires or when ctx ends. An action given up on keeps running
// with its context cancelled, and no later action starts before it returns.
func (r *Runner) invoke(ctx context.Context, step *models.Step) error {
	if err := r.settle(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}

	var expired <-chan time.Time
	if step.Timeout > 0 {
		var release func()
		expired, release = r.sched.after(step.Timeout)
		defer release()
	}

	actionCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- safeCall(actionCtx, step.Action)
	}()

	select {
	case err := <-done:
		cancel()
		return err
	case <-expired:
		cancel()
		r.abandoned = done
		return fmt.Errorf("%w after %s", models.ErrActionTimeout, step.Timeout)
	case <-ctx.Done():
		cancel()
		r.abandoned = done
		return context.Cause(ctx)
	}
}

// settle waits for an abandoned action to return, or for ctx to end
func (r *Runner) settle(ctx context.Context) error {
	if r.abandoned == nil {
		return nil
	}

	select {
	case err := <-r.abandoned:
		r.abandoned = nil
		if err != nil {
			r.logger.Debug("abandoned action returned", "error", err)
		}
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// runFinally runs the finally steps in order under a fresh context that
// survives the cancellation of ctx but is bounded by the finally timeout.
// At the deadline the running step and the ones after it fail with
// ErrActionTimeout.
func (r *Runner) runFinally(ctx context.Context, steps []*models.Step) []StepResult {
	if len(steps) == 0 {
		return nil
	}

	r.mutex.RLock()
	timeout := r.finallyTimeout
	r.mutex.RUnlock()

	finallyCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	defer cancel(nil)

	expired, release := r.sched.after(timeout)
	defer release()
	go func() {
		select {
		case <-expired:
			cancel(fmt.Errorf("%w: finally steps exceeded %s", models.ErrActionTimeout, timeout))
		case <-finallyCtx.Done():
		}
	}()

	results := make([]StepResult, 0, len(steps))
	for _, step := range steps {
		results = append(results, r.runStep(finallyCtx, step, models.PhaseFinally))
	}
	return results
}

// skip records steps that will never run
func (r *Runner) skip(report *Report, steps []*models.Step) {
	for _, step := range steps {
		r.eventBus.EmitStepSkipped(step.ID, models.PhaseMain)
		report.Steps = append(report.Steps, StepResult{
			ID:      step.ID,
			Phase:   models.PhaseMain,
			Skipped: true,
		})
	}
}

// safeCall runs action, converting a panic into a *models.PanicError
func safeCall(ctx context.Context, action models.Action) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &models.PanicError{Value: v}
		}
	}()
	return action(ctx)
}
