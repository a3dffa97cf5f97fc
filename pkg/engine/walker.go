package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StepStatus is the lifecycle state of one container during a walk.
type StepStatus string

const (
	// StepStatusPending means the step has not run yet.
	StepStatusPending StepStatus = "pending"

	// StepStatusRunning means the step is executing.
	StepStatusRunning StepStatus = "running"

	// StepStatusSucceeded means the step completed without error.
	StepStatusSucceeded StepStatus = "succeeded"

	// StepStatusFailed means the step returned an error.
	StepStatusFailed StepStatus = "failed"

	// StepStatusSkipped means a dependency did not succeed, so the step
	// never ran.
	StepStatusSkipped StepStatus = "skipped"

	// StepStatusCancelled means the walk stopped before the step ran.
	StepStatusCancelled StepStatus = "cancelled"
)

// IsTerminal reports whether the status is final.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepStatusSucceeded, StepStatusFailed, StepStatusSkipped, StepStatusCancelled:
		return true
	}
	return false
}

// StepFunc is the action a walk runs once per container. The container
// name is always present in the walked model.
type StepFunc func(ctx context.Context, container string) error

// StepResult records the outcome of one step.
type StepResult struct {
	// Container is the container the step ran for.
	Container string `json:"container"`

	// Status is the final step status.
	Status StepStatus `json:"status"`

	// Err is the step error for failed steps, or ErrDependencyFailed
	// for skipped ones.
	Err error `json:"-"`

	// Duration is how long the step ran. Zero for steps that never ran.
	Duration time.Duration `json:"duration"`
}

// WalkReport summarizes a completed walk.
type WalkReport struct {
	// Results holds the outcome of every container in the plan.
	Results map[string]*StepResult `json:"results"`

	// Succeeded, Failed, Skipped and Cancelled count results by status.
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Cancelled int `json:"cancelled"`

	// Duration is the wall-clock time of the whole walk.
	Duration time.Duration `json:"duration"`
}

// AllSucceeded reports whether every step completed without error.
func (r *WalkReport) AllSucceeded() bool {
	return r.Failed == 0 && r.Skipped == 0 && r.Cancelled == 0
}

// ErrDependencyFailed marks steps skipped because a dependency did not
// succeed. Match with errors.Is.
var ErrDependencyFailed = NewInternalError("dependency did not succeed", nil).
	WithCode(ErrCodeDependencyFailed)

// DefaultMaxParallel bounds concurrent steps when WalkOptions does not.
const DefaultMaxParallel = 4

// WalkOptions configures a Walker.
type WalkOptions struct {
	// MaxParallel bounds concurrent steps within a level. Zero or
	// negative means DefaultMaxParallel.
	MaxParallel int

	// FailFast stops the walk after the first level with a failure
	// instead of continuing with the remaining levels.
	FailFast bool
}

// Walker executes a start plan level by level: all steps of a level run
// concurrently, bounded by MaxParallel, and a level starts only after the
// previous one completed. A step whose dependency failed is skipped, and
// steps never retry. Walker is safe for concurrent use; calls to Walk run
// one at a time.
type Walker struct {
	opts WalkOptions

	// runMu serializes Walk calls.
	runMu sync.Mutex

	// mu guards status and results during a walk.
	mu      sync.RWMutex
	status  map[string]StepStatus
	results map[string]*StepResult
}

// NewWalker creates a walker with the given options.
func NewWalker(opts WalkOptions) *Walker {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	return &Walker{opts: opts}
}

// Walk runs fn once per container in plan order. The returned report
// covers every container in the plan. The error is non-nil only when the
// context was cancelled or when FailFast stopped the walk; ordinary step
// failures are reported through the report, not the error.
func (w *Walker) Walk(ctx context.Context, model *ResolvedModel, fn StepFunc) (*WalkReport, error) {
	if model == nil {
		return nil, NewValidationError("nil resolved model", nil).
			WithCode(ErrCodeValidation).
			WithOperation("walk")
	}

	w.runMu.Lock()
	defer w.runMu.Unlock()

	w.mu.Lock()
	w.status = make(map[string]StepStatus, len(model.Plan.Order))
	w.results = make(map[string]*StepResult, len(model.Plan.Order))
	for _, name := range model.Plan.Order {
		w.status[name] = StepStatusPending
	}
	w.mu.Unlock()

	started := time.Now()
	var walkErr error

	for _, level := range model.Plan.Levels {
		if err := ctx.Err(); err != nil {
			walkErr = NewInternalError("walk cancelled", err).
				WithCode(ErrCodeCancelled).
				WithOperation("walk")
			break
		}

		levelErr := w.walkLevel(ctx, model, level, fn)
		if levelErr != nil && w.opts.FailFast {
			walkErr = fmt.Errorf("walk stopped: %w", levelErr)
			break
		}
	}

	w.mu.Lock()
	for name, status := range w.status {
		if status == StepStatusPending {
			w.status[name] = StepStatusCancelled
			w.results[name] = &StepResult{Container: name, Status: StepStatusCancelled}
		}
	}
	report := w.report(time.Since(started))
	w.mu.Unlock()

	return report, walkErr
}

// walkLevel runs one level's steps through a bounded worker pool and
// returns the first step error.
func (w *Walker) walkLevel(ctx context.Context, model *ResolvedModel, level []string, fn StepFunc) error {
	var runnable []string
	for _, name := range level {
		if w.dependenciesSucceeded(model, name) {
			runnable = append(runnable, name)
		} else {
			w.skip(name)
		}
	}
	if len(runnable) == 0 {
		return nil
	}

	workers := w.opts.MaxParallel
	if len(runnable) < workers {
		workers = len(runnable)
	}

	queue := make(chan string, len(runnable))
	for _, name := range runnable {
		queue <- name
	}
	close(queue)

	errCh := make(chan error, len(runnable))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range queue {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if err := w.runStep(ctx, name, fn); err != nil {
					errCh <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)

	var firstErr error
	for err := range errCh {
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// runStep executes one step and records its result.
func (w *Walker) runStep(ctx context.Context, name string, fn StepFunc) error {
	w.setStatus(name, StepStatusRunning)
	started := time.Now()

	err := fn(ctx, name)
	result := &StepResult{
		Container: name,
		Duration:  time.Since(started),
	}
	if err != nil {
		result.Status = StepStatusFailed
		result.Err = err
		w.finish(name, result)
		return fmt.Errorf("step %s: %w", name, err)
	}
	result.Status = StepStatusSucceeded
	w.finish(name, result)
	return nil
}

// dependenciesSucceeded reports whether every dependency of a container
// finished successfully.
func (w *Walker) dependenciesSucceeded(model *ResolvedModel, name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, dep := range model.Doc.Containers[name].DependsOn {
		if w.status[dep] != StepStatusSucceeded {
			return false
		}
	}
	return true
}

// skip marks a container as skipped before it ran.
func (w *Walker) skip(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status[name] = StepStatusSkipped
	w.results[name] = &StepResult{
		Container: name,
		Status:    StepStatusSkipped,
		Err:       ErrDependencyFailed,
	}
}

// setStatus updates one container's status.
func (w *Walker) setStatus(name string, status StepStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status[name] = status
}

// finish records a terminal result for one container.
func (w *Walker) finish(name string, result *StepResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status[name] = result.Status
	w.results[name] = result
}

// report builds the walk summary. The caller holds w.mu.
func (w *Walker) report(elapsed time.Duration) *WalkReport {
	rep := &WalkReport{
		Results:  make(map[string]*StepResult, len(w.results)),
		Duration: elapsed,
	}
	for name, result := range w.results {
		rep.Results[name] = result
		switch result.Status {
		case StepStatusSucceeded:
			rep.Succeeded++
		case StepStatusFailed:
			rep.Failed++
		case StepStatusSkipped:
			rep.Skipped++
		case StepStatusCancelled:
			rep.Cancelled++
		}
	}
	return rep
}
