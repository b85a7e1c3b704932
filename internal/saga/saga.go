// Package saga runs a multi-step business transaction as an ordered sequence
// of forward actions, each paired with a compensation that undoes its effect.
// When any action fails, the compensations of every step that already ran are
// executed in reverse order, best effort: a failing compensation is logged and
// the walk continues so every executed step gets exactly one undo attempt.
package saga

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// State captures the lifecycle of one saga run.
type State string

const (
	StateInitiated    State = "initiated"
	StateInProgress   State = "in_progress"
	StateCompleted    State = "completed"
	StateCompensating State = "compensating"
	StateCompensated  State = "compensated"
	StateFailed       State = "failed"
)

// Context is the mutable key/value bag shared by every step of a run.
type Context map[string]any

// Action performs a step's forward work. The returned value is retained and
// handed back to the step's Compensation during rollback.
type Action func(ctx context.Context, sc Context) (any, error)

// Compensation undoes a completed step. data is the value its Action returned.
type Compensation func(ctx context.Context, sc Context, data any) error

type step struct {
	name        string
	action      Action
	compensate  Compensation
	executed    bool
	compensated bool
	data        any
}

// Options configures an Orchestrator.
type Options struct {
	// Context seeds the shared step context. May be nil.
	Context Context
	// Logf receives compensation failures and state transitions. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

// Orchestrator sequences registered steps and drives rollback on failure.
// One Orchestrator runs one saga; it is not safe for concurrent use and
// Execute must be called at most once.
type Orchestrator struct {
	name   string
	runID  string
	steps  []*step
	state  State
	sc     Context
	logf   func(format string, args ...any)
	addErr error
}

// New constructs an Orchestrator in the Initiated state.
func New(name string, opts Options) *Orchestrator {
	sc := opts.Context
	if sc == nil {
		sc = Context{}
	}
	logf := opts.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &Orchestrator{
		name:  name,
		runID: uuid.NewString(),
		state: StateInitiated,
		sc:    sc,
		logf:  logf,
	}
}

// AddStep appends a step; registration order is execution order and the
// reverse of compensation order. Step names must be unique within the saga.
// A nil compensation marks the step as having no side effects to undo.
// AddStep returns the orchestrator so registrations chain.
func (o *Orchestrator) AddStep(name string, action Action, compensate Compensation) *Orchestrator {
	if o.addErr != nil {
		return o
	}
	if name == "" {
		o.addErr = fmt.Errorf("saga %s: step name required", o.name)
		return o
	}
	if action == nil {
		o.addErr = fmt.Errorf("saga %s: step %s has no action", o.name, name)
		return o
	}
	for _, s := range o.steps {
		if s.name == name {
			o.addErr = fmt.Errorf("saga %s: duplicate step %s", o.name, name)
			return o
		}
	}
	o.steps = append(o.steps, &step{name: name, action: action, compensate: compensate})
	return o
}

// Context returns the shared step context for reading results back out.
func (o *Orchestrator) Context() Context {
	return o.sc
}

// Execute runs all steps in registration order. On the first action error it
// compensates executed steps in reverse order and returns that original error;
// the snapshot then reports state Compensated. Step errors never escape as
// panics and compensation errors are never returned. A nil return means every
// step completed and the saga is in state Completed.
func (o *Orchestrator) Execute(ctx context.Context) error {
	if o.addErr != nil {
		o.state = StateFailed
		return o.addErr
	}

	o.state = StateInProgress
	for _, s := range o.steps {
		data, err := s.action(ctx, o.sc)
		if err != nil {
			o.logf("saga %s (%s): step %s failed: %v", o.name, o.runID, s.name, err)
			o.rollback(ctx)
			return fmt.Errorf("step %s: %w", s.name, err)
		}
		s.executed = true
		s.data = data
	}

	o.state = StateCompleted
	return nil
}

// rollback walks executed, uncompensated steps in reverse registration order.
// Every visited step is marked compensated even when its compensation errors,
// so no step is ever retried.
func (o *Orchestrator) rollback(ctx context.Context) {
	o.state = StateCompensating
	for i := len(o.steps) - 1; i >= 0; i-- {
		s := o.steps[i]
		if !s.executed || s.compensated {
			continue
		}
		if s.compensate != nil {
			if err := s.compensate(ctx, o.sc, s.data); err != nil {
				o.logf("saga %s (%s): compensation %s failed: %v", o.name, o.runID, s.name, err)
			}
		}
		s.compensated = true
	}
	o.state = StateCompensated
}

// StepStatus is the observable per-step outcome of a run.
type StepStatus struct {
	Name        string `json:"name"`
	Executed    bool   `json:"executed"`
	Compensated bool   `json:"compensated"`
}

// Snapshot is a point-in-time view of a saga run for diagnostics and
// caller-facing error payloads.
type Snapshot struct {
	Name  string       `json:"name"`
	RunID string       `json:"run_id"`
	State State        `json:"state"`
	Steps []StepStatus `json:"steps"`
}

// Snapshot reports the saga name, run id, state and per-step flags. It does
// not mutate the orchestrator.
func (o *Orchestrator) Snapshot() Snapshot {
	steps := make([]StepStatus, len(o.steps))
	for i, s := range o.steps {
		steps[i] = StepStatus{Name: s.name, Executed: s.executed, Compensated: s.compensated}
	}
	return Snapshot{Name: o.name, RunID: o.runID, State: o.state, Steps: steps}
}

// State returns the saga's current lifecycle state.
func (o *Orchestrator) State() State {
	return o.state
}
