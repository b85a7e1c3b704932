package saga

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestExecute_AllStepsSucceed(t *testing.T) {
	var order []string

	o := New("checkout", Options{Logf: func(string, ...any) {}})
	o.AddStep("first", func(ctx context.Context, sc Context) (any, error) {
		order = append(order, "first")
		return "one", nil
	}, nil).AddStep("second", func(ctx context.Context, sc Context) (any, error) {
		order = append(order, "second")
		return "two", nil
	}, nil)

	if err := o.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.State() != StateCompleted {
		t.Fatalf("expected state %s, got %s", StateCompleted, o.State())
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected execution order: %v", order)
	}

	snap := o.Snapshot()
	for _, s := range snap.Steps {
		if !s.Executed || s.Compensated {
			t.Fatalf("unexpected step flags on success: %+v", s)
		}
	}
	if snap.RunID == "" {
		t.Fatalf("expected run id")
	}
}

func TestExecute_ThirdStepFailsCompensatesInReverse(t *testing.T) {
	var compensated []string
	boom := errors.New("boom")

	ok := func(name string) Action {
		return func(ctx context.Context, sc Context) (any, error) { return name + "-data", nil }
	}
	undo := func(name string) Compensation {
		return func(ctx context.Context, sc Context, data any) error {
			if data != name+"-data" {
				t.Errorf("step %s: unexpected compensation data %v", name, data)
			}
			compensated = append(compensated, name)
			return nil
		}
	}

	fourthRan := false
	o := New("checkout", Options{Logf: func(string, ...any) {}})
	o.AddStep("one", ok("one"), undo("one")).
		AddStep("two", ok("two"), undo("two")).
		AddStep("three", func(ctx context.Context, sc Context) (any, error) {
			return nil, boom
		}, undo("three")).
		AddStep("four", func(ctx context.Context, sc Context) (any, error) {
			fourthRan = true
			return nil, nil
		}, undo("four"))

	err := o.Execute(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected original step error, got %v", err)
	}
	if fourthRan {
		t.Fatalf("step after the failing one must not run")
	}
	if len(compensated) != 2 || compensated[0] != "two" || compensated[1] != "one" {
		t.Fatalf("expected reverse-order compensation [two one], got %v", compensated)
	}
	if o.State() != StateCompensated {
		t.Fatalf("expected state %s after rollback, got %s", StateCompensated, o.State())
	}

	snap := o.Snapshot()
	want := []StepStatus{
		{Name: "one", Executed: true, Compensated: true},
		{Name: "two", Executed: true, Compensated: true},
		{Name: "three", Executed: false, Compensated: false},
		{Name: "four", Executed: false, Compensated: false},
	}
	for i, s := range snap.Steps {
		if s != want[i] {
			t.Fatalf("step %d: got %+v, want %+v", i, s, want[i])
		}
	}
}

func TestExecute_CompensationFailureDoesNotStopWalk(t *testing.T) {
	var logged []string
	var compensated []string

	o := New("checkout", Options{Logf: func(format string, args ...any) {
		logged = append(logged, format)
	}})
	o.AddStep("one", func(ctx context.Context, sc Context) (any, error) {
		return nil, nil
	}, func(ctx context.Context, sc Context, data any) error {
		compensated = append(compensated, "one")
		return nil
	}).AddStep("two", func(ctx context.Context, sc Context) (any, error) {
		return nil, nil
	}, func(ctx context.Context, sc Context, data any) error {
		compensated = append(compensated, "two")
		return errors.New("undo failed")
	}).AddStep("three", func(ctx context.Context, sc Context) (any, error) {
		return nil, errors.New("trigger")
	}, nil)

	err := o.Execute(context.Background())
	if err == nil || !strings.Contains(err.Error(), "trigger") {
		t.Fatalf("expected the triggering error, got %v", err)
	}
	if len(compensated) != 2 || compensated[0] != "two" || compensated[1] != "one" {
		t.Fatalf("expected both compensations attempted, got %v", compensated)
	}

	snap := o.Snapshot()
	if !snap.Steps[1].Compensated {
		t.Fatalf("step must be marked compensated even when its compensation fails")
	}
	if len(logged) == 0 {
		t.Fatalf("expected the compensation failure to be logged")
	}
}

func TestExecute_FirstStepFailureCompensatesNothing(t *testing.T) {
	compensated := false

	o := New("checkout", Options{Logf: func(string, ...any) {}})
	o.AddStep("only", func(ctx context.Context, sc Context) (any, error) {
		return nil, errors.New("no")
	}, func(ctx context.Context, sc Context, data any) error {
		compensated = true
		return nil
	})

	if err := o.Execute(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if compensated {
		t.Fatalf("unexecuted step must not be compensated")
	}
	snap := o.Snapshot()
	if snap.Steps[0].Executed || snap.Steps[0].Compensated {
		t.Fatalf("unexpected flags: %+v", snap.Steps[0])
	}
}

func TestAddStep_RejectsDuplicateNames(t *testing.T) {
	ran := false
	o := New("checkout", Options{Logf: func(string, ...any) {}})
	o.AddStep("step", func(ctx context.Context, sc Context) (any, error) {
		ran = true
		return nil, nil
	}, nil).AddStep("step", func(ctx context.Context, sc Context) (any, error) {
		ran = true
		return nil, nil
	}, nil)

	err := o.Execute(context.Background())
	if err == nil || !strings.Contains(err.Error(), "duplicate step") {
		t.Fatalf("expected duplicate step error, got %v", err)
	}
	if ran {
		t.Fatalf("no step should run when registration is invalid")
	}
	if o.State() != StateFailed {
		t.Fatalf("expected state %s, got %s", StateFailed, o.State())
	}
}

func TestContext_SharedAcrossSteps(t *testing.T) {
	o := New("checkout", Options{Context: Context{"seed": 1}, Logf: func(string, ...any) {}})
	o.AddStep("write", func(ctx context.Context, sc Context) (any, error) {
		sc["written"] = sc["seed"].(int) + 1
		return nil, nil
	}, nil).AddStep("read", func(ctx context.Context, sc Context) (any, error) {
		if sc["written"].(int) != 2 {
			return nil, errors.New("context not shared")
		}
		return nil, nil
	}, nil)

	if err := o.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Context()["written"].(int) != 2 {
		t.Fatalf("expected context value visible to caller")
	}
}
