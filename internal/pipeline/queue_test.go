package pipeline

import (
	"sync"
	"testing"
	"time"
)

func TestExecutorRunsSubmittedOperation(t *testing.T) {
	e := NewExecutor()

	if state, _, _, _, _ := e.Status(); state != StateIdle {
		t.Fatalf("initial state = %v, want idle", state)
	}

	ran := false
	started := e.Submit(Operation{Name: "sync", Run: func(prog *Progress) {
		prog.SetTotal(10)
		ran = true
	}})
	if !started {
		t.Error("Submit on an idle executor should start immediately")
	}
	e.Wait()

	if !ran {
		t.Error("operation did not run")
	}
	state, name, _, total, queued := e.Status()
	if state != StateCompleted || name != "sync" || total != 10 || queued != 0 {
		t.Errorf("Status = %v %q total=%d queued=%d", state, name, total, queued)
	}
}

func TestExecutorQueuesFIFO(t *testing.T) {
	e := NewExecutor()

	release := make(chan struct{})
	var mu sync.Mutex
	var order []string

	record := func(name string) Operation {
		return Operation{Name: name, Run: func(*Progress) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}}
	}

	e.Submit(Operation{Name: "first", Run: func(*Progress) {
		<-release
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	}})
	if started := e.Submit(record("second")); started {
		t.Error("Submit while running should queue, not start")
	}
	e.Submit(record("third"))

	if _, _, _, _, queued := e.Status(); queued != 2 {
		t.Errorf("queued = %d, want 2", queued)
	}

	close(release)
	e.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Errorf("order = %v, want [first second third]", order)
	}
}

func TestExecutorCancelClearsQueue(t *testing.T) {
	e := NewExecutor()

	release := make(chan struct{})
	queuedRan := false

	e.Submit(Operation{Name: "long", Run: func(prog *Progress) {
		<-release
	}})
	e.Submit(Operation{Name: "queued", Run: func(*Progress) {
		queuedRan = true
	}})

	e.Cancel()
	close(release)
	e.Wait()

	state, _, _, _, queued := e.Status()
	if state != StateCancelled {
		t.Errorf("state = %v, want cancelled", state)
	}
	if queued != 0 {
		t.Errorf("queued = %d, want 0 after cancel", queued)
	}
	if queuedRan {
		t.Error("queued operation ran despite cancel clearing the queue")
	}
}

func TestExecutorRunsAgainAfterCompletion(t *testing.T) {
	e := NewExecutor()

	e.Submit(Operation{Name: "one", Run: func(*Progress) {}})
	e.Wait()

	started := e.Submit(Operation{Name: "two", Run: func(*Progress) {
		time.Sleep(time.Millisecond)
	}})
	if !started {
		t.Error("Submit after completion should start immediately")
	}
	e.Wait()

	if state, name, _, _, _ := e.Status(); state != StateCompleted || name != "two" {
		t.Errorf("Status = %v %q, want completed two", state, name)
	}
}

func TestCancelOnIdleExecutor(t *testing.T) {
	e := NewExecutor()
	e.Cancel()
	if state, _, _, _, _ := e.Status(); state != StateIdle {
		t.Errorf("state = %v, want idle", state)
	}
}
