package pipeline

import (
	"sync"

	"mediacat/internal/logging"
)

// State is the lifecycle of the executor's current operation.
type State int

const (
	// StateIdle means no operation has run yet.
	StateIdle State = iota
	// StateRunning means an operation is in progress.
	StateRunning
	// StateCompleted means the last operation ran to completion.
	StateCompleted
	// StateCancelled means the last operation was cancelled.
	StateCancelled
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Operation is a named unit of background work. Run receives the Progress
// the executor tracks it with and should check it for cancellation.
type Operation struct {
	Name string
	Run  func(prog *Progress)
}

// Executor runs operations one at a time. Operations submitted while one is
// running join a FIFO queue; cancelling the current operation also clears
// the queue.
type Executor struct {
	mu      sync.Mutex
	state   State
	current string
	prog    *Progress
	queue   []Operation
	wg      sync.WaitGroup
}

// NewExecutor creates an idle Executor.
func NewExecutor() *Executor {
	return &Executor{state: StateIdle}
}

// Submit runs the operation, or queues it when one is already running. It
// returns true if the operation started immediately.
func (e *Executor) Submit(op Operation) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateRunning {
		e.queue = append(e.queue, op)
		logging.Debug("Queued operation %s (%d waiting)", op.Name, len(e.queue))
		return false
	}
	e.begin(op)
	return true
}

// begin starts an operation. The caller holds e.mu.
func (e *Executor) begin(op Operation) {
	prog := NewProgress(0)
	e.state = StateRunning
	e.current = op.Name
	e.prog = prog
	e.wg.Add(1)
	go e.run(op, prog)
}

func (e *Executor) run(op Operation, prog *Progress) {
	op.Run(prog)

	e.mu.Lock()
	if prog.Cancelled() {
		e.state = StateCancelled
	} else {
		e.state = StateCompleted
	}
	if len(e.queue) > 0 {
		next := e.queue[0]
		e.queue = e.queue[1:]
		e.begin(next)
	}
	e.mu.Unlock()

	e.wg.Done()
}

// Cancel cancels the running operation, if any, and clears the queue.
// Queued operations are dropped, not cancelled individually.
func (e *Executor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.queue = nil
	if e.state == StateRunning && e.prog != nil {
		e.prog.Cancel()
	}
}

// Status reports the executor state, the name of the current (or last)
// operation, its progress, and the queue depth.
func (e *Executor) Status() (state State, name string, completed, total, queued int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state = e.state
	name = e.current
	if e.prog != nil {
		completed = e.prog.Completed()
		total = e.prog.Total()
	}
	queued = len(e.queue)
	return
}

// Wait blocks until the current operation and everything queued behind it
// have finished.
func (e *Executor) Wait() {
	e.wg.Wait()
}
