package dap

import (
	"sync"

	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"
)

// eventBacklog is the capacity of the notifier queue. Events beyond it
// are dropped rather than blocking the backend monitor on a slow
// client.
const eventBacklog = 64

// notifier translates backend notifications into DAP events and gates
// their delivery. It starts disabled so that backend churn before the
// first attach never reaches the client; multi-step internal operations
// use Suspend to keep their intermediate state churn private.
//
// Delivery is decoupled from the caller: events go onto a buffered
// queue drained by a writer goroutine, so the backend monitor never
// waits on a client write.
type notifier struct {
	log   *logrus.Entry
	write func(dap.Message)

	mu      sync.Mutex
	enabled bool
	closed  bool

	queue chan dap.Message
}

func newNotifier(log *logrus.Entry, write func(dap.Message)) *notifier {
	n := &notifier{
		log:   log,
		write: write,
		queue: make(chan dap.Message, eventBacklog),
	}
	go n.drain()
	return n
}

func (n *notifier) drain() {
	for ev := range n.queue {
		n.write(ev)
	}
}

// Enable turns event delivery on.
func (n *notifier) Enable() {
	n.mu.Lock()
	n.enabled = true
	n.mu.Unlock()
}

// Disable turns event delivery off. Queued events still drain.
func (n *notifier) Disable() {
	n.mu.Lock()
	n.enabled = false
	n.mu.Unlock()
}

// Suspend disables delivery and returns a function restoring whatever
// state delivery was in before. Meant to be used as
//
//	resume := n.Suspend()
//	defer resume()
//
// so the prior state comes back on every exit path.
func (n *notifier) Suspend() (resume func()) {
	n.mu.Lock()
	prev := n.enabled
	n.enabled = false
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		n.enabled = prev
		n.mu.Unlock()
	}
}

// Close stops the writer goroutine. Events emitted afterwards are
// dropped.
func (n *notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.queue)
}

func (n *notifier) emit(ev dap.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.enabled || n.closed {
		return
	}
	select {
	case n.queue <- ev:
	default:
		n.log.Warnf("event backlog full, dropping %T", ev)
	}
}

// Stopped implements debugger.Notifier.
func (n *notifier) Stopped(reason string, threadID int, allThreadsStopped bool, hitBreakpointIDs []int) {
	ev := &dap.StoppedEvent{Event: *newEvent("stopped")}
	ev.Body.Reason = reason
	ev.Body.ThreadId = threadID
	ev.Body.AllThreadsStopped = allThreadsStopped
	ev.Body.HitBreakpointIds = hitBreakpointIDs
	n.emit(ev)
}

// Continued implements debugger.Notifier.
func (n *notifier) Continued(threadID int, allThreadsContinued bool) {
	ev := &dap.ContinuedEvent{Event: *newEvent("continued")}
	ev.Body.ThreadId = threadID
	ev.Body.AllThreadsContinued = allThreadsContinued
	n.emit(ev)
}

// InvalidatedStacks implements debugger.Notifier. Sent when resumed
// execution makes every stack the client has seen stale.
func (n *notifier) InvalidatedStacks() {
	ev := &dap.InvalidatedEvent{Event: *newEvent("invalidated")}
	ev.Body.Areas = []dap.InvalidatedAreas{"stacks"}
	n.emit(ev)
}

// ProcessStarted implements debugger.Notifier.
func (n *notifier) ProcessStarted(pid int) {
	ev := &dap.ProcessEvent{Event: *newEvent("process")}
	ev.Body.StartMethod = "attach"
	ev.Body.SystemProcessId = pid
	ev.Body.IsLocalProcess = true
	n.emit(ev)
}

// ProcessExited implements debugger.Notifier.
func (n *notifier) ProcessExited(exitCode int) {
	ev := &dap.ExitedEvent{Event: *newEvent("exited")}
	ev.Body.ExitCode = exitCode
	n.emit(ev)
}
