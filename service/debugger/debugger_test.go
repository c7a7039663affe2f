package debugger

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdbdap/gdbdap/pkg/gdbmi"
	"github.com/gdbdap/gdbdap/pkg/gdbmi/gdbmitest"
)

// startDebugger starts a debugger against a scripted backend.
func startDebugger(t *testing.T) (*Debugger, *gdbmitest.FakeBackend) {
	t.Helper()
	fake, conn := gdbmitest.New()
	d := New(&Config{Conn: conn, CommandTimeout: 2 * time.Second})
	if err := d.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
		fake.Close()
	})
	return d, fake
}

func TestStartAppliesInitialConfiguration(t *testing.T) {
	_, fake := startDebugger(t)
	for _, want := range []string{
		"-gdb-set mi-async on",
		"-gdb-set confirm off",
		"set detach-on-fork off",
		"set schedule-multiple on",
	} {
		if fake.CommandIndex(want, 0) < 0 {
			t.Errorf("initial command %q was not issued", want)
		}
	}
}

func TestSendCollectsUpToResult(t *testing.T) {
	d, fake := startDebugger(t)
	fake.Respond("-foo", `~"console line"`, `^done,value="1"`)
	records, err := d.Send("-foo")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Class != gdbmi.RecordConsole || records[0].Stream != "console line" {
		t.Errorf("got %+v, want console record", records[0])
	}
	if !records[1].IsResult(gdbmi.ResultDone) {
		t.Errorf("got %+v, want ^done", records[1])
	}
	if got := resultPayload(records).Str("value"); got != "1" {
		t.Errorf("got value %q, want 1", got)
	}
}

func TestSendTimeout(t *testing.T) {
	fake, conn := gdbmitest.New()
	d := New(&Config{Conn: conn, CommandTimeout: 50 * time.Millisecond})
	if err := d.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
		fake.Close()
	})

	// a rule with no lines leaves the command unanswered
	fake.Respond("-hang")
	records, err := d.Send("-hang")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want a single synthetic error", len(records))
	}
	rerr := ResultErr(records)
	if rerr == nil {
		t.Fatal("got nil, want timeout error")
	}
	if !strings.Contains(rerr.Error(), "Expected response not received within") {
		t.Errorf("got %q, want timeout message", rerr.Error())
	}

	// the backend must still be usable for the next command
	if err := d.SendChecked("-bar", false); err != nil {
		t.Errorf("command after timeout failed: %v", err)
	}
}

// Records left over from an earlier exchange must not be attributed to
// the next command.
func TestSendDrainsStaleRecords(t *testing.T) {
	d, fake := startDebugger(t)
	fake.Emit(`~"stale noise"`)
	time.Sleep(50 * time.Millisecond)
	fake.Respond("-foo", "^done")
	records, err := d.Send("-foo")
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range records {
		if rec.Stream == "stale noise" {
			t.Error("stale record attributed to the command")
		}
	}
}

func TestResultErr(t *testing.T) {
	records := []gdbmi.Record{{
		Class:   gdbmi.RecordResult,
		Message: gdbmi.ResultError,
		Payload: gdbmi.Dict{"msg": "No symbol table is loaded."},
	}}
	err := ResultErr(records)
	cerr, ok := err.(*CommandError)
	if !ok {
		t.Fatalf("got %T, want *CommandError", err)
	}
	if cerr.Error() != "Error from GDB: No symbol table is loaded." {
		t.Errorf("got %q, want prefixed backend message", cerr.Error())
	}

	if err := ResultErr([]gdbmi.Record{{Class: gdbmi.RecordResult, Message: gdbmi.ResultDone}}); err != nil {
		t.Errorf("got %v for ^done, want nil", err)
	}
}

func TestSendAfterStop(t *testing.T) {
	d, fake := startDebugger(t)
	d.Stop()
	fake.Close()
	time.Sleep(20 * time.Millisecond)
	if _, err := d.Send("-foo"); err == nil {
		t.Error("got nil error sending to a stopped backend")
	}
}

func TestStopReason(t *testing.T) {
	for _, tc := range []struct {
		payload gdbmi.Dict
		want    string
	}{
		{gdbmi.Dict{"reason": "breakpoint-hit"}, "breakpoint"},
		{gdbmi.Dict{"reason": "watchpoint-trigger"}, "data breakpoint"},
		{gdbmi.Dict{"reason": "end-stepping-range"}, "step"},
		{gdbmi.Dict{"reason": "function-finished"}, "step"},
		{gdbmi.Dict{"reason": "signal-received", "signal-name": "SIGINT"}, "pause"},
		{gdbmi.Dict{"reason": "signal-received", "signal-name": "SIGSEGV"}, "exception"},
		{gdbmi.Dict{}, "unknown"},
		{gdbmi.Dict{"reason": "somewhere-else"}, "somewhere-else"},
	} {
		if got := stopReason(tc.payload); got != tc.want {
			t.Errorf("stopReason(%v) = %q, want %q", tc.payload, got, tc.want)
		}
	}
}

// recordingNotifier captures translated events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	hit    []int
}

func (r *recordingNotifier) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingNotifier) Stopped(reason string, threadID int, all bool, hit []int) {
	r.mu.Lock()
	r.hit = hit
	r.mu.Unlock()
	r.add("stopped:" + reason)
}
func (r *recordingNotifier) Continued(threadID int, all bool) { r.add("continued") }
func (r *recordingNotifier) InvalidatedStacks()               { r.add("invalidated") }
func (r *recordingNotifier) ProcessStarted(pid int)           { r.add("started") }
func (r *recordingNotifier) ProcessExited(code int)           { r.add("exited") }

func (r *recordingNotifier) wait(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		if len(r.events) >= n {
			out := append([]string(nil), r.events...)
			r.mu.Unlock()
			return out
		}
		r.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t.Fatalf("got events %v, want %d of them", r.events, n)
	return nil
}

func TestMonitorRoutesNotifications(t *testing.T) {
	d, fake := startDebugger(t)
	rec := &recordingNotifier{}
	d.SetNotifier(rec)

	fake.Emit(`*stopped,reason="breakpoint-hit",bkptno="3",thread-id="2",stopped-threads="all"`)
	events := rec.wait(t, 1)
	if events[0] != "stopped:breakpoint" {
		t.Errorf("got %v, want stopped:breakpoint", events)
	}
	rec.mu.Lock()
	hit := rec.hit
	rec.mu.Unlock()
	if len(hit) != 1 || hit[0] != 3 {
		t.Errorf("got hit %v, want [3]", hit)
	}

	// a resumed target also invalidates every known stack
	fake.Emit(`*running,thread-id="all"`)
	events = rec.wait(t, 3)
	if events[1] != "continued" || events[2] != "invalidated" {
		t.Errorf("got %v, want continued then invalidated", events)
	}

	fake.Emit(`=thread-group-started,id="i2",pid="4321"`)
	fake.Emit(`=thread-group-exited,id="i2",exit-code="1"`)
	events = rec.wait(t, 5)
	if events[3] != "started" || events[4] != "exited" {
		t.Errorf("got %v, want process start then exit", events)
	}
}
