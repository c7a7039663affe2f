package debugger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gdbdap/gdbdap/pkg/gdbmi"
	"github.com/gdbdap/gdbdap/pkg/logflags"
	"github.com/gdbdap/gdbdap/service/api"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
)

// ErrBackendUnavailable is returned when a command is issued before the
// backend process started or after it went away.
var ErrBackendUnavailable = errors.New("gdb backend is not running")

// CommandError is an explicit error record produced by the backend for
// a command. The backend's message is preserved verbatim.
type CommandError struct {
	Msg string
}

func (e *CommandError) Error() string {
	return "Error from GDB: " + e.Msg
}

// Notifier receives debug events translated from asynchronous backend
// notifications. The DAP session implements it; a Debugger without a
// notifier drops events.
type Notifier interface {
	Stopped(reason string, threadID int, allThreadsStopped bool, hitBreakpointIDs []int)
	Continued(threadID int, allThreadsContinued bool)
	InvalidatedStacks()
	ProcessStarted(pid int)
	ProcessExited(exitCode int)
}

// DefaultCommandTimeout bounds the wait for a command's result record
// before Send gives up on the command.
const DefaultCommandTimeout = 20 * time.Second

// recordBacklog is the capacity of the monitor's record queue. The
// queue only holds records between a command being written and its
// result record arriving; overflow is dropped with a warning.
const recordBacklog = 512

// lineCacheSize bounds how many per-file line tables are kept for
// breakpoint location queries.
const lineCacheSize = 64

// Config provides the configuration to start a Debugger.
type Config struct {
	// GdbPath is the gdb binary to spawn. Empty means "gdb" from PATH.
	GdbPath string

	// GdbArgs are extra arguments appended to the gdb command line.
	GdbArgs []string

	// CommandTimeout overrides DefaultCommandTimeout when positive.
	CommandTimeout time.Duration

	// Conn substitutes an already established MI stream for a spawned
	// process. Tests use it to drive the debugger against a scripted
	// backend.
	Conn *gdbmi.Conn
}

// Debugger bridges a protocol frontend to a gdb backend. It owns the
// MI connection, correlates commands with their responses and routes
// asynchronous notifications to the notifier.
//
// Commands execute one at a time: Send holds sendMu for the whole
// command/response exchange and drains records left over from earlier
// exchanges before writing, so a response can never be attributed to
// the wrong command.
type Debugger struct {
	config *Config
	log    *logrus.Entry

	sendMu  sync.Mutex
	conn    *gdbmi.Conn
	records chan gdbmi.Record

	notifierMu sync.Mutex
	notifier   Notifier

	// variable objects, see variables.go
	varMu      sync.Mutex
	nextVarRef int
	varObjects map[int]string
	varNames   map[string]string

	// per-file line tables, see breakpoints.go
	lineCache *lru.Cache
}

// New creates a new Debugger. The backend is not touched until Start is
// called.
func New(config *Config) *Debugger {
	if config == nil {
		config = &Config{}
	}
	cache, _ := lru.New(lineCacheSize)
	return &Debugger{
		config:     config,
		log:        logflags.DebuggerLogger(),
		records:    make(chan gdbmi.Record, recordBacklog),
		nextVarRef: api.DynamicBase,
		varObjects: make(map[int]string),
		varNames:   make(map[string]string),
		lineCache:  cache,
	}
}

// Start spawns the backend process (or adopts the configured stream),
// starts the notification monitor and applies the initial MI
// configuration. A failing initial command aborts the start.
func (d *Debugger) Start() error {
	conn := d.config.Conn
	if conn == nil {
		var err error
		conn, err = gdbmi.Spawn(d.config.GdbPath, d.config.GdbArgs)
		if err != nil {
			return err
		}
	}
	d.conn = conn
	go d.monitor()
	for _, cmd := range initialCommands {
		if err := d.SendChecked(cmd, false); err != nil {
			d.Stop()
			return fmt.Errorf("initial command %q failed: %v", cmd, err)
		}
	}
	if err := d.applySharedSettings(); err != nil {
		d.Stop()
		return err
	}
	d.log.Infof("backend ready (pid %d)", conn.Pid())
	return nil
}

// Stop terminates the backend process. It deliberately does not wait
// for an in-flight command, a wedged backend must not block disconnect.
func (d *Debugger) Stop() {
	if d.conn == nil {
		return
	}
	d.conn.Send("-gdb-exit")
	d.conn.Close()
}

// SetNotifier installs the receiver for translated backend events.
func (d *Debugger) SetNotifier(n Notifier) {
	d.notifierMu.Lock()
	d.notifier = n
	d.notifierMu.Unlock()
}

func (d *Debugger) currentNotifier() Notifier {
	d.notifierMu.Lock()
	defer d.notifierMu.Unlock()
	return d.notifier
}

// initialCommands configure the backend right after it starts.
// mi-async is required for -exec-interrupt to work while the target
// runs, and confirmation prompts would wedge a machine driven session.
var initialCommands = []string{
	"-gdb-set mi-async on",
	"-gdb-set confirm off",
	"-enable-pretty-printing",
	"set pagination off",
	"set auto-solib-add on",
}

// sharedTargetSettings apply to local targets at startup and again to
// remote targets right after connecting.
var sharedTargetSettings = []string{
	"set osabi auto",
	"set follow-fork-mode parent",
	"set follow-exec-mode same",
	"set detach-on-fork off",
	"set scheduler-locking off",
	"set schedule-multiple on",
}

func (d *Debugger) applySharedSettings() error {
	for _, cmd := range sharedTargetSettings {
		if err := d.SendChecked(cmd, false); err != nil {
			return err
		}
	}
	return nil
}

// resultClasses are the result records that terminate a command by
// default.
var resultClasses = []string{gdbmi.ResultDone, gdbmi.ResultError, gdbmi.ResultRunning}

func (d *Debugger) timeout() time.Duration {
	if d.config.CommandTimeout > 0 {
		return d.config.CommandTimeout
	}
	return DefaultCommandTimeout
}

// Send issues an MI command and returns every record produced up to and
// including its result record. A non-nil error means the backend is
// gone; command failures travel inside the records (see ResultErr).
func (d *Debugger) Send(command string) ([]gdbmi.Record, error) {
	return d.SendTimeout(command, d.timeout(), resultClasses)
}

// SendTimeout is Send with an explicit timeout and set of accepted
// result classes. On timeout the collected records are discarded and a
// single synthetic error record is returned in their place.
func (d *Debugger) SendTimeout(command string, timeout time.Duration, accepted []string) ([]gdbmi.Record, error) {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()
	if d.conn == nil {
		return nil, ErrBackendUnavailable
	}
	d.drainStale()
	if err := d.conn.Send(command); err != nil {
		return nil, err
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	var records []gdbmi.Record
	for {
		select {
		case rec, ok := <-d.records:
			if !ok {
				return nil, ErrBackendUnavailable
			}
			records = append(records, rec)
			if rec.Class == gdbmi.RecordResult && containsClass(accepted, rec.Message) {
				return records, nil
			}
		case <-deadline.C:
			d.log.Warnf("no response within %s for %q", timeout, command)
			return []gdbmi.Record{timeoutRecord(timeout)}, nil
		}
	}
}

// SendChecked issues a command and reduces its outcome to an error.
// With ignoreFailures set, failures are logged and swallowed.
func (d *Debugger) SendChecked(command string, ignoreFailures bool) error {
	records, err := d.Send(command)
	if err != nil {
		return err
	}
	if err := ResultErr(records); err != nil {
		if ignoreFailures {
			d.log.Warnf("ignoring failure of %q: %v", command, err)
			return nil
		}
		return err
	}
	return nil
}

// ResultErr extracts the failure, if any, from a command's records.
// The first explicit error record wins.
func ResultErr(records []gdbmi.Record) error {
	for _, rec := range records {
		if rec.IsResult(gdbmi.ResultError) {
			msg := rec.Payload.Str("msg")
			if msg == "" {
				msg = "unknown error"
			}
			return &CommandError{Msg: msg}
		}
	}
	return nil
}

// resultPayload returns the payload of the terminating result record.
func resultPayload(records []gdbmi.Record) gdbmi.Dict {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Class == gdbmi.RecordResult {
			return records[i].Payload
		}
	}
	return nil
}

func containsClass(classes []string, c string) bool {
	for _, cl := range classes {
		if cl == c {
			return true
		}
	}
	return false
}

func timeoutRecord(timeout time.Duration) gdbmi.Record {
	return gdbmi.Record{
		Class:   gdbmi.RecordResult,
		Message: gdbmi.ResultError,
		Payload: gdbmi.Dict{
			"msg": fmt.Sprintf("Expected response not received within %s for command.", timeout),
		},
	}
}

// drainStale empties the record queue. Anything still queued belongs to
// a previous exchange and must not be attributed to the next command.
func (d *Debugger) drainStale() {
	for {
		select {
		case rec, ok := <-d.records:
			if !ok {
				return
			}
			d.log.Debugf("discarding stale %s record %q", rec.Class, rec.Message)
		default:
			return
		}
	}
}

// monitor receives backend records, translating execution state and
// process lifecycle notifications into client events and queueing
// everything else for the in-flight command. It exits, closing the
// record queue, when the backend closes its output.
func (d *Debugger) monitor() {
	for {
		rec, err := d.conn.Recv()
		if err != nil {
			d.log.Debugf("monitor exiting: %v", err)
			close(d.records)
			return
		}
		if rec.Class != gdbmi.RecordNotify {
			d.enqueue(rec)
			continue
		}
		switch rec.Message {
		case "stopped":
			d.notifyStopped(rec)
		case "running":
			d.notifyContinued(rec)
		case "thread-group-started":
			if n := d.currentNotifier(); n != nil {
				n.ProcessStarted(rec.Payload.Int("pid", 0))
			}
		case "thread-group-exited":
			if n := d.currentNotifier(); n != nil {
				n.ProcessExited(rec.Payload.Int("exit-code", 0))
			}
		default:
			d.enqueue(rec)
		}
	}
}

func (d *Debugger) enqueue(rec gdbmi.Record) {
	select {
	case d.records <- rec:
	default:
		d.log.Warnf("record backlog full, dropping %s record %q", rec.Class, rec.Message)
	}
}

func (d *Debugger) notifyStopped(rec gdbmi.Record) {
	n := d.currentNotifier()
	if n == nil {
		return
	}
	miReason := rec.Payload.Str("reason")
	threadID := rec.Payload.Int("thread-id", 1)
	var hit []int
	if strings.Contains(miReason, "breakpoint") {
		if no := rec.Payload.Int("bkptno", 0); no > 0 {
			hit = []int{no}
		}
	}
	all := rec.Payload.Str("stopped-threads") == "all"
	n.Stopped(stopReason(rec.Payload), threadID, all, hit)
}

// stopReason translates an MI stop reason into the reason vocabulary
// clients expect. Unrecognized reasons pass through unchanged.
func stopReason(payload gdbmi.Dict) string {
	switch r := payload.Str("reason"); r {
	case "breakpoint-hit":
		return "breakpoint"
	case "watchpoint-trigger", "read-watchpoint-trigger", "access-watchpoint-trigger":
		return "data breakpoint"
	case "end-stepping-range", "function-finished", "location-reached":
		return "step"
	case "signal-received":
		// an interrupt requested by the client arrives as SIGINT
		if payload.Str("signal-name") == "SIGINT" {
			return "pause"
		}
		return "exception"
	case "":
		return "unknown"
	default:
		return r
	}
}

func (d *Debugger) notifyContinued(rec gdbmi.Record) {
	n := d.currentNotifier()
	if n == nil {
		return
	}
	tid := rec.Payload.Str("thread-id")
	all := tid == "all" || rec.Payload.Str("continued-threads") == "all"
	threadID := 1
	if id, err := strconv.Atoi(tid); err == nil {
		threadID = id
	}
	n.Continued(threadID, all)
	// resumed threads invalidate every stack the client has seen
	n.InvalidatedStacks()
}
