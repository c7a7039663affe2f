package debugger

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/gdbdap/gdbdap/pkg/gdbmi"
	"github.com/gdbdap/gdbdap/service/api"
)

// Inferior is one process-type thread group of the backend.
type Inferior struct {
	// ID is the backend identifier, e.g. "i2".
	ID string
	// Num is the numeric part of ID, used by CLI commands.
	Num int
	// Pid of the attached process, 0 for empty inferiors.
	Pid int
}

// Inferiors lists the backend's process-type thread groups.
func (d *Debugger) Inferiors() ([]Inferior, error) {
	records, err := d.Send("-list-thread-groups")
	if err != nil {
		return nil, err
	}
	if err := ResultErr(records); err != nil {
		return nil, err
	}
	var infs []Inferior
	for _, g := range resultPayload(records).List("groups").Dicts() {
		if g.Str("type") != "process" {
			continue
		}
		id := g.Str("id")
		infs = append(infs, Inferior{ID: id, Num: inferiorNum(id), Pid: g.Int("pid", 0)})
	}
	return infs, nil
}

// inferiorNum extracts the numeric inferior id from a thread group id
// such as "i2".
func inferiorNum(id string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(id, "i"))
	return n
}

func findInferiorByPid(infs []Inferior, pid int) *Inferior {
	for i := range infs {
		if infs[i].Pid == pid {
			return &infs[i]
		}
	}
	return nil
}

var (
	threadTargetRe = regexp.MustCompile(`Thread (\d+)\.\d+`)
	lwpTargetRe    = regexp.MustCompile(`\(LWP (\d+)\)`)
)

// pidFromTargetID extracts a pid from a thread's target-id string.
// Native targets describe threads as "Thread <pid>.<tid>", remote ones
// append "(LWP <pid>)".
func pidFromTargetID(targetID string) int {
	if m := threadTargetRe.FindStringSubmatch(targetID); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := lwpTargetRe.FindStringSubmatch(targetID); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// CurrentPid returns the pid owning the backend's current thread, or 0
// when it cannot be determined.
func (d *Debugger) CurrentPid() (int, error) {
	records, err := d.Send("-thread-info")
	if err != nil {
		return 0, err
	}
	payload := resultPayload(records)
	cur := payload.Str("current-thread-id")
	if cur == "" {
		return 0, nil
	}
	for _, th := range payload.List("threads").Dicts() {
		if th.Str("id") == cur {
			return pidFromTargetID(th.Str("target-id")), nil
		}
	}
	return 0, nil
}

// currentInferior determines the inferior owning the current thread.
// When the backend has no usable current thread it falls back to the
// first inferior and makes it current.
func (d *Debugger) currentInferior() (Inferior, error) {
	pid, err := d.CurrentPid()
	if err != nil {
		return Inferior{}, err
	}
	infs, err := d.Inferiors()
	if err != nil {
		return Inferior{}, err
	}
	if pid > 0 {
		if inf := findInferiorByPid(infs, pid); inf != nil {
			return *inf, nil
		}
	}
	if len(infs) == 0 {
		return Inferior{}, errors.New("no inferiors")
	}
	first := infs[0]
	if err := d.SendChecked(fmt.Sprintf("inferior %d", first.Num), false); err != nil {
		return Inferior{}, err
	}
	return first, nil
}

// AttachToProcess attaches the backend to pid and leaves it as the only
// attached inferior. program, when given, is loaded for symbols.
func (d *Debugger) AttachToProcess(pid int, program string) error {
	if !pidRunning(pid) {
		return fmt.Errorf("no process with PID %d", pid)
	}
	infs, err := d.Inferiors()
	if err != nil {
		return err
	}
	if findInferiorByPid(infs, pid) == nil {
		if err := d.SendChecked(fmt.Sprintf("attach %d", pid), false); err != nil {
			return fmt.Errorf("failed to attach to PID %d: %v", pid, err)
		}
	}
	if err := d.ensureCurrentAndDetachOthers(pid); err != nil {
		return err
	}
	if program != "" {
		return d.LoadProgramSymbols(program)
	}
	return nil
}

// ensureCurrentAndDetachOthers makes pid's inferior current and
// detaches every other attached inferior. Attach is a single target
// operation; multi process debugging is entered explicitly through
// AddInferiorsWithPids.
func (d *Debugger) ensureCurrentAndDetachOthers(pid int) error {
	infs, err := d.Inferiors()
	if err != nil {
		return err
	}
	target := findInferiorByPid(infs, pid)
	if target == nil {
		return fmt.Errorf("no inferior found for PID %d", pid)
	}
	if err := d.SendChecked(fmt.Sprintf("inferior %d", target.Num), false); err != nil {
		return fmt.Errorf("failed to switch to inferior %d: %v", target.Num, err)
	}
	for _, inf := range infs {
		if inf.Num == target.Num || inf.Pid == 0 {
			continue
		}
		if err := d.SendChecked(fmt.Sprintf("detach inferior %d", inf.Num), false); err != nil {
			return fmt.Errorf("failed to detach inferior %d: %v", inf.Num, err)
		}
	}
	return nil
}

// LoadProgramSymbols points the backend at the program image to load
// symbols from. The path is validated host side first; the backend's
// own diagnostics for a bad file are less descriptive.
func (d *Debugger) LoadProgramSymbols(program string) error {
	if _, err := os.Stat(program); err != nil {
		return fmt.Errorf("the path %s does not exist", program)
	}
	if err := verifyBinaryFormat(program); err != nil {
		return fmt.Errorf("%s: %v", program, err)
	}
	d.lineCache.Purge()
	return d.SendChecked(fmt.Sprintf("file %s", program), true)
}

// AddInferiorsWithPids attaches additional processes as new inferiors,
// restoring the originally current inferior afterwards. Pids that fail
// along the way are logged and skipped. The caller is expected to
// suspend event delivery for the duration, attaching stops and restarts
// targets.
func (d *Debugger) AddInferiorsWithPids(pids []int) error {
	if len(pids) == 0 {
		return nil
	}
	cur, err := d.currentInferior()
	if err != nil {
		if err == ErrBackendUnavailable {
			return err
		}
		d.log.Errorf("failed to determine current inferior: %v", err)
		return nil
	}
	for _, pid := range pids {
		if err := d.addInferiorWithPid(pid); err != nil {
			if err == ErrBackendUnavailable {
				return err
			}
			d.log.Errorf("failed to add inferior for PID %d: %v", pid, err)
		}
	}
	if err := d.SendChecked(fmt.Sprintf("inferior %d", cur.Num), false); err != nil {
		d.log.Errorf("failed to restore inferior %d: %v", cur.Num, err)
	}
	return nil
}

func (d *Debugger) addInferiorWithPid(pid int) error {
	records, err := d.Send("add-inferior")
	if err != nil {
		return err
	}
	if err := ResultErr(records); err != nil {
		return err
	}
	num, ok := parseAddedInferior(records)
	if !ok {
		return errors.New("could not determine the number of the added inferior")
	}
	if err := d.SendChecked(fmt.Sprintf("inferior %d", num), false); err != nil {
		return err
	}
	return d.SendChecked(fmt.Sprintf("attach %d", pid), false)
}

var addedInferiorRe = regexp.MustCompile(`Added inferior (\d+)`)

// parseAddedInferior extracts the inferior number announced on the
// console by a successful add-inferior command. The announcement can
// interleave with unrelated records; the first match wins.
func parseAddedInferior(records []gdbmi.Record) (int, bool) {
	for _, rec := range records {
		if rec.Class != gdbmi.RecordConsole {
			continue
		}
		if m := addedInferiorRe.FindStringSubmatch(rec.Stream); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil && n > 0 {
				return n, true
			}
		}
	}
	return 0, false
}

// DetachInferiors detaches the inferiors bound to pids and removes them
// from the backend. When the current inferior is among them the backend
// is switched to a survivor first, or plainly detached when none
// survive.
func (d *Debugger) DetachInferiors(pids []int) error {
	if len(pids) == 0 {
		return nil
	}
	infs, err := d.Inferiors()
	if err != nil {
		return err
	}
	curPid, err := d.CurrentPid()
	if err != nil {
		return err
	}
	doomed := make(map[int]bool, len(pids))
	for _, pid := range pids {
		doomed[pid] = true
	}
	if doomed[curPid] {
		var survivor *Inferior
		for i := range infs {
			if infs[i].Pid > 0 && !doomed[infs[i].Pid] {
				survivor = &infs[i]
				break
			}
		}
		if survivor != nil {
			if err := d.SendChecked(fmt.Sprintf("inferior %d", survivor.Num), false); err != nil {
				d.log.Errorf("failed to switch to inferior %d: %v", survivor.Num, err)
			}
		} else if err := d.SendChecked("detach", false); err != nil {
			d.log.Errorf("failed to detach current inferior: %v", err)
		}
	}
	for _, inf := range infs {
		if !doomed[inf.Pid] || inf.Pid == 0 {
			continue
		}
		if err := d.SendChecked(fmt.Sprintf("detach inferior %d", inf.Num), false); err != nil {
			d.log.Errorf("failed to detach inferior %d: %v", inf.Num, err)
		}
		if _, err := d.Send(fmt.Sprintf("remove-inferior %d", inf.Num)); err != nil {
			return err
		}
	}
	return nil
}

// SelectInferior makes the inferior attached to pid current. Reports
// false when pid is not a tracked inferior.
func (d *Debugger) SelectInferior(pid int) (bool, error) {
	infs, err := d.Inferiors()
	if err != nil {
		return false, err
	}
	target := findInferiorByPid(infs, pid)
	if target == nil {
		d.log.Warnf("select inferior: PID %d is not tracked", pid)
		return false, nil
	}
	if err := d.SendChecked(fmt.Sprintf("inferior %d", target.Num), false); err != nil {
		return false, err
	}
	return true, nil
}

// Processes lists the processes visible on the backend's host.
func (d *Debugger) Processes() ([]api.ProcessInfo, error) {
	records, err := d.Send("-info-os processes")
	if err != nil {
		return nil, err
	}
	if err := ResultErr(records); err != nil {
		return nil, err
	}
	var procs []api.ProcessInfo
	for _, row := range resultPayload(records).Dict("OSDataTable").List("body").Dicts() {
		pid := row.Int("col0", 0)
		if pid == 0 {
			continue
		}
		procs = append(procs, api.ProcessInfo{Pid: pid, Name: row.Str("col1")})
	}
	return procs, nil
}

// ConnectToGdbServer points the backend at a gdbserver and applies the
// shared target settings to it. The connection is left detached; the
// attach that follows picks the target process.
func (d *Debugger) ConnectToGdbServer(addr string) error {
	if err := d.SendChecked(fmt.Sprintf("target extended-remote %s", addr), false); err != nil {
		return fmt.Errorf("failed to connect to gdbserver at %s: %v", addr, err)
	}
	if err := d.applySharedSettings(); err != nil {
		return err
	}
	if err := d.SendChecked("detach", false); err != nil {
		d.log.Warnf("detach after gdbserver connect: %v", err)
	}
	d.lineCache.Purge()
	return nil
}

// ContinueAfterProcessExit resumes the surviving inferiors after one of
// them exited, then interrupts again so every remaining thread settles
// into a clean stopped state. Reports whether a continue was issued.
func (d *Debugger) ContinueAfterProcessExit() (bool, error) {
	infs, err := d.Inferiors()
	if err != nil {
		return false, err
	}
	if len(infs) == 0 {
		return false, nil
	}
	if _, err := d.currentInferior(); err != nil {
		return false, err
	}
	if err := d.Continue(0); err != nil {
		return false, err
	}
	if err := d.Pause(0); err != nil {
		return false, err
	}
	return true, nil
}
