package debugger

import (
	"fmt"
	"sort"

	"github.com/gdbdap/gdbdap/service/api"
)

// SetBreakpoints replaces the breakpoints of a source file: whatever
// the backend holds for path is cleared, then each requested line is
// inserted on its own. One line failing to bind does not affect the
// others.
func (d *Debugger) SetBreakpoints(path string, reqs []api.SourceBreakpoint) ([]api.Breakpoint, error) {
	if err := d.clearFileBreakpoints(path); err != nil {
		return nil, err
	}
	bps := make([]api.Breakpoint, 0, len(reqs))
	for _, req := range reqs {
		bps = append(bps, d.insertBreakpoint(path, req))
	}
	return bps, nil
}

func (d *Debugger) insertBreakpoint(path string, req api.SourceBreakpoint) api.Breakpoint {
	cmd := fmt.Sprintf("-break-insert %s:%d", path, req.Line)
	if req.Condition != "" {
		cmd = fmt.Sprintf("-break-insert -c %q %s:%d", req.Condition, path, req.Line)
	}
	records, err := d.Send(cmd)
	if err != nil {
		return api.Breakpoint{Line: req.Line, Message: err.Error()}
	}
	if err := ResultErr(records); err != nil {
		return api.Breakpoint{Line: req.Line, Message: err.Error()}
	}
	// report the line the backend actually bound, it may have slid to
	// the next line with code
	line := resultPayload(records).Dict("bkpt").Int("line", req.Line)
	return api.Breakpoint{Verified: true, Line: line}
}

// clearFileBreakpoints deletes every breakpoint the backend holds for
// path. Breakpoints on other files are left alone.
func (d *Debugger) clearFileBreakpoints(path string) error {
	records, err := d.Send("-break-list")
	if err != nil {
		return err
	}
	if err := ResultErr(records); err != nil {
		return err
	}
	for _, bkpt := range resultPayload(records).Dict("BreakpointTable").List("body").Dicts() {
		if bkpt.Str("fullname") != path {
			continue
		}
		number := bkpt.Str("number")
		if number == "" {
			continue
		}
		if err := d.SendChecked(fmt.Sprintf("-break-delete %s", number), false); err != nil {
			d.log.Errorf("failed to delete breakpoint %s: %v", number, err)
		}
	}
	return nil
}

// BreakpointLocations returns the lines of path that can take a
// breakpoint, restricted to line or, when endLine is positive, to the
// [line, endLine] range. The result is deduplicated and ascending.
func (d *Debugger) BreakpointLocations(path string, line, endLine int) ([]int, error) {
	lines, err := d.symbolLines(path)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	var out []int
	for _, l := range lines {
		match := l == line
		if endLine > 0 {
			match = l >= line && l <= endLine
		}
		if match && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out, nil
}

// symbolLines returns every line of path that has code according to
// the backend's symbol table. Tables are cached per file until symbols
// are reloaded.
func (d *Debugger) symbolLines(path string) ([]int, error) {
	if cached, ok := d.lineCache.Get(path); ok {
		return cached.([]int), nil
	}
	records, err := d.Send(fmt.Sprintf("-symbol-list-lines %s", path))
	if err != nil {
		return nil, err
	}
	if err := ResultErr(records); err != nil {
		return nil, err
	}
	var lines []int
	for _, e := range resultPayload(records).List("lines").Dicts() {
		if l := e.Int("line", 0); l > 0 {
			lines = append(lines, l)
		}
	}
	d.lineCache.Add(path, lines)
	return lines, nil
}

// SetExecCatchpoint makes the backend stop when an inferior execs, so
// process replacement stays observable in multi process sessions.
func (d *Debugger) SetExecCatchpoint() error {
	return d.SendChecked("catch exec", false)
}
