package debugger

import (
	"testing"

	"github.com/gdbdap/gdbdap/service/api"
)

func TestSetBreakpointsConditional(t *testing.T) {
	d, fake := startDebugger(t)
	fake.Respond("-break-list", `^done,BreakpointTable={body=[]}`)
	fake.Respond("-break-insert", `^done,bkpt={number="1",line="5",fullname="/src/main.c"}`)
	bps, err := d.SetBreakpoints("/src/main.c", []api.SourceBreakpoint{
		{Line: 5, Condition: "x > 1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(bps) != 1 || !bps[0].Verified {
		t.Fatalf("got %+v, want one verified breakpoint", bps)
	}
	if fake.CommandIndex(`-break-insert -c "x > 1" /src/main.c:5`, 0) < 0 {
		t.Errorf("got commands %v, want conditional insert", fake.Commands())
	}
}

// A line the backend slides to the next line with code is reported at
// its bound position.
func TestSetBreakpointsReportsBoundLine(t *testing.T) {
	d, fake := startDebugger(t)
	fake.Respond("-break-list", `^done,BreakpointTable={body=[]}`)
	fake.Respond("-break-insert", `^done,bkpt={number="1",line="7",fullname="/src/main.c"}`)
	bps, err := d.SetBreakpoints("/src/main.c", []api.SourceBreakpoint{{Line: 6}})
	if err != nil {
		t.Fatal(err)
	}
	if bps[0].Line != 7 {
		t.Errorf("got line %d, want the backend's bound line 7", bps[0].Line)
	}
}

// One line failing to bind must not fail the rest of the batch.
func TestSetBreakpointsPartialFailure(t *testing.T) {
	d, fake := startDebugger(t)
	fake.Respond("-break-list", `^done,BreakpointTable={body=[]}`)
	fake.RespondOnce("-break-insert", `^error,msg="No source file named main.c."`)
	fake.Respond("-break-insert", `^done,bkpt={number="2",line="9",fullname="/src/main.c"}`)
	bps, err := d.SetBreakpoints("/src/main.c", []api.SourceBreakpoint{{Line: 5}, {Line: 9}})
	if err != nil {
		t.Fatal(err)
	}
	if bps[0].Verified || bps[0].Message == "" {
		t.Errorf("got %+v, want unverified with message", bps[0])
	}
	if !bps[1].Verified || bps[1].Line != 9 {
		t.Errorf("got %+v, want verified on line 9", bps[1])
	}
}

func TestBreakpointLocationsFiltersAndSorts(t *testing.T) {
	d, fake := startDebugger(t)
	fake.Respond("-symbol-list-lines",
		`^done,lines=[{pc="0x4",line="9"},{pc="0x1",line="5"},{pc="0x2",line="5"},{pc="0x3",line="80"}]`)

	// single line query
	lines, err := d.BreakpointLocations("/src/main.c", 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != 5 {
		t.Errorf("got %v, want [5]", lines)
	}

	// range query, deduplicated and ascending
	lines, err = d.BreakpointLocations("/src/main.c", 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0] != 5 || lines[1] != 9 {
		t.Errorf("got %v, want [5 9]", lines)
	}
}

// Line tables are cached per file, repeated queries must not hit the
// backend again.
func TestSymbolLinesCached(t *testing.T) {
	d, fake := startDebugger(t)
	fake.Respond("-symbol-list-lines", `^done,lines=[{pc="0x1",line="5"}]`)
	if _, err := d.BreakpointLocations("/src/main.c", 5, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := d.BreakpointLocations("/src/main.c", 1, 100); err != nil {
		t.Fatal(err)
	}
	if fake.CommandIndex("-symbol-list-lines", 1) >= 0 {
		t.Error("second query hit the backend instead of the cache")
	}

	// reloading symbols invalidates the cache
	d.lineCache.Purge()
	if _, err := d.BreakpointLocations("/src/main.c", 5, 0); err != nil {
		t.Fatal(err)
	}
	if fake.CommandIndex("-symbol-list-lines", 1) < 0 {
		t.Error("query after purge did not hit the backend")
	}
}
