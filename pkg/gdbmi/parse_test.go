package gdbmi

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		line string
		want Record
	}{
		{`^done`, Record{Class: RecordResult, Message: "done"}},
		{`^running`, Record{Class: RecordResult, Message: "running"}},
		{`123^done`, Record{Class: RecordResult, Message: "done", Token: "123"}},
		{
			`^error,msg="No symbol table is loaded."`,
			Record{Class: RecordResult, Message: "error", Payload: Dict{"msg": "No symbol table is loaded."}},
		},
		{
			`*stopped,reason="breakpoint-hit",bkptno="1",thread-id="2",stopped-threads="all"`,
			Record{Class: RecordNotify, Message: "stopped", Payload: Dict{
				"reason": "breakpoint-hit", "bkptno": "1", "thread-id": "2", "stopped-threads": "all",
			}},
		},
		{
			`*running,thread-id="all"`,
			Record{Class: RecordNotify, Message: "running", Payload: Dict{"thread-id": "all"}},
		},
		{
			`=thread-group-started,id="i1",pid="2000"`,
			Record{Class: RecordNotify, Message: "thread-group-started", Payload: Dict{"id": "i1", "pid": "2000"}},
		},
		{`~"Hello, world!\n"`, Record{Class: RecordConsole, Stream: "Hello, world!\n"}},
		{`&"warning: lost it\n"`, Record{Class: RecordLog, Stream: "warning: lost it\n"}},
		{`@"remote says hi"`, Record{Class: RecordTarget, Stream: "remote says hi"}},
		{`bare inferior output`, Record{Class: RecordOutput, Stream: "bare inferior output"}},
		{`(gdb)`, Record{Class: RecordOutput, Stream: "(gdb)"}},
		{
			`^done,frame={level="0",func="main",file="hello.c"}`,
			Record{Class: RecordResult, Message: "done", Payload: Dict{
				"frame": Dict{"level": "0", "func": "main", "file": "hello.c"},
			}},
		},
		{
			`^done,stack=[frame={level="0",func="main"},frame={level="1",func="_start"}]`,
			Record{Class: RecordResult, Message: "done", Payload: Dict{
				"stack": List{
					Dict{"level": "0", "func": "main"},
					Dict{"level": "1", "func": "_start"},
				},
			}},
		},
		{
			`^done,register-names=["rax","rbx",""]`,
			Record{Class: RecordResult, Message: "done", Payload: Dict{
				"register-names": List{"rax", "rbx", ""},
			}},
		},
		{
			`^done,children=[],numchild="0"`,
			Record{Class: RecordResult, Message: "done", Payload: Dict{
				"children": List{}, "numchild": "0",
			}},
		},
		{
			`^done,frame={}`,
			Record{Class: RecordResult, Message: "done", Payload: Dict{"frame": Dict{}}},
		},
		{
			`^done,BreakpointTable={nr_rows="1",body=[bkpt={number="1",fullname="/src/hello.c",line="10"}]}`,
			Record{Class: RecordResult, Message: "done", Payload: Dict{
				"BreakpointTable": Dict{
					"nr_rows": "1",
					"body":    List{Dict{"number": "1", "fullname": "/src/hello.c", "line": "10"}},
				},
			}},
		},
		{`~"a\"b\\c\101\n"`, Record{Class: RecordConsole, Stream: "a\"b\\cA\n"}},
	} {
		got, err := Parse(tc.line)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tc.line, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Parse(%q):\ngot  %#v\nwant %#v", tc.line, got, tc.want)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	for _, line := range []string{
		`^done,foo=`,
		`*stopped,reason=`,
		`^done,lst=[{a="1"}`,
		`^error,msg="unterminated`,
		`^`,
	} {
		if _, err := Parse(line); err == nil {
			t.Errorf("Parse(%q): expected error, got none", line)
		}
	}
}

func TestDictAccessors(t *testing.T) {
	d := Dict{
		"s": "text",
		"n": "42",
		"t": Dict{"inner": "1"},
		"l": List{"a", Dict{"k": "v"}},
	}
	if got := d.Str("s"); got != "text" {
		t.Errorf("Str: got %q want %q", got, "text")
	}
	if got := d.Str("missing"); got != "" {
		t.Errorf("Str on missing key: got %q want empty", got)
	}
	if got := d.Int("n", -1); got != 42 {
		t.Errorf("Int: got %d want 42", got)
	}
	if got := d.Int("s", -1); got != -1 {
		t.Errorf("Int on non-numeric: got %d want -1", got)
	}
	if got := d.Dict("t").Str("inner"); got != "1" {
		t.Errorf("Dict: got %q want %q", got, "1")
	}
	if got := d.List("l").Strings(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Strings: got %#v want [a]", got)
	}
	if got := d.List("l").Dicts(); !reflect.DeepEqual(got, []Dict{{"k": "v"}}) {
		t.Errorf("Dicts: got %#v", got)
	}
	var nilDict Dict
	if got := nilDict.Str("x"); got != "" {
		t.Errorf("Str on nil dict: got %q", got)
	}
}

func TestRecordHelpers(t *testing.T) {
	rec, err := Parse(`^error,msg="Undefined command."`)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.IsResult(ResultError) {
		t.Errorf("IsResult(error): got false")
	}
	if got := rec.ErrorMsg(); got != "Undefined command." {
		t.Errorf("ErrorMsg: got %q", got)
	}
	ok, err := Parse(`^done`)
	if err != nil {
		t.Fatal(err)
	}
	if ok.ErrorMsg() != "" {
		t.Errorf("ErrorMsg on done record: got %q", ok.ErrorMsg())
	}
}
