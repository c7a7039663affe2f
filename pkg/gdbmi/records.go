package gdbmi

import "strconv"

// Record classes. Exec-async ('*') and notify-async ('=') lines both
// parse as RecordNotify so execution-state notifications and
// thread-group notifications can be classified uniformly.
const (
	RecordResult  = "result"
	RecordNotify  = "notify"
	RecordConsole = "console"
	RecordLog     = "log"
	RecordTarget  = "target"
	RecordOutput  = "output"
)

// Result classes carried by result records.
const (
	ResultDone      = "done"
	ResultRunning   = "running"
	ResultConnected = "connected"
	ResultError     = "error"
	ResultExit      = "exit"
)

// Record is a single line of MI output. Structured records (result and
// notify classes) carry a Payload, stream records (console, log, target
// and unrecognized output) carry Stream.
type Record struct {
	Class   string
	Message string
	Payload Dict
	Stream  string
	Token   string
}

// IsResult reports whether the record is a result record of the given
// result class.
func (r Record) IsResult(class string) bool {
	return r.Class == RecordResult && r.Message == class
}

// ErrorMsg returns the "msg" field of an error result record, or the
// empty string for any other record.
func (r Record) ErrorMsg() string {
	if !r.IsResult(ResultError) {
		return ""
	}
	return r.Payload.Str("msg")
}

// Dict is the parsed form of an MI tuple. Values are string, Dict or
// List.
type Dict map[string]interface{}

// List is the parsed form of an MI list. Items in a list of the form
// [key=value,...] contribute only their values, so repeated-key lists
// such as stack=[frame={...},frame={...}] parse as a List of Dicts.
type List []interface{}

// Str returns the string value for key, or "" when absent or not a
// string.
func (d Dict) Str(key string) string {
	s, _ := d[key].(string)
	return s
}

// Int returns the value for key parsed as an integer, or def when
// absent or unparsable.
func (d Dict) Int(key string, def int) int {
	s, ok := d[key].(string)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Dict returns the tuple value for key, or nil.
func (d Dict) Dict(key string) Dict {
	v, _ := d[key].(Dict)
	return v
}

// List returns the list value for key, or nil.
func (d Dict) List(key string) List {
	v, _ := d[key].(List)
	return v
}

// Dicts returns the elements of the list that are tuples, in order.
func (l List) Dicts() []Dict {
	r := make([]Dict, 0, len(l))
	for _, v := range l {
		if d, ok := v.(Dict); ok {
			r = append(r, d)
		}
	}
	return r
}

// Strings returns the elements of the list that are plain strings, in
// order.
func (l List) Strings() []string {
	r := make([]string, 0, len(l))
	for _, v := range l {
		if s, ok := v.(string); ok {
			r = append(r, s)
		}
	}
	return r
}
