// Package api holds the types exchanged between the debugger layer and
// protocol frontends, plus the variable reference handle partition
// shared with clients.
package api

import "errors"

// ErrNotExecutable is returned when a program path given for symbol
// loading does not look like a host executable image.
var ErrNotExecutable = errors.New("not an executable file")

// Thread is one thread of the attached inferiors.
type Thread struct {
	ID int `json:"id"`
	// Name is the thread name when the target publishes one, otherwise
	// a fallback derived from TargetID or the numeric id.
	Name     string `json:"name"`
	TargetID string `json:"targetId,omitempty"`
	State    string `json:"state,omitempty"`
	Core     string `json:"core,omitempty"`
	Details  string `json:"details,omitempty"`
}

// StackFrame is one frame of a thread's call stack. ID is the backend
// frame level and doubles as the frame selector in scope handles.
type StackFrame struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	File     string `json:"file,omitempty"`
	FullPath string `json:"fullPath,omitempty"`
	Line     int    `json:"line"`
	Addr     string `json:"addr,omitempty"`
	From     string `json:"from,omitempty"`
	Arch     string `json:"arch,omitempty"`
}

// Variable is one entry of a scope or of an expanded variable.
type Variable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
	// VariablesReference is the handle a client passes back to expand
	// this entry; NoChildren when the entry is a leaf.
	VariablesReference int `json:"variablesReference"`
}

// SourceBreakpoint is one breakpoint requested by the client for a
// source file.
type SourceBreakpoint struct {
	Line      int    `json:"line"`
	Condition string `json:"condition,omitempty"`
}

// Breakpoint is the outcome of one requested breakpoint. Line is the
// line the backend actually bound when verified.
type Breakpoint struct {
	Verified bool   `json:"verified"`
	Line     int    `json:"line"`
	Message  string `json:"message,omitempty"`
}

// ProcessInfo identifies a process on the backend's host.
type ProcessInfo struct {
	Pid  int    `json:"pid"`
	Name string `json:"name,omitempty"`
}
