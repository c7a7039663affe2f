package dap

import (
	"encoding/json"

	"github.com/gdbdap/gdbdap/service/api"
	"github.com/google/go-dap"
)

// AttachConfig is the collection of attach request attributes recognized
// by the adapter. The debuggee is always an already running process; the
// adapter never launches one.
type AttachConfig struct {
	// Pid of the process to attach to. Required.
	Pid int `json:"pid"`

	// Program is the path of the debuggee's executable image, loaded for
	// debug symbols. Optional; when unset symbols come from the attach.
	Program string `json:"program,omitempty"`

	// GdbPath overrides the configured gdb binary for this session.
	GdbPath string `json:"gdbPath,omitempty"`

	// GdbServer is the address of a gdbserver to connect to before
	// attaching. When unset the backend debugs local processes.
	GdbServer string `json:"gdbServer,omitempty"`

	// SetupCommands are raw backend commands issued right after the
	// backend starts, before anything is attached.
	SetupCommands []SetupCommand `json:"setupCommands,omitempty"`
}

// SetupCommand is one user provided backend command run during attach.
type SetupCommand struct {
	Text           string `json:"text"`
	IgnoreFailures bool   `json:"ignoreFailures,omitempty"`
}

// customRequest is the decoded form of a request whose command is not
// part of the DAP schema. Arguments stay raw; each handler extracts the
// fields it needs.
type customRequest struct {
	dap.Request
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// customResponse is the counterpart shape for answering custom
// requests. It is written to the wire as plain JSON since the DAP codec
// only knows schema commands.
type customResponse struct {
	dap.Response
	Body interface{} `json:"body,omitempty"`
}

type processRef struct {
	Pid int `json:"pid"`
}

type listProcessesResponseBody struct {
	Processes      []api.ProcessInfo `json:"processes"`
	CurrentProcess processRef        `json:"currentProcess"`
}

type detachInferiorsResponseBody struct {
	CurrentPid int `json:"currentPid"`
}

type continueAfterProcessExitResponseBody struct {
	Continue bool `json:"continue"`
}
