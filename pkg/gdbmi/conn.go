// Package gdbmi drives a gdb process through its machine interface.
//
// The backend is spawned with --interpreter=mi3 and receives commands as
// newline terminated lines on stdin, while its stdout is parsed line by
// line into Records. The protocol is described in the "GDB/MI Interface"
// section of the gdb manual:
//
//	https://sourceware.org/gdb/onlinedocs/gdb/GDB_002fMI.html
//
// Command/response correlation, asynchronous notification routing and
// timeouts are the responsibility of the caller (see service/debugger),
// this package only deals with the byte stream.
package gdbmi

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gdbdap/gdbdap/pkg/logflags"
	"github.com/sirupsen/logrus"
)

// Conn is a connection to a gdb backend speaking MI.
type Conn struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	rdr *bufio.Reader
	log *logrus.Entry
}

// NewConn wraps an existing MI byte stream. Tests use it to drive the
// protocol over in-process pipes instead of a spawned gdb.
func NewConn(in io.WriteCloser, out io.Reader) *Conn {
	return &Conn{in: in, rdr: bufio.NewReader(out), log: logflags.GdbWireLogger()}
}

// Spawn starts a gdb process with the MI interpreter on its standard
// streams. gdbPath defaults to "gdb" when empty; extraArgs are appended
// after the interpreter flags.
func Spawn(gdbPath string, extraArgs []string) (*Conn, error) {
	if gdbPath == "" {
		gdbPath = "gdb"
	}
	args := append([]string{"--nx", "--quiet", "--interpreter=mi3"}, extraArgs...)
	cmd := exec.Command(gdbPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("could not start %s: %v", gdbPath, err)
	}
	c := &Conn{cmd: cmd, in: stdin, rdr: bufio.NewReader(stdout), log: logflags.GdbWireLogger()}
	c.log.Debugf("spawned %s (pid %d)", gdbPath, cmd.Process.Pid)
	return c, nil
}

// Send writes a single MI command line to the backend.
func (c *Conn) Send(command string) error {
	if logflags.GdbWire() {
		c.log.Debugf("-> %s", command)
	}
	if _, err := fmt.Fprintf(c.in, "%s\n", command); err != nil {
		return fmt.Errorf("error writing to gdb: %v", err)
	}
	return nil
}

// Recv reads and parses the next record from the backend. Prompt lines
// and blank lines are skipped; unparsable lines are discarded with a
// warning. Returns io.EOF when the backend closes its output.
func (c *Conn) Recv() (Record, error) {
	for {
		line, err := c.rdr.ReadString('\n')
		if err != nil {
			if len(line) == 0 {
				return Record{}, err
			}
			// parse what arrived before EOF
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.TrimSpace(line) == "(gdb)" {
			if err != nil {
				return Record{}, err
			}
			continue
		}
		if logflags.GdbWire() {
			c.log.Debugf("<- %s", line)
		}
		rec, perr := Parse(line)
		if perr != nil {
			c.log.Warnf("discarding line: %v", perr)
			if err != nil {
				return Record{}, err
			}
			continue
		}
		return rec, nil
	}
}

// Close shuts down the backend process. The command stream is closed
// first, which makes gdb exit on its own; if it does not do so promptly
// it is killed.
func (c *Conn) Close() error {
	c.in.Close()
	if c.cmd == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() {
		done <- c.cmd.Wait()
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		c.cmd.Process.Kill()
		return <-done
	}
}

// Pid returns the process ID of the spawned backend, or 0 for wrapped
// streams.
func (c *Conn) Pid() int {
	if c.cmd == nil || c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}
