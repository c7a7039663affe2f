// Package gdbmitest provides a scripted MI backend for tests. The fake
// reads command lines the way gdb would and answers them from canned
// rules, so protocol layers can be exercised without a real gdb.
package gdbmitest

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gdbdap/gdbdap/pkg/gdbmi"
)

type rule struct {
	prefix string
	lines  []string
}

// FakeBackend is a scripted stand-in for a gdb process.
type FakeBackend struct {
	cmdR *io.PipeReader
	outW *io.PipeWriter

	mu    sync.Mutex
	once  []rule
	rules []rule
	seen  []string
}

// New starts a scripted backend and returns it together with a
// connection speaking to it. Commands without a matching rule are
// answered with a bare ^done.
func New() (*FakeBackend, *gdbmi.Conn) {
	cmdR, cmdW := io.Pipe()
	outR, outW := io.Pipe()
	f := &FakeBackend{cmdR: cmdR, outW: outW}
	go f.serve()
	return f, gdbmi.NewConn(cmdW, outR)
}

// Respond registers canned response lines for commands starting with
// prefix. The most recent registration wins. Registering no lines makes
// matching commands go unanswered, which is how timeouts are scripted.
func (f *FakeBackend) Respond(prefix string, lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{prefix: prefix, lines: lines})
}

// RespondOnce registers a response consumed by the first matching
// command. One-shot rules are matched before persistent ones, in
// registration order.
func (f *FakeBackend) RespondOnce(prefix string, lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.once = append(f.once, rule{prefix: prefix, lines: lines})
}

// Emit writes raw MI lines outside any command/response exchange, the
// way gdb reports asynchronous events.
func (f *FakeBackend) Emit(lines ...string) {
	f.write(lines)
}

// Commands returns every command received so far, oldest first.
func (f *FakeBackend) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

// CommandIndex returns the position of the nth (0-based) command
// starting with prefix, or -1.
func (f *FakeBackend) CommandIndex(prefix string, nth int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, cmd := range f.seen {
		if strings.HasPrefix(cmd, prefix) {
			if nth == 0 {
				return i
			}
			nth--
		}
	}
	return -1
}

// Close tears the backend down. Closing the command side of the
// connection has the same effect.
func (f *FakeBackend) Close() {
	f.cmdR.Close()
	f.outW.Close()
}

func (f *FakeBackend) serve() {
	rd := newLineReader(f.cmdR)
	for {
		cmd, err := rd.next()
		if err != nil {
			f.outW.Close()
			return
		}
		f.mu.Lock()
		f.seen = append(f.seen, cmd)
		lines := f.match(cmd)
		f.mu.Unlock()
		f.write(append(lines, "(gdb)"))
	}
}

func (f *FakeBackend) match(cmd string) []string {
	for i, r := range f.once {
		if strings.HasPrefix(cmd, r.prefix) {
			f.once = append(f.once[:i:i], f.once[i+1:]...)
			return r.lines
		}
	}
	for i := len(f.rules) - 1; i >= 0; i-- {
		if strings.HasPrefix(cmd, f.rules[i].prefix) {
			return f.rules[i].lines
		}
	}
	return []string{"^done"}
}

func (f *FakeBackend) write(lines []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, line := range lines {
		if _, err := fmt.Fprintf(f.outW, "%s\n", line); err != nil {
			return
		}
	}
}

// lineReader reads newline terminated commands from a pipe.
type lineReader struct {
	r   io.Reader
	buf []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: r}
}

func (l *lineReader) next() (string, error) {
	for {
		if i := strings.IndexByte(string(l.buf), '\n'); i >= 0 {
			line := strings.TrimRight(string(l.buf[:i]), "\r")
			l.buf = l.buf[i+1:]
			return line, nil
		}
		chunk := make([]byte, 512)
		n, err := l.r.Read(chunk)
		if n > 0 {
			l.buf = append(l.buf, chunk[:n]...)
			continue
		}
		if err != nil {
			return "", err
		}
	}
}
