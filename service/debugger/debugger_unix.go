//go:build !windows
// +build !windows

package debugger

import (
	"debug/elf"
	"debug/macho"
	"os"
	"runtime"

	"github.com/gdbdap/gdbdap/service/api"
	"golang.org/x/sys/unix"
)

// pidRunning reports whether a process with the given pid exists.
// Signal 0 probes for existence without touching the process; EPERM
// still proves it is there.
func pidRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

func verifyBinaryFormat(exePath string) error {
	f, err := os.Open(exePath)
	if err != nil {
		return err
	}
	defer f.Close()

	// check that the binary format is what we expect for the host system
	switch runtime.GOOS {
	case "darwin":
		_, err = macho.NewFile(f)
	default:
		_, err = elf.NewFile(f)
	}
	if err != nil {
		return api.ErrNotExecutable
	}
	return nil
}
