package debugger

import (
	"debug/pe"
	"os"

	"github.com/gdbdap/gdbdap/service/api"
)

// pidRunning reports whether a process with the given pid exists. There
// is no cheap signal probe on Windows, the attach command itself is
// left to produce the error.
func pidRunning(pid int) bool {
	return pid > 0
}

func verifyBinaryFormat(exePath string) error {
	f, err := os.Open(exePath)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := pe.NewFile(f); err != nil {
		return api.ErrNotExecutable
	}
	return nil
}
