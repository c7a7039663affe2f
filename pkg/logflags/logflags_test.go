package logflags

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func resetFlags() {
	dap = false
	debugger = false
	gdbWire = false
}

func TestSetupParsesComponents(t *testing.T) {
	defer resetFlags()
	if err := Setup(true, "dap,gdbwire", ""); err != nil {
		t.Fatal(err)
	}
	if !DAP() || !GdbWire() {
		t.Errorf("got dap=%v gdbwire=%v, want both enabled", DAP(), GdbWire())
	}
	if Debugger() {
		t.Error("debugger logging enabled without being requested")
	}
}

func TestSetupDefaultsToDebugger(t *testing.T) {
	defer resetFlags()
	if err := Setup(true, "", ""); err != nil {
		t.Fatal(err)
	}
	if !Debugger() {
		t.Error("debugger logging not enabled by default")
	}
}

func TestSetupRejectsOutputWithoutLog(t *testing.T) {
	defer resetFlags()
	if err := Setup(false, "dap", ""); err != errLogstrWithoutLog {
		t.Errorf("got %v, want %v", err, errLogstrWithoutLog)
	}
}

func TestDisabledLoggerIsSilent(t *testing.T) {
	defer resetFlags()
	if err := Setup(false, "", ""); err != nil {
		t.Fatal(err)
	}
	logger := DebuggerLogger()
	if logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		t.Error("disabled component logger still has debug level enabled")
	}
}

func TestEnabledLoggerHasDebugLevel(t *testing.T) {
	defer resetFlags()
	if err := Setup(true, "debugger", ""); err != nil {
		t.Fatal(err)
	}
	logger := DebuggerLogger()
	if !logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		t.Error("enabled component logger does not log at debug level")
	}
}
