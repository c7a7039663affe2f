package logflags

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var dap = false
var debugger = false
var gdbWire = false

// logOut is the destination of all loggers created by this package.
// When nil logging goes to standard error.
var logOut io.WriteCloser

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	lf := logrus.New()
	lf.Formatter = textFormatter()
	if logOut != nil {
		lf.Out = logOut
	} else {
		lf.Out = colorable.NewColorableStderr()
	}
	lf.Level = logrus.DebugLevel
	if !flag {
		lf.Level = logrus.PanicLevel
	}
	return lf.WithFields(fields)
}

func textFormatter() logrus.Formatter {
	colors := logOut == nil && isatty.IsTerminal(os.Stderr.Fd())
	return &logrus.TextFormatter{
		ForceColors:   colors,
		DisableColors: !colors,
		FullTimestamp: true,
	}
}

// DAP returns true if the DAP session should log the protocol exchanged
// with the client.
func DAP() bool {
	return dap
}

// DAPLogger returns a configured logger for the DAP session.
func DAPLogger() *logrus.Entry {
	return makeLogger(dap, logrus.Fields{"layer": "dap"})
}

// Debugger returns true if the debugger package should log.
func Debugger() bool {
	return debugger
}

// DebuggerLogger returns a logger for the debugger package.
func DebuggerLogger() *logrus.Entry {
	return makeLogger(debugger, logrus.Fields{"layer": "debugger"})
}

// GdbWire returns true if the gdbmi package should log all the lines
// exchanged with the backend.
func GdbWire() bool {
	return gdbWire
}

// GdbWireLogger returns a configured logger for the MI wire protocol.
func GdbWireLogger() *logrus.Entry {
	return makeLogger(gdbWire, logrus.Fields{"layer": "gdbconn"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets logging flags based on the contents of logstr and
// redirects the output of all loggers to logDest. logDest is either a
// file descriptor number or a file path.
func Setup(logFlag bool, logstr, logDest string) error {
	if logDest != "" {
		n, err := strconv.Atoi(logDest)
		if err == nil {
			logOut = os.NewFile(uintptr(n), "log-destination")
		} else {
			fh, err := os.Create(logDest)
			if err != nil {
				return fmt.Errorf("could not create log file: %v", err)
			}
			logOut = fh
		}
	}
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "debugger"
	}
	v := strings.Split(logstr, ",")
	for _, logcmd := range v {
		switch logcmd {
		case "dap":
			dap = true
		case "debugger":
			debugger = true
		case "gdbwire":
			gdbWire = true
		}
	}
	return nil
}

// Close closes the file or file descriptor receiving the logs, if one
// was set up through Setup.
func Close() {
	if logOut != nil {
		logOut.Close()
	}
}

// WriteDAPListeningMessage writes the "server listening" message that
// clients started in a separate process wait for before connecting.
func WriteDAPListeningMessage(addr net.Addr) {
	writeListeningMessage("DAP", addr)
}

func writeListeningMessage(server string, addr net.Addr) {
	msg := fmt.Sprintf("%s server listening at: %s\n", server, addr)
	if logOut != nil {
		fmt.Fprint(logOut, msg)
	} else {
		fmt.Print(msg)
	}
}
