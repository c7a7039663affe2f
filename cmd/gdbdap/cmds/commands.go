// Package cmds implements the gdbdap command line interface.
package cmds

import (
	"fmt"
	"io/ioutil"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/cosiner/argv"
	"github.com/gdbdap/gdbdap/pkg/config"
	"github.com/gdbdap/gdbdap/pkg/logflags"
	"github.com/gdbdap/gdbdap/pkg/version"
	"github.com/gdbdap/gdbdap/service"
	"github.com/gdbdap/gdbdap/service/dap"
	"github.com/gdbdap/gdbdap/service/debugger"
	"github.com/spf13/cobra"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string
	// addr is the adapter's listen address. Empty means a unix socket in
	// a fresh temporary directory.
	addr string
	// gdbPath overrides the configured gdb binary.
	gdbPath string
	// gdbArgs holds extra gdb arguments as a single shell-style string.
	gdbArgs string

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config
)

const gdbdapLongDesc = `gdbdap is a debug adapter bridging the Debug Adapter Protocol to gdb.

A DAP client connects to the adapter over a socket and attaches to running
processes; the adapter drives gdb through its machine interface and reports
execution state, stacks, variables and breakpoints back to the client.`

// New returns an initialized command tree.
func New() *cobra.Command {
	conf = config.LoadConfig()

	rootCommand = &cobra.Command{
		Use:   "gdbdap",
		Short: "gdbdap bridges the Debug Adapter Protocol to gdb.",
		Long:  gdbdapLongDesc,
		Run:   serveCmd,
	}

	rootCommand.PersistentFlags().StringVarP(&addr, "listen", "l", "", "TCP listen address. The default is a unix socket in a temporary directory.")
	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable debugging server logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", `Comma separated list of components that should produce debug output (dap,debugger,gdbwire)`)
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor.")
	rootCommand.PersistentFlags().StringVar(&gdbPath, "gdb", "", "Path of the gdb binary used as the backend.")
	rootCommand.PersistentFlags().StringVar(&gdbArgs, "gdb-args", "", "Extra arguments passed to gdb at startup, split shell-style.")

	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gdbdap %s\n", version.DefaultVersion)
			fmt.Println(version.BuildInfo())
		},
	}
	rootCommand.AddCommand(versionCommand)

	rootCommand.DisableAutoGenTag = true

	return rootCommand
}

func serveCmd(cmd *cobra.Command, args []string) {
	status := func() int {
		if err := logflags.Setup(log, logOutput, logDest); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		defer logflags.Close()

		debuggerConfig, err := buildDebuggerConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}

		listener, cleanup, err := listen()
		if err != nil {
			fmt.Fprintf(os.Stderr, "couldn't start listener: %s\n", err)
			return 1
		}
		defer cleanup()

		disconnectChan := make(chan struct{})
		server := dap.NewServer(&service.Config{
			Listener:       listener,
			DisconnectChan: disconnectChan,
			Debugger:       debuggerConfig,
		})
		defer server.Stop()

		server.Run()
		waitForDisconnectSignal(disconnectChan)
		return 0
	}()
	os.Exit(status)
}

// buildDebuggerConfig merges the config file with the command line,
// flags winning.
func buildDebuggerConfig() (debugger.Config, error) {
	cfg := debugger.Config{
		GdbPath: conf.GdbPath,
		GdbArgs: conf.GdbArgs,
	}
	if conf.CommandTimeout > 0 {
		cfg.CommandTimeout = time.Duration(conf.CommandTimeout) * time.Second
	}
	if gdbPath != "" {
		cfg.GdbPath = gdbPath
	}
	if gdbArgs != "" {
		parsed, err := argv.Argv(gdbArgs, func(s string) (string, error) {
			return "", fmt.Errorf("command substitution is not allowed in --gdb-args")
		}, nil)
		if err != nil {
			return debugger.Config{}, fmt.Errorf("invalid --gdb-args: %v", err)
		}
		var flat []string
		for _, words := range parsed {
			flat = append(flat, words...)
		}
		cfg.GdbArgs = flat
	}
	return cfg, nil
}

// listen opens the client transport: a TCP listener when --listen was
// given, otherwise a unix socket in a fresh temporary directory with
// its path announced on stdout for the client to pick up.
func listen() (net.Listener, func(), error) {
	if addr != "" {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, nil, err
		}
		return listener, func() { listener.Close() }, nil
	}
	dir, err := ioutil.TempDir("", "gdbdap")
	if err != nil {
		return nil, nil, err
	}
	socketPath := filepath.Join(dir, "gdbdap.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		os.RemoveAll(dir)
		return nil, nil, err
	}
	fmt.Printf("SOCKET_PATH=%s\n", socketPath)
	return listener, func() {
		listener.Close()
		os.RemoveAll(dir)
	}, nil
}

// waitForDisconnectSignal is a blocking function that waits for either
// a SIGINT (Ctrl-C) signal from the OS or for disconnectChan to be closed
// by the server when the client disconnects.
func waitForDisconnectSignal(disconnectChan chan struct{}) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT)
	if runtime.GOOS == "windows" {
		// On windows Ctrl-C sent to the debuggee is delivered as SIGINT
		// to the adapter. Ignore it instead of stopping the server in
		// order to be able to debug signal handlers.
		go func() {
			for range ch {
			}
		}()
		<-disconnectChan
	} else {
		select {
		case <-ch:
		case <-disconnectChan:
		}
	}
}
