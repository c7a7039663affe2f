package service

import (
	"net"

	"github.com/gdbdap/gdbdap/service/debugger"
)

// Config provides the configuration to start a Debugger and expose it
// with a service.
type Config struct {
	// Listener is used to serve requests.
	Listener net.Listener

	// Debugger configures the gdb backend.
	Debugger debugger.Config

	// DisconnectChan will be closed by the server when the client
	// disconnects or requests shutdown. Once it is closed the owner of
	// the server must call Stop.
	DisconnectChan chan struct{}
}
