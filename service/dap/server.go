// Package dap bridges the Debug Adapter Protocol to a gdb backend.
// Clients connect over a stream socket and exchange framed JSON
// messages; the server translates them into MI commands for the
// debugger layer and pushes translated backend notifications back as
// DAP events. A server accepts a single client for a single debug
// session. For DAP details see
// https://microsoft.github.io/debug-adapter-protocol.
package dap

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/gdbdap/gdbdap/pkg/logflags"
	"github.com/gdbdap/gdbdap/service"
	"github.com/gdbdap/gdbdap/service/api"
	"github.com/gdbdap/gdbdap/service/debugger"
	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Server implements a DAP server that can accept a single client for
// a single debug session. It does not support restarting.
// The server operates via several goroutines:
// (1) Main goroutine where the server is created via NewServer(),
// started via Run() and stopped via Stop().
// (2) Run goroutine started from Run() that accepts a client connection,
// decodes each request from the accumulated byte stream and processes it,
// issuing commands to the underlying debugger and sending back responses.
// (3) The notifier's writer goroutine, which delivers translated backend
// events to the client independently of request processing.
type Server struct {
	// config is all the information necessary to start the debugger and server.
	config *service.Config
	// listener is used to accept the client connection.
	listener net.Listener
	// conn is the accepted client connection.
	conn net.Conn
	// stopChan is closed when the server is Stop()-ed. This can be used to signal
	// to goroutines run by the server that it's time to quit.
	stopChan chan struct{}
	// debugger drives the gdb backend.
	debugger *debugger.Debugger
	// log is used for structured logging.
	log *logrus.Entry
	// sendMu serializes all writes to the client, responses and events alike.
	sendMu sync.Mutex
	// notifier gates and delivers translated backend events.
	notifier *notifier
	// customHandlers routes request commands outside the DAP schema.
	// Built once at construction.
	customHandlers map[string]func(*customRequest)
}

// NewServer creates a new DAP Server. It takes an opened Listener
// via config and assumes its ownership. config.DisconnectChan has to be set;
// it will be closed by the server when the client disconnects or requests
// shutdown. Once DisconnectChan is closed, Server.Stop() must be called.
func NewServer(config *service.Config) *Server {
	logger := logflags.DAPLogger()
	logflags.WriteDAPListeningMessage(config.Listener.Addr())
	logger.Debug("DAP server pid = ", os.Getpid())
	s := &Server{
		config:   config,
		listener: config.Listener,
		stopChan: make(chan struct{}),
		log:      logger,
	}
	s.notifier = newNotifier(logger, s.send)
	s.customHandlers = map[string]func(*customRequest){
		"listProcesses":            s.onListProcessesRequest,
		"addInferiors":             s.onAddInferiorsRequest,
		"detachInferiors":          s.onDetachInferiorsRequest,
		"selectInferior":           s.onSelectInferiorRequest,
		"continueAfterProcessExit": s.onContinueAfterProcessExitRequest,
	}
	return s
}

// Stop stops the DAP debugger service, closes the listener and the
// client connection and shuts down the backend. This method mustn't be
// called more than once.
func (s *Server) Stop() {
	s.listener.Close()
	close(s.stopChan)
	if s.conn != nil {
		// Unless Stop() was called after serveDAPCodec()
		// returned, this will result in closed connection error
		// on next read, breaking out of the read loop and
		// allowing the run goroutine to exit.
		s.conn.Close()
	}
	s.notifier.Close()
	if s.debugger != nil {
		s.debugger.Stop()
	}
}

// signalDisconnect closes config.DisconnectChan if not nil, which
// signals that the client disconnected or there was a client
// connection failure. Since the server services only one client, this
// can be used as a signal to the entire server via Stop(). The function
// safeguards against closing the channel more than once and can be
// called multiple times. It is not thread-safe and is only called from
// the run goroutine.
func (s *Server) signalDisconnect() {
	if s.config.DisconnectChan != nil {
		close(s.config.DisconnectChan)
		s.config.DisconnectChan = nil
	}
}

// Run launches a new goroutine where it accepts a client connection
// and starts processing requests from it. Use Stop() to close connection.
// The server does not support multiple clients, serially or in parallel.
// The server should be restarted for every new debug session.
// The backend won't be started until an attach request is received.
func (s *Server) Run() {
	go func() {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopChan:
			default:
				s.log.Errorf("Error accepting client connection: %s\n", err)
			}
			s.signalDisconnect()
			return
		}
		s.conn = conn
		s.serveDAPCodec()
	}()
}

// serveDAPCodec accumulates bytes from the client and processes every
// complete frame in arrival order until it encounters a read error or
// EOF, when it sends the disconnect signal and returns. A frame that
// cannot be decoded produces an error response and is skipped; the
// stream keeps going.
func (s *Server) serveDAPCodec() {
	defer s.signalDisconnect()
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		n, err := s.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			buf = s.processBuffered(buf)
		}
		if err != nil {
			stopRequested := false
			select {
			case <-s.stopChan:
				stopRequested = true
			default:
			}
			if err != io.EOF && !stopRequested {
				s.log.Error("DAP error: ", err)
			}
			return
		}
	}
}

// processBuffered dispatches every complete frame currently in buf and
// returns the undecoded remainder.
func (s *Server) processBuffered(buf []byte) []byte {
	for {
		body, rest, ok, err := extractFrame(buf)
		if !ok {
			return buf
		}
		buf = rest
		if err != nil {
			s.log.Error("DAP framing error: ", err)
			s.sendMalformedErrorResponse(err.Error())
			continue
		}
		msg, custom, err := decodeMessage(body)
		switch {
		case err != nil:
			s.log.Error("DAP decode error: ", err)
			s.sendMalformedErrorResponse(err.Error())
		case custom != nil:
			s.handleCustomRequest(custom)
		default:
			s.handleRequest(msg)
		}
	}
}

func (s *Server) handleRequest(request dap.Message) {
	defer func() {
		// In case a handler panics, we catch the panic and send an error response
		// back to the client.
		if ierr := recover(); ierr != nil {
			s.sendInternalErrorResponse(request.GetSeq(), fmt.Sprintf("%v", ierr))
		}
	}()

	jsonmsg, _ := json.Marshal(request)
	s.log.Debug("[<- from client]", string(jsonmsg))

	switch request := request.(type) {
	case *dap.InitializeRequest:
		s.onInitializeRequest(request)
	case *dap.LaunchRequest:
		// The adapter only ever attaches to running processes.
		s.sendErrorResponse(request.Request, FailedToLaunch, "Failed to launch",
			"launch is not supported, attach to a running process instead")
	case *dap.AttachRequest:
		s.onAttachRequest(request)
	case *dap.DisconnectRequest:
		s.onDisconnectRequest(request)
	case *dap.SetBreakpointsRequest:
		s.onSetBreakpointsRequest(request)
	case *dap.BreakpointLocationsRequest:
		s.onBreakpointLocationsRequest(request)
	case *dap.SetExceptionBreakpointsRequest:
		// Sent even though no filters were advertised. Handle as no-op.
		s.send(&dap.SetExceptionBreakpointsResponse{Response: *newResponse(request.Request)})
	case *dap.ConfigurationDoneRequest:
		s.send(&dap.ConfigurationDoneResponse{Response: *newResponse(request.Request)})
	case *dap.ContinueRequest:
		s.onContinueRequest(request)
	case *dap.NextRequest:
		s.onNextRequest(request)
	case *dap.StepInRequest:
		s.onStepInRequest(request)
	case *dap.StepOutRequest:
		s.onStepOutRequest(request)
	case *dap.PauseRequest:
		s.onPauseRequest(request)
	case *dap.ThreadsRequest:
		s.onThreadsRequest(request)
	case *dap.StackTraceRequest:
		s.onStackTraceRequest(request)
	case *dap.ScopesRequest:
		s.onScopesRequest(request)
	case *dap.VariablesRequest:
		s.onVariablesRequest(request)
	case *dap.EvaluateRequest:
		s.onEvaluateRequest(request)
	case *dap.SourceRequest:
		s.onSourceRequest(request)
	default:
		if req, ok := request.(dap.RequestMessage); ok {
			r := req.GetRequest()
			s.sendErrorResponse(*r, UnsupportedCommand, "Unsupported command",
				fmt.Sprintf("cannot process %q request", r.Command))
			return
		}
		s.sendInternalErrorResponse(request.GetSeq(), fmt.Sprintf("Unable to process %#v\n", request))
	}
}

// handleCustomRequest routes commands outside the DAP schema through
// the static handler table. Commands without a handler are simply
// unknown.
func (s *Server) handleCustomRequest(request *customRequest) {
	defer func() {
		if ierr := recover(); ierr != nil {
			s.sendInternalErrorResponse(request.Seq, fmt.Sprintf("%v", ierr))
		}
	}()
	s.log.Debugf("[<- from client] custom %q %s", request.Command, string(request.Arguments))
	handler, ok := s.customHandlers[request.Command]
	if !ok {
		s.sendErrorResponse(request.Request, UnsupportedCommand, "Unsupported command",
			fmt.Sprintf("cannot process %q request", request.Command))
		return
	}
	if s.debugger == nil {
		s.sendErrorResponse(request.Request, UnableToManageInferiors, "No debug session",
			"attach before issuing process management requests")
		return
	}
	handler(request)
}

func (s *Server) send(message dap.Message) {
	jsonmsg, _ := json.Marshal(message)
	s.log.Debug("[-> to client]", string(jsonmsg))
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	dap.WriteProtocolMessage(s.conn, message)
}

// sendCustom writes a message the DAP codec has no schema for, framed
// the same way as every other message.
func (s *Server) sendCustom(message interface{}) {
	body, err := json.Marshal(message)
	if err != nil {
		s.log.Error("marshaling custom response: ", err)
		return
	}
	s.log.Debug("[-> to client]", string(body))
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	dap.WriteBaseMessage(s.conn, body)
}

func (s *Server) onInitializeRequest(request *dap.InitializeRequest) {
	response := &dap.InitializeResponse{Response: *newResponse(request.Request)}
	response.Body.SupportsConfigurationDoneRequest = true
	response.Body.SupportsConditionalBreakpoints = true
	response.Body.SupportsBreakpointLocationsRequest = true
	s.send(response)
	s.send(&dap.InitializedEvent{Event: *newEvent("initialized")})
}

func (s *Server) onAttachRequest(request *dap.AttachRequest) {
	var args AttachConfig
	if err := unmarshalArguments(request.Arguments, &args); err != nil {
		s.sendErrorResponse(request.Request, FailedToAttach, "Failed to attach", err.Error())
		return
	}
	if args.Pid <= 0 {
		s.sendErrorResponse(request.Request, FailedToAttach, "Failed to attach",
			"The pid attribute is missing in debug configuration.")
		return
	}
	if s.debugger == nil {
		cfg := s.config.Debugger
		if args.GdbPath != "" {
			cfg.GdbPath = args.GdbPath
		}
		d := debugger.New(&cfg)
		if err := d.Start(); err != nil {
			s.sendErrorResponse(request.Request, FailedToAttach, "Failed to attach", err.Error())
			return
		}
		d.SetNotifier(s.notifier)
		s.debugger = d
	}
	for _, sc := range args.SetupCommands {
		if err := s.debugger.SendChecked(sc.Text, sc.IgnoreFailures); err != nil {
			s.sendErrorResponse(request.Request, FailedToAttach, "Failed to attach",
				fmt.Sprintf("setup command %q failed: %v", sc.Text, err))
			return
		}
	}
	if args.GdbServer != "" {
		if err := s.debugger.ConnectToGdbServer(args.GdbServer); err != nil {
			s.sendErrorResponse(request.Request, FailedToAttach, "Failed to attach", err.Error())
			return
		}
	}
	if err := s.debugger.AttachToProcess(args.Pid, args.Program); err != nil {
		s.sendErrorResponse(request.Request, FailedToAttach, "Failed to attach", err.Error())
		return
	}
	// keep exec transitions observable in multi-process sessions
	if err := s.debugger.SetExecCatchpoint(); err != nil {
		s.log.Warnf("could not set exec catchpoint: %v", err)
	}
	s.notifier.Enable()
	s.send(&dap.AttachResponse{Response: *newResponse(request.Request)})
	stopped := &dap.StoppedEvent{Event: *newEvent("stopped")}
	stopped.Body.Reason = "entry"
	stopped.Body.ThreadId = 1
	stopped.Body.AllThreadsStopped = true
	s.send(stopped)
}

// onDisconnectRequest handles the DisconnectRequest. Per the DAP spec,
// it detaches the debuggee and signals that the debug adaptor can be
// terminated.
func (s *Server) onDisconnectRequest(request *dap.DisconnectRequest) {
	s.send(&dap.DisconnectResponse{Response: *newResponse(request.Request)})
	s.notifier.Disable()
	if s.debugger != nil {
		s.debugger.Stop()
		s.debugger = nil
	}
	s.signalDisconnect()
}

func (s *Server) onSetBreakpointsRequest(request *dap.SetBreakpointsRequest) {
	if request.Arguments.Source.Path == "" {
		s.sendErrorResponse(request.Request, UnableToSetBreakpoints, "Unable to set breakpoints",
			"empty file path")
		return
	}
	if s.debugger == nil {
		s.sendErrorResponse(request.Request, UnableToSetBreakpoints, "Unable to set breakpoints", "no debug session")
		return
	}
	reqs := make([]api.SourceBreakpoint, len(request.Arguments.Breakpoints))
	for i, b := range request.Arguments.Breakpoints {
		reqs[i] = api.SourceBreakpoint{Line: b.Line, Condition: b.Condition}
	}
	got, err := s.debugger.SetBreakpoints(request.Arguments.Source.Path, reqs)
	if err != nil {
		s.sendErrorResponse(request.Request, UnableToSetBreakpoints, "Unable to set breakpoints", err.Error())
		return
	}
	response := &dap.SetBreakpointsResponse{Response: *newResponse(request.Request)}
	response.Body.Breakpoints = make([]dap.Breakpoint, len(got))
	for i, bp := range got {
		response.Body.Breakpoints[i] = dap.Breakpoint{
			Verified: bp.Verified,
			Line:     bp.Line,
			Message:  bp.Message,
		}
		if bp.Verified {
			response.Body.Breakpoints[i].Source = &dap.Source{
				Name: filepath.Base(request.Arguments.Source.Path),
				Path: request.Arguments.Source.Path,
			}
		}
	}
	s.send(response)
}

func (s *Server) onBreakpointLocationsRequest(request *dap.BreakpointLocationsRequest) {
	if s.debugger == nil {
		s.sendErrorResponse(request.Request, UnableToSetBreakpoints, "Unable to list breakpoint locations", "no debug session")
		return
	}
	lines, err := s.debugger.BreakpointLocations(
		request.Arguments.Source.Path, request.Arguments.Line, request.Arguments.EndLine)
	if err != nil {
		s.sendErrorResponse(request.Request, UnableToSetBreakpoints, "Unable to list breakpoint locations", err.Error())
		return
	}
	response := &dap.BreakpointLocationsResponse{Response: *newResponse(request.Request)}
	response.Body.Breakpoints = make([]dap.BreakpointLocation, len(lines))
	for i, line := range lines {
		response.Body.Breakpoints[i] = dap.BreakpointLocation{Line: line}
	}
	s.send(response)
}

func (s *Server) onContinueRequest(request *dap.ContinueRequest) {
	if s.debugger == nil {
		s.sendErrorResponse(request.Request, UnableToControlExecution, "Unable to continue", "no debug session")
		return
	}
	if err := s.debugger.Continue(request.Arguments.ThreadId); err != nil {
		s.sendErrorResponse(request.Request, UnableToControlExecution, "Unable to continue", err.Error())
		return
	}
	response := &dap.ContinueResponse{Response: *newResponse(request.Request)}
	response.Body.AllThreadsContinued = true
	s.send(response)
}

func (s *Server) onNextRequest(request *dap.NextRequest) {
	if s.debugger == nil {
		s.sendErrorResponse(request.Request, UnableToControlExecution, "Unable to step over", "no debug session")
		return
	}
	if err := s.debugger.Next(request.Arguments.ThreadId); err != nil {
		s.sendErrorResponse(request.Request, UnableToControlExecution, "Unable to step over", err.Error())
		return
	}
	s.send(&dap.NextResponse{Response: *newResponse(request.Request)})
}

func (s *Server) onStepInRequest(request *dap.StepInRequest) {
	if s.debugger == nil {
		s.sendErrorResponse(request.Request, UnableToControlExecution, "Unable to step in", "no debug session")
		return
	}
	if err := s.debugger.StepIn(request.Arguments.ThreadId); err != nil {
		s.sendErrorResponse(request.Request, UnableToControlExecution, "Unable to step in", err.Error())
		return
	}
	s.send(&dap.StepInResponse{Response: *newResponse(request.Request)})
}

func (s *Server) onStepOutRequest(request *dap.StepOutRequest) {
	if s.debugger == nil {
		s.sendErrorResponse(request.Request, UnableToControlExecution, "Unable to step out", "no debug session")
		return
	}
	if err := s.debugger.StepOut(request.Arguments.ThreadId, request.Arguments.SingleThread); err != nil {
		s.sendErrorResponse(request.Request, UnableToControlExecution, "Unable to step out", err.Error())
		return
	}
	s.send(&dap.StepOutResponse{Response: *newResponse(request.Request)})
}

func (s *Server) onPauseRequest(request *dap.PauseRequest) {
	if s.debugger == nil {
		s.sendErrorResponse(request.Request, UnableToControlExecution, "Unable to pause", "no debug session")
		return
	}
	if err := s.debugger.Pause(request.Arguments.ThreadId); err != nil {
		s.sendErrorResponse(request.Request, UnableToControlExecution, "Unable to pause", err.Error())
		return
	}
	s.send(&dap.PauseResponse{Response: *newResponse(request.Request)})
}

func (s *Server) onThreadsRequest(request *dap.ThreadsRequest) {
	if s.debugger == nil {
		s.sendErrorResponse(request.Request, UnableToDisplayThreads, "Unable to display threads", "no debug session")
		return
	}
	threads, err := s.debugger.Threads()
	if err != nil {
		s.sendErrorResponse(request.Request, UnableToDisplayThreads, "Unable to display threads", err.Error())
		return
	}
	out := make([]dap.Thread, len(threads))
	for i, th := range threads {
		out[i] = dap.Thread{Id: th.ID, Name: th.Name}
	}
	if len(out) == 0 {
		// The DAP spec requires at least one (dummy) thread even when
		// thread information is not available yet.
		out = []dap.Thread{{Id: 1, Name: "Dummy"}}
	}
	response := &dap.ThreadsResponse{
		Response: *newResponse(request.Request),
		Body:     dap.ThreadsResponseBody{Threads: out},
	}
	s.send(response)
}

func (s *Server) onStackTraceRequest(request *dap.StackTraceRequest) {
	if s.debugger == nil {
		s.sendErrorResponse(request.Request, UnableToProduceStackTrace, "Unable to produce stack trace", "no debug session")
		return
	}
	frames, err := s.debugger.Stacktrace(request.Arguments.ThreadId)
	if err != nil {
		s.sendErrorResponse(request.Request, UnableToProduceStackTrace, "Unable to produce stack trace", err.Error())
		return
	}
	stackFrames := make([]dap.StackFrame, len(frames))
	for i, frame := range frames {
		stackFrames[i] = dap.StackFrame{
			Id:     frame.ID,
			Name:   frame.Name,
			Line:   frame.Line,
			Column: 0,
		}
		path := frame.FullPath
		if path == "" {
			path = frame.File
		}
		if path != "" {
			stackFrames[i].Source = &dap.Source{Name: filepath.Base(path), Path: path}
		}
		if frame.Addr != "" {
			stackFrames[i].InstructionPointerReference = frame.Addr
		}
	}
	total := len(stackFrames)
	if request.Arguments.StartFrame > 0 {
		stackFrames = stackFrames[min(request.Arguments.StartFrame, len(stackFrames)):]
	}
	if request.Arguments.Levels > 0 {
		stackFrames = stackFrames[:min(request.Arguments.Levels, len(stackFrames))]
	}
	response := &dap.StackTraceResponse{
		Response: *newResponse(request.Request),
		Body:     dap.StackTraceResponseBody{StackFrames: stackFrames, TotalFrames: total},
	}
	s.send(response)
}

func (s *Server) onScopesRequest(request *dap.ScopesRequest) {
	if s.debugger == nil {
		s.sendErrorResponse(request.Request, UnableToListLocals, "Unable to list locals", "no debug session")
		return
	}
	frameID := request.Arguments.FrameId
	scopes := []dap.Scope{
		{Name: "Locals", VariablesReference: api.LocalScopeRef(frameID)},
	}
	if s.debugger.HasRegisters() {
		scopes = append(scopes, dap.Scope{
			Name:               "Registers",
			VariablesReference: api.RegisterScopeRef(frameID),
			Expensive:          true,
		})
	}
	response := &dap.ScopesResponse{
		Response: *newResponse(request.Request),
		Body:     dap.ScopesResponseBody{Scopes: scopes},
	}
	s.send(response)
}

func (s *Server) onVariablesRequest(request *dap.VariablesRequest) {
	if s.debugger == nil {
		s.sendErrorResponse(request.Request, UnableToLookupVariable, "Unable to lookup variable", "no debug session")
		return
	}
	vars, err := s.debugger.Resolve(request.Arguments.VariablesReference)
	if err != nil {
		s.sendErrorResponse(request.Request, UnableToLookupVariable, "Unable to lookup variable", err.Error())
		return
	}
	children := make([]dap.Variable, len(vars))
	for i, v := range vars {
		children[i] = dap.Variable{
			Name:               v.Name,
			Value:              v.Value,
			Type:               v.Type,
			VariablesReference: v.VariablesReference,
		}
	}
	response := &dap.VariablesResponse{
		Response: *newResponse(request.Request),
		Body:     dap.VariablesResponseBody{Variables: children},
	}
	s.send(response)
}

// onEvaluateRequest passes the expression through to the backend as a
// raw command and returns the accumulated console output.
func (s *Server) onEvaluateRequest(request *dap.EvaluateRequest) {
	if s.debugger == nil {
		s.sendErrorResponse(request.Request, UnableToEvaluateExpression, "Unable to evaluate expression", "no debug session")
		return
	}
	result, err := s.debugger.Evaluate(request.Arguments.Expression)
	if err != nil {
		s.sendErrorResponse(request.Request, UnableToEvaluateExpression, "Unable to evaluate expression", err.Error())
		return
	}
	response := &dap.EvaluateResponse{Response: *newResponse(request.Request)}
	response.Body.Result = result
	s.send(response)
}

func (s *Server) onSourceRequest(request *dap.SourceRequest) {
	path := request.Arguments.Source.Path
	content, err := ioutil.ReadFile(path)
	if err != nil {
		s.sendErrorResponse(request.Request, UnableToReadSource, "Unable to read source", err.Error())
		return
	}
	response := &dap.SourceResponse{Response: *newResponse(request.Request)}
	response.Body.Content = string(content)
	s.send(response)
}

func (s *Server) onListProcessesRequest(request *customRequest) {
	procs, err := s.debugger.Processes()
	if err != nil {
		s.sendErrorResponse(request.Request, UnableToManageInferiors, "Unable to list processes", err.Error())
		return
	}
	pid, err := s.debugger.CurrentPid()
	if err != nil {
		s.sendErrorResponse(request.Request, UnableToManageInferiors, "Unable to list processes", err.Error())
		return
	}
	s.sendCustom(&customResponse{
		Response: *newResponseTo(request),
		Body: listProcessesResponseBody{
			Processes:      procs,
			CurrentProcess: processRef{Pid: pid},
		},
	})
}

// onAddInferiorsRequest attaches additional processes. Attaching
// transiently runs and stops targets, so event delivery is suspended
// until every pid is processed.
func (s *Server) onAddInferiorsRequest(request *customRequest) {
	pids := intsArgument(request.Arguments, "pids")
	if len(pids) == 0 {
		s.sendErrorResponse(request.Request, UnableToManageInferiors, "Unable to add inferiors",
			"The pids attribute is missing in the request.")
		return
	}
	resume := s.notifier.Suspend()
	defer resume()
	if err := s.debugger.AddInferiorsWithPids(pids); err != nil {
		s.sendErrorResponse(request.Request, UnableToManageInferiors, "Unable to add inferiors", err.Error())
		return
	}
	s.sendCustom(&customResponse{Response: *newResponseTo(request)})
}

func (s *Server) onDetachInferiorsRequest(request *customRequest) {
	pids := intsArgument(request.Arguments, "pids")
	if len(pids) == 0 {
		s.sendErrorResponse(request.Request, UnableToManageInferiors, "Unable to detach inferiors",
			"The pids attribute is missing in the request.")
		return
	}
	if err := s.debugger.DetachInferiors(pids); err != nil {
		s.sendErrorResponse(request.Request, UnableToManageInferiors, "Unable to detach inferiors", err.Error())
		return
	}
	pid, err := s.debugger.CurrentPid()
	if err != nil {
		pid = 0
	}
	s.sendCustom(&customResponse{
		Response: *newResponseTo(request),
		Body:     detachInferiorsResponseBody{CurrentPid: pid},
	})
	// the surviving inferiors' state is unknown to the client now, have
	// it re-query through the usual continued/stopped pair
	continued := &dap.ContinuedEvent{Event: *newEvent("continued")}
	continued.Body.ThreadId = 1
	continued.Body.AllThreadsContinued = true
	s.send(continued)
	stopped := &dap.StoppedEvent{Event: *newEvent("stopped")}
	stopped.Body.Reason = "detach inferior"
	stopped.Body.ThreadId = 1
	stopped.Body.AllThreadsStopped = true
	s.send(stopped)
}

func (s *Server) onSelectInferiorRequest(request *customRequest) {
	pid := int(gjson.GetBytes(request.Arguments, "pid").Int())
	if pid <= 0 {
		s.sendErrorResponse(request.Request, UnableToManageInferiors, "Unable to select inferior",
			"The pid attribute is missing in the request.")
		return
	}
	ok, err := s.debugger.SelectInferior(pid)
	if err != nil {
		s.sendErrorResponse(request.Request, UnableToManageInferiors, "Unable to select inferior", err.Error())
		return
	}
	if !ok {
		s.sendErrorResponse(request.Request, UnableToManageInferiors, "Unable to select inferior",
			fmt.Sprintf("no attached process with PID %d", pid))
		return
	}
	s.sendCustom(&customResponse{Response: *newResponseTo(request)})
}

func (s *Server) onContinueAfterProcessExitRequest(request *customRequest) {
	continued, err := s.debugger.ContinueAfterProcessExit()
	if err != nil {
		s.sendErrorResponse(request.Request, UnableToManageInferiors, "Unable to continue after process exit", err.Error())
		return
	}
	s.sendCustom(&customResponse{
		Response: *newResponseTo(request),
		Body:     continueAfterProcessExitResponseBody{Continue: continued},
	})
}

// intsArgument extracts an integer array argument by name.
func intsArgument(args json.RawMessage, name string) []int {
	var out []int
	for _, v := range gjson.GetBytes(args, name).Array() {
		out = append(out, int(v.Int()))
	}
	return out
}

func (s *Server) sendErrorResponse(request dap.Request, id int, summary, details string) {
	er := &dap.ErrorResponse{}
	er.Type = "response"
	er.Command = request.Command
	er.RequestSeq = request.Seq
	er.Success = false
	er.Message = summary
	er.Body.Error = &dap.ErrorMessage{
		Id:     id,
		Format: fmt.Sprintf("%s: %s", summary, details),
	}
	s.log.Error(er.Body.Error.Format)
	s.send(er)
}

// sendInternalErrorResponse sends an "internal error" response back to the client.
// We only take a seq here because we don't want to make assumptions about the
// kind of message received by the server that this error is a reply to.
func (s *Server) sendInternalErrorResponse(seq int, details string) {
	er := &dap.ErrorResponse{}
	er.Type = "response"
	er.RequestSeq = seq
	er.Success = false
	er.Message = "Internal Error"
	er.Body.Error = &dap.ErrorMessage{
		Id:     InternalError,
		Format: fmt.Sprintf("%s: %s", er.Message, details),
	}
	s.log.Error(er.Body.Error.Format)
	s.send(er)
}

// sendMalformedErrorResponse reports a frame that could not be decoded.
// The offending frame carried no usable request seq, so the response
// references seq 0.
func (s *Server) sendMalformedErrorResponse(details string) {
	er := &dap.ErrorResponse{}
	er.Type = "response"
	er.RequestSeq = 0
	er.Success = false
	er.Message = "Malformed message"
	er.Body.Error = &dap.ErrorMessage{
		Id:     MalformedMessage,
		Format: fmt.Sprintf("%s: %s", er.Message, details),
	}
	s.send(er)
}

func newResponse(request dap.Request) *dap.Response {
	return &dap.Response{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  0,
			Type: "response",
		},
		Command:    request.Command,
		RequestSeq: request.Seq,
		Success:    true,
	}
}

func newResponseTo(request *customRequest) *dap.Response {
	return newResponse(request.Request)
}

func newEvent(event string) *dap.Event {
	return &dap.Event{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  0,
			Type: "event",
		},
		Event: event,
	}
}
