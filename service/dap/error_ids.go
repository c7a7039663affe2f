package dap

// Unique identifiers for messages returned for errors from requests.
// These values are not mandated by DAP (other than the uniqueness
// requirement), so each implementation is free to choose their own.
const (
	UnsupportedCommand int = 9999
	InternalError      int = 8888
	MalformedMessage   int = 1111

	// Where applicable and for consistency only,
	// values below are inspired by the original vscode debug adaptors.
	FailedToLaunch             = 3000
	FailedToAttach             = 3001
	UnableToSetBreakpoints     = 2002
	UnableToDisplayThreads     = 2003
	UnableToProduceStackTrace  = 2004
	UnableToListLocals         = 2005
	UnableToListRegisters      = 2006
	UnableToLookupVariable     = 2008
	UnableToEvaluateExpression = 2009
	UnableToControlExecution   = 2010
	UnableToManageInferiors    = 2011
	UnableToReadSource         = 2012
	// Add more codes as we support more requests
)
