package api

// Variable reference handles are partitioned into fixed ranges so that
// a handle alone says how to resolve it. Scope handles encode the frame
// they belong to as an offset from their range base. Dynamic handles
// are minted in ascending order as backend variable objects are created
// and are never reused within a session.
const (
	// NoChildren marks entries that cannot be expanded.
	NoChildren = 0
	// LocalScopeBase is the first handle of the locals scope range.
	LocalScopeBase = 100000
	// RegisterScopeBase is the first handle of the registers scope range.
	RegisterScopeBase = 200000
	// DynamicBase is the first dynamically minted handle.
	DynamicBase = 300000
)

// LocalScopeRef returns the locals scope handle for a frame.
func LocalScopeRef(frameID int) int {
	return LocalScopeBase + frameID
}

// RegisterScopeRef returns the registers scope handle for a frame.
func RegisterScopeRef(frameID int) int {
	return RegisterScopeBase + frameID
}

// IsLocalScopeRef reports whether ref falls in the locals scope range.
func IsLocalScopeRef(ref int) bool {
	return ref >= LocalScopeBase && ref < RegisterScopeBase
}

// IsRegisterScopeRef reports whether ref falls in the registers scope
// range.
func IsRegisterScopeRef(ref int) bool {
	return ref >= RegisterScopeBase && ref < DynamicBase
}

// IsDynamicRef reports whether ref identifies a created variable
// object.
func IsDynamicRef(ref int) bool {
	return ref >= DynamicBase
}

// ScopeFrameID recovers the frame encoded in a scope handle. Dynamic
// handles carry no frame and yield 0.
func ScopeFrameID(ref int) int {
	switch {
	case IsLocalScopeRef(ref):
		return ref - LocalScopeBase
	case IsRegisterScopeRef(ref):
		return ref - RegisterScopeBase
	}
	return 0
}
