package api

import "testing"

func TestScopeRefPartition(t *testing.T) {
	for frame := 0; frame < 3; frame++ {
		local := LocalScopeRef(frame)
		if !IsLocalScopeRef(local) || IsRegisterScopeRef(local) || IsDynamicRef(local) {
			t.Errorf("locals handle %d classified wrong", local)
		}
		if got := ScopeFrameID(local); got != frame {
			t.Errorf("ScopeFrameID(%d) = %d, want %d", local, got, frame)
		}
		reg := RegisterScopeRef(frame)
		if !IsRegisterScopeRef(reg) || IsLocalScopeRef(reg) || IsDynamicRef(reg) {
			t.Errorf("registers handle %d classified wrong", reg)
		}
		if got := ScopeFrameID(reg); got != frame {
			t.Errorf("ScopeFrameID(%d) = %d, want %d", reg, got, frame)
		}
	}
}

func TestDynamicRefs(t *testing.T) {
	if IsDynamicRef(NoChildren) || IsDynamicRef(LocalScopeBase) || IsDynamicRef(RegisterScopeBase) {
		t.Error("non-dynamic handle classified as dynamic")
	}
	if !IsDynamicRef(DynamicBase) || !IsDynamicRef(DynamicBase+1000) {
		t.Error("dynamic handle not classified as dynamic")
	}
	if got := ScopeFrameID(DynamicBase); got != 0 {
		t.Errorf("ScopeFrameID of a dynamic handle = %d, want 0", got)
	}
}

func TestRangeBoundaries(t *testing.T) {
	if IsLocalScopeRef(LocalScopeBase - 1) {
		t.Error("handle below the locals range classified as locals")
	}
	if IsLocalScopeRef(RegisterScopeBase) {
		t.Error("first registers handle classified as locals")
	}
	if IsRegisterScopeRef(DynamicBase) {
		t.Error("first dynamic handle classified as registers")
	}
}
