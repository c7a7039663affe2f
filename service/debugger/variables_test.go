package debugger

import (
	"testing"

	"github.com/gdbdap/gdbdap/service/api"
)

func TestLocalVariables(t *testing.T) {
	d, fake := startDebugger(t)
	fake.Respond("-stack-list-variables",
		`^done,variables=[{name="i",value="42"},{name="arr",value="{1, 2, 3}"},{name="p",value="0x0"},{name="msg",value="0x5555deadbeef \"hi\""}]`)
	fake.Respond("-var-create",
		`^done,name="var1",numchild="3",value="{...}",type="int [3]"`)
	vars, err := d.Resolve(api.LocalScopeRef(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(vars) != 4 {
		t.Fatalf("got %d variables, want 4", len(vars))
	}
	if v := vars[0]; v.VariablesReference != api.NoChildren {
		t.Errorf("got ref %d for a scalar, want none", v.VariablesReference)
	}
	if v := vars[1]; !api.IsDynamicRef(v.VariablesReference) {
		t.Errorf("got ref %d for an aggregate, want dynamic handle", v.VariablesReference)
	}
	// null pointers are not expandable
	if v := vars[2]; v.VariablesReference != api.NoChildren {
		t.Errorf("got ref %d for a null pointer, want none", v.VariablesReference)
	}
	// a char* renders with its string preview, not as a bare address
	if v := vars[3]; v.VariablesReference != api.NoChildren {
		t.Errorf("got ref %d for a string pointer, want none", v.VariablesReference)
	}
}

// Re-resolving a scope must replace the variable object created for a
// name earlier instead of piling up stale objects.
func TestCreateVariableReplacesPrior(t *testing.T) {
	d, fake := startDebugger(t)
	fake.Respond("-stack-list-variables",
		`^done,variables=[{name="s",value="{a = 1}"}]`)
	fake.Respond("-var-create",
		`^done,name="var1",numchild="1",value="{...}",type="struct S"`)

	if _, err := d.Resolve(api.LocalScopeRef(0)); err != nil {
		t.Fatal(err)
	}
	if fake.CommandIndex("-var-delete", 0) >= 0 {
		t.Fatal("first creation deleted something")
	}
	if _, err := d.Resolve(api.LocalScopeRef(0)); err != nil {
		t.Fatal(err)
	}
	deleteIdx := fake.CommandIndex(`-var-delete var1`, 0)
	secondCreate := fake.CommandIndex("-var-create", 1)
	if deleteIdx < 0 {
		t.Fatal("stale variable object was not deleted")
	}
	if secondCreate >= 0 && deleteIdx > secondCreate {
		t.Error("stale object deleted after the replacement was created")
	}
}

func TestChildVariablesPointerDeref(t *testing.T) {
	d, fake := startDebugger(t)
	fake.Respond("-stack-list-variables",
		`^done,variables=[{name="s",value="{p = 0x7fff1000}"}]`)
	fake.Respond("-var-create",
		`^done,name="var1",numchild="1",value="{...}",type="struct S"`)
	vars, err := d.Resolve(api.LocalScopeRef(0))
	if err != nil {
		t.Fatal(err)
	}
	parent := vars[0].VariablesReference

	// the listing of var1 is consumed once, the probe of *(var1.p) hits
	// the persistent rule
	fake.RespondOnce("-var-list-children",
		`^done,numchild="1",children=[child={name="var1.p",exp="p",value="0x7fff1000",type="int *"}]`)
	fake.Respond("-var-list-children", `^done,numchild="2"`)
	children, err := d.Resolve(parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 2 {
		t.Fatalf("got %d entries, want pointer plus dereference", len(children))
	}
	if c := children[0]; c.Name != "p" || c.Value != "0x7fff1000" || c.Type != "int *" {
		t.Errorf("got %+v, want the pointer child", c)
	}
	deref := children[1]
	if deref.Name != "*(p)" || !api.IsDynamicRef(deref.VariablesReference) {
		t.Errorf("got %+v, want expandable *(p) entry", deref)
	}
}

// A null pointer child is still probed for dereference; the backend
// rejects the dereference and no *(p) entry is offered.
func TestChildVariablesNullPointerNotDereferenced(t *testing.T) {
	d, fake := startDebugger(t)
	fake.Respond("-stack-list-variables",
		`^done,variables=[{name="s",value="{p = 0x0}"}]`)
	fake.Respond("-var-create",
		`^done,name="var1",numchild="1",value="{...}",type="struct S"`)
	vars, err := d.Resolve(api.LocalScopeRef(0))
	if err != nil {
		t.Fatal(err)
	}

	fake.RespondOnce("-var-list-children",
		`^done,numchild="1",children=[child={name="var1.p",exp="p",value="0x0",type="int *"}]`)
	fake.Respond("-var-list-children", `^error,msg="Cannot access memory at address 0x0"`)
	children, err := d.Resolve(vars[0].VariablesReference)
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 1 {
		t.Fatalf("got %d entries, want just the null pointer", len(children))
	}
	if fake.CommandIndex(`-var-list-children --all-values "*(var1.p)"`, 0) < 0 {
		t.Error("null pointer child was not probed for dereference")
	}
}

func TestResolveUnknownRef(t *testing.T) {
	d, _ := startDebugger(t)
	if _, err := d.Resolve(42); err == nil {
		t.Error("got nil error for an unpartitioned ref")
	}
	if _, err := d.Resolve(api.DynamicBase + 7); err == nil {
		t.Error("got nil error for a never minted dynamic ref")
	}
}

func TestHasRegisters(t *testing.T) {
	d, fake := startDebugger(t)
	fake.RespondOnce("-data-list-register-names", `^done,register-names=["",""]`)
	if d.HasRegisters() {
		t.Error("got true with only unnamed registers")
	}
	fake.Respond("-data-list-register-names", `^done,register-names=["rax"]`)
	if !d.HasRegisters() {
		t.Error("got false with named registers")
	}
}

func TestEscapeVarName(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"var1", `"var1"`},
		{"var1.a,b", `"var1.a\,b"`},
		{`x"y`, `"x\"y"`},
	} {
		if got := escapeVarName(tc.in); got != tc.want {
			t.Errorf("escapeVarName(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
