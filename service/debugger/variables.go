package debugger

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gdbdap/gdbdap/pkg/gdbmi"
	"github.com/gdbdap/gdbdap/service/api"
)

// Resolve expands a variable reference handle into its entries. Scope
// handles list a frame's locals or registers, dynamic handles list the
// children of a previously created variable object.
func (d *Debugger) Resolve(ref int) ([]api.Variable, error) {
	switch {
	case api.IsLocalScopeRef(ref):
		return d.localVariables(api.ScopeFrameID(ref))
	case api.IsRegisterScopeRef(ref):
		return d.registerVariables()
	case api.IsDynamicRef(ref):
		return d.childVariables(ref)
	}
	return nil, fmt.Errorf("unknown variables reference %d", ref)
}

// localVariables lists the locals and arguments of a frame of the
// current thread. Values that render as aggregates or live pointers are
// backed by a variable object so the client can expand them.
func (d *Debugger) localVariables(frameID int) ([]api.Variable, error) {
	if err := d.SendChecked(fmt.Sprintf("-stack-select-frame %d", frameID), false); err != nil {
		return nil, err
	}
	records, err := d.Send("-stack-list-variables --all-values")
	if err != nil {
		return nil, err
	}
	if err := ResultErr(records); err != nil {
		return nil, err
	}
	vars := []api.Variable{}
	for _, v := range resultPayload(records).List("variables").Dicts() {
		name := v.Str("name")
		if name == "" {
			continue
		}
		value := v.Str("value")
		ref := api.NoChildren
		if isComplexValue(value) || (isPointerValue(value) && !isNullPointer(value)) {
			created, err := d.createVariable(name)
			if err != nil {
				d.log.Warnf("could not create variable object for %q: %v", name, err)
			} else {
				ref = created.ref
			}
		}
		vars = append(vars, api.Variable{Name: name, Value: value, VariablesReference: ref})
	}
	return vars, nil
}

// createdVar describes a backend variable object minted by
// createVariable.
type createdVar struct {
	ref     int // dynamic handle, 0 when the object is not expandable
	objName string
	value   string
	typ     string
}

// createVariable creates a backend variable object for a display name.
// An object created earlier for the same name is deleted first, so
// repeated expansions of one scope do not pile up stale objects under
// colliding names.
func (d *Debugger) createVariable(name string) (createdVar, error) {
	d.varMu.Lock()
	old := d.varNames[name]
	d.varMu.Unlock()
	if old != "" {
		d.Send(fmt.Sprintf("-var-delete %s", old))
	}
	records, err := d.Send(fmt.Sprintf("-var-create - * %s", name))
	if err != nil {
		return createdVar{}, err
	}
	if err := ResultErr(records); err != nil {
		return createdVar{}, err
	}
	payload := resultPayload(records)
	obj := payload.Str("name")
	if obj == "" {
		return createdVar{}, errors.New("backend did not name the variable object")
	}
	cv := createdVar{
		objName: obj,
		value:   payload.Str("value"),
		typ:     payload.Str("type"),
	}
	if expandable(payload) {
		cv.ref = d.mintVarRef(obj)
	}
	d.varMu.Lock()
	d.varNames[name] = obj
	d.varMu.Unlock()
	return cv, nil
}

// mintVarRef allocates the next dynamic handle and binds it to a
// backend object name. Handles are never reused within a session.
func (d *Debugger) mintVarRef(objName string) int {
	d.varMu.Lock()
	defer d.varMu.Unlock()
	ref := d.nextVarRef
	d.nextVarRef++
	d.varObjects[ref] = objName
	return ref
}

// childVariables lists the children of a variable object.
func (d *Debugger) childVariables(ref int) ([]api.Variable, error) {
	d.varMu.Lock()
	obj := d.varObjects[ref]
	d.varMu.Unlock()
	if obj == "" {
		return nil, fmt.Errorf("unknown variables reference %d", ref)
	}
	records, err := d.Send(fmt.Sprintf("-var-list-children --all-values %s", escapeVarName(obj)))
	if err != nil {
		return nil, err
	}
	if err := ResultErr(records); err != nil {
		return nil, err
	}
	var vars []api.Variable
	for _, c := range resultPayload(records).List("children").Dicts() {
		vars = append(vars, d.parseChildVariable(c)...)
	}
	return vars, nil
}

// parseChildVariable converts one child tuple into entries: the child
// itself plus, for pointers that dereference to something with
// children, a synthetic *(name) entry.
func (d *Debugger) parseChildVariable(c gdbmi.Dict) []api.Variable {
	obj := c.Str("name")
	exp := c.Str("exp")
	value := c.Str("value")
	typ := c.Str("type")
	ref := api.NoChildren
	if childExpandable(c) && obj != "" {
		ref = d.mintVarRef(obj)
	}
	entries := []api.Variable{{Name: exp, Value: value, Type: typ, VariablesReference: ref}}
	// every pointer child is probed, null ones included; the backend's
	// answer decides whether a dereference entry is offered
	if obj != "" && (isPointerType(typ) || isPointerValue(value)) {
		derefObj := "*(" + obj + ")"
		if d.derefHasChildren(derefObj) {
			entries = append(entries, api.Variable{
				Name:               "*(" + exp + ")",
				Value:              "",
				VariablesReference: d.mintVarRef(derefObj),
			})
		}
	}
	return entries
}

// derefHasChildren probes whether dereferencing a pointer object yields
// something expandable. The probe fails for invalid pointers, which
// keeps them from growing dereference entries.
func (d *Debugger) derefHasChildren(derefObj string) bool {
	records, err := d.Send(fmt.Sprintf("-var-list-children --all-values %s", escapeVarName(derefObj)))
	if err != nil || ResultErr(records) != nil {
		return false
	}
	return resultPayload(records).Int("numchild", 0) > 0
}

// registerVariables lists the machine registers of the current thread
// in raw hex. Names and values arrive on separate commands correlated
// by register number; registers the architecture leaves unnamed are
// skipped.
func (d *Debugger) registerVariables() ([]api.Variable, error) {
	nrec, err := d.Send("-data-list-register-names")
	if err != nil {
		return nil, err
	}
	if err := ResultErr(nrec); err != nil {
		return nil, err
	}
	names := resultPayload(nrec).List("register-names").Strings()
	vrec, err := d.Send("-data-list-register-values x")
	if err != nil {
		return nil, err
	}
	if err := ResultErr(vrec); err != nil {
		return nil, err
	}
	vars := []api.Variable{}
	for _, rv := range resultPayload(vrec).List("register-values").Dicts() {
		n := rv.Int("number", -1)
		if n < 0 || n >= len(names) || names[n] == "" {
			continue
		}
		vars = append(vars, api.Variable{Name: names[n], Value: rv.Str("value")})
	}
	return vars, nil
}

// HasRegisters reports whether the target publishes machine registers;
// some remote stubs and cores do not.
func (d *Debugger) HasRegisters() bool {
	records, err := d.Send("-data-list-register-names")
	if err != nil || ResultErr(records) != nil {
		return false
	}
	for _, name := range resultPayload(records).List("register-names").Strings() {
		if name != "" {
			return true
		}
	}
	return false
}

// expandable reports whether a variable object payload describes a
// value with children.
func expandable(payload gdbmi.Dict) bool {
	return payload.Int("numchild", 0) > 0 ||
		payload.Str("has_more") == "1" ||
		payload.Str("displayhint") == "array"
}

func childExpandable(c gdbmi.Dict) bool {
	return expandable(c)
}

// escapeVarName quotes a variable object name for use as a command
// argument. Unquoted commas would be taken as argument separators by
// the backend.
func escapeVarName(name string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == ',' || c == '"' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('"')
	return sb.String()
}

var hexPointerRe = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)

// isComplexValue reports whether a value rendering has internal
// structure worth expanding (aggregates and arrays).
func isComplexValue(value string) bool {
	return strings.Contains(value, "{") || strings.Contains(value, "[")
}

// isPointerValue reports whether a value renders as exactly a hex
// address. Renderings that carry extra text, like a char* with its
// string preview, stay flat.
func isPointerValue(value string) bool {
	return hexPointerRe.MatchString(strings.TrimSpace(value))
}

// isPointerType reports whether a type name is a pointer type.
func isPointerType(typ string) bool {
	return strings.Contains(strings.ReplaceAll(typ, " ", ""), "*")
}

// isNullPointer matches the renderings of pointers that must never be
// dereferenced.
func isNullPointer(value string) bool {
	switch value {
	case "0x0", "NULL", "nullptr":
		return true
	}
	return false
}
