package irgen

import (
	"fmt"

	"github.com/vesper-lang/vesper/internal/ir"
	"github.com/vesper-lang/vesper/internal/types"
)

// Value is an immutable handle for an already-computed IR result. It binds
// a base name and a type; the type's component decomposition derives the
// concrete IR variable names the result occupies. Handles follow an
// assign-once discipline: once bound, the named variables are never
// re-bound through the same handle.
type Value struct {
	name string
	typ  types.Type
}

// NewValue binds a base name to a type.
func NewValue(name string, t types.Type) Value {
	return Value{name: name, typ: t}
}

// Type returns the semantic type of the value.
func (v Value) Type() types.Type { return v.typ }

// Name returns the IR variable name of one component.
func (v Value) Name(c types.Component) string {
	if c == types.ComponentDefault {
		return v.name
	}
	return v.name + "_" + c.Suffix()
}

// Primary returns the name of the value's sole stack slot. Callers must
// only use it for single-slot values.
func (v Value) Primary() string {
	comps := v.typ.Components()
	if len(comps) == 0 {
		return v.name
	}
	return v.Name(comps[0])
}

// TupleComponent returns the handle of the i-th component of a
// tuple-typed value. Callers must ensure the type is a tuple and the
// component is not a hole.
func (v Value) TupleComponent(i int) Value {
	tup, ok := v.typ.(*types.Tuple)
	if !ok {
		return v
	}
	return Value{name: fmt.Sprintf("%s_c%d", v.name, i+1), typ: tup.Types[i]}
}

// StackNames returns all IR variable names of the value in component
// order. Tuple components contribute their own derived names.
func (v Value) StackNames() []string {
	if tup, ok := v.typ.(*types.Tuple); ok {
		var names []string
		for i, ct := range tup.Types {
			if ct != nil {
				names = append(names, v.TupleComponent(i).StackNames()...)
			}
		}
		return names
	}
	names := make([]string, 0, len(v.typ.Components()))
	for _, c := range v.typ.Components() {
		names = append(names, v.Name(c))
	}
	return names
}

// Idents returns the value's stack slots as IR identifier expressions.
func (v Value) Idents() []ir.Expr {
	names := v.StackNames()
	exprs := make([]ir.Expr, len(names))
	for i, n := range names {
		exprs[i] = ir.Id(n)
	}
	return exprs
}
