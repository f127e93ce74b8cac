package irgen

import (
	"github.com/vesper-lang/vesper/internal/errors"
	"github.com/vesper-lang/vesper/internal/ir"
	"github.com/vesper-lang/vesper/internal/types"
)

// LValue is an assignable location. Lowering an expression in lvalue
// position yields one of the concrete forms below; reads and writes go
// through the generator so location-specific helper calls are emitted in
// one place.
type LValue interface {
	lvalueNode()
	// Type returns the semantic type of the stored value.
	Type() types.Type
}

// StackLValue is a named local variable.
type StackLValue struct {
	Var Value
}

func (l *StackLValue) lvalueNode()      {}
func (l *StackLValue) Type() types.Type { return l.Var.Type() }

// StorageOffset is an intra-slot byte offset, known either statically or
// as a run-time expression. A non-nil Dynamic takes precedence.
type StorageOffset struct {
	Static  int
	Dynamic ir.Expr
}

// StorageLValue is a storage location addressed by slot and offset.
type StorageLValue struct {
	Typ    types.Type
	Slot   ir.Expr
	Offset StorageOffset
}

func (l *StorageLValue) lvalueNode()      {}
func (l *StorageLValue) Type() types.Type { return l.Typ }

// MemoryLValue is a memory location addressed by a flat byte address.
// ByteArrayElement marks single-byte elements of packed byte arrays, which
// use byte-granular loads and stores.
type MemoryLValue struct {
	Typ              types.Type
	Address          ir.Expr
	ByteArrayElement bool
}

func (l *MemoryLValue) lvalueNode()      {}
func (l *MemoryLValue) Type() types.Type { return l.Typ }

// TupleLValue aggregates component lvalues; nil entries are holes that
// absorb and discard the matching component on write.
type TupleLValue struct {
	Typ        types.Type
	Components []LValue
}

func (l *TupleLValue) lvalueNode()      {}
func (l *TupleLValue) Type() types.Type { return l.Typ }

// readFromLValue materializes the current content of a location into a
// fresh value. Tuples cannot be read as a whole.
func (g *Generator) readFromLValue(lv LValue) (Value, error) {
	result := g.newTemp(lv.Type())
	switch l := lv.(type) {
	case *StackLValue:
		if err := g.define(result, l.Var); err != nil {
			return Value{}, err
		}
	case *StorageLValue:
		t := l.Typ
		switch {
		case !t.IsValueType():
			// Storage references are identified by their slot.
			g.emit(&ir.VarDecl{Names: result.StackNames(), Value: l.Slot})
		case l.Offset.Dynamic != nil:
			g.emit(&ir.VarDecl{
				Names: result.StackNames(),
				Value: ir.FnCall(g.ctx.Runtime.ReadFromStorageDynamic(t), l.Slot, l.Offset.Dynamic),
			})
		default:
			g.emit(&ir.VarDecl{
				Names: result.StackNames(),
				Value: ir.FnCall(g.ctx.Runtime.ReadFromStorage(t, l.Offset.Static), l.Slot),
			})
		}
	case *MemoryLValue:
		switch {
		case l.ByteArrayElement:
			g.emit(&ir.VarDecl{
				Names: result.StackNames(),
				Value: ir.FnCall(g.ctx.Runtime.Cleanup(l.Typ), ir.FnCall("mload", l.Address)),
			})
		case l.Typ.IsValueType():
			g.emit(&ir.VarDecl{
				Names: result.StackNames(),
				Value: ir.FnCall(g.ctx.Runtime.ReadFromMemory(l.Typ), l.Address),
			})
		default:
			// The location holds a pointer to the reference value.
			g.emit(&ir.VarDecl{Names: result.StackNames(), Value: ir.FnCall("mload", l.Address)})
		}
	case *TupleLValue:
		return Value{}, errors.Invariantf("tuple lvalue cannot be read as a whole")
	default:
		return Value{}, errors.Invariantf("unknown lvalue form %T", lv)
	}
	return result, nil
}

// writeToLValue stores a value into a location, converting it to the
// location's type as part of the store. Tuple components are written in
// reverse declaration order.
func (g *Generator) writeToLValue(lv LValue, value Value) error {
	switch l := lv.(type) {
	case *StackLValue:
		return g.assign(l.Var, value)
	case *StorageLValue:
		args := []ir.Expr{l.Slot}
		var offset *int
		if l.Offset.Dynamic != nil {
			args = append(args, l.Offset.Dynamic)
		} else {
			o := l.Offset.Static
			offset = &o
		}
		args = append(args, value.Idents()...)
		g.emit(&ir.ExprStmt{X: ir.FnCall(g.ctx.Runtime.UpdateStorageValue(l.Typ, offset), args...)})
		return nil
	case *MemoryLValue:
		if l.Typ.IsValueType() {
			prepared, err := g.convert(value, l.Typ)
			if err != nil {
				return err
			}
			if l.ByteArrayElement {
				g.emit(&ir.ExprStmt{X: ir.FnCall("mstore8",
					l.Address, ir.FnCall("byte", &ir.Lit{Value: "0"}, ir.Id(prepared.Primary())))})
			} else {
				g.emit(&ir.ExprStmt{X: ir.FnCall(g.ctx.Runtime.WriteToMemory(l.Typ),
					l.Address, ir.Id(prepared.Primary()))})
			}
			return nil
		}
		if types.StackSize(value.Type()) != 1 {
			return errors.Invariantf("reference stored to memory must occupy one slot, got %s", value.Type())
		}
		g.emit(&ir.ExprStmt{X: ir.FnCall("mstore", l.Address, ir.Id(value.Primary()))})
		return nil
	case *TupleLValue:
		tup, ok := value.Type().(*types.Tuple)
		if !ok || len(tup.Types) != len(l.Components) {
			return errors.Invariantf("tuple assignment arity mismatch: %s into %d components",
				value.Type(), len(l.Components))
		}
		for i := len(l.Components) - 1; i >= 0; i-- {
			if l.Components[i] == nil {
				continue
			}
			if err := g.writeToLValue(l.Components[i], value.TupleComponent(i)); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.Invariantf("unknown lvalue form %T", lv)
	}
}
