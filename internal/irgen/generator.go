package irgen

import (
	"github.com/vesper-lang/vesper/internal/errors"
	"github.com/vesper-lang/vesper/internal/ir"
	"github.com/vesper-lang/vesper/internal/types"
)

// Generator lowers one function body into an IR block. Generators sharing
// a Context see a common variable-name space, so bodies of the same unit
// never collide.
type Generator struct {
	ctx  *Context
	code *ir.Block
}

// New creates a generator appending to a fresh block.
func New(ctx *Context) *Generator {
	return &Generator{ctx: ctx, code: &ir.Block{}}
}

// Code returns the block lowered so far.
func (g *Generator) Code() *ir.Block { return g.code }

// CodeString serializes the lowered block.
func (g *Generator) CodeString() string { return g.code.String() }

func (g *Generator) emit(stmts ...ir.Stmt) { g.code.Add(stmts...) }

// withBlock runs fn with emission redirected into a fresh block and
// returns that block. Used for bodies of control-flow constructs.
func (g *Generator) withBlock(fn func() error) (*ir.Block, error) {
	saved := g.code
	g.code = &ir.Block{}
	err := fn()
	blk := g.code
	g.code = saved
	if err != nil {
		return nil, err
	}
	return blk, nil
}

// newTemp returns an unbound fresh value of the given type.
func (g *Generator) newTemp(t types.Type) Value {
	return NewValue(g.ctx.NewVar(), t)
}

// declare emits unbound declarations for all stack slots of a value.
func (g *Generator) declare(v Value) {
	names := v.StackNames()
	if len(names) == 0 {
		return
	}
	g.emit(&ir.VarDecl{Names: names})
}

// define declares lhs and initializes it from rhs, converting if the types
// differ.
func (g *Generator) define(lhs, rhs Value) error {
	return g.declareAssign(lhs, rhs, true)
}

// assign rebinds lhs from rhs, converting if the types differ.
func (g *Generator) assign(lhs, rhs Value) error {
	return g.declareAssign(lhs, rhs, false)
}

func (g *Generator) declareAssign(lhs, rhs Value, declare bool) error {
	if types.Equal(lhs.Type(), rhs.Type()) {
		to, from := lhs.StackNames(), rhs.StackNames()
		if len(to) != len(from) {
			return errors.Invariantf("stack size mismatch copying %s", lhs.Type())
		}
		for i := range to {
			if declare {
				g.emit(&ir.VarDecl{Names: []string{to[i]}, Value: ir.Id(from[i])})
			} else {
				g.emit(&ir.Assign{Names: []string{to[i]}, Value: ir.Id(from[i])})
			}
		}
		return nil
	}
	names := lhs.StackNames()
	call := ir.FnCall(g.ctx.Runtime.Conversion(rhs.Type(), lhs.Type()), rhs.Idents()...)
	switch {
	case len(names) == 0:
		g.emit(&ir.ExprStmt{X: call})
	case declare:
		g.emit(&ir.VarDecl{Names: names, Value: call})
	default:
		g.emit(&ir.Assign{Names: names, Value: call})
	}
	return nil
}

// defineCall declares a fresh value bound to a call, or emits the call as
// a bare statement when the type has no stack representation.
func (g *Generator) defineCall(t types.Type, call ir.Expr) Value {
	v := g.newTemp(t)
	names := v.StackNames()
	if len(names) == 0 {
		g.emit(&ir.ExprStmt{X: call})
	} else {
		g.emit(&ir.VarDecl{Names: names, Value: call})
	}
	return v
}

// convert returns v as a value of type to, emitting a conversion when the
// types differ and passing v through unchanged when they match.
func (g *Generator) convert(v Value, to types.Type) (Value, error) {
	if types.Equal(v.Type(), to) {
		return v, nil
	}
	fresh := g.newTemp(to)
	if err := g.define(fresh, v); err != nil {
		return Value{}, err
	}
	return fresh, nil
}

// asArgs renders v as call arguments of type to: the raw slots when the
// types match, a single conversion call otherwise.
func (g *Generator) asArgs(v Value, to types.Type) []ir.Expr {
	if types.Equal(v.Type(), to) {
		return v.Idents()
	}
	return []ir.Expr{ir.FnCall(g.ctx.Runtime.Conversion(v.Type(), to), v.Idents()...)}
}

// asSingleArg is asArgs restricted to single-slot results.
func (g *Generator) asSingleArg(v Value, to types.Type) (ir.Expr, error) {
	args := g.asArgs(v, to)
	if len(args) != 1 {
		return nil, errors.Invariantf("expected single-slot value of %s, got %s", to, v.Type())
	}
	return args[0], nil
}

// mobileType is the run-time type a value of type t takes when flowing
// toward a target of type other: compile-time-only types collapse onto the
// target, everything else keeps its own type.
func mobileType(t, other types.Type) types.Type {
	switch t.(type) {
	case *types.Rational, *types.StringLiteral:
		return other
	}
	return t
}

// fetchFreeMem loads the free-memory cursor.
func fetchFreeMem() ir.Expr {
	return ir.FnCall("mload", ir.Uint(FreeMemoryPointer))
}
