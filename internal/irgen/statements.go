package irgen

import (
	"github.com/vesper-lang/vesper/internal/ast"
	"github.com/vesper-lang/vesper/internal/errors"
	"github.com/vesper-lang/vesper/internal/ir"
	"github.com/vesper-lang/vesper/internal/types"
)

// Statement lowers one statement into the current block.
func (g *Generator) Statement(s ast.Statement) error {
	switch n := s.(type) {
	case *ast.Block:
		for _, st := range n.Statements {
			if err := g.Statement(st); err != nil {
				return err
			}
		}
		return nil

	case *ast.VariableDeclarationStatement:
		return g.variableDeclaration(n)

	case *ast.ExpressionStatement:
		_, err := g.expr(n.Expression)
		return err

	case *ast.IfStatement:
		return g.ifStatement(n)

	case *ast.ForStatement:
		return g.generateLoop(n.Body, n.Condition, n.Init, n.Post, false)

	case *ast.WhileStatement:
		return g.generateLoop(n.Body, n.Condition, nil, nil, n.IsDoWhile)

	case *ast.BreakStatement:
		g.emit(&ir.Break{})
		return nil

	case *ast.ContinueStatement:
		g.emit(&ir.Continue{})
		return nil

	case *ast.ReturnStatement:
		return g.returnStatement(n)

	case *ast.InlineAssemblyStatement:
		return g.inlineAssembly(n)

	default:
		return errors.Invariantf("unknown statement form %T", s)
	}
}

func (g *Generator) variableDeclaration(n *ast.VariableDeclarationStatement) error {
	if n.InitialValue == nil {
		// Declarations without an initializer start zero-initialized by the
		// let-binding itself.
		for _, decl := range n.Declarations {
			if decl == nil {
				continue
			}
			g.declare(g.ctx.AddLocalVariable(decl))
		}
		return nil
	}

	val, err := g.expr(n.InitialValue)
	if err != nil {
		return err
	}

	if len(n.Declarations) == 1 {
		decl := n.Declarations[0]
		if decl == nil {
			return errors.Invariantf("single declaration statement with a hole")
		}
		return g.define(g.ctx.AddLocalVariable(decl), val)
	}

	tup, ok := val.Type().(*types.Tuple)
	if !ok || len(tup.Types) != len(n.Declarations) {
		return errors.Invariantf("declaration arity mismatch: %s into %d names",
			val.Type(), len(n.Declarations))
	}
	for i, decl := range n.Declarations {
		if decl == nil {
			continue
		}
		if tup.Types[i] == nil {
			return errors.Invariantf("declaration %q bound to a tuple hole", decl.Name)
		}
		if err := g.define(g.ctx.AddLocalVariable(decl), val.TupleComponent(i)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) ifStatement(n *ast.IfStatement) error {
	cond, err := g.expr(n.Condition)
	if err != nil {
		return err
	}
	condExpr, err := g.asSingleArg(cond, types.Bool)
	if err != nil {
		return err
	}

	trueBlk, err := g.withBlock(func() error { return g.Statement(n.TrueBody) })
	if err != nil {
		return err
	}
	if n.FalseBody == nil {
		g.emit(&ir.If{Cond: condExpr, Body: trueBlk})
		return nil
	}

	falseBlk, err := g.withBlock(func() error { return g.Statement(n.FalseBody) })
	if err != nil {
		return err
	}
	// Two-way conditionals dispatch through mutually exclusive switch arms,
	// so exactly one branch body runs.
	g.emit(&ir.Switch{
		Cond: condExpr,
		Cases: []ir.SwitchCase{
			{Value: &ir.Lit{Value: "0"}, Body: falseBlk},
			{Value: nil, Body: trueBlk},
		},
	})
	return nil
}

func (g *Generator) returnStatement(n *ast.ReturnStatement) error {
	if n.Expression != nil {
		params := n.ReturnParameters
		if len(params) == 0 {
			return errors.Invariantf("return with value but no declared return parameters")
		}
		val, err := g.expr(n.Expression)
		if err != nil {
			return err
		}
		if len(params) == 1 {
			if err := g.assignToReturnParameter(params[0], val); err != nil {
				return err
			}
		} else {
			tup, ok := val.Type().(*types.Tuple)
			if !ok || len(tup.Types) != len(params) {
				return errors.Invariantf("return arity mismatch: %s into %d parameters",
					val.Type(), len(params))
			}
			for i, p := range params {
				if err := g.assignToReturnParameter(p, val.TupleComponent(i)); err != nil {
					return err
				}
			}
		}
	}
	g.emit(&ir.Leave{})
	return nil
}

func (g *Generator) assignToReturnParameter(p *ast.VariableDeclaration, val Value) error {
	target, ok := g.ctx.LocalVariable(p)
	if !ok {
		return errors.Invariantf("return parameter %q not registered", p.Name)
	}
	return g.assign(target, val)
}

// generateLoop lowers all three source loop forms onto the single IR loop.
// The loop header condition is constant true; the source condition is
// re-evaluated inside the body, where code it emits runs every iteration.
// Do-while skips the first condition check through a one-shot flag.
func (g *Generator) generateLoop(body ast.Statement, cond ast.Expression, init ast.Statement, post *ast.ExpressionStatement, isDoWhile bool) error {
	var firstRun string
	if isDoWhile {
		if cond == nil {
			return errors.Invariantf("do-while loop without condition")
		}
		firstRun = g.ctx.NewVar()
		g.emit(&ir.VarDecl{Names: []string{firstRun}, Value: &ir.Lit{Value: "1"}})
	}

	initBlk := &ir.Block{}
	if init != nil {
		var err error
		initBlk, err = g.withBlock(func() error { return g.Statement(init) })
		if err != nil {
			return err
		}
	}
	postBlk := &ir.Block{}
	if post != nil {
		var err error
		postBlk, err = g.withBlock(func() error { return g.Statement(post) })
		if err != nil {
			return err
		}
	}

	bodyBlk, err := g.withBlock(func() error {
		if cond != nil {
			condBlk, err := g.withBlock(func() error {
				cv, err := g.expr(cond)
				if err != nil {
					return err
				}
				condExpr, err := g.asSingleArg(cv, types.Bool)
				if err != nil {
					return err
				}
				g.emit(&ir.If{
					Cond: ir.FnCall("iszero", condExpr),
					Body: &ir.Block{Stmts: []ir.Stmt{&ir.Break{}}},
				})
				return nil
			})
			if err != nil {
				return err
			}
			if isDoWhile {
				g.emit(&ir.If{Cond: ir.FnCall("iszero", ir.Id(firstRun)), Body: condBlk})
				g.emit(&ir.Assign{Names: []string{firstRun}, Value: &ir.Lit{Value: "0"}})
			} else {
				g.emit(condBlk.Stmts...)
			}
		}
		return g.Statement(body)
	})
	if err != nil {
		return err
	}

	g.emit(&ir.For{
		Init: initBlk,
		Cond: &ir.Lit{Value: "1"},
		Post: postBlk,
		Body: bodyBlk,
	})
	return nil
}

// RegisterParameters binds a function's parameter and return declarations
// to locals before its body is lowered. Return parameters get declared
// zero-initialized; input parameters are assumed bound by the prologue.
func (g *Generator) RegisterParameters(f *ast.FunctionDeclaration) {
	for _, p := range f.Parameters {
		g.ctx.AddLocalVariable(p)
	}
	for _, r := range f.Returns {
		g.declare(g.ctx.AddLocalVariable(r))
	}
}

// InitializeStateVariable lowers the declaration initializer of one state
// variable into the current block.
func (g *Generator) InitializeStateVariable(v *ast.VariableDeclaration) error {
	if !v.IsStateVariable {
		return errors.Invariantf("%q is not a state variable", v.Name)
	}
	if v.Constant {
		return errors.Invariantf("constant %q needs no storage initialization", v.Name)
	}
	if v.Value == nil {
		return nil
	}

	val, err := g.expr(v.Value)
	if err != nil {
		return err
	}
	converted, err := g.convert(val, v.Type)
	if err != nil {
		return err
	}
	slot, offset, ok := g.ctx.Layout.Location(v)
	if !ok {
		return errors.Invariantf("state variable %q has no storage placement", v.Name)
	}
	return g.writeToLValue(&StorageLValue{
		Typ:    v.Type,
		Slot:   ir.Num(slot),
		Offset: StorageOffset{Static: offset},
	}, converted)
}
