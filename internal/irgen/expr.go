package irgen

import (
	"github.com/vesper-lang/vesper/internal/ast"
	"github.com/vesper-lang/vesper/internal/errors"
	"github.com/vesper-lang/vesper/internal/ir"
	"github.com/vesper-lang/vesper/internal/types"
)

// operand is the result of lowering one expression: a computed value, or
// an assignable location when the expression was lowered in lvalue
// position. Exactly one of the two is meaningful.
type operand struct {
	value Value
	lval  LValue
}

// expr lowers an expression for its value.
func (g *Generator) expr(e ast.Expression) (Value, error) {
	op, err := g.lowerExpr(e, false)
	if err != nil {
		return Value{}, err
	}
	return op.value, nil
}

// lvalue lowers an expression in assignment position.
func (g *Generator) lvalue(e ast.Expression) (LValue, error) {
	op, err := g.lowerExpr(e, true)
	if err != nil {
		return nil, err
	}
	if op.lval == nil {
		return nil, errors.Invariantf("expression %q is not assignable", e.String())
	}
	return op.lval, nil
}

func (g *Generator) lowerExpr(e ast.Expression, wantLValue bool) (operand, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return g.requireValue(wantLValue, e, func() (Value, error) { return g.literal(n) })
	case *ast.Identifier:
		return g.identifier(n, wantLValue)
	case *ast.Conditional:
		return g.requireValue(wantLValue, e, func() (Value, error) { return g.conditional(n) })
	case *ast.Assignment:
		return g.requireValue(wantLValue, e, func() (Value, error) { return g.assignment(n) })
	case *ast.TupleExpression:
		return g.tupleExpression(n, wantLValue)
	case *ast.UnaryOperation:
		return g.requireValue(wantLValue, e, func() (Value, error) { return g.unaryOperation(n) })
	case *ast.BinaryOperation:
		return g.requireValue(wantLValue, e, func() (Value, error) { return g.binaryExpression(n) })
	case *ast.FunctionCall:
		return g.functionCall(n, wantLValue)
	case *ast.MemberAccess:
		return g.memberAccessExpr(n, wantLValue)
	case *ast.IndexAccess:
		return g.indexAccess(n, wantLValue)
	case *ast.IndexRangeAccess:
		return operand{}, errors.Unimplementedf("index range access not yet implemented")
	default:
		return operand{}, errors.Invariantf("unknown expression form %T", e)
	}
}

// requireValue wraps value-only expression forms: they cannot stand in
// assignment position.
func (g *Generator) requireValue(wantLValue bool, e ast.Expression, lower func() (Value, error)) (operand, error) {
	if wantLValue {
		return operand{}, errors.Invariantf("expression %q is not assignable", e.String())
	}
	v, err := lower()
	if err != nil {
		return operand{}, err
	}
	return operand{value: v}, nil
}

// establish finishes lowering an expression that named a location: in
// lvalue position the location itself is the result, otherwise its current
// content is read out. Calldata never forms an lvalue.
func (g *Generator) establish(lv LValue, wantLValue bool) (operand, error) {
	if wantLValue {
		if isCalldata(lv.Type()) {
			return operand{}, errors.Invariantf("calldata location %s is read-only", lv.Type())
		}
		return operand{lval: lv}, nil
	}
	v, err := g.readFromLValue(lv)
	if err != nil {
		return operand{}, err
	}
	return operand{value: v}, nil
}

func isCalldata(t types.Type) bool {
	switch rt := t.(type) {
	case *types.Array:
		return rt.Location == types.LocationCalldata
	case *types.Struct:
		return rt.Location == types.LocationCalldata
	}
	return false
}

// ===== Leaf expressions =====

func (g *Generator) literal(n *ast.Literal) (Value, error) {
	switch n.Type.(type) {
	case *types.Rational, *types.Boolean, *types.Address, *types.Integer, *types.FixedBytes:
		result := g.newTemp(n.Type)
		g.emit(&ir.VarDecl{Names: result.StackNames(), Value: ir.Num(n.Value)})
		return result, nil
	case *types.StringLiteral:
		// The payload lives in the type; it materializes when converted to a
		// reference type, so no code is emitted here.
		return g.newTemp(n.Type), nil
	default:
		return Value{}, errors.Unimplementedf("literal of type %s not yet implemented", n.Type)
	}
}

func (g *Generator) identifier(n *ast.Identifier, wantLValue bool) (operand, error) {
	switch d := n.Decl.(type) {
	case *ast.MagicDeclaration:
		return g.requireValue(wantLValue, n, func() (Value, error) {
			switch d.Name {
			case "this":
				return g.defineCall(n.Type, ir.FnCall("address")), nil
			case "now":
				return g.defineCall(n.Type, ir.FnCall("timestamp")), nil
			default:
				// Namespaces like msg/block/tx have no stack representation;
				// their members carry the values.
				return g.newTemp(n.Type), nil
			}
		})

	case *ast.FunctionDeclaration:
		return g.requireValue(wantLValue, n, func() (Value, error) {
			id := g.ctx.Dispatch.FunctionID(d)
			return g.defineCall(n.Type, ir.Uint(id)), nil
		})

	case *ast.VariableDeclaration:
		if d.Constant {
			return operand{}, errors.Unimplementedf("compile-time constant %q not yet implemented", d.Name)
		}
		if !d.IsStateVariable {
			local, ok := g.ctx.LocalVariable(d)
			if !ok {
				return operand{}, errors.Invariantf("local %q referenced before declaration", d.Name)
			}
			return g.establish(&StackLValue{Var: local}, wantLValue)
		}
		slot, offset, ok := g.ctx.Layout.Location(d)
		if !ok {
			return operand{}, errors.Invariantf("state variable %q has no storage placement", d.Name)
		}
		return g.establish(&StorageLValue{
			Typ:    n.Type,
			Slot:   ir.Num(slot),
			Offset: StorageOffset{Static: offset},
		}, wantLValue)

	case *ast.ContractDeclaration:
		if d.Library {
			return operand{}, errors.Unimplementedf("library reference %q not yet implemented", d.Name)
		}
		return g.requireValue(wantLValue, n, func() (Value, error) { return g.newTemp(n.Type), nil })

	case *ast.EventDeclaration, *ast.EnumDeclaration, *ast.StructDeclaration:
		// Type-like names carry no run-time value of their own.
		return g.requireValue(wantLValue, n, func() (Value, error) { return g.newTemp(n.Type), nil })

	default:
		return operand{}, errors.Invariantf("identifier %q resolves to unknown declaration %T", n.Name, n.Decl)
	}
}

// ===== Composite expressions =====

func (g *Generator) conditional(n *ast.Conditional) (Value, error) {
	cond, err := g.expr(n.Condition)
	if err != nil {
		return Value{}, err
	}
	condExpr, err := g.asSingleArg(cond, types.Bool)
	if err != nil {
		return Value{}, err
	}

	result := g.newTemp(n.Type)
	g.declare(result)

	trueBlk, err := g.withBlock(func() error {
		v, err := g.expr(n.TrueExpr)
		if err != nil {
			return err
		}
		return g.assign(result, v)
	})
	if err != nil {
		return Value{}, err
	}
	falseBlk, err := g.withBlock(func() error {
		v, err := g.expr(n.FalseExpr)
		if err != nil {
			return err
		}
		return g.assign(result, v)
	})
	if err != nil {
		return Value{}, err
	}

	// Only the selected arm's code runs, so side effects of the unselected
	// branch never execute.
	g.emit(&ir.Switch{
		Cond: condExpr,
		Cases: []ir.SwitchCase{
			{Value: &ir.Lit{Value: "0"}, Body: falseBlk},
			{Value: nil, Body: trueBlk},
		},
	})
	return result, nil
}

func (g *Generator) assignment(n *ast.Assignment) (Value, error) {
	rhs, err := g.expr(n.RHS)
	if err != nil {
		return Value{}, err
	}
	intermediate := mobileType(n.RHS.ExprType(), n.LHS.ExprType())
	value, err := g.convert(rhs, intermediate)
	if err != nil {
		return Value{}, err
	}

	lv, err := g.lvalue(n.LHS)
	if err != nil {
		return Value{}, err
	}

	if binOp, compound := ast.AssignmentToBinaryOp(n.Op); compound {
		if !types.Equal(n.LHS.ExprType(), intermediate) {
			return Value{}, errors.Invariantf("compound assignment with mismatched operand types %s and %s",
				n.LHS.ExprType(), intermediate)
		}
		if !intermediate.IsValueType() {
			return Value{}, errors.Invariantf("compound assignment on reference type %s", intermediate)
		}
		current, err := g.readFromLValue(lv)
		if err != nil {
			return Value{}, err
		}
		combined, err := g.arithmeticExpr(binOp, intermediate,
			ir.Id(current.Primary()), ir.Id(value.Primary()))
		if err != nil {
			return Value{}, err
		}
		g.emit(&ir.Assign{Names: []string{value.Primary()}, Value: combined})
	}

	if err := g.writeToLValue(lv, value); err != nil {
		return Value{}, err
	}
	return value, nil
}

func (g *Generator) tupleExpression(n *ast.TupleExpression, wantLValue bool) (operand, error) {
	if len(n.Components) == 1 && n.Components[0] != nil {
		// Transparent parentheses.
		return g.lowerExpr(n.Components[0], wantLValue)
	}

	if wantLValue {
		lvs := make([]LValue, len(n.Components))
		for i, c := range n.Components {
			if c == nil {
				continue
			}
			lv, err := g.lvalue(c)
			if err != nil {
				return operand{}, err
			}
			lvs[i] = lv
		}
		return operand{lval: &TupleLValue{Typ: n.Type, Components: lvs}}, nil
	}

	result := g.newTemp(n.Type)
	for i, c := range n.Components {
		if c == nil {
			continue
		}
		v, err := g.expr(c)
		if err != nil {
			return operand{}, err
		}
		if err := g.define(result.TupleComponent(i), v); err != nil {
			return operand{}, err
		}
	}
	return operand{value: result}, nil
}

func (g *Generator) unaryOperation(n *ast.UnaryOperation) (Value, error) {
	// Constant-folded results never evaluate the operand at run time.
	if rat, ok := n.Type.(*types.Rational); ok {
		result := g.newTemp(n.Type)
		g.emit(&ir.VarDecl{Names: result.StackNames(), Value: ir.Num(rat.Value)})
		return result, nil
	}

	switch n.Op {
	case ast.TokenDelete:
		return g.deleteOperation(n)

	case ast.TokenInc, ast.TokenDec:
		return g.incDecOperation(n)

	case ast.TokenNot:
		val, err := g.expr(n.Operand)
		if err != nil {
			return Value{}, err
		}
		if _, ok := n.Type.(*types.Boolean); !ok {
			return Value{}, errors.Invariantf("logical negation of non-boolean %s", n.Type)
		}
		arg, err := g.asSingleArg(val, n.Type)
		if err != nil {
			return Value{}, err
		}
		return g.defineCall(n.Type, ir.FnCall("iszero", arg)), nil

	case ast.TokenBitNot:
		val, err := g.expr(n.Operand)
		if err != nil {
			return Value{}, err
		}
		arg, err := g.asSingleArg(val, n.Type)
		if err != nil {
			return Value{}, err
		}
		return g.defineCall(n.Type,
			ir.FnCall(g.ctx.Runtime.Cleanup(n.Type), ir.FnCall("not", arg))), nil

	case ast.TokenSub:
		val, err := g.expr(n.Operand)
		if err != nil {
			return Value{}, err
		}
		intType, ok := n.Type.(*types.Integer)
		if !ok {
			return Value{}, errors.Invariantf("negation of non-integer %s", n.Type)
		}
		arg, err := g.asSingleArg(val, n.Type)
		if err != nil {
			return Value{}, err
		}
		return g.defineCall(n.Type, ir.FnCall(g.ctx.Runtime.CheckedNegate(intType), arg)), nil

	default:
		return Value{}, errors.Unimplementedf("unary operator %s not yet implemented", n.Op)
	}
}

func (g *Generator) deleteOperation(n *ast.UnaryOperation) (Value, error) {
	lv, err := g.lvalue(n.Operand)
	if err != nil {
		return Value{}, err
	}
	if st, ok := lv.(*StorageLValue); ok {
		// Storage deletion zeroes the occupied slots in place, so reference
		// payloads are cleared without materializing a zero value.
		offsetExpr := st.Offset.Dynamic
		if offsetExpr == nil {
			offsetExpr = ir.Uint(uint64(st.Offset.Static))
		}
		g.emit(&ir.ExprStmt{X: ir.FnCall(g.ctx.Runtime.StorageSetToZero(st.Typ), st.Slot, offsetExpr)})
		return g.newTemp(types.EmptyTuple), nil
	}
	zero := g.defineCall(lv.Type(), ir.FnCall(g.ctx.Runtime.ZeroValue(lv.Type())))
	if err := g.writeToLValue(lv, zero); err != nil {
		return Value{}, err
	}
	return g.newTemp(types.EmptyTuple), nil
}

func (g *Generator) incDecOperation(n *ast.UnaryOperation) (Value, error) {
	if !types.Equal(n.Type, n.Operand.ExprType()) {
		return Value{}, errors.Invariantf("increment result type %s differs from operand type %s",
			n.Type, n.Operand.ExprType())
	}
	lv, err := g.lvalue(n.Operand)
	if err != nil {
		return Value{}, err
	}
	before, err := g.readFromLValue(lv)
	if err != nil {
		return Value{}, err
	}
	helper := g.ctx.Runtime.CheckedIncrement(n.Type)
	if n.Op == ast.TokenDec {
		helper = g.ctx.Runtime.CheckedDecrement(n.Type)
	}
	modified := g.defineCall(n.Type, ir.FnCall(helper, ir.Id(before.Primary())))
	if err := g.writeToLValue(lv, modified); err != nil {
		return Value{}, err
	}
	if n.Prefix {
		return modified, nil
	}
	return before, nil
}

func (g *Generator) binaryExpression(n *ast.BinaryOperation) (Value, error) {
	if n.Op == ast.TokenAnd || n.Op == ast.TokenOr {
		return g.shortCircuit(n)
	}

	common := n.CommonType
	if common == nil {
		return Value{}, errors.Invariantf("binary operation without a common type")
	}

	left, err := g.expr(n.Left)
	if err != nil {
		return Value{}, err
	}
	right, err := g.expr(n.Right)
	if err != nil {
		return Value{}, err
	}

	// Constant-folded operations evaluate both operands for their effects
	// but emit only the folded result.
	if rat, ok := common.(*types.Rational); ok {
		result := g.newTemp(n.Type)
		g.emit(&ir.VarDecl{Names: result.StackNames(), Value: ir.Num(rat.Value)})
		return result, nil
	}

	if n.Op.IsCompareOp() {
		return g.comparison(n, common, left, right)
	}

	leftArg, err := g.asSingleArg(left, common)
	if err != nil {
		return Value{}, err
	}
	rightArg, err := g.asSingleArg(right, common)
	if err != nil {
		return Value{}, err
	}
	combined, err := g.arithmeticExpr(n.Op, common, leftArg, rightArg)
	if err != nil {
		return Value{}, err
	}
	return g.defineCall(n.Type, combined), nil
}

// arithmeticExpr builds the overflow-checked call for one arithmetic
// operator over operands already converted to the common type.
func (g *Generator) arithmeticExpr(op ast.Token, common types.Type, left, right ir.Expr) (ir.Expr, error) {
	intType, ok := common.(*types.Integer)
	if !ok {
		return nil, errors.Unimplementedf("operator %s on type %s not yet implemented", op, common)
	}
	var name string
	switch op {
	case ast.TokenAdd:
		name = "add"
	case ast.TokenSub:
		name = "sub"
	case ast.TokenMul:
		name = "mul"
	case ast.TokenDiv:
		name = "div"
	case ast.TokenMod:
		name = "mod"
	default:
		return nil, errors.Unimplementedf("operator %s not yet implemented", op)
	}
	return ir.FnCall(g.ctx.Runtime.CheckedOp(name, intType), left, right), nil
}

func (g *Generator) comparison(n *ast.BinaryOperation, common types.Type, left, right Value) (Value, error) {
	if ft, ok := common.(*types.Function); ok {
		// Function values compare by identity; only internal references
		// have a single-slot identity to compare.
		if n.Op != ast.TokenEqual && n.Op != ast.TokenNotEqual {
			return Value{}, errors.Invariantf("ordering comparison on function type %s", common)
		}
		if ft.Kind != types.FunctionKindInternal {
			return Value{}, errors.Invariantf("comparison on function kind %s", ft.Kind)
		}
	}
	if !common.IsValueType() {
		return Value{}, errors.Invariantf("comparison on reference type %s", common)
	}

	leftArg, err := g.asSingleArg(left, common)
	if err != nil {
		return Value{}, err
	}
	rightArg, err := g.asSingleArg(right, common)
	if err != nil {
		return Value{}, err
	}

	lt, gt := "lt", "gt"
	if types.IsSigned(common) {
		lt, gt = "slt", "sgt"
	}

	var cmp ir.Expr
	switch n.Op {
	case ast.TokenEqual:
		cmp = ir.FnCall("eq", leftArg, rightArg)
	case ast.TokenNotEqual:
		cmp = ir.FnCall("iszero", ir.FnCall("eq", leftArg, rightArg))
	case ast.TokenLessThan:
		cmp = ir.FnCall(lt, leftArg, rightArg)
	case ast.TokenGreaterThan:
		cmp = ir.FnCall(gt, leftArg, rightArg)
	case ast.TokenLessThanOrEqual:
		cmp = ir.FnCall("iszero", ir.FnCall(gt, leftArg, rightArg))
	case ast.TokenGreaterThanOrEqual:
		cmp = ir.FnCall("iszero", ir.FnCall(lt, leftArg, rightArg))
	default:
		return Value{}, errors.Invariantf("unknown comparison operator %s", n.Op)
	}
	return g.defineCall(n.Type, cmp), nil
}

func (g *Generator) shortCircuit(n *ast.BinaryOperation) (Value, error) {
	left, err := g.expr(n.Left)
	if err != nil {
		return Value{}, err
	}
	result := g.newTemp(n.Type)
	if err := g.define(result, left); err != nil {
		return Value{}, err
	}

	// The right operand only runs when the left one did not decide the
	// outcome.
	rightBlk, err := g.withBlock(func() error {
		right, err := g.expr(n.Right)
		if err != nil {
			return err
		}
		return g.assign(result, right)
	})
	if err != nil {
		return Value{}, err
	}

	cond := ir.Expr(ir.Id(result.Primary()))
	if n.Op == ast.TokenOr {
		cond = ir.FnCall("iszero", cond)
	}
	g.emit(&ir.If{Cond: cond, Body: rightBlk})
	return result, nil
}
