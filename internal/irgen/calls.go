package irgen

import (
	"github.com/vesper-lang/vesper/internal/ast"
	"github.com/vesper-lang/vesper/internal/errors"
	"github.com/vesper-lang/vesper/internal/ir"
	"github.com/vesper-lang/vesper/internal/types"
)

func (g *Generator) functionCall(n *ast.FunctionCall, wantLValue bool) (operand, error) {
	switch n.Kind {
	case ast.CallTypeConversion:
		return g.requireValue(wantLValue, n, func() (Value, error) { return g.typeConversion(n) })
	case ast.CallStructConstructor:
		return operand{}, errors.Unimplementedf("struct constructors not yet implemented")
	}

	fnType, ok := n.Callee.ExprType().(*types.Function)
	if !ok {
		return operand{}, errors.Invariantf("call to non-function type %s", n.Callee.ExprType())
	}
	arguments, err := orderedArguments(n, fnType)
	if err != nil {
		return operand{}, err
	}

	switch fnType.Kind {
	case types.FunctionKindInternal:
		return g.requireValue(wantLValue, n, func() (Value, error) {
			return g.internalCall(n, fnType, arguments)
		})

	case types.FunctionKindExternal, types.FunctionKindDelegateCall,
		types.FunctionKindBareCall, types.FunctionKindBareDelegateCall, types.FunctionKindBareStaticCall:
		return g.requireValue(wantLValue, n, func() (Value, error) {
			return g.externalCall(n, fnType, arguments)
		})

	case types.FunctionKindSend, types.FunctionKindTransfer:
		return g.requireValue(wantLValue, n, func() (Value, error) {
			return g.valueTransfer(n, fnType, arguments)
		})

	case types.FunctionKindEvent:
		return g.requireValue(wantLValue, n, func() (Value, error) {
			return g.emitEvent(n, arguments)
		})

	case types.FunctionKindAssert, types.FunctionKindRequire:
		return g.requireValue(wantLValue, n, func() (Value, error) {
			return g.assertOrRequire(n, fnType, arguments)
		})

	case types.FunctionKindKeccak256:
		return g.requireValue(wantLValue, n, func() (Value, error) {
			return g.keccak256Call(n, arguments)
		})

	case types.FunctionKindObjectCreation:
		return g.requireValue(wantLValue, n, func() (Value, error) {
			return g.memoryArrayCreation(n, arguments)
		})

	case types.FunctionKindArrayPush:
		return g.arrayPush(n, arguments, wantLValue)

	case types.FunctionKindArrayPop:
		return g.requireValue(wantLValue, n, func() (Value, error) {
			return g.arrayPop(n)
		})

	default:
		return operand{}, errors.Unimplementedf("calls of kind %s not yet implemented", fnType.Kind)
	}
}

// orderedArguments returns the call arguments in declaration order,
// resolving named-argument calls against the parameter names.
func orderedArguments(n *ast.FunctionCall, fnType *types.Function) ([]ast.Expression, error) {
	if len(n.Names) == 0 {
		return n.Arguments, nil
	}
	if len(n.Names) != len(n.Arguments) {
		return nil, errors.Invariantf("named-argument call with %d names for %d arguments",
			len(n.Names), len(n.Arguments))
	}
	byName := make(map[string]ast.Expression, len(n.Names))
	for i, name := range n.Names {
		byName[name] = n.Arguments[i]
	}
	ordered := make([]ast.Expression, 0, len(fnType.ParamNames))
	for _, name := range fnType.ParamNames {
		arg, ok := byName[name]
		if !ok {
			return nil, errors.Invariantf("named-argument call missing parameter %q", name)
		}
		ordered = append(ordered, arg)
	}
	return ordered, nil
}

func (g *Generator) typeConversion(n *ast.FunctionCall) (Value, error) {
	if _, ok := n.Callee.ExprType().(*types.TypeRef); !ok {
		return Value{}, errors.Invariantf("conversion callee has type %s", n.Callee.ExprType())
	}
	if len(n.Arguments) != 1 {
		return Value{}, errors.Invariantf("conversion takes one argument, got %d", len(n.Arguments))
	}
	arg, err := g.expr(n.Arguments[0])
	if err != nil {
		return Value{}, err
	}
	return g.convert(arg, n.Type)
}

func (g *Generator) internalCall(n *ast.FunctionCall, fnType *types.Function, arguments []ast.Expression) (Value, error) {
	callee, err := g.expr(n.Callee)
	if err != nil {
		return Value{}, err
	}
	if len(arguments) != len(fnType.Params) {
		return Value{}, errors.Invariantf("call with %d arguments for %d parameters",
			len(arguments), len(fnType.Params))
	}

	var args []ir.Expr
	for i, arg := range arguments {
		v, err := g.expr(arg)
		if err != nil {
			return Value{}, err
		}
		args = append(args, g.asArgs(v, fnType.Params[i])...)
	}

	// Calls to a statically known function go straight to its generated
	// function; anything else dispatches on the function identifier.
	if fd := staticCallee(n.Callee); fd != nil {
		return g.defineCall(n.Type, ir.FnCall(g.ctx.Dispatch.FunctionName(fd), args...)), nil
	}
	trampoline := g.ctx.Dispatch.InternalDispatch(len(fnType.Params), len(fnType.Returns))
	dispatchArgs := append([]ir.Expr{ir.Id(callee.Name(types.ComponentFunctionID))}, args...)
	return g.defineCall(n.Type, ir.FnCall(trampoline, dispatchArgs...)), nil
}

func staticCallee(e ast.Expression) *ast.FunctionDeclaration {
	id, ok := e.(*ast.Identifier)
	if !ok {
		return nil
	}
	fd, _ := id.Decl.(*ast.FunctionDeclaration)
	return fd
}

func (g *Generator) assertOrRequire(n *ast.FunctionCall, fnType *types.Function, arguments []ast.Expression) (Value, error) {
	if len(arguments) == 0 || len(arguments) > 2 {
		return Value{}, errors.Invariantf("assert/require takes one or two arguments, got %d", len(arguments))
	}
	cond, err := g.expr(arguments[0])
	if err != nil {
		return Value{}, err
	}
	condExpr, err := g.asSingleArg(cond, types.Bool)
	if err != nil {
		return Value{}, err
	}

	var messageType types.Type
	args := []ir.Expr{condExpr}
	if len(arguments) == 2 {
		msg, err := g.expr(arguments[1])
		if err != nil {
			return Value{}, err
		}
		messageType = arguments[1].ExprType()
		args = append(args, msg.Idents()...)
	}

	isAssert := fnType.Kind == types.FunctionKindAssert
	g.emit(&ir.ExprStmt{X: ir.FnCall(g.ctx.Runtime.RequireOrAssert(isAssert, messageType), args...)})
	return g.newTemp(types.EmptyTuple), nil
}

func (g *Generator) keccak256Call(n *ast.FunctionCall, arguments []ast.Expression) (Value, error) {
	if len(arguments) != 1 {
		return Value{}, errors.Invariantf("keccak256 takes one argument, got %d", len(arguments))
	}
	arg, err := g.expr(arguments[0])
	if err != nil {
		return Value{}, err
	}
	array, err := g.convert(arg, types.BytesMemory)
	if err != nil {
		return Value{}, err
	}
	ptr := ir.Expr(ir.Id(array.Primary()))
	return g.defineCall(n.Type, ir.FnCall("keccak256",
		ir.FnCall(g.ctx.Runtime.ArrayDataArea(types.BytesMemory), ptr),
		ir.FnCall(g.ctx.Runtime.ArrayLength(types.BytesMemory), ptr),
	)), nil
}

func (g *Generator) memoryArrayCreation(n *ast.FunctionCall, arguments []ast.Expression) (Value, error) {
	arrayType, ok := n.Type.(*types.Array)
	if !ok || arrayType.Location != types.LocationMemory {
		return Value{}, errors.Invariantf("array creation of type %s", n.Type)
	}
	if len(arguments) != 1 {
		return Value{}, errors.Invariantf("array creation takes one length argument, got %d", len(arguments))
	}
	length, err := g.expr(arguments[0])
	if err != nil {
		return Value{}, err
	}
	lengthExpr, err := g.asSingleArg(length, types.U256)
	if err != nil {
		return Value{}, err
	}
	return g.defineCall(n.Type, ir.FnCall(g.ctx.Runtime.AllocateMemoryArray(arrayType), lengthExpr)), nil
}

func (g *Generator) arrayPush(n *ast.FunctionCall, arguments []ast.Expression, wantLValue bool) (operand, error) {
	arrayType, err := g.storageArrayOf(n.Callee)
	if err != nil {
		return operand{}, err
	}
	callee, err := g.expr(n.Callee)
	if err != nil {
		return operand{}, err
	}

	if len(arguments) == 0 {
		// Argument-less push appends a zero element and names its fresh
		// location, which the surrounding expression may assign into.
		slotVar, offsetVar := g.ctx.NewVar(), g.ctx.NewVar()
		g.emit(&ir.VarDecl{
			Names: []string{slotVar, offsetVar},
			Value: ir.FnCall(g.ctx.Runtime.StorageArrayPushZero(arrayType), callee.Idents()...),
		})
		return g.establish(&StorageLValue{
			Typ:    arrayType.Element,
			Slot:   ir.Id(slotVar),
			Offset: StorageOffset{Dynamic: ir.Id(offsetVar)},
		}, wantLValue)
	}

	if wantLValue {
		return operand{}, errors.Invariantf("push with an argument is not assignable")
	}
	element, err := g.expr(arguments[0])
	if err != nil {
		return operand{}, err
	}
	converted, err := g.convert(element, arrayType.Element)
	if err != nil {
		return operand{}, err
	}
	args := append(callee.Idents(), converted.Idents()...)
	g.emit(&ir.ExprStmt{X: ir.FnCall(g.ctx.Runtime.StorageArrayPush(arrayType), args...)})
	return operand{value: g.newTemp(types.EmptyTuple)}, nil
}

func (g *Generator) arrayPop(n *ast.FunctionCall) (Value, error) {
	arrayType, err := g.storageArrayOf(n.Callee)
	if err != nil {
		return Value{}, err
	}
	callee, err := g.expr(n.Callee)
	if err != nil {
		return Value{}, err
	}
	g.emit(&ir.ExprStmt{X: ir.FnCall(g.ctx.Runtime.StorageArrayPop(arrayType), callee.Idents()...)})
	return g.newTemp(types.EmptyTuple), nil
}

func (g *Generator) storageArrayOf(callee ast.Expression) (*types.Array, error) {
	member, ok := callee.(*ast.MemberAccess)
	if !ok {
		return nil, errors.Invariantf("push/pop callee is %T, expected a member access", callee)
	}
	arrayType, ok := member.Base.ExprType().(*types.Array)
	if !ok {
		return nil, errors.Invariantf("push/pop on non-array type %s", member.Base.ExprType())
	}
	if arrayType.Location != types.LocationStorage {
		return nil, errors.Invariantf("push/pop on %s array, expected storage", arrayType.Location)
	}
	return arrayType, nil
}

// valueTransfer lowers transfer and send. Both forward only the builtin
// value-transfer stipend by requesting zero gas.
func (g *Generator) valueTransfer(n *ast.FunctionCall, fnType *types.Function, arguments []ast.Expression) (Value, error) {
	callee, err := g.expr(n.Callee)
	if err != nil {
		return Value{}, err
	}
	if len(arguments) != 1 {
		return Value{}, errors.Invariantf("transfer/send takes one amount argument, got %d", len(arguments))
	}
	amount, err := g.expr(arguments[0])
	if err != nil {
		return Value{}, err
	}
	amountExpr, err := g.asSingleArg(amount, types.U256)
	if err != nil {
		return Value{}, err
	}

	zero := &ir.Lit{Value: "0"}
	call := ir.FnCall("call",
		zero, ir.Id(callee.Name(types.ComponentAddress)), amountExpr,
		zero, zero, zero, zero)

	if fnType.Kind == types.FunctionKindSend {
		return g.defineCall(n.Type, call), nil
	}
	success := g.ctx.NewVar()
	g.emit(&ir.VarDecl{Names: []string{success}, Value: call})
	g.emit(&ir.If{
		Cond: ir.FnCall("iszero", ir.Id(success)),
		Body: &ir.Block{Stmts: []ir.Stmt{&ir.ExprStmt{X: ir.FnCall(g.ctx.Runtime.ForwardingRevert())}}},
	})
	return g.newTemp(types.EmptyTuple), nil
}

func (g *Generator) emitEvent(n *ast.FunctionCall, arguments []ast.Expression) (Value, error) {
	event, err := eventOf(n.Callee)
	if err != nil {
		return Value{}, err
	}
	if _, err := g.expr(n.Callee); err != nil {
		return Value{}, err
	}
	if len(arguments) != len(event.Parameters) {
		return Value{}, errors.Invariantf("event %q emitted with %d arguments for %d parameters",
			event.Name, len(arguments), len(event.Parameters))
	}

	var topics []ir.Expr
	if !event.Anonymous {
		if event.SignatureHash == nil {
			return Value{}, errors.Invariantf("event %q has no signature hash annotation", event.Name)
		}
		hash := g.defineCall(types.U256, ir.Num(event.SignatureHash))
		topics = append(topics, ir.Id(hash.Primary()))
	}

	var nonIndexed []ir.Expr
	var sourceTypes, targetTypes []types.Type
	for i, param := range event.Parameters {
		arg, err := g.expr(arguments[i])
		if err != nil {
			return Value{}, err
		}
		if param.Indexed {
			// Indexed reference values log the hash of their contents, not
			// an ABI encoding.
			if !param.Type.IsValueType() {
				hashed := g.defineCall(types.U256,
					ir.FnCall(g.ctx.Runtime.PackedHash([]types.Type{arg.Type()}), arg.Idents()...))
				topics = append(topics, ir.Id(hashed.Primary()))
				continue
			}
			converted, err := g.convert(arg, param.Type)
			if err != nil {
				return Value{}, err
			}
			topics = append(topics, ir.Id(converted.Primary()))
			continue
		}
		nonIndexed = append(arg.Idents(), nonIndexed...)
		sourceTypes = append([]types.Type{arg.Type()}, sourceTypes...)
		targetTypes = append([]types.Type{param.Type}, targetTypes...)
	}
	if len(topics) > 4 {
		return Value{}, errors.Invariantf("event %q needs %d topics, the log supports at most 4",
			event.Name, len(topics))
	}

	pos, end := g.ctx.NewVar(), g.ctx.NewVar()
	g.emit(&ir.VarDecl{Names: []string{pos}, Value: fetchFreeMem()})
	encoder := g.ctx.ABI.TupleEncoder(sourceTypes, targetTypes, false)
	g.emit(&ir.VarDecl{
		Names: []string{end},
		Value: ir.FnCall(encoder, append([]ir.Expr{ir.Id(pos)}, nonIndexed...)...),
	})

	logArgs := append([]ir.Expr{ir.Id(pos), ir.FnCall("sub", ir.Id(end), ir.Id(pos))}, topics...)
	g.emit(&ir.ExprStmt{X: ir.FnCall(logName(len(topics)), logArgs...)})
	return g.newTemp(types.EmptyTuple), nil
}

func eventOf(callee ast.Expression) (*ast.EventDeclaration, error) {
	switch c := callee.(type) {
	case *ast.Identifier:
		if ed, ok := c.Decl.(*ast.EventDeclaration); ok {
			return ed, nil
		}
	case *ast.MemberAccess:
		if ed, ok := c.Decl.(*ast.EventDeclaration); ok {
			return ed, nil
		}
	}
	return nil, errors.Invariantf("event emission with unresolved event callee %q", callee.String())
}

func logName(topics int) string {
	return "log" + string(rune('0'+topics))
}
