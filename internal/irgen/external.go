package irgen

import (
	"github.com/vesper-lang/vesper/internal/ast"
	"github.com/vesper-lang/vesper/internal/errors"
	"github.com/vesper-lang/vesper/internal/evm"
	"github.com/vesper-lang/vesper/internal/ir"
	"github.com/vesper-lang/vesper/internal/types"
)

// externalCall lowers a call through the external call instruction family:
// existence check, ABI encoding of the arguments after the selector, the
// call itself, failure forwarding and return-value decoding.
func (g *Generator) externalCall(n *ast.FunctionCall, fnType *types.Function, arguments []ast.Expression) (Value, error) {
	if fnType.Kind == types.FunctionKindBareStaticCall && !g.ctx.EVM.HasStaticCall() {
		return Value{}, errors.Invariantf("staticcall requires EVM version %s or later, targeting %s",
			evm.Byzantium, g.ctx.EVM)
	}
	if fnType.IsBareCall() {
		// Bare calls must produce the raw (success, returndata) pair; any
		// other result shape has no defined encoding. Neither combination
		// is lowered yet, but they fail with distinct diagnostics.
		if isRawCallResult(n.Type) {
			return Value{}, errors.Unimplementedf("bare calls returning the raw success flag and return data are not yet implemented")
		}
		return Value{}, errors.Unimplementedf("unsupported combination: bare call with decoded return values")
	}

	isDelegate := fnType.Kind == types.FunctionKindDelegateCall
	useStatic := !isDelegate && fnType.Mutability <= types.MutabilityView && g.ctx.EVM.HasStaticCall()
	if fnType.ValueSet && (isDelegate || useStatic) {
		return Value{}, errors.Invariantf("value option on a call that cannot transfer value")
	}

	haveReturndata := g.ctx.EVM.SupportsReturndata()
	retSize, dynamicReturns, err := returnAreaSize(fnType.Returns)
	if err != nil {
		return Value{}, err
	}
	if dynamicReturns && !haveReturndata {
		return Value{}, errors.Unimplementedf(
			"dynamically sized return values require EVM version %s or later", evm.Byzantium)
	}

	callee, err := g.expr(n.Callee)
	if err != nil {
		return Value{}, err
	}
	if len(arguments) != len(fnType.Params) {
		return Value{}, errors.Invariantf("external call with %d arguments for %d parameters",
			len(arguments), len(fnType.Params))
	}
	var argSlots []ir.Expr
	var argTypes []types.Type
	for _, arg := range arguments {
		v, err := g.expr(arg)
		if err != nil {
			return Value{}, err
		}
		argSlots = append(argSlots, v.Idents()...)
		argTypes = append(argTypes, v.Type())
	}

	addr := ir.Expr(ir.Id(callee.Name(types.ComponentAddress)))

	// A call into empty code would succeed with empty return data and
	// silently decode garbage, so target existence is checked up front.
	g.emit(&ir.If{
		Cond: ir.FnCall("iszero", ir.FnCall("extcodesize", addr)),
		Body: &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{X: ir.FnCall("revert", &ir.Lit{Value: "0"}, &ir.Lit{Value: "0"})},
		}},
	})

	pos := g.ctx.NewVar()
	g.emit(&ir.VarDecl{Names: []string{pos}, Value: fetchFreeMem()})
	if !g.ctx.EVM.CanOverchargeGasForCall() && !fnType.GasSet && retSize > 0 {
		// Touch the end of the return area so its memory expansion is paid
		// before the call instead of out of the forwarded gas.
		g.emit(&ir.ExprStmt{X: ir.FnCall("mstore",
			ir.FnCall("add", ir.Id(pos), ir.Uint(retSize)), &ir.Lit{Value: "0"})})
	}

	g.emit(&ir.ExprStmt{X: ir.FnCall("mstore", ir.Id(pos),
		ir.FnCall(g.ctx.Runtime.ShiftLeft(224), ir.Id(callee.Name(types.ComponentFunctionID))))})

	end := g.ctx.NewVar()
	encoder := g.ctx.ABI.TupleEncoder(argTypes, fnType.Params, false)
	encodeArgs := append([]ir.Expr{ir.FnCall("add", ir.Id(pos), &ir.Lit{Value: "4"})}, argSlots...)
	g.emit(&ir.VarDecl{Names: []string{end}, Value: ir.FnCall(encoder, encodeArgs...)})

	gasExpr := g.forwardedGas(fnType, callee)
	inSize := ir.FnCall("sub", ir.Id(end), ir.Id(pos))
	outSize := ir.Expr(ir.Uint(retSize))
	if dynamicReturns {
		outSize = &ir.Lit{Value: "0"}
	}

	var call ir.Expr
	switch {
	case useStatic:
		call = ir.FnCall("staticcall", gasExpr, addr, ir.Id(pos), inSize, ir.Id(pos), outSize)
	case isDelegate:
		call = ir.FnCall("delegatecall", gasExpr, addr, ir.Id(pos), inSize, ir.Id(pos), outSize)
	default:
		value := ir.Expr(&ir.Lit{Value: "0"})
		if fnType.ValueSet {
			value = ir.Id(callee.Name(types.ComponentValue))
		}
		call = ir.FnCall("call", gasExpr, addr, value, ir.Id(pos), inSize, ir.Id(pos), outSize)
	}
	success := g.ctx.NewVar()
	g.emit(&ir.VarDecl{Names: []string{success}, Value: call})

	// A failed callee reverts this frame with the callee's revert data
	// passed through unchanged.
	g.emit(&ir.If{
		Cond: ir.FnCall("iszero", ir.Id(success)),
		Body: &ir.Block{Stmts: []ir.Stmt{&ir.ExprStmt{X: ir.FnCall(g.ctx.Runtime.ForwardingRevert())}}},
	})

	returnSize := ir.Expr(ir.Uint(retSize))
	if dynamicReturns {
		returnSize = ir.FnCall("returndatasize")
		g.emit(&ir.ExprStmt{X: ir.FnCall("returndatacopy",
			ir.Id(pos), &ir.Lit{Value: "0"}, ir.FnCall("returndatasize"))})
	}

	// Finalize the return area allocation, rounded up to whole words.
	g.emit(&ir.ExprStmt{X: ir.FnCall("mstore", ir.Uint(FreeMemoryPointer),
		ir.FnCall("add", ir.Id(pos),
			ir.FnCall("and",
				ir.FnCall("add", returnSize, &ir.Lit{Value: "0x1f"}),
				ir.FnCall("not", &ir.Lit{Value: "0x1f"}))))})

	if len(fnType.Returns) == 0 {
		return g.newTemp(types.EmptyTuple), nil
	}
	decoder := g.ctx.ABI.TupleDecoder(fnType.Returns, true)
	return g.defineCall(n.Type, ir.FnCall(decoder,
		ir.Id(pos), ir.FnCall("add", ir.Id(pos), returnSize))), nil
}

// forwardedGas picks the gas forwarded to an external callee: the explicit
// gas option when present, everything otherwise. Before gas forwarding was
// capped by the fee schedule, "everything" must leave the caller enough to
// execute the call instruction itself.
func (g *Generator) forwardedGas(fnType *types.Function, callee Value) ir.Expr {
	if fnType.GasSet {
		return ir.Id(callee.Name(types.ComponentGas))
	}
	if !g.ctx.EVM.CanOverchargeGasForCall() {
		// The new-account surcharge only applies when the target may have no
		// code; the existence check above already rules that out.
		needed := evm.CallGas(g.ctx.EVM) + evm.CallGasMargin
		if fnType.ValueSet {
			needed += evm.CallValueTransferGas
		}
		return ir.FnCall("sub", ir.FnCall("gas"), ir.Uint(needed))
	}
	return ir.FnCall("gas")
}

// returnAreaSize computes the static ABI-encoded size of the return
// values, or reports that the size is only known at run time.
func returnAreaSize(returns []types.Type) (uint64, bool, error) {
	var total uint64
	for _, t := range returns {
		size, dynamic, err := encodedSize(t)
		if err != nil {
			return 0, false, err
		}
		if dynamic {
			return 0, true, nil
		}
		total += size
	}
	return total, false, nil
}

func encodedSize(t types.Type) (uint64, bool, error) {
	if t.IsValueType() {
		return 32, false, nil
	}
	switch rt := t.(type) {
	case *types.Array:
		if rt.Dynamic || rt.ByteArray {
			return 0, true, nil
		}
		elem, dynamic, err := encodedSize(rt.Element)
		if err != nil || dynamic {
			return 0, dynamic, err
		}
		return rt.Length * elem, false, nil
	case *types.Struct:
		return 0, true, nil
	default:
		return 0, false, errors.Unimplementedf("ABI size of type %s not yet implemented", t)
	}
}

// isRawCallResult reports whether t is the (bool, bytes memory) pair a
// bare call produces.
func isRawCallResult(t types.Type) bool {
	tup, ok := t.(*types.Tuple)
	if !ok || len(tup.Types) != 2 {
		return false
	}
	if _, ok := tup.Types[0].(*types.Boolean); !ok {
		return false
	}
	arr, ok := tup.Types[1].(*types.Array)
	return ok && arr.ByteArray && arr.Location == types.LocationMemory
}
