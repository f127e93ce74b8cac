package irgen

import (
	"math/big"
	"strings"
	"testing"

	"github.com/vesper-lang/vesper/internal/ast"
	"github.com/vesper-lang/vesper/internal/errors"
	"github.com/vesper-lang/vesper/internal/evm"
	"github.com/vesper-lang/vesper/internal/intrinsics"
	"github.com/vesper-lang/vesper/internal/types"
)

func newTestGenerator() (*Generator, *intrinsics.Layout) {
	layout := intrinsics.NewLayout()
	ctx := NewContext(intrinsics.Runtime{}, intrinsics.ABI{}, layout, intrinsics.NewDispatch(), evm.Default)
	return New(ctx), layout
}

func localVar(g *Generator, name string, t types.Type) *ast.VariableDeclaration {
	decl := &ast.VariableDeclaration{Name: name, Type: t}
	g.ctx.AddLocalVariable(decl)
	return decl
}

func stateVar(layout *intrinsics.Layout, name string, t types.Type, slot int64, offset int) *ast.VariableDeclaration {
	decl := &ast.VariableDeclaration{Name: name, Type: t, IsStateVariable: true}
	layout.Assign(decl, big.NewInt(slot), offset)
	return decl
}

func identFor(decl *ast.VariableDeclaration, t types.Type) *ast.Identifier {
	return &ast.Identifier{Name: decl.Name, Decl: decl, Type: t}
}

func numLit(v int64, t types.Type) *ast.Literal {
	return &ast.Literal{Kind: ast.LiteralNumber, Value: big.NewInt(v), Type: t}
}

func exprStmt(e ast.Expression) ast.Statement {
	return &ast.ExpressionStatement{Expression: e}
}

func mustContain(t *testing.T, out string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		if !strings.Contains(out, f) {
			t.Errorf("output missing %q:\n%s", f, out)
		}
	}
}

func mustNotContain(t *testing.T, out string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		if strings.Contains(out, f) {
			t.Errorf("output unexpectedly contains %q:\n%s", f, out)
		}
	}
}

// ===== Arithmetic and logic =====

func TestArithmeticRoutesThroughCheckedHelpers(t *testing.T) {
	g, _ := newTestGenerator()
	a := localVar(g, "a", types.U256)
	b := localVar(g, "b", types.U256)

	err := g.Statement(exprStmt(&ast.BinaryOperation{
		Op:         ast.TokenAdd,
		Left:       identFor(a, types.U256),
		Right:      identFor(b, types.U256),
		CommonType: types.U256,
		Type:       types.U256,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "checked_add_t_uint256(")
	mustNotContain(t, g.CodeString(), "add(") // raw add must not appear for checked arithmetic
}

func TestSignedComparisonSelectsSignedOpcode(t *testing.T) {
	i256 := &types.Integer{Bits: 256, Signed: true}
	g, _ := newTestGenerator()
	a := localVar(g, "a", i256)
	b := localVar(g, "b", i256)

	err := g.Statement(exprStmt(&ast.BinaryOperation{
		Op:         ast.TokenLessThan,
		Left:       identFor(a, i256),
		Right:      identFor(b, i256),
		CommonType: i256,
		Type:       types.Bool,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "slt(")
}

func TestGreaterOrEqualIsNegatedLessThan(t *testing.T) {
	g, _ := newTestGenerator()
	a := localVar(g, "a", types.U256)
	b := localVar(g, "b", types.U256)

	err := g.Statement(exprStmt(&ast.BinaryOperation{
		Op:         ast.TokenGreaterThanOrEqual,
		Left:       identFor(a, types.U256),
		Right:      identFor(b, types.U256),
		CommonType: types.U256,
		Type:       types.Bool,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "iszero(lt(")
}

func TestShortCircuitGuardsRightOperand(t *testing.T) {
	g, _ := newTestGenerator()
	a := localVar(g, "a", types.Bool)
	b := localVar(g, "b", types.Bool)

	err := g.Statement(exprStmt(&ast.BinaryOperation{
		Op:    ast.TokenOr,
		Left:  identFor(a, types.Bool),
		Right: identFor(b, types.Bool),
		Type:  types.Bool,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	out := g.CodeString()
	mustContain(t, out, "if iszero(")
	// The right operand read must sit inside the guarded block, after the
	// guard line.
	guard := strings.Index(out, "if iszero(")
	right := strings.Index(out, "var_b_2")
	if right < guard {
		t.Errorf("right operand evaluated before the guard:\n%s", out)
	}
}

// ===== Conditionals and loops =====

func TestConditionalBranchesAreExclusive(t *testing.T) {
	g, _ := newTestGenerator()
	c := localVar(g, "c", types.Bool)

	err := g.Statement(exprStmt(&ast.Conditional{
		Condition: identFor(c, types.Bool),
		TrueExpr:  numLit(1, types.U256),
		FalseExpr: numLit(2, types.U256),
		Type:      types.U256,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "switch ", "case 0 {", "default {")
}

func TestIfWithElseUsesSwitchDispatch(t *testing.T) {
	g, _ := newTestGenerator()
	c := localVar(g, "c", types.Bool)

	err := g.Statement(&ast.IfStatement{
		Condition: identFor(c, types.Bool),
		TrueBody:  &ast.BreakStatement{},
		FalseBody: &ast.ContinueStatement{},
	})
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "switch ", "case 0 {", "default {", "break", "continue")
}

func TestWhileLoopChecksConditionInsideBody(t *testing.T) {
	g, _ := newTestGenerator()
	c := localVar(g, "c", types.Bool)

	err := g.Statement(&ast.WhileStatement{
		Condition: identFor(c, types.Bool),
		Body:      &ast.Block{},
	})
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	out := g.CodeString()
	mustContain(t, out, "for { } 1 { }", "if iszero(", "break")
}

func TestDoWhileSkipsFirstConditionCheck(t *testing.T) {
	g, _ := newTestGenerator()
	c := localVar(g, "c", types.Bool)

	err := g.Statement(&ast.WhileStatement{
		Condition: identFor(c, types.Bool),
		Body:      &ast.Block{},
		IsDoWhile: true,
	})
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	out := g.CodeString()
	// One-shot flag starts at 1, guards the condition, then drops to 0.
	mustContain(t, out, ":= 1", "if iszero(_", ":= 0")
}

func TestReturnAssignsParametersAndLeaves(t *testing.T) {
	g, _ := newTestGenerator()
	r := &ast.VariableDeclaration{Name: "r", Type: types.U256}
	g.ctx.AddLocalVariable(r)

	err := g.Statement(&ast.ReturnStatement{
		Expression:       numLit(7, &types.Rational{Value: big.NewInt(7)}),
		ReturnParameters: []*ast.VariableDeclaration{r},
	})
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "var_r_1 := convert_t_rational_7_to_t_uint256(", "leave")
}

// ===== Assignment and tuples =====

func TestStorageAssignmentAndRead(t *testing.T) {
	g, layout := newTestGenerator()
	s := stateVar(layout, "count", types.U256, 3, 0)

	err := g.Statement(exprStmt(&ast.Assignment{
		Op:   ast.TokenAssign,
		LHS:  identFor(s, types.U256),
		RHS:  numLit(1, &types.Rational{Value: big.NewInt(1)}),
		Type: types.U256,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "update_storage_value_offset_0_t_uint256(3, ")

	if _, err := g.expr(identFor(s, types.U256)); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	mustContain(t, g.CodeString(), "read_from_storage_offset_0_t_uint256(3)")
}

func TestCompoundAssignmentReadsThenCombines(t *testing.T) {
	g, layout := newTestGenerator()
	s := stateVar(layout, "total", types.U256, 0, 0)
	x := localVar(g, "x", types.U256)

	err := g.Statement(exprStmt(&ast.Assignment{
		Op:   ast.TokenAssignAdd,
		LHS:  identFor(s, types.U256),
		RHS:  identFor(x, types.U256),
		Type: types.U256,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(),
		"read_from_storage_offset_0_t_uint256(0)",
		"checked_add_t_uint256(",
		"update_storage_value_offset_0_t_uint256(0, ")
}

func TestTupleAssignmentSkipsHolesButEvaluatesRHS(t *testing.T) {
	g, _ := newTestGenerator()
	a := localVar(g, "a", types.U256)
	x := localVar(g, "x", types.U256)
	y := localVar(g, "y", types.U256)

	pairType := &types.Tuple{Types: []types.Type{types.U256, types.U256}}
	err := g.Statement(exprStmt(&ast.Assignment{
		Op: ast.TokenAssign,
		LHS: &ast.TupleExpression{
			Components: []ast.Expression{identFor(a, types.U256), nil},
			Type:       pairType,
		},
		RHS: &ast.TupleExpression{
			Components: []ast.Expression{identFor(x, types.U256), identFor(y, types.U256)},
			Type:       pairType,
		},
		Type: pairType,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	out := g.CodeString()
	// Both right-hand components are evaluated; only the first lands in a.
	mustContain(t, out, "var_x_2", "var_y_3", "var_a_1 := ")
}

func TestDeclarationFromTupleComponents(t *testing.T) {
	g, _ := newTestGenerator()
	x := localVar(g, "x", types.U256)

	pairType := &types.Tuple{Types: []types.Type{types.U256, types.Bool}}
	err := g.Statement(&ast.VariableDeclarationStatement{
		Declarations: []*ast.VariableDeclaration{
			{Name: "p", Type: types.U256},
			nil,
		},
		InitialValue: &ast.TupleExpression{
			Components: []ast.Expression{
				identFor(x, types.U256),
				&ast.Literal{Kind: ast.LiteralBool, Value: big.NewInt(1), Type: types.Bool},
			},
			Type: pairType,
		},
	})
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "let var_p_")
}

func TestDeleteStorageZeroesInPlace(t *testing.T) {
	g, layout := newTestGenerator()
	s := stateVar(layout, "count", types.U256, 2, 0)

	err := g.Statement(exprStmt(&ast.UnaryOperation{
		Op:      ast.TokenDelete,
		Prefix:  true,
		Operand: identFor(s, types.U256),
		Type:    types.EmptyTuple,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "storage_set_to_zero_t_uint256(2, 0)")
}

func TestPostfixIncrementYieldsOldValue(t *testing.T) {
	g, _ := newTestGenerator()
	x := localVar(g, "x", types.U256)

	val, err := g.expr(&ast.UnaryOperation{
		Op:      ast.TokenInc,
		Prefix:  false,
		Operand: identFor(x, types.U256),
		Type:    types.U256,
	})
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	out := g.CodeString()
	mustContain(t, out, "increment_t_uint256(")
	// The expression value is the pre-increment read, which is defined
	// before the increment call.
	if !strings.Contains(out, "let "+val.Primary()+" := var_x_1") {
		t.Errorf("postfix value %q is not the old value:\n%s", val.Primary(), out)
	}
}

// ===== Member and index access =====

func TestFixedArrayLengthIsLiteral(t *testing.T) {
	arr := &types.Array{Element: types.U256, Location: types.LocationMemory, Length: 5}
	g, _ := newTestGenerator()
	a := localVar(g, "a", arr)

	err := g.Statement(exprStmt(&ast.MemberAccess{
		Base:   identFor(a, arr),
		Member: "length",
		Type:   types.U256,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), ":= 5")
	mustNotContain(t, g.CodeString(), "mload")
}

func TestMappingAccessDerivesSlot(t *testing.T) {
	mapping := &types.Mapping{Key: types.AddressType, Value: types.U256}
	g, layout := newTestGenerator()
	m := stateVar(layout, "balances", mapping, 4, 0)
	k := localVar(g, "k", types.AddressType)

	err := g.Statement(exprStmt(&ast.IndexAccess{
		Base:  identFor(m, mapping),
		Index: identFor(k, types.AddressType),
		Type:  types.U256,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(),
		"mapping_index_access_"+mapping.Identifier()+"_of_t_address(",
		"read_from_storage_offset_0_t_uint256(")
}

func TestStorageArrayIndexYieldsSlotAndOffset(t *testing.T) {
	arr := &types.Array{Element: types.U256, Location: types.LocationStorage, Dynamic: true}
	g, layout := newTestGenerator()
	a := stateVar(layout, "values", arr, 1, 0)
	i := localVar(g, "i", types.U256)

	err := g.Statement(exprStmt(&ast.IndexAccess{
		Base:  identFor(a, arr),
		Index: identFor(i, types.U256),
		Type:  types.U256,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(),
		"storage_array_index_access_"+arr.Identifier()+"(",
		"read_from_storage_dynamic_t_uint256(")
}

func TestMemoryArrayElementReadLoadsPointer(t *testing.T) {
	inner := &types.Array{Element: types.U256, Location: types.LocationMemory, Dynamic: true}
	arr := &types.Array{Element: inner, Location: types.LocationMemory, Dynamic: true}
	g, _ := newTestGenerator()
	a := localVar(g, "a", arr)
	i := localVar(g, "i", types.U256)

	err := g.Statement(exprStmt(&ast.IndexAccess{
		Base:  identFor(a, arr),
		Index: identFor(i, types.U256),
		Type:  inner,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	// The indexed location holds a pointer to the element, not the element
	// itself, so the read must load it rather than hand out the address.
	mustContain(t, g.CodeString(),
		"mload(memory_array_index_access_"+arr.Identifier()+"(")
}

func TestPushZeroNamesFreshElement(t *testing.T) {
	arr := &types.Array{Element: types.U256, Location: types.LocationStorage, Dynamic: true}
	g, layout := newTestGenerator()
	a := stateVar(layout, "values", arr, 1, 0)

	pushType := &types.Function{Kind: types.FunctionKindArrayPush}
	err := g.Statement(exprStmt(&ast.FunctionCall{
		Callee: &ast.MemberAccess{
			Base:   identFor(a, arr),
			Member: "push",
			Type:   pushType,
		},
		Kind: ast.CallFunction,
		Type: types.U256,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(),
		"array_push_zero_"+arr.Identifier()+"(",
		"read_from_storage_dynamic_t_uint256(")
}

func TestAssignIntoPushedElementWritesOnce(t *testing.T) {
	arr := &types.Array{Element: types.U256, Location: types.LocationStorage, Dynamic: true}
	g, layout := newTestGenerator()
	a := stateVar(layout, "values", arr, 1, 0)
	x := localVar(g, "x", types.U256)

	pushType := &types.Function{Kind: types.FunctionKindArrayPush}
	err := g.Statement(exprStmt(&ast.Assignment{
		Op: ast.TokenAssign,
		LHS: &ast.FunctionCall{
			Callee: &ast.MemberAccess{Base: identFor(a, arr), Member: "push", Type: pushType},
			Kind:   ast.CallFunction,
			Type:   types.U256,
		},
		RHS:  identFor(x, types.U256),
		Type: types.U256,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	out := g.CodeString()
	// The freshly pushed slot is zeroed exactly once; the assignment then
	// writes into it directly without reading or re-zeroing it.
	if n := strings.Count(out, "array_push_zero_"); n != 1 {
		t.Errorf("expected one zero-initializing push, got %d:\n%s", n, out)
	}
	mustContain(t, out, "update_storage_value_dynamic_t_uint256(")
	mustNotContain(t, out, "read_from_storage_dynamic")
}

func TestBlockDifficultyFollowsTargetVersion(t *testing.T) {
	block := &types.Magic{Kind: "block"}
	base := &ast.Identifier{Name: "block", Decl: &ast.MagicDeclaration{Name: "block", Type: block}, Type: block}
	access := &ast.MemberAccess{Base: base, Member: "difficulty", Type: types.U256}

	g, _ := newTestGenerator() // default target is post-merge
	if err := g.Statement(exprStmt(access)); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "prevrandao()")

	old := New(NewContext(intrinsics.Runtime{}, intrinsics.ABI{}, intrinsics.NewLayout(), intrinsics.NewDispatch(), evm.Istanbul))
	if err := old.Statement(exprStmt(access)); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, old.CodeString(), "difficulty()")
	mustNotContain(t, old.CodeString(), "prevrandao")
}

// ===== Calls =====

func TestInternalCallUsesGeneratedName(t *testing.T) {
	g, _ := newTestGenerator()
	fd := &ast.FunctionDeclaration{Name: "helper"}
	fnType := &types.Function{
		Kind:    types.FunctionKindInternal,
		Params:  []types.Type{types.U256},
		Returns: []types.Type{types.U256},
	}
	x := localVar(g, "x", types.U256)

	err := g.Statement(exprStmt(&ast.FunctionCall{
		Callee:    &ast.Identifier{Name: "helper", Decl: fd, Type: fnType},
		Arguments: []ast.Expression{identFor(x, types.U256)},
		Kind:      ast.CallFunction,
		Type:      types.U256,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "fun_helper_1(")
}

func TestRequireWithMessageCallsHelper(t *testing.T) {
	g, _ := newTestGenerator()
	c := localVar(g, "ok", types.Bool)
	msgType := &types.StringLiteral{Value: "no"}
	fnType := &types.Function{Kind: types.FunctionKindRequire}

	err := g.Statement(exprStmt(&ast.FunctionCall{
		Callee: &ast.Identifier{Name: "require", Decl: &ast.MagicDeclaration{Name: "require"}, Type: fnType},
		Arguments: []ast.Expression{
			identFor(c, types.Bool),
			&ast.Literal{Kind: ast.LiteralString, Str: "no", Type: msgType},
		},
		Kind: ast.CallFunction,
		Type: types.EmptyTuple,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "require_helper_"+msgType.Identifier()+"(")
}

func TestKeccakHashesDataArea(t *testing.T) {
	g, _ := newTestGenerator()
	b := localVar(g, "data", types.BytesMemory)
	fnType := &types.Function{Kind: types.FunctionKindKeccak256}

	err := g.Statement(exprStmt(&ast.FunctionCall{
		Callee:    &ast.Identifier{Name: "keccak256", Decl: &ast.MagicDeclaration{Name: "keccak256"}, Type: fnType},
		Arguments: []ast.Expression{identFor(b, types.BytesMemory)},
		Kind:      ast.CallFunction,
		Type:      &types.FixedBytes{N: 32},
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "keccak256(array_dataslot_t_bytes_memory(", "array_length_t_bytes_memory(")
}

func TestEventEmissionBuildsTopicsAndLog(t *testing.T) {
	g, _ := newTestGenerator()
	from := localVar(g, "from", types.AddressType)
	amount := localVar(g, "amount", types.U256)

	hash := new(big.Int).Lsh(big.NewInt(0xabcdef), 200)
	event := &ast.EventDeclaration{
		Name: "Transfer",
		Parameters: []*ast.EventParameter{
			{Name: "from", Type: types.AddressType, Indexed: true},
			{Name: "amount", Type: types.U256},
		},
		SignatureHash: hash,
	}
	fnType := &types.Function{Kind: types.FunctionKindEvent}

	err := g.Statement(exprStmt(&ast.FunctionCall{
		Callee:    &ast.Identifier{Name: "Transfer", Decl: event, Type: fnType},
		Arguments: []ast.Expression{identFor(from, types.AddressType), identFor(amount, types.U256)},
		Kind:      ast.CallFunction,
		Type:      types.EmptyTuple,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(),
		"mload(64)",
		"abi_encode_tuple_t_uint256(",
		"log2(")
}

func TestExternalCallFullSequence(t *testing.T) {
	fnType := &types.Function{
		Kind:       types.FunctionKindExternal,
		Params:     []types.Type{types.U256},
		Returns:    []types.Type{types.U256},
		Mutability: types.MutabilityNonPayable,
	}
	g, _ := newTestGenerator()
	f := localVar(g, "f", fnType)
	x := localVar(g, "x", types.U256)

	err := g.Statement(exprStmt(&ast.FunctionCall{
		Callee:    identFor(f, fnType),
		Arguments: []ast.Expression{identFor(x, types.U256)},
		Kind:      ast.CallFunction,
		Type:      types.U256,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	out := g.CodeString()
	mustContain(t, out,
		"iszero(extcodesize(",
		"mload(64)",
		"shift_left_224(",
		"abi_encode_tuple_t_uint256(add(",
		"call(gas(), ",
		"revert_forward_returndata()",
		"mstore(64, add(",
		"abi_decode_tuple_t_uint256_fromMemory(")

	// The existence check precedes the call, the decode follows it.
	if strings.Index(out, "extcodesize") > strings.Index(out, "call(gas()") {
		t.Errorf("existence check does not precede the call:\n%s", out)
	}
	if strings.Index(out, "abi_decode_tuple") < strings.Index(out, "call(gas()") {
		t.Errorf("decode does not follow the call:\n%s", out)
	}
}

func TestViewCallUsesStaticcall(t *testing.T) {
	fnType := &types.Function{
		Kind:       types.FunctionKindExternal,
		Returns:    []types.Type{types.U256},
		Mutability: types.MutabilityView,
	}
	g, _ := newTestGenerator()
	f := localVar(g, "f", fnType)

	err := g.Statement(exprStmt(&ast.FunctionCall{
		Callee: identFor(f, fnType),
		Kind:   ast.CallFunction,
		Type:   types.U256,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "staticcall(gas(), ")
}

func TestOldTargetReservesValueGasOnly(t *testing.T) {
	fnType := &types.Function{
		Kind:       types.FunctionKindExternal,
		ValueSet:   true,
		Mutability: types.MutabilityPayable,
	}
	g := New(NewContext(intrinsics.Runtime{}, intrinsics.ABI{}, intrinsics.NewLayout(), intrinsics.NewDispatch(), evm.Homestead))
	f := localVar(g, "f", fnType)

	err := g.Statement(exprStmt(&ast.FunctionCall{
		Callee: identFor(f, fnType),
		Kind:   ast.CallFunction,
		Type:   types.EmptyTuple,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	// 40 (call) + 10 (margin) + 9000 (value transfer); the new-account
	// surcharge never applies here because the target's code is checked.
	mustContain(t, g.CodeString(), "call(sub(gas(), 9050), ")
}

func TestBareCallCombinationsFailFast(t *testing.T) {
	bare := &types.Function{Kind: types.FunctionKindBareCall, ArbitraryParams: true}
	g, _ := newTestGenerator()

	// Decoded return values have no defined encoding for a bare call.
	err := g.Statement(exprStmt(&ast.FunctionCall{
		Callee: &ast.Identifier{Name: "target", Type: bare},
		Kind:   ast.CallFunction,
		Type:   types.EmptyTuple,
	}))
	if !errors.IsUnimplemented(err) {
		t.Fatalf("expected unimplemented error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported combination") {
		t.Errorf("diagnostic does not name the combination: %v", err)
	}

	// The raw (success, data) shape is recognized but also rejected, with a
	// distinct message.
	rawType := &types.Tuple{Types: []types.Type{types.Bool, types.BytesMemory}}
	err = g.Statement(exprStmt(&ast.FunctionCall{
		Callee: &ast.Identifier{Name: "target", Type: bare},
		Kind:   ast.CallFunction,
		Type:   rawType,
	}))
	if !errors.IsUnimplemented(err) {
		t.Fatalf("expected unimplemented error, got %v", err)
	}
	if strings.Contains(err.Error(), "unsupported combination") {
		t.Errorf("raw-result diagnostic must differ from the decoded-result one: %v", err)
	}
}

func TestTransferForwardsOnlyStipendAndReverts(t *testing.T) {
	payable := &types.Address{Payable: true}
	fnType := &types.Function{Kind: types.FunctionKindTransfer, Params: []types.Type{types.U256}}
	g, _ := newTestGenerator()
	to := localVar(g, "to", payable)
	amt := localVar(g, "amt", types.U256)

	err := g.Statement(exprStmt(&ast.FunctionCall{
		Callee: &ast.MemberAccess{
			Base:   identFor(to, payable),
			Member: "transfer",
			Type:   fnType,
		},
		Arguments: []ast.Expression{identFor(amt, types.U256)},
		Kind:      ast.CallFunction,
		Type:      types.EmptyTuple,
	}))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(), "call(0, ", "revert_forward_returndata()")
}

// ===== Inline assembly =====

func TestInlineAssemblyRewritesReferences(t *testing.T) {
	g, layout := newTestGenerator()
	s := stateVar(layout, "count", types.U256, 7, 16)
	x := localVar(g, "x", types.U256)

	err := g.Statement(&ast.InlineAssemblyStatement{
		Code: "let tmp := sload(count.slot)\nmstore(0x40, add(tmp, count.offset))\nsstore(0, myHelper(x))\n",
		References: map[string]ast.AsmReference{
			"count.slot":   {Decl: s, Kind: ast.AsmRefSlot},
			"count.offset": {Decl: s, Kind: ast.AsmRefOffset},
			"x":            {Decl: x, Kind: ast.AsmRefValue},
		},
	})
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	out := g.CodeString()
	mustContain(t, out,
		"sload(7)",
		"add(usr$tmp, 16)",
		"usr$myHelper(var_x_1)",
		"mstore(0x40",
	)
	mustNotContain(t, out, "usr$sload", "usr$let", "usr$mstore")
}

func TestInlineAssemblyRejectsBareStateVariable(t *testing.T) {
	g, layout := newTestGenerator()
	s := stateVar(layout, "count", types.U256, 0, 0)

	err := g.Statement(&ast.InlineAssemblyStatement{
		Code: "let a := count\n",
		References: map[string]ast.AsmReference{
			"count": {Decl: s, Kind: ast.AsmRefValue},
		},
	})
	if !errors.IsInvariant(err) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}

// ===== State variable initialization =====

func TestInitializeStateVariableWritesDeclaredSlot(t *testing.T) {
	g, layout := newTestGenerator()
	s := stateVar(layout, "supply", types.U256, 5, 0)
	s.Value = numLit(1000, &types.Rational{Value: big.NewInt(1000)})

	if err := g.InitializeStateVariable(s); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	mustContain(t, g.CodeString(),
		"convert_t_rational_1000_to_t_uint256(",
		"update_storage_value_offset_0_t_uint256(5, ")
}
