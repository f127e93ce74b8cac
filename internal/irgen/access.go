package irgen

import (
	"math/big"

	"github.com/vesper-lang/vesper/internal/ast"
	"github.com/vesper-lang/vesper/internal/errors"
	"github.com/vesper-lang/vesper/internal/ir"
	"github.com/vesper-lang/vesper/internal/types"
)

// ===== Member access =====

func (g *Generator) memberAccessExpr(n *ast.MemberAccess, wantLValue bool) (operand, error) {
	switch bt := n.Base.ExprType().(type) {
	case *types.Magic:
		return g.requireValue(wantLValue, n, func() (Value, error) { return g.magicMember(n, bt) })
	case *types.Contract:
		return g.requireValue(wantLValue, n, func() (Value, error) { return g.contractMember(n, bt) })
	case *types.Address:
		return g.requireValue(wantLValue, n, func() (Value, error) { return g.addressMember(n, bt) })
	case *types.Array:
		return g.arrayMember(n, bt, wantLValue)
	case *types.FixedBytes:
		return g.requireValue(wantLValue, n, func() (Value, error) {
			if n.Member != "length" {
				return Value{}, errors.Invariantf("unknown fixed-bytes member %q", n.Member)
			}
			if _, err := g.expr(n.Base); err != nil {
				return Value{}, err
			}
			return g.defineCall(n.Type, ir.Uint(uint64(bt.N))), nil
		})
	case *types.Struct:
		return g.structMember(n, bt, wantLValue)
	case *types.TypeRef:
		return g.requireValue(wantLValue, n, func() (Value, error) { return g.typeMember(n, bt) })
	case *types.Function:
		return operand{}, errors.Unimplementedf("function member %q not yet implemented", n.Member)
	default:
		return operand{}, errors.Invariantf("member access on type %s", n.Base.ExprType())
	}
}

func (g *Generator) magicMember(n *ast.MemberAccess, magic *types.Magic) (Value, error) {
	if _, err := g.expr(n.Base); err != nil {
		return Value{}, err
	}
	if magic.Kind == "abi" {
		// abi.* members only shape the call expression around them; they
		// carry no value of their own.
		return g.newTemp(n.Type), nil
	}
	switch magic.Kind + "." + n.Member {
	case "msg.sender":
		return g.defineCall(n.Type, ir.FnCall("caller")), nil
	case "msg.value":
		return g.defineCall(n.Type, ir.FnCall("callvalue")), nil
	case "msg.sig":
		// The selector is the high 4 bytes of the first calldata word.
		mask := new(big.Int).Lsh(big.NewInt(0xffffffff), 224)
		return g.defineCall(n.Type,
			ir.FnCall("and", ir.FnCall("calldataload", &ir.Lit{Value: "0"}), ir.Num(mask))), nil
	case "msg.data":
		result := g.newTemp(n.Type)
		g.emit(&ir.VarDecl{Names: []string{result.Name(types.ComponentOffset)}, Value: &ir.Lit{Value: "0"}})
		g.emit(&ir.VarDecl{Names: []string{result.Name(types.ComponentLength)}, Value: ir.FnCall("calldatasize")})
		return result, nil
	case "msg.gas":
		return Value{}, errors.Invariantf("msg.gas has been removed, use the gas builtin")
	case "tx.origin":
		return g.defineCall(n.Type, ir.FnCall("origin")), nil
	case "tx.gasprice":
		return g.defineCall(n.Type, ir.FnCall("gasprice")), nil
	case "block.coinbase":
		return g.defineCall(n.Type, ir.FnCall("coinbase")), nil
	case "block.timestamp":
		return g.defineCall(n.Type, ir.FnCall("timestamp")), nil
	case "block.number":
		return g.defineCall(n.Type, ir.FnCall("number")), nil
	case "block.gaslimit":
		return g.defineCall(n.Type, ir.FnCall("gaslimit")), nil
	case "block.chainid":
		return g.defineCall(n.Type, ir.FnCall("chainid")), nil
	case "block.basefee":
		return g.defineCall(n.Type, ir.FnCall("basefee")), nil
	case "block.difficulty":
		// Post-merge targets alias the old name onto the randomness beacon.
		if g.ctx.EVM.HasPrevRandao() {
			return g.defineCall(n.Type, ir.FnCall("prevrandao")), nil
		}
		return g.defineCall(n.Type, ir.FnCall("difficulty")), nil
	case "block.prevrandao":
		if !g.ctx.EVM.HasPrevRandao() {
			return Value{}, errors.Invariantf("block.prevrandao requires a post-merge EVM version, targeting %s", g.ctx.EVM)
		}
		return g.defineCall(n.Type, ir.FnCall("prevrandao")), nil
	case "block.blockhash":
		return Value{}, errors.Invariantf("block.blockhash has been removed, use the blockhash builtin")
	default:
		return Value{}, errors.Invariantf("unknown member %s.%s", magic.Kind, n.Member)
	}
}

func (g *Generator) contractMember(n *ast.MemberAccess, contract *types.Contract) (Value, error) {
	if contract.Super {
		return Value{}, errors.Unimplementedf("super calls not yet implemented")
	}
	base, err := g.expr(n.Base)
	if err != nil {
		return Value{}, err
	}
	fd, ok := n.Decl.(*ast.FunctionDeclaration)
	if !ok {
		return Value{}, errors.Unimplementedf("external accessor for member %q not yet implemented", n.Member)
	}
	// An external function reference pairs the instance address with the
	// callee's ABI selector.
	result := g.newTemp(n.Type)
	g.emit(&ir.VarDecl{Names: []string{result.Name(types.ComponentAddress)}, Value: ir.Id(base.Primary())})
	g.emit(&ir.VarDecl{Names: []string{result.Name(types.ComponentFunctionID)}, Value: ir.Uint(uint64(fd.Selector))})
	return result, nil
}

func (g *Generator) addressMember(n *ast.MemberAccess, addr *types.Address) (Value, error) {
	base, err := g.expr(n.Base)
	if err != nil {
		return Value{}, err
	}
	switch n.Member {
	case "balance":
		return g.defineCall(n.Type, ir.FnCall("balance", ir.Id(base.Primary()))), nil
	case "codehash":
		return g.defineCall(n.Type, ir.FnCall("extcodehash", ir.Id(base.Primary()))), nil
	case "send", "transfer":
		if !addr.Payable {
			return Value{}, errors.Invariantf("%q requires a payable address", n.Member)
		}
		return g.bindCallTarget(n.Type, base), nil
	case "call", "delegatecall", "staticcall":
		return g.bindCallTarget(n.Type, base), nil
	case "code":
		return Value{}, errors.Unimplementedf("address.code not yet implemented")
	default:
		return Value{}, errors.Invariantf("unknown address member %q", n.Member)
	}
}

// bindCallTarget builds a function value whose address component is the
// base address; further components are attached by call options upstream.
func (g *Generator) bindCallTarget(t types.Type, base Value) Value {
	result := g.newTemp(t)
	g.emit(&ir.VarDecl{Names: []string{result.Name(types.ComponentAddress)}, Value: ir.Id(base.Primary())})
	return result
}

func (g *Generator) arrayMember(n *ast.MemberAccess, arrayType *types.Array, wantLValue bool) (operand, error) {
	switch n.Member {
	case "length":
		return g.requireValue(wantLValue, n, func() (Value, error) {
			base, err := g.expr(n.Base)
			if err != nil {
				return Value{}, err
			}
			if !arrayType.Dynamic {
				// Static lengths never touch the data; they lower to the
				// literal element count.
				return g.defineCall(n.Type, ir.Uint(arrayType.Length)), nil
			}
			switch arrayType.Location {
			case types.LocationCalldata:
				return g.defineCall(n.Type, ir.Id(base.Name(types.ComponentLength))), nil
			case types.LocationStorage:
				return g.defineCall(n.Type,
					ir.FnCall(g.ctx.Runtime.ArrayLength(arrayType), ir.Id(base.Primary()))), nil
			case types.LocationMemory:
				return g.defineCall(n.Type, ir.FnCall("mload", ir.Id(base.Primary()))), nil
			}
			return Value{}, errors.Invariantf("array in unknown location %s", arrayType.Location)
		})
	case "push", "pop":
		return g.requireValue(wantLValue, n, func() (Value, error) {
			if arrayType.Location != types.LocationStorage {
				return Value{}, errors.Invariantf("%q on %s array, expected storage", n.Member, arrayType.Location)
			}
			base, err := g.expr(n.Base)
			if err != nil {
				return Value{}, err
			}
			// The bound function value carries the array's slot; the call
			// lowering passes it to the push/pop helper.
			result := g.newTemp(n.Type)
			g.emit(&ir.VarDecl{
				Names: []string{result.Name(types.ComponentSlot)},
				Value: ir.Id(base.Name(types.ComponentSlot)),
			})
			return result, nil
		})
	default:
		return operand{}, errors.Invariantf("unknown array member %q", n.Member)
	}
}

func (g *Generator) structMember(n *ast.MemberAccess, structType *types.Struct, wantLValue bool) (operand, error) {
	if structType.Location != types.LocationMemory {
		return operand{}, errors.Unimplementedf("%s struct member access not yet implemented", structType.Location)
	}
	base, err := g.expr(n.Base)
	if err != nil {
		return operand{}, err
	}
	for i, field := range structType.Fields {
		if field.Name != n.Member {
			continue
		}
		// Memory structs lay every field out as one head word.
		return g.establish(&MemoryLValue{
			Typ:     field.Type,
			Address: ir.FnCall("add", ir.Id(base.Primary()), ir.Uint(uint64(32*i))),
		}, wantLValue)
	}
	return operand{}, errors.Invariantf("struct %s has no member %q", structType.Name, n.Member)
}

func (g *Generator) typeMember(n *ast.MemberAccess, ref *types.TypeRef) (Value, error) {
	if _, err := g.expr(n.Base); err != nil {
		return Value{}, err
	}
	switch rt := ref.Referenced.(type) {
	case *types.Enum:
		ordinal, ok := rt.MemberValue(n.Member)
		if !ok {
			return Value{}, errors.Invariantf("enum %s has no member %q", rt.Name, n.Member)
		}
		return g.defineCall(n.Type, ir.Uint(uint64(ordinal))), nil
	case *types.Contract:
		return Value{}, errors.Unimplementedf("type member %q of contract types not yet implemented", n.Member)
	default:
		return Value{}, errors.Invariantf("member %q on type expression %s", n.Member, ref.Referenced)
	}
}

// ===== Index access =====

func (g *Generator) indexAccess(n *ast.IndexAccess, wantLValue bool) (operand, error) {
	switch bt := n.Base.ExprType().(type) {
	case *types.Mapping:
		return g.mappingIndexAccess(n, bt, wantLValue)
	case *types.Array:
		return g.arrayIndexAccess(n, bt, wantLValue)
	case *types.FixedBytes:
		return operand{}, errors.Unimplementedf("indexing fixed byte sequences not yet implemented")
	case *types.TypeRef:
		// A lone array type expression, e.g. as a conversion callee.
		return g.requireValue(wantLValue, n, func() (Value, error) { return g.newTemp(n.Type), nil })
	default:
		return operand{}, errors.Invariantf("index access on type %s", n.Base.ExprType())
	}
}

func (g *Generator) mappingIndexAccess(n *ast.IndexAccess, mapType *types.Mapping, wantLValue bool) (operand, error) {
	if n.Index == nil {
		return operand{}, errors.Invariantf("mapping access without a key")
	}
	base, err := g.expr(n.Base)
	if err != nil {
		return operand{}, err
	}
	key, err := g.expr(n.Index)
	if err != nil {
		return operand{}, err
	}
	keyType := n.Index.ExprType()
	if types.StackSize(keyType) > 1 {
		return operand{}, errors.Invariantf("mapping key of type %s occupies more than one slot", keyType)
	}

	// The helper is keyed by the actual key type and performs the
	// conversion to the declared key type itself.
	args := append(base.Idents(), key.Idents()...)
	slot := g.ctx.NewVar()
	g.emit(&ir.VarDecl{
		Names: []string{slot},
		Value: ir.FnCall(g.ctx.Runtime.MappingIndexAccess(mapType, keyType), args...),
	})
	return g.establish(&StorageLValue{Typ: n.Type, Slot: ir.Id(slot)}, wantLValue)
}

func (g *Generator) arrayIndexAccess(n *ast.IndexAccess, arrayType *types.Array, wantLValue bool) (operand, error) {
	if n.Index == nil {
		return operand{}, errors.Invariantf("array access without an index")
	}
	base, err := g.expr(n.Base)
	if err != nil {
		return operand{}, err
	}
	index, err := g.expr(n.Index)
	if err != nil {
		return operand{}, err
	}

	switch arrayType.Location {
	case types.LocationStorage:
		slot, offset := g.ctx.NewVar(), g.ctx.NewVar()
		g.emit(&ir.VarDecl{
			Names: []string{slot, offset},
			Value: ir.FnCall(g.ctx.Runtime.StorageArrayIndexAccess(arrayType),
				ir.Id(base.Name(types.ComponentSlot)), ir.Id(index.Primary())),
		})
		return g.establish(&StorageLValue{
			Typ:    n.Type,
			Slot:   ir.Id(slot),
			Offset: StorageOffset{Dynamic: ir.Id(offset)},
		}, wantLValue)

	case types.LocationMemory:
		indexExpr, err := g.asSingleArg(index, types.U256)
		if err != nil {
			return operand{}, err
		}
		addr := ir.FnCall(g.ctx.Runtime.MemoryArrayIndexAccess(arrayType),
			ir.Id(base.Primary()), indexExpr)
		return g.establish(&MemoryLValue{
			Typ:              arrayType.Element,
			Address:          addr,
			ByteArrayElement: arrayType.ByteArray,
		}, wantLValue)

	case types.LocationCalldata:
		if wantLValue {
			return operand{}, errors.Invariantf("calldata locations are read-only")
		}
		indexExpr, err := g.asSingleArg(index, types.U256)
		if err != nil {
			return operand{}, err
		}
		access := ir.FnCall(g.ctx.Runtime.CalldataArrayIndexAccess(arrayType),
			append(base.Idents(), indexExpr)...)
		switch {
		case arrayType.ByteArray:
			// The element byte sits at the top of the loaded word.
			addr := g.defineCall(types.U256, access)
			return operand{value: g.defineCall(n.Type,
				ir.FnCall(g.ctx.Runtime.Cleanup(arrayType.Element),
					ir.FnCall("calldataload", ir.Id(addr.Primary()))))}, nil
		case arrayType.Element.IsValueType():
			addr := g.defineCall(types.U256, access)
			return operand{value: g.defineCall(n.Type,
				ir.FnCall(g.ctx.Runtime.ReadFromCalldata(arrayType.Element), ir.Id(addr.Primary())))}, nil
		default:
			// Reference elements stay in calldata; the helper yields their
			// components directly.
			return operand{value: g.defineCall(arrayType.Element, access)}, nil
		}
	}
	return operand{}, errors.Invariantf("array in unknown location %s", arrayType.Location)
}
