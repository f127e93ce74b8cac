package types

import (
	"math/big"
	"testing"
)

func TestComponentDecomposition(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want []Component
	}{
		{"uint256", U256, []Component{ComponentDefault}},
		{"bool", Bool, []Component{ComponentDefault}},
		{"storage array", &Array{Element: U256, Location: LocationStorage, Dynamic: true}, []Component{ComponentSlot}},
		{"memory array", &Array{Element: U256, Location: LocationMemory, Dynamic: true}, []Component{ComponentMemPtr}},
		{"calldata dynamic array", &Array{Element: U256, Location: LocationCalldata, Dynamic: true}, []Component{ComponentOffset, ComponentLength}},
		{"calldata static array", &Array{Element: U256, Location: LocationCalldata, Length: 3}, []Component{ComponentOffset}},
		{"mapping", &Mapping{Key: AddressType, Value: U256}, []Component{ComponentSlot}},
		{"string literal", &StringLiteral{Value: "hi"}, nil},
		{"magic", &Magic{Kind: "msg"}, nil},
		{"internal function", &Function{Kind: FunctionKindInternal}, []Component{ComponentFunctionID}},
		{"external function", &Function{Kind: FunctionKindExternal}, []Component{ComponentAddress, ComponentFunctionID}},
		{"external function with options", &Function{Kind: FunctionKindExternal, GasSet: true, ValueSet: true},
			[]Component{ComponentAddress, ComponentFunctionID, ComponentGas, ComponentValue}},
	}

	for _, tt := range tests {
		got := tt.typ.Components()
		if len(got) != len(tt.want) {
			t.Errorf("%s: Components() = %v, want %v", tt.name, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: component %d = %v, want %v", tt.name, i, got[i], tt.want[i])
			}
		}
	}
}

func TestStackSize(t *testing.T) {
	tup := &Tuple{Types: []Type{U256, nil, &Array{Element: U256, Location: LocationCalldata, Dynamic: true}}}
	if got := StackSize(tup); got != 3 {
		t.Errorf("StackSize(tuple with hole) = %d, want 3", got)
	}
	if got := StackSize(EmptyTuple); got != 0 {
		t.Errorf("StackSize(empty tuple) = %d, want 0", got)
	}
}

func TestEqual(t *testing.T) {
	a := &Array{Element: U256, Location: LocationStorage, Dynamic: true}
	b := &Array{Element: &Integer{Bits: 256}, Location: LocationStorage, Dynamic: true}
	if !Equal(a, b) {
		t.Error("expected structurally identical arrays to be equal")
	}

	c := &Array{Element: U256, Location: LocationMemory, Dynamic: true}
	if Equal(a, c) {
		t.Error("expected arrays in different locations to differ")
	}

	if !Equal(nil, nil) {
		t.Error("expected nil types to be equal")
	}
	if Equal(a, nil) {
		t.Error("expected type and nil to differ")
	}
}

func TestIdentifiers(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{U256, "t_uint256"},
		{&Integer{Bits: 128, Signed: true}, "t_int128"},
		{&Address{Payable: true}, "t_address_payable"},
		{&FixedBytes{N: 4}, "t_bytes4"},
		{&Rational{Value: big.NewInt(-7)}, "t_rational_minus_7"},
		{&Array{Element: U256, Location: LocationStorage, Dynamic: true}, "t_array$_t_uint256_$dyn_storage"},
		{&Array{Element: Byte, Location: LocationMemory, Dynamic: true, ByteArray: true}, "t_bytes_memory"},
		{&Enum{Name: "Color"}, "t_enum$_Color_$"},
	}

	for _, tt := range tests {
		if got := tt.typ.Identifier(); got != tt.want {
			t.Errorf("Identifier() = %q, want %q", got, tt.want)
		}
	}
}

func TestEnumMemberValue(t *testing.T) {
	e := &Enum{Name: "Color", Members: []string{"Red", "Green", "Blue"}}
	if v, ok := e.MemberValue("Green"); !ok || v != 1 {
		t.Errorf("MemberValue(Green) = %d,%v, want 1,true", v, ok)
	}
	if _, ok := e.MemberValue("Mauve"); ok {
		t.Error("expected missing member lookup to fail")
	}
}

func TestIsSigned(t *testing.T) {
	if IsSigned(U256) {
		t.Error("uint256 must not be signed")
	}
	if !IsSigned(&Integer{Bits: 8, Signed: true}) {
		t.Error("int8 must be signed")
	}
	if IsSigned(Bool) {
		t.Error("bool must not be signed")
	}
}
