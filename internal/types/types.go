// Package types defines the semantic type model consumed by the Vesper IR
// generation stage. The model mirrors what the type checker annotates onto
// the tree: value types (integers, booleans, addresses, fixed byte
// sequences, literals) and reference types (arrays, mappings, structs)
// tagged with a data location. Every type knows how it decomposes into
// named stack components, which drives how many IR variables a value of
// that type occupies.
package types

import (
	"fmt"
	"math/big"
	"strings"
)

// ===== Data locations =====

// DataLocation describes where a reference type's payload lives.
type DataLocation int

const (
	LocationStorage DataLocation = iota
	LocationMemory
	LocationCalldata
)

// String returns the source-level keyword for the location.
func (l DataLocation) String() string {
	switch l {
	case LocationStorage:
		return "storage"
	case LocationMemory:
		return "memory"
	case LocationCalldata:
		return "calldata"
	}
	return "unknown"
}

// ===== Stack components =====

// Component identifies one named stack slot of a value. The set is closed:
// every type decomposes into a fixed sequence drawn from these.
type Component int

const (
	// ComponentDefault is the sole unnamed slot of a scalar value.
	ComponentDefault Component = iota
	// ComponentSlot is the storage slot of a storage reference.
	ComponentSlot
	// ComponentOffset is the data offset of a calldata reference.
	ComponentOffset
	// ComponentLength is the element count of a dynamic calldata reference.
	ComponentLength
	// ComponentMemPtr is the memory address of a memory reference.
	ComponentMemPtr
	// ComponentAddress is the target address of an external function value.
	ComponentAddress
	// ComponentFunctionID is the dispatch identifier of a function value.
	ComponentFunctionID
	// ComponentGas is the explicitly requested gas of a call option.
	ComponentGas
	// ComponentValue is the explicitly attached value of a call option.
	ComponentValue
)

// Suffix returns the name suffix a component contributes to an IR variable.
func (c Component) Suffix() string {
	switch c {
	case ComponentDefault:
		return ""
	case ComponentSlot:
		return "slot"
	case ComponentOffset:
		return "offset"
	case ComponentLength:
		return "length"
	case ComponentMemPtr:
		return "mpos"
	case ComponentAddress:
		return "address"
	case ComponentFunctionID:
		return "functionIdentifier"
	case ComponentGas:
		return "gas"
	case ComponentValue:
		return "value"
	}
	return "unknown"
}

// ===== Type interface =====

// Type is implemented by all semantic types.
type Type interface {
	// String returns the source-level rendering of the type.
	String() string
	// Identifier returns a canonical name usable inside IR identifiers.
	Identifier() string
	// IsValueType reports whether values are copied rather than referenced.
	IsValueType() bool
	// Components returns the fixed stack decomposition of a value.
	Components() []Component

	typeNode() // Marker method to restrict implementations to this package
}

// StackSize returns the number of stack slots a value of t occupies.
func StackSize(t Type) int { return len(t.Components()) }

// Equal reports whether two types are identical.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Identifier() == b.Identifier()
}

// ===== Value types =====

// Integer is a signed or unsigned integer of a fixed bit width.
type Integer struct {
	Bits   int
	Signed bool
}

func (t *Integer) typeNode() {}
func (t *Integer) String() string {
	if t.Signed {
		return fmt.Sprintf("int%d", t.Bits)
	}
	return fmt.Sprintf("uint%d", t.Bits)
}
func (t *Integer) Identifier() string      { return "t_" + t.String() }
func (t *Integer) IsValueType() bool       { return true }
func (t *Integer) Components() []Component { return []Component{ComponentDefault} }

// Boolean is the two-valued truth type.
type Boolean struct{}

func (t *Boolean) typeNode()               {}
func (t *Boolean) String() string          { return "bool" }
func (t *Boolean) Identifier() string      { return "t_bool" }
func (t *Boolean) IsValueType() bool       { return true }
func (t *Boolean) Components() []Component { return []Component{ComponentDefault} }

// Address is an account address, optionally payable.
type Address struct {
	Payable bool
}

func (t *Address) typeNode() {}
func (t *Address) String() string {
	if t.Payable {
		return "address payable"
	}
	return "address"
}
func (t *Address) Identifier() string {
	if t.Payable {
		return "t_address_payable"
	}
	return "t_address"
}
func (t *Address) IsValueType() bool       { return true }
func (t *Address) Components() []Component { return []Component{ComponentDefault} }

// FixedBytes is a byte sequence of static length 1..32.
type FixedBytes struct {
	N int
}

func (t *FixedBytes) typeNode()               {}
func (t *FixedBytes) String() string          { return fmt.Sprintf("bytes%d", t.N) }
func (t *FixedBytes) Identifier() string      { return fmt.Sprintf("t_bytes%d", t.N) }
func (t *FixedBytes) IsValueType() bool       { return true }
func (t *FixedBytes) Components() []Component { return []Component{ComponentDefault} }

// Rational is the compile-time type of a numeric literal.
type Rational struct {
	Value *big.Int
}

func (t *Rational) typeNode()      {}
func (t *Rational) String() string { return fmt.Sprintf("rational(%s)", t.Value) }
func (t *Rational) Identifier() string {
	if t.Value.Sign() < 0 {
		return "t_rational_minus_" + new(big.Int).Neg(t.Value).String()
	}
	return "t_rational_" + t.Value.String()
}
func (t *Rational) IsValueType() bool       { return true }
func (t *Rational) Components() []Component { return []Component{ComponentDefault} }

// StringLiteral is the compile-time type of a string literal. It has no
// stack representation; the payload is materialized during conversion to a
// reference type.
type StringLiteral struct {
	Value string
}

func (t *StringLiteral) typeNode()      {}
func (t *StringLiteral) String() string { return fmt.Sprintf("literal_string %q", t.Value) }
func (t *StringLiteral) Identifier() string {
	return fmt.Sprintf("t_stringliteral_%x", t.Value)
}
func (t *StringLiteral) IsValueType() bool       { return false }
func (t *StringLiteral) Components() []Component { return nil }

// Enum is a user-declared enumeration. Values occupy a single stack slot.
type Enum struct {
	Name    string
	Members []string
}

func (t *Enum) typeNode()               {}
func (t *Enum) String() string          { return "enum " + t.Name }
func (t *Enum) Identifier() string      { return "t_enum$_" + t.Name + "_$" }
func (t *Enum) IsValueType() bool       { return true }
func (t *Enum) Components() []Component { return []Component{ComponentDefault} }

// MemberValue resolves a member name to its ordinal value.
func (t *Enum) MemberValue(name string) (int, bool) {
	for i, m := range t.Members {
		if m == name {
			return i, true
		}
	}
	return 0, false
}

// Contract is the type of a contract instance; on the stack it is the
// instance address.
type Contract struct {
	Name    string
	Super   bool
	Library bool
}

func (t *Contract) typeNode()               {}
func (t *Contract) String() string          { return "contract " + t.Name }
func (t *Contract) Identifier() string      { return "t_contract$_" + t.Name + "_$" }
func (t *Contract) IsValueType() bool       { return true }
func (t *Contract) Components() []Component { return []Component{ComponentDefault} }

// ===== Reference types =====

// Array is a fixed- or dynamically-sized sequence in a data location.
// ByteArray marks the packed `bytes` flavor whose elements are single bytes.
type Array struct {
	Element   Type
	Location  DataLocation
	Length    uint64
	Dynamic   bool
	ByteArray bool
}

func (t *Array) typeNode() {}
func (t *Array) String() string {
	if t.ByteArray {
		return "bytes " + t.Location.String()
	}
	if t.Dynamic {
		return fmt.Sprintf("%s[] %s", t.Element, t.Location)
	}
	return fmt.Sprintf("%s[%d] %s", t.Element, t.Length, t.Location)
}
func (t *Array) Identifier() string {
	if t.ByteArray {
		return "t_bytes_" + t.Location.String()
	}
	length := "dyn"
	if !t.Dynamic {
		length = fmt.Sprintf("%d", t.Length)
	}
	return fmt.Sprintf("t_array$_%s_$%s_%s", t.Element.Identifier(), length, t.Location)
}
func (t *Array) IsValueType() bool { return false }
func (t *Array) Components() []Component {
	switch t.Location {
	case LocationStorage:
		return []Component{ComponentSlot}
	case LocationMemory:
		return []Component{ComponentMemPtr}
	case LocationCalldata:
		if t.Dynamic {
			return []Component{ComponentOffset, ComponentLength}
		}
		return []Component{ComponentOffset}
	}
	return nil
}

// Mapping is a storage-only key/value table addressed by hashing.
type Mapping struct {
	Key   Type
	Value Type
}

func (t *Mapping) typeNode() {}
func (t *Mapping) String() string {
	return fmt.Sprintf("mapping(%s => %s)", t.Key, t.Value)
}
func (t *Mapping) Identifier() string {
	return fmt.Sprintf("t_mapping$_%s_$_%s_$", t.Key.Identifier(), t.Value.Identifier())
}
func (t *Mapping) IsValueType() bool       { return false }
func (t *Mapping) Components() []Component { return []Component{ComponentSlot} }

// Field is one member of a struct type.
type Field struct {
	Name string
	Type Type
}

// Struct is a user-declared aggregate in a data location.
type Struct struct {
	Name     string
	Location DataLocation
	Fields   []Field
}

func (t *Struct) typeNode()      {}
func (t *Struct) String() string { return fmt.Sprintf("struct %s %s", t.Name, t.Location) }
func (t *Struct) Identifier() string {
	return fmt.Sprintf("t_struct$_%s_%s", t.Name, t.Location)
}
func (t *Struct) IsValueType() bool { return false }
func (t *Struct) Components() []Component {
	switch t.Location {
	case LocationStorage:
		return []Component{ComponentSlot}
	case LocationMemory:
		return []Component{ComponentMemPtr}
	case LocationCalldata:
		return []Component{ComponentOffset}
	}
	return nil
}

// ===== Function types =====

// StateMutability orders the mutability guarantees of a callable.
type StateMutability int

const (
	MutabilityPure StateMutability = iota
	MutabilityView
	MutabilityNonPayable
	MutabilityPayable
)

// String returns the source keyword of the mutability.
func (m StateMutability) String() string {
	switch m {
	case MutabilityPure:
		return "pure"
	case MutabilityView:
		return "view"
	case MutabilityNonPayable:
		return "nonpayable"
	case MutabilityPayable:
		return "payable"
	}
	return "unknown"
}

// FunctionKind classifies what calling a function value means.
type FunctionKind int

const (
	FunctionKindInternal FunctionKind = iota
	FunctionKindExternal
	FunctionKindDelegateCall
	FunctionKindBareCall
	FunctionKindBareDelegateCall
	FunctionKindBareStaticCall
	FunctionKindSend
	FunctionKindTransfer
	FunctionKindEvent
	FunctionKindAssert
	FunctionKindRequire
	FunctionKindKeccak256
	FunctionKindECRecover
	FunctionKindObjectCreation
	FunctionKindArrayPush
	FunctionKindArrayPop
)

var functionKindNames = map[FunctionKind]string{
	FunctionKindInternal:         "internal",
	FunctionKindExternal:         "external",
	FunctionKindDelegateCall:     "delegatecall",
	FunctionKindBareCall:         "barecall",
	FunctionKindBareDelegateCall: "baredelegatecall",
	FunctionKindBareStaticCall:   "barestaticcall",
	FunctionKindSend:             "send",
	FunctionKindTransfer:         "transfer",
	FunctionKindEvent:            "event",
	FunctionKindAssert:           "assert",
	FunctionKindRequire:          "require",
	FunctionKindKeccak256:        "keccak256",
	FunctionKindECRecover:        "ecrecover",
	FunctionKindObjectCreation:   "objectcreation",
	FunctionKindArrayPush:        "arraypush",
	FunctionKindArrayPop:         "arraypop",
}

// String returns a stable lowercase name for the kind.
func (k FunctionKind) String() string {
	if name, ok := functionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("functionkind(%d)", int(k))
}

// Function is the type of a callable value.
type Function struct {
	Kind            FunctionKind
	Params          []Type
	ParamNames      []string
	Returns         []Type
	Mutability      StateMutability
	GasSet          bool // a gas option has been attached to the call
	ValueSet        bool // a value option has been attached to the call
	ArbitraryParams bool // accepts any arguments (bare calls)
}

func (t *Function) typeNode() {}
func (t *Function) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
	}
	returns := make([]string, len(t.Returns))
	for i, r := range t.Returns {
		returns[i] = r.String()
	}
	return fmt.Sprintf("function (%s) %s returns (%s)",
		strings.Join(params, ","), t.Kind, strings.Join(returns, ","))
}
func (t *Function) Identifier() string {
	var b strings.Builder
	b.WriteString("t_function_")
	b.WriteString(t.Kind.String())
	b.WriteString("$_")
	for _, p := range t.Params {
		b.WriteString(p.Identifier())
		b.WriteString("_$")
	}
	b.WriteString("returns$_")
	for _, r := range t.Returns {
		b.WriteString(r.Identifier())
		b.WriteString("_$")
	}
	if t.GasSet {
		b.WriteString("gas_$")
	}
	if t.ValueSet {
		b.WriteString("value_$")
	}
	return b.String()
}
func (t *Function) IsValueType() bool { return true }

// IsBareCall reports whether the kind is one of the low-level bare calls.
func (t *Function) IsBareCall() bool {
	switch t.Kind {
	case FunctionKindBareCall, FunctionKindBareDelegateCall, FunctionKindBareStaticCall:
		return true
	}
	return false
}

func (t *Function) Components() []Component {
	var comps []Component
	switch t.Kind {
	case FunctionKindInternal:
		comps = []Component{ComponentFunctionID}
	case FunctionKindExternal, FunctionKindDelegateCall:
		comps = []Component{ComponentAddress, ComponentFunctionID}
	case FunctionKindBareCall, FunctionKindBareDelegateCall, FunctionKindBareStaticCall,
		FunctionKindSend, FunctionKindTransfer:
		comps = []Component{ComponentAddress}
	case FunctionKindArrayPush, FunctionKindArrayPop:
		comps = []Component{ComponentSlot}
	default:
		// Events and value-less builtins carry no stack representation.
		return nil
	}
	if t.GasSet {
		comps = append(comps, ComponentGas)
	}
	if t.ValueSet {
		comps = append(comps, ComponentValue)
	}
	return comps
}

// ===== Compiler-internal types =====

// Magic is the type of an environment namespace such as msg, block or tx.
type Magic struct {
	Kind string
}

func (t *Magic) typeNode()               {}
func (t *Magic) String() string          { return t.Kind }
func (t *Magic) Identifier() string      { return "t_magic_" + t.Kind }
func (t *Magic) IsValueType() bool       { return false }
func (t *Magic) Components() []Component { return nil }

// TypeRef is the type of an expression that denotes a type, such as the
// callee of an explicit conversion.
type TypeRef struct {
	Referenced Type
}

func (t *TypeRef) typeNode()      {}
func (t *TypeRef) String() string { return "type(" + t.Referenced.String() + ")" }
func (t *TypeRef) Identifier() string {
	return "t_type$_" + t.Referenced.Identifier() + "_$"
}
func (t *TypeRef) IsValueType() bool       { return false }
func (t *TypeRef) Components() []Component { return nil }

// Tuple is an ordered collection of types; nil entries are holes.
type Tuple struct {
	Types []Type
}

func (t *Tuple) typeNode() {}
func (t *Tuple) String() string {
	parts := make([]string, len(t.Types))
	for i, c := range t.Types {
		if c == nil {
			parts[i] = "_"
		} else {
			parts[i] = c.String()
		}
	}
	return "tuple(" + strings.Join(parts, ",") + ")"
}
func (t *Tuple) Identifier() string {
	var b strings.Builder
	b.WriteString("t_tuple$_")
	for _, c := range t.Types {
		if c == nil {
			b.WriteString("hole_$")
		} else {
			b.WriteString(c.Identifier())
			b.WriteString("_$")
		}
	}
	return b.String()
}
func (t *Tuple) IsValueType() bool { return false }
func (t *Tuple) Components() []Component {
	var comps []Component
	for _, c := range t.Types {
		if c != nil {
			comps = append(comps, c.Components()...)
		}
	}
	return comps
}

// ===== Common singletons =====

var (
	// U256 is the word type of the target machine.
	U256 = &Integer{Bits: 256}
	// Bool is the shared boolean instance.
	Bool = &Boolean{}
	// Byte is a single fixed byte.
	Byte = &FixedBytes{N: 1}
	// AddressType is the shared non-payable address instance.
	AddressType = &Address{}
	// EmptyTuple is the type of expressions that yield nothing.
	EmptyTuple = &Tuple{}
	// BytesMemory is the canonical memory byte-array type.
	BytesMemory = &Array{Element: Byte, Location: LocationMemory, Dynamic: true, ByteArray: true}
)

// IsSigned reports whether t is a signed integer type.
func IsSigned(t Type) bool {
	it, ok := t.(*Integer)
	return ok && it.Signed
}
