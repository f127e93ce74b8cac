// Package irgen translates fully type-checked, fully resolved contract
// trees into the stack-oriented IR defined by the ir package. It covers
// statements and everything below: expressions, assignable locations,
// internal/external/builtin call encoding and embedded low-level blocks.
// Declaration-level scaffolding (function prologues, dispatch tables,
// contract bootstrap) is produced elsewhere; this package only assumes the
// collaborator services declared here.
package irgen

import (
	"fmt"
	"math/big"

	"github.com/vesper-lang/vesper/internal/ast"
	"github.com/vesper-lang/vesper/internal/evm"
	"github.com/vesper-lang/vesper/internal/types"
)

// FreeMemoryPointer is the fixed memory word holding the allocation cursor.
const FreeMemoryPointer = 0x40

// RuntimeLib resolves (type-directed) runtime helper routines to the names
// emitted code calls. The routines themselves are generated by the function
// collector of a later phase.
type RuntimeLib interface {
	Conversion(from, to types.Type) string
	Cleanup(t types.Type) string
	ZeroValue(t types.Type) string
	StorageSetToZero(t types.Type) string
	UpdateStorageValue(t types.Type, offset *int) string
	ReadFromStorage(t types.Type, offset int) string
	ReadFromStorageDynamic(t types.Type) string
	ReadFromMemory(t types.Type) string
	WriteToMemory(t types.Type) string
	ReadFromCalldata(t types.Type) string
	CheckedOp(op string, t *types.Integer) string
	CheckedIncrement(t types.Type) string
	CheckedDecrement(t types.Type) string
	CheckedNegate(t *types.Integer) string
	ArrayLength(t *types.Array) string
	ArrayDataArea(t *types.Array) string
	StorageArrayIndexAccess(t *types.Array) string
	MemoryArrayIndexAccess(t *types.Array) string
	CalldataArrayIndexAccess(t *types.Array) string
	StorageArrayPush(t *types.Array) string
	StorageArrayPushZero(t *types.Array) string
	StorageArrayPop(t *types.Array) string
	AllocateMemoryArray(t *types.Array) string
	MappingIndexAccess(t *types.Mapping, key types.Type) string
	PackedHash(ts []types.Type) string
	RequireOrAssert(isAssert bool, message types.Type) string
	ForwardingRevert() string
	ShiftLeft(bits int) string
}

// ABICoder resolves tuple encoder/decoder routines over typed value lists.
type ABICoder interface {
	TupleEncoder(source, target []types.Type, library bool) string
	TupleDecoder(target []types.Type, fromMemory bool) string
}

// StorageLayout maps a state variable to its (slot, bit-offset) placement.
type StorageLayout interface {
	Location(v *ast.VariableDeclaration) (*big.Int, int, bool)
}

// DispatchTable maps callables to stable dispatch identifiers, with
// virtual/overridden bindings already resolved.
type DispatchTable interface {
	FunctionID(f *ast.FunctionDeclaration) uint64
	FunctionName(f *ast.FunctionDeclaration) string
	InternalDispatch(nIn, nOut int) string
}

// Context is the per-compilation-unit generation state shared by all
// function-body generators of one unit. It is single-writer: only the
// traversal owning it may mutate the counters and tables.
type Context struct {
	Runtime  RuntimeLib
	ABI      ABICoder
	Layout   StorageLayout
	Dispatch DispatchTable
	EVM      evm.Version

	varCounter int
	localSeq   int
	locals     map[*ast.VariableDeclaration]Value
}

// NewContext creates a generation context over the collaborator services.
func NewContext(rt RuntimeLib, abi ABICoder, layout StorageLayout, dispatch DispatchTable, version evm.Version) *Context {
	return &Context{
		Runtime:  rt,
		ABI:      abi,
		Layout:   layout,
		Dispatch: dispatch,
		EVM:      version,
		locals:   make(map[*ast.VariableDeclaration]Value),
	}
}

// NewVar returns a fresh IR variable name, unique within the unit.
func (c *Context) NewVar() string {
	c.varCounter++
	return fmt.Sprintf("_%d", c.varCounter)
}

// AddLocalVariable registers a local declaration and returns its value.
func (c *Context) AddLocalVariable(v *ast.VariableDeclaration) Value {
	c.localSeq++
	val := NewValue(fmt.Sprintf("var_%s_%d", v.Name, c.localSeq), v.Type)
	c.locals[v] = val
	return val
}

// LocalVariable returns the value bound to a previously added local.
func (c *Context) LocalVariable(v *ast.VariableDeclaration) (Value, bool) {
	val, ok := c.locals[v]
	return val, ok
}
