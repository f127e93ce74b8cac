// Package intrinsics provides the collaborator services the IR generation
// stage calls into: the runtime helper-function name provider, the ABI
// tuple encoder/decoder names, the storage layout table and the dispatch
// identifier table. Helper names are deterministic functions of the types
// involved, so the later function collector can emit each helper exactly
// once per compilation unit.
package intrinsics

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/vesper-lang/vesper/internal/ast"
	"github.com/vesper-lang/vesper/internal/types"
)

// ===== Runtime helper names =====

// Runtime names the runtime helper routines that emitted IR calls into.
type Runtime struct{}

// Conversion resolves the routine converting between two types.
func (Runtime) Conversion(from, to types.Type) string {
	return "convert_" + from.Identifier() + "_to_" + to.Identifier()
}

// Cleanup resolves the value-normalization routine of a type.
func (Runtime) Cleanup(t types.Type) string {
	return "cleanup_" + t.Identifier()
}

// ZeroValue resolves the routine producing a type's zero value.
func (Runtime) ZeroValue(t types.Type) string {
	return "zero_value_" + t.Identifier()
}

// StorageSetToZero resolves the routine zeroing a storage location in place.
func (Runtime) StorageSetToZero(t types.Type) string {
	return "storage_set_to_zero_" + t.Identifier()
}

// UpdateStorageValue resolves the type-aware storage writer. A nil offset
// selects the variant taking the intra-slot offset at run time.
func (Runtime) UpdateStorageValue(t types.Type, offset *int) string {
	if offset != nil {
		return fmt.Sprintf("update_storage_value_offset_%d_%s", *offset, t.Identifier())
	}
	return "update_storage_value_dynamic_" + t.Identifier()
}

// ReadFromStorage resolves the static-offset storage reader.
func (Runtime) ReadFromStorage(t types.Type, offset int) string {
	return fmt.Sprintf("read_from_storage_offset_%d_%s", offset, t.Identifier())
}

// ReadFromStorageDynamic resolves the dynamic-offset storage reader.
func (Runtime) ReadFromStorageDynamic(t types.Type) string {
	return "read_from_storage_dynamic_" + t.Identifier()
}

// ReadFromMemory resolves the typed memory reader.
func (Runtime) ReadFromMemory(t types.Type) string {
	return "read_from_memory_" + t.Identifier()
}

// WriteToMemory resolves the typed memory writer.
func (Runtime) WriteToMemory(t types.Type) string {
	return "write_to_memory_" + t.Identifier()
}

// ReadFromCalldata resolves the typed calldata reader.
func (Runtime) ReadFromCalldata(t types.Type) string {
	return "read_from_calldata_" + t.Identifier()
}

// CheckedOp resolves an overflow-checked arithmetic routine; op is one of
// add, sub, mul, div, mod.
func (Runtime) CheckedOp(op string, t *types.Integer) string {
	return "checked_" + op + "_" + t.Identifier()
}

// CheckedIncrement resolves the overflow-checked increment routine.
func (Runtime) CheckedIncrement(t types.Type) string {
	return "increment_" + t.Identifier()
}

// CheckedDecrement resolves the underflow-checked decrement routine.
func (Runtime) CheckedDecrement(t types.Type) string {
	return "decrement_" + t.Identifier()
}

// CheckedNegate resolves the overflow-checked negation routine.
func (Runtime) CheckedNegate(t *types.Integer) string {
	return "negate_" + t.Identifier()
}

// ArrayLength resolves the length accessor of an array type.
func (Runtime) ArrayLength(t *types.Array) string {
	return "array_length_" + t.Identifier()
}

// ArrayDataArea resolves the data-area address accessor of an array type.
func (Runtime) ArrayDataArea(t *types.Array) string {
	return "array_dataslot_" + t.Identifier()
}

// StorageArrayIndexAccess resolves the (slot, offset) indexing routine of a
// storage array.
func (Runtime) StorageArrayIndexAccess(t *types.Array) string {
	return "storage_array_index_access_" + t.Identifier()
}

// MemoryArrayIndexAccess resolves the flat-address indexing routine of a
// memory array.
func (Runtime) MemoryArrayIndexAccess(t *types.Array) string {
	return "memory_array_index_access_" + t.Identifier()
}

// CalldataArrayIndexAccess resolves the read-only indexing routine of a
// calldata array.
func (Runtime) CalldataArrayIndexAccess(t *types.Array) string {
	return "calldata_array_index_access_" + t.Identifier()
}

// StorageArrayPush resolves the appending push routine.
func (Runtime) StorageArrayPush(t *types.Array) string {
	return "array_push_" + t.Identifier()
}

// StorageArrayPushZero resolves the zero-initializing push routine.
func (Runtime) StorageArrayPushZero(t *types.Array) string {
	return "array_push_zero_" + t.Identifier()
}

// StorageArrayPop resolves the shrinking pop routine.
func (Runtime) StorageArrayPop(t *types.Array) string {
	return "array_pop_" + t.Identifier()
}

// AllocateMemoryArray resolves the dynamic memory-array allocator.
func (Runtime) AllocateMemoryArray(t *types.Array) string {
	return "allocate_memory_array_" + t.Identifier()
}

// MappingIndexAccess resolves the hashing slot derivation of a mapping.
func (Runtime) MappingIndexAccess(t *types.Mapping, key types.Type) string {
	return "mapping_index_access_" + t.Identifier() + "_of_" + key.Identifier()
}

// PackedHash resolves the content-hashing routine over a value list.
func (Runtime) PackedHash(ts []types.Type) string {
	ids := make([]string, len(ts))
	for i, t := range ts {
		ids[i] = t.Identifier()
	}
	return "packed_hashed_" + strings.Join(ids, "_")
}

// RequireOrAssert resolves the shared failure-path routine. The message
// type is nil when no message argument is present.
func (Runtime) RequireOrAssert(isAssert bool, message types.Type) string {
	name := "require_helper"
	if isAssert {
		name = "assert_helper"
	}
	if message != nil {
		name += "_" + message.Identifier()
	}
	return name
}

// ForwardingRevert resolves the routine that re-raises a callee failure
// with the callee's failure data unchanged.
func (Runtime) ForwardingRevert() string {
	return "revert_forward_returndata"
}

// ShiftLeft resolves the fixed-amount left-shift routine.
func (Runtime) ShiftLeft(bits int) string {
	return fmt.Sprintf("shift_left_%d", bits)
}

// ===== ABI tuple coder names =====

// ABI names the tuple encoder/decoder routines over typed value lists.
type ABI struct{}

// TupleEncoder resolves the encoder from source types to target types.
// The emitted routine performs the source-to-target conversions itself, so
// only the target types contribute to the name.
func (ABI) TupleEncoder(source, target []types.Type, library bool) string {
	var b strings.Builder
	b.WriteString("abi_encode_tuple")
	for _, t := range target {
		b.WriteString("_")
		b.WriteString(t.Identifier())
	}
	if library {
		b.WriteString("_library")
	}
	return b.String()
}

// TupleDecoder resolves the decoder producing the given target types.
func (ABI) TupleDecoder(target []types.Type, fromMemory bool) string {
	var b strings.Builder
	b.WriteString("abi_decode_tuple")
	for _, t := range target {
		b.WriteString("_")
		b.WriteString(t.Identifier())
	}
	if fromMemory {
		b.WriteString("_fromMemory")
	}
	return b.String()
}

// ===== Storage layout =====

// SlotOffset is one state variable's storage placement.
type SlotOffset struct {
	Slot   *big.Int
	Offset int
}

// Layout is the per-contract storage placement table, filled by the
// storage-layout phase before lowering starts.
type Layout struct {
	slots map[*ast.VariableDeclaration]SlotOffset
}

// NewLayout creates an empty layout table.
func NewLayout() *Layout {
	return &Layout{slots: make(map[*ast.VariableDeclaration]SlotOffset)}
}

// Assign records the placement of a state variable.
func (l *Layout) Assign(v *ast.VariableDeclaration, slot *big.Int, offset int) {
	l.slots[v] = SlotOffset{Slot: slot, Offset: offset}
}

// Location returns the placement of a state variable.
func (l *Layout) Location(v *ast.VariableDeclaration) (*big.Int, int, bool) {
	so, ok := l.slots[v]
	if !ok {
		return nil, 0, false
	}
	return so.Slot, so.Offset, true
}

// ===== Dispatch identifiers =====

// Dispatch assigns stable identifiers to callables within one compilation
// unit, resolving virtual/overridden bindings upstream of this table.
type Dispatch struct {
	ids  map[*ast.FunctionDeclaration]uint64
	next uint64
}

// NewDispatch creates an empty dispatch table.
func NewDispatch() *Dispatch {
	return &Dispatch{ids: make(map[*ast.FunctionDeclaration]uint64), next: 1}
}

// FunctionID returns the stable identifier of a function, assigning one on
// first use.
func (d *Dispatch) FunctionID(f *ast.FunctionDeclaration) uint64 {
	if id, ok := d.ids[f]; ok {
		return id
	}
	id := d.next
	d.next++
	d.ids[f] = id
	return id
}

// FunctionName returns the generated IR name of a function.
func (d *Dispatch) FunctionName(f *ast.FunctionDeclaration) string {
	return fmt.Sprintf("fun_%s_%d", f.Name, d.FunctionID(f))
}

// InternalDispatch returns the indirect-call trampoline for a given
// parameter/return arity.
func (d *Dispatch) InternalDispatch(nIn, nOut int) string {
	return fmt.Sprintf("dispatch_internal_in_%d_out_%d", nIn, nOut)
}
