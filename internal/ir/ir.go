// Package ir defines the structured, stack-oriented intermediate
// representation emitted by the lowering stage. Statements are appended to
// a Block as typed nodes and serialized exactly once at the end, so no
// string substitution happens during lowering. The textual form uses
// let-bindings, switch/if/for control flow and function-call expressions
// over the target machine's builtin operations.
package ir

import (
	"math/big"
	"strings"
)

// ===== Expressions =====

// Expr is implemented by all IR expressions.
type Expr interface {
	exprNode()
	String() string
}

// Ident names an IR variable.
type Ident struct {
	Name string
}

func (e *Ident) exprNode()      {}
func (e *Ident) String() string { return e.Name }

// Lit is a literal value in canonical textual form.
type Lit struct {
	Value string
}

func (e *Lit) exprNode()      {}
func (e *Lit) String() string { return e.Value }

// Call applies a builtin or generated function to arguments.
type Call struct {
	Func string
	Args []Expr
}

func (e *Call) exprNode() {}
func (e *Call) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Func + "(" + strings.Join(args, ", ") + ")"
}

// Id is a shorthand constructor for identifiers.
func Id(name string) *Ident { return &Ident{Name: name} }

// Num renders an unsigned integer literal: small values in decimal, large
// ones in compact hexadecimal.
func Num(v *big.Int) *Lit {
	if v.Sign() >= 0 && v.BitLen() <= 16 {
		return &Lit{Value: v.String()}
	}
	if v.Sign() < 0 {
		return &Lit{Value: v.String()}
	}
	return &Lit{Value: "0x" + v.Text(16)}
}

// Uint renders a native unsigned integer literal.
func Uint(v uint64) *Lit { return Num(new(big.Int).SetUint64(v)) }

// FnCall is a shorthand constructor for calls.
func FnCall(fn string, args ...Expr) *Call { return &Call{Func: fn, Args: args} }

// ===== Statements =====

// Stmt is implemented by all IR statements.
type Stmt interface {
	stmtNode()
	writeTo(b *strings.Builder, indent int)
}

func writeIndent(b *strings.Builder, indent int) {
	for i := 0; i < indent; i++ {
		b.WriteString("    ")
	}
}

// VarDecl introduces fresh IR variables, optionally bound to a value.
type VarDecl struct {
	Names []string
	Value Expr // Optional
}

func (s *VarDecl) stmtNode() {}
func (s *VarDecl) writeTo(b *strings.Builder, indent int) {
	writeIndent(b, indent)
	b.WriteString("let ")
	b.WriteString(strings.Join(s.Names, ", "))
	if s.Value != nil {
		b.WriteString(" := ")
		b.WriteString(s.Value.String())
	}
	b.WriteString("\n")
}

// Assign rebinds existing IR variables.
type Assign struct {
	Names []string
	Value Expr
}

func (s *Assign) stmtNode() {}
func (s *Assign) writeTo(b *strings.Builder, indent int) {
	writeIndent(b, indent)
	b.WriteString(strings.Join(s.Names, ", "))
	b.WriteString(" := ")
	b.WriteString(s.Value.String())
	b.WriteString("\n")
}

// ExprStmt evaluates an expression for its effects.
type ExprStmt struct {
	X Expr
}

func (s *ExprStmt) stmtNode() {}
func (s *ExprStmt) writeTo(b *strings.Builder, indent int) {
	writeIndent(b, indent)
	b.WriteString(s.X.String())
	b.WriteString("\n")
}

// Block is an ordered, append-only statement sequence.
type Block struct {
	Stmts []Stmt
}

func (s *Block) stmtNode() {}

// Add appends statements to the block.
func (s *Block) Add(stmts ...Stmt) { s.Stmts = append(s.Stmts, stmts...) }

func (s *Block) writeTo(b *strings.Builder, indent int) {
	for _, st := range s.Stmts {
		st.writeTo(b, indent)
	}
}

// String serializes the block without enclosing braces, one statement per
// line. This is the single serialization point of a lowered fragment.
func (s *Block) String() string {
	var b strings.Builder
	s.writeTo(&b, 0)
	return b.String()
}

func writeBracedBlock(b *strings.Builder, indent int, body *Block) {
	if body == nil || len(body.Stmts) == 0 {
		b.WriteString("{ }")
		return
	}
	b.WriteString("{\n")
	body.writeTo(b, indent+1)
	writeIndent(b, indent)
	b.WriteString("}")
}

// If runs Body when Cond is nonzero.
type If struct {
	Cond Expr
	Body *Block
}

func (s *If) stmtNode() {}
func (s *If) writeTo(b *strings.Builder, indent int) {
	writeIndent(b, indent)
	b.WriteString("if ")
	b.WriteString(s.Cond.String())
	b.WriteString(" ")
	writeBracedBlock(b, indent, s.Body)
	b.WriteString("\n")
}

// SwitchCase is one arm of a Switch; a nil Value marks the default arm.
type SwitchCase struct {
	Value *Lit
	Body  *Block
}

// Switch dispatches on a value over mutually exclusive arms.
type Switch struct {
	Cond  Expr
	Cases []SwitchCase
}

func (s *Switch) stmtNode() {}
func (s *Switch) writeTo(b *strings.Builder, indent int) {
	writeIndent(b, indent)
	b.WriteString("switch ")
	b.WriteString(s.Cond.String())
	b.WriteString("\n")
	for _, c := range s.Cases {
		writeIndent(b, indent)
		if c.Value != nil {
			b.WriteString("case ")
			b.WriteString(c.Value.String())
			b.WriteString(" ")
		} else {
			b.WriteString("default ")
		}
		writeBracedBlock(b, indent, c.Body)
		b.WriteString("\n")
	}
}

// For is the loop form: Init runs once, Cond is tested before each
// iteration, Post runs after each body execution.
type For struct {
	Init *Block
	Cond Expr
	Post *Block
	Body *Block
}

func (s *For) stmtNode() {}
func (s *For) writeTo(b *strings.Builder, indent int) {
	writeIndent(b, indent)
	b.WriteString("for ")
	writeBracedBlock(b, indent, s.Init)
	b.WriteString(" ")
	b.WriteString(s.Cond.String())
	b.WriteString(" ")
	writeBracedBlock(b, indent, s.Post)
	b.WriteString("\n")
	writeIndent(b, indent)
	writeBracedBlock(b, indent, s.Body)
	b.WriteString("\n")
}

// Break exits the innermost loop.
type Break struct{}

func (s *Break) stmtNode() {}
func (s *Break) writeTo(b *strings.Builder, indent int) {
	writeIndent(b, indent)
	b.WriteString("break\n")
}

// Continue advances the innermost loop.
type Continue struct{}

func (s *Continue) stmtNode() {}
func (s *Continue) writeTo(b *strings.Builder, indent int) {
	writeIndent(b, indent)
	b.WriteString("continue\n")
}

// Leave exits the current function.
type Leave struct{}

func (s *Leave) stmtNode() {}
func (s *Leave) writeTo(b *strings.Builder, indent int) {
	writeIndent(b, indent)
	b.WriteString("leave\n")
}

// Verbatim splices pre-rendered code, used for rewritten inline assembly.
type Verbatim struct {
	Text string
}

func (s *Verbatim) stmtNode() {}
func (s *Verbatim) writeTo(b *strings.Builder, indent int) {
	for _, line := range strings.Split(strings.TrimRight(s.Text, "\n"), "\n") {
		writeIndent(b, indent)
		b.WriteString(line)
		b.WriteString("\n")
	}
}

// ===== Dialect builtins =====

var builtins = map[string]bool{
	"stop": true, "add": true, "sub": true, "mul": true, "div": true,
	"sdiv": true, "mod": true, "smod": true, "exp": true, "not": true,
	"lt": true, "gt": true, "slt": true, "sgt": true, "eq": true,
	"iszero": true, "and": true, "or": true, "xor": true, "byte": true,
	"shl": true, "shr": true, "sar": true, "addmod": true, "mulmod": true,
	"signextend": true, "keccak256": true, "pop": true,
	"mload": true, "mstore": true, "mstore8": true, "msize": true,
	"sload": true, "sstore": true, "tload": true, "tstore": true,
	"gas": true, "address": true, "balance": true, "selfbalance": true,
	"caller": true, "callvalue": true,
	"calldataload": true, "calldatasize": true, "calldatacopy": true,
	"codesize": true, "codecopy": true,
	"extcodesize": true, "extcodecopy": true, "extcodehash": true,
	"returndatasize": true, "returndatacopy": true,
	"create": true, "create2": true,
	"call": true, "callcode": true, "delegatecall": true, "staticcall": true,
	"return": true, "revert": true, "selfdestruct": true, "invalid": true,
	"log0": true, "log1": true, "log2": true, "log3": true, "log4": true,
	"chainid": true, "origin": true, "gasprice": true, "basefee": true,
	"blobhash": true, "blobbasefee": true, "blockhash": true,
	"coinbase": true, "timestamp": true, "number": true,
	"difficulty": true, "prevrandao": true, "gaslimit": true,
}

// keywords of the IR grammar itself; these also pass through the inline
// assembly bridge unprefixed.
var keywords = map[string]bool{
	"let": true, "if": true, "switch": true, "case": true, "default": true,
	"for": true, "break": true, "continue": true, "function": true,
	"leave": true, "true": true, "false": true, "hex": true, "object": true,
	"code": true, "data": true,
}

// IsBuiltin reports whether name is a builtin function of the IR dialect.
func IsBuiltin(name string) bool { return builtins[name] }

// IsKeyword reports whether name is a reserved word of the IR grammar.
func IsKeyword(name string) bool { return keywords[name] }

// FormatNumber renders a big integer the way literals appear in emitted
// code; it mirrors Num but returns the plain string.
func FormatNumber(v *big.Int) string { return Num(v).Value }

// Fprint is a debugging helper that renders a single statement.
func Fprint(s Stmt) string {
	var b strings.Builder
	s.writeTo(&b, 0)
	return b.String()
}
