// Package ast defines the typed, fully resolved contract tree consumed by
// the Vesper IR generation stage. The tree is produced by earlier phases:
// every expression carries its semantic type, every identifier its resolved
// declaration, and every state variable its storage placement. Lowering
// trusts these annotations and never re-validates them.
package ast

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/vesper-lang/vesper/internal/position"
	"github.com/vesper-lang/vesper/internal/types"
)

// Node is the base interface for all tree nodes.
type Node interface {
	// GetSpan returns the source span covered by this node
	GetSpan() position.Span
	// String returns a human-readable representation of the node
	String() string
}

// Statement represents all statement nodes in the tree.
type Statement interface {
	Node
	statementNode() // Marker method to distinguish statements
}

// Expression represents all expression nodes in the tree.
type Expression interface {
	Node
	expressionNode() // Marker method to distinguish expressions
	// ExprType returns the semantic type annotated by the type checker.
	ExprType() types.Type
}

// Declaration represents all resolvable declarations.
type Declaration interface {
	Node
	declarationNode() // Marker method to distinguish declarations
	// DeclName returns the declared source name.
	DeclName() string
}

// ===== Operators =====

// Token enumerates the operators that survive into lowering.
type Token int

const (
	TokenAdd Token = iota
	TokenSub
	TokenMul
	TokenDiv
	TokenMod
	TokenEqual
	TokenNotEqual
	TokenLessThan
	TokenGreaterThan
	TokenLessThanOrEqual
	TokenGreaterThanOrEqual
	TokenAnd
	TokenOr
	TokenNot
	TokenBitNot
	TokenInc
	TokenDec
	TokenDelete
	TokenAssign
	TokenAssignAdd
	TokenAssignSub
	TokenAssignMul
	TokenAssignDiv
	TokenAssignMod
)

var tokenNames = map[Token]string{
	TokenAdd: "+", TokenSub: "-", TokenMul: "*", TokenDiv: "/", TokenMod: "%",
	TokenEqual: "==", TokenNotEqual: "!=", TokenLessThan: "<", TokenGreaterThan: ">",
	TokenLessThanOrEqual: "<=", TokenGreaterThanOrEqual: ">=",
	TokenAnd: "&&", TokenOr: "||", TokenNot: "!", TokenBitNot: "~",
	TokenInc: "++", TokenDec: "--", TokenDelete: "delete",
	TokenAssign: "=", TokenAssignAdd: "+=", TokenAssignSub: "-=",
	TokenAssignMul: "*=", TokenAssignDiv: "/=", TokenAssignMod: "%=",
}

// String returns the source spelling of the token.
func (t Token) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsCompareOp reports whether the token is a comparison operator.
func (t Token) IsCompareOp() bool {
	switch t {
	case TokenEqual, TokenNotEqual, TokenLessThan, TokenGreaterThan,
		TokenLessThanOrEqual, TokenGreaterThanOrEqual:
		return true
	}
	return false
}

// AssignmentToBinaryOp maps a compound assignment operator to the binary
// operator it applies. It returns false for the plain assignment.
func AssignmentToBinaryOp(t Token) (Token, bool) {
	switch t {
	case TokenAssignAdd:
		return TokenAdd, true
	case TokenAssignSub:
		return TokenSub, true
	case TokenAssignMul:
		return TokenMul, true
	case TokenAssignDiv:
		return TokenDiv, true
	case TokenAssignMod:
		return TokenMod, true
	}
	return t, false
}

// ===== Declarations =====

// VariableDeclaration is a local variable, parameter or state variable.
// State variables carry their storage placement in the layout service, not
// here; IsStateVariable selects between the two addressing disciplines.
type VariableDeclaration struct {
	Span            position.Span
	Name            string
	Type            types.Type
	IsStateVariable bool
	Constant        bool
	Value           Expression // Optional declaration initializer
}

func (d *VariableDeclaration) GetSpan() position.Span { return d.Span }
func (d *VariableDeclaration) declarationNode()       {}
func (d *VariableDeclaration) DeclName() string       { return d.Name }
func (d *VariableDeclaration) String() string {
	return fmt.Sprintf("%s %s", d.Type, d.Name)
}

// FunctionDeclaration is a resolved function definition. The lowering stage
// only needs the signature and the identity; bodies are lowered separately
// by the surrounding driver.
type FunctionDeclaration struct {
	Span       position.Span
	Name       string
	Parameters []*VariableDeclaration
	Returns    []*VariableDeclaration
	Selector   uint32 // External ABI selector, annotated by the resolver
	Body       *Block // Optional; nil for interface members
}

func (d *FunctionDeclaration) GetSpan() position.Span { return d.Span }
func (d *FunctionDeclaration) declarationNode()       {}
func (d *FunctionDeclaration) DeclName() string       { return d.Name }
func (d *FunctionDeclaration) String() string         { return "function " + d.Name }

// EventParameter is one declared parameter of an event.
type EventParameter struct {
	Name    string
	Type    types.Type
	Indexed bool
}

// EventDeclaration is a resolved event definition. SignatureHash is the
// hash of the external signature, annotated by the resolver; lowering emits
// it as the first log topic for non-anonymous events.
type EventDeclaration struct {
	Span          position.Span
	Name          string
	Parameters    []*EventParameter
	Anonymous     bool
	SignatureHash *big.Int
}

func (d *EventDeclaration) GetSpan() position.Span { return d.Span }
func (d *EventDeclaration) declarationNode()       {}
func (d *EventDeclaration) DeclName() string       { return d.Name }
func (d *EventDeclaration) String() string         { return "event " + d.Name }

// EnumDeclaration is a resolved enum definition.
type EnumDeclaration struct {
	Span position.Span
	Name string
	Type *types.Enum
}

func (d *EnumDeclaration) GetSpan() position.Span { return d.Span }
func (d *EnumDeclaration) declarationNode()       {}
func (d *EnumDeclaration) DeclName() string       { return d.Name }
func (d *EnumDeclaration) String() string         { return "enum " + d.Name }

// StructDeclaration is a resolved struct definition.
type StructDeclaration struct {
	Span position.Span
	Name string
}

func (d *StructDeclaration) GetSpan() position.Span { return d.Span }
func (d *StructDeclaration) declarationNode()       {}
func (d *StructDeclaration) DeclName() string       { return d.Name }
func (d *StructDeclaration) String() string         { return "struct " + d.Name }

// ContractDeclaration is a resolved contract definition.
type ContractDeclaration struct {
	Span    position.Span
	Name    string
	Library bool
}

func (d *ContractDeclaration) GetSpan() position.Span { return d.Span }
func (d *ContractDeclaration) declarationNode()       {}
func (d *ContractDeclaration) DeclName() string       { return d.Name }
func (d *ContractDeclaration) String() string         { return "contract " + d.Name }

// MagicDeclaration is an environment symbol such as this, now, msg, block
// or tx, resolved by the name resolver like any other declaration.
type MagicDeclaration struct {
	Span position.Span
	Name string
	Type types.Type
}

func (d *MagicDeclaration) GetSpan() position.Span { return d.Span }
func (d *MagicDeclaration) declarationNode()       {}
func (d *MagicDeclaration) DeclName() string       { return d.Name }
func (d *MagicDeclaration) String() string         { return d.Name }

// ===== Statements =====

// Block is a brace-delimited statement sequence.
type Block struct {
	Span       position.Span
	Statements []Statement
}

func (s *Block) GetSpan() position.Span { return s.Span }
func (s *Block) statementNode()         {}
func (s *Block) String() string {
	parts := make([]string, len(s.Statements))
	for i, st := range s.Statements {
		parts[i] = st.String()
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

// VariableDeclarationStatement declares one or more variables, optionally
// initialized from a single (possibly tuple-typed) expression. Nil entries
// in Declarations are holes that discard the matching component.
type VariableDeclarationStatement struct {
	Span         position.Span
	Declarations []*VariableDeclaration
	InitialValue Expression // Optional
}

func (s *VariableDeclarationStatement) GetSpan() position.Span { return s.Span }
func (s *VariableDeclarationStatement) statementNode()         {}
func (s *VariableDeclarationStatement) String() string {
	names := make([]string, len(s.Declarations))
	for i, d := range s.Declarations {
		if d == nil {
			names[i] = "_"
		} else {
			names[i] = d.Name
		}
	}
	if s.InitialValue == nil {
		return "let " + strings.Join(names, ", ")
	}
	return "let " + strings.Join(names, ", ") + " = " + s.InitialValue.String()
}

// ExpressionStatement evaluates an expression and discards its value.
type ExpressionStatement struct {
	Span       position.Span
	Expression Expression
}

func (s *ExpressionStatement) GetSpan() position.Span { return s.Span }
func (s *ExpressionStatement) statementNode()         {}
func (s *ExpressionStatement) String() string         { return s.Expression.String() + ";" }

// IfStatement is a conditional with an optional else branch.
type IfStatement struct {
	Span      position.Span
	Condition Expression
	TrueBody  Statement
	FalseBody Statement // Optional
}

func (s *IfStatement) GetSpan() position.Span { return s.Span }
func (s *IfStatement) statementNode()         {}
func (s *IfStatement) String() string {
	if s.FalseBody != nil {
		return fmt.Sprintf("if (%s) %s else %s", s.Condition, s.TrueBody, s.FalseBody)
	}
	return fmt.Sprintf("if (%s) %s", s.Condition, s.TrueBody)
}

// ForStatement is a C-style loop; all three header parts are optional.
type ForStatement struct {
	Span      position.Span
	Init      Statement            // Optional
	Condition Expression           // Optional
	Post      *ExpressionStatement // Optional
	Body      Statement
}

func (s *ForStatement) GetSpan() position.Span { return s.Span }
func (s *ForStatement) statementNode()         {}
func (s *ForStatement) String() string         { return "for (...) " + s.Body.String() }

// WhileStatement is a while or do-while loop.
type WhileStatement struct {
	Span      position.Span
	Condition Expression
	Body      Statement
	IsDoWhile bool
}

func (s *WhileStatement) GetSpan() position.Span { return s.Span }
func (s *WhileStatement) statementNode()         {}
func (s *WhileStatement) String() string {
	if s.IsDoWhile {
		return fmt.Sprintf("do %s while (%s)", s.Body, s.Condition)
	}
	return fmt.Sprintf("while (%s) %s", s.Condition, s.Body)
}

// BreakStatement exits the innermost loop.
type BreakStatement struct {
	Span position.Span
}

func (s *BreakStatement) GetSpan() position.Span { return s.Span }
func (s *BreakStatement) statementNode()         {}
func (s *BreakStatement) String() string         { return "break;" }

// ContinueStatement advances the innermost loop.
type ContinueStatement struct {
	Span position.Span
}

func (s *ContinueStatement) GetSpan() position.Span { return s.Span }
func (s *ContinueStatement) statementNode()         {}
func (s *ContinueStatement) String() string         { return "continue;" }

// ReturnStatement returns from the enclosing function. ReturnParameters is
// the resolver's annotation pointing at the function's declared return
// variables, to which the returned components are bound by position.
type ReturnStatement struct {
	Span             position.Span
	Expression       Expression // Optional
	ReturnParameters []*VariableDeclaration
}

func (s *ReturnStatement) GetSpan() position.Span { return s.Span }
func (s *ReturnStatement) statementNode()         {}
func (s *ReturnStatement) String() string {
	if s.Expression == nil {
		return "return;"
	}
	return "return " + s.Expression.String() + ";"
}

// ===== Inline assembly =====

// AsmReferenceKind tells how an inline-assembly identifier uses the
// high-level declaration it resolves to.
type AsmReferenceKind int

const (
	// AsmRefValue reads or writes the variable itself.
	AsmRefValue AsmReferenceKind = iota
	// AsmRefSlot names the storage slot of a state variable.
	AsmRefSlot
	// AsmRefOffset names the intra-slot byte offset of a state variable.
	AsmRefOffset
)

// AsmReference resolves one inline-assembly identifier to a declaration.
type AsmReference struct {
	Decl *VariableDeclaration
	Kind AsmReferenceKind
}

// InlineAssemblyStatement embeds a low-level code block. Code is the raw
// block source; References maps identifier spellings inside it to their
// resolved high-level declarations.
type InlineAssemblyStatement struct {
	Span       position.Span
	Code       string
	References map[string]AsmReference
}

func (s *InlineAssemblyStatement) GetSpan() position.Span { return s.Span }
func (s *InlineAssemblyStatement) statementNode()         {}
func (s *InlineAssemblyStatement) String() string         { return "assembly { ... }" }

// ===== Expressions =====

// LiteralKind distinguishes literal flavors.
type LiteralKind int

const (
	LiteralNumber LiteralKind = iota
	LiteralBool
	LiteralAddress
	LiteralString
)

// Literal is a source literal with its canonical value.
type Literal struct {
	Span  position.Span
	Kind  LiteralKind
	Value *big.Int // Numeric/address/bool (0 or 1) value
	Str   string   // String literal payload
	Type  types.Type
}

func (e *Literal) GetSpan() position.Span { return e.Span }
func (e *Literal) expressionNode()        {}
func (e *Literal) ExprType() types.Type   { return e.Type }
func (e *Literal) String() string {
	if e.Kind == LiteralString {
		return fmt.Sprintf("%q", e.Str)
	}
	return e.Value.String()
}

// Identifier is a resolved name reference.
type Identifier struct {
	Span position.Span
	Name string
	Decl Declaration
	Type types.Type
}

func (e *Identifier) GetSpan() position.Span { return e.Span }
func (e *Identifier) expressionNode()        {}
func (e *Identifier) ExprType() types.Type   { return e.Type }
func (e *Identifier) String() string         { return e.Name }

// UnaryOperation applies a prefix or postfix unary operator.
type UnaryOperation struct {
	Span    position.Span
	Op      Token
	Prefix  bool
	Operand Expression
	Type    types.Type
}

func (e *UnaryOperation) GetSpan() position.Span { return e.Span }
func (e *UnaryOperation) expressionNode()        {}
func (e *UnaryOperation) ExprType() types.Type   { return e.Type }
func (e *UnaryOperation) String() string {
	if e.Prefix {
		return e.Op.String() + e.Operand.String()
	}
	return e.Operand.String() + e.Op.String()
}

// BinaryOperation applies a binary operator. CommonType is the type both
// operands are converted to before the operation, annotated upstream.
type BinaryOperation struct {
	Span       position.Span
	Op         Token
	Left       Expression
	Right      Expression
	CommonType types.Type
	Type       types.Type
}

func (e *BinaryOperation) GetSpan() position.Span { return e.Span }
func (e *BinaryOperation) expressionNode()        {}
func (e *BinaryOperation) ExprType() types.Type   { return e.Type }
func (e *BinaryOperation) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// Conditional is the ternary operator.
type Conditional struct {
	Span      position.Span
	Condition Expression
	TrueExpr  Expression
	FalseExpr Expression
	Type      types.Type
}

func (e *Conditional) GetSpan() position.Span { return e.Span }
func (e *Conditional) expressionNode()        {}
func (e *Conditional) ExprType() types.Type   { return e.Type }
func (e *Conditional) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", e.Condition, e.TrueExpr, e.FalseExpr)
}

// Assignment is a plain or compound assignment.
type Assignment struct {
	Span position.Span
	Op   Token
	LHS  Expression
	RHS  Expression
	Type types.Type
}

func (e *Assignment) GetSpan() position.Span { return e.Span }
func (e *Assignment) expressionNode()        {}
func (e *Assignment) ExprType() types.Type   { return e.Type }
func (e *Assignment) String() string {
	return fmt.Sprintf("%s %s %s", e.LHS, e.Op, e.RHS)
}

// TupleExpression groups components; nil entries are holes. A single
// non-hole component is semantically transparent parentheses.
type TupleExpression struct {
	Span       position.Span
	Components []Expression
	Type       types.Type
}

func (e *TupleExpression) GetSpan() position.Span { return e.Span }
func (e *TupleExpression) expressionNode()        {}
func (e *TupleExpression) ExprType() types.Type   { return e.Type }
func (e *TupleExpression) String() string {
	parts := make([]string, len(e.Components))
	for i, c := range e.Components {
		if c == nil {
			parts[i] = ""
		} else {
			parts[i] = c.String()
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// CallKind distinguishes proper calls from call-shaped constructs.
type CallKind int

const (
	CallFunction CallKind = iota
	CallTypeConversion
	CallStructConstructor
)

// FunctionCall is any call-shaped expression. Names carries argument names
// for named-argument calls, parallel to Arguments; it is empty for
// positional calls.
type FunctionCall struct {
	Span      position.Span
	Callee    Expression
	Arguments []Expression
	Names     []string
	Kind      CallKind
	Type      types.Type
}

func (e *FunctionCall) GetSpan() position.Span { return e.Span }
func (e *FunctionCall) expressionNode()        {}
func (e *FunctionCall) ExprType() types.Type   { return e.Type }
func (e *FunctionCall) String() string {
	args := make([]string, len(e.Arguments))
	for i, a := range e.Arguments {
		args[i] = a.String()
	}
	return e.Callee.String() + "(" + strings.Join(args, ", ") + ")"
}

// MemberAccess selects a member of a base expression. Decl is the resolved
// declaration for contract members; nil otherwise.
type MemberAccess struct {
	Span   position.Span
	Base   Expression
	Member string
	Decl   Declaration
	Type   types.Type
}

func (e *MemberAccess) GetSpan() position.Span { return e.Span }
func (e *MemberAccess) expressionNode()        {}
func (e *MemberAccess) ExprType() types.Type   { return e.Type }
func (e *MemberAccess) String() string         { return e.Base.String() + "." + e.Member }

// IndexAccess subscripts an array or mapping base.
type IndexAccess struct {
	Span  position.Span
	Base  Expression
	Index Expression
	Type  types.Type
}

func (e *IndexAccess) GetSpan() position.Span { return e.Span }
func (e *IndexAccess) expressionNode()        {}
func (e *IndexAccess) ExprType() types.Type   { return e.Type }
func (e *IndexAccess) String() string {
	return fmt.Sprintf("%s[%s]", e.Base, e.Index)
}

// IndexRangeAccess is a slice of a base expression.
type IndexRangeAccess struct {
	Span  position.Span
	Base  Expression
	Start Expression // Optional
	End   Expression // Optional
	Type  types.Type
}

func (e *IndexRangeAccess) GetSpan() position.Span { return e.Span }
func (e *IndexRangeAccess) expressionNode()        {}
func (e *IndexRangeAccess) ExprType() types.Type   { return e.Type }
func (e *IndexRangeAccess) String() string {
	return fmt.Sprintf("%s[...]", e.Base)
}
