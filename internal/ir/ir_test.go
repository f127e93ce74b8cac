package ir

import (
	"math/big"
	"strings"
	"testing"
)

func TestVarDeclAndAssign(t *testing.T) {
	b := &Block{}
	b.Add(&VarDecl{Names: []string{"_1"}, Value: FnCall("add", Id("x"), Uint(1))})
	b.Add(&VarDecl{Names: []string{"a", "b"}})
	b.Add(&Assign{Names: []string{"a"}, Value: Id("_1")})

	got := b.String()
	want := "let _1 := add(x, 1)\nlet a, b\na := _1\n"
	if got != want {
		t.Errorf("Block.String() = %q, want %q", got, want)
	}
}

func TestSwitchRendering(t *testing.T) {
	sw := &Switch{
		Cond: Id("cond"),
		Cases: []SwitchCase{
			{Value: &Lit{Value: "0"}, Body: &Block{Stmts: []Stmt{&Assign{Names: []string{"r"}, Value: Id("y")}}}},
			{Value: nil, Body: &Block{Stmts: []Stmt{&Assign{Names: []string{"r"}, Value: Id("x")}}}},
		},
	}

	got := Fprint(sw)
	for _, fragment := range []string{"switch cond", "case 0 {", "default {", "r := y", "r := x"} {
		if !strings.Contains(got, fragment) {
			t.Errorf("switch output missing %q:\n%s", fragment, got)
		}
	}
}

func TestForRendering(t *testing.T) {
	loop := &For{
		Init: &Block{},
		Cond: &Lit{Value: "1"},
		Post: &Block{},
		Body: &Block{Stmts: []Stmt{&Break{}}},
	}

	got := Fprint(loop)
	if !strings.Contains(got, "for { } 1 { }") {
		t.Errorf("loop header not rendered: %q", got)
	}
	if !strings.Contains(got, "break") {
		t.Errorf("loop body not rendered: %q", got)
	}
}

func TestNumFormatting(t *testing.T) {
	tests := []struct {
		in   *big.Int
		want string
	}{
		{big.NewInt(0), "0"},
		{big.NewInt(42), "42"},
		{big.NewInt(65535), "65535"},
		{big.NewInt(65536), "0x10000"},
		{new(big.Int).Lsh(big.NewInt(1), 255), "0x8000000000000000000000000000000000000000000000000000000000000000"},
	}

	for _, tt := range tests {
		if got := Num(tt.in).Value; got != tt.want {
			t.Errorf("Num(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVerbatimIndentation(t *testing.T) {
	body := &Block{Stmts: []Stmt{&Verbatim{Text: "x := 1\ny := 2\n"}}}
	ifStmt := &If{Cond: Id("c"), Body: body}

	got := Fprint(ifStmt)
	if !strings.Contains(got, "    x := 1\n    y := 2\n") {
		t.Errorf("verbatim text not re-indented:\n%s", got)
	}
}

func TestBuiltinsAndKeywords(t *testing.T) {
	for _, name := range []string{"mload", "sstore", "staticcall", "log4", "prevrandao"} {
		if !IsBuiltin(name) {
			t.Errorf("expected %q to be a builtin", name)
		}
	}
	if IsBuiltin("transferFrom") {
		t.Error("user identifier misclassified as builtin")
	}
	if !IsKeyword("leave") || !IsKeyword("switch") {
		t.Error("expected leave/switch to be keywords")
	}
}
