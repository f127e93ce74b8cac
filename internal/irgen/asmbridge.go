package irgen

import (
	"strconv"
	"strings"

	"github.com/vesper-lang/vesper/internal/ast"
	"github.com/vesper-lang/vesper/internal/errors"
	"github.com/vesper-lang/vesper/internal/ir"
)

// inlineAssembly splices an embedded low-level block into the output.
// Identifiers referencing high-level declarations are rewritten to the
// generated names or to layout constants; builtin and keyword spellings
// pass through; everything else is prefixed so user names cannot collide
// with generated ones.
func (g *Generator) inlineAssembly(s *ast.InlineAssemblyStatement) error {
	var out strings.Builder
	src := s.Code
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			rewritten, err := g.rewriteAsmIdentifier(src[i:j], s.References)
			if err != nil {
				return err
			}
			out.WriteString(rewritten)
			i = j
		case c >= '0' && c <= '9':
			// Number tokens copy verbatim, including hex digits and the 0x
			// prefix, so they never feed the identifier rewriter.
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			out.WriteString(src[i:j])
			i = j
		case c == '"':
			j := i + 1
			for j < len(src) && src[j] != '"' {
				if src[j] == '\\' && j+1 < len(src) {
					j++
				}
				j++
			}
			if j < len(src) {
				j++
			}
			out.WriteString(src[i:j])
			i = j
		default:
			out.WriteByte(c)
			i++
		}
	}
	g.emit(&ir.Verbatim{Text: out.String()})
	return nil
}

func (g *Generator) rewriteAsmIdentifier(name string, refs map[string]ast.AsmReference) (string, error) {
	if ref, ok := refs[name]; ok {
		switch ref.Kind {
		case ast.AsmRefSlot:
			slot, _, ok := g.ctx.Layout.Location(ref.Decl)
			if !ok {
				return "", errors.Invariantf("state variable %q has no storage placement", ref.Decl.Name)
			}
			return ir.FormatNumber(slot), nil
		case ast.AsmRefOffset:
			_, offset, ok := g.ctx.Layout.Location(ref.Decl)
			if !ok {
				return "", errors.Invariantf("state variable %q has no storage placement", ref.Decl.Name)
			}
			return strconv.Itoa(offset), nil
		default:
			if ref.Decl.IsStateVariable {
				return "", errors.Invariantf(
					"state variable %q needs a slot or offset suffix inside embedded blocks", ref.Decl.Name)
			}
			local, ok := g.ctx.LocalVariable(ref.Decl)
			if !ok {
				return "", errors.Invariantf("local %q referenced before declaration", ref.Decl.Name)
			}
			return local.Primary(), nil
		}
	}
	if ir.IsBuiltin(name) || ir.IsKeyword(name) {
		return name, nil
	}
	return "usr$" + name, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.'
}
