package arch_test

import (
	"go/ast"
	"go/token"
	"strings"
	"testing"
)

// TestExportedSymbolsHaveGoDoc requires a doc comment starting with the
// symbol name on every exported declaration. Members of a grouped const or
// var block may rely on the block comment or an inline comment instead.
func TestExportedSymbolsHaveGoDoc(t *testing.T) {
	t.Parallel()

	for _, p := range loadPackages(t) {
		for _, f := range p.files {
			for _, decl := range f.Decls {
				switch d := decl.(type) {
				case *ast.FuncDecl:
					if !d.Name.IsExported() || (d.Recv != nil && !exportedReceiver(d.Recv)) {
						continue
					}
					if !startsWith(d.Doc, d.Name.Name) {
						t.Errorf("%s: exported func %s has no GoDoc comment", p.pos(d), d.Name.Name)
					}
				case *ast.GenDecl:
					checkGenDecl(t, p, d)
				}
			}
		}
	}
}

func checkGenDecl(t *testing.T, p pkg, d *ast.GenDecl) {
	t.Helper()

	grouped := d.Lparen.IsValid()
	blockDoc := d.Doc != nil && strings.TrimSpace(d.Doc.Text()) != ""

	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			if !s.Name.IsExported() {
				continue
			}
			doc := s.Doc
			if doc == nil && !grouped {
				doc = d.Doc
			}
			if !startsWith(doc, s.Name.Name) {
				t.Errorf("%s: exported type %s has no GoDoc comment", p.pos(s), s.Name.Name)
			}
		case *ast.ValueSpec:
			for _, name := range s.Names {
				if !name.IsExported() {
					continue
				}
				if grouped && (blockDoc || s.Doc != nil || s.Comment != nil) {
					continue
				}
				doc := s.Doc
				if doc == nil {
					doc = d.Doc
				}
				if !startsWith(doc, name.Name) {
					kind := "var"
					if d.Tok == token.CONST {
						kind = "const"
					}
					t.Errorf("%s: exported %s %s has no GoDoc comment", p.pos(name), kind, name.Name)
				}
			}
		}
	}
}

func startsWith(doc *ast.CommentGroup, name string) bool {
	return doc != nil && strings.HasPrefix(strings.TrimSpace(doc.Text()), name)
}

// exportedReceiver reports whether a method belongs to an exported type.
// Methods of unexported types are not part of the API.
func exportedReceiver(recv *ast.FieldList) bool {
	if len(recv.List) == 0 {
		return false
	}
	expr := recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if idx, ok := expr.(*ast.IndexExpr); ok {
		expr = idx.X
	}
	ident, ok := expr.(*ast.Ident)
	return ok && ident.IsExported()
}
