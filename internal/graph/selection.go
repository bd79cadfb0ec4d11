package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// MaxDepth bounds how many relations deep a selection may go.
const MaxDepth = 6

var ErrInvalidSelection = errors.New("invalid selection")

var selectionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[a-zA-Z_]\w*`},
	{Name: "Punct", Pattern: `[{},]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// selectionAST matches: field ( "," field )*
type selectionAST struct {
	Fields []*fieldAST `parser:"@@ (',' @@)*"`
}

// fieldAST matches: ident [ "{" selection "}" ]
type fieldAST struct {
	Name string        `parser:"@Ident"`
	Sub  *selectionAST `parser:"('{' @@ '}')?"`
}

var selectionParser = participle.MustBuild[selectionAST](
	participle.Lexer(selectionLexer),
)

// Field is one requested field. Sub is set only for relation fields.
type Field struct {
	Name string
	Sub  Selection
}

// Selection is an ordered list of requested fields.
type Selection []Field

// ParseSelection parses a fields expression such as
// "title,author{name,books{title}}". An empty expression yields a nil
// selection.
func ParseSelection(raw string) (Selection, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	ast, err := selectionParser.ParseString("fields", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSelection, err.Error())
	}

	return convertSelection(ast, 0)
}

func convertSelection(ast *selectionAST, depth int) (Selection, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting exceeds %d levels", ErrInvalidSelection, MaxDepth)
	}

	seen := make(map[string]bool, len(ast.Fields))
	sel := make(Selection, 0, len(ast.Fields))
	for _, f := range ast.Fields {
		if seen[f.Name] {
			return nil, fmt.Errorf("%w: field %q selected twice", ErrInvalidSelection, f.Name)
		}
		seen[f.Name] = true

		field := Field{Name: f.Name}
		if f.Sub != nil {
			sub, err := convertSelection(f.Sub, depth+1)
			if err != nil {
				return nil, err
			}
			field.Sub = sub
		}
		sel = append(sel, field)
	}
	return sel, nil
}
