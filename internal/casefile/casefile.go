// Package casefile extracts compiler test cases from Markdown documents.
//
// A case starts at a heading "Test: <name>" and owns the fenced code
// blocks until the next such heading. The fence info string tells the
// block kind: "toy" is the program, every other known kind is an assertion.
package casefile

import (
	"bytes"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"tlog.app/go/errors"
)

type (
	Kind string

	Assertion struct {
		Kind    Kind
		Content string
		Line    int
	}

	Case struct {
		Name       string
		Line       int
		Program    string
		Assertions []Assertion
	}
)

const (
	KindProgram Kind = "toy"

	// KindResult is the value the program returns when executed.
	KindResult Kind = "result"
	// KindError is a substring of the expected compile error.
	KindError Kind = "error"
	// KindIR lists substrings the printed module must contain, one per line.
	KindIR Kind = "ir"
	// KindBlocks is the expected block names, one per line.
	KindBlocks Kind = "blocks"
)

const heading = "Test: "

func ReadFile(name string) ([]Case, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	cs, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "%v", name)
	}

	return cs, nil
}

func Parse(src []byte) (cs []Case, err error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var cur *Case

	flush := func() error {
		if cur == nil {
			return nil
		}

		if cur.Program == "" {
			return errors.New("line %d: test %q: no %s fence", cur.Line, cur.Name, KindProgram)
		}

		if len(cur.Assertions) == 0 {
			return errors.New("line %d: test %q: no assertions", cur.Line, cur.Name)
		}

		cs = append(cs, *cur)
		cur = nil

		return nil
	}

	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := n.(type) {
		case *ast.Heading:
			title := nodeText(n, src)
			if !strings.HasPrefix(title, heading) {
				return ast.WalkSkipChildren, nil
			}

			if err := flush(); err != nil {
				return ast.WalkStop, err
			}

			cur = &Case{
				Name: strings.TrimSpace(strings.TrimPrefix(title, heading)),
				Line: lineOf(n, src),
			}

			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			kind := Kind(n.Language(src))
			line := lineOf(n, src)

			if kind == "" {
				return ast.WalkContinue, nil
			}

			if cur == nil {
				return ast.WalkStop, errors.New("line %d: %s fence outside of a test", line, kind)
			}

			content := strings.TrimRight(blockText(n, src), "\n")

			switch kind {
			case KindProgram:
				if cur.Program != "" {
					return ast.WalkStop, errors.New("line %d: test %q: second program", line, cur.Name)
				}

				cur.Program = content
			case KindResult, KindError, KindIR, KindBlocks:
				cur.Assertions = append(cur.Assertions, Assertion{
					Kind:    kind,
					Content: content,
					Line:    line,
				})
			default:
				return ast.WalkStop, errors.New("line %d: test %q: unknown fence %q", line, cur.Name, kind)
			}
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	err = flush()
	if err != nil {
		return nil, err
	}

	return cs, nil
}

// Lines splits assertion content into trimmed non-empty lines.
func (a Assertion) Lines() []string {
	var l []string

	for _, s := range strings.Split(a.Content, "\n") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		l = append(l, s)
	}

	return l
}

func nodeText(n ast.Node, src []byte) string {
	var b bytes.Buffer

	_ = ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			b.Write(t.Segment.Value(src))
		}

		return ast.WalkContinue, nil
	})

	return b.String()
}

func blockText(n *ast.FencedCodeBlock, src []byte) string {
	var b bytes.Buffer

	lines := n.Lines()

	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}

	return b.String()
}

func lineOf(n ast.Node, src []byte) int {
	var pos int

	switch n := n.(type) {
	case *ast.FencedCodeBlock:
		if n.Info != nil {
			pos = n.Info.Segment.Start
		} else if n.Lines().Len() != 0 {
			pos = n.Lines().At(0).Start
		}
	default:
		if n.Lines().Len() != 0 {
			pos = n.Lines().At(0).Start
		}
	}

	return bytes.Count(src[:pos], []byte{'\n'}) + 1
}
