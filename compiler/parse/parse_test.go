package parse

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/toy/compiler/ast"
)

func TestParseProgram(t *testing.T) {
	ctx := context.Background()

	p, err := Parse(ctx, []byte(`
// sum of the first ten
i = 0; s = 0;
while (i < 10) {
	s = s + i;
	i = i + 1;
}
if (s == 45) { return s; } else { return -1; }
`))
	require.NoError(t, err)
	require.Len(t, p.Stmts, 4)

	a, ok := p.Stmts[0].(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, "i", a.Name)
	assert.Equal(t, int64(0), a.Expr.(*ast.Number).Value)

	w, ok := p.Stmts[2].(*ast.While)
	require.True(t, ok)
	assert.Len(t, w.Body, 2)

	c := w.Cond.(*ast.Binary)
	assert.Equal(t, ast.Lt, c.Op)
	assert.Equal(t, "i", c.L.(*ast.Var).Name)

	s, ok := p.Stmts[3].(*ast.If)
	require.True(t, ok)
	require.Len(t, s.Else, 1)

	r := s.Else[0].(*ast.Return)
	assert.Equal(t, int64(-1), r.Expr.(*ast.Number).Value)
}

func TestPrecedence(t *testing.T) {
	ctx := context.Background()

	p, err := Parse(ctx, []byte("x = 1 + 2 * 3 - 4 || a && b == c;"))
	require.NoError(t, err)

	e := p.Stmts[0].(*ast.Assign).Expr.(*ast.Binary)
	assert.Equal(t, ast.Or, e.Op)

	l := e.L.(*ast.Binary)
	assert.Equal(t, ast.Sub, l.Op)

	ll := l.L.(*ast.Binary)
	assert.Equal(t, ast.Add, ll.Op)
	assert.Equal(t, ast.Mul, ll.R.(*ast.Binary).Op)

	r := e.R.(*ast.Binary)
	assert.Equal(t, ast.And, r.Op)
	assert.Equal(t, ast.Eq, r.R.(*ast.Binary).Op)

	p, err = Parse(ctx, []byte("x = 10 - 3 - 2;"))
	require.NoError(t, err)

	e = p.Stmts[0].(*ast.Assign).Expr.(*ast.Binary)
	assert.Equal(t, ast.Sub, e.Op)
	assert.Equal(t, int64(2), e.R.(*ast.Number).Value)
	assert.Equal(t, ast.Sub, e.L.(*ast.Binary).Op)
}

func TestUnary(t *testing.T) {
	ctx := context.Background()

	p, err := Parse(ctx, []byte("x = -9223372036854775808; y = -(5); z = !-x;"))
	require.NoError(t, err)
	require.Len(t, p.Stmts, 3)

	assert.Equal(t, int64(math.MinInt64), p.Stmts[0].(*ast.Assign).Expr.(*ast.Number).Value)

	u := p.Stmts[1].(*ast.Assign).Expr.(*ast.Unary)
	assert.Equal(t, ast.Neg, u.Op)
	assert.Equal(t, int64(5), u.X.(*ast.Number).Value)

	u = p.Stmts[2].(*ast.Assign).Expr.(*ast.Unary)
	assert.Equal(t, ast.Not, u.Op)
	assert.Equal(t, ast.Neg, u.X.(*ast.Unary).Op)
}

func TestElseIf(t *testing.T) {
	p, err := Parse(context.Background(), []byte("if (a) { x = 1; } else if (b) { x = 2; } else { x = 3; } ;;"))
	require.NoError(t, err)
	require.Len(t, p.Stmts, 1)

	s := p.Stmts[0].(*ast.If)
	require.Len(t, s.Else, 1)

	nested := s.Else[0].(*ast.If)
	assert.Equal(t, "b", nested.Cond.(*ast.Var).Name)
	assert.Len(t, nested.Else, 1)
}

func TestPositions(t *testing.T) {
	p, err := Parse(context.Background(), []byte("x = 1;\n  return x + 2;"))
	require.NoError(t, err)

	r := p.Stmts[1].(*ast.Return)
	assert.Equal(t, 9, r.Pos)
	assert.Equal(t, 22, r.End)

	b := r.Expr.(*ast.Binary)
	assert.Equal(t, 16, b.Pos)
	assert.Equal(t, 21, b.End)
}

func TestSyntaxErrors(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name       string
		src        string
		line, col  int
		incomplete bool
	}{
		{"missing_semicolon", "x = 1\ny = 2;", 2, 1, false},
		{"unclosed_block", "while (x) {\n x = 1;", 2, 8, true},
		{"dangling_op", "x = 1 +", 1, 8, true},
		{"keyword_as_var", "x = while;", 1, 5, false},
		{"bad_char", "x = 1 # 2;", 1, 7, false},
		{"bad_number", "x = 12ab;", 1, 5, false},
		{"overflow", "x = 9223372036854775808;", 1, 5, false},
		{"stray_close", "}", 1, 1, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(ctx, []byte(tc.src))

			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.line, se.Line, "line")
			assert.Equal(t, tc.col, se.Col, "col")
			assert.Equal(t, tc.incomplete, Incomplete(err))
		})
	}
}

func TestEmpty(t *testing.T) {
	p, err := Parse(context.Background(), []byte("  // nothing\n"))
	require.NoError(t, err)
	assert.Empty(t, p.Stmts)
}
