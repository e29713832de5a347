package lower

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/toy/compiler/ast"
	"github.com/slowlang/toy/compiler/cfg"
	"github.com/slowlang/toy/compiler/exec"
	"github.com/slowlang/toy/compiler/ir"
	"github.com/slowlang/toy/compiler/parse"
	"github.com/slowlang/toy/internal/casefile"
)

type (
	name string

	// recorder is a Builder that only writes down what it was asked to do.
	recorder struct {
		ops  []string
		cur  name
		term map[name]bool
		n    int
	}
)

func (n name) Ident() string { return string(n) }

func newRecorder() *recorder {
	return &recorder{cur: "entry", term: map[name]bool{}}
}

func (r *recorder) val(op string, args ...ir.Value) ir.Value {
	r.n++
	v := name(fmt.Sprintf("%%%d", r.n))

	s := op
	for _, a := range args {
		s += " " + a.Ident()
	}

	r.ops = append(r.ops, s)

	return v
}

func (r *recorder) NewBlock(n string) ir.Block     { return name(n) }
func (r *recorder) SetInsertBlock(b ir.Block)      { r.cur = b.(name) }
func (r *recorder) InsertBlock() ir.Block          { return r.cur }
func (r *recorder) Terminated(b ir.Block) bool     { return r.term[b.(name)] }
func (r *recorder) Const(v int64) ir.Value         { return name(strconv.FormatInt(v, 10)) }
func (r *recorder) Add(a, b ir.Value) ir.Value     { return r.val("add", a, b) }
func (r *recorder) Sub(a, b ir.Value) ir.Value     { return r.val("sub", a, b) }
func (r *recorder) Mul(a, b ir.Value) ir.Value     { return r.val("mul", a, b) }
func (r *recorder) SDiv(a, b ir.Value) ir.Value    { return r.val("sdiv", a, b) }
func (r *recorder) SRem(a, b ir.Value) ir.Value    { return r.val("srem", a, b) }
func (r *recorder) And(a, b ir.Value) ir.Value     { return r.val("and", a, b) }
func (r *recorder) Or(a, b ir.Value) ir.Value      { return r.val("or", a, b) }
func (r *recorder) Neg(x ir.Value) ir.Value        { return r.val("neg", x) }
func (r *recorder) Not(x ir.Value) ir.Value        { return r.val("not", x) }
func (r *recorder) Load(s ir.Slot) ir.Value        { return r.val("load", s) }
func (r *recorder) Store(v ir.Value, s ir.Slot)    { r.val("store", v, s) }
func (r *recorder) ICmp(p ir.Pred, a, b ir.Value) ir.Value {
	return r.val("icmp "+p.String(), a, b)
}

func (r *recorder) Alloca(n string) ir.Slot {
	r.ops = append(r.ops, "alloca "+n)

	return name(n)
}

func (r *recorder) Br(to ir.Block) {
	r.ops = append(r.ops, "br "+to.Ident())
	r.term[r.cur] = true
}

func (r *recorder) CondBr(c ir.Value, then, els ir.Block) {
	r.ops = append(r.ops, "condbr "+c.Ident()+" "+then.Ident()+" "+els.Ident())
	r.term[r.cur] = true
}

func (r *recorder) Ret(v ir.Value) {
	r.ops = append(r.ops, "ret "+v.Ident())
	r.term[r.cur] = true
}

func TestEvaluationOrder(t *testing.T) {
	p, err := parse.Parse(context.Background(), []byte("a = 1; b = 2; return a - b * -a;"))
	require.NoError(t, err)

	r := newRecorder()

	err = LowerInto(context.Background(), p, r)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"alloca a",
		"store 1 a",
		"alloca b",
		"store 2 b",
		"load a",
		"load b",
		"load a",
		"neg %5",
		"mul %4 %6",
		"sub %3 %7",
		"ret %8",
	}, r.ops)
}

func TestSlotStability(t *testing.T) {
	p, err := parse.Parse(context.Background(), []byte("x = 1; x = 2; i = 0; while (i < 3) { x = x + 1; i = i + 1; } return x;"))
	require.NoError(t, err)

	r := newRecorder()

	err = LowerInto(context.Background(), p, r)
	require.NoError(t, err)

	var allocas []string

	for _, op := range r.ops {
		if strings.HasPrefix(op, "alloca ") {
			allocas = append(allocas, op)
		}
	}

	assert.Equal(t, []string{"alloca x", "alloca i"}, allocas)
}

func TestSlotsBelongToRoutine(t *testing.T) {
	p, err := parse.Parse(context.Background(), []byte(`
c = 1;
if (c) { t = 1; } else { t = 2; }
while (c) { u = t; t = u + 1; c = 0; }
return t + u;
`))
	require.NoError(t, err)

	r := newRecorder()

	err = LowerInto(context.Background(), p, r)
	require.NoError(t, err)

	var allocas []string

	for _, op := range r.ops {
		if strings.HasPrefix(op, "alloca ") {
			allocas = append(allocas, op)
		}
	}

	assert.Equal(t, []string{"alloca c", "alloca t", "alloca u"}, allocas)

	m, err := Lower(context.Background(), p, Config{})
	require.NoError(t, err)

	res, err := exec.Run(context.Background(), m.Func(), exec.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res)
}

func TestDeterminism(t *testing.T) {
	ctx := context.Background()

	p, err := parse.Parse(ctx, []byte(`
x = 0;
i = 0;
while (i < 10) {
	if (i % 2 == 0) { x = x + i; } else { t = i; x = x - t; }
	i = i + 1;
}
return x;
`))
	require.NoError(t, err)

	m1, err := Lower(ctx, p, Config{})
	require.NoError(t, err)

	m2, err := Lower(ctx, p, Config{})
	require.NoError(t, err)

	g1, err := cfg.Build(m1.Func())
	require.NoError(t, err)

	g2, err := cfg.Build(m2.Func())
	require.NoError(t, err)

	assert.True(t, cfg.Equal(g1, g2))
	assert.Equal(t, m1.String(), m2.String())

	res, err := exec.Run(ctx, m1.Func(), exec.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(20-25), res)
}

func TestMalformedTrees(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name string
		p    *ast.Program
		err  any
	}{
		{
			name: "invalid_binary",
			p: &ast.Program{Stmts: []ast.Stmt{
				&ast.Return{Expr: &ast.Binary{Op: ast.BinaryOp(99), L: ast.NewNumber(1), R: ast.NewNumber(2)}},
			}},
			err: &InvalidOperatorError{},
		},
		{
			name: "invalid_unary",
			p: &ast.Program{Stmts: []ast.Stmt{
				&ast.Return{Expr: &ast.Unary{Op: ast.UnaryOp(-1), X: ast.NewNumber(1)}},
			}},
			err: &InvalidOperatorError{},
		},
		{
			name: "missing_expr",
			p: &ast.Program{Stmts: []ast.Stmt{
				&ast.Assign{Name: "x"},
			}},
			err: &ast.MalformedNodeError{},
		},
		{
			name: "nil_stmt",
			p: &ast.Program{Stmts: []ast.Stmt{
				&ast.While{Cond: ast.NewNumber(0), Body: []ast.Stmt{nil}},
			}},
			err: &ast.MalformedNodeError{},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Lower(ctx, tc.p, Config{})
			assert.Nil(t, m)

			switch exp := tc.err.(type) {
			case *InvalidOperatorError:
				require.ErrorAs(t, err, &exp)
			case *ast.MalformedNodeError:
				require.ErrorAs(t, err, &exp)
			}
		})
	}
}

func TestUnboundPosition(t *testing.T) {
	p, err := parse.Parse(context.Background(), []byte("x = 1;\nreturn x + y;"))
	require.NoError(t, err)

	_, err = Lower(context.Background(), p, Config{})

	var ue *UnboundVariableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "y", ue.Name)
	assert.Equal(t, 18, ue.Pos)
}

func TestCases(t *testing.T) {
	files, err := filepath.Glob("testdata/*.md")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		cs, err := casefile.ReadFile(file)
		require.NoError(t, err)

		for _, c := range cs {
			c := c

			t.Run(filepath.Base(file)+"/"+c.Name, func(t *testing.T) {
				runCase(t, c)
			})
		}
	}
}

func runCase(t *testing.T, c casefile.Case) {
	ctx := context.Background()

	p, err := parse.Parse(ctx, []byte(c.Program))
	require.NoError(t, err)

	m, err := Lower(ctx, p, Config{})

	var g *cfg.Graph
	var res int64

	if err == nil {
		g, err = cfg.Build(m.Func())
		require.NoError(t, err)

		err = cfg.Verify(ctx, g)
		require.NoError(t, err, "verify")

		res, err = exec.Run(ctx, m.Func(), exec.Options{})
	}

	for _, a := range c.Assertions {
		switch a.Kind {
		case casefile.KindError:
			assert.ErrorContains(t, err, a.Content, "line %d", a.Line)

			continue
		}

		if !assert.NoError(t, err, "line %d", a.Line) {
			continue
		}

		switch a.Kind {
		case casefile.KindResult:
			exp, perr := strconv.ParseInt(strings.TrimSpace(a.Content), 10, 64)
			require.NoError(t, perr, "line %d", a.Line)

			assert.Equal(t, exp, res, "line %d", a.Line)
		case casefile.KindBlocks:
			assert.Equal(t, a.Lines(), g.Names(), "line %d", a.Line)
		case casefile.KindIR:
			text := m.String()

			for _, l := range a.Lines() {
				assert.Contains(t, text, l, "line %d", a.Line)
			}
		}
	}
}
