package parse

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/toy/compiler/ast"
)

type (
	parser struct {
		b []byte
	}

	SyntaxError struct {
		Pos  int
		Line int
		Col  int
		Msg  string

		// EOF is set when the input ended too early.
		EOF bool
	}

	binop struct {
		tok punct
		op  ast.BinaryOp
	}
)

// levels lists binary operators from the loosest binding up.
var levels = [][]binop{
	{{"||", ast.Or}},
	{{"&&", ast.And}},
	{{"==", ast.Eq}, {"!=", ast.Ne}, {"<", ast.Lt}, {">", ast.Gt}, {"<=", ast.Le}, {">=", ast.Ge}},
	{{"+", ast.Add}, {"-", ast.Sub}},
	{{"*", ast.Mul}, {"/", ast.SDiv}, {"%", ast.SRem}},
}

func ParseFile(ctx context.Context, name string) (*ast.Program, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return Parse(ctx, text)
}

func Parse(ctx context.Context, text []byte) (x *ast.Program, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "parse", "size", len(text))
	defer tr.Finish("err", &err)

	p := &parser{b: text}

	return p.program()
}

// Incomplete reports whether err is a syntax error caused by
// input that ended too early.
func Incomplete(err error) bool {
	var se *SyntaxError

	return errors.As(err, &se) && se.EOF
}

func (p *parser) program() (*ast.Program, error) {
	var stmts []ast.Stmt

	i := 0

	for {
		t, _, _, err := p.token(i)
		if err != nil {
			return nil, err
		}

		if _, ok := t.(eof); ok {
			break
		}

		var s ast.Stmt

		s, i, err = p.stmt(i)
		if err != nil {
			return nil, err
		}

		if s != nil {
			stmts = append(stmts, s)
		}
	}

	x, err := ast.NewProgram(stmts...)
	if err != nil {
		return nil, err
	}

	x.Base = ast.Base{Pos: 0, End: len(p.b)}

	return x, nil
}

// stmt returns nil Stmt for an empty statement.
func (p *parser) stmt(st int) (x ast.Stmt, i int, err error) {
	t, pos, i, err := p.token(st)
	if err != nil {
		return nil, st, err
	}

	switch t {
	case punct(";"):
		return nil, i, nil
	case ident("return"):
		return p.returnStmt(pos, i)
	case ident("if"):
		return p.ifStmt(pos, i)
	case ident("while"):
		return p.whileStmt(pos, i)
	}

	name, ok := t.(ident)
	if !ok || keywords[name] {
		return nil, st, p.unexpected(t, pos, "statement")
	}

	i, err = p.expect(i, "=")
	if err != nil {
		return nil, st, err
	}

	e, i, err := p.expr(i)
	if err != nil {
		return nil, st, err
	}

	i, err = p.expect(i, ";")
	if err != nil {
		return nil, st, err
	}

	a, err := ast.NewAssign(string(name), e)
	if err != nil {
		return nil, st, err
	}

	a.Base = ast.Base{Pos: pos, End: i}

	return a, i, nil
}

func (p *parser) returnStmt(pos, st int) (x ast.Stmt, i int, err error) {
	e, i, err := p.expr(st)
	if err != nil {
		return nil, st, err
	}

	i, err = p.expect(i, ";")
	if err != nil {
		return nil, st, err
	}

	r, err := ast.NewReturn(e)
	if err != nil {
		return nil, st, err
	}

	r.Base = ast.Base{Pos: pos, End: i}

	return r, i, nil
}

func (p *parser) ifStmt(pos, st int) (x ast.Stmt, i int, err error) {
	cond, i, err := p.cond(st)
	if err != nil {
		return nil, st, err
	}

	then, i, err := p.block(i)
	if err != nil {
		return nil, st, err
	}

	var els []ast.Stmt

	t, epos, j, err := p.token(i)
	if err != nil {
		return nil, st, err
	}

	if t == ident("else") {
		t, ipos, k, err := p.token(j)
		if err != nil {
			return nil, st, err
		}

		if t == ident("if") {
			var nested ast.Stmt

			nested, i, err = p.ifStmt(ipos, k)
			if err != nil {
				return nil, st, errors.Wrap(err, "else at %d", epos)
			}

			els = []ast.Stmt{nested}
		} else {
			els, i, err = p.block(j)
			if err != nil {
				return nil, st, err
			}
		}
	}

	s, err := ast.NewIf(cond, then, els)
	if err != nil {
		return nil, st, err
	}

	s.Base = ast.Base{Pos: pos, End: i}

	return s, i, nil
}

func (p *parser) whileStmt(pos, st int) (x ast.Stmt, i int, err error) {
	cond, i, err := p.cond(st)
	if err != nil {
		return nil, st, err
	}

	body, i, err := p.block(i)
	if err != nil {
		return nil, st, err
	}

	s, err := ast.NewWhile(cond, body)
	if err != nil {
		return nil, st, err
	}

	s.Base = ast.Base{Pos: pos, End: i}

	return s, i, nil
}

func (p *parser) cond(st int) (x ast.Expr, i int, err error) {
	i, err = p.expect(st, "(")
	if err != nil {
		return nil, st, err
	}

	x, i, err = p.expr(i)
	if err != nil {
		return nil, st, err
	}

	i, err = p.expect(i, ")")
	if err != nil {
		return nil, st, err
	}

	return x, i, nil
}

func (p *parser) block(st int) (l []ast.Stmt, i int, err error) {
	i, err = p.expect(st, "{")
	if err != nil {
		return nil, st, err
	}

	for {
		t, _, j, err := p.token(i)
		if err != nil {
			return nil, st, err
		}

		if t == punct("}") {
			return l, j, nil
		}

		var s ast.Stmt

		s, i, err = p.stmt(i)
		if err != nil {
			return nil, st, err
		}

		if s != nil {
			l = append(l, s)
		}
	}
}

func (p *parser) expr(st int) (x ast.Expr, i int, err error) {
	return p.binary(0, st)
}

func (p *parser) binary(level, st int) (x ast.Expr, i int, err error) {
	if level == len(levels) {
		return p.unary(st)
	}

	x, i, err = p.binary(level+1, st)
	if err != nil {
		return nil, st, err
	}

loop:
	for {
		t, _, j, err := p.token(i)
		if err != nil {
			return nil, st, err
		}

		var op ast.BinaryOp
		found := false

		for _, o := range levels[level] {
			if t == o.tok {
				op, found = o.op, true
				break
			}
		}

		if !found {
			break loop
		}

		r, k, err := p.binary(level+1, j)
		if err != nil {
			return nil, st, err
		}

		b, err := ast.NewBinary(op, x, r)
		if err != nil {
			return nil, st, err
		}

		b.Base = ast.Base{Pos: pos(x), End: k}

		x, i = b, k
	}

	return x, i, nil
}

func (p *parser) unary(st int) (x ast.Expr, i int, err error) {
	t, tpos, i, err := p.token(st)
	if err != nil {
		return nil, st, err
	}

	switch t := t.(type) {
	case punct:
		switch t {
		case "(":
			x, i, err = p.expr(i)
			if err != nil {
				return nil, st, err
			}

			i, err = p.expect(i, ")")
			if err != nil {
				return nil, st, err
			}

			return x, i, nil
		case "-", "!":
		default:
			return nil, st, p.unexpected(t, tpos, "expression")
		}

		if t == "-" {
			if n, _, j, err := p.token(i); err == nil {
				if n, ok := n.(number); ok {
					return p.number("-"+string(n), tpos, j)
				}
			}
		}

		op := ast.Neg
		if t == "!" {
			op = ast.Not
		}

		arg, j, err := p.unary(i)
		if err != nil {
			return nil, st, err
		}

		u, err := ast.NewUnary(op, arg)
		if err != nil {
			return nil, st, err
		}

		u.Base = ast.Base{Pos: tpos, End: j}

		return u, j, nil
	case number:
		return p.number(string(t), tpos, i)
	case ident:
		if keywords[t] {
			return nil, st, p.unexpected(t, tpos, "expression")
		}

		v, err := ast.NewVar(string(t))
		if err != nil {
			return nil, st, err
		}

		v.Base = ast.Base{Pos: tpos, End: i}

		return v, i, nil
	default:
		return nil, st, p.unexpected(t, tpos, "expression")
	}
}

func (p *parser) number(s string, pos, end int) (ast.Expr, int, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, pos, p.errorf(pos, "number out of range: %s", s)
	}

	n := ast.NewNumber(v)
	n.Base = ast.Base{Pos: pos, End: end}

	return n, end, nil
}

func pos(x ast.Expr) int {
	switch x := x.(type) {
	case *ast.Binary:
		return x.Pos
	case *ast.Unary:
		return x.Pos
	case *ast.Var:
		return x.Pos
	case *ast.Number:
		return x.Pos
	}

	return 0
}

func (p *parser) expect(st int, want punct) (i int, err error) {
	t, pos, i, err := p.token(st)
	if err != nil {
		return st, err
	}

	if t != want {
		return st, p.unexpected(t, pos, fmt.Sprintf("%q", string(want)))
	}

	return i, nil
}

func (p *parser) unexpected(t token, pos int, want string) error {
	err := p.errorf(pos, "%s expected, got %s", want, describe(t))

	if _, ok := t.(eof); ok {
		err.EOF = true
	}

	return err
}

func (p *parser) errorf(pos int, format string, args ...any) *SyntaxError {
	line := bytes.Count(p.b[:pos], []byte{'\n'}) + 1
	col := pos - bytes.LastIndexByte(p.b[:pos], '\n')

	return &SyntaxError{
		Pos:  pos,
		Line: line,
		Col:  col,
		Msg:  fmt.Sprintf(format, args...),
	}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}
