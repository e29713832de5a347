package lower

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/toy/compiler/ast"
	"github.com/slowlang/toy/compiler/ir"
	"github.com/slowlang/toy/compiler/scope"
)

type (
	Config struct {
		ModuleName string
		EntryName  string
	}

	// lowerer is the state of one lowering pass.
	// Expression handlers leave their result in last.
	lowerer struct {
		tr tlog.Span

		b ir.Builder

		scopes *scope.Arena[ir.Slot]
		cur    scope.ID
		// root is the routine body scope. Slots live there,
		// so a variable is allocated once per routine.
		root scope.ID

		last ir.Value

		seq int
	}
)

// Lower translates p into a fresh LLVM module.
// On error no module is returned.
func Lower(ctx context.Context, p *ast.Program, cfg Config) (m *ir.Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower program", "module", cfg.ModuleName, "entry", cfg.EntryName)
	defer tr.Finish("err", &err)

	m = ir.NewModule(cfg.ModuleName, cfg.EntryName)

	err = LowerInto(ctx, p, m)
	if err != nil {
		return nil, err
	}

	tr.Printw("lowered", "blocks", len(m.Func().Blocks), "slots", m.Slots())

	return m, nil
}

// LowerInto drives b with the program. b must be positioned
// at the entry block of an empty routine.
func LowerInto(ctx context.Context, p *ast.Program, b ir.Builder) error {
	err := ast.Check(p)
	if err != nil {
		return errors.Wrap(err, "check")
	}

	l := &lowerer{
		tr:     tlog.SpanFromContext(ctx),
		b:      b,
		scopes: scope.New[ir.Slot](),
		cur:    scope.None,
		root:   scope.None,
	}

	return p.Accept(l)
}

func (l *lowerer) VisitProgram(x *ast.Program) (err error) {
	err = l.child(x.Stmts)
	if err != nil {
		return err
	}

	if !l.b.Terminated(l.b.InsertBlock()) {
		l.b.Ret(l.b.Const(0))
	}

	return nil
}

func (l *lowerer) VisitAssign(x *ast.Assign) error {
	v, err := l.expr(x.Expr)
	if err != nil {
		return errors.Wrap(err, "assign %v", x.Name)
	}

	s, ok := l.scopes.Resolve(l.cur, x.Name)
	if !ok {
		s = l.b.Alloca(x.Name)
		l.scopes.Declare(l.root, x.Name, s)

		l.tr.V("lower,slot").Printw("new slot", "name", x.Name, "slot", s.Ident(), "scope", l.cur, "root", l.root)
	}

	l.b.Store(v, s)

	return nil
}

func (l *lowerer) VisitReturn(x *ast.Return) error {
	v, err := l.expr(x.Expr)
	if err != nil {
		return errors.Wrap(err, "return")
	}

	l.b.Ret(v)

	return nil
}

func (l *lowerer) VisitIf(x *ast.If) error {
	c, err := l.expr(x.Cond)
	if err != nil {
		return errors.Wrap(err, "if cond")
	}

	n := l.next()

	then := l.b.NewBlock(fmt.Sprintf("if.then.%d", n))
	els := l.b.NewBlock(fmt.Sprintf("if.else.%d", n))
	merge := l.b.NewBlock(fmt.Sprintf("if.end.%d", n))

	l.b.CondBr(c, then, els)

	l.b.SetInsertBlock(then)

	err = l.child(x.Then)
	if err != nil {
		return errors.Wrap(err, "then")
	}

	l.branchTo(merge)

	l.b.SetInsertBlock(els)

	err = l.child(x.Else)
	if err != nil {
		return errors.Wrap(err, "else")
	}

	l.branchTo(merge)

	l.b.SetInsertBlock(merge)

	return nil
}

func (l *lowerer) VisitWhile(x *ast.While) error {
	n := l.next()

	header := l.b.NewBlock(fmt.Sprintf("while.cond.%d", n))
	body := l.b.NewBlock(fmt.Sprintf("while.body.%d", n))
	exit := l.b.NewBlock(fmt.Sprintf("while.end.%d", n))

	l.b.Br(header)

	l.b.SetInsertBlock(header)

	c, err := l.expr(x.Cond)
	if err != nil {
		return errors.Wrap(err, "while cond")
	}

	l.b.CondBr(c, body, exit)

	l.b.SetInsertBlock(body)

	err = l.child(x.Body)
	if err != nil {
		return errors.Wrap(err, "while body")
	}

	l.branchTo(header)

	l.b.SetInsertBlock(exit)

	return nil
}

func (l *lowerer) VisitBinary(x *ast.Binary) error {
	lv, err := l.expr(x.L)
	if err != nil {
		return errors.Wrap(err, "%v lhs", x.Op)
	}

	rv, err := l.expr(x.R)
	if err != nil {
		return errors.Wrap(err, "%v rhs", x.Op)
	}

	switch x.Op {
	case ast.Add:
		l.last = l.b.Add(lv, rv)
	case ast.Sub:
		l.last = l.b.Sub(lv, rv)
	case ast.Mul:
		l.last = l.b.Mul(lv, rv)
	case ast.SDiv:
		l.last = l.b.SDiv(lv, rv)
	case ast.SRem:
		l.last = l.b.SRem(lv, rv)
	case ast.Eq:
		l.last = l.b.ICmp(ir.EQ, lv, rv)
	case ast.Ne:
		l.last = l.b.ICmp(ir.NE, lv, rv)
	case ast.Lt:
		l.last = l.b.ICmp(ir.SLT, lv, rv)
	case ast.Gt:
		l.last = l.b.ICmp(ir.SGT, lv, rv)
	case ast.Le:
		l.last = l.b.ICmp(ir.SLE, lv, rv)
	case ast.Ge:
		l.last = l.b.ICmp(ir.SGE, lv, rv)
	case ast.And:
		l.last = l.b.And(lv, rv)
	case ast.Or:
		l.last = l.b.Or(lv, rv)
	default:
		return &InvalidOperatorError{Node: "binary", Op: int(x.Op)}
	}

	return nil
}

func (l *lowerer) VisitUnary(x *ast.Unary) error {
	v, err := l.expr(x.X)
	if err != nil {
		return errors.Wrap(err, "%v operand", x.Op)
	}

	switch x.Op {
	case ast.Neg:
		l.last = l.b.Neg(v)
	case ast.Not:
		l.last = l.b.Not(v)
	default:
		return &InvalidOperatorError{Node: "unary", Op: int(x.Op)}
	}

	return nil
}

func (l *lowerer) VisitVar(x *ast.Var) error {
	s, ok := l.scopes.Resolve(l.cur, x.Name)
	if !ok {
		return &UnboundVariableError{Name: x.Name, Pos: x.Pos}
	}

	l.last = l.b.Load(s)

	return nil
}

func (l *lowerer) VisitNumber(x *ast.Number) error {
	l.last = l.b.Const(x.Value)

	return nil
}

func (l *lowerer) expr(x ast.Expr) (v ir.Value, err error) {
	err = x.Accept(l)
	if err != nil {
		return nil, err
	}

	v, l.last = l.last, nil

	return v, nil
}

// child lowers stmts in a fresh scope nested in the current one.
func (l *lowerer) child(stmts []ast.Stmt) (err error) {
	par := l.cur
	l.cur = l.scopes.Enter(par)

	if l.root == scope.None {
		l.root = l.cur
	}

	for i, s := range stmts {
		if l.b.Terminated(l.b.InsertBlock()) {
			dead := l.b.NewBlock(fmt.Sprintf("dead.%d", l.next()))
			l.b.SetInsertBlock(dead)
		}

		l.tr.V("lower").Printw("stmt", "i", i, "typ", tlog.NextAsType, s, "scope", l.cur, "from", loc.Caller(1))

		err = s.Accept(l)
		if err != nil {
			return errors.Wrap(err, "stmt %d", i)
		}
	}

	err = l.scopes.Exit(l.cur)
	if err != nil {
		return errors.Wrap(err, "scope")
	}

	l.cur = par

	return nil
}

// branchTo jumps to dst unless the current block already ended itself.
func (l *lowerer) branchTo(dst ir.Block) {
	if l.b.Terminated(l.b.InsertBlock()) {
		return
	}

	l.b.Br(dst)
}

func (l *lowerer) next() int {
	n := l.seq
	l.seq++

	return n
}
