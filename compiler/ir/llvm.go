package ir

import (
	"fmt"
	"io"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

type (
	// Module builds one LLVM module with a single entry routine
	// of type i64 () on top of llir.
	Module struct {
		m *llvm.Module
		f *llvm.Func

		entry *llvm.Block
		cur   *llvm.Block

		slots int
	}
)

const (
	DefaultModuleName = "a module"
	DefaultEntryName  = "main"
)

var _ Builder = (*Module)(nil)

func NewModule(name, entry string) *Module {
	if name == "" {
		name = DefaultModuleName
	}

	if entry == "" {
		entry = DefaultEntryName
	}

	m := llvm.NewModule()
	m.SourceFilename = name

	f := m.NewFunc(entry, types.I64)
	b := f.NewBlock("entry")

	return &Module{
		m:     m,
		f:     f,
		entry: b,
		cur:   b,
	}
}

func (m *Module) NewBlock(name string) Block {
	b := m.f.NewBlock(name)

	tlog.V("block").Printw("new block", "name", name, "index", len(m.f.Blocks)-1, "from", loc.Caller(1))

	return b
}

func (m *Module) SetInsertBlock(b Block) {
	m.cur = block(b)
}

func (m *Module) InsertBlock() Block {
	return m.cur
}

func (m *Module) Terminated(b Block) bool {
	return block(b).Term != nil
}

func (m *Module) Const(v int64) Value {
	return constant.NewInt(types.I64, v)
}

func (m *Module) Add(l, r Value) Value  { return m.open().NewAdd(m.int(l), m.int(r)) }
func (m *Module) Sub(l, r Value) Value  { return m.open().NewSub(m.int(l), m.int(r)) }
func (m *Module) Mul(l, r Value) Value  { return m.open().NewMul(m.int(l), m.int(r)) }
func (m *Module) SDiv(l, r Value) Value { return m.open().NewSDiv(m.int(l), m.int(r)) }
func (m *Module) SRem(l, r Value) Value { return m.open().NewSRem(m.int(l), m.int(r)) }

func (m *Module) And(l, r Value) Value {
	x, y := m.logic(l, r)

	return m.open().NewAnd(x, y)
}

func (m *Module) Or(l, r Value) Value {
	x, y := m.logic(l, r)

	return m.open().NewOr(x, y)
}

func (m *Module) ICmp(p Pred, l, r Value) Value {
	return m.open().NewICmp(ipred(p), m.int(l), m.int(r))
}

func (m *Module) Neg(x Value) Value {
	return m.open().NewSub(constant.NewInt(types.I64, 0), m.int(x))
}

// Not is logical on truth values and bitwise on integers.
func (m *Module) Not(x Value) Value {
	if v := val(x); isBool(v) {
		return m.open().NewXor(v, constant.True)
	}

	return m.open().NewXor(m.int(x), constant.NewInt(types.I64, -1))
}

func (m *Module) Alloca(name string) Slot {
	a := m.entry.NewAlloca(types.I64)
	a.SetName(name)

	// keep slots together at the top of the entry block
	insts := m.entry.Insts
	copy(insts[m.slots+1:], insts[m.slots:len(insts)-1])
	insts[m.slots] = a

	m.slots++

	return a
}

func (m *Module) Load(s Slot) Value {
	return m.open().NewLoad(types.I64, slot(s))
}

func (m *Module) Store(v Value, s Slot) {
	m.open().NewStore(m.int(v), slot(s))
}

func (m *Module) Br(to Block) {
	m.open().NewBr(block(to))
}

func (m *Module) CondBr(cond Value, then, els Block) {
	b := m.open()

	c := val(cond)
	if !isBool(c) {
		c = b.NewICmp(enum.IPredNE, c, constant.NewInt(types.I64, 0))
	}

	b.NewCondBr(c, block(then), block(els))
}

func (m *Module) Ret(v Value) {
	m.open().NewRet(m.int(v))
}

// Slots is the number of stack slots allocated so far.
func (m *Module) Slots() int { return m.slots }

func (m *Module) Func() *llvm.Func { return m.f }

func (m *Module) LLVM() *llvm.Module { return m.m }

func (m *Module) String() string {
	return m.m.String()
}

func (m *Module) Dump(w io.Writer) error {
	_, err := io.WriteString(w, m.m.String())

	return err
}

func (m *Module) open() *llvm.Block {
	if m.cur.Term != nil {
		panic(fmt.Sprintf("block %v is already terminated", m.cur.Ident()))
	}

	return m.cur
}

// int widens truth values to i64.
func (m *Module) int(v Value) value.Value {
	x := val(v)
	if !isBool(x) {
		return x
	}

	return m.open().NewZExt(x, types.I64)
}

// logic keeps i1 when both operands are truth values.
func (m *Module) logic(l, r Value) (x, y value.Value) {
	x, y = val(l), val(r)

	if isBool(x) && isBool(y) {
		return x, y
	}

	return m.int(l), m.int(r)
}

func isBool(v value.Value) bool {
	return v.Type().Equal(types.I1)
}

func ipred(p Pred) enum.IPred {
	switch p {
	case EQ:
		return enum.IPredEQ
	case NE:
		return enum.IPredNE
	case SLT:
		return enum.IPredSLT
	case SGT:
		return enum.IPredSGT
	case SLE:
		return enum.IPredSLE
	case SGE:
		return enum.IPredSGE
	default:
		panic(p)
	}
}

func val(v Value) value.Value {
	x, ok := v.(value.Value)
	if !ok {
		panic(fmt.Sprintf("foreign value: %T", v))
	}

	return x
}

func block(b Block) *llvm.Block {
	x, ok := b.(*llvm.Block)
	if !ok {
		panic(fmt.Sprintf("foreign block: %T", b))
	}

	return x
}

func slot(s Slot) *llvm.InstAlloca {
	x, ok := s.(*llvm.InstAlloca)
	if !ok {
		panic(fmt.Sprintf("foreign slot: %T", s))
	}

	return x
}
