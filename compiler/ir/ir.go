package ir

type (
	// Value, Block and Slot are opaque handles owned by a Builder.
	Value interface{ Ident() string }
	Block interface{ Ident() string }
	Slot  interface{ Ident() string }

	// Builder is what lowering needs from an IR backend.
	// A block accepts instructions until it gets its terminator
	// (Br, CondBr or Ret), then it accepts nothing.
	Builder interface {
		NewBlock(name string) Block
		SetInsertBlock(b Block)
		InsertBlock() Block
		Terminated(b Block) bool

		Const(v int64) Value

		Add(l, r Value) Value
		Sub(l, r Value) Value
		Mul(l, r Value) Value
		SDiv(l, r Value) Value
		SRem(l, r Value) Value
		And(l, r Value) Value
		Or(l, r Value) Value
		ICmp(p Pred, l, r Value) Value
		Neg(x Value) Value
		Not(x Value) Value

		// Alloca reserves an i64 slot in the entry block
		// no matter which block is current.
		Alloca(name string) Slot
		Load(s Slot) Value
		Store(v Value, s Slot)

		Br(to Block)
		CondBr(cond Value, then, els Block)
		Ret(v Value)
	}

	Pred int
)

const (
	EQ Pred = iota
	NE
	SLT
	SGT
	SLE
	SGE
)

func (p Pred) String() string {
	switch p {
	case EQ:
		return "eq"
	case NE:
		return "ne"
	case SLT:
		return "slt"
	case SGT:
		return "sgt"
	case SLE:
		return "sle"
	case SGE:
		return "sge"
	default:
		return "pred?"
	}
}
