package exec

import (
	"context"
	"fmt"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	Options struct {
		// MaxSteps bounds executed instructions. 0 means DefaultMaxSteps.
		MaxSteps int
	}

	BudgetError struct {
		Steps int
	}

	UnsupportedError struct {
		Inst string
	}

	UninitializedError struct {
		Slot string
	}

	frame struct {
		vals map[value.Value]int64
		mem  map[*llvm.InstAlloca]int64
	}
)

const DefaultMaxSteps = 1 << 20

var (
	ErrDivByZero   = errors.New("division by zero")
	ErrUnreachable = errors.New("unreachable executed")
)

// Run executes f, which must take no arguments and return i64.
func Run(ctx context.Context, f *llvm.Func, opts Options) (ret int64, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "exec", "func", f.Name())
	defer tr.Finish("ret", &ret, "err", &err)

	if len(f.Blocks) == 0 {
		return 0, errors.New("func %v has no body", f.Name())
	}

	limit := opts.MaxSteps
	if limit == 0 {
		limit = DefaultMaxSteps
	}

	fr := &frame{
		vals: make(map[value.Value]int64),
		mem:  make(map[*llvm.InstAlloca]int64),
	}

	steps := 0
	b := f.Blocks[0]

	for {
		tr.V("exec").Printw("block", "name", b.Name(), "steps", steps)

		for _, inst := range b.Insts {
			steps++
			if steps > limit {
				return 0, &BudgetError{Steps: limit}
			}

			if steps%1024 == 0 {
				if err = ctx.Err(); err != nil {
					return 0, errors.Wrap(err, "block %v", b.Name())
				}
			}

			err = fr.step(inst)
			if err != nil {
				return 0, errors.Wrap(err, "block %v", b.Name())
			}
		}

		switch t := b.Term.(type) {
		case *llvm.TermRet:
			if t.X == nil {
				return 0, errors.New("block %v: void return", b.Name())
			}

			return fr.eval(t.X)
		case *llvm.TermBr:
			b = t.Succs()[0]
		case *llvm.TermCondBr:
			c, err := fr.eval(t.Cond)
			if err != nil {
				return 0, errors.Wrap(err, "block %v", b.Name())
			}

			succs := t.Succs()

			if c != 0 {
				b = succs[0]
			} else {
				b = succs[1]
			}
		case *llvm.TermUnreachable:
			return 0, errors.Wrap(ErrUnreachable, "block %v", b.Name())
		case nil:
			return 0, errors.New("block %v: no terminator", b.Name())
		default:
			return 0, &UnsupportedError{Inst: t.LLString()}
		}
	}
}

func (fr *frame) step(inst llvm.Instruction) (err error) {
	switch x := inst.(type) {
	case *llvm.InstAlloca:
		delete(fr.mem, x)

		return nil
	case *llvm.InstLoad:
		a, ok := x.Src.(*llvm.InstAlloca)
		if !ok {
			return &UnsupportedError{Inst: x.LLString()}
		}

		v, ok := fr.mem[a]
		if !ok {
			return &UninitializedError{Slot: a.Ident()}
		}

		fr.vals[x] = v

		return nil
	case *llvm.InstStore:
		a, ok := x.Dst.(*llvm.InstAlloca)
		if !ok {
			return &UnsupportedError{Inst: x.LLString()}
		}

		v, err := fr.eval(x.Src)
		if err != nil {
			return err
		}

		fr.mem[a] = v

		return nil
	case *llvm.InstZExt:
		v, err := fr.eval(x.From)
		if err != nil {
			return err
		}

		fr.vals[x] = v

		return nil
	case *llvm.InstICmp:
		return fr.binary(x, x.X, x.Y, func(a, b int64) (int64, error) {
			return icmp(x.Pred, a, b)
		})
	case *llvm.InstAdd:
		return fr.binary(x, x.X, x.Y, func(a, b int64) (int64, error) { return a + b, nil })
	case *llvm.InstSub:
		return fr.binary(x, x.X, x.Y, func(a, b int64) (int64, error) { return a - b, nil })
	case *llvm.InstMul:
		return fr.binary(x, x.X, x.Y, func(a, b int64) (int64, error) { return a * b, nil })
	case *llvm.InstSDiv:
		return fr.binary(x, x.X, x.Y, func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, ErrDivByZero
			}

			return a / b, nil
		})
	case *llvm.InstSRem:
		return fr.binary(x, x.X, x.Y, func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, ErrDivByZero
			}

			return a % b, nil
		})
	case *llvm.InstAnd:
		return fr.binary(x, x.X, x.Y, func(a, b int64) (int64, error) { return a & b, nil })
	case *llvm.InstOr:
		return fr.binary(x, x.X, x.Y, func(a, b int64) (int64, error) { return a | b, nil })
	case *llvm.InstXor:
		return fr.binary(x, x.X, x.Y, func(a, b int64) (int64, error) { return a ^ b, nil })
	default:
		return &UnsupportedError{Inst: inst.LLString()}
	}
}

func (fr *frame) binary(dst value.Value, l, r value.Value, op func(a, b int64) (int64, error)) error {
	a, err := fr.eval(l)
	if err != nil {
		return err
	}

	b, err := fr.eval(r)
	if err != nil {
		return err
	}

	v, err := op(a, b)
	if err != nil {
		return err
	}

	if dst.Type().Equal(types.I1) {
		v &= 1
	}

	fr.vals[dst] = v

	return nil
}

func (fr *frame) eval(v value.Value) (int64, error) {
	switch v := v.(type) {
	case *constant.Int:
		return v.X.Int64(), nil
	}

	x, ok := fr.vals[v]
	if !ok {
		return 0, errors.New("value %v used before definition", v.Ident())
	}

	return x, nil
}

func icmp(p enum.IPred, a, b int64) (int64, error) {
	var r bool

	switch p {
	case enum.IPredEQ:
		r = a == b
	case enum.IPredNE:
		r = a != b
	case enum.IPredSLT:
		r = a < b
	case enum.IPredSGT:
		r = a > b
	case enum.IPredSLE:
		r = a <= b
	case enum.IPredSGE:
		r = a >= b
	default:
		return 0, &UnsupportedError{Inst: "icmp " + p.String()}
	}

	if r {
		return 1, nil
	}

	return 0, nil
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("step budget exhausted: %d", e.Steps)
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported instruction: %s", e.Inst)
}

func (e *UninitializedError) Error() string {
	return fmt.Sprintf("load from uninitialized slot %s", e.Slot)
}
