package cfg

import (
	"context"
	"slices"

	llvm "github.com/llir/llvm/ir"
	"github.com/nikandfor/hacked/hfmt"
	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/toy/compiler/set"
)

type (
	// Graph is the control flow graph of one routine.
	// Blocks are in function order, entry first.
	Graph struct {
		Name   string
		Blocks []Block
	}

	Block struct {
		Index int
		Name  string

		Preds []int
		// Succs is -1 for a branch target outside of the routine.
		Succs []int

		Insts int
		Term  string
	}

	VerifyError struct {
		Block  string
		Reason string
	}
)

// Terminator kinds.
const (
	TermNone        = ""
	TermRet         = "ret"
	TermBr          = "br"
	TermCondBr      = "condbr"
	TermUnreachable = "unreachable"
)

func Build(f *llvm.Func) (*Graph, error) {
	if f == nil {
		return nil, errors.New("nil func")
	}

	if len(f.Blocks) == 0 {
		return nil, errors.New("func %v has no body", f.Name())
	}

	g := &Graph{
		Name:   f.Name(),
		Blocks: make([]Block, len(f.Blocks)),
	}

	index := make(map[*llvm.Block]int, len(f.Blocks))

	for i, b := range f.Blocks {
		index[b] = i
	}

	for i, b := range f.Blocks {
		blk := &g.Blocks[i]

		blk.Index = i
		blk.Name = b.Name()
		blk.Insts = len(b.Insts)
		blk.Term = termKind(b.Term)

		if b.Term == nil {
			continue
		}

		for _, s := range b.Term.Succs() {
			j, ok := index[s]
			if !ok {
				blk.Succs = append(blk.Succs, -1)
				continue
			}

			blk.Succs = append(blk.Succs, j)

			if !slices.Contains(g.Blocks[j].Preds, i) {
				g.Blocks[j].Preds = append(g.Blocks[j].Preds, i)
			}
		}
	}

	return g, nil
}

// Verify checks the graph is well formed:
// each block has a terminator, branches stay inside the routine,
// nothing jumps back to entry and predecessor lists agree with
// the edges of reachable blocks.
func Verify(ctx context.Context, g *Graph) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "verify", "func", g.Name, "blocks", len(g.Blocks))
	defer tr.Finish("err", &err)

	if len(g.Blocks) == 0 {
		return &VerifyError{Reason: "no blocks"}
	}

	for _, b := range g.Blocks {
		if b.Term == TermNone {
			return &VerifyError{Block: b.Name, Reason: "no terminator"}
		}

		for _, s := range b.Succs {
			if s < 0 || s >= len(g.Blocks) {
				return &VerifyError{Block: b.Name, Reason: "branch target outside of routine"}
			}
		}
	}

	if len(g.Blocks[0].Preds) != 0 {
		return &VerifyError{Block: g.Blocks[0].Name, Reason: "entry block has predecessors"}
	}

	r := Reachable(g)

	var verr *VerifyError

	r.Range(func(i int) bool {
		if b := &g.Blocks[i]; i != 0 && len(b.Preds) == 0 {
			verr = &VerifyError{Block: b.Name, Reason: "reachable block has no predecessors"}
		}

		return verr == nil
	})

	if verr != nil {
		return verr
	}

	r.Range(func(i int) bool {
		b := &g.Blocks[i]

		for _, s := range b.Succs {
			if !slices.Contains(g.Blocks[s].Preds, i) {
				verr = &VerifyError{Block: g.Blocks[s].Name, Reason: "predecessor " + b.Name + " is missing"}
				return false
			}
		}

		return true
	})

	if verr != nil {
		return verr
	}

	tr.V("cfg").Printw("reachable", "blocks", r, "of", len(g.Blocks))

	return nil
}

// Reachable returns indexes of blocks reachable from entry.
func Reachable(g *Graph) set.Bitmap {
	seen := set.MakeBitmap(len(g.Blocks))

	if len(g.Blocks) == 0 {
		return seen
	}

	q := heap.Heap[int]{Less: func(d []int, i, j int) bool { return d[i] < d[j] }}

	q.Push(0)
	seen.Set(0)

	for q.Len() != 0 {
		i := q.Pop()

		for _, s := range g.Blocks[i].Succs {
			if s < 0 || s >= len(g.Blocks) || seen.IsSet(s) {
				continue
			}

			seen.Set(s)
			q.Push(s)
		}
	}

	return seen
}

// Unreachable returns indexes of blocks no path from entry gets to.
func Unreachable(g *Graph) set.Bitmap {
	u := set.MakeBitmap(len(g.Blocks))

	for i := range g.Blocks {
		u.Set(i)
	}

	u.AndNot(Reachable(g))

	return u
}

// Append appends a text dump of the graph, one block per line.
// Unreachable blocks are marked.
func Append(b []byte, g *Graph) []byte {
	b = hfmt.Appendf(b, "func %s\n", g.Name)

	dead := Unreachable(g)

	for i, blk := range g.Blocks {
		b = hfmt.Appendf(b, "  %-14s insts %2d  %-6s", blk.Name, blk.Insts, blk.Term)

		if len(blk.Succs) != 0 {
			b = append(b, " ->"...)
		}

		for _, s := range blk.Succs {
			b = append(b, ' ')
			b = append(b, g.name(s)...)
		}

		if len(blk.Preds) != 0 {
			b = append(b, "  <-"...)
		}

		for _, p := range blk.Preds {
			b = append(b, ' ')
			b = append(b, g.name(p)...)
		}

		if dead.IsSet(i) {
			b = append(b, "  (unreachable)"...)
		}

		b = append(b, '\n')
	}

	return b
}

// Names returns block names in function order.
func (g *Graph) Names() []string {
	l := make([]string, len(g.Blocks))

	for i, b := range g.Blocks {
		l[i] = b.Name
	}

	return l
}

// Equal reports whether graphs have the same shape and names.
func Equal(a, b *Graph) bool {
	if a.Name != b.Name || len(a.Blocks) != len(b.Blocks) {
		return false
	}

	for i := range a.Blocks {
		x, y := &a.Blocks[i], &b.Blocks[i]

		if x.Name != y.Name || x.Insts != y.Insts || x.Term != y.Term ||
			!slices.Equal(x.Preds, y.Preds) || !slices.Equal(x.Succs, y.Succs) {
			return false
		}
	}

	return true
}

func (g *Graph) name(i int) string {
	if i < 0 || i >= len(g.Blocks) {
		return "?"
	}

	return g.Blocks[i].Name
}

func termKind(t llvm.Terminator) string {
	switch t.(type) {
	case nil:
		return TermNone
	case *llvm.TermRet:
		return TermRet
	case *llvm.TermBr:
		return TermBr
	case *llvm.TermCondBr:
		return TermCondBr
	case *llvm.TermUnreachable:
		return TermUnreachable
	default:
		return "other"
	}
}

func (e *VerifyError) Error() string {
	if e.Block == "" {
		return "verify: " + e.Reason
	}

	return "verify: block " + e.Block + ": " + e.Reason
}
