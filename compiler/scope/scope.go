package scope

import (
	"fmt"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/tlwire"
)

type (
	ID int

	// Arena owns every scope of one traversal.
	// Parent links are indexes, so a discarded scope never dangles.
	Arena[S any] struct {
		scopes []scope[S]
		live   []ID
	}

	scope[S any] struct {
		parent ID
		depth  int
		exited bool

		names map[string]S
	}

	OrderError struct {
		Exit  ID
		Inner ID
	}
)

const None ID = -1

func New[S any]() *Arena[S] {
	return &Arena[S]{}
}

func (a *Arena[S]) Enter(parent ID) ID {
	depth := 0

	if parent != None {
		p := a.get(parent)
		depth = p.depth + 1
	}

	id := ID(len(a.scopes))

	a.scopes = append(a.scopes, scope[S]{
		parent: parent,
		depth:  depth,
	})

	a.live = append(a.live, id)

	tlog.V("scope").Printw("enter scope", "id", id, "parent", parent, "depth", depth, "from", loc.Caller(1))

	return id
}

// Exit discards the scope. Only the innermost live scope can be exited.
func (a *Arena[S]) Exit(id ID) error {
	if l := len(a.live); l == 0 || a.live[l-1] != id {
		inner := None
		if l != 0 {
			inner = a.live[l-1]
		}

		return &OrderError{Exit: id, Inner: inner}
	}

	s := a.get(id)
	s.exited = true
	s.names = nil

	a.live = a.live[:len(a.live)-1]

	tlog.V("scope").Printw("exit scope", "id", id, "from", loc.Caller(1))

	return nil
}

// Declare binds name in the scope itself, replacing a previous binding
// in the same scope. Ancestors are not touched.
func (a *Arena[S]) Declare(id ID, name string, slot S) {
	s := a.get(id)

	if s.names == nil {
		s.names = make(map[string]S)
	}

	s.names[name] = slot

	tlog.V("scope,declare").Printw("declare", "scope", id, "name", name, "from", loc.Caller(1))
}

// Resolve finds the nearest enclosing declaration of name.
func (a *Arena[S]) Resolve(id ID, name string) (slot S, ok bool) {
	for id != None {
		s := a.get(id)

		slot, ok = s.names[name]
		if ok {
			return slot, true
		}

		id = s.parent
	}

	return slot, false
}

func (a *Arena[S]) Parent(id ID) ID {
	return a.get(id).parent
}

func (a *Arena[S]) Depth(id ID) int {
	return a.get(id).depth
}

func (a *Arena[S]) Live() int {
	return len(a.live)
}

func (a *Arena[S]) get(id ID) *scope[S] {
	if id < 0 || int(id) >= len(a.scopes) {
		panic(fmt.Sprintf("scope %d: no such scope", id))
	}

	s := &a.scopes[id]
	if s.exited {
		panic(fmt.Sprintf("scope %d: used after exit", id))
	}

	return s
}

func (a *Arena[S]) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)

	b = e.AppendKeyInt(b, "scopes", len(a.scopes))
	b = e.AppendString(b, "live")
	b = e.AppendTag(b, tlwire.Array, len(a.live))

	for _, id := range a.live {
		b = e.AppendInt(b, int(id))
	}

	return b
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("exit scope %d: innermost live scope is %d", e.Exit, e.Inner)
}
