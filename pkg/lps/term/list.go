package term

import (
	"strings"

	"github.com/cognicore/lps/pkg/lps/internalerr"
)

// List is a cons-style list: the Head elements followed by Tail. A nil Tail
// ends the list; a Var tail makes it open ([a, b | T]).
type List struct {
	Head []Term
	Tail Term
}

// NewList builds a list, merging a List tail into the head so every list
// has a canonical shape.
func NewList(head []Term, tail Term) Term {
	for {
		l, ok := tail.(List)
		if !ok {
			break
		}
		merged := make([]Term, 0, len(head)+len(l.Head))
		merged = append(merged, head...)
		merged = append(merged, l.Head...)
		head, tail = merged, l.Tail
	}
	if len(head) == 0 && tail != nil {
		return tail
	}
	return List{Head: head, Tail: tail}
}

// Empty is the empty list.
var Empty = List{}

func (List) sealed() {}

// IsEmpty reports whether the list has no elements and no tail.
func (l List) IsEmpty() bool { return len(l.Head) == 0 && l.Tail == nil }

// Uncons splits off the first element. The rest is a List or, for an open
// list, the tail variable. ok is false for the empty list.
func (l List) Uncons() (first, rest Term, ok bool) {
	if len(l.Head) == 0 {
		if l.Tail == nil {
			return nil, nil, false
		}
		if tl, isList := l.Tail.(List); isList {
			return tl.Uncons()
		}
		return nil, nil, false
	}
	if len(l.Head) == 1 && l.Tail != nil {
		return l.Head[0], l.Tail, true
	}
	return l.Head[0], List{Head: l.Head[1:], Tail: l.Tail}, true
}

// Flatten returns the elements of a proper list. Lists ending in a variable
// cannot be flattened.
func (l List) Flatten() ([]Term, error) {
	out := append([]Term(nil), l.Head...)
	tail := l.Tail
	for tail != nil {
		switch t := tail.(type) {
		case List:
			out = append(out, t.Head...)
			tail = t.Tail
		default:
			return nil, internalerr.ErrImproperList
		}
	}
	return out, nil
}

func (l List) Variables() []string {
	if l.Tail == nil {
		return collect(l.Head...)
	}
	return collect(append(append([]Term(nil), l.Head...), l.Tail)...)
}

func (l List) IsGround() bool {
	for _, h := range l.Head {
		if !h.IsGround() {
			return false
		}
	}
	return l.Tail == nil || l.Tail.IsGround()
}

func (l List) Substitute(theta Theta) Term {
	if theta.Len() == 0 || l.IsEmpty() {
		return l
	}
	var tail Term
	if l.Tail != nil {
		tail = l.Tail.Substitute(theta)
	}
	return NewList(substituteAll(l.Head, theta), tail)
}

func (l List) String() string {
	var b strings.Builder
	b.WriteByte('[')
	writeJoined(&b, l.Head)
	if l.Tail != nil {
		b.WriteString(" | ")
		b.WriteString(l.Tail.String())
	}
	b.WriteByte(']')
	return b.String()
}
