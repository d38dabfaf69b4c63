package pagination

import "strconv"

type amountKind uint8

const (
	amountUnset amountKind = iota
	amountExact
	amountUnbounded
)

// Amount is how many records a caller wants: Exactly(n), Unbounded(), or
// unset (the zero value), which each endpoint resolves to its own default.
type Amount struct {
	kind amountKind
	n    int
}

// Exactly requests at most n records. Negative values are treated as zero.
func Exactly(n int) Amount {
	if n < 0 {
		n = 0
	}
	return Amount{kind: amountExact, n: n}
}

// Unbounded requests every record the service is willing to return.
func Unbounded() Amount {
	return Amount{kind: amountUnbounded}
}

// IsUnset reports whether the amount is the zero value.
func (a Amount) IsUnset() bool { return a.kind == amountUnset }

// IsUnbounded reports whether the amount has no upper limit.
func (a Amount) IsUnbounded() bool { return a.kind == amountUnbounded }

// Count returns the finite limit. ok is false for unset and unbounded amounts.
func (a Amount) Count() (n int, ok bool) {
	if a.kind != amountExact {
		return 0, false
	}
	return a.n, true
}

func (a Amount) String() string {
	switch a.kind {
	case amountExact:
		return strconv.Itoa(a.n)
	case amountUnbounded:
		return "unbounded"
	default:
		return "default"
	}
}

// budget tracks what is still wanted while pages are being fetched.
// n may go negative, which simply means nothing more is wanted.
type budget struct {
	unbounded bool
	n         int
}

func newBudget(a Amount) budget {
	if a.IsUnbounded() {
		return budget{unbounded: true}
	}
	n, _ := a.Count()
	return budget{n: n}
}

func (b budget) wantsMore() bool {
	return b.unbounded || b.n > 0
}

// number is the page size to ask for next. Never below one: the service
// treats zero as "its own default", which can exceed what was asked for.
func (b budget) number(pageSize int) int {
	if b.unbounded || b.n >= pageSize {
		return pageSize
	}
	if b.n < 1 {
		return 1
	}
	return b.n
}

func (b *budget) consume(pageSize int) {
	if !b.unbounded {
		b.n -= pageSize
	}
}
