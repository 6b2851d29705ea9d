package gaps

// Budget is the gap-segment allowance shared by every container in one sweep.
// A nil Budget is unlimited. It is not safe for concurrent use.
type Budget struct {
	remaining int
	exhausted bool
}

// NewBudget returns a budget allowing n segments.
func NewBudget(n int) *Budget {
	return &Budget{remaining: n}
}

// Take claims one segment. Once it returns false every later call does too.
func (b *Budget) Take() bool {
	if b == nil {
		return true
	}
	if b.remaining <= 0 {
		b.exhausted = true
		return false
	}
	b.remaining--
	if b.remaining == 0 {
		b.exhausted = true
	}
	return true
}

// Remaining reports how many segments may still be emitted.
func (b *Budget) Remaining() int {
	if b == nil {
		return -1
	}
	return b.remaining
}

// Exhausted reports whether the allowance has been used up.
func (b *Budget) Exhausted() bool {
	return b != nil && b.exhausted
}
