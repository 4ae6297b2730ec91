package session

// Navigator tracks the current question using 1-based indices. Moves
// saturate at the bounds and never wrap; out-of-range jumps are rejected
// without changing position.
type Navigator struct {
	current int
	total   int
}

// NewNavigator starts at question 1.
func NewNavigator(total int) *Navigator {
	return &Navigator{current: 1, total: total}
}

// Current returns the focused 1-based question index.
func (n *Navigator) Current() int {
	return n.current
}

// Next advances by one; reports whether the position changed.
func (n *Navigator) Next() bool {
	if n.current >= n.total {
		return false
	}
	n.current++
	return true
}

// Previous steps back by one; reports whether the position changed.
func (n *Navigator) Previous() bool {
	if n.current <= 1 {
		return false
	}
	n.current--
	return true
}

// JumpTo moves to an arbitrary question; rejects indices outside [1, total].
func (n *Navigator) JumpTo(index int) bool {
	if index < 1 || index > n.total {
		return false
	}
	n.current = index
	return true
}
