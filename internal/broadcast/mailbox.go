package broadcast

// Mailbox is the single-slot hand-off between the fetch worker and the loop
// goroutine. The worker publishes at most one outcome per fetch; the loop
// takes it exactly once. Both operations never block.
type Mailbox struct {
	slot chan FetchOutcome
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{slot: make(chan FetchOutcome, 1)}
}

// Publish stores the outcome. It returns false, and drops the outcome, when
// an earlier outcome has not been taken yet.
func (m *Mailbox) Publish(o FetchOutcome) bool {
	select {
	case m.slot <- o:
		return true
	default:
		return false
	}
}

// Take removes and returns the pending outcome, if any.
func (m *Mailbox) Take() (FetchOutcome, bool) {
	select {
	case o := <-m.slot:
		return o, true
	default:
		return FetchOutcome{}, false
	}
}

// Pending reports whether an outcome waits to be taken.
func (m *Mailbox) Pending() bool {
	return len(m.slot) > 0
}
