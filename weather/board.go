package weather

import "sync"

// Ticket identifies one search started on a Board.
type Ticket uint64

// Board holds the report to display. When searches overlap, only the one
// started last may publish; results of older searches are dropped.
type Board struct {
	mu      sync.Mutex
	newest  Ticket
	latest  Report
	present bool
}

// Begin registers a new search and returns its ticket.
func (b *Board) Begin() Ticket {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.newest++
	return b.newest
}

// Publish stores r if t is the newest ticket and reports whether it did.
func (b *Board) Publish(t Ticket, r Report) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t != b.newest {
		return false
	}
	b.latest = r
	b.present = true
	return true
}

// Latest returns the last published report.
func (b *Board) Latest() (Report, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.present
}
