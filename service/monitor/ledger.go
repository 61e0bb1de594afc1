package monitor

import "sync"

const (
	// ledgerMaxEntries is the count above which the ledger compacts.
	ledgerMaxEntries = 1000
	// ledgerRetainEntries is how many of the most recent signatures survive
	// a compaction.
	ledgerRetainEntries = 500
)

// Ledger is a bounded, deduplicating record of already-processed transaction
// signatures. Once the entry count exceeds the upper bound it compacts to the
// most-recently-added suffix.
//
// This is an approximate recency filter, not a true LRU: a very old signature
// that resurfaces after compaction could in theory be reprocessed. That is
// acceptable because the monitor's polling anchor makes resurfacing
// practically impossible.
type Ledger struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	order    []string
	maxSize  int
	retained int
}

// NewLedger creates a ledger with the default bounds.
func NewLedger() *Ledger {
	return newLedgerWithBounds(ledgerMaxEntries, ledgerRetainEntries)
}

func newLedgerWithBounds(maxSize, retained int) *Ledger {
	return &Ledger{
		seen:     make(map[string]struct{}),
		maxSize:  maxSize,
		retained: retained,
	}
}

// Has reports whether the signature was already processed.
func (l *Ledger) Has(signature string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[signature]
	return ok
}

// Add marks the signature as processed. Adding an existing signature is a
// no-op, which makes processing idempotent under overlapping polls.
func (l *Ledger) Add(signature string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[signature]; ok {
		return
	}
	l.seen[signature] = struct{}{}
	l.order = append(l.order, signature)

	if len(l.order) > l.maxSize {
		l.compact()
	}
}

// Len returns the number of signatures currently retained.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// compact keeps only the most recently added suffix. Caller holds l.mu.
func (l *Ledger) compact() {
	cut := len(l.order) - l.retained
	for _, sig := range l.order[:cut] {
		delete(l.seen, sig)
	}
	remaining := make([]string, l.retained)
	copy(remaining, l.order[cut:])
	l.order = remaining
}
