package engine

import (
	"sort"
	"sync"

	"MertonQuote/internal/merton"
	"MertonQuote/internal/quote"
)

// MarketSnapshot is the last committed view of one market: the parameter
// estimate, window occupancy, funding carry and the most recent quote.
type MarketSnapshot struct {
	Market           string
	Params           merton.Params
	SampleCount      int
	FundingRatePer8h float64
	LastPrice        float64
	LastTimestampUs  int64
	LastQuote        quote.Quote
	HasQuote         bool
}

// SnapshotStore is the read side of the engine. The engine goroutine writes
// after every processed event; query handlers read concurrently.
type SnapshotStore struct {
	mu      sync.RWMutex
	markets map[string]MarketSnapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		markets: make(map[string]MarketSnapshot),
	}
}

// Set replaces the snapshot for one market as a single store, so a reader
// never observes params from one calibration and a quote from another.
func (s *SnapshotStore) Set(snap MarketSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[snap.Market] = snap
}

// Get returns the snapshot for a market, false when it was never ticked.
func (s *SnapshotStore) Get(market string) (MarketSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.markets[market]
	return snap, ok
}

// Markets lists known markets in sorted order.
func (s *SnapshotStore) Markets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.markets))
	for m := range s.markets {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
