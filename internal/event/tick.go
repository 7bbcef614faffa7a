package event

import "fmt"

// TickUpdate is one price observation from the market-data feed.
type TickUpdate struct {
	Market      string
	Price       float64 // trade or mid price; must be > 0 to be accepted
	Bid         float64 // optional top-of-book, 0 when absent
	Ask         float64
	TimestampUs int64 // epoch microseconds (versioned input)
	Sequence    int64 // monotonic per market, 0 if the feed is unsequenced
}

func (t *TickUpdate) IdempotencyKey() string {
	return fmt.Sprintf("%s:tick:%d", t.Market, t.Sequence)
}

func (t *TickUpdate) EventType() EventType { return EventTypeTickUpdate }

func (t *TickUpdate) Symbol() string { return t.Market }

func (t *TickUpdate) SourceSequence() int64 { return t.Sequence }
