package event

import "fmt"

// FundingRateSnapshot carries the instrument's current funding rate
// (per 8h window). The engine annualizes it into the carry input q.
type FundingRateSnapshot struct {
	Market      string
	Rate        float64 // per funding window, e.g. 0.0001 = 1bp per 8h
	TimestampUs int64
	Sequence    int64
}

func (f *FundingRateSnapshot) IdempotencyKey() string {
	return fmt.Sprintf("%s:funding:%d", f.Market, f.Sequence)
}

func (f *FundingRateSnapshot) EventType() EventType { return EventTypeFundingRateSnapshot }

func (f *FundingRateSnapshot) Symbol() string { return f.Market }

func (f *FundingRateSnapshot) SourceSequence() int64 { return f.Sequence }
