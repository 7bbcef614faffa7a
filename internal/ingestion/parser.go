package ingestion

import (
	"MertonQuote/internal/event"
	"encoding/json"
	"fmt"
)

// ParseRawEvent converts a RawEvent (JSON bytes + event type string) into a
// typed event.Event. The shell parses and validates before anything reaches
// the quote engine; the engine itself never sees malformed input.
func ParseRawEvent(raw RawEvent, eventType string) (event.Event, error) {
	switch eventType {
	case "TickUpdate":
		return parseTickUpdate(raw.Data)
	case "FundingRateSnapshot":
		return parseFundingRateSnapshot(raw.Data)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

// --- JSON wire formats ---
// Field names use snake_case to match upstream producers.

type tickJSON struct {
	Market      string  `json:"market"`
	Price       float64 `json:"price"`
	Bid         float64 `json:"bid,omitempty"`
	Ask         float64 `json:"ask,omitempty"`
	TimestampUs int64   `json:"timestamp_us"`
	Sequence    int64   `json:"sequence,omitempty"`
}

func parseTickUpdate(data []byte) (*event.TickUpdate, error) {
	var j tickJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse TickUpdate: %w", err)
	}
	if j.Market == "" {
		return nil, fmt.Errorf("parse TickUpdate: missing market")
	}
	if j.TimestampUs == 0 {
		return nil, fmt.Errorf("parse TickUpdate: missing timestamp_us")
	}
	return &event.TickUpdate{
		Market:      j.Market,
		Price:       j.Price,
		Bid:         j.Bid,
		Ask:         j.Ask,
		TimestampUs: j.TimestampUs,
		Sequence:    j.Sequence,
	}, nil
}

type fundingJSON struct {
	Market      string  `json:"market"`
	Rate        float64 `json:"funding_rate"`
	TimestampUs int64   `json:"timestamp_us"`
	Sequence    int64   `json:"sequence,omitempty"`
}

func parseFundingRateSnapshot(data []byte) (*event.FundingRateSnapshot, error) {
	var j fundingJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse FundingRateSnapshot: %w", err)
	}
	if j.Market == "" {
		return nil, fmt.Errorf("parse FundingRateSnapshot: missing market")
	}
	return &event.FundingRateSnapshot{
		Market:      j.Market,
		Rate:        j.Rate,
		TimestampUs: j.TimestampUs,
		Sequence:    j.Sequence,
	}, nil
}
