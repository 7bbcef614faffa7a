// Package event defines the typed feed events consumed by the quote engine.
package event

// EventType discriminator for feed payloads.
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeTickUpdate
	EventTypeFundingRateSnapshot
)

// Event is the interface all feed events implement.
type Event interface {
	// IdempotencyKey returns the stable dedup key.
	IdempotencyKey() string

	// EventType returns the discriminator.
	EventType() EventType

	// Symbol returns the instrument the event belongs to.
	Symbol() string

	// SourceSequence returns the upstream ordering key (0 if unsequenced).
	SourceSequence() int64
}

func (et EventType) String() string {
	switch et {
	case EventTypeTickUpdate:
		return "TickUpdate"
	case EventTypeFundingRateSnapshot:
		return "FundingRateSnapshot"
	default:
		return "Unknown"
	}
}
