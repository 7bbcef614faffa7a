package ingestion_test

import (
	"encoding/json"
	"testing"
	"time"

	"MertonQuote/internal/event"
	"MertonQuote/internal/ingestion"
)

func rawFromJSON(t *testing.T, v interface{}) ingestion.RawEvent {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ingestion.RawEvent{
		Subject:   "test",
		Data:      data,
		Timestamp: time.Now(),
		AckFunc:   func() {},
		NakFunc:   func() {},
	}
}

func TestParseTickUpdate(t *testing.T) {
	payload := map[string]interface{}{
		"market":       "XBTUSD",
		"price":        50123.5,
		"bid":          50123.0,
		"ask":          50124.0,
		"timestamp_us": int64(1700000000000000),
		"sequence":     int64(42),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "TickUpdate")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	tick, ok := evt.(*event.TickUpdate)
	if !ok {
		t.Fatalf("expected *event.TickUpdate, got %T", evt)
	}

	if tick.Market != "XBTUSD" {
		t.Errorf("market: got %s, want XBTUSD", tick.Market)
	}
	if tick.Price != 50123.5 {
		t.Errorf("price: got %v, want 50123.5", tick.Price)
	}
	if tick.Bid != 50123.0 || tick.Ask != 50124.0 {
		t.Errorf("book: got %v/%v, want 50123/50124", tick.Bid, tick.Ask)
	}
	if tick.TimestampUs != 1700000000000000 {
		t.Errorf("timestamp: got %d", tick.TimestampUs)
	}
	if tick.Sequence != 42 {
		t.Errorf("sequence: got %d, want 42", tick.Sequence)
	}
	if tick.EventType() != event.EventTypeTickUpdate {
		t.Errorf("event type: got %v, want TickUpdate", tick.EventType())
	}
	if tick.IdempotencyKey() != "XBTUSD:tick:42" {
		t.Errorf("idempotency key: got %s", tick.IdempotencyKey())
	}
}

func TestParseTickUpdateWithoutBook(t *testing.T) {
	payload := map[string]interface{}{
		"market":       "ETHUSD",
		"price":        3000.0,
		"timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "TickUpdate")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	tick := evt.(*event.TickUpdate)
	if tick.Bid != 0 || tick.Ask != 0 {
		t.Errorf("absent book should parse as zeros, got %v/%v", tick.Bid, tick.Ask)
	}
	if tick.Sequence != 0 {
		t.Errorf("absent sequence should parse as zero, got %d", tick.Sequence)
	}
}

func TestParseFundingRateSnapshot(t *testing.T) {
	payload := map[string]interface{}{
		"market":       "XBTUSD",
		"funding_rate": 0.0001,
		"timestamp_us": int64(1700000000000000),
		"sequence":     int64(7),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "FundingRateSnapshot")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	fr, ok := evt.(*event.FundingRateSnapshot)
	if !ok {
		t.Fatalf("expected *event.FundingRateSnapshot, got %T", evt)
	}
	if fr.Rate != 0.0001 {
		t.Errorf("rate: got %v, want 0.0001", fr.Rate)
	}
	if fr.EventType() != event.EventTypeFundingRateSnapshot {
		t.Errorf("event type: got %v", fr.EventType())
	}
}

func TestParseRejectsUnknownEventType(t *testing.T) {
	raw := rawFromJSON(t, map[string]interface{}{"market": "XBTUSD"})
	if _, err := ingestion.ParseRawEvent(raw, "OrderBookDelta"); err == nil {
		t.Errorf("expected error for unknown event type")
	}
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	raw := ingestion.RawEvent{
		Subject: "test",
		Data:    []byte("{not json"),
		AckFunc: func() {},
		NakFunc: func() {},
	}
	if _, err := ingestion.ParseRawEvent(raw, "TickUpdate"); err == nil {
		t.Errorf("expected error for invalid JSON")
	}
}

func TestParseRejectsMissingFields(t *testing.T) {
	noMarket := rawFromJSON(t, map[string]interface{}{
		"price":        100.0,
		"timestamp_us": int64(1700000000000000),
	})
	if _, err := ingestion.ParseRawEvent(noMarket, "TickUpdate"); err == nil {
		t.Errorf("expected error for missing market")
	}

	noTimestamp := rawFromJSON(t, map[string]interface{}{
		"market": "XBTUSD",
		"price":  100.0,
	})
	if _, err := ingestion.ParseRawEvent(noTimestamp, "TickUpdate"); err == nil {
		t.Errorf("expected error for missing timestamp_us")
	}

	noFundingMarket := rawFromJSON(t, map[string]interface{}{
		"funding_rate": 0.0001,
		"timestamp_us": int64(1700000000000000),
	})
	if _, err := ingestion.ParseRawEvent(noFundingMarket, "FundingRateSnapshot"); err == nil {
		t.Errorf("expected error for missing funding market")
	}
}
