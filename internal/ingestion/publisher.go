package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// OutboundPublisher publishes quote signals and parameter updates to NATS
// for downstream consumers (execution bots, dashboards).
// Subjects: merton.quotes.{symbol} and merton.params.{symbol}.
type OutboundPublisher struct {
	js        jetstream.JetStream
	inputChan <-chan PublishableEvent
}

// PublishableEvent is an engine output ready for outbound publishing.
// Kind selects the subject family ("quote" or "params").
type PublishableEvent struct {
	Kind        string      `json:"kind"`
	Symbol      string      `json:"symbol"`
	TimestampUs int64       `json:"timestamp_us"`
	Payload     interface{} `json:"payload"`
}

func NewOutboundPublisher(js jetstream.JetStream, inputChan <-chan PublishableEvent) *OutboundPublisher {
	return &OutboundPublisher{
		js:        js,
		inputChan: inputChan,
	}
}

// Run starts the outbound publisher loop.
func (op *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case evt, ok := <-op.inputChan:
			if !ok {
				return nil
			}

			if err := op.publish(ctx, evt); err != nil {
				log.Printf("WARN: outbound publish failed (%s %s): %v", evt.Kind, evt.Symbol, err)
				// Non-fatal: a missed quote signal is stale within seconds anyway
			}
		}
	}
}

func (op *OutboundPublisher) publish(ctx context.Context, evt PublishableEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var subject string
	switch evt.Kind {
	case "params":
		subject = fmt.Sprintf("merton.params.%s", evt.Symbol)
	default:
		subject = fmt.Sprintf("merton.quotes.%s", evt.Symbol)
	}

	_, err = op.js.Publish(ctx, subject, data)
	return err
}

// EnsureOutboundStream creates the stream holding quote and parameter
// signals.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "MERTON_SIGNALS",
		Subjects:  []string{"merton.quotes.>", "merton.params.>"},
		Storage:   jetstream.MemoryStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    1 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	log.Println("INFO: ensured outbound stream MERTON_SIGNALS")
	return nil
}
