package producer

import (
	"context"

	"go-safety/internal/messaging/kafka"
	"go-safety/internal/observability/tracing"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/codes"
)

// MessageWriter is the part of *kafkago.Writer the relay needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

func buildMessage(event kafka.OutboxEvent) kafkago.Message {
	headers := []kafkago.Header{
		{Key: "event_type", Value: []byte(event.EventType)},
		{Key: "aggregate_type", Value: []byte(event.AggregateType)},
		{Key: "outbox_id", Value: []byte(event.ID)},
	}
	if event.RequestID != "" {
		headers = append(headers, kafkago.Header{Key: "request_id", Value: []byte(event.RequestID)})
	}

	// Keyed by record so every event of one record lands on one partition in order.
	return kafkago.Message{
		Topic:   event.Topic,
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
}

func publishEvent(ctx context.Context, writer MessageWriter, event kafka.OutboxEvent) error {
	ctx, span := tracing.StartSpan(ctx, "outbox.publish",
		tracing.RecordEventAttrs(event.EventType, event.AggregateID, event.ID)...)
	defer span.End()

	if err := writer.WriteMessages(ctx, buildMessage(event)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return err
	}
	return nil
}
