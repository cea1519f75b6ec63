package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go-safety/internal/bootstrap"
	"go-safety/internal/events"
	"go-safety/internal/shared/contextutil"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafkago.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

var errUnknownEvent = errors.New("unknown safety record event type")

// ConsumeSafetyRecordLifecycle writes every record lifecycle event to the
// audit trail and raises a warning for each defaulter that is recorded.
// Messages are committed only after they are handled.
func ConsumeSafetyRecordLifecycle(
	ctx context.Context,
	reader MessageReader,
	audit bootstrap.AuditLogger,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.safety_record_lifecycle")
	log.Info("safety record lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("safety record lifecycle consumer stopped")
				return
			}
			log.Error("fetch safety record lifecycle message failed", zap.Error(err))
			continue
		}

		if err := handleMessage(ctx, msg, audit, log); err != nil {
			// poison message, skip it
			log.Error("drop safety record lifecycle message",
				zap.Int64("offset", msg.Offset),
				zap.Int("partition", msg.Partition),
				zap.Error(err),
			)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit safety record lifecycle message failed", zap.Error(err))
		}
	}
}

func handleMessage(ctx context.Context, msg kafkago.Message, audit bootstrap.AuditLogger, log *zap.Logger) error {
	var event events.SafetyRecordEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}

	switch event.EventType {
	case events.SafetyRecordCreated, events.SafetyRecordUpdated, events.SafetyRecordDeleted:
	default:
		return errUnknownEvent
	}

	if event.RequestID != "" {
		ctx = contextutil.WithRequestID(ctx, event.RequestID)
	}

	audit.Log(ctx, bootstrap.AuditLog{
		Action:  strings.ToUpper(event.EventType),
		Message: "safety record " + strings.TrimPrefix(event.EventType, "safety_record_"),
		ActorID: event.ActorID,
		Meta: map[string]any{
			"record_id":    event.RecordID,
			"date":         event.Date.Format("2006-01-02"),
			"area":         event.Area,
			"department":   event.Department,
			"is_defaulter": event.IsDefaulter,
			"occurred_at":  event.OccurredAt,
		},
	})

	if event.IsDefaulter && event.EventType != events.SafetyRecordDeleted {
		log.Warn("defaulter recorded",
			zap.String("record_id", event.RecordID),
			zap.String("name", event.Name),
			zap.String("area", event.Area),
			zap.String("department", event.Department),
			zap.Time("date", event.Date),
		)
	}

	return nil
}
