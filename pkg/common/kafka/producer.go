package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/logger"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event types published by the training job.
const (
	EventTrainingCompleted = "training.completed"
	EventTrainingFailed    = "training.failed"
)

const eventSchemaVersion = "1"

// Producer publishes training lifecycle events. Events carrying a run_id are
// keyed by it so every event of one run lands on the same partition.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		BatchSize:              1,
		AllowAutoTopicCreation: true,
	}}
}

// NewEvent builds the envelope written for eventType.
func NewEvent(eventType, source string, data map[string]interface{}) models.Event {
	return models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]string{"schema_version": eventSchemaVersion},
	}
}

// messageFor encodes event; the key is the run id when present, else the event id.
func messageFor(event models.Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	key := event.ID
	if runID, ok := event.Data["run_id"].(string); ok && runID != "" {
		key = runID
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "source", Value: []byte(event.Source)},
		},
	}, nil
}

func (p *Producer) PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error {
	event := NewEvent(eventType, source, data)
	msg, err := messageFor(event)
	if err != nil {
		return err
	}
	fields := map[string]interface{}{
		"event_id":   event.ID,
		"event_type": eventType,
		"key":        string(msg.Key),
		"topic":      p.writer.Topic,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Log.WithError(err).WithFields(fields).Error("Failed to publish training event")
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	logger.Log.WithFields(fields).Info("Training event published")
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
