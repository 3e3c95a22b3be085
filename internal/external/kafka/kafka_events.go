package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	models "github.com/glkeru/loyalty/rules/internal/models"
	"github.com/segmentio/kafka-go"
)

const Topic = "loyalty_events"

type KafkaEvents struct {
	reader *kafka.Reader
}

func GetNewReader(topic string) (reader *KafkaEvents, err error) {
	// config
	kafkaurl := os.Getenv("KAFKA_EVENTS_URL")
	if kafkaurl == "" {
		return nil, fmt.Errorf("env KAFKA_EVENTS_URL is not set")
	}
	kafkaport := os.Getenv("KAFKA_EVENTS_PORT")
	if kafkaport == "" {
		return nil, fmt.Errorf("env KAFKA_EVENTS_PORT is not set")
	}

	kafkaconfig := kafka.ReaderConfig{
		Brokers: []string{kafkaurl + ":" + kafkaport},
		Topic:   topic,
		GroupID: "rules_loyalty",
	}
	return &KafkaEvents{kafka.NewReader(kafkaconfig)}, nil
}

// Event - транзакция или визит клиента
type Event struct {
	Type          models.TriggerType `json:"type"`
	CustomerID    string             `json:"customerId"`
	BusinessID    string             `json:"businessId"`
	EnrollmentID  string             `json:"enrollmentId,omitempty"`
	LocationID    string             `json:"locationId,omitempty"`
	TransactionID string             `json:"transactionId,omitempty"`
	AmountCents   *int64             `json:"amountCents,omitempty"`
	OccurredAt    time.Time          `json:"occurredAt"`
}

// ParseEvent - контекст оценки из сообщения
func ParseEvent(body []byte) (models.EvaluationContext, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return models.EvaluationContext{}, fmt.Errorf("event: %w", err)
	}
	if event.CustomerID == "" || event.BusinessID == "" {
		return models.EvaluationContext{}, fmt.Errorf("event: customerId and businessId are required")
	}
	switch event.Type {
	case models.TriggerTransaction:
		if event.AmountCents == nil {
			return models.EvaluationContext{}, fmt.Errorf("event: transaction without amountCents")
		}
	case models.TriggerVisit:
	default:
		return models.EvaluationContext{}, fmt.Errorf("event: unknown type %q", event.Type)
	}
	return models.EvaluationContext{
		CustomerID:    event.CustomerID,
		BusinessID:    event.BusinessID,
		EnrollmentID:  event.EnrollmentID,
		LocationID:    event.LocationID,
		TransactionID: event.TransactionID,
		AmountCents:   event.AmountCents,
		TriggerType:   event.Type,
		EvaluatedAt:   event.OccurredAt,
	}, nil
}

func (k *KafkaEvents) GetNewMessage(ctx context.Context) (body []byte, err error) {
	msg, err := k.reader.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}
	return msg.Value, nil
}

func (k *KafkaEvents) CloseReader() {
	k.reader.Close()
}
