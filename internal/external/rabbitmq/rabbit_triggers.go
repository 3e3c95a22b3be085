package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	interf "github.com/glkeru/loyalty/rules/internal/interfaces"
	models "github.com/glkeru/loyalty/rules/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitNotifier struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

const queue = "rule_triggers"

var _ interf.Notifier = (*RabbitNotifier)(nil)

func NewRabbitNotifier() (rabbit *RabbitNotifier, err error) {
	// config
	rabbiturl := os.Getenv("RABBIT_URL")
	if rabbiturl == "" {
		return nil, fmt.Errorf("env RABBIT_URL is not set")
	}
	rabbitport := os.Getenv("RABBIT_PORT")
	if rabbitport == "" {
		return nil, fmt.Errorf("env RABBIT_PORT is not set")
	}
	rabbituser := os.Getenv("RABBIT_USER")
	if rabbituser == "" {
		return nil, fmt.Errorf("env RABBIT_USER is not set")
	}
	rabbitpass := os.Getenv("RABBIT_PASSWORD")
	if rabbitpass == "" {
		return nil, fmt.Errorf("env RABBIT_PASSWORD is not set")
	}

	rabbitconn := "amqp://" + rabbituser + ":" + rabbitpass + "@" + rabbiturl + ":" + rabbitport + "/rules"
	conn, err := amqp.Dial(rabbitconn)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &RabbitNotifier{conn, ch}, nil
}

func (r *RabbitNotifier) Close() {
	r.ch.Close()
	r.conn.Close()
}

// уведомление о срабатывании правила
func (r *RabbitNotifier) PublishTrigger(ctx context.Context, event models.TriggerEvent) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.ch.PublishWithContext(ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.TriggerID,
			Body:         msg,
		})
}
