package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"concertgate/internal/apperr"
)

// TokenExpirer terminates a queue token. Implemented by the admission
// service.
type TokenExpirer interface {
	Expire(ctx context.Context, token string) error
}

// StartPaymentCompletedConsumer connects to the broker, declares the
// payment.completed queue (durable) and consumes it, expiring the queue
// token named in each event. The function runs a reconnect loop with
// backoff and keeps running across broker restarts; call it in its own
// goroutine.
//
// Acknowledgement contract: a payload that cannot be deserialized is acked
// and dropped — redelivery cannot fix it. A processing failure is nacked
// with requeue so the broker redelivers; expiry is idempotent, so
// duplicates are harmless.
func StartPaymentCompletedConsumer(expirer TokenExpirer) {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("payment-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, expirer); err != nil {
			log.Printf("payment-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, expirer TokenExpirer) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("payment-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(PaymentCompletedTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(PaymentCompletedTopic, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		var ev PaymentCompleted
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			log.Printf("payment-consumer: dropping undecodable message: %v", err)
			_ = d.Ack(false)
			continue
		}
		if err := HandlePaymentCompleted(expirer, ev); err != nil {
			log.Printf("payment-consumer: handle paymentId=%d failed: %v", ev.PaymentID, err)
			_ = d.Nack(false, true) // requeue for redelivery
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// HandlePaymentCompleted expires the queue token named in the event. A
// token already gone counts as handled; expiry is idempotent under
// redelivery.
func HandlePaymentCompleted(expirer TokenExpirer, ev PaymentCompleted) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := expirer.Expire(ctx, ev.Token)
	if errors.Is(err, apperr.ErrTokenNotFound) {
		// Already gone, or scrubbed by TTL. Nothing left to expire.
		log.Printf("payment-consumer: token %s not found for expiry", ev.Token)
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("payment-consumer: expired token %s (paymentId=%d)", ev.Token, ev.PaymentID)
	return nil
}
