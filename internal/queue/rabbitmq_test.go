package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

func testQueue(delayed bool) *RabbitMQQueue {
	return &RabbitMQQueue{
		queueName:           DefaultQueueName,
		dlqName:             DefaultDLQName,
		exchangeName:        DefaultExchangeName,
		delayedExchangeName: DefaultDelayedExchangeName,
		delayedAvailable:    delayed,
	}
}

func TestPublishing_Immediate(t *testing.T) {
	t.Parallel()

	job := NewEnrichTaskJob(uuid.New(), uuid.New())
	exchange, msg, err := testQueue(true).publishing(job)
	if err != nil {
		t.Fatal(err)
	}
	if exchange != DefaultExchangeName {
		t.Errorf("exchange = %q", exchange)
	}
	if msg.DeliveryMode != amqp.Persistent || msg.MessageId != job.ID.String() || msg.Expiration != "" || msg.Headers != nil {
		t.Errorf("publishing = %+v", msg)
	}
	if msg.Timestamp.IsZero() {
		t.Error("publishing timestamp is needed by the DLQ purge")
	}
	var decoded Job
	if err := json.Unmarshal(msg.Body, &decoded); err != nil || decoded.ID != job.ID {
		t.Errorf("body = %s, %v", msg.Body, err)
	}
}

func TestPublishing_DelayedAndExpiring(t *testing.T) {
	t.Parallel()

	job := NewEnrichTaskJob(uuid.New(), uuid.New())
	notBefore := time.Now().Add(time.Minute)
	notAfter := time.Now().Add(time.Hour)
	job.NotBefore = &notBefore
	job.NotAfter = &notAfter

	exchange, msg, err := testQueue(true).publishing(job)
	if err != nil {
		t.Fatal(err)
	}
	if exchange != DefaultDelayedExchangeName {
		t.Errorf("exchange = %q, want delayed", exchange)
	}
	delay, ok := msg.Headers["x-delay"].(int64)
	if !ok || delay <= 0 || delay > time.Minute.Milliseconds() {
		t.Errorf("x-delay = %v", msg.Headers["x-delay"])
	}
	ttl, err := strconv.ParseInt(msg.Expiration, 10, 64)
	if err != nil || ttl <= 0 || ttl > time.Hour.Milliseconds() {
		t.Errorf("expiration = %q", msg.Expiration)
	}

	exchange, _, err = testQueue(false).publishing(job)
	if err != nil || exchange != DefaultExchangeName {
		t.Errorf("without the plugin exchange = %q, %v", exchange, err)
	}
}

func TestClosedQueue(t *testing.T) {
	t.Parallel()

	q := testQueue(false)
	if err := q.Enqueue(context.Background(), NewEnrichTaskJob(uuid.New(), uuid.New())); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue() = %v", err)
	}
	if _, err := q.PurgeOlderThan(context.Background(), time.Hour); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("PurgeOlderThan() = %v", err)
	}
	if err := q.HealthCheck(context.Background()); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("HealthCheck() = %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
