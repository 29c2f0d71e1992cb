package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"fleetledger/mq/mq"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName = "ledger_events_exchange" // All ledger events go through this exchange
)

const (
	recordCreateRoutingKey = "record.create"
	recordUpdateRoutingKey = "record.update"
	recordDeleteRoutingKey = "record.delete"
	driftReportRoutingKey  = "drift.report"
)

func recordRoutingKey(action mq.Action) string {
	switch action {
	case mq.ActionCreate:
		return recordCreateRoutingKey
	case mq.ActionUpdate:
		return recordUpdateRoutingKey
	case mq.ActionDelete:
		return recordDeleteRoutingKey
	}
	return ""
}

// subscriberState pairs a subscriber channel with the driver topic it
// asked for. uuid.Nil subscribes to every driver.
type subscriberState[M mq.TopicProvider] struct {
	topic uuid.UUID
	ch    chan M
}

// rabbitFanOut holds the channel plumbing shared by the record and
// drift queues. Each Subscribe gets its own AMQP consumer; messages
// whose topic does not match the subscription are dropped locally.
type rabbitFanOut[M mq.TopicProvider] struct {
	channel    *amqp091.Channel
	queueName  string
	routingKey string
	mu         sync.RWMutex
	consumers  map[uuid.UUID]subscriberState[M]
}

func newRabbitFanOut[M mq.TopicProvider](conn *amqp091.Connection, queueName, routingKey string) (*rabbitFanOut[M], error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := DeclareQueueAndExchange(ch, queueName, exchangeName, routingKey); err != nil {
		ch.Close()
		return nil, err
	}

	return &rabbitFanOut[M]{
		channel:    ch,
		queueName:  queueName,
		routingKey: routingKey,
		consumers:  make(map[uuid.UUID]subscriberState[M]),
	}, nil
}

func (f *rabbitFanOut[M]) publish(msg M) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = f.channel.PublishWithContext(ctx,
		exchangeName, // exchange
		f.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (f *rabbitFanOut[M]) subscribe(topic uuid.UUID) (uuid.UUID, <-chan M, error) {
	msgs, err := f.channel.Consume(
		f.queueName, // queue
		"",          // consumer
		true,        // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	subscriberID := uuid.New()
	outputChan := make(chan M)

	f.mu.Lock()
	f.consumers[subscriberID] = subscriberState[M]{topic: topic, ch: outputChan}
	f.mu.Unlock()

	go func() {
		defer func() {
			f.mu.Lock()
			if s, ok := f.consumers[subscriberID]; ok {
				close(s.ch)
				delete(f.consumers, subscriberID)
			}
			f.mu.Unlock()
		}()

		for d := range msgs {
			var msg M
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				log.Printf("Failed to unmarshal message on %s: %v", f.queueName, err)
				continue
			}

			f.mu.RLock()
			s, ok := f.consumers[subscriberID]
			f.mu.RUnlock()
			if !ok {
				// Consumer was unsubscribed while message was in flight
				return
			}

			if s.topic != uuid.Nil && s.topic != msg.GetTopic() {
				continue
			}

			select {
			case s.ch <- msg:
			case <-time.After(1 * time.Second): // Prevent blocking indefinitely
				log.Printf("Timeout sending message to consumer %s on %s. Skipping.", subscriberID, f.queueName)
			}
		}
	}()

	return subscriberID, outputChan, nil
}

func (f *rabbitFanOut[M]) deSubscribe(subscriberID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.consumers[subscriberID]; ok {
		delete(f.consumers, subscriberID)
		close(s.ch)
		return nil
	}
	return fmt.Errorf("consumer with ID %s not found for queue %s", subscriberID, f.queueName)
}

// rabbitLedgerRecordMessageQueue implements mq.LedgerRecordMessageQueue for RabbitMQ
type rabbitLedgerRecordMessageQueue struct {
	action mq.Action
	fanOut *rabbitFanOut[mq.LedgerRecordMessage]
}

func NewRabbitLedgerRecordMessageQueue(action mq.Action, conn *amqp091.Connection) (mq.LedgerRecordMessageQueue, error) {
	queueName := fmt.Sprintf("ledger_record_%d_queue", action)
	fanOut, err := newRabbitFanOut[mq.LedgerRecordMessage](conn, queueName, recordRoutingKey(action))
	if err != nil {
		return nil, err
	}
	return &rabbitLedgerRecordMessageQueue{action: action, fanOut: fanOut}, nil
}

func (q *rabbitLedgerRecordMessageQueue) GetAction() mq.Action {
	return q.action
}

func (q *rabbitLedgerRecordMessageQueue) Publish(msg mq.LedgerRecordMessage) error {
	return q.fanOut.publish(msg)
}

func (q *rabbitLedgerRecordMessageQueue) Subscribe(driverId uuid.UUID) (uuid.UUID, <-chan mq.LedgerRecordMessage, error) {
	return q.fanOut.subscribe(driverId)
}

func (q *rabbitLedgerRecordMessageQueue) DeSubscribe(id uuid.UUID) error {
	return q.fanOut.deSubscribe(id)
}

// rabbitDriftMessageQueue implements mq.DriftMessageQueue for RabbitMQ
type rabbitDriftMessageQueue struct {
	fanOut *rabbitFanOut[mq.DriftMessage]
}

func NewRabbitDriftMessageQueue(conn *amqp091.Connection) (mq.DriftMessageQueue, error) {
	fanOut, err := newRabbitFanOut[mq.DriftMessage](conn, "ledger_drift_queue", driftReportRoutingKey)
	if err != nil {
		return nil, err
	}
	return &rabbitDriftMessageQueue{fanOut: fanOut}, nil
}

func (q *rabbitDriftMessageQueue) Publish(msg mq.DriftMessage) error {
	return q.fanOut.publish(msg)
}

func (q *rabbitDriftMessageQueue) Subscribe(driverId uuid.UUID) (uuid.UUID, <-chan mq.DriftMessage, error) {
	return q.fanOut.subscribe(driverId)
}

func (q *rabbitDriftMessageQueue) DeSubscribe(id uuid.UUID) error {
	return q.fanOut.deSubscribe(id)
}

// RabbitLedgerMessageQueueWrapper bundles the per-action record queues
// and the drift queue for a single AMQP connection.
type RabbitLedgerMessageQueueWrapper struct {
	RecordMQArray [mq.ActionCnt]mq.LedgerRecordMessageQueue
	DriftMQ       mq.DriftMessageQueue
}

func (wrapper *RabbitLedgerMessageQueueWrapper) GetLedgerRecordMessageQueue(action mq.Action) mq.LedgerRecordMessageQueue {
	if action < 0 || action >= mq.ActionCnt {
		return nil
	}
	return wrapper.RecordMQArray[action]
}

func (wrapper *RabbitLedgerMessageQueueWrapper) GetDriftMessageQueue() mq.DriftMessageQueue {
	return wrapper.DriftMQ
}

// NewRabbitLedgerMessageQueueWrapper declares all queues on the given
// connection and returns the wrapper.
func NewRabbitLedgerMessageQueueWrapper(conn *amqp091.Connection) (mq.LedgerMessageQueueWrapper, error) {
	wrapper := &RabbitLedgerMessageQueueWrapper{}

	var err error
	for _, action := range []mq.Action{mq.ActionCreate, mq.ActionUpdate, mq.ActionDelete} {
		wrapper.RecordMQArray[action], err = NewRabbitLedgerRecordMessageQueue(action, conn)
		if err != nil {
			return nil, err
		}
	}

	wrapper.DriftMQ, err = NewRabbitDriftMessageQueue(conn)
	if err != nil {
		return nil, err
	}

	return wrapper, nil
}
