package gcppubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"sync"
	"time"

	"fleetledger/mq/mq"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
)

const (
	driverIDAttribute = "driverId"
)

// subscriptionInfo holds details about an active Pub/Sub subscription.
type subscriptionInfo struct {
	gcpSubscription *pubsub.Subscription
	cancel          context.CancelFunc
}

// GenericPubSubService provides a generic implementation for GCP Pub/Sub operations.
type GenericPubSubService[M any] struct {
	client              *pubsub.Client
	topic               *pubsub.Topic
	activeSubscriptions map[uuid.UUID]*subscriptionInfo
	subscriptionsMutex  sync.Mutex
	ctx                 context.Context
}

// NewGenericPubSubService creates and initializes a generic service for a specific message type.
// It ensures the underlying Pub/Sub topic exists, creating it if necessary.
func NewGenericPubSubService[M any](ctx context.Context, client *pubsub.Client, topicID string) (*GenericPubSubService[M], error) {
	if client == nil {
		return nil, fmt.Errorf("GCP Pub/Sub client is nil")
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existence of topic %s: %w", topicID, err)
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, topicID)
		if err != nil {
			return nil, fmt.Errorf("failed to create topic %s: %w", topicID, err)
		}
		log.Printf("Created Pub/Sub topic: %s", topicID)
	}

	return &GenericPubSubService[M]{
		client:              client,
		topic:               topic,
		activeSubscriptions: make(map[uuid.UUID]*subscriptionInfo),
		ctx:                 ctx,
	}, nil
}

// Publish sends a message to the configured Pub/Sub topic with the driver id as an attribute.
func (s *GenericPubSubService[M]) Publish(msg mq.TopicProvider) error {
	typeName := reflect.TypeOf(msg).Name()
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", typeName, err)
	}

	pubsubMsg := &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			driverIDAttribute: msg.GetTopic().String(),
		},
	}

	// Publish is non-blocking, the client library handles batching and retries.
	result := s.topic.Publish(s.ctx, pubsubMsg)
	_, err = result.Get(s.ctx)
	if err != nil {
		return fmt.Errorf("failed to publish %s to topic %s: %w", typeName, s.topic.ID(), err)
	}
	return nil
}

// Subscribe creates a new filtered subscription on GCP and starts listening for messages.
// Passing uuid.Nil subscribes to every driver.
func (s *GenericPubSubService[M]) Subscribe(driverId uuid.UUID) (uuid.UUID, <-chan M, error) {
	subscriptionID := uuid.New() // Internal ID for tracking
	typeName := reflect.TypeOf(*new(M)).Name()

	gcpSubName := fmt.Sprintf("sub-%s-%s-%s", typeName, driverId.String(), subscriptionID.String())

	config := pubsub.SubscriptionConfig{
		Topic:            s.topic,
		ExpirationPolicy: 24 * time.Hour,
		AckDeadline:      10 * time.Second,
	}
	if driverId != uuid.Nil {
		config.Filter = fmt.Sprintf("attributes.%s = \"%s\"", driverIDAttribute, driverId.String())
	}

	gcpSub, err := s.client.CreateSubscription(s.ctx, gcpSubName, config)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to create GCP subscription %s for %s: %w", gcpSubName, typeName, err)
	}

	msgChan := make(chan M, 5)
	receiveCtx, cancel := context.WithCancel(s.ctx)

	s.subscriptionsMutex.Lock()
	s.activeSubscriptions[subscriptionID] = &subscriptionInfo{
		gcpSubscription: gcpSub,
		cancel:          cancel,
	}
	s.subscriptionsMutex.Unlock()

	go func() {
		defer func() {
			s.subscriptionsMutex.Lock()
			delete(s.activeSubscriptions, subscriptionID)
			s.subscriptionsMutex.Unlock()

			// Delete the subscription from GCP to prevent resource leaks.
			if deleteErr := gcpSub.Delete(context.Background()); deleteErr != nil {
				log.Printf("Error deleting GCP subscription %s: %v", gcpSub.ID(), deleteErr)
			}
			close(msgChan)
		}()

		// Receive blocks until the context is cancelled.
		err := gcpSub.Receive(receiveCtx, func(ctx context.Context, pubsubMsg *pubsub.Message) {
			pubsubMsg.Ack()

			var msg M
			if err := json.Unmarshal(pubsubMsg.Data, &msg); err != nil {
				log.Printf("Error unmarshaling %s for %s: %v. Body: %s", typeName, subscriptionID, err, string(pubsubMsg.Data))
				return
			}

			select {
			case msgChan <- msg:
			case <-time.After(2 * time.Second):
				log.Printf("Timeout sending %s to msgChan for %s.", typeName, subscriptionID)
			case <-receiveCtx.Done():
				return
			}
		})

		if err != nil && err != context.Canceled {
			log.Printf("Error in Receive loop for %s subscription %s: %v", typeName, subscriptionID, err)
		}
	}()

	return subscriptionID, msgChan, nil
}

// DeSubscribe stops the message receiver and deletes the subscription from GCP.
func (s *GenericPubSubService[M]) DeSubscribe(id uuid.UUID) error {
	s.subscriptionsMutex.Lock()
	info, ok := s.activeSubscriptions[id]
	if ok {
		// Removal from the map happens in the goroutine's defer block,
		// here we just trigger the cancellation.
		info.cancel()
	}
	s.subscriptionsMutex.Unlock()

	if !ok {
		return fmt.Errorf("subscription ID %s not found for %s service", id, reflect.TypeOf(*new(M)).Name())
	}
	return nil
}

// Close gracefully shuts down all active subscriptions for this service.
func (s *GenericPubSubService[M]) Close() {
	s.subscriptionsMutex.Lock()
	defer s.subscriptionsMutex.Unlock()

	for _, info := range s.activeSubscriptions {
		info.cancel()
	}
}

// --- ledgerRecordMQ implementation ---

type ledgerRecordMQ struct {
	genericService *GenericPubSubService[mq.LedgerRecordMessage]
	action         mq.Action
}

func NewLedgerRecordMessageQueue(ctx context.Context, client *pubsub.Client, action mq.Action) (*ledgerRecordMQ, error) {
	topicID := fmt.Sprintf("ledger-record-%s", action.String())
	gs, err := NewGenericPubSubService[mq.LedgerRecordMessage](ctx, client, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to create generic service for LedgerRecord: %w", err)
	}
	return &ledgerRecordMQ{genericService: gs, action: action}, nil
}

func (q *ledgerRecordMQ) GetAction() mq.Action { return q.action }
func (q *ledgerRecordMQ) Publish(msg mq.LedgerRecordMessage) error {
	return q.genericService.Publish(msg)
}
func (q *ledgerRecordMQ) Subscribe(driverId uuid.UUID) (uuid.UUID, <-chan mq.LedgerRecordMessage, error) {
	return q.genericService.Subscribe(driverId)
}
func (q *ledgerRecordMQ) DeSubscribe(id uuid.UUID) error { return q.genericService.DeSubscribe(id) }

// --- driftMQ implementation ---

type driftMQ struct {
	genericService *GenericPubSubService[mq.DriftMessage]
}

func NewDriftMessageQueue(ctx context.Context, client *pubsub.Client) (*driftMQ, error) {
	gs, err := NewGenericPubSubService[mq.DriftMessage](ctx, client, "ledger-drift")
	if err != nil {
		return nil, fmt.Errorf("failed to create generic service for Drift: %w", err)
	}
	return &driftMQ{genericService: gs}, nil
}

func (q *driftMQ) Publish(msg mq.DriftMessage) error { return q.genericService.Publish(msg) }
func (q *driftMQ) Subscribe(driverId uuid.UUID) (uuid.UUID, <-chan mq.DriftMessage, error) {
	return q.genericService.Subscribe(driverId)
}
func (q *driftMQ) DeSubscribe(id uuid.UUID) error { return q.genericService.DeSubscribe(id) }

// --------- ledger message queue wrapper implementation ---------

type GCPLedgerMessageQueueWrapper struct {
	RecordMQArray [mq.ActionCnt]*ledgerRecordMQ
	DriftMQ       *driftMQ
}

func (wrapper *GCPLedgerMessageQueueWrapper) GetLedgerRecordMessageQueue(action mq.Action) mq.LedgerRecordMessageQueue {
	if action < 0 || action >= mq.ActionCnt || wrapper.RecordMQArray[action] == nil {
		return nil
	}
	return wrapper.RecordMQArray[action]
}

func (wrapper *GCPLedgerMessageQueueWrapper) GetDriftMessageQueue() mq.DriftMessageQueue {
	return wrapper.DriftMQ
}

// NewGCPLedgerMessageQueueWrapper creates a new MQ wrapper instance using GCP Pub/Sub.
func NewGCPLedgerMessageQueueWrapper(ctx context.Context, projectID string) (mq.LedgerMessageQueueWrapper, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Pub/Sub client for project %s: %w", projectID, err)
	}

	wrapper := &GCPLedgerMessageQueueWrapper{}

	for _, action := range []mq.Action{mq.ActionCreate, mq.ActionUpdate, mq.ActionDelete} {
		wrapper.RecordMQArray[action], err = NewLedgerRecordMessageQueue(ctx, client, action)
		if err != nil {
			return nil, err
		}
	}

	wrapper.DriftMQ, err = NewDriftMessageQueue(ctx, client)
	if err != nil {
		return nil, err
	}

	return wrapper, nil
}
