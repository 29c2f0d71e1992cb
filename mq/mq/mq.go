package mq

import "github.com/google/uuid"

// TopicProvider is implemented by every message that can be routed by
// a topic id (for ledger events the topic is the driver id).
type TopicProvider interface {
	GetTopic() uuid.UUID
}

type LedgerMessageQueueWrapper interface {
	GetLedgerRecordMessageQueue(action Action) LedgerRecordMessageQueue
	GetDriftMessageQueue() DriftMessageQueue
}

type LedgerMessageQueue interface {
	GetAction() Action
	Publish(msg interface{}) error
	Subscribe(driverId uuid.UUID) (uuid.UUID, <-chan interface{}, error)
	DeSubscribe(id uuid.UUID) error
}

type LedgerRecordMessageQueue interface {
	GetAction() Action
	Publish(msg LedgerRecordMessage) error
	Subscribe(driverId uuid.UUID) (uuid.UUID, <-chan LedgerRecordMessage, error)
	DeSubscribe(id uuid.UUID) error
}

type DriftMessageQueue interface {
	Publish(msg DriftMessage) error
	Subscribe(driverId uuid.UUID) (uuid.UUID, <-chan DriftMessage, error)
	DeSubscribe(id uuid.UUID) error
}
