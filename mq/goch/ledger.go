package goch

import (
	"fmt"
	"sync"

	"fleetledger/mq/mq"

	"github.com/google/uuid"
)

// --- Error Definitions ---

type QueueError string

func (e QueueError) Error() string {
	return string(e)
}

const (
	ErrQueueFull   QueueError = "message queue is full"
	ErrQueueClosed QueueError = "message queue is closed"
)

// subscriberEntry pairs a subscriber channel with the topic it wants.
// A topic of uuid.Nil means "all topics".
type subscriberEntry[M mq.TopicProvider] struct {
	topic uuid.UUID
	ch    chan M
}

// fanOutQueueCore is an in-process queue that fans published messages
// out to every subscriber whose topic matches the message topic.
type fanOutQueueCore[M mq.TopicProvider] struct {
	publishChan chan M
	subscribers map[uuid.UUID]subscriberEntry[M]
	mu          sync.RWMutex
	quit        chan struct{}
	stopOnce    sync.Once
	bufferSize  int
}

func newFanOutQueueCore[M mq.TopicProvider](bufferSize int) *fanOutQueueCore[M] {
	core := &fanOutQueueCore[M]{
		publishChan: make(chan M, bufferSize),
		subscribers: make(map[uuid.UUID]subscriberEntry[M]),
		quit:        make(chan struct{}),
		bufferSize:  bufferSize,
	}
	go core.fanOutRoutine()
	return core
}

func (c *fanOutQueueCore[M]) fanOutRoutine() {
	for {
		select {
		case msg, ok := <-c.publishChan:
			if !ok {
				return
			}
			topic := msg.GetTopic()
			c.mu.RLock()
			for _, sub := range c.subscribers {
				if sub.topic != uuid.Nil && sub.topic != topic {
					continue
				}
				select {
				case sub.ch <- msg:
				default:
					// slow subscriber drops the message instead of
					// stalling every other subscriber
				}
			}
			c.mu.RUnlock()
		case <-c.quit:
			return
		}
	}
}

func (c *fanOutQueueCore[M]) Publish(msg M) error {
	select {
	case <-c.quit:
		return ErrQueueClosed
	default:
	}

	select {
	case c.publishChan <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *fanOutQueueCore[M]) Subscribe(topic uuid.UUID) (uuid.UUID, <-chan M, error) {
	select {
	case <-c.quit:
		return uuid.Nil, nil, ErrQueueClosed
	default:
	}

	id := uuid.New()
	size := c.bufferSize
	if size == 0 {
		// give each subscriber a little headroom so an unbuffered core
		// can still deliver without a receiver on the spot
		size = 1
	}
	ch := make(chan M, size)

	c.mu.Lock()
	c.subscribers[id] = subscriberEntry[M]{topic: topic, ch: ch}
	c.mu.Unlock()

	return id, ch, nil
}

func (c *fanOutQueueCore[M]) DeSubscribe(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, ok := c.subscribers[id]
	if !ok {
		return fmt.Errorf("subscriber %s not found", id)
	}
	delete(c.subscribers, id)
	close(sub.ch)
	return nil
}

// Stop shuts the queue down and closes every subscriber channel.
func (c *fanOutQueueCore[M]) Stop() {
	c.stopOnce.Do(func() {
		close(c.quit)

		c.mu.Lock()
		for id, sub := range c.subscribers {
			delete(c.subscribers, id)
			close(sub.ch)
		}
		c.mu.Unlock()
	})
}

// ChannelLedgerRecordMessageQueue implements LedgerRecordMessageQueue
// on top of fanOutQueueCore.
type ChannelLedgerRecordMessageQueue struct {
	action mq.Action
	core   *fanOutQueueCore[mq.LedgerRecordMessage]
}

func NewChannelLedgerRecordMessageQueue(action mq.Action, bufferSize int) *ChannelLedgerRecordMessageQueue {
	return &ChannelLedgerRecordMessageQueue{
		action: action,
		core:   newFanOutQueueCore[mq.LedgerRecordMessage](bufferSize),
	}
}

func (q *ChannelLedgerRecordMessageQueue) GetAction() mq.Action {
	return q.action
}

func (q *ChannelLedgerRecordMessageQueue) Publish(msg mq.LedgerRecordMessage) error {
	return q.core.Publish(msg)
}

func (q *ChannelLedgerRecordMessageQueue) Subscribe(driverId uuid.UUID) (uuid.UUID, <-chan mq.LedgerRecordMessage, error) {
	return q.core.Subscribe(driverId)
}

func (q *ChannelLedgerRecordMessageQueue) DeSubscribe(id uuid.UUID) error {
	return q.core.DeSubscribe(id)
}

func (q *ChannelLedgerRecordMessageQueue) Stop() {
	q.core.Stop()
}

// ChannelDriftMessageQueue implements DriftMessageQueue on top of
// fanOutQueueCore.
type ChannelDriftMessageQueue struct {
	core *fanOutQueueCore[mq.DriftMessage]
}

func NewChannelDriftMessageQueue(bufferSize int) *ChannelDriftMessageQueue {
	return &ChannelDriftMessageQueue{
		core: newFanOutQueueCore[mq.DriftMessage](bufferSize),
	}
}

func (q *ChannelDriftMessageQueue) Publish(msg mq.DriftMessage) error {
	return q.core.Publish(msg)
}

func (q *ChannelDriftMessageQueue) Subscribe(driverId uuid.UUID) (uuid.UUID, <-chan mq.DriftMessage, error) {
	return q.core.Subscribe(driverId)
}

func (q *ChannelDriftMessageQueue) DeSubscribe(id uuid.UUID) error {
	return q.core.DeSubscribe(id)
}

func (q *ChannelDriftMessageQueue) Stop() {
	q.core.Stop()
}

// GoChanLedgerMessageQueueWrapper bundles the per-action record queues
// and the drift queue behind the LedgerMessageQueueWrapper interface.
type GoChanLedgerMessageQueueWrapper struct {
	RecordMQArray [mq.ActionCnt]mq.LedgerRecordMessageQueue
	DriftMQ       mq.DriftMessageQueue
}

func (wrapper *GoChanLedgerMessageQueueWrapper) GetLedgerRecordMessageQueue(action mq.Action) mq.LedgerRecordMessageQueue {
	if action < 0 || action >= mq.ActionCnt {
		return nil
	}
	return wrapper.RecordMQArray[action]
}

func (wrapper *GoChanLedgerMessageQueueWrapper) GetDriftMessageQueue() mq.DriftMessageQueue {
	return wrapper.DriftMQ
}

// NewGoChanLedgerMessageQueueWrapper creates the in-process wrapper.
// Record queues carry a small buffer so handlers never block on a
// missing subscriber.
func NewGoChanLedgerMessageQueueWrapper() mq.LedgerMessageQueueWrapper {
	wrapper := GoChanLedgerMessageQueueWrapper{}
	wrapper.RecordMQArray[mq.ActionCreate] = NewChannelLedgerRecordMessageQueue(mq.ActionCreate, 16)
	wrapper.RecordMQArray[mq.ActionUpdate] = NewChannelLedgerRecordMessageQueue(mq.ActionUpdate, 16)
	wrapper.RecordMQArray[mq.ActionDelete] = NewChannelLedgerRecordMessageQueue(mq.ActionDelete, 16)
	wrapper.DriftMQ = NewChannelDriftMessageQueue(16)

	return &wrapper
}
