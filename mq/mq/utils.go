package mq

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Subscriber is anything that can be subscribed to by topic and later
// de-subscribed. M is the message type the subscription yields.
type Subscriber[M any] interface {
	Subscribe(uuid.UUID) (uuid.UUID, <-chan M, error)
	DeSubscribe(id uuid.UUID) error
}

// SubscribeProcessor subscribes to a service, transforms every message
// with transformFunc and forwards the result to outputStream until the
// context is cancelled or the subscription channel closes. transformFunc
// may return skip=true to drop a message. outputStream is closed when
// the processor exits, so each subscriber should own its stream.
func SubscribeProcessor[S Subscriber[M], M any, O any](
	topicId uuid.UUID,
	ctx context.Context,
	service S,
	transformFunc func(msg M) (O, bool, error),
	outputStream chan<- O,
) {
	go func() {
		uid, inputCh, err := service.Subscribe(topicId)
		if err != nil {
			return
		}

		defer func() {
			if err := service.DeSubscribe(uid); err != nil {
				fmt.Printf("Error de-subscribing %s: %v\n", uid, err)
			}
			close(outputStream)
		}()

		for {
			select {
			case msg, ok := <-inputCh:
				if !ok {
					// parent close channel
					return
				}

				output, skip, err := transformFunc(msg)
				if err != nil {
					continue
				}
				if skip {
					continue
				}

				select {
				case outputStream <- output:
				case <-ctx.Done():
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}()
}
