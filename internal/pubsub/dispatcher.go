package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Receiver handles a payload sent through a Dispatcher.
type Receiver[T any] func(ctx context.Context, payload T)

// Dispatcher routes payloads to receivers connected under a key.
//
// Unlike Broker, Send is synchronous: every receiver for the key has returned
// before Send does, so a writer that sends after a successful write knows
// dependent state is up to date. A panicking receiver is recovered and reported
// in Send's error; the remaining receivers still run.
type Dispatcher[K comparable, T any] struct {
	mu        sync.RWMutex
	receivers map[K][]Receiver[T]
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher[K comparable, T any]() *Dispatcher[K, T] {
	return &Dispatcher[K, T]{
		receivers: make(map[K][]Receiver[T]),
	}
}

// Connect adds fn to the receivers for key. Receivers run in connection order.
func (d *Dispatcher[K, T]) Connect(key K, fn Receiver[T]) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.receivers[key] = append(d.receivers[key], fn)
}

// Send delivers payload to every receiver connected under key.
// Returns the number of receivers invoked and the joined panics, if any.
func (d *Dispatcher[K, T]) Send(ctx context.Context, key K, payload T) (int, error) {
	d.mu.RLock()
	receivers := d.receivers[key]
	d.mu.RUnlock()

	var errs []error
	for _, fn := range receivers {
		if err := invoke(ctx, fn, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return len(receivers), errors.Join(errs...)
}

// ReceiverCount returns the number of receivers connected under key.
func (d *Dispatcher[K, T]) ReceiverCount(key K) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.receivers[key])
}

func invoke[T any](ctx context.Context, fn Receiver[T], payload T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("receiver panicked: %v", r)
		}
	}()
	fn(ctx, payload)
	return nil
}
