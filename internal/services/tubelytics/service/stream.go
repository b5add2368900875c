package service

import (
	"context"
	"sync"

	perr "tubelytics/internal/platform/errors"
	"tubelytics/internal/platform/metrics"
)

// Stream is a bounded FIFO between one producer and one consumer. A full
// stream blocks the producer; nothing is ever dropped. Close is terminal:
// later offers fail with perr.ErrClosed while the consumer may still drain
// what was queued before
type Stream[T any] struct {
	ch      chan T
	closed  chan struct{}
	once    sync.Once
	metrics *metrics.Metrics
}

// NewStream returns an open stream holding at most capacity items
func NewStream[T any](capacity int, m *metrics.Metrics) *Stream[T] {
	return &Stream[T]{
		ch:      make(chan T, max(1, capacity)),
		closed:  make(chan struct{}),
		metrics: m,
	}
}

// Offer enqueues v, waiting for room while the stream is full
func (s *Stream[T]) Offer(ctx context.Context, v T) error {
	select {
	case <-s.closed:
		return perr.ErrClosed
	default:
	}
	select {
	case s.ch <- v:
		return nil
	default:
	}

	s.metrics.StreamWaited()
	select {
	case s.ch <- v:
		return nil
	case <-s.closed:
		return perr.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv returns the oldest item. Once the stream is closed and empty it
// returns perr.ErrClosed
func (s *Stream[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-s.ch:
		return v, nil
	default:
	}
	select {
	case v := <-s.ch:
		return v, nil
	case <-s.closed:
		select {
		case v := <-s.ch:
			return v, nil
		default:
			return zero, perr.ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close marks the stream terminal. Safe to call more than once
func (s *Stream[T]) Close() { s.once.Do(func() { close(s.closed) }) }

// Closed reports whether Close was called
func (s *Stream[T]) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Len is the number of queued items
func (s *Stream[T]) Len() int { return len(s.ch) }

// Cap is the capacity given at construction
func (s *Stream[T]) Cap() int { return cap(s.ch) }
