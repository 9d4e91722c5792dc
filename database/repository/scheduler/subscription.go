package schedulerRepo

import (
	"context"
	"sync"

	"medibook/models"
)

// emitFunc delivers one window; it returns false once the subscription is closing.
type emitFunc func(models.AvailabilityWindow) bool

// windowSubscription runs a backend-specific producer on its own goroutine.
type windowSubscription struct {
	updates   chan models.AvailabilityWindow
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func newWindowSubscription(parent context.Context, produce func(ctx context.Context, emit emitFunc) error) *windowSubscription {
	ctx, cancel := context.WithCancel(parent)
	s := &windowSubscription{
		updates: make(chan models.AvailabilityWindow, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	emit := func(w models.AvailabilityWindow) bool {
		select {
		case s.updates <- w:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(s.updates)
		if err := produce(ctx, emit); err != nil && ctx.Err() == nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
	}()
	return s
}

func (s *windowSubscription) Updates() <-chan models.AvailabilityWindow {
	return s.updates
}

// Close stops the producer and waits for it to exit. It returns the error that ended
// the stream early, if any.
func (s *windowSubscription) Close() error {
	s.closeOnce.Do(s.cancel)
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
