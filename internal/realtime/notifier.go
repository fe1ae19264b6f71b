package realtime

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/chopbox/api/internal/logger"
)

var ErrAlreadyStarted = errors.New("notifier already started")

// Listener receives every change-feed event.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// Notifier owns the single upstream feed subscription and fans each event
// out to local listeners, synchronously and in registration order.
type Notifier struct {
	feed Feed
	log  *zap.Logger

	mu        sync.Mutex
	listeners []subscription
	nextID    int
	status    FeedStatus

	cancel context.CancelFunc
	done   chan struct{}
}

func NewNotifier(feed Feed, log *zap.Logger) *Notifier {
	return &Notifier{feed: feed, log: logger.OrNop(log), status: StatusClosed}
}

// Start opens the upstream subscription in the background. Feed status
// changes are logged; a failed feed is not restarted.
func (n *Notifier) Start(ctx context.Context) error {
	n.mu.Lock()
	if n.cancel != nil {
		n.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.done = make(chan struct{})
	n.mu.Unlock()

	go func() {
		defer close(n.done)
		if err := n.feed.Run(ctx, n.Publish, n.observe); err != nil {
			n.log.Error("change feed stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop closes the upstream subscription and waits for it to finish.
func (n *Notifier) Stop() {
	n.mu.Lock()
	cancel, done := n.cancel, n.done
	n.cancel = nil
	n.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Subscribe registers fn and returns a function that removes it again.
func (n *Notifier) Subscribe(fn Listener) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners = append(n.listeners, subscription{id: id, fn: fn})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for i, s := range n.listeners {
				if s.id == id {
					n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers e to every current listener. A panicking listener is
// logged and skipped.
func (n *Notifier) Publish(e Event) {
	n.mu.Lock()
	listeners := make([]subscription, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	for _, s := range listeners {
		n.deliver(s, e)
	}
}

func (n *Notifier) deliver(s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("change listener panicked",
				zap.Int("listener", s.id),
				zap.String("event", string(e.Type)),
				zap.Any("panic", r))
		}
	}()
	s.fn(e)
}

// Status returns the last observed feed status.
func (n *Notifier) Status() FeedStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

func (n *Notifier) observe(s FeedStatus, err error) {
	n.mu.Lock()
	n.status = s
	n.mu.Unlock()

	if err != nil {
		n.log.Warn("change feed status", zap.String("status", string(s)), zap.Error(err))
		return
	}
	n.log.Info("change feed status", zap.String("status", string(s)))
}
