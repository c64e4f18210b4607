// Package poller runs the periodic re-query loops behind every list and feed.
// Instead of each view owning its own timer, subscriptions are keyed by topic
// and reference counted: the first subscriber starts the loop, later ones
// share it, and the last Stop tears it down and cancels anything in flight.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval matches the product-wide refresh period.
const DefaultInterval = 3 * time.Second

// Func is one poll pass. It must honor ctx: the context is cancelled when the
// topic's last subscriber stops, so a slow response can never land on a view
// that already went away.
type Func func(ctx context.Context)

type Scheduler struct {
	interval time.Duration
	sugar    *zap.SugaredLogger

	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	refs   int
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(interval time.Duration, sugar *zap.SugaredLogger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		interval: interval,
		sugar:    sugar,
		topics:   make(map[string]*topic),
	}
}

// Subscribe registers interest in a topic. The first subscriber's fn becomes
// the topic's poll pass and runs immediately, then once per interval; callers
// subscribing to the same topic are expected to hand in the same underlying
// loader, so only one query is in flight per topic regardless of how many
// views display the data.
func (s *Scheduler) Subscribe(name string, fn Func) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[name]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		t = &topic{cancel: cancel, done: make(chan struct{})}
		s.topics[name] = t
		go s.run(ctx, name, fn, t.done)
	}
	t.refs++

	return &Subscription{scheduler: s, name: name}
}

func (s *Scheduler) run(ctx context.Context, name string, fn Func, done chan struct{}) {
	defer close(done)

	s.sugar.Debugw("poll loop started", "topic", name)
	fn(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.sugar.Debugw("poll loop stopped", "topic", name)
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (s *Scheduler) release(name string) {
	s.mu.Lock()
	t, ok := s.topics[name]
	if !ok {
		s.mu.Unlock()
		return
	}
	t.refs--
	if t.refs > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.topics, name)
	s.mu.Unlock()

	t.cancel()
	<-t.done
}

// Active returns the number of live topics.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.topics)
}

// Subscription is one view's handle on a topic.
type Subscription struct {
	scheduler *Scheduler
	name      string
	once      sync.Once
}

// Stop releases the subscription. The last Stop on a topic cancels the loop
// context and waits for the loop goroutine to exit.
func (sub *Subscription) Stop() {
	sub.once.Do(func() {
		sub.scheduler.release(sub.name)
	})
}
