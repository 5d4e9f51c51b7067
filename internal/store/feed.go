package store

import (
	"context"
	"sync"
)

// topic names a set of documents whose changes wake live queries.
type topic string

const (
	topicNotifications topic = "notifications"
	topicProjects      topic = "projects"
	topicTasks         topic = "tasks"
)

// feed fans change signals out to live queries. Signals are coalesced per
// subscription: a query that is busy when several commits land re-runs
// once and delivers the latest snapshot.
type feed struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscription
}

type subscription struct {
	topic topic
	wake  chan struct{}
	stop  chan struct{}
	once  sync.Once
}

func newFeed() *feed {
	return &feed{subs: make(map[uint64]*subscription)}
}

func (s *subscription) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// subscribe runs refresh once, then again after every publish on t, until
// the subscription is cancelled or refresh returns false.
func (f *feed) subscribe(t topic, refresh func(stopped func() bool) bool) Unsubscribe {
	sub := &subscription{
		topic: t,
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	f.mu.Unlock()

	unsubscribe := func() {
		sub.once.Do(func() {
			close(sub.stop)
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}

	go func() {
		defer unsubscribe()
		for {
			if !refresh(sub.stopped) {
				return
			}
			select {
			case <-sub.stop:
				return
			case <-sub.wake:
			}
		}
	}()

	return unsubscribe
}

// publish wakes every subscription on the given topics without blocking.
func (f *feed) publish(topics ...topic) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subs {
		for _, t := range topics {
			if sub.topic != t {
				continue
			}
			select {
			case sub.wake <- struct{}{}:
			default:
			}
		}
	}
}

// size returns the number of live subscriptions.
func (f *feed) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// watchQuery turns a one-shot query into a live query on f.
func watchQuery[T any](
	f *feed,
	t topic,
	query func(ctx context.Context) ([]T, error),
	onChange func([]T),
	onError func(error),
) Unsubscribe {
	return f.subscribe(t, func(stopped func() bool) bool {
		list, err := query(context.Background())
		if stopped() {
			return false
		}
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return false
		}
		onChange(list)
		return true
	})
}
