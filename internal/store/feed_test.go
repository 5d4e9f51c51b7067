package store

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestFeedCoalescesWakeups(t *testing.T) {
	f := newFeed()

	var runs atomic.Int32
	release := make(chan struct{})
	unsubscribe := f.subscribe(topicTasks, func(stopped func() bool) bool {
		if runs.Add(1) == 2 {
			<-release
		}
		return !stopped()
	})
	defer unsubscribe()

	waitFor(t, func() bool { return runs.Load() == 1 })
	f.publish(topicTasks)
	waitFor(t, func() bool { return runs.Load() == 2 })

	// The second refresh is blocked; these collapse into one rerun.
	for i := 0; i < 10; i++ {
		f.publish(topicTasks)
	}
	close(release)

	waitFor(t, func() bool { return runs.Load() == 3 })
	time.Sleep(20 * time.Millisecond)
	if got := runs.Load(); got != 3 {
		t.Fatalf("refresh ran %d times, want 3", got)
	}
}

func TestFeedIgnoresOtherTopics(t *testing.T) {
	f := newFeed()

	var runs atomic.Int32
	unsubscribe := f.subscribe(topicNotifications, func(func() bool) bool {
		runs.Add(1)
		return true
	})
	defer unsubscribe()

	waitFor(t, func() bool { return runs.Load() == 1 })
	f.publish(topicProjects, topicTasks)
	time.Sleep(20 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Fatalf("refresh ran %d times, want 1", got)
	}
}

func TestFeedUnsubscribe(t *testing.T) {
	f := newFeed()

	unsubscribe := f.subscribe(topicTasks, func(func() bool) bool { return true })
	if f.size() != 1 {
		t.Fatalf("size = %d, want 1", f.size())
	}
	unsubscribe()
	unsubscribe()
	if f.size() != 0 {
		t.Fatalf("size = %d, want 0", f.size())
	}
	f.publish(topicTasks)
}
