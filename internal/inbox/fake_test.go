package inbox

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
	"github.com/nhle/taskboard/tests/testutil"
)

// fakeSub is one live query opened on fakeSource. Tests drive it by hand.
type fakeSub struct {
	filter     store.NotificationFilter
	onChange   func([]model.Notification)
	onProjects func([]model.Project)
	onError    func(error)
	cancelled  atomic.Bool
}

func (s *fakeSub) emit(list ...model.Notification) {
	s.onChange(list)
}

func (s *fakeSub) emitProjects(ids ...string) {
	projects := make([]model.Project, 0, len(ids))
	for _, id := range ids {
		projects = append(projects, model.Project{ID: id})
	}
	s.onProjects(projects)
}

func (s *fakeSub) fail(err error) {
	s.onError(err)
}

type fakeSource struct {
	mu       sync.Mutex
	notifs   []*fakeSub
	projects []*fakeSub
}

func (f *fakeSource) WatchNotifications(
	filter store.NotificationFilter,
	onChange func([]model.Notification),
	onError func(error),
) store.Unsubscribe {
	sub := &fakeSub{filter: filter, onChange: onChange, onError: onError}
	f.mu.Lock()
	f.notifs = append(f.notifs, sub)
	f.mu.Unlock()
	return func() { sub.cancelled.Store(true) }
}

func (f *fakeSource) WatchProjectsForMember(
	uid string,
	onChange func([]model.Project),
	onError func(error),
) store.Unsubscribe {
	sub := &fakeSub{filter: store.NotificationFilter{RecipientID: uid}, onProjects: onChange, onError: onError}
	f.mu.Lock()
	f.projects = append(f.projects, sub)
	f.mu.Unlock()
	return func() { sub.cancelled.Store(true) }
}

// notifSub waits for the latest live query scoped to projectID ("" for
// the cross-project query).
func (f *fakeSource) notifSub(t *testing.T, projectID string) *fakeSub {
	t.Helper()
	var found *fakeSub
	testutil.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := len(f.notifs) - 1; i >= 0; i-- {
			if f.notifs[i].filter.ProjectID == projectID && !f.notifs[i].cancelled.Load() {
				found = f.notifs[i]
				return true
			}
		}
		return false
	}, "live query for project "+projectID)
	return found
}

func (f *fakeSource) projectSub(t *testing.T) *fakeSub {
	t.Helper()
	var found *fakeSub
	testutil.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if len(f.projects) == 0 {
			return false
		}
		found = f.projects[len(f.projects)-1]
		return true
	}, "membership query")
	return found
}

func (f *fakeSource) counts() (notifs, projects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notifs), len(f.projects)
}

func (f *fakeSource) allCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range append(append([]*fakeSub{}, f.notifs...), f.projects...) {
		if !s.cancelled.Load() {
			return false
		}
	}
	return true
}
