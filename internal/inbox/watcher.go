// Package inbox keeps a live, newest-first view of one recipient's
// notifications across every project they belong to.
package inbox

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// Source provides the live queries the watcher is built on.
type Source interface {
	WatchNotifications(
		f store.NotificationFilter,
		onChange func([]model.Notification),
		onError func(error),
	) store.Unsubscribe
	WatchProjectsForMember(
		uid string,
		onChange func([]model.Project),
		onError func(error),
	) store.Unsubscribe
}

// Strategy is the query plan a Watcher is running.
type Strategy int32

const (
	// StrategyPrimary is one live query across every project.
	StrategyPrimary Strategy = iota
	// StrategyFallback is one live query per member project, merged
	// locally.
	StrategyFallback
)

func (s Strategy) String() string {
	if s == StrategyFallback {
		return "fallback"
	}
	return "primary"
}

type eventKind int

const (
	evPrimary eventKind = iota
	evPrimaryError
	evProjects
	evProjectsError
	evScoped
	evScopedError
)

type event struct {
	kind      eventKind
	projectID string
	token     uint64
	list      []model.Notification
	projects  []model.Project
	err       error
}

// projectSub is the live query of one project in fallback mode. The token
// tells its deliveries apart from those of an earlier subscription to the
// same project.
type projectSub struct {
	token       uint64
	unsubscribe store.Unsubscribe
}

// Watcher delivers the full notification list of one recipient to a
// callback every time it changes. Store callbacks only enqueue events; a
// single goroutine owns all state and invokes the callback.
type Watcher struct {
	src         Source
	recipientID string
	onChange    func([]model.Notification)

	qmu   sync.Mutex
	queue []event
	wake  chan struct{}

	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once

	cbMu       sync.Mutex
	delivering atomic.Bool

	strategy atomic.Int32
}

// Watch starts watching the notifications addressed to recipientID and
// returns immediately. onChange receives the complete list, newest first,
// on every change. An empty recipient yields a watcher that never calls
// onChange.
func Watch(src Source, recipientID string, onChange func([]model.Notification)) *Watcher {
	w := &Watcher{
		src:         src,
		recipientID: recipientID,
		onChange:    onChange,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		exited:      make(chan struct{}),
	}
	if recipientID == "" {
		close(w.exited)
		return w
	}
	go w.run()
	return w
}

// Strategy reports the query plan currently in use.
func (w *Watcher) Strategy() Strategy {
	return Strategy(w.strategy.Load())
}

// Stop detaches every live query. It is idempotent and may be called from
// inside the callback. Once Stop returns no new callback starts. Unless a
// callback is running, it also waits for the queries to be torn down.
func (w *Watcher) Stop() {
	if w.delivering.Load() {
		w.closeDone()
		return
	}
	w.cbMu.Lock()
	w.closeDone()
	w.cbMu.Unlock()
	<-w.exited
}

func (w *Watcher) closeDone() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Watcher) post(ev event) {
	w.qmu.Lock()
	w.queue = append(w.queue, ev)
	w.qmu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Watcher) drain() []event {
	w.qmu.Lock()
	defer w.qmu.Unlock()
	events := w.queue
	w.queue = nil
	return events
}

func (w *Watcher) stopped() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// deliver invokes the callback unless the watcher has been stopped.
func (w *Watcher) deliver(list []model.Notification) {
	w.cbMu.Lock()
	defer w.cbMu.Unlock()
	if w.stopped() {
		return
	}
	w.delivering.Store(true)
	defer w.delivering.Store(false)
	w.onChange(list)
}

// loop is the state owned by the run goroutine.
type loop struct {
	w *Watcher

	primary  store.Unsubscribe
	projects store.Unsubscribe

	subs      map[string]projectSub
	results   map[string][]model.Notification
	nextToken uint64
	seenFirst bool
}

func (w *Watcher) run() {
	defer close(w.exited)

	l := &loop{
		w:       w,
		subs:    make(map[string]projectSub),
		results: make(map[string][]model.Notification),
	}
	defer l.teardown()

	l.primary = w.src.WatchNotifications(
		store.NotificationFilter{RecipientID: w.recipientID},
		func(list []model.Notification) { w.post(event{kind: evPrimary, list: list}) },
		func(err error) { w.post(event{kind: evPrimaryError, err: err}) },
	)

	for {
		select {
		case <-w.done:
			return
		case <-w.wake:
		}
		for _, ev := range w.drain() {
			if w.stopped() {
				return
			}
			l.handle(ev)
		}
	}
}

func (l *loop) handle(ev event) {
	w := l.w
	fallback := w.Strategy() == StrategyFallback

	switch ev.kind {
	case evPrimary:
		if fallback {
			return
		}
		model.SortNewestFirst(ev.list)
		w.deliver(ev.list)

	case evPrimaryError:
		if fallback {
			return
		}
		log.Printf("[inbox] cross-project query for %s failed, switching to per-project queries: %v",
			w.recipientID, ev.err)
		l.switchToFallback()

	case evProjects:
		if fallback {
			l.syncProjects(ev.projects)
		}

	case evProjectsError:
		log.Printf("[inbox] project membership query for %s failed: %v", w.recipientID, ev.err)

	case evScoped:
		sub, ok := l.subs[ev.projectID]
		if !ok || sub.token != ev.token {
			return
		}
		l.results[ev.projectID] = ev.list
		w.deliver(Flatten(l.results))

	case evScopedError:
		if sub, ok := l.subs[ev.projectID]; ok && sub.token == ev.token {
			log.Printf("[inbox] notification query for %s in project %s failed: %v",
				w.recipientID, ev.projectID, ev.err)
		}
	}
}

// switchToFallback tears down the primary query and watches the
// recipient's projects instead. There is no way back.
func (l *loop) switchToFallback() {
	w := l.w
	w.strategy.Store(int32(StrategyFallback))
	if l.primary != nil {
		l.primary()
		l.primary = nil
	}

	l.projects = w.src.WatchProjectsForMember(w.recipientID,
		func(projects []model.Project) { w.post(event{kind: evProjects, projects: projects}) },
		func(err error) { w.post(event{kind: evProjectsError, err: err}) },
	)
}

// syncProjects opens a scoped query for every new project and closes the
// ones the recipient no longer belongs to.
func (l *loop) syncProjects(projects []model.Project) {
	w := l.w
	current := make(map[string]struct{}, len(projects))
	for _, p := range projects {
		current[p.ID] = struct{}{}
	}

	removed := false
	for pid, sub := range l.subs {
		if _, ok := current[pid]; ok {
			continue
		}
		sub.unsubscribe()
		delete(l.subs, pid)
		if _, had := l.results[pid]; had {
			delete(l.results, pid)
			removed = true
		}
	}

	for pid := range current {
		if _, ok := l.subs[pid]; ok {
			continue
		}
		l.nextToken++
		token := l.nextToken
		l.subs[pid] = projectSub{
			token: token,
			unsubscribe: w.src.WatchNotifications(
				store.NotificationFilter{RecipientID: w.recipientID, ProjectID: pid},
				func(list []model.Notification) {
					w.post(event{kind: evScoped, projectID: pid, token: token, list: list})
				},
				func(err error) {
					w.post(event{kind: evScopedError, projectID: pid, token: token, err: err})
				},
			),
		}
	}

	first := !l.seenFirst
	l.seenFirst = true
	if removed || (first && len(projects) == 0) {
		w.deliver(Flatten(l.results))
	}
}

func (l *loop) teardown() {
	if l.primary != nil {
		l.primary()
	}
	if l.projects != nil {
		l.projects()
	}
	for _, sub := range l.subs {
		sub.unsubscribe()
	}
}
