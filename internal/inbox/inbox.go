package inbox

import (
	"context"
	"slices"
	"sync"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// Mutator performs the write side of the inbox.
type Mutator interface {
	MarkOne(ctx context.Context, recipientID string, n model.Notification) error
	MarkAllRead(ctx context.Context, recipientID string) (int, error)
	DeleteAllMine(ctx context.Context, recipientID string) (int, error)
}

// Snapshot is the state of an Inbox at one point in time. Seq grows with
// every published snapshot, so a receiver can drop one that arrives after
// a newer one.
type Snapshot struct {
	RecipientID string
	Items       []model.Notification
	Unread      int
	Seq         uint64
}

// Inbox owns at most one Watcher and the latest list it delivered.
type Inbox struct {
	src      Source
	mutator  Mutator
	listener func(Snapshot)

	mu          sync.Mutex
	watcher     *Watcher
	recipientID string
	gen         uint64
	seq         uint64
	items       []model.Notification

	pubMu     sync.Mutex
	published uint64
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithListener registers fn to receive every snapshot, including the
// empty one published on Stop.
func WithListener(fn func(Snapshot)) Option {
	return func(b *Inbox) {
		b.listener = fn
	}
}

// New creates an idle Inbox.
func New(src Source, m Mutator, opts ...Option) *Inbox {
	b := &Inbox{src: src, mutator: m}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start watches the inbox of recipientID, stopping any previous watch
// first.
func (b *Inbox) Start(recipientID string) {
	b.Stop()

	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.recipientID = recipientID
	b.mu.Unlock()

	w := Watch(b.src, recipientID, func(list []model.Notification) {
		b.update(gen, list)
	})

	b.mu.Lock()
	if b.gen != gen {
		b.mu.Unlock()
		w.Stop()
		return
	}
	b.watcher = w
	b.mu.Unlock()
}

// Stop detaches the watcher and clears the items.
func (b *Inbox) Stop() {
	b.mu.Lock()
	w := b.watcher
	b.watcher = nil
	b.gen++
	b.recipientID = ""
	b.items = nil
	snap := b.nextSnapshotLocked()
	b.mu.Unlock()

	if w != nil {
		w.Stop()
	}
	b.publish(snap)
}

// Snapshot returns a copy of the current state.
func (b *Inbox) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Strategy reports the strategy of the running watcher.
func (b *Inbox) Strategy() Strategy {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.watcher == nil {
		return StrategyPrimary
	}
	return b.watcher.Strategy()
}

// MarkOne marks a single notification as read.
func (b *Inbox) MarkOne(ctx context.Context, n model.Notification) error {
	rid, err := b.current("marking notification")
	if err != nil {
		return err
	}
	return b.mutator.MarkOne(ctx, rid, n)
}

// MarkAll marks every notification of the current recipient as read.
func (b *Inbox) MarkAll(ctx context.Context) (int, error) {
	rid, err := b.current("marking all read")
	if err != nil {
		return 0, err
	}
	return b.mutator.MarkAllRead(ctx, rid)
}

// ClearAll empties the local list right away, then deletes every
// notification of the current recipient. The watcher restores the real
// state if the delete fails.
func (b *Inbox) ClearAll(ctx context.Context) (int, error) {
	rid, err := b.current("clearing inbox")
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	b.items = nil
	snap := b.nextSnapshotLocked()
	b.mu.Unlock()
	b.publish(snap)

	return b.mutator.DeleteAllMine(ctx, rid)
}

func (b *Inbox) update(gen uint64, list []model.Notification) {
	b.mu.Lock()
	if b.gen != gen {
		b.mu.Unlock()
		return
	}
	b.items = list
	snap := b.nextSnapshotLocked()
	b.mu.Unlock()

	b.publish(snap)
}

func (b *Inbox) current(op string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.recipientID == "" {
		return "", store.Errorf(op, store.CodeUnauthenticated, "inbox is not started")
	}
	return b.recipientID, nil
}

func (b *Inbox) snapshotLocked() Snapshot {
	return Snapshot{
		RecipientID: b.recipientID,
		Items:       slices.Clone(b.items),
		Unread:      model.CountUnread(b.items),
		Seq:         b.seq,
	}
}

func (b *Inbox) nextSnapshotLocked() Snapshot {
	b.seq++
	return b.snapshotLocked()
}

// publish hands s to the listener unless a newer snapshot already went
// out. The listener runs without any lock held, so it may call Stop.
func (b *Inbox) publish(s Snapshot) {
	b.pubMu.Lock()
	if s.Seq <= b.published {
		b.pubMu.Unlock()
		return
	}
	b.published = s.Seq
	b.pubMu.Unlock()

	if b.listener != nil {
		b.listener(s)
	}
}
