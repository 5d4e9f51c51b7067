// Package inbox is the terminal view of a live notification inbox.
package inbox

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	live "github.com/nhle/taskboard/internal/inbox"
	"github.com/nhle/taskboard/internal/model"
)

// SnapshotMsg is a tea.Msg carrying the latest inbox state.
type SnapshotMsg struct {
	Snapshot live.Snapshot
}

// Bridge feeds inbox snapshots into the Bubble Tea runtime. Only the most
// recent undelivered snapshot is kept.
type Bridge struct {
	box      *live.Inbox
	updates  chan live.Snapshot
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	lastSeq uint64
}

// NewBridge creates a Bridge over an idle inbox.
func NewBridge(src live.Source, m live.Mutator) *Bridge {
	b := &Bridge{
		updates: make(chan live.Snapshot, 1),
		done:    make(chan struct{}),
	}
	b.box = live.New(src, m, live.WithListener(b.push))
	return b
}

// Start begins watching the inbox of recipientID.
func (b *Bridge) Start(recipientID string) {
	b.box.Start(recipientID)
}

// Stop detaches the inbox and releases any pending WaitForSnapshot.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.box.Stop()
	})
}

// Strategy reports how the inbox is currently being watched.
func (b *Bridge) Strategy() live.Strategy {
	return b.box.Strategy()
}

func (b *Bridge) markOne(ctx context.Context, n model.Notification) error {
	return b.box.MarkOne(ctx, n)
}

func (b *Bridge) markAll(ctx context.Context) (int, error) {
	return b.box.MarkAll(ctx)
}

func (b *Bridge) clearAll(ctx context.Context) (int, error) {
	return b.box.ClearAll(ctx)
}

// push replaces any pending snapshot with s. A snapshot older than one
// already pushed is dropped.
func (b *Bridge) push(s live.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.Seq <= b.lastSeq {
		return
	}
	b.lastSeq = s.Seq
	for {
		select {
		case b.updates <- s:
			return
		default:
		}
		select {
		case <-b.updates:
		default:
		}
	}
}

// WaitForSnapshot returns a tea.Cmd that waits for the next snapshot.
// Call it again after handling each SnapshotMsg to keep listening.
func (b *Bridge) WaitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-b.updates:
			return SnapshotMsg{Snapshot: s}
		case <-b.done:
			return nil
		}
	}
}
