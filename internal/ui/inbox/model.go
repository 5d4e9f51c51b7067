package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	live "github.com/nhle/taskboard/internal/inbox"
	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/internal/ui"
)

// actionTimeout bounds a single mark or clear operation.
const actionTimeout = 30 * time.Second

// actionDoneMsg reports the outcome of a mark or clear operation.
type actionDoneMsg struct {
	text string
	err  error
}

// Model is the live inbox view.
type Model struct {
	bridge   *Bridge
	keys     *keys.KeyMap
	list     list.Model
	help     help.Model
	layout   ui.Layout
	snapshot live.Snapshot
	status   string
	err      error
	showHelp bool
}

// New creates the inbox view. The bridge should already be started.
func New(b *Bridge, k *keys.KeyMap, width, height int) Model {
	layout := ui.NewLayout(width, height)
	l := list.New([]list.Item{}, itemDelegate{now: time.Now}, width, layout.ContentHeight())
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	return Model{
		bridge: b,
		keys:   k,
		list:   l,
		help:   help.New(),
		layout: layout,
	}
}

// Init waits for the first snapshot.
func (m Model) Init() tea.Cmd {
	return m.bridge.WaitForSnapshot()
}

// Update handles messages for the inbox view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case SnapshotMsg:
		m.snapshot = msg.Snapshot
		items := make([]list.Item, len(msg.Snapshot.Items))
		for i, n := range msg.Snapshot.Items {
			items[i] = NotificationItem{Notification: n}
		}
		return m, tea.Batch(m.list.SetItems(items), m.bridge.WaitForSnapshot())

	case actionDoneMsg:
		m.status, m.err = msg.text, msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.MarkRead):
		item, ok := m.list.SelectedItem().(NotificationItem)
		if !ok || item.Notification.Read {
			return m, nil
		}
		n := item.Notification
		return m, m.action(func(ctx context.Context) (string, error) {
			return "marked as read", m.bridge.markOne(ctx, n)
		})

	case key.Matches(msg, m.keys.MarkAll):
		return m, m.action(func(ctx context.Context) (string, error) {
			count, err := m.bridge.markAll(ctx)
			return fmt.Sprintf("marked %d as read", count), err
		})

	case key.Matches(msg, m.keys.Clear):
		return m, m.action(func(ctx context.Context) (string, error) {
			count, err := m.bridge.clearAll(ctx)
			return fmt.Sprintf("cleared %d notifications", count), err
		})
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// action runs fn off the update loop and reports its result.
func (m Model) action(fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		text, err := fn(ctx)
		return actionDoneMsg{text: text, err: err}
	}
}

// View renders the inbox.
func (m Model) View() string {
	header := m.layout.RenderHeader("Inbox",
		fmt.Sprintf("%d unread · %s", m.snapshot.Unread, m.bridge.Strategy()))

	var content string
	switch {
	case m.showHelp:
		m.help.ShowAll = true
		content = theme.HelpStyle.
			Height(m.layout.ContentHeight()).
			Render(m.help.View(m.keys))
	case len(m.snapshot.Items) == 0:
		content = lipgloss.NewStyle().
			Width(m.layout.Width).
			Height(m.layout.ContentHeight()).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("You're all caught up.")
	default:
		content = m.list.View()
	}

	return m.layout.RenderWithFrame(header, content, m.layout.RenderStatusBar(m.statusLine()))
}

func (m Model) statusLine() string {
	if m.err != nil {
		return theme.ErrorStyle.Render(m.err.Error())
	}
	if m.status != "" {
		return m.status
	}
	return theme.HelpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m *Model) setSize(width, height int) {
	m.layout = ui.NewLayout(width, height)
	m.list.SetSize(width, m.layout.ContentHeight())
	m.help.Width = width
}
