package inbox

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// NotificationItem wraps a model.Notification so it can be used in a
// bubbles/list.
type NotificationItem struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i NotificationItem) FilterValue() string { return i.Notification.Summary() }

// itemDelegate implements list.ItemDelegate.
type itemDelegate struct {
	now func() time.Time
}

func (d itemDelegate) Height() int { return 1 }
func (d itemDelegate) Spacing() int { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws a single notification line.
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ni, ok := item.(NotificationItem)
	if !ok {
		return
	}
	n := ni.Notification

	marker := " "
	if !n.Read {
		marker = lipgloss.NewStyle().Foreground(theme.ColorBlue).Render("●")
	}
	badge := theme.KindStyle(n.Kind).Render(string(n.Kind))
	when := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(d.now(), n.CreatedAt))

	line := fmt.Sprintf("%s %s %s %s on %s  %s",
		marker, badge, n.ActorID, summary(n), n.TaskID, when)

	switch {
	case index == m.Index():
		line = theme.SelectedItemStyle.Render(line)
	case n.Read:
		line = theme.ReadItemStyle.Render(line)
	default:
		line = theme.ListItemStyle.Render(line)
	}
	fmt.Fprint(w, line)
}

// summary is n.Summary with the old and new values of a change coloured
// like the board shows them.
func summary(n model.Notification) string {
	switch n.Kind {
	case model.KindStatus:
		return "moved a task from " +
			theme.StatusStyle(model.Status(n.OldStatus)).UnsetPadding().Render(n.OldStatus) + " to " +
			theme.StatusStyle(model.Status(n.NewStatus)).UnsetPadding().Render(n.NewStatus)
	case model.KindPriority:
		return "changed task priority from " +
			theme.PriorityStyle(model.Priority(n.OldPriority)).Render(n.OldPriority) + " to " +
			theme.PriorityStyle(model.Priority(n.NewPriority)).Render(n.NewPriority)
	default:
		return n.Summary()
	}
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(now, t time.Time) string {
	if t.IsZero() {
		return "pending"
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
