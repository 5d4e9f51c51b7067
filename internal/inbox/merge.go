package inbox

import "github.com/nhle/taskboard/internal/model"

// Flatten merges per-project results into a new list, newest first. The
// input is not modified.
func Flatten(byProject map[string][]model.Notification) []model.Notification {
	n := 0
	for _, list := range byProject {
		n += len(list)
	}
	out := make([]model.Notification, 0, n)
	for _, list := range byProject {
		out = append(out, list...)
	}
	model.SortNewestFirst(out)
	return out
}
