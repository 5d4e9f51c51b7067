package board

import (
	"cmp"
	"slices"

	"github.com/nhle/taskboard/internal/model"
)

// minOrderGap is the smallest spacing between neighbors before a column
// has to be renumbered.
const minOrderGap = 1e-6

// Column is the ordered tasks of one status.
type Column struct {
	Status model.Status `json:"status"`
	Tasks  []model.Task `json:"tasks"`
}

// Columns groups tasks by normalized status in board order, each column
// sorted by Order then creation time. Every status gets a column.
func Columns(tasks []model.Task) []Column {
	byStatus := make(map[model.Status][]model.Task, len(model.Columns))
	for _, t := range tasks {
		st := model.NormalizeStatus(t.Status)
		byStatus[st] = append(byStatus[st], t)
	}

	cols := make([]Column, 0, len(model.Columns))
	for _, st := range model.Columns {
		list := byStatus[st]
		sortColumn(list)
		if list == nil {
			list = []model.Task{}
		}
		cols = append(cols, Column{Status: st, Tasks: list})
	}
	return cols
}

func sortColumn(list []model.Task) {
	slices.SortStableFunc(list, func(a, b model.Task) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

// OrderBetween returns an order key strictly between prev and next. A nil
// neighbor means the card goes to that end of the column. It reports
// false when the neighbors are too close to split.
func OrderBetween(prev, next *float64) (float64, bool) {
	switch {
	case prev == nil && next == nil:
		return 1, true
	case prev == nil:
		return *next - 1, true
	case next == nil:
		return *prev + 1, true
	}
	if *next-*prev < 2*minOrderGap {
		return 0, false
	}
	return *prev + (*next-*prev)/2, true
}

// orderAt returns the key that puts a card at index of col, where col does
// not contain the card.
func orderAt(col []model.Task, index int) (float64, bool) {
	index = max(0, min(index, len(col)))
	var prev, next *float64
	if index > 0 {
		prev = &col[index-1].Order
	}
	if index < len(col) {
		next = &col[index].Order
	}
	return OrderBetween(prev, next)
}

// nextOrder returns the key for appending to col.
func nextOrder(col []model.Task) float64 {
	key, _ := orderAt(col, len(col))
	return key
}
