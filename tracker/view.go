package tracker

import (
	"sort"
	"strings"

	"github.com/Swapnanilmanna1701/tracker/domain"
)

// filterTasks applies the status filter and then, when the trimmed term is
// not blank, the case-insensitive search over title, description and
// category.
func filterTasks(tasks []domain.Task, filter domain.Filter, term string) []domain.Task {
	search := strings.TrimSpace(term) != ""
	needle := strings.ToLower(term)

	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if !filter.Keep(t) {
			continue
		}
		if search && !matches(t, needle) {
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}

func matches(t domain.Task, needle string) bool {
	return strings.Contains(strings.ToLower(t.Title), needle) ||
		(t.Description != "" && strings.Contains(strings.ToLower(t.Description), needle)) ||
		(t.Category != "" && strings.Contains(strings.ToLower(t.Category), needle))
}

// sortTasks orders tasks for display: incomplete first, then High to Low
// priority, then dated before undated with the earliest due date first, then
// newest first. Equal tasks keep their relative order.
func sortTasks(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return compareTasks(tasks[i], tasks[j]) < 0
	})
}

func compareTasks(a, b domain.Task) int {
	if a.Completed != b.Completed {
		if a.Completed {
			return 1
		}
		return -1
	}
	if d := a.Priority.Rank() - b.Priority.Rank(); d != 0 {
		return d
	}
	switch {
	case a.DueDate != nil && b.DueDate == nil:
		return -1
	case a.DueDate == nil && b.DueDate != nil:
		return 1
	case a.DueDate != nil && b.DueDate != nil:
		if c := a.DueDate.Compare(*b.DueDate); c != 0 {
			return c
		}
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}

func computeStats(tasks []domain.Task) domain.Stats {
	completed := 0
	for _, t := range tasks {
		if t.Completed {
			completed++
		}
	}
	return domain.NewStats(len(tasks), completed)
}
