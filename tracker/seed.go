package tracker

import (
	"time"

	"github.com/Swapnanilmanna1701/tracker/domain"
)

// SampleTasks returns the tasks a first session starts with.
func SampleTasks() []domain.Task {
	due := time.Date(2024, 1, 20, 23, 59, 59, 0, time.UTC)
	return []domain.Task{
		{
			ID:          "1",
			Title:       "Complete React assignment",
			Description: "Build a task tracker application with modern UI",
			CreatedAt:   time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			Priority:    domain.PriorityHigh,
			DueDate:     &due,
			Category:    "Work",
		},
		{
			ID:          "2",
			Title:       "Review JavaScript concepts",
			Description: "Go through ES6+ features and modern JavaScript patterns",
			Completed:   true,
			CreatedAt:   time.Date(2024, 1, 14, 15, 30, 0, 0, time.UTC),
			Priority:    domain.PriorityMedium,
			Category:    "Learning",
		},
		{
			ID:          "3",
			Title:       "Plan weekend activities",
			Description: "Research local events and activities for the weekend",
			CreatedAt:   time.Date(2024, 1, 13, 9, 15, 0, 0, time.UTC),
			Priority:    domain.PriorityLow,
			Category:    "Personal",
		},
	}
}
