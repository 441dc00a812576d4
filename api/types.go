package api

import (
	"context"

	"github.com/Swapnanilmanna1701/tracker/domain"
)

const maxBodySize = 64 * 1024 // 64 KiB

// TaskService is the task store as seen by handlers.
type TaskService interface {
	AddTask(ctx context.Context, in domain.TaskInput) (domain.Task, bool)
	UpdateTask(ctx context.Context, task domain.Task) (domain.Task, bool)
	ToggleComplete(ctx context.Context, id string) (domain.Task, bool)
	DeleteTask(ctx context.Context, id string) bool
	ComputeView(filter domain.Filter, term string) []domain.Task
	ComputeStats() domain.Stats
}

// SessionStore persists the logged in user.
type SessionStore interface {
	LoadSession(ctx context.Context) (*domain.Session, error)
	SaveSession(ctx context.Context, s domain.Session) error
	RemoveSession(ctx context.Context) error
}

type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	Username string `json:"username"`
}

// taskRequest is the body of create and update calls.
type taskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Completed   bool    `json:"completed,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// updateRequest is the body of update calls. Clients may send back a task
// exactly as listed; id, createdAt and overdue are accepted and ignored.
type updateRequest struct {
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Completed   bool    `json:"completed,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	Category    string  `json:"category,omitempty"`
	Overdue     bool    `json:"overdue,omitempty"`
}

func (r updateRequest) fields() taskRequest {
	return taskRequest{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		Priority:    r.Priority,
		DueDate:     r.DueDate,
		Category:    r.Category,
	}
}

type taskView struct {
	domain.Task
	Overdue bool `json:"overdue"`
}

type tasksResponse struct {
	Tasks []taskView   `json:"tasks"`
	Stats domain.Stats `json:"stats"`
}
