package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Swapnanilmanna1701/tracker/domain"
)

// Loader reads the persisted collection once at startup.
type Loader interface {
	LoadTasks(ctx context.Context) ([]domain.Task, error)
}

// Persister receives the whole collection after every mutation.
type Persister interface {
	SaveTasks(ctx context.Context, tasks []domain.Task) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, tasks []domain.Task) error

func (f PersisterFunc) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	return f(ctx, tasks)
}

// Option configures a TaskStore.
type Option func(*TaskStore)

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *TaskStore) { s.now = now }
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *TaskStore) { s.newID = gen }
}

// TaskStore owns the task collection. Newest tasks are kept first.
// Operations on unknown ids are silent no-ops.
type TaskStore struct {
	mu        sync.RWMutex
	tasks     []domain.Task
	loader    Loader
	persister Persister
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
}

// New builds an empty store. Call Initialize before serving.
func New(loader Loader, persister Persister, logger *log.Logger, opts ...Option) *TaskStore {
	if loader == nil || persister == nil {
		panic("tracker.New: loader and persister are required")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &TaskStore{
		loader:    loader,
		persister: persister,
		logger:    logger,
		now:       time.Now,
		newID:     NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize loads the persisted collection. An empty collection is replaced
// by the sample tasks, which are persisted straight away.
func (s *TaskStore) Initialize(ctx context.Context) error {
	tasks, err := s.loader.LoadTasks(ctx)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(tasks) == 0 {
		s.tasks = SampleTasks()
		s.logger.WithField("tasks", len(s.tasks)).Info("no persisted tasks, seeding samples")
		s.persistLocked(ctx)
		return nil
	}
	s.tasks = domain.CloneTasks(tasks)
	s.logger.WithField("tasks", len(s.tasks)).Debug("tasks loaded")
	return nil
}

// AddTask prepends a new task. It returns false and does nothing when the
// title is blank.
func (s *TaskStore) AddTask(ctx context.Context, in domain.TaskInput) (domain.Task, bool) {
	in = in.Normalize()
	if in.Title == "" {
		return domain.Task{}, false
	}
	task := domain.Task{
		ID:          s.newID(),
		Title:       in.Title,
		Description: in.Description,
		Completed:   in.Completed,
		CreatedAt:   s.now().UTC(),
		Priority:    in.Priority,
		Category:    in.Category,
	}
	if in.DueDate != nil {
		d := in.DueDate.UTC()
		task.DueDate = &d
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append([]domain.Task{task}, s.tasks...)
	s.persistLocked(ctx)
	return task.Clone(), true
}

// UpdateTask replaces the stored task with the same id. The stored id and
// createdAt always win over the supplied ones; a blank title or unknown
// priority keeps the stored value.
func (s *TaskStore) UpdateTask(ctx context.Context, task domain.Task) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(task.ID)
	if i < 0 {
		return domain.Task{}, false
	}
	cur := s.tasks[i]
	next := task.Clone()
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	next.Title = strings.TrimSpace(next.Title)
	if next.Title == "" {
		next.Title = cur.Title
	}
	next.Description = strings.TrimSpace(next.Description)
	next.Category = strings.TrimSpace(next.Category)
	if !next.Priority.Valid() {
		next.Priority = cur.Priority
	}
	s.tasks[i] = next
	s.persistLocked(ctx)
	return next.Clone(), true
}

// ToggleComplete flips the completed flag of the task with the given id.
func (s *TaskStore) ToggleComplete(ctx context.Context, id string) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.Task{}, false
	}
	s.tasks[i].Completed = !s.tasks[i].Completed
	s.persistLocked(ctx)
	return s.tasks[i].Clone(), true
}

// DeleteTask removes the task with the given id permanently.
func (s *TaskStore) DeleteTask(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	s.persistLocked(ctx)
	return true
}

// Get returns a copy of the task with the given id.
func (s *TaskStore) Get(id string) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.Task{}, false
	}
	return s.tasks[i].Clone(), true
}

// Tasks returns a copy of the collection in stored order.
func (s *TaskStore) Tasks() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneTasks(s.tasks)
}

// ComputeView returns the filtered, searched and sorted tasks for display.
func (s *TaskStore) ComputeView(filter domain.Filter, term string) []domain.Task {
	s.mu.RLock()
	out := filterTasks(s.tasks, filter, term)
	s.mu.RUnlock()
	sortTasks(out)
	return out
}

// ComputeStats counts the whole collection regardless of any filter.
func (s *TaskStore) ComputeStats() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return computeStats(s.tasks)
}

func (s *TaskStore) indexLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked hands a snapshot to the persister. Failures leave the
// in-memory collection authoritative and are only logged.
func (s *TaskStore) persistLocked(ctx context.Context) {
	snapshot := domain.CloneTasks(s.tasks)
	if err := s.persister.SaveTasks(ctx, snapshot); err != nil {
		s.logger.WithError(err).WithField("tasks", len(snapshot)).Warn("persist tasks failed")
	}
}
