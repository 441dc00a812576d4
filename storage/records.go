package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/Swapnanilmanna1701/tracker/domain"
)

// Records reads and writes the session and tasks records. Undecodable values,
// including values the backend reports as ErrCorrupt, are logged and reported
// as absent.
type Records struct {
	kv         KV
	logger     *log.Logger
	sessionKey string
	tasksKey   string
}

// NewRecords builds Records over kv. A non-empty namespace prefixes both keys.
func NewRecords(kv KV, namespace string, logger *log.Logger) *Records {
	if kv == nil {
		panic("storage.NewRecords: kv is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	prefix := ""
	if namespace != "" {
		prefix = namespace + ":"
	}
	return &Records{
		kv:         kv,
		logger:     logger,
		sessionKey: prefix + SessionKey,
		tasksKey:   prefix + TasksKey,
	}
}

// LoadSession returns nil when no valid session is stored.
func (r *Records) LoadSession(ctx context.Context) (*domain.Session, error) {
	data, err := r.kv.Get(ctx, r.sessionKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if errors.Is(err, ErrCorrupt) {
		r.logger.WithError(err).WithField("key", r.sessionKey).Error("error reading session record")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var s domain.Session
	if err := sonic.Unmarshal(data, &s); err != nil {
		r.logger.WithError(err).WithField("key", r.sessionKey).Error("error parsing session record")
		return nil, nil
	}
	if s.Username == "" {
		r.logger.WithField("key", r.sessionKey).Error("session record has no username")
		return nil, nil
	}
	return &s, nil
}

func (r *Records) SaveSession(ctx context.Context, s domain.Session) error {
	data, err := sonic.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.kv.Set(ctx, r.sessionKey, data); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (r *Records) RemoveSession(ctx context.Context) error {
	return r.kv.Delete(ctx, r.sessionKey)
}

// LoadTasks returns an empty slice when the record is missing or malformed.
func (r *Records) LoadTasks(ctx context.Context) ([]domain.Task, error) {
	data, err := r.kv.Get(ctx, r.tasksKey)
	if errors.Is(err, ErrNotFound) {
		return []domain.Task{}, nil
	}
	if errors.Is(err, ErrCorrupt) {
		r.logger.WithError(err).WithField("key", r.tasksKey).Error("error reading tasks record")
		return []domain.Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tasks: %w", err)
	}
	var tasks []domain.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		r.logger.WithError(err).WithField("key", r.tasksKey).Error("error parsing tasks record")
		return []domain.Task{}, nil
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// SaveTasks writes the whole collection in its current order.
func (r *Records) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := r.kv.Set(ctx, r.tasksKey, data); err != nil {
		return fmt.Errorf("set tasks: %w", err)
	}
	return nil
}
