package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KV.Get for a key that holds no value.
var ErrNotFound = errors.New("storage: key not found")

// ErrCorrupt is returned by KV.Get when the stored value cannot be
// reassembled by the backend.
var ErrCorrupt = errors.New("storage: corrupt value")

// Record keys shared with the browser build of the tracker.
const (
	SessionKey = "taskTracker_user"
	TasksKey   = "taskTracker_tasks"
)

// KV is an opaque key-value store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}
