package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Swapnanilmanna1701/tracker/domain"
)

type failingKV struct{ err error }

func (f failingKV) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingKV) Set(context.Context, string, []byte) error  { return f.err }
func (f failingKV) Delete(context.Context, ...string) error    { return f.err }

func TestRecordsTasksRoundTrip(t *testing.T) {
	logger, _ := test.NewNullLogger()
	r := NewRecords(NewMemory(), "", logger)
	ctx := context.Background()

	due := time.Date(2024, 1, 20, 23, 59, 59, 0, time.UTC)
	tasks := []domain.Task{
		{ID: "b", Title: "Second", Priority: domain.PriorityHigh, CreatedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), DueDate: &due, Category: "Work"},
		{ID: "a", Title: "First", Priority: domain.PriorityLow, Completed: true, CreatedAt: time.Date(2024, 1, 14, 15, 30, 0, 0, time.UTC)},
	}
	if err := r.SaveTasks(ctx, tasks); err != nil {
		t.Fatalf("save tasks: %v", err)
	}
	got, err := r.LoadTasks(ctx)
	if err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	if !reflect.DeepEqual(got, tasks) {
		t.Fatalf("unexpected tasks: %#v", got)
	}
}

func TestRecordsMissingTasksIsEmpty(t *testing.T) {
	r := NewRecords(NewMemory(), "", nil)

	got, err := r.LoadTasks(context.Background())
	if err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestRecordsMalformedValuesAreAbsent(t *testing.T) {
	logger, hook := test.NewNullLogger()
	kv := NewMemory()
	ctx := context.Background()
	_ = kv.Set(ctx, TasksKey, []byte("{not json"))
	_ = kv.Set(ctx, SessionKey, []byte("[1,2"))
	r := NewRecords(kv, "", logger)

	tasks, err := r.LoadTasks(ctx)
	if err != nil || len(tasks) != 0 {
		t.Fatalf("expected empty tasks without error, got %#v, %v", tasks, err)
	}
	session, err := r.LoadSession(ctx)
	if err != nil || session != nil {
		t.Fatalf("expected absent session without error, got %#v, %v", session, err)
	}

	errorsLogged := 0
	for _, e := range hook.AllEntries() {
		if e.Level == log.ErrorLevel {
			errorsLogged++
		}
	}
	if errorsLogged != 2 {
		t.Fatalf("expected 2 decode errors logged, got %d", errorsLogged)
	}
}

func TestRecordsSessionLifecycle(t *testing.T) {
	r := NewRecords(NewMemory(), "", nil)
	ctx := context.Background()

	s, err := domain.NewSession("alice", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := r.SaveSession(ctx, s); err != nil {
		t.Fatalf("save session: %v", err)
	}
	got, err := r.LoadSession(ctx)
	if err != nil || got == nil || !reflect.DeepEqual(*got, s) {
		t.Fatalf("unexpected session: %#v, %v", got, err)
	}
	if err := r.RemoveSession(ctx); err != nil {
		t.Fatalf("remove session: %v", err)
	}
	if got, _ := r.LoadSession(ctx); got != nil {
		t.Fatalf("expected session to be removed, got %#v", got)
	}
}

func TestRecordsSessionWithoutUsernameIsAbsent(t *testing.T) {
	logger, _ := test.NewNullLogger()
	kv := NewMemory()
	_ = kv.Set(context.Background(), SessionKey, []byte(`{"loginTime":"2024-01-01T00:00:00Z"}`))

	got, err := NewRecords(kv, "", logger).LoadSession(context.Background())
	if err != nil || got != nil {
		t.Fatalf("expected absent session, got %#v, %v", got, err)
	}
}

func TestRecordsNamespace(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()
	r := NewRecords(kv, "ns", nil)

	_ = r.SaveSession(ctx, domain.Session{Username: "bob"})
	_ = r.SaveTasks(ctx, nil)
	if _, err := kv.Get(ctx, "ns:"+SessionKey); err != nil {
		t.Fatalf("expected namespaced session key: %v", err)
	}
	raw, err := kv.Get(ctx, "ns:"+TasksKey)
	if err != nil || string(raw) != "[]" {
		t.Fatalf("expected nil tasks to encode as [], got %s, %v", raw, err)
	}
	if _, err := kv.Get(ctx, TasksKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected un-namespaced key to be unused, got %v", err)
	}
}

func TestRecordsPropagatesBackendErrors(t *testing.T) {
	boom := errors.New("backend down")
	r := NewRecords(failingKV{err: boom}, "", nil)
	ctx := context.Background()

	if _, err := r.LoadTasks(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected backend error from LoadTasks, got %v", err)
	}
	if _, err := r.LoadSession(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected backend error from LoadSession, got %v", err)
	}
	if err := r.SaveTasks(ctx, nil); !errors.Is(err, boom) {
		t.Fatalf("expected backend error from SaveTasks, got %v", err)
	}
}
