package storage

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisKVGetSetDelete(t *testing.T) {
	mr, client := newMiniredis(t)
	kv := NewRedisKV(client)
	ctx := context.Background()

	if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := kv.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL("k"); ttl != 0 {
		t.Fatalf("expected no expiry, got %v", ttl)
	}
	got, err := kv.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("unexpected get: %q, %v", got, err)
	}
	if err := kv.Delete(ctx, "k", "missing"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("k") {
		t.Fatalf("expected key to be deleted")
	}
	if err := kv.Delete(ctx); err != nil {
		t.Fatalf("delete without keys: %v", err)
	}
}

func TestRecordsOverRedis(t *testing.T) {
	mr, client := newMiniredis(t)
	r := NewRecords(NewRedisKV(client), "", nil)

	if err := r.SaveTasks(context.Background(), nil); err != nil {
		t.Fatalf("save tasks: %v", err)
	}
	raw, err := mr.Get(TasksKey)
	if err != nil || raw != "[]" {
		t.Fatalf("unexpected stored value %q, %v", raw, err)
	}
}

func TestParseRedisOptions(t *testing.T) {
	opts, err := ParseRedisOptions("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected url options: %#v", opts)
	}

	opts, err = ParseRedisOptions("cache.example.net:6380,password=pw,ssl=True,abortConnect=False")
	if err != nil {
		t.Fatalf("parse azure string: %v", err)
	}
	if opts.Addr != "cache.example.net:6380" || opts.Password != "pw" || opts.TLSConfig == nil {
		t.Fatalf("unexpected azure options: %#v", opts)
	}

	if _, err := ParseRedisOptions(""); err == nil {
		t.Fatalf("expected error for empty connection string")
	}
}
