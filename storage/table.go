package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

const (
	tablePartition = "tracker"
	// String properties are limited to 64 KiB of UTF-16; base64 text is ASCII.
	tableChunkSize = 32 * 1024
	// Keeps an entity below the 1 MiB service limit.
	tableMaxChunks   = 15
	tableRowCapacity = tableChunkSize * tableMaxChunks
	// About 15 MiB of base64 per key.
	tableMaxRows = 32
)

type tableClient interface {
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
}

// TableKV keeps each key in Azure Table entities. Values are base64 encoded
// and split across Value0..ValueN properties. A value larger than one entity
// continues in extra rows named after a generation stored on the head row, so
// a reader never mixes rows from two writes.
type TableKV struct {
	client tableClient
	now    func() time.Time
}

// NewTableKV connects to the named table using a storage connection string.
func NewTableKV(connStr, table string) (*TableKV, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TableKV{client: svc.NewClient(table), now: time.Now}, nil
}

// EnsureTable creates the table unless it already exists.
func (t *TableKV) EnsureTable(ctx context.Context) error {
	_, err := t.client.CreateTable(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists) {
			return nil
		}
		return err
	}
	return nil
}

// Get returns ErrNotFound for a missing key and wraps ErrCorrupt when the
// stored rows cannot be reassembled.
func (t *TableKV) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := t.client.GetEntity(ctx, tablePartition, key, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	head, err := parseTableEntity(resp.Value)
	if err != nil {
		return nil, corrupt(key, err)
	}
	var sb strings.Builder
	if err := head.appendChunks(&sb); err != nil {
		return nil, corrupt(key, err)
	}
	for i := 1; i < head.rows; i++ {
		resp, err := t.client.GetEntity(ctx, tablePartition, rowKey(key, head.gen, i), nil)
		if err != nil {
			if isNotFound(err) {
				return nil, corrupt(key, fmt.Errorf("row %d is missing", i))
			}
			return nil, err
		}
		row, err := parseTableEntity(resp.Value)
		if err != nil {
			return nil, corrupt(key, err)
		}
		if err := row.appendChunks(&sb); err != nil {
			return nil, corrupt(key, err)
		}
	}
	data, err := base64.StdEncoding.DecodeString(sb.String())
	if err != nil {
		return nil, corrupt(key, err)
	}
	return data, nil
}

// Set writes the continuation rows first and the head row last, then drops
// the rows of the previous generation.
func (t *TableKV) Set(ctx context.Context, key string, value []byte) error {
	parts := splitString(base64.StdEncoding.EncodeToString(value), tableRowCapacity)
	if len(parts) > tableMaxRows {
		return fmt.Errorf("value for %s is too large: %d bytes", key, len(value))
	}
	prev, err := t.head(ctx, key)
	if err != nil {
		return err
	}

	gen := ""
	if len(parts) > 1 {
		gen = strconv.FormatInt(t.clock().UnixNano(), 36)
	}
	for i := 1; i < len(parts); i++ {
		if err := t.upsert(ctx, newTableEntity(rowKey(key, gen, i), parts[i])); err != nil {
			return err
		}
	}
	head := newTableEntity(key, parts[0])
	head["Rows"] = len(parts)
	if gen != "" {
		head["Gen"] = gen
	}
	if err := t.upsert(ctx, head); err != nil {
		return err
	}

	if prev.gen != "" && prev.gen != gen {
		// Stale rows are unreachable once the head is replaced.
		_ = t.deleteRows(ctx, key, prev)
	}
	return nil
}

func (t *TableKV) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		prev, err := t.head(ctx, key)
		if err != nil {
			return err
		}
		if err := t.deleteRows(ctx, key, prev); err != nil {
			return err
		}
		if err := t.deleteRow(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// head reads the row layout of key. A missing or unreadable head row reports
// a single row.
func (t *TableKV) head(ctx context.Context, key string) (tableEntity, error) {
	resp, err := t.client.GetEntity(ctx, tablePartition, key, nil)
	if err != nil {
		if isNotFound(err) {
			return tableEntity{rows: 1}, nil
		}
		return tableEntity{}, err
	}
	ent, err := parseTableEntity(resp.Value)
	if err != nil {
		return tableEntity{rows: 1}, nil
	}
	return ent, nil
}

func (t *TableKV) deleteRows(ctx context.Context, key string, head tableEntity) error {
	for i := 1; i < head.rows; i++ {
		if err := t.deleteRow(ctx, rowKey(key, head.gen, i)); err != nil {
			return err
		}
	}
	return nil
}

func (t *TableKV) deleteRow(ctx context.Context, rk string) error {
	if _, err := t.client.DeleteEntity(ctx, tablePartition, rk, nil); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (t *TableKV) upsert(ctx context.Context, ent map[string]any) error {
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = t.client.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

func (t *TableKV) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}

func corrupt(key string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
}

// rowKey names continuation row i of key. Row 0 is the key itself.
func rowKey(key, gen string, i int) string {
	if i == 0 {
		return key
	}
	return key + "~" + gen + "~" + strconv.Itoa(i)
}

func splitString(s string, size int) []string {
	if s == "" {
		return []string{""}
	}
	var parts []string
	for len(s) > size {
		parts = append(parts, s[:size])
		s = s[size:]
	}
	return append(parts, s)
}

func newTableEntity(rk, part string) map[string]any {
	chunks := splitString(part, tableChunkSize)
	if part == "" {
		chunks = nil
	}
	ent := map[string]any{
		"PartitionKey": tablePartition,
		"RowKey":       rk,
		"Chunks":       len(chunks),
	}
	for i, c := range chunks {
		ent["Value"+strconv.Itoa(i)] = c
	}
	return ent
}

type tableEntity struct {
	raw  map[string]any
	rows int
	gen  string
}

func parseTableEntity(data []byte) (tableEntity, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return tableEntity{}, err
	}
	ent := tableEntity{raw: raw, rows: 1}
	if n, ok := raw["Rows"].(float64); ok {
		if n < 1 || n > tableMaxRows {
			return tableEntity{}, fmt.Errorf("invalid row count %v", n)
		}
		ent.rows = int(n)
	}
	ent.gen, _ = raw["Gen"].(string)
	if ent.rows > 1 && ent.gen == "" {
		return tableEntity{}, errors.New("entity has no generation")
	}
	return ent, nil
}

func (e tableEntity) appendChunks(sb *strings.Builder) error {
	n, ok := e.raw["Chunks"].(float64)
	if !ok || n < 0 || n > tableMaxChunks {
		return errors.New("entity has no valid chunk count")
	}
	for i := 0; i < int(n); i++ {
		part, ok := e.raw["Value"+strconv.Itoa(i)].(string)
		if !ok {
			return fmt.Errorf("entity is missing chunk %d", i)
		}
		sb.WriteString(part)
	}
	return nil
}
