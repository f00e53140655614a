package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// tableKeys declares each table's primary key attributes. The memory store
// needs them to reproduce the real key semantics, in particular last write
// wins on primary key collisions.
var tableKeys = map[string][]string{
	TableUser:            {"id"},
	TableApplication:     {"id"},
	TableApplicationUser: {"applicationId", "userId"},
	TableRedirect:        {"applicationId", "id"},
	TableHostSource:      {"hostsource"},
}

// MemoryStore is an in-process Store with the same observable behavior as
// the real backend. It backs the service and handler tests.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]any
	// FailInsert makes Insert fail for the given hostsource values; used to
	// exercise partial fan-out failures.
	FailInsert map[string]error
}

// NewMemoryStore builds an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables:     make(map[string]map[string]map[string]any),
		FailInsert: make(map[string]error),
	}
}

func (s *MemoryStore) table(name string) map[string]map[string]any {
	t, ok := s.tables[name]
	if !ok {
		t = make(map[string]map[string]any)
		s.tables[name] = t
	}
	return t
}

func primaryKey(table string, item map[string]any) (string, error) {
	attrs, ok := tableKeys[table]
	if !ok {
		return "", fmt.Errorf("store: unknown table %q", table)
	}
	parts := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		v, ok := item[attr]
		if !ok {
			return "", fmt.Errorf("store: missing key attribute %q for table %q", attr, table)
		}
		parts = append(parts, fmt.Sprintf("%v", v))
	}
	return strings.Join(parts, "/"), nil
}

func matches(item map[string]any, keys Keys) bool {
	for attr, want := range keys {
		got, ok := item[attr]
		if !ok || fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

func cloneItem(item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

// Get fetches an item by full primary key; nil when absent.
func (s *MemoryStore) Get(_ context.Context, table string, keys Keys) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pk, err := primaryKey(table, keys)
	if err != nil {
		return nil, err
	}
	item, ok := s.table(table)[pk]
	if !ok {
		return nil, nil
	}
	return cloneItem(item), nil
}

// Query returns all items matching the key attributes. The index argument is
// accepted for interface parity; equality filtering covers both the key
// schema and secondary indexes here.
func (s *MemoryStore) Query(_ context.Context, table string, keys Keys, _ string) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pks := make([]string, 0)
	t := s.table(table)
	for pk := range t {
		pks = append(pks, pk)
	}
	sort.Strings(pks)

	items := make([]map[string]any, 0)
	for _, pk := range pks {
		if matches(t[pk], keys) {
			items = append(items, cloneItem(t[pk]))
		}
	}
	return items, nil
}

// Insert stores the item, stamping timestamps. A colliding primary key is
// silently overwritten, as on the real backend.
func (s *MemoryStore) Insert(_ context.Context, table string, item map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if host, ok := item["hostsource"].(string); ok {
		if err := s.FailInsert[host]; err != nil {
			return nil, err
		}
	}

	now := time.Now().UnixMilli()
	item["createdAt"] = now
	item["updatedAt"] = now

	pk, err := primaryKey(table, item)
	if err != nil {
		return nil, err
	}
	s.table(table)[pk] = cloneItem(item)
	return item, nil
}

// Update applies a partial item and returns the updated attributes.
func (s *MemoryStore) Update(_ context.Context, table string, keys Keys, partial map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	partial["updatedAt"] = time.Now().UnixMilli()

	pk, err := primaryKey(table, keys)
	if err != nil {
		return nil, err
	}
	t := s.table(table)
	item, ok := t[pk]
	if !ok {
		item = make(map[string]any)
		for attr, v := range keys {
			item[attr] = v
		}
		t[pk] = item
	}
	for attr, v := range partial {
		item[attr] = v
	}
	return cloneItem(partial), nil
}

// Delete removes an item by key; absent keys are a no-op.
func (s *MemoryStore) Delete(_ context.Context, table string, keys Keys) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pk, err := primaryKey(table, keys)
	if err != nil {
		return err
	}
	delete(s.table(table), pk)
	return nil
}

// Count reports how many items a table holds; test helper.
func (s *MemoryStore) Count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.table(table))
}
