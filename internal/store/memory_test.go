package store

import (
	"context"
	"testing"
)

func TestInsertStampsTimestamps(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	item, err := st.Insert(ctx, TableUser, map[string]any{"id": "u1"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, ok := item["createdAt"].(int64); !ok {
		t.Fatalf("createdAt = %v", item["createdAt"])
	}
	if _, ok := item["updatedAt"].(int64); !ok {
		t.Fatalf("updatedAt = %v", item["updatedAt"])
	}
}

func TestInsertOverwritesOnKeyCollision(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if _, err := st.Insert(ctx, TableHostSource, map[string]any{
		"hostsource":    "x.com",
		"applicationId": "app-1",
		"redirectId":    "r-1",
	}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := st.Insert(ctx, TableHostSource, map[string]any{
		"hostsource":    "x.com",
		"applicationId": "app-2",
		"redirectId":    "r-2",
	}); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	if n := st.Count(TableHostSource); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
	item, err := st.Get(ctx, TableHostSource, Keys{"hostsource": "x.com"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item["redirectId"] != "r-2" {
		t.Fatalf("redirectId = %v, want r-2", item["redirectId"])
	}
}

func TestQueryFiltersByEquality(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	for _, row := range []map[string]any{
		{"hostsource": "a.com", "applicationId": "app-1", "redirectId": "r-1"},
		{"hostsource": "b.com", "applicationId": "app-1", "redirectId": "r-2"},
		{"hostsource": "c.com", "applicationId": "app-2", "redirectId": "r-3"},
	} {
		if _, err := st.Insert(ctx, TableHostSource, row); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	items, err := st.Query(ctx, TableHostSource, Keys{"applicationId": "app-1"}, IndexApplicationRedirect)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	// Results come back ordered by primary key.
	if items[0]["hostsource"] != "a.com" || items[1]["hostsource"] != "b.com" {
		t.Fatalf("order = %v, %v", items[0]["hostsource"], items[1]["hostsource"])
	}
}

func TestUpdateMergesPartialItem(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if _, err := st.Insert(ctx, TableApplication, map[string]any{
		"id":           "app-1",
		"billingEmail": "a@example.org",
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := st.Update(ctx, TableApplication, Keys{"id": "app-1"}, map[string]any{
		"billingEmail": "b@example.org",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	item, err := st.Get(ctx, TableApplication, Keys{"id": "app-1"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item["billingEmail"] != "b@example.org" {
		t.Fatalf("billingEmail = %v", item["billingEmail"])
	}
	if item["createdAt"] == nil {
		t.Fatal("createdAt lost on update")
	}
}

func TestGetAbsentReturnsNil(t *testing.T) {
	st := NewMemoryStore()

	item, err := st.Get(context.Background(), TableUser, Keys{"id": "missing"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item != nil {
		t.Fatalf("item = %v, want nil", item)
	}
}

func TestDeleteAbsentIsNoOp(t *testing.T) {
	st := NewMemoryStore()

	if err := st.Delete(context.Background(), TableUser, Keys{"id": "missing"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
