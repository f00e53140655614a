// Package store abstracts the document store backing all persistence. The
// store offers single-item operations and secondary-index queries only; there
// are no multi-item transactions, so cross-row consistency is owned by the
// callers' operation ordering.
package store

import "context"

// Logical table names. Implementations prepend the configured prefix.
const (
	TableUser            = "user"
	TableApplication     = "application"
	TableApplicationUser = "application-user"
	TableRedirect        = "redirect"
	TableHostSource      = "hostsource"
)

// Secondary index names.
const (
	IndexUserID              = "userId-index"
	IndexApplicationRedirect = "applicationId-redirectId-index"
)

// Keys addresses an item by its key attributes, or filters a query by
// attribute equality.
type Keys map[string]any

// Store is the document store client. Get returns a nil item when the key is
// absent. Insert stamps createdAt/updatedAt and returns the stored item.
// Update applies a partial item, stamps updatedAt and returns the updated
// attributes. Query matches all key attributes, optionally via a secondary
// index (empty index means the table's own key schema).
type Store interface {
	Get(ctx context.Context, table string, keys Keys) (map[string]any, error)
	Query(ctx context.Context, table string, keys Keys, index string) ([]map[string]any, error)
	Insert(ctx context.Context, table string, item map[string]any) (map[string]any, error)
	Update(ctx context.Context, table string, keys Keys, partial map[string]any) (map[string]any, error)
	Delete(ctx context.Context, table string, keys Keys) error
}
