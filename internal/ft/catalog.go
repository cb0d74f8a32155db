package ft

import "context"

// Catalog is the remote store of font records. Calls are blocking and each
// either succeeds or returns an error; timeouts belong to the implementation.
type Catalog interface {
	// Create registers a font that the catalog has not seen before.
	Create(ctx context.Context, rec FontRecord) error

	// Update replaces the fields of an existing font.
	Update(ctx context.Context, rec FontRecord) error

	// Delete removes a font. The record carries the last known fields.
	Delete(ctx context.Context, rec FontRecord) error

	// UpsertMany creates or replaces every record in one call. It either
	// succeeds for all records or fails as a whole.
	UpsertMany(ctx context.Context, recs []FontRecord) error
}

// CatalogReader lists records held by the remote catalog.
type CatalogReader interface {
	Query(ctx context.Context, q FontQuery, skip, limit int) ([]FontRecord, error)
}
