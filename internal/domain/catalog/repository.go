package catalog

import "context"

// Adjustment is one signed stock change inside a batch.
type Adjustment struct {
	ProductID string
	Delta     int
}

// Repository is the authoritative product store.
type Repository interface {
	Add(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id string) (*Product, error)
	ListAll(ctx context.Context) ([]*Product, error)
	FindByNameSubstring(ctx context.Context, term string) ([]*Product, error)
	// ApplyAdjustments applies every adjustment or none of them.
	ApplyAdjustments(ctx context.Context, adjustments []Adjustment) error
}
