package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
)

type CatalogRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		products: make(map[string]*domain.Product),
	}
}

func (r *CatalogRepository) Add(ctx context.Context, product *domain.Product) error {
	_ = ctx
	if product == nil || product.ID == "" {
		return domain.ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[product.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, product.ID)
	}
	r.products[product.ID] = product.Clone()
	return nil
}

func (r *CatalogRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

// ListAll returns every product ordered by id.
func (r *CatalogRepository) ListAll(ctx context.Context) ([]*domain.Product, error) {
	return r.filter(ctx, func(*domain.Product) bool { return true }), nil
}

// FindByNameSubstring matches case-insensitively; an empty term matches all.
func (r *CatalogRepository) FindByNameSubstring(ctx context.Context, term string) ([]*domain.Product, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	return r.filter(ctx, func(p *domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	}), nil
}

func (r *CatalogRepository) filter(ctx context.Context, keep func(*domain.Product) bool) []*domain.Product {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ApplyAdjustments validates the whole batch under one lock before touching
// any product, so a rejected batch leaves every stock as it was. Repeated ids
// are summed.
func (r *CatalogRepository) ApplyAdjustments(ctx context.Context, adjustments []domain.Adjustment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	net := make(map[string]int, len(adjustments))
	order := make([]string, 0, len(adjustments))
	for _, a := range adjustments {
		if _, seen := net[a.ProductID]; !seen {
			order = append(order, a.ProductID)
		}
		net[a.ProductID] += a.Delta
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range order {
		p, ok := r.products[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		if p.Stock+net[id] < 0 {
			return fmt.Errorf("%w: %s has %d, delta %d", domain.ErrNegativeStock, id, p.Stock, net[id])
		}
	}

	for _, id := range order {
		if err := r.products[id].AdjustStock(net[id]); err != nil {
			// unreachable after validation under the same lock
			return err
		}
	}
	return nil
}
