package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("catalog: product not found")
	ErrDuplicateID       = errors.New("catalog: product id already registered")
	ErrInvalidID         = errors.New("catalog: product id is required")
	ErrInvalidPrice      = errors.New("catalog: price must be greater than zero")
	ErrInvalidStock      = errors.New("catalog: stock cannot be negative")
	ErrInvalidQuantity   = errors.New("catalog: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
	ErrNegativeStock     = errors.New("catalog: adjustment would drive stock negative")
)

// Product is a catalog entry together with its stock ledger.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	UpdatedAt   time.Time
}

func NewProduct(id, name, description string, price decimal.Decimal, stock int, category string) (*Product, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidStock
	}
	return &Product{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
		Category:    category,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

// CheckAvailable reports whether quantity units can be taken from stock.
func (p *Product) CheckAvailable(quantity int) (bool, error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}
	return p.Stock >= quantity, nil
}

// AdjustStock applies a signed delta. Stock is left untouched when the result
// would be negative.
func (p *Product) AdjustStock(delta int) error {
	next := p.Stock + delta
	if next < 0 {
		return ErrNegativeStock
	}
	p.Stock = next
	p.touch()
	return nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Info is the plain record form of a product.
type Info struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
}

func (p *Product) Info() Info {
	price, _ := p.Price.Float64()
	return Info{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		Stock:       p.Stock,
		Category:    p.Category,
	}
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}
