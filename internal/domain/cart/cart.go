// Package cart implements the pre-commitment staging area. Stock checks made
// here are advisory; the order orchestrator re-validates against the catalog.
package cart

import (
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProduct    = errors.New("cart: product is required")
	ErrInvalidQuantity   = errors.New("cart: quantity must be greater than zero")
	ErrNegativeQuantity  = errors.New("cart: quantity cannot be negative")
	ErrProductNotInCart  = errors.New("cart: product not in cart")
	ErrInvalidPercent    = errors.New("cart: discount percent must be between 0 and 100")
	ErrInsufficientStock = fmt.Errorf("cart: %w", catalog.ErrInsufficientStock)
)

// Line is one product held in the cart.
type Line struct {
	Product  *catalog.Product
	Quantity int
}

// Subtotal is price × quantity for the line.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	lines map[string]*Line
	order []string
}

func New() *Cart {
	return &Cart{lines: make(map[string]*Line)}
}

// AddItem accumulates quantity for the product. The combined quantity must fit
// in the product's current stock.
func (c *Cart) AddItem(product *catalog.Product, quantity int) error {
	if product == nil {
		return ErrInvalidProduct
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	combined := quantity
	if line, ok := c.lines[product.ID]; ok {
		combined += line.Quantity
	}
	if err := ensureAvailable(product, combined); err != nil {
		return err
	}

	if line, ok := c.lines[product.ID]; ok {
		line.Quantity = combined
		line.Product = product
		return nil
	}
	if c.lines == nil {
		c.lines = make(map[string]*Line)
	}
	c.lines[product.ID] = &Line{Product: product, Quantity: quantity}
	c.order = append(c.order, product.ID)
	return nil
}

// RemoveItem decrements the held quantity, dropping the line once it reaches zero.
func (c *Cart) RemoveItem(product *catalog.Product, quantity int) error {
	if product == nil {
		return ErrInvalidProduct
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	line, ok := c.lines[product.ID]
	if !ok {
		return ErrProductNotInCart
	}
	if quantity >= line.Quantity {
		c.delete(product.ID)
		return nil
	}
	line.Quantity -= quantity
	return nil
}

// SetQuantity replaces the held quantity. Zero removes the line.
func (c *Cart) SetQuantity(product *catalog.Product, quantity int) error {
	if product == nil {
		return ErrInvalidProduct
	}
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	line, ok := c.lines[product.ID]
	if !ok {
		return ErrProductNotInCart
	}
	if quantity == 0 {
		c.delete(product.ID)
		return nil
	}
	if err := ensureAvailable(product, quantity); err != nil {
		return err
	}
	line.Quantity = quantity
	line.Product = product
	return nil
}

// Total is the sum of price × quantity over every line.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, id := range c.order {
		total = total.Add(c.lines[id].Subtotal())
	}
	return total
}

// ApplyDiscount returns the total reduced by percent. The cart is not modified.
func (c *Cart) ApplyDiscount(percent decimal.Decimal) (decimal.Decimal, error) {
	rate, err := money.Fraction(percent)
	if err != nil {
		return decimal.Zero, ErrInvalidPercent
	}
	total := c.Total()
	return money.Round(total.Sub(total.Mul(rate))), nil
}

func (c *Cart) Clear() {
	c.lines = make(map[string]*Line)
	c.order = nil
}

// Lines returns a copy of the cart content in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out
}

// Quantity returns the held quantity for productID, zero when absent.
func (c *Cart) Quantity(productID string) int {
	if line, ok := c.lines[productID]; ok {
		return line.Quantity
	}
	return 0
}

func (c *Cart) Len() int { return len(c.order) }

func (c *Cart) IsEmpty() bool { return len(c.order) == 0 }

func (c *Cart) delete(productID string) {
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func ensureAvailable(product *catalog.Product, quantity int) error {
	ok, err := product.CheckAvailable(quantity)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s wants %d, has %d", ErrInsufficientStock, product.ID, quantity, product.Stock)
	}
	return nil
}
