package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	Flavor    string          `json:"flavor,omitempty"`
}

type Cart []CartItem

func (c Cart) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	for _, item := range c {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for %q must be positive", ErrValidation, item.Name)
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("%w: price for %q must not be negative", ErrValidation, item.Name)
		}
	}
	return nil
}

func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (c Cart) OrderItems() []OrderItem {
	items := make([]OrderItem, 0, len(c))
	for _, item := range c {
		items = append(items, OrderItem{
			ID:       item.ProductID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}
	return items
}
