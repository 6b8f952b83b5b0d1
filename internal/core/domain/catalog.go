package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type EnergyTier string

const (
	EnergyMedium EnergyTier = "Medium"
	EnergyHigh   EnergyTier = "High"
	EnergyUltra  EnergyTier = "Ultra"
)

func (e EnergyTier) Valid() bool {
	switch e {
	case EnergyMedium, EnergyHigh, EnergyUltra:
		return true
	}
	return false
}

type Product struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Flavor      string          `json:"flavor"`
	Energy      EnergyTier      `json:"energy"`
	Rating      float64         `json:"rating"`
	Reviews     int             `json:"reviews"`
	Category    string          `json:"category"`
}

// Flavor is the marketing record shown on the flavors page. ProductID links it
// to the product it describes; deleting that product deletes the flavor.
type Flavor struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId,omitempty"`
	Name        string          `json:"name"`
	Tagline     string          `json:"tagline"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Color       string          `json:"color"`
	Ingredients []string        `json:"ingredients"`
	EnergyLevel string          `json:"energyLevel"`
	Rating      float64         `json:"rating"`
	Reviews     int             `json:"reviews"`
	Price       decimal.Decimal `json:"price"`
	Featured    bool            `json:"featured"`
}

func (p Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: product price must not be negative", ErrValidation)
	}
	if !p.Energy.Valid() {
		return fmt.Errorf("%w: unknown energy tier %q", ErrValidation, p.Energy)
	}
	if p.Rating < 0 || p.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrValidation)
	}
	if p.Reviews < 0 {
		return fmt.Errorf("%w: reviews must not be negative", ErrValidation)
	}
	return nil
}

func (f Flavor) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: flavor name is required", ErrValidation)
	}
	if f.Price.IsNegative() {
		return fmt.Errorf("%w: flavor price must not be negative", ErrValidation)
	}
	if f.Rating < 0 || f.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrValidation)
	}
	if f.Reviews < 0 {
		return fmt.Errorf("%w: reviews must not be negative", ErrValidation)
	}
	return nil
}

const DefaultProductID = "mango-bluster"

func DefaultProducts() []Product {
	return []Product{{
		ID:          DefaultProductID,
		Slug:        "mango-bluster",
		Name:        "Mango Bluster",
		Price:       decimal.RequireFromString("4.99"),
		Image:       "🥭",
		Description: "Tropical mango energy with a wild twist. Unleash your inner jungle cat with this exotic blend.",
		Flavor:      "Mango Tropical",
		Energy:      EnergyHigh,
		Rating:      4.8,
		Reviews:     1247,
		Category:    "tropical",
	}}
}

func DefaultFlavors() []Flavor {
	return []Flavor{{
		ID:          DefaultProductID,
		ProductID:   DefaultProductID,
		Name:        "Mango Bluster",
		Tagline:     "Tropical Thunder Unleashed",
		Description: "Experience the explosive taste of tropical mango combined with our signature energy blend. " +
			"This exotic fusion awakens your primal instincts while delivering a smooth, refreshing taste.",
		Image:       "🥭",
		Color:       "from-orange-400 via-yellow-500 to-red-500",
		Ingredients: []string{
			"Natural Mango Extract",
			"Taurine",
			"B-Vitamins",
			"Natural Caffeine",
			"Ginseng Root",
			"Electrolytes",
		},
		EnergyLevel: "High",
		Rating:      4.8,
		Reviews:     1247,
		Price:       decimal.RequireFromString("4.99"),
		Featured:    true,
	}}
}
