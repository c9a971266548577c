package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	MinPrice = 0.10
	MaxPrice = 10000.0

	StarterCash         = 5.0
	StarterInventory    = 10
	StarterPrice        = 1.0
	StarterMaxInventory = 50
	StarterXPToNext     = 100.0
	StarterMaterials    = 0.20

	DefaultBusinessName = "LEMONADE STAND"
	MaxBusinessNameLen  = 30

	BaseLocationPrice   = 2500.0
	LocationPriceGrowth = 1.75
	LocationRentRate    = 0.10
)

var (
	ErrNoInventory       = errors.New("no inventory to sell")
	ErrInvalidPrice      = fmt.Errorf("price must be between %.2f and %.0f", MinPrice, MaxPrice)
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrStorageFull       = errors.New("storage full")
	ErrUnknownUpgrade    = errors.New("unknown upgrade")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidName       = fmt.Errorf("business name must be 1-%d characters", MaxBusinessNameLen)
	ErrInvalidAutoBuy    = errors.New("auto-buy needs threshold >= 1 and target between 1 and 100 percent")
)

// ValidatePrice reports whether p is a price a player may set.
func ValidatePrice(p float64) error {
	if math.IsNaN(p) || p < MinPrice || p > MaxPrice {
		return ErrInvalidPrice
	}
	return nil
}

func ValidateBusinessName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxBusinessNameLen {
		return "", ErrInvalidName
	}
	return strings.ToUpper(name), nil
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
