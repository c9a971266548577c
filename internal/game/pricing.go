package game

import (
	"fmt"
	"math"
)

// PriceBand classifies a price against the fair-price bands of the day.
type PriceBand int

const (
	BandTooLow PriceBand = iota
	BandTooExpensive
	BandAboveReasonable
	BandHigh
	BandSweetSpot
	// BandUpperFair is the stretch between ideal×1.3 and ideal×1.5. It has no
	// penalty of its own.
	BandUpperFair
)

func (b PriceBand) String() string {
	switch b {
	case BandTooLow:
		return "too_low"
	case BandTooExpensive:
		return "too_expensive"
	case BandAboveReasonable:
		return "above_reasonable"
	case BandHigh:
		return "high"
	case BandSweetSpot:
		return "sweet_spot"
	case BandUpperFair:
		return "upper_fair"
	default:
		return "unknown"
	}
}

type PriceInputs struct {
	MaterialCost float64
	Reputation   float64
	Weather      Weather
	// CompetitorAvgPrice is zero when unknown.
	CompetitorAvgPrice float64
}

type PriceFactors struct {
	MaterialCost       float64 `json:"material_cost"`
	MinFairPrice       float64 `json:"min_fair_price"`
	IdealPrice         float64 `json:"ideal_price"`
	MaxReasonablePrice float64 `json:"max_reasonable_price"`
	TooExpensivePrice  float64 `json:"too_expensive_price"`
	CompetitorAvgPrice float64 `json:"competitor_avg_price,omitempty"`
}

type PriceImpact struct {
	Band    PriceBand    `json:"band"`
	Impact  float64      `json:"impact"`
	Reason  string       `json:"reason"`
	Factors PriceFactors `json:"factors"`
}

func ComputePriceFactors(in PriceInputs) PriceFactors {
	demandIndex := math.Min(in.Weather.Multiplier(), 1.5)
	ideal := in.MaterialCost * 3 * (0.7 + demandIndex*0.3)
	maxReasonable := math.Max(3, in.Reputation/8+ideal)
	return PriceFactors{
		MaterialCost:       in.MaterialCost,
		MinFairPrice:       in.MaterialCost * 1.3,
		IdealPrice:         ideal,
		MaxReasonablePrice: maxReasonable,
		TooExpensivePrice:  maxReasonable * 2,
		CompetitorAvgPrice: in.CompetitorAvgPrice,
	}
}

// ClassifyPrice returns the first band that matches price, in priority order.
func ClassifyPrice(price float64, f PriceFactors) PriceBand {
	switch {
	case price < f.MinFairPrice:
		return BandTooLow
	case price > f.TooExpensivePrice:
		return BandTooExpensive
	case price > f.MaxReasonablePrice:
		return BandAboveReasonable
	case price > f.IdealPrice*1.5:
		return BandHigh
	case price <= f.IdealPrice*1.3:
		return BandSweetSpot
	default:
		return BandUpperFair
	}
}

// EvaluatePrice computes the demand multiplier in [0,1] for price.
func EvaluatePrice(price float64, in PriceInputs) PriceImpact {
	f := ComputePriceFactors(in)
	band := ClassifyPrice(price, f)
	out := PriceImpact{Band: band, Factors: f}
	switch band {
	case BandTooLow:
		out.Impact = 0.5
		out.Reason = fmt.Sprintf("Your price ($%.2f) is too low! Customers think it's poor quality. Min recommended: $%.2f", price, f.MinFairPrice)
	case BandTooExpensive:
		out.Impact = 0
		out.Reason = fmt.Sprintf("Your price ($%.2f) is WAY TOO HIGH! Almost no customers at this price. Max reasonable: $%.2f", price, f.MaxReasonablePrice)
	case BandAboveReasonable:
		excess := (price - f.MaxReasonablePrice) / f.MaxReasonablePrice
		out.Impact = math.Max(0.1, 1-excess)
		out.Reason = fmt.Sprintf("Your price ($%.2f) is too high for your reputation (%.0f). Recommended max: $%.2f", price, in.Reputation, f.MaxReasonablePrice)
	case BandHigh:
		out.Impact = 0.7
		out.Reason = fmt.Sprintf("Your price ($%.2f) is on the high side. Some customers are deterred.", price)
	case BandSweetSpot:
		out.Impact = 1
		out.Reason = fmt.Sprintf("Your price ($%.2f) is in the sweet spot!", price)
	default:
		out.Impact = 1
		out.Reason = fmt.Sprintf("Your price ($%.2f) is fair.", price)
	}
	if f.CompetitorAvgPrice > 0 {
		out.Reason += fmt.Sprintf(" City average: $%.2f.", f.CompetitorAvgPrice)
	}
	return out
}
