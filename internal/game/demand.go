package game

import (
	"context"
	"math"
)

// DemandInputs is what the solo demand model reads from the stand.
type DemandInputs struct {
	Weather        Weather
	Reputation     float64
	MarketingLevel int
	LocationCount  int
	PriceImpact    float64
}

func demandInputs(s *State, impact float64) DemandInputs {
	return DemandInputs{
		Weather:        s.Weather,
		Reputation:     s.Reputation,
		MarketingLevel: s.UpgradeLevel(UpgradeMarketing),
		LocationCount:  len(s.Locations),
		PriceImpact:    impact,
	}
}

// LocalCustomers runs the solo demand model with one random draw. Each
// multiplicative stage is floored before the next one is applied, in the
// order weather, reputation, marketing, locations, price.
func LocalCustomers(in DemandInputs, r Rand) int {
	base := math.Floor((5 + r.Float64()*15) * in.Weather.Multiplier())
	return scaleCustomers(base, in)
}

// ExpectedCustomers is LocalCustomers at the midpoint draw, used for the
// intel-network forecast.
func ExpectedCustomers(in DemandInputs) int {
	return scaleCustomers(math.Floor(12.5*in.Weather.Multiplier()), in)
}

func scaleCustomers(base float64, in DemandInputs) int {
	locations := in.LocationCount
	if locations < 1 {
		locations = 1
	}
	c := math.Floor(base * (1 + in.Reputation/50))
	c = math.Floor(c * (1 + float64(in.MarketingLevel)*0.15))
	c = math.Floor(c * (1 + float64(locations-1)*0.3))
	c = math.Floor(c * clampFloat(in.PriceImpact, 0, 1))
	if c < 0 {
		return 0
	}
	return int(c)
}

// CitySubmission is what a city member reports when resolving a day.
type CitySubmission struct {
	PlayerID      string         `json:"player_id"`
	Price         float64        `json:"price"`
	Inventory     int            `json:"inventory"`
	Reputation    float64        `json:"reputation"`
	Upgrades      map[string]int `json:"upgrades"`
	LocationCount int            `json:"location_count"`
}

// CityAllocation is the member's share of the city's customer pool.
type CityAllocation struct {
	Customers        int       `json:"customers"`
	CityWeather      Weather   `json:"city_weather"`
	CityAvgPrice     float64   `json:"city_avg_price"`
	CompetitorPrices []float64 `json:"competitor_prices"`
	MarketCondition  float64   `json:"market_condition"`
}

// CityAllocator is present only when the stand is playing in a city.
type CityAllocator interface {
	AllocateCustomers(ctx context.Context, sub CitySubmission) (CityAllocation, error)
}

func submissionFor(s *State, playerID string) CitySubmission {
	upgrades := make(map[string]int, len(s.Upgrades))
	for k, v := range s.Upgrades {
		upgrades[k] = v
	}
	return CitySubmission{
		PlayerID:      playerID,
		Price:         s.Price,
		Inventory:     s.Inventory,
		Reputation:    s.Reputation,
		Upgrades:      upgrades,
		LocationCount: len(s.Locations),
	}
}
