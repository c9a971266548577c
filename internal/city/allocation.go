package city

import (
	"math"

	"empire/internal/config"
	"empire/internal/game"
)

// PriceScore maps a member's price relative to the city average onto the
// fixed competitiveness bands.
func PriceScore(ratio float64) float64 {
	switch {
	case ratio <= 0.7:
		return 1.5
	case ratio <= 0.9:
		return 1.2
	case ratio <= 1.1:
		return 1.0
	case ratio <= 1.3:
		return 0.7
	default:
		return 0.4
	}
}

// Score is a member's total competitiveness against avgPrice.
func Score(sub game.CitySubmission, avgPrice float64) float64 {
	if avgPrice <= 0 {
		avgPrice = 1
	}
	locations := sub.LocationCount
	if locations < 1 {
		locations = 1
	}
	priceScore := PriceScore(sub.Price / avgPrice)
	repScore := 1 + sub.Reputation/100
	locScore := 1 + float64(locations-1)*0.2
	mktScore := 1 + float64(sub.Upgrades[game.UpgradeMarketing])*0.1
	return priceScore * repScore * locScore * mktScore
}

// BasePool is the demand the whole city shares today.
func BasePool(st State, t config.Tuning) float64 {
	pool := st.CustomerPool
	if pool <= 0 {
		pool = t.BaseCustomerPool
	}
	health := st.EconomicHealth
	if health <= 0 {
		health = 1
	}
	return pool * health * cityWeather(st).Multiplier()
}

func cityWeather(st State) game.Weather {
	if st.Weather.Valid() {
		return st.Weather
	}
	return game.Sunny
}

// Allocate computes one member's share of the city's customers and the city
// state that follows the submission. competitorPrices are the recent prices
// of the other members. Draws, in order: jitter, weather, economic drift.
func Allocate(st State, sub game.CitySubmission, competitorPrices []float64, t config.Tuning, r game.Rand) (game.CityAllocation, State) {
	avg := st.AvgPrice
	if avg <= 0 {
		avg = 1
	}
	health := st.EconomicHealth
	if health <= 0 {
		health = 1
	}
	score := Score(sub, avg)
	active := max(1, st.TotalBusinesses)
	share := score / (score + float64(active-1)) * BasePool(st, t)
	customers := int(math.Floor(share * (0.8 + r.Float64()*0.4)))

	alloc := game.CityAllocation{
		Customers:        max(0, customers),
		CityWeather:      cityWeather(st),
		CityAvgPrice:     avg,
		CompetitorPrices: append([]float64(nil), competitorPrices...),
		MarketCondition:  health,
	}

	next := st
	next.Weather = game.RandomWeather(r)
	drift := r.Float64()*0.1 - 0.05
	next.EconomicHealth = math.Max(t.EconomyMin, math.Min(t.EconomyMax, health+drift))
	next.AvgPrice = meanPrice(sub.Price, competitorPrices)
	return alloc, next
}

func meanPrice(own float64, others []float64) float64 {
	if len(others) == 0 {
		return own
	}
	sum := own
	for _, p := range others {
		sum += p
	}
	return sum / float64(len(others)+1)
}

// competitorPrices keeps the prices of recent results not submitted by
// playerID.
func competitorPrices(results []DayResult, playerID string) []float64 {
	out := make([]float64, 0, len(results))
	for _, r := range results {
		if r.PlayerID == playerID || r.Price <= 0 {
			continue
		}
		out = append(out, r.Price)
	}
	return out
}
