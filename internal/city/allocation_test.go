package city

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"empire/internal/config"
	"empire/internal/game"
)

func TestPriceScoreBands(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{ratio: 0.5, want: 1.5},
		{ratio: 0.7, want: 1.5},
		{ratio: 0.8, want: 1.2},
		{ratio: 1.0, want: 1.0},
		{ratio: 1.1, want: 1.0},
		{ratio: 1.25, want: 0.7},
		{ratio: 1.31, want: 0.4},
		{ratio: 9, want: 0.4},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, PriceScore(tc.ratio), "ratio %v", tc.ratio)
	}
}

func TestScoreCombinesFactors(t *testing.T) {
	sub := game.CitySubmission{
		Price:         0.5,
		Reputation:    50,
		LocationCount: 3,
		Upgrades:      map[string]int{game.UpgradeMarketing: 2},
	}
	// 1.5 * 1.5 * 1.4 * 1.2
	assert.InDelta(t, 3.78, Score(sub, 1.0), 1e-9)
	assert.Equal(t, 1.0, Score(game.CitySubmission{Price: 1}, 0))
}

func averageCity(members int) State {
	return State{
		ID:              "c1",
		Weather:         game.Cloudy,
		EconomicHealth:  1,
		AvgPrice:        1,
		TotalBusinesses: members,
		CustomerPool:    100,
	}
}

func TestAllocateFairShareAtAverageScore(t *testing.T) {
	tuning := config.DefaultTuning()
	sub := game.CitySubmission{PlayerID: "p1", Price: 1, LocationCount: 1, Upgrades: map[string]int{}}

	// jitter at the midpoint, weather draw, no economic drift
	alloc, next := Allocate(averageCity(4), sub, []float64{0.8, 1.2}, tuning, game.NewSequence(0.5, 0.0, 0.5))
	assert.Equal(t, 25, alloc.Customers)
	assert.Equal(t, game.Cloudy, alloc.CityWeather)
	assert.Equal(t, 1.0, alloc.CityAvgPrice)
	assert.Equal(t, []float64{0.8, 1.2}, alloc.CompetitorPrices)

	assert.Equal(t, game.Sunny, next.Weather)
	assert.InDelta(t, 1.0, next.EconomicHealth, 1e-9)
	assert.InDelta(t, 1.0, next.AvgPrice, 1e-9)
	assert.Equal(t, 4, next.TotalBusinesses)
}

func TestAllocateExpectedShareOverManyDays(t *testing.T) {
	tuning := config.DefaultTuning()
	sub := game.CitySubmission{PlayerID: "p1", Price: 1, LocationCount: 1}
	rng := game.NewRand(11)
	for _, n := range []int{1, 3, 10} {
		total := 0
		const days = 4000
		for i := 0; i < days; i++ {
			alloc, _ := Allocate(averageCity(n), sub, nil, tuning, rng)
			total += alloc.Customers
		}
		mean := float64(total) / days
		want := 100.0 / float64(n)
		// flooring costs about half a customer per draw
		assert.InDelta(t, want-0.5, mean, want*0.03+0.5, "members=%d", n)
	}
}

func TestAllocateSoloCityGetsWholePool(t *testing.T) {
	sub := game.CitySubmission{PlayerID: "p1", Price: 5, LocationCount: 1}
	alloc, _ := Allocate(averageCity(1), sub, nil, config.DefaultTuning(), game.NewSequence(0.5))
	assert.Equal(t, 100, alloc.Customers)
}

func TestAllocateClampsEconomy(t *testing.T) {
	st := averageCity(2)
	st.EconomicHealth = 1.29
	_, next := Allocate(st, game.CitySubmission{Price: 1}, nil, config.DefaultTuning(), game.NewSequence(0.5, 0.5, 0.99))
	assert.Equal(t, 1.3, next.EconomicHealth)

	st.EconomicHealth = 0.71
	_, next = Allocate(st, game.CitySubmission{Price: 1}, nil, config.DefaultTuning(), game.NewSequence(0.5, 0.5, 0.0))
	assert.Equal(t, 0.7, next.EconomicHealth)
}

func TestAllocateDefaultsMissingCityFields(t *testing.T) {
	st := State{ID: "c1"}
	alloc, next := Allocate(st, game.CitySubmission{Price: 2}, nil, config.DefaultTuning(), game.NewSequence(0.5, 0.0, 0.5))
	// pool 100, health 1, sunny
	assert.Equal(t, 120, alloc.Customers)
	assert.Equal(t, game.Sunny, alloc.CityWeather)
	assert.Equal(t, 1.0, alloc.CityAvgPrice)
	assert.Equal(t, 2.0, next.AvgPrice)
}

func TestCompetitorPricesExcludeSubmitter(t *testing.T) {
	results := []DayResult{
		{PlayerID: "p1", Price: 3},
		{PlayerID: "p2", Price: 1.5},
		{PlayerID: "p3", Price: 0},
		{PlayerID: "p4", Price: 2},
	}
	assert.Equal(t, []float64{1.5, 2}, competitorPrices(results, "p1"))
}
