package game

import (
	"math/rand"
	"testing"
)

func TestComputePriceFactors(t *testing.T) {
	f := ComputePriceFactors(PriceInputs{MaterialCost: 0.20, Reputation: 0, Weather: Sunny})
	assertClose(t, "min fair", f.MinFairPrice, 0.26)
	assertClose(t, "ideal", f.IdealPrice, 0.636)
	assertClose(t, "max reasonable", f.MaxReasonablePrice, 3)
	assertClose(t, "too expensive", f.TooExpensivePrice, 6)

	// heatwave demand is capped at 1.5
	hot := ComputePriceFactors(PriceInputs{MaterialCost: 0.20, Reputation: 80, Weather: Heatwave})
	assertClose(t, "hot ideal", hot.IdealPrice, 0.6*(0.7+1.5*0.3))
	assertClose(t, "hot max reasonable", hot.MaxReasonablePrice, 10+hot.IdealPrice)
}

func TestClassifyPrice(t *testing.T) {
	in := PriceInputs{MaterialCost: 0.20, Reputation: 0, Weather: Sunny}
	tests := []struct {
		price  float64
		band   PriceBand
		impact float64
	}{
		{price: 0.10, band: BandTooLow, impact: 0.5},
		{price: 0.26, band: BandSweetSpot, impact: 1},
		{price: 0.70, band: BandSweetSpot, impact: 1},
		{price: 0.90, band: BandUpperFair, impact: 1},
		{price: 1.00, band: BandHigh, impact: 0.7},
		{price: 4.50, band: BandAboveReasonable, impact: 0.5},
		{price: 5.99, band: BandAboveReasonable, impact: 0.1},
		{price: 7.00, band: BandTooExpensive, impact: 0},
	}
	for _, tc := range tests {
		got := EvaluatePrice(tc.price, in)
		if got.Band != tc.band {
			t.Fatalf("price=%v band=%s want=%s", tc.price, got.Band, tc.band)
		}
		assertClose(t, "impact", got.Impact, tc.impact)
		if got.Reason == "" {
			t.Fatalf("price=%v has no reason", tc.price)
		}
	}
}

func TestEvaluatePriceImpactAlwaysInUnitRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	weathers := []Weather{Sunny, Cloudy, Rainy, Heatwave}
	for i := 0; i < 5000; i++ {
		in := PriceInputs{
			MaterialCost: 0.15 + rng.Float64()*0.35,
			Reputation:   rng.Float64() * 400,
			Weather:      weathers[rng.Intn(len(weathers))],
		}
		price := MinPrice + rng.Float64()*20
		got := EvaluatePrice(price, in)
		if got.Impact < 0 || got.Impact > 1 {
			t.Fatalf("impact %v out of range for price %v inputs %+v", got.Impact, price, in)
		}
		if again := ClassifyPrice(price, got.Factors); again != got.Band {
			t.Fatalf("classification is not stable: %s vs %s", again, got.Band)
		}
	}
}

func TestEvaluatePriceMentionsCityAverage(t *testing.T) {
	got := EvaluatePrice(0.7, PriceInputs{MaterialCost: 0.2, Weather: Cloudy, CompetitorAvgPrice: 1.25})
	if got.Factors.CompetitorAvgPrice != 1.25 {
		t.Fatalf("competitor average lost: %+v", got.Factors)
	}
	assertClose(t, "impact", got.Impact, 1)
}

func assertClose(t *testing.T, what string, got, want float64) {
	t.Helper()
	const eps = 1e-9
	if got < want-eps || got > want+eps {
		t.Fatalf("%s: got %v want %v", what, got, want)
	}
}
