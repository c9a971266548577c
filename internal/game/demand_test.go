package game

import (
	"context"
	"errors"
	"testing"
)

func TestLocalCustomersFloorsEachStage(t *testing.T) {
	in := DemandInputs{
		Weather:        Cloudy,
		Reputation:     25,
		MarketingLevel: 1,
		LocationCount:  2,
		PriceImpact:    0.7,
	}
	// 5 -> 7.5 -> 7 -> 8.05 -> 8 -> 10.4 -> 10 -> 7
	if got := LocalCustomers(in, NewSequence(0)); got != 7 {
		t.Fatalf("customers=%d want 7", got)
	}
}

func TestLocalCustomersRange(t *testing.T) {
	rng := NewRand(42)
	for i := 0; i < 2000; i++ {
		got := LocalCustomers(DemandInputs{Weather: Cloudy, PriceImpact: 1, LocationCount: 1}, rng)
		if got < 5 || got > 19 {
			t.Fatalf("customers %d outside base range", got)
		}
	}
}

func TestZeroImpactMeansZeroCustomers(t *testing.T) {
	in := DemandInputs{Weather: Heatwave, Reputation: 300, MarketingLevel: 5, LocationCount: 4}
	if got := LocalCustomers(in, NewSequence(0.99)); got != 0 {
		t.Fatalf("customers=%d want 0", got)
	}
	if got := ExpectedCustomers(in); got != 0 {
		t.Fatalf("expected=%d want 0", got)
	}
}

func TestExpectedCustomersUsesMidpoint(t *testing.T) {
	in := DemandInputs{Weather: Cloudy, PriceImpact: 1}
	if got := ExpectedCustomers(in); got != 12 {
		t.Fatalf("expected=%d want 12", got)
	}
}

type stubAllocator struct {
	alloc CityAllocation
	err   error
	got   CitySubmission
	calls int
}

func (s *stubAllocator) AllocateCustomers(_ context.Context, sub CitySubmission) (CityAllocation, error) {
	s.calls++
	s.got = sub
	return s.alloc, s.err
}

func TestCityDayUsesAllocation(t *testing.T) {
	s := NewState()
	s.Inventory = 20
	s.Price = 0.70
	city := &stubAllocator{alloc: CityAllocation{
		Customers:        7,
		CityWeather:      Rainy,
		CityAvgPrice:     0.9,
		CompetitorPrices: []float64{0.8, 1.0},
	}}
	e := &Engine{Rand: NewSequence(0.5), City: city, CityWeather: Cloudy, PlayerID: "p1"}

	r, err := e.ResolveDay(context.Background(), s)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if city.calls != 1 || city.got.PlayerID != "p1" || city.got.Inventory != 20 {
		t.Fatalf("unexpected submission: %+v calls=%d", city.got, city.calls)
	}
	if r.Mode != ModeCity || r.Customers != 7 || r.Served != 7 {
		t.Fatalf("unexpected report: %+v", r)
	}
	if r.Weather != Rainy || s.Weather != Rainy {
		t.Fatalf("city weather not adopted: report=%s state=%s", r.Weather, s.Weather)
	}
	if r.CityFallback {
		t.Fatalf("did not expect fallback")
	}
	if len(r.CompetitorPrices) != 2 || r.CityAvgPrice != 0.9 {
		t.Fatalf("competitor data lost: %+v", r)
	}
	if s.CityMarket == nil || s.CityMarket.AvgPrice != 0.9 || len(s.CityMarket.CompetitorPrices) != 2 || s.CityMarket.Day != 1 {
		t.Fatalf("city market not kept: %+v", s.CityMarket)
	}
}

func TestCityDayFallsBackToLocalDemand(t *testing.T) {
	s := NewState()
	s.Inventory = 20
	s.Price = 0.70
	city := &stubAllocator{err: errors.New("connection refused")}
	// weather is drawn because no city weather is known yet
	e := &Engine{Rand: NewSequence(0.0, 0.5, 0.4, 0.5), City: city}

	r, err := e.ResolveDay(context.Background(), s)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !r.CityFallback {
		t.Fatalf("expected fallback flag")
	}
	if r.Customers != 13 {
		t.Fatalf("customers=%d want 13", r.Customers)
	}
	if s.Day != 2 {
		t.Fatalf("day=%d want 2", s.Day)
	}
}
