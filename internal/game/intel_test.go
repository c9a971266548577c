package game

import (
	"math"
	"testing"
)

func intelState() *State {
	s := NewState()
	s.Market.Materials = 0.20
	s.Price = 0.50
	s.Weather = Cloudy
	return s
}

func TestIntelHiddenWithoutUpgrades(t *testing.T) {
	s := intelState()
	s.CityMarket = &CityMarket{AvgPrice: 0.9, CompetitorPrices: []float64{0.8}}
	if in := GatherIntel(s, ModeCity); !in.Empty() {
		t.Fatalf("expected no intel, got %+v", in)
	}
}

func TestMarketResearchLevels(t *testing.T) {
	s := intelState()
	s.Upgrades[UpgradeMarketResearch] = 1
	in := GatherIntel(s, ModeSolo)
	if !in.ShowAvg || in.AvgFromCity || math.Abs(in.AvgPrice-0.60) > 1e-9 {
		t.Fatalf("solo avg: %+v", in)
	}
	if in.ShowPosition || in.ShowIdeal || in.ShowDemand {
		t.Fatalf("level 1 reveals too much: %+v", in)
	}

	s.Upgrades[UpgradeMarketResearch] = 3
	in = GatherIntel(s, ModeSolo)
	if !in.ShowPosition || !in.Undercut {
		t.Fatalf("0.50 under 0.60 should undercut: %+v", in)
	}
	want := ComputePriceFactors(PriceInputs{MaterialCost: 0.20, Weather: Cloudy}).IdealPrice
	if !in.ShowIdeal || math.Abs(in.IdealPrice-want) > 1e-9 {
		t.Fatalf("ideal=%v want %v", in.IdealPrice, want)
	}

	s.Price = 0.95
	s.CityMarket = &CityMarket{Day: 4, AvgPrice: 0.9}
	in = GatherIntel(s, ModeCity)
	if !in.AvgFromCity || in.AvgPrice != 0.9 || in.Undercut {
		t.Fatalf("city avg: %+v", in)
	}
}

func TestIntelNetworkDemandRange(t *testing.T) {
	s := intelState()
	s.Upgrades[UpgradeIntelNetwork] = 1
	in := GatherIntel(s, ModeSolo)
	if !in.ShowDemand || in.DemandMin != 5 || in.DemandMax != 20 || in.Expected != 12 {
		t.Fatalf("cloudy range: %+v", in)
	}
	if in.ShowAttractive || in.ShowAvg {
		t.Fatalf("level 1 reveals too much: %+v", in)
	}

	s.Reputation = 50
	in = GatherIntel(s, ModeSolo)
	if in.DemandMin != 10 || in.DemandMax != 40 {
		t.Fatalf("reputation should scale range: %+v", in)
	}

	s.Upgrades[UpgradeIntelNetwork] = 2
	s.Reputation = 0
	if in = GatherIntel(s, ModeSolo); !in.ShowAttractive || !in.Attractive {
		t.Fatalf("0.50 should be attractive: %+v", in)
	}
	s.Price = 7
	in = GatherIntel(s, ModeSolo)
	if in.Attractive || in.Expected != 0 {
		t.Fatalf("7.00 should scare everyone off: %+v", in)
	}
	if in.DemandMin != 5 || in.DemandMax != 20 {
		t.Fatalf("range should ignore price: %+v", in)
	}
}

func TestSupplyInsightNeedsCityPrices(t *testing.T) {
	s := intelState()
	s.Price = 0.70
	s.Upgrades[UpgradeSupplyInsight] = 1
	if in := GatherIntel(s, ModeCity); in.ShowRivals {
		t.Fatalf("no snapshot yet: %+v", in)
	}

	s.CityMarket = &CityMarket{AvgPrice: 0.73, CompetitorPrices: []float64{0.8, 1.0, 0.4}}
	in := GatherIntel(s, ModeCity)
	if !in.ShowRivals || in.Rivals != 3 || in.CheaperRivals != 1 || in.CheapestRival != 0.4 {
		t.Fatalf("rivals: %+v", in)
	}
	if in = GatherIntel(s, ModeSolo); in.ShowRivals {
		t.Fatalf("stale city snapshot used in solo: %+v", in)
	}
}
