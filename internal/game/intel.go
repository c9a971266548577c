package game

import "math"

// CityMarket is the price picture from the last allocated city day.
type CityMarket struct {
	Day              int       `json:"day"`
	AvgPrice         float64   `json:"avg_price"`
	CompetitorPrices []float64 `json:"competitor_prices,omitempty"`
}

// MarketIntel is what the intel upgrades reveal about the next day. A section
// is only filled when its upgrade level allows it.
type MarketIntel struct {
	// market_research
	ShowAvg      bool
	AvgPrice     float64
	AvgFromCity  bool
	ShowPosition bool
	Undercut     bool
	ShowIdeal    bool
	IdealPrice   float64

	// intel_network
	ShowDemand     bool
	DemandMin      int
	DemandMax      int
	Expected       int
	ShowAttractive bool
	Attractive     bool

	// supply_insight
	ShowRivals    bool
	Rivals        int
	CheaperRivals int
	CheapestRival float64
}

func (m MarketIntel) Empty() bool {
	return !m.ShowAvg && !m.ShowDemand && !m.ShowRivals
}

// GatherIntel reads tomorrow's market from s. The city snapshot is only
// trusted in city mode; solo play falls back to three times material cost.
func GatherIntel(s *State, mode Mode) MarketIntel {
	var out MarketIntel
	var market *CityMarket
	if mode == ModeCity && s.CityMarket != nil && s.CityMarket.AvgPrice > 0 {
		market = s.CityMarket
	}

	in := PriceInputs{
		MaterialCost: s.Market.Materials,
		Reputation:   s.Reputation,
		Weather:      s.Weather,
	}
	if market != nil {
		in.CompetitorAvgPrice = market.AvgPrice
	}
	impact := EvaluatePrice(s.Price, in)
	f := impact.Factors

	if lvl := s.UpgradeLevel(UpgradeMarketResearch); lvl >= 1 {
		out.ShowAvg = true
		out.AvgPrice = s.Market.Materials * 3
		if market != nil {
			out.AvgPrice = market.AvgPrice
			out.AvgFromCity = true
		}
		if lvl >= 2 {
			out.ShowPosition = true
			out.Undercut = s.Price < out.AvgPrice
		}
		if lvl >= 3 {
			out.ShowIdeal = true
			out.IdealPrice = f.IdealPrice
		}
	}

	if lvl := s.UpgradeLevel(UpgradeIntelNetwork); lvl >= 1 {
		di := demandInputs(s, 1)
		out.ShowDemand = true
		out.DemandMin = scaleCustomers(math.Floor(5*s.Weather.Multiplier()), di)
		out.DemandMax = scaleCustomers(math.Floor(20*s.Weather.Multiplier()), di)
		di.PriceImpact = impact.Impact
		out.Expected = ExpectedCustomers(di)
		if lvl >= 2 {
			out.ShowAttractive = true
			out.Attractive = s.Price <= f.MaxReasonablePrice
		}
	}

	if s.UpgradeLevel(UpgradeSupplyInsight) >= 1 && market != nil && len(market.CompetitorPrices) > 0 {
		out.ShowRivals = true
		out.Rivals = len(market.CompetitorPrices)
		out.CheapestRival = market.CompetitorPrices[0]
		for _, p := range market.CompetitorPrices {
			if p < s.Price {
				out.CheaperRivals++
			}
			out.CheapestRival = math.Min(out.CheapestRival, p)
		}
	}
	return out
}
