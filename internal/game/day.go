package game

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

type Mode string

const (
	ModeSolo Mode = "solo"
	ModeCity Mode = "city"
)

// DayReport is everything one resolved day produced.
type DayReport struct {
	Day              int                   `json:"day"`
	Mode             Mode                  `json:"mode"`
	Weather          Weather               `json:"weather"`
	PreRestock       Purchase              `json:"pre_restock"`
	PostRestock      Purchase              `json:"post_restock"`
	Catastrophe      *CatastropheResult    `json:"catastrophe,omitempty"`
	Price            float64               `json:"price"`
	EffectivePrice   float64               `json:"effective_price"`
	PriceImpact      PriceImpact           `json:"price_impact"`
	Customers        int                   `json:"customers"`
	Served           int                   `json:"served"`
	Revenue          float64               `json:"revenue"`
	Rent             float64               `json:"rent"`
	Utilities        float64               `json:"utilities"`
	Expenses         float64               `json:"expenses"`
	Profit           float64               `json:"profit"`
	XPGained         float64               `json:"xp_gained"`
	RepChange        float64               `json:"rep_change"`
	Stockout         bool                  `json:"stockout"`
	NewRecord        bool                  `json:"new_record"`
	Streak           int                   `json:"streak"`
	LevelUps         []LevelUp             `json:"level_ups,omitempty"`
	Achievements     []UnlockedAchievement `json:"achievements,omitempty"`
	CityFallback     bool                  `json:"city_fallback,omitempty"`
	CityAvgPrice     float64               `json:"city_avg_price,omitempty"`
	CompetitorPrices []float64             `json:"competitor_prices,omitempty"`
	Reason           string                `json:"reason"`
}

func (r DayReport) Profitable() bool {
	return r.Profit > 0
}

// Engine resolves days. City and Restock are optional capabilities fixed at
// construction; a nil City means solo play.
type Engine struct {
	Rand    Rand
	Restock Restocker
	City    CityAllocator
	// CityWeather is the last weather mirrored from the city, adopted at the
	// start of a city day.
	CityWeather  Weather
	CityAvgPrice float64
	PlayerID     string
	Log          *slog.Logger
}

type dayRun struct {
	ctx    context.Context
	state  *State
	report DayReport
}

type dayStep struct {
	name string
	run  func(e *Engine, d *dayRun)
}

// dayPipeline is the fixed resolution order. Level-ups run before the
// achievement check so level-gated achievements see the new level.
var dayPipeline = []dayStep{
	{"restock_before", (*Engine).restockBefore},
	{"weather", (*Engine).resolveWeather},
	{"catastrophe", (*Engine).catastrophe},
	{"price_impact", (*Engine).priceImpact},
	{"demand", (*Engine).demand},
	{"sales", (*Engine).sales},
	{"settlement", (*Engine).settle},
	{"reputation", (*Engine).reputation},
	{"streak", (*Engine).streak},
	{"market_drift", (*Engine).marketDrift},
	{"level_up", (*Engine).levelUp},
	{"achievements", (*Engine).achievements},
	{"reason", (*Engine).reason},
	{"advance", (*Engine).advance},
	{"restock_after", (*Engine).restockAfter},
}

// ResolveDay runs one full day against s. It fails only the inventory guard,
// in which case s is untouched. Work happens on a copy that replaces s once
// every step has run.
func (e *Engine) ResolveDay(ctx context.Context, s *State) (DayReport, error) {
	if s.Inventory <= 0 {
		return DayReport{}, ErrNoInventory
	}
	if e.Rand == nil {
		e.Rand = NewRand(0)
	}
	if e.Log == nil {
		e.Log = slog.Default()
	}
	d := &dayRun{ctx: ctx, state: s.Clone()}
	d.report.Day = s.Day
	d.report.Mode = ModeSolo
	if e.City != nil {
		d.report.Mode = ModeCity
	}
	for _, step := range dayPipeline {
		step.run(e, d)
	}
	d.state.clamp()
	*s = *d.state
	return d.report, nil
}

func (e *Engine) restockBefore(d *dayRun) {
	if e.Restock != nil {
		d.report.PreRestock = e.Restock.Restock(d.state)
	}
}

func (e *Engine) resolveWeather(d *dayRun) {
	if e.City != nil && e.CityWeather.Valid() {
		d.state.Weather = e.CityWeather
	} else {
		d.state.Weather = RandomWeather(e.Rand)
	}
	d.report.Weather = d.state.Weather
}

func (e *Engine) catastrophe(d *dayRun) {
	if !ShouldTriggerCatastrophe(d.state, e.Rand) {
		return
	}
	c := TriggerCatastrophe(d.state, e.Rand)
	d.report.Catastrophe = &c
}

func (e *Engine) priceImpact(d *dayRun) {
	d.report.Price = d.state.Price
	d.report.PriceImpact = EvaluatePrice(d.state.Price, PriceInputs{
		MaterialCost:       d.state.Market.Materials,
		Reputation:         d.state.Reputation,
		Weather:            d.state.Weather,
		CompetitorAvgPrice: e.CityAvgPrice,
	})
}

func (e *Engine) demand(d *dayRun) {
	if e.City != nil {
		alloc, err := e.City.AllocateCustomers(d.ctx, submissionFor(d.state, e.PlayerID))
		if err == nil {
			d.report.Customers = max(0, alloc.Customers)
			if alloc.CityWeather.Valid() {
				d.state.Weather = alloc.CityWeather
				d.report.Weather = alloc.CityWeather
			}
			d.report.CityAvgPrice = alloc.CityAvgPrice
			d.report.CompetitorPrices = alloc.CompetitorPrices
			d.state.CityMarket = &CityMarket{
				Day:              d.state.Day,
				AvgPrice:         alloc.CityAvgPrice,
				CompetitorPrices: append([]float64(nil), alloc.CompetitorPrices...),
			}
			return
		}
		e.Log.Warn("city allocation unavailable, using local demand", "err", err, "day", d.state.Day)
		d.report.CityFallback = true
	}
	d.report.Customers = LocalCustomers(demandInputs(d.state, d.report.PriceImpact.Impact), e.Rand)
}

func (e *Engine) sales(d *dayRun) {
	d.report.Served = min(d.report.Customers, d.state.Inventory)
	d.report.EffectivePrice = d.state.EffectivePrice()
	d.report.Revenue = float64(d.report.Served) * d.report.EffectivePrice
	d.report.Stockout = d.report.Served < d.report.Customers
}

func (e *Engine) settle(d *dayRun) {
	s := d.state
	d.report.Rent = s.TotalRent()
	d.report.Utilities = s.Market.Utilities
	d.report.Expenses = d.report.Rent + d.report.Utilities
	d.report.Profit = d.report.Revenue - d.report.Expenses

	s.Cash += d.report.Profit
	s.Inventory -= d.report.Served
	s.TotalRevenue += d.report.Revenue
	s.TotalCustomers += d.report.Served
	bonus := 0.0
	if d.report.Profitable() {
		bonus = 10
	}
	d.report.XPGained = math.Floor(float64(d.report.Served)*2 + bonus)
	s.XP += d.report.XPGained
	s.clamp()
}

func (e *Engine) reputation(d *dayRun) {
	s := d.state
	change := -2.0
	if d.report.Profitable() {
		change = 1
		if s.Reputation < 25 {
			change += 3
		}
	}
	if d.report.Stockout {
		change -= 5
	}
	if d.report.Served > s.BestDay {
		s.BestDay = d.report.Served
		d.report.NewRecord = true
		change += 3
	}
	before := s.Reputation
	s.Reputation = math.Max(0, s.Reputation+change)
	d.report.RepChange = s.Reputation - before
}

func (e *Engine) streak(d *dayRun) {
	if d.report.Profitable() {
		d.state.Streak++
	} else {
		d.state.Streak = 0
	}
	d.report.Streak = d.state.Streak
}

func (e *Engine) marketDrift(d *dayRun) {
	m := &d.state.Market
	m.Materials = clampFloat(m.Materials+uniform(e.Rand, -0.05, 0.05), 0.15, 0.50)
	if d.state.Day > 5 {
		m.Utilities = 5
	} else {
		m.Utilities = 0
	}
}

func (e *Engine) levelUp(d *dayRun) {
	d.report.LevelUps = ApplyLevelUps(d.state)
}

func (e *Engine) achievements(d *dayRun) {
	d.report.Achievements = CheckAchievements(d.state)
}

func (e *Engine) reason(d *dayRun) {
	d.report.Reason = dayReason(d.report, d.state, e.Rand)
}

func (e *Engine) advance(d *dayRun) {
	d.state.clamp()
	d.state.Day++
}

func (e *Engine) restockAfter(d *dayRun) {
	if e.Restock != nil {
		d.report.PostRestock = e.Restock.Restock(d.state)
	}
}

func dayReason(r DayReport, s *State, rnd Rand) string {
	impact := r.PriceImpact.Impact
	rivalNote := func() string {
		rival := Rivals[pick(rnd, len(Rivals))]
		return fmt.Sprintf(" %s is %s nearby.", rival.Name, rival.Catchphrase)
	}
	switch {
	case r.Customers == 0:
		switch {
		case impact < 0.1:
			return fmt.Sprintf("NO CUSTOMERS! Your price ($%.2f) is far too high. Recommended: $%.2f", r.Price, r.PriceImpact.Factors.MaxReasonablePrice)
		case r.Weather == Rainy:
			return "NO CUSTOMERS due to terrible weather."
		default:
			return fmt.Sprintf("NO CUSTOMERS. Low reputation (%.0f) and poor conditions.", s.Reputation)
		}
	case r.Customers < 3:
		if impact < 0.5 {
			return fmt.Sprintf("Very few customers (%d), price too high.", r.Customers) + rivalNote()
		}
		return "Low traffic." + rivalNote()
	case r.Customers > 15:
		if r.Weather.Multiplier() > 1.5 {
			return "Excellent weather brought crowds!"
		}
		return fmt.Sprintf("Great reputation (%.0f) attracting customers!", s.Reputation)
	default:
		if impact < 0.95 {
			return "Steady customer flow. Price is limiting some customers."
		}
		return "Steady customer flow. Keep growing!"
	}
}
