package game

import (
	"math"
	"sort"
)

type Location struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	PurchasePrice float64 `json:"purchase_price"`
	RentPerDay    float64 `json:"rent_per_day"`
	DayPurchased  int     `json:"day_purchased"`
}

type MarketPrices struct {
	Materials float64 `json:"materials"`
	Utilities float64 `json:"utilities"`
}

type AutoBuy struct {
	Enabled       bool `json:"enabled"`
	Threshold     int  `json:"threshold"`
	TargetPercent int  `json:"target_percent"`
}

// State is one player's stand. Only the day engine and player actions mutate it.
type State struct {
	Day                int             `json:"day"`
	Cash               float64         `json:"cash"`
	Inventory          int             `json:"inventory"`
	MaxInventory       int             `json:"max_inventory"`
	Price              float64         `json:"price"`
	BusinessName       string          `json:"business_name"`
	TotalRevenue       float64         `json:"total_revenue"`
	TotalCustomers     int             `json:"total_customers"`
	Reputation         float64         `json:"reputation"`
	Level              int             `json:"level"`
	XP                 float64         `json:"xp"`
	XPToNext           float64         `json:"xp_to_next"`
	Streak             int             `json:"streak"`
	BestDay            int             `json:"best_day"`
	Weather            Weather         `json:"weather"`
	Market             MarketPrices    `json:"market_prices"`
	Upgrades           map[string]int  `json:"upgrades"`
	Locations          []Location      `json:"locations"`
	LastCatastropheDay int             `json:"last_catastrophe_day"`
	AutoBuy            AutoBuy         `json:"auto_buy"`
	NextLocationPrice  float64         `json:"next_location_price"`
	Achievements       map[string]bool `json:"achievements"`
	// CityMarket is the last city price snapshot, nil until a city day resolves.
	CityMarket *CityMarket `json:"city_market,omitempty"`
}

func MainStand() Location {
	return Location{ID: 1, Name: "Main Stand"}
}

func DefaultUpgrades() map[string]int {
	return map[string]int{
		UpgradeMarketing:  0,
		UpgradeQuality:    0,
		UpgradeEfficiency: 0,
		UpgradeStorage:    0,
	}
}

func DefaultAutoBuy() AutoBuy {
	return AutoBuy{Threshold: 20, TargetPercent: 80}
}

// NewState returns a fresh stand with the starter balance.
func NewState() *State {
	return &State{
		Day:                1,
		Cash:               StarterCash,
		Inventory:          StarterInventory,
		MaxInventory:       StarterMaxInventory,
		Price:              StarterPrice,
		BusinessName:       DefaultBusinessName,
		Level:              1,
		XPToNext:           StarterXPToNext,
		Weather:            Sunny,
		Market:             MarketPrices{Materials: StarterMaterials},
		Upgrades:           DefaultUpgrades(),
		Locations:          []Location{MainStand()},
		LastCatastropheDay: 0,
		AutoBuy:            DefaultAutoBuy(),
		NextLocationPrice:  BaseLocationPrice,
		Achievements:       map[string]bool{},
	}
}

// Normalize backfills anything a partial or older save left out. It returns
// true when the achievement set had to be rebuilt, in which case already-met
// conditions are marked unlocked without paying rewards.
func (s *State) Normalize() bool {
	def := NewState()
	if s.Day < 1 {
		s.Day = def.Day
	}
	if s.MaxInventory <= 0 {
		s.MaxInventory = def.MaxInventory
	}
	if s.Price == 0 {
		s.Price = def.Price
	}
	if s.BusinessName == "" {
		s.BusinessName = def.BusinessName
	}
	if s.Level < 1 {
		s.Level = def.Level
	}
	if s.XPToNext <= 0 {
		s.XPToNext = def.XPToNext
	}
	if !s.Weather.Valid() {
		s.Weather = def.Weather
	}
	if s.Market.Materials <= 0 {
		s.Market.Materials = def.Market.Materials
	}
	if len(s.Locations) == 0 {
		s.Locations = def.Locations
	}
	if s.Upgrades == nil {
		s.Upgrades = def.Upgrades
	}
	if s.AutoBuy.Threshold <= 0 {
		s.AutoBuy.Threshold = def.AutoBuy.Threshold
	}
	if s.AutoBuy.TargetPercent <= 0 {
		s.AutoBuy.TargetPercent = def.AutoBuy.TargetPercent
	}
	if s.NextLocationPrice <= 0 {
		s.NextLocationPrice = NextLocationPrice(len(s.Locations))
	}
	rebuilt := false
	if s.Achievements == nil {
		s.Achievements = map[string]bool{}
		for _, a := range Achievements {
			if a.Condition(s) {
				s.Achievements[a.ID] = true
			}
		}
		rebuilt = true
	}
	s.clamp()
	return rebuilt
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	out := *s
	out.Upgrades = make(map[string]int, len(s.Upgrades))
	for k, v := range s.Upgrades {
		out.Upgrades[k] = v
	}
	out.Locations = append([]Location(nil), s.Locations...)
	out.Achievements = make(map[string]bool, len(s.Achievements))
	for k, v := range s.Achievements {
		out.Achievements[k] = v
	}
	if s.CityMarket != nil {
		m := *s.CityMarket
		m.CompetitorPrices = append([]float64(nil), s.CityMarket.CompetitorPrices...)
		out.CityMarket = &m
	}
	return &out
}

func (s *State) UpgradeLevel(id string) int {
	return s.Upgrades[id]
}

func (s *State) TotalRent() float64 {
	var rent float64
	for _, l := range s.Locations {
		rent += l.RentPerDay
	}
	return rent
}

// UnitCost is the per-unit restock price after efficiency discounts. The
// discount stops at 90% so stock never becomes free.
func (s *State) UnitCost() float64 {
	discount := math.Min(0.9, float64(s.UpgradeLevel(UpgradeEfficiency))*0.10)
	return s.Market.Materials * (1 - discount)
}

// EffectivePrice is the price customers actually pay after the quality bonus.
func (s *State) EffectivePrice() float64 {
	return s.Price * (1 + float64(s.UpgradeLevel(UpgradeQuality))*0.10)
}

// UnlockedAchievements lists unlocked ids in catalog order, followed by any
// ids no longer in the catalog in lexical order.
func (s *State) UnlockedAchievements() []string {
	out := make([]string, 0, len(s.Achievements))
	for _, a := range Achievements {
		if s.Achievements[a.ID] {
			out = append(out, a.ID)
		}
	}
	var extra []string
	for id, ok := range s.Achievements {
		if ok && !isCatalogAchievement(id) {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func (s *State) clamp() {
	if s.Cash < 0 || math.IsNaN(s.Cash) {
		s.Cash = 0
	}
	if s.Inventory < 0 {
		s.Inventory = 0
	}
	if s.Inventory > s.MaxInventory {
		s.Inventory = s.MaxInventory
	}
	if s.Reputation < 0 || math.IsNaN(s.Reputation) {
		s.Reputation = 0
	}
	if s.XP < 0 {
		s.XP = 0
	}
	if s.Streak < 0 {
		s.Streak = 0
	}
	s.Price = clampFloat(s.Price, MinPrice, MaxPrice)
}

func isCatalogAchievement(id string) bool {
	for _, a := range Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}
