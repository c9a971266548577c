package game

import (
	"fmt"
	"math"
	"strings"
)

type Weather string

const (
	Sunny    Weather = "sunny"
	Cloudy   Weather = "cloudy"
	Rainy    Weather = "rainy"
	Heatwave Weather = "heatwave"
)

var weatherMultipliers = map[Weather]float64{
	Sunny:    1.2,
	Cloudy:   1.0,
	Rainy:    0.6,
	Heatwave: 1.8,
}

// WeatherPool is the weighted draw table; sunny appears twice.
var WeatherPool = []Weather{Sunny, Sunny, Cloudy, Rainy, Heatwave}

// Multiplier returns the demand multiplier for w. Unknown values count as cloudy.
func (w Weather) Multiplier() float64 {
	if m, ok := weatherMultipliers[w]; ok {
		return m
	}
	return 1.0
}

func (w Weather) Valid() bool {
	_, ok := weatherMultipliers[w]
	return ok
}

func (w Weather) Label() string {
	return strings.ToUpper(string(w))
}

func ParseWeather(s string) (Weather, error) {
	w := Weather(strings.ToLower(strings.TrimSpace(s)))
	if !w.Valid() {
		return "", fmt.Errorf("unknown weather %q", s)
	}
	return w, nil
}

// RandomWeather draws from WeatherPool.
func RandomWeather(r Rand) Weather {
	return WeatherPool[pick(r, len(WeatherPool))]
}

const (
	UpgradeMarketing      = "marketing"
	UpgradeQuality        = "quality"
	UpgradeEfficiency     = "efficiency"
	UpgradeStorage        = "storage"
	UpgradeMarketResearch = "market_research"
	UpgradeIntelNetwork   = "intel_network"
	UpgradeSupplyInsight  = "supply_insight"

	upgradeCostGrowth = 1.5
	storagePerLevel   = 50
)

type Upgrade struct {
	ID       string
	Name     string
	Desc     string
	BaseCost float64
}

var Upgrades = []Upgrade{
	{ID: UpgradeMarketing, Name: "Marketing", Desc: "+15% customers per level", BaseCost: 50},
	{ID: UpgradeQuality, Name: "Quality", Desc: "+10% effective price per level", BaseCost: 75},
	{ID: UpgradeEfficiency, Name: "Efficiency", Desc: "-10% material costs per level", BaseCost: 60},
	{ID: UpgradeStorage, Name: "Storage", Desc: "+50 max inventory per level", BaseCost: 40},
	{ID: UpgradeMarketResearch, Name: "Market Research", Desc: "Reveals avg competitor price", BaseCost: 150},
	{ID: UpgradeIntelNetwork, Name: "Intel Network", Desc: "Shows estimated customer demand", BaseCost: 200},
	{ID: UpgradeSupplyInsight, Name: "Supply Insight", Desc: "Shows rival stock levels (approx)", BaseCost: 250},
}

func UpgradeByID(id string) (Upgrade, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, u := range Upgrades {
		if u.ID == id {
			return u, nil
		}
	}
	return Upgrade{}, ErrUnknownUpgrade
}

// Cost is floor(baseCost × 1.5^level).
func (u Upgrade) Cost(level int) float64 {
	if level < 0 {
		level = 0
	}
	return math.Floor(u.BaseCost * math.Pow(upgradeCostGrowth, float64(level)))
}

type Catastrophe struct {
	Name             string
	Message          string
	MinCost          float64
	MaxCostPercent   float64
	InventoryPercent float64
	RepLoss          float64
}

var Catastrophes = []Catastrophe{
	{Name: "Equipment Breakdown", Message: "Equipment broke down!", MinCost: 20, MaxCostPercent: 0.15, RepLoss: 5},
	{Name: "Health Inspection", Message: "Failed health inspection!", MinCost: 30, MaxCostPercent: 0.20, RepLoss: 8},
	{Name: "Theft", Message: "Someone stole from your register!", MinCost: 15, MaxCostPercent: 0.12},
	{Name: "Spoiled Inventory", Message: "20% of inventory spoiled!", InventoryPercent: 0.20, RepLoss: 5},
	{Name: "Storm Damage", Message: "Storm damaged property!", MinCost: 40, MaxCostPercent: 0.25, RepLoss: 3},
}

type Achievement struct {
	ID         string
	Name       string
	Desc       string
	Condition  func(*State) bool
	CashReward float64
}

var Achievements = []Achievement{
	{
		ID:         "first_profit",
		Name:       "First Dollar",
		Desc:       "Earn your first profit day",
		Condition:  func(s *State) bool { return s.TotalRevenue > 0 && s.Streak >= 1 },
		CashReward: 10,
	},
	{
		ID:         "reputation_50",
		Name:       "Getting Known",
		Desc:       "Reach 50 reputation",
		Condition:  func(s *State) bool { return s.Reputation >= 50 },
		CashReward: 25,
	},
	{
		ID:         "reputation_200",
		Name:       "Local Legend",
		Desc:       "Reach 200 reputation",
		Condition:  func(s *State) bool { return s.Reputation >= 200 },
		CashReward: 100,
	},
	{
		ID:         "second_location",
		Name:       "Expanding Empire",
		Desc:       "Buy your second location",
		Condition:  func(s *State) bool { return len(s.Locations) >= 2 },
		CashReward: 50,
	},
	{
		ID:         "streak_5",
		Name:       "On a Roll",
		Desc:       "Achieve a 5-day profit streak",
		Condition:  func(s *State) bool { return s.Streak >= 5 },
		CashReward: 30,
	},
	{
		ID:         "streak_10",
		Name:       "Unstoppable",
		Desc:       "Achieve a 10-day profit streak",
		Condition:  func(s *State) bool { return s.Streak >= 10 },
		CashReward: 75,
	},
	{
		ID:         "total_revenue_500",
		Name:       "Half-Grand",
		Desc:       "Earn $500 total revenue",
		Condition:  func(s *State) bool { return s.TotalRevenue >= 500 },
		CashReward: 50,
	},
	{
		ID:         "level_5",
		Name:       "Level Up",
		Desc:       "Reach Level 5",
		Condition:  func(s *State) bool { return s.Level >= 5 },
		CashReward: 100,
	},
}

type Rival struct {
	Name        string
	Catchphrase string
}

// Rivals only feed the day reason text.
var Rivals = []Rival{
	{Name: "Karen's Fresh Squeeze", Catchphrase: "undercutting everyone"},
	{Name: "FreshCo Beverages", Catchphrase: "always well-stocked"},
	{Name: "The Citrus Cartel", Catchphrase: "dominating the corner"},
	{Name: "Dave's Discount Stand", Catchphrase: "fighting for the price floor"},
}

var dayTips = map[int]string{
	2:  "Buy inventory BEFORE starting your day to avoid running out of stock!",
	3:  "Check upgrades: Marketing gives +15% more customers every day!",
	4:  "Join a city to compete with real players in a shared economy!",
	7:  "Reputation grows with profit. Higher rep = more customers + higher max price.",
	10: "Expand! Buy a second location for +30% more customers.",
	15: "Enable auto-buy to restock automatically between days.",
}

// DayTip returns the one-off tip shown when a player reaches day, if any.
func DayTip(day int) (string, bool) {
	tip, ok := dayTips[day]
	return tip, ok
}

func pick(r Rand, n int) int {
	i := int(r.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
