package game

import (
	"fmt"
	"math"
)

func SetPrice(s *State, price float64) error {
	if err := ValidatePrice(price); err != nil {
		return err
	}
	s.Price = price
	return nil
}

func Rename(s *State, name string) error {
	clean, err := ValidateBusinessName(name)
	if err != nil {
		return err
	}
	s.BusinessName = clean
	return nil
}

type Purchase struct {
	Units int     `json:"units"`
	Cost  float64 `json:"cost"`
}

// BuyStock buys exactly units of inventory or nothing at all.
func BuyStock(s *State, units int) (Purchase, error) {
	if units <= 0 {
		return Purchase{}, ErrInvalidQuantity
	}
	cost := float64(units) * s.UnitCost()
	if s.Cash < cost {
		return Purchase{}, ErrInsufficientFunds
	}
	if s.Inventory+units > s.MaxInventory {
		return Purchase{}, ErrStorageFull
	}
	s.Cash -= cost
	s.Inventory += units
	s.clamp()
	return Purchase{Units: units, Cost: cost}, nil
}

// UpgradeQuote describes what buying the next level of an upgrade costs. Risky
// is set when the remaining cash would not cover ten units of stock.
type UpgradeQuote struct {
	Upgrade   Upgrade `json:"-"`
	ID        string  `json:"id"`
	NextLevel int     `json:"next_level"`
	Cost      float64 `json:"cost"`
	CashAfter float64 `json:"cash_after"`
	MinStock  float64 `json:"min_restock_cost"`
	Risky     bool    `json:"risky"`
}

func QuoteUpgrade(s *State, id string) (UpgradeQuote, error) {
	u, err := UpgradeByID(id)
	if err != nil {
		return UpgradeQuote{}, err
	}
	level := s.UpgradeLevel(u.ID)
	cost := u.Cost(level)
	q := UpgradeQuote{
		Upgrade:   u,
		ID:        u.ID,
		NextLevel: level + 1,
		Cost:      cost,
		CashAfter: s.Cash - cost,
		MinStock:  10 * s.Market.Materials,
	}
	q.Risky = q.CashAfter < q.MinStock
	return q, nil
}

func BuyUpgrade(s *State, id string) (UpgradeQuote, error) {
	q, err := QuoteUpgrade(s, id)
	if err != nil {
		return q, err
	}
	if s.Cash < q.Cost {
		return q, ErrInsufficientFunds
	}
	s.Cash -= q.Cost
	if s.Upgrades == nil {
		s.Upgrades = DefaultUpgrades()
	}
	s.Upgrades[q.ID] = q.NextLevel
	if q.ID == UpgradeStorage {
		s.MaxInventory += storagePerLevel
	}
	s.clamp()
	return q, nil
}

// NextLocationPrice prices the location bought when the stand already owns
// owned locations. It grows strictly with owned.
func NextLocationPrice(owned int) float64 {
	if owned < 1 {
		owned = 1
	}
	return math.Floor(BaseLocationPrice * math.Pow(LocationPriceGrowth, float64(owned-1)))
}

func BuyLocation(s *State) (Location, error) {
	price := s.NextLocationPrice
	if price <= 0 {
		price = NextLocationPrice(len(s.Locations))
	}
	if s.Cash < price {
		return Location{}, fmt.Errorf("%w: need $%.0f", ErrInsufficientFunds, price)
	}
	n := len(s.Locations) + 1
	loc := Location{
		ID:            n,
		Name:          fmt.Sprintf("Location #%d", n),
		PurchasePrice: price,
		RentPerDay:    math.Floor(price * LocationRentRate),
		DayPurchased:  s.Day,
	}
	s.Locations = append(s.Locations, loc)
	s.Cash -= price
	s.Reputation += 10
	s.MaxInventory += 20
	s.NextLocationPrice = NextLocationPrice(len(s.Locations))
	s.clamp()
	return loc, nil
}

// Restocker may buy inventory around a day resolution.
type Restocker interface {
	Restock(s *State) Purchase
}

// AutoBuyPolicy restocks toward TargetPercent of storage once inventory drops
// under Threshold, buying as much as cash allows.
type AutoBuyPolicy struct{}

func (AutoBuyPolicy) Restock(s *State) Purchase {
	if !s.AutoBuy.Enabled || s.Inventory >= s.AutoBuy.Threshold {
		return Purchase{}
	}
	target := int(math.Floor(float64(s.MaxInventory) * float64(s.AutoBuy.TargetPercent) / 100))
	want := target - s.Inventory
	if want <= 0 {
		return Purchase{}
	}
	unit := s.UnitCost()
	if unit <= 0 {
		return Purchase{}
	}
	affordable := int(math.Floor(s.Cash / unit))
	room := s.MaxInventory - s.Inventory
	units := min(want, affordable, room)
	if units <= 0 {
		return Purchase{}
	}
	cost := float64(units) * unit
	s.Cash -= cost
	s.Inventory += units
	s.clamp()
	return Purchase{Units: units, Cost: cost}
}

func SetAutoBuy(s *State, enabled bool, threshold, targetPercent int) error {
	if threshold < 1 || targetPercent < 1 || targetPercent > 100 {
		return ErrInvalidAutoBuy
	}
	s.AutoBuy = AutoBuy{Enabled: enabled, Threshold: threshold, TargetPercent: targetPercent}
	return nil
}
