package game

import (
	"errors"
	"testing"
)

func TestBuyStockAllOrNothing(t *testing.T) {
	s := NewState()
	s.Market.Materials = 0.25
	s.Cash = 10

	p, err := BuyStock(s, 10)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if p.Cost != 2.5 || s.Cash != 7.5 || s.Inventory != 20 {
		t.Fatalf("purchase=%+v cash=%v inventory=%d", p, s.Cash, s.Inventory)
	}

	s.Cash = 100
	if _, err := BuyStock(s, 31); !errors.Is(err, ErrStorageFull) {
		t.Fatalf("expected storage full, got %v", err)
	}
	if _, err := BuyStock(s, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	s.Cash = 1
	if _, err := BuyStock(s, 5); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if s.Cash != 1 || s.Inventory != 20 {
		t.Fatalf("failed buy mutated state: cash=%v inventory=%d", s.Cash, s.Inventory)
	}
}

func TestEfficiencyDiscountIsCapped(t *testing.T) {
	s := NewState()
	s.Market.Materials = 0.25
	s.Upgrades[UpgradeEfficiency] = 2
	assertClose(t, "unit cost", s.UnitCost(), 0.2)
	s.Upgrades[UpgradeEfficiency] = 14
	assertClose(t, "capped unit cost", s.UnitCost(), 0.025)
}

func TestQuoteUpgradeFlagsSoftLock(t *testing.T) {
	s := NewState()
	s.Cash = 55
	q, err := QuoteUpgrade(s, UpgradeMarketing)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Cost != 50 || q.NextLevel != 1 || q.Risky {
		t.Fatalf("unexpected quote: %+v", q)
	}
	s.Cash = 51
	if q, _ = QuoteUpgrade(s, UpgradeMarketing); !q.Risky {
		t.Fatalf("expected risky quote: %+v", q)
	}
}

func TestBuyUpgrade(t *testing.T) {
	s := NewState()
	s.Cash = 100
	if _, err := BuyUpgrade(s, UpgradeStorage); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if s.Cash != 60 || s.MaxInventory != StarterMaxInventory+50 || s.UpgradeLevel(UpgradeStorage) != 1 {
		t.Fatalf("cash=%v max=%d level=%d", s.Cash, s.MaxInventory, s.UpgradeLevel(UpgradeStorage))
	}
	if _, err := BuyUpgrade(s, UpgradeSupplyInsight); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if _, err := BuyUpgrade(s, "time_machine"); !errors.Is(err, ErrUnknownUpgrade) {
		t.Fatalf("expected unknown upgrade, got %v", err)
	}
}

func TestBuyLocation(t *testing.T) {
	s := NewState()
	s.Cash = 3000
	loc, err := BuyLocation(s)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if loc.ID != 2 || loc.RentPerDay != 250 || loc.PurchasePrice != 2500 {
		t.Fatalf("unexpected location: %+v", loc)
	}
	if s.Cash != 500 || len(s.Locations) != 2 || s.TotalRent() != 250 {
		t.Fatalf("cash=%v locations=%d rent=%v", s.Cash, len(s.Locations), s.TotalRent())
	}
	if s.Reputation != 10 || s.MaxInventory != StarterMaxInventory+20 {
		t.Fatalf("rep=%v max=%d", s.Reputation, s.MaxInventory)
	}
	if s.NextLocationPrice != 4375 {
		t.Fatalf("next price=%v want 4375", s.NextLocationPrice)
	}
	if _, err := BuyLocation(s); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestNextLocationPriceGrows(t *testing.T) {
	prev := 0.0
	for owned := 1; owned < 10; owned++ {
		p := NextLocationPrice(owned)
		if p <= prev {
			t.Fatalf("owned=%d price=%v not above %v", owned, p, prev)
		}
		prev = p
	}
}

func TestAutoBuyRestock(t *testing.T) {
	s := NewState()
	s.Market.Materials = 0.25
	s.Cash = 10
	s.Inventory = 5
	s.AutoBuy.Enabled = true

	p := AutoBuyPolicy{}.Restock(s)
	// target is 40 units, so 35 wanted and all affordable
	if p.Units != 35 || p.Cost != 8.75 {
		t.Fatalf("unexpected purchase: %+v", p)
	}
	if s.Inventory != 40 || s.Cash != 1.25 {
		t.Fatalf("inventory=%d cash=%v", s.Inventory, s.Cash)
	}
	if p := (AutoBuyPolicy{}).Restock(s); p.Units != 0 {
		t.Fatalf("restocked above threshold: %+v", p)
	}
}

func TestAutoBuyPartialWhenShortOnCash(t *testing.T) {
	s := NewState()
	s.Market.Materials = 0.25
	s.Cash = 2
	s.Inventory = 0
	s.AutoBuy.Enabled = true

	p := AutoBuyPolicy{}.Restock(s)
	if p.Units != 8 || s.Cash != 0 || s.Inventory != 8 {
		t.Fatalf("purchase=%+v cash=%v inventory=%d", p, s.Cash, s.Inventory)
	}
}

func TestAutoBuyDisabled(t *testing.T) {
	s := NewState()
	s.Inventory = 0
	if p := (AutoBuyPolicy{}).Restock(s); p.Units != 0 || s.Inventory != 0 {
		t.Fatalf("disabled policy bought stock: %+v", p)
	}
}

func TestSetAutoBuyValidates(t *testing.T) {
	s := NewState()
	if err := SetAutoBuy(s, true, 0, 80); !errors.Is(err, ErrInvalidAutoBuy) {
		t.Fatalf("expected invalid, got %v", err)
	}
	if err := SetAutoBuy(s, true, 10, 101); !errors.Is(err, ErrInvalidAutoBuy) {
		t.Fatalf("expected invalid, got %v", err)
	}
	if err := SetAutoBuy(s, true, 10, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if s.AutoBuy != (AutoBuy{Enabled: true, Threshold: 10, TargetPercent: 60}) {
		t.Fatalf("unexpected settings: %+v", s.AutoBuy)
	}
}

func TestSetPriceAndRename(t *testing.T) {
	s := NewState()
	if err := SetPrice(s, 0.05); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected invalid price, got %v", err)
	}
	if s.Price != StarterPrice {
		t.Fatalf("price changed on failure: %v", s.Price)
	}
	if err := SetPrice(s, 2.5); err != nil || s.Price != 2.5 {
		t.Fatalf("set price: %v %v", err, s.Price)
	}
	if err := Rename(s, "sour power"); err != nil || s.BusinessName != "SOUR POWER" {
		t.Fatalf("rename: %v %q", err, s.BusinessName)
	}
}
