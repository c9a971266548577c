package game

import (
	"encoding/json"
	"testing"
)

func TestNormalizeBackfillsPartialSave(t *testing.T) {
	var s State
	raw := `{"day":0,"cash":3,"total_revenue":600,"streak":2,"reputation":12}`
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rebuilt := s.Normalize()
	if !rebuilt {
		t.Fatalf("expected achievements to be rebuilt")
	}
	if s.Day != 1 || s.MaxInventory != StarterMaxInventory || s.Price != StarterPrice {
		t.Fatalf("defaults not applied: %+v", s)
	}
	if len(s.Locations) != 1 || s.Locations[0].Name != "Main Stand" {
		t.Fatalf("locations=%+v", s.Locations)
	}
	if s.Upgrades == nil || s.AutoBuy.Threshold != 20 || s.AutoBuy.TargetPercent != 80 {
		t.Fatalf("upgrades=%v autobuy=%+v", s.Upgrades, s.AutoBuy)
	}
	if !s.Achievements["first_profit"] || !s.Achievements["total_revenue_500"] {
		t.Fatalf("met achievements not marked: %v", s.Achievements)
	}
	if s.Cash != 3 {
		t.Fatalf("rebuild paid rewards: cash=%v", s.Cash)
	}
	if s.Normalize() {
		t.Fatalf("second normalize should be a no-op")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := NewState()
	c := s.Clone()
	c.Upgrades[UpgradeQuality] = 3
	c.Achievements["streak_5"] = true
	c.Locations[0].Name = "changed"
	if s.Upgrades[UpgradeQuality] != 0 || s.Achievements["streak_5"] || s.Locations[0].Name != "Main Stand" {
		t.Fatalf("clone shares memory with original")
	}

	s.CityMarket = &CityMarket{AvgPrice: 1, CompetitorPrices: []float64{0.9}}
	c = s.Clone()
	c.CityMarket.CompetitorPrices[0] = 2
	if s.CityMarket.CompetitorPrices[0] != 0.9 {
		t.Fatalf("clone shares city market prices")
	}
}

func TestUnlockedAchievementsOrder(t *testing.T) {
	s := NewState()
	s.Achievements = map[string]bool{
		"level_5":      true,
		"legacy_badge": true,
		"first_profit": true,
		"alpha_badge":  true,
		"streak_10":    false,
	}
	got := s.UnlockedAchievements()
	want := []string{"first_profit", "level_5", "alpha_badge", "legacy_badge"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestEffectivePriceIncludesQuality(t *testing.T) {
	s := NewState()
	s.Price = 2
	s.Upgrades[UpgradeQuality] = 3
	assertClose(t, "effective price", s.EffectivePrice(), 2.6)
}
