package game

import "testing"

func TestHazardProbability(t *testing.T) {
	tests := []struct {
		days int
		want float64
	}{
		{days: 0, want: 0.03},
		{days: 9, want: 0.03},
		{days: 10, want: 0.5},
		{days: 12, want: 0.5},
		{days: 13, want: 0.75},
		{days: 14, want: 0.75},
		{days: 15, want: 1},
		{days: 40, want: 1},
	}
	for _, tc := range tests {
		if got := HazardProbability(tc.days); got != tc.want {
			t.Fatalf("days=%d got=%v want=%v", tc.days, got, tc.want)
		}
	}
}

func TestShouldTriggerCatastrophe(t *testing.T) {
	s := NewState()
	s.Day = 14

	if !ShouldTriggerCatastrophe(s, NewSequence(0.74)) {
		t.Fatalf("expected trigger below 0.75")
	}
	if ShouldTriggerCatastrophe(s, NewSequence(0.76)) {
		t.Fatalf("did not expect trigger above 0.75")
	}

	s.Day = 15
	seq := NewSequence(0.99)
	if !ShouldTriggerCatastrophe(s, seq) {
		t.Fatalf("expected forced trigger after 15 days")
	}
	if seq.Drawn() != 0 {
		t.Fatalf("forced trigger should not draw, drew %d", seq.Drawn())
	}
}

func TestTheftHonoursMinimumCost(t *testing.T) {
	s := NewState()
	s.Day = 4
	s.Cash = 100
	got := TriggerCatastrophe(s, NewSequence(0.5))
	if got.Name != "Theft" {
		t.Fatalf("picked %q", got.Name)
	}
	if got.CashLoss != 15 || s.Cash != 85 {
		t.Fatalf("loss=%v cash=%v", got.CashLoss, s.Cash)
	}
	if s.LastCatastropheDay != 4 {
		t.Fatalf("hazard clock not reset: %d", s.LastCatastropheDay)
	}
}

func TestSpoiledInventory(t *testing.T) {
	s := NewState()
	s.Inventory = 25
	s.Reputation = 20
	s.Cash = 50
	got := TriggerCatastrophe(s, NewSequence(0.7))
	if got.Name != "Spoiled Inventory" {
		t.Fatalf("picked %q", got.Name)
	}
	if got.InventoryLoss != 5 || s.Inventory != 20 {
		t.Fatalf("inventory loss=%d inventory=%d", got.InventoryLoss, s.Inventory)
	}
	if s.Reputation != 15 || s.Cash != 50 {
		t.Fatalf("rep=%v cash=%v", s.Reputation, s.Cash)
	}
}

func TestCashLossCappedAt45Percent(t *testing.T) {
	s := NewState()
	s.Cash = 10
	got := TriggerCatastrophe(s, NewSequence(0.9))
	if got.Name != "Storm Damage" {
		t.Fatalf("picked %q", got.Name)
	}
	if got.CashLoss != 4.5 || s.Cash != 5.5 {
		t.Fatalf("loss=%v cash=%v", got.CashLoss, s.Cash)
	}
}

func TestCatastropheNeverDrivesStateNegative(t *testing.T) {
	rng := NewRand(99)
	for i := 0; i < 1000; i++ {
		s := NewState()
		s.Cash = rng.Float64() * 30
		s.Inventory = int(rng.Float64() * 5)
		s.Reputation = rng.Float64() * 4
		TriggerCatastrophe(s, rng)
		if s.Cash < 0 || s.Inventory < 0 || s.Reputation < 0 {
			t.Fatalf("negative state after catastrophe: %+v", s)
		}
	}
}
