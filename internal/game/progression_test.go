package game

import "testing"

func TestApplyLevelUpsCarriesOverflow(t *testing.T) {
	s := NewState()
	s.XP = 150
	ups := ApplyLevelUps(s)
	if len(ups) != 1 || s.Level != 2 {
		t.Fatalf("level=%d ups=%+v", s.Level, ups)
	}
	if s.XP != 50 || s.XPToNext != 150 {
		t.Fatalf("xp=%v next=%v", s.XP, s.XPToNext)
	}
	if s.MaxInventory != StarterMaxInventory+20 || s.Reputation != 4 {
		t.Fatalf("max inventory=%d rep=%v", s.MaxInventory, s.Reputation)
	}
}

func TestApplyLevelUpsCascades(t *testing.T) {
	s := NewState()
	s.XP = 400
	ups := ApplyLevelUps(s)
	if len(ups) != 2 || s.Level != 3 {
		t.Fatalf("level=%d ups=%+v", s.Level, ups)
	}
	if s.XP != 150 || s.XPToNext != 225 {
		t.Fatalf("xp=%v next=%v", s.XP, s.XPToNext)
	}
	if s.Reputation != 10 {
		t.Fatalf("rep=%v want 10", s.Reputation)
	}
	if s.XP >= s.XPToNext {
		t.Fatalf("xp should end below threshold")
	}
}

func TestApplyLevelUpsBelowThreshold(t *testing.T) {
	s := NewState()
	s.XP = 99
	if ups := ApplyLevelUps(s); len(ups) != 0 || s.Level != 1 {
		t.Fatalf("unexpected level up: %+v", ups)
	}
}

func TestCheckAchievementsPaysOnce(t *testing.T) {
	s := NewState()
	s.TotalRevenue = 10
	s.Streak = 1
	s.Cash = 0

	first := CheckAchievements(s)
	if len(first) != 1 || first[0].ID != "first_profit" {
		t.Fatalf("unexpected unlocks: %+v", first)
	}
	if s.Cash != 10 {
		t.Fatalf("cash=%v want 10", s.Cash)
	}
	if again := CheckAchievements(s); len(again) != 0 || s.Cash != 10 {
		t.Fatalf("reward paid twice: %+v cash=%v", again, s.Cash)
	}
}

func TestCheckAchievementsIgnoresCatalogOrder(t *testing.T) {
	build := func() *State {
		s := NewState()
		s.TotalRevenue = 600
		s.Streak = 5
		s.Reputation = 49
		return s
	}

	forward := build()
	CheckAchievements(forward)

	saved := append([]Achievement(nil), Achievements...)
	t.Cleanup(func() { Achievements = saved })
	for i, j := 0, len(Achievements)-1; i < j; i, j = i+1, j-1 {
		Achievements[i], Achievements[j] = Achievements[j], Achievements[i]
	}
	backward := build()
	CheckAchievements(backward)

	if forward.Cash != backward.Cash {
		t.Fatalf("cash differs by order: %v vs %v", forward.Cash, backward.Cash)
	}
	if len(forward.Achievements) != len(backward.Achievements) {
		t.Fatalf("unlock sets differ: %v vs %v", forward.Achievements, backward.Achievements)
	}
	for id := range forward.Achievements {
		if !backward.Achievements[id] {
			t.Fatalf("%s missing in reversed run", id)
		}
	}
	// first_profit, streak_5 and total_revenue_500
	if forward.Cash != StarterCash+90 {
		t.Fatalf("cash=%v", forward.Cash)
	}
}
