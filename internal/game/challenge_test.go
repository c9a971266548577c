package game

import "testing"

func TestGenerateChallengesDeterministic(t *testing.T) {
	got := GenerateChallenges("2026-10-15", 3, NewSequence(0))
	if len(got) != 3 {
		t.Fatalf("got %d challenges", len(got))
	}
	want := []ChallengeKind{ChallengeMaxCustomers, ChallengeProfitStreak, ChallengeLowPriceProfit}
	for i, c := range got {
		if c.Kind != want[i] {
			t.Fatalf("challenge %d kind=%s want %s", i, c.Kind, want[i])
		}
		if c.Date != "2026-10-15" {
			t.Fatalf("date=%q", c.Date)
		}
	}
	if got[0].Target != 50 || got[0].Reward != 25 || got[0].Description != "Serve 50 customers in one day" {
		t.Fatalf("unexpected first challenge: %+v", got[0])
	}
	if got[2].Description != "Profit with price at or below $0.50" {
		t.Fatalf("description=%q", got[2].Description)
	}
}

func TestGenerateChallengesDistinct(t *testing.T) {
	rng := NewRand(5)
	for i := 0; i < 200; i++ {
		got := GenerateChallenges("2026-01-01", 10, rng)
		if len(got) != len(challengeTemplates) {
			t.Fatalf("expected cap at %d, got %d", len(challengeTemplates), len(got))
		}
		seen := map[ChallengeKind]bool{}
		for _, c := range got {
			if seen[c.Kind] {
				t.Fatalf("duplicate kind %s", c.Kind)
			}
			seen[c.Kind] = true
			if c.Reward < 0 {
				t.Fatalf("negative reward: %+v", c)
			}
		}
	}
}

func TestChallengeMet(t *testing.T) {
	s := NewState()
	s.Streak = 5
	profitable := DayReport{Revenue: 250, Served: 60, Profit: 30, Price: 0.4}

	tests := []struct {
		name string
		c    Challenge
		r    DayReport
		want bool
	}{
		{name: "revenue", c: Challenge{Kind: ChallengeMaxRevenue, Target: 200}, r: profitable, want: true},
		{name: "revenue short", c: Challenge{Kind: ChallengeMaxRevenue, Target: 260}, r: profitable, want: false},
		{name: "customers", c: Challenge{Kind: ChallengeMaxCustomers, Target: 60.7}, r: profitable, want: true},
		{name: "streak", c: Challenge{Kind: ChallengeProfitStreak, Target: 5.9}, r: profitable, want: true},
		{name: "low price", c: Challenge{Kind: ChallengeLowPriceProfit, Target: 0.5}, r: profitable, want: true},
		{name: "low price loss", c: Challenge{Kind: ChallengeLowPriceProfit, Target: 0.5}, r: DayReport{Price: 0.4, Profit: -1}, want: false},
		{name: "no catastrophe", c: Challenge{Kind: ChallengeSurviveCatastrophe}, r: profitable, want: false},
		{name: "survived", c: Challenge{Kind: ChallengeSurviveCatastrophe}, r: DayReport{Profit: 1, Catastrophe: &CatastropheResult{Name: "Theft"}}, want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.c.Met(tc.r, s); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestChallengeScore(t *testing.T) {
	r := DayReport{Revenue: 42, Served: 17, Price: 0.4, Profit: 3}
	s := &State{Streak: 4}
	cases := map[ChallengeKind]float64{
		ChallengeMaxRevenue:         42,
		ChallengeMaxCustomers:       17,
		ChallengeProfitStreak:       4,
		ChallengeLowPriceProfit:     0.4,
		ChallengeSurviveCatastrophe: 3,
	}
	for kind, want := range cases {
		if got := (Challenge{Kind: kind}).Score(r, s); got != want {
			t.Fatalf("%s: score = %v, want %v", kind, got, want)
		}
	}
}
