package game

import (
	"errors"
	"testing"
)

func TestValidatePrice(t *testing.T) {
	valid := []float64{0.10, 1, 9999.99, 10000}
	for _, p := range valid {
		if err := ValidatePrice(p); err != nil {
			t.Fatalf("expected price %v to be valid: %v", p, err)
		}
	}

	invalid := []float64{0, 0.09, -1, 10000.01}
	for _, p := range invalid {
		if err := ValidatePrice(p); !errors.Is(err, ErrInvalidPrice) {
			t.Fatalf("expected price %v to fail, got %v", p, err)
		}
	}
}

func TestValidateBusinessName(t *testing.T) {
	got, err := ValidateBusinessName("  acme juice ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ACME JUICE" {
		t.Fatalf("got %q", got)
	}
	if _, err := ValidateBusinessName("   "); err == nil {
		t.Fatalf("expected blank name to fail")
	}
	if _, err := ValidateBusinessName("this name is definitely longer than thirty"); err == nil {
		t.Fatalf("expected long name to fail")
	}
}

func TestUpgradeCost(t *testing.T) {
	u, err := UpgradeByID("Marketing")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	tests := []struct {
		level int
		want  float64
	}{
		{level: 0, want: 50},
		{level: 1, want: 75},
		{level: 2, want: 112},
		{level: 3, want: 168},
	}
	for _, tc := range tests {
		if got := u.Cost(tc.level); got != tc.want {
			t.Fatalf("level=%d got=%v want=%v", tc.level, got, tc.want)
		}
	}
	if _, err := UpgradeByID("jetpack"); !errors.Is(err, ErrUnknownUpgrade) {
		t.Fatalf("expected unknown upgrade, got %v", err)
	}
}

func TestParseWeather(t *testing.T) {
	w, err := ParseWeather(" HeatWave ")
	if err != nil || w != Heatwave {
		t.Fatalf("got %q %v", w, err)
	}
	if _, err := ParseWeather("snow"); err == nil {
		t.Fatalf("expected snow to be rejected")
	}
	if Weather("fog").Multiplier() != 1 {
		t.Fatalf("unknown weather should be neutral")
	}
}
