package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the shared-economy balance knobs.
type Tuning struct {
	BaseCustomerPool   float64 `yaml:"base_customer_pool"`
	MaxPlayers         int     `yaml:"max_players"`
	EconomyMin         float64 `yaml:"economy_min"`
	EconomyMax         float64 `yaml:"economy_max"`
	RecentResultsLimit int     `yaml:"recent_results_limit"`
	ChallengesPerDay   int     `yaml:"challenges_per_day"`
	ChatMaxRunes       int     `yaml:"chat_max_runes"`
	JoinCodeAttempts   int     `yaml:"join_code_attempts"`
}

func DefaultTuning() Tuning {
	return Tuning{
		BaseCustomerPool:   100,
		MaxPlayers:         30,
		EconomyMin:         0.7,
		EconomyMax:         1.3,
		RecentResultsLimit: 50,
		ChallengesPerDay:   3,
		ChatMaxRunes:       200,
		JoinCodeAttempts:   5,
	}
}

// LoadTuning reads a YAML tuning file over the defaults. An empty path or a
// missing file yields the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.BaseCustomerPool <= 0:
		return fmt.Errorf("base_customer_pool must be positive")
	case t.MaxPlayers < 1:
		return fmt.Errorf("max_players must be at least 1")
	case t.EconomyMin <= 0 || t.EconomyMax < t.EconomyMin:
		return fmt.Errorf("economy bounds must satisfy 0 < min <= max")
	case t.RecentResultsLimit < 0:
		return fmt.Errorf("recent_results_limit must not be negative")
	case t.ChallengesPerDay < 1:
		return fmt.Errorf("challenges_per_day must be at least 1")
	case t.ChatMaxRunes < 1:
		return fmt.Errorf("chat_max_runes must be at least 1")
	case t.JoinCodeAttempts < 1:
		return fmt.Errorf("join_code_attempts must be at least 1")
	}
	return nil
}
