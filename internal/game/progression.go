package game

import "math"

const (
	xpGrowth           = 1.5
	storagePerLevelUp  = 20
	repPerLevelReached = 2
)

type LevelUp struct {
	Level    int     `json:"level"`
	RepBonus float64 `json:"rep_bonus"`
}

// ApplyLevelUps converts XP into levels until the remaining XP no longer
// reaches the threshold. Overflow is carried into the next level.
func ApplyLevelUps(s *State) []LevelUp {
	var out []LevelUp
	for s.XPToNext > 0 && s.XP >= s.XPToNext {
		s.XP -= s.XPToNext
		s.Level++
		s.XPToNext = math.Floor(s.XPToNext * xpGrowth)
		s.MaxInventory += storagePerLevelUp
		bonus := float64(s.Level * repPerLevelReached)
		s.Reputation += bonus
		out = append(out, LevelUp{Level: s.Level, RepBonus: bonus})
	}
	return out
}

type UnlockedAchievement struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	CashReward float64 `json:"cash_reward"`
}

// CheckAchievements evaluates every achievement against one snapshot of s,
// so the outcome does not depend on catalog order. Rewards are paid once.
func CheckAchievements(s *State) []UnlockedAchievement {
	if s.Achievements == nil {
		s.Achievements = map[string]bool{}
	}
	snapshot := s.Clone()
	var out []UnlockedAchievement
	for _, a := range Achievements {
		if s.Achievements[a.ID] || !a.Condition(snapshot) {
			continue
		}
		out = append(out, UnlockedAchievement{ID: a.ID, Name: a.Name, CashReward: a.CashReward})
	}
	for _, u := range out {
		s.Achievements[u.ID] = true
		s.Cash += u.CashReward
	}
	return out
}
