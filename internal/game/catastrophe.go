package game

import "math"

// HazardProbability is the chance a catastrophe fires given the days since
// the last one.
func HazardProbability(daysSince int) float64 {
	switch {
	case daysSince >= 15:
		return 1
	case daysSince >= 13:
		return 0.75
	case daysSince >= 10:
		return 0.5
	default:
		return 0.03
	}
}

// ShouldTriggerCatastrophe draws once unless the hazard is certain.
func ShouldTriggerCatastrophe(s *State, r Rand) bool {
	p := HazardProbability(s.Day - s.LastCatastropheDay)
	if p >= 1 {
		return true
	}
	return r.Float64() < p
}

type CatastropheResult struct {
	Name          string  `json:"name"`
	Message       string  `json:"message"`
	CashLoss      float64 `json:"cash_loss"`
	InventoryLoss int     `json:"inventory_loss"`
	RepLoss       float64 `json:"rep_loss"`
}

// TriggerCatastrophe picks a catastrophe uniformly, applies it to s and
// resets the hazard clock.
func TriggerCatastrophe(s *State, r Rand) CatastropheResult {
	c := Catastrophes[pick(r, len(Catastrophes))]
	return ApplyCatastrophe(s, c, r)
}

func ApplyCatastrophe(s *State, c Catastrophe, r Rand) CatastropheResult {
	out := CatastropheResult{Name: c.Name, Message: c.Message, RepLoss: c.RepLoss}
	cap45 := math.Max(0, s.Cash*0.45)
	if c.MaxCostPercent > 0 {
		maxLoss := math.Min(s.Cash*c.MaxCostPercent, cap45)
		loss := math.Max(c.MinCost, math.Floor(r.Float64()*maxLoss))
		out.CashLoss = math.Min(loss, cap45)
	}
	if c.InventoryPercent > 0 {
		out.InventoryLoss = int(math.Floor(float64(s.Inventory) * c.InventoryPercent))
	}
	s.Cash = math.Max(0, s.Cash-out.CashLoss)
	s.Inventory -= out.InventoryLoss
	if s.Inventory < 0 {
		s.Inventory = 0
	}
	s.Reputation = math.Max(0, s.Reputation-c.RepLoss)
	s.LastCatastropheDay = s.Day
	return out
}
