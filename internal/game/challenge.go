package game

import (
	"fmt"
	"math"
	"strings"
)

type ChallengeKind string

const (
	ChallengeMaxRevenue         ChallengeKind = "max_revenue"
	ChallengeMaxCustomers       ChallengeKind = "max_customers"
	ChallengeProfitStreak       ChallengeKind = "profit_streak"
	ChallengeLowPriceProfit     ChallengeKind = "low_price_profit"
	ChallengeSurviveCatastrophe ChallengeKind = "survive_catastrophe"
)

type challengeTemplate struct {
	kind     ChallengeKind
	title    string
	desc     string
	baseline float64
}

var challengeTemplates = []challengeTemplate{
	{ChallengeMaxRevenue, "Big Earner", "Earn ${target} revenue in a single day", 200},
	{ChallengeMaxCustomers, "Crowd Pleaser", "Serve {target} customers in one day", 50},
	{ChallengeProfitStreak, "Consistency King", "Maintain a {target}-day profit streak", 5},
	{ChallengeLowPriceProfit, "Bargain Master", "Profit with price at or below ${target}", 0.50},
	{ChallengeSurviveCatastrophe, "Storm Survivor", "End profitable on a day with a catastrophe", 0},
}

// Challenge is one of the daily goals shared by every player on a date.
type Challenge struct {
	ID          string        `json:"id"`
	Date        string        `json:"challenge_date"`
	Kind        ChallengeKind `json:"challenge_type"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Target      float64       `json:"target_value"`
	Reward      float64       `json:"reward_value"`
}

// GenerateChallenges draws n distinct templates for date with a Fisher-Yates
// shuffle and scales each target by up to +50%.
func GenerateChallenges(date string, n int, r Rand) []Challenge {
	order := make([]int, len(challengeTemplates))
	for i := range order {
		order[i] = i
	}
	for i := len(order) - 1; i > 0; i-- {
		j := pick(r, i+1)
		order[i], order[j] = order[j], order[i]
	}
	if n > len(order) {
		n = len(order)
	}
	out := make([]Challenge, 0, n)
	for _, idx := range order[:n] {
		t := challengeTemplates[idx]
		target := t.baseline * (1 + r.Float64()*0.5)
		desc := strings.ReplaceAll(t.desc, "${target}", fmt.Sprintf("$%.2f", target))
		desc = strings.ReplaceAll(desc, "{target}", fmt.Sprintf("%d", int(math.Floor(target))))
		out = append(out, Challenge{
			Date:        date,
			Kind:        t.kind,
			Title:       t.title,
			Description: desc,
			Target:      target,
			Reward:      math.Floor(target * 0.5),
		})
	}
	return out
}

// Met reports whether the resolved day satisfies the challenge. s is the
// state after the day.
func (c Challenge) Met(r DayReport, s *State) bool {
	switch c.Kind {
	case ChallengeMaxRevenue:
		return r.Revenue >= c.Target
	case ChallengeMaxCustomers:
		return float64(r.Served) >= math.Floor(c.Target)
	case ChallengeProfitStreak:
		return float64(s.Streak) >= math.Floor(c.Target)
	case ChallengeLowPriceProfit:
		return r.Profitable() && r.Price <= c.Target
	case ChallengeSurviveCatastrophe:
		return r.Catastrophe != nil && r.Profitable()
	default:
		return false
	}
}

// Score is the value reported when completing the challenge: the measured
// quantity for value targets, the price for the bargain challenge.
func (c Challenge) Score(r DayReport, s *State) float64 {
	switch c.Kind {
	case ChallengeMaxRevenue:
		return r.Revenue
	case ChallengeMaxCustomers:
		return float64(r.Served)
	case ChallengeProfitStreak:
		return float64(s.Streak)
	case ChallengeLowPriceProfit:
		return r.Price
	default:
		return r.Profit
	}
}
