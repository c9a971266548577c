package city

import (
	"errors"
	"time"

	"empire/internal/game"
)

var (
	ErrCityNotFound     = errors.New("city not found")
	ErrCityFull         = errors.New("city is full")
	ErrNotMember        = errors.New("player is not an active member of this city")
	ErrJoinCodeTaken    = errors.New("join code already in use")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrInvalidName      = errors.New("display name must be 1-30 characters")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrInvalidBoard     = errors.New("unknown leaderboard")
	ErrChallengeUnknown = errors.New("challenge not found")
	ErrAlreadyCompleted = errors.New("challenge already completed")
	ErrChallengeNotMet  = errors.New("challenge target not reached")
)

// State is the shared economy of one city.
type State struct {
	ID              string       `json:"id" db:"id"`
	Name            string       `json:"name" db:"name"`
	Weather         game.Weather `json:"weather" db:"weather"`
	EconomicHealth  float64      `json:"economic_health" db:"economic_health"`
	AvgPrice        float64      `json:"avg_price" db:"avg_price"`
	TotalBusinesses int          `json:"total_businesses" db:"total_businesses"`
	CustomerPool    float64      `json:"customer_pool" db:"customer_pool"`
	JoinCode        string       `json:"join_code" db:"join_code"`
	MaxPlayers      int          `json:"max_players" db:"max_players"`
	Private         bool         `json:"private" db:"private"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

func (s State) Full() bool {
	return s.MaxPlayers > 0 && s.TotalBusinesses >= s.MaxPlayers
}

type Player struct {
	ID               string    `json:"id"`
	AuthID           string    `json:"auth_id"`
	DisplayName      string    `json:"display_name"`
	TotalDaysPlayed  int       `json:"total_days_played"`
	BestRevenue      float64   `json:"best_revenue"`
	BestCash         float64   `json:"best_cash"`
	BestDayCustomers int       `json:"best_day_customers"`
	LastActive       time.Time `json:"last_active"`
	CreatedAt        time.Time `json:"created_at"`
}

// DayResult is one resolved day as reported by a player.
type DayResult struct {
	ID          string       `json:"id"`
	PlayerID    string       `json:"player_id"`
	CityID      string       `json:"city_id,omitempty"`
	Day         int          `json:"day"`
	Price       float64      `json:"price"`
	Customers   int          `json:"customers"`
	Revenue     float64      `json:"revenue"`
	Profit      float64      `json:"profit"`
	Weather     game.Weather `json:"weather"`
	Catastrophe string       `json:"catastrophe,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// PlayerStats are the running totals refreshed with each day result.
type PlayerStats struct {
	DaysPlayed     int
	TotalRevenue   float64
	TotalCustomers int
	Cash           float64
	BestDay        int
}

type BoardType string

const (
	BoardDaily   BoardType = "daily"
	BoardAllTime BoardType = "alltime"
	BoardCity    BoardType = "city"
)

const (
	MetricRevenue   = "revenue"
	MetricCustomers = "customers"
)

type LeaderboardEntry struct {
	PlayerID    string
	PlayerName  string
	Type        BoardType
	Metric      string
	Score       float64
	PeriodStart string
	CityID      string
}

type LeaderboardQuery struct {
	Type   BoardType
	Metric string
	CityID string
	Date   string
	Limit  int
}

type LeaderboardRow struct {
	Rank       int     `json:"rank"`
	PlayerID   string  `json:"player_id"`
	PlayerName string  `json:"player_name"`
	Score      float64 `json:"score"`
}

type ChatMessage struct {
	ID         string    `json:"id"`
	CityID     string    `json:"city_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// SavedGame is the server copy of a player's snapshot.
type SavedGame struct {
	PlayerID     string    `json:"player_id"`
	CityID       string    `json:"city_id,omitempty"`
	State        []byte    `json:"-"`
	Day          int       `json:"day"`
	Cash         float64   `json:"cash"`
	TotalRevenue float64   `json:"total_revenue"`
	Reputation   float64   `json:"reputation"`
	Level        int       `json:"level"`
	UpdatedAt    time.Time `json:"updated_at"`
}
