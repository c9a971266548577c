package city

import (
	"context"

	"empire/internal/game"
)

// Store is the persistence the city service needs. City updates are plain
// read-modify-write; no method takes a lock across calls.
type Store interface {
	EnsurePlayer(ctx context.Context, authID, displayName string) (Player, error)
	PlayerByID(ctx context.Context, id string) (Player, error)
	RenamePlayer(ctx context.Context, id, displayName string) error
	TouchPlayer(ctx context.Context, id string, stats PlayerStats) error

	GetCity(ctx context.Context, id string) (State, error)
	CityByCode(ctx context.Context, code string) (State, error)
	// FindOpenCity returns the fullest public city with room left.
	FindOpenCity(ctx context.Context, maxPlayers int) (State, error)
	CreateCity(ctx context.Context, st State) (State, error)
	UpdateConditions(ctx context.Context, st State) error
	AddBusinesses(ctx context.Context, cityID string, delta int) (int, error)
	SetBusinesses(ctx context.Context, cityID string, n int) error
	ListCities(ctx context.Context) ([]State, error)

	SetMembership(ctx context.Context, cityID, playerID string, active bool) error
	IsActiveMember(ctx context.Context, cityID, playerID string) (bool, error)
	ActiveCity(ctx context.Context, playerID string) (State, error)
	CountActiveMembers(ctx context.Context, cityID string) (int, error)

	InsertDayResult(ctx context.Context, r DayResult) (DayResult, error)
	RecentResults(ctx context.Context, cityID string, limit int) ([]DayResult, error)

	UpsertLeaderboard(ctx context.Context, e LeaderboardEntry) error
	CountScoresAbove(ctx context.Context, typ BoardType, metric string, score float64) (int, error)
	Leaderboard(ctx context.Context, q LeaderboardQuery) ([]LeaderboardRow, error)

	InsertChat(ctx context.Context, m ChatMessage) (ChatMessage, error)
	RecentChat(ctx context.Context, cityID string, limit int) ([]ChatMessage, error)

	ChallengesFor(ctx context.Context, date string) ([]game.Challenge, error)
	InsertChallenges(ctx context.Context, cs []game.Challenge) ([]game.Challenge, error)
	ChallengeByID(ctx context.Context, id string) (game.Challenge, error)
	CompleteChallenge(ctx context.Context, challengeID, playerID string, score float64) error

	SaveGame(ctx context.Context, g SavedGame) error
	LoadGame(ctx context.Context, playerID string) (SavedGame, error)
}
