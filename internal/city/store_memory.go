package city

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"empire/internal/game"
)

// MemoryStore keeps everything in process. It backs tests and single-node
// development servers.
type MemoryStore struct {
	mu          sync.Mutex
	now         func() time.Time
	players     map[string]Player
	playerAuth  map[string]string
	cities      map[string]State
	members     map[memberKey]bool
	results     []DayResult
	board       map[boardKey]LeaderboardEntry
	chat        []ChatMessage
	challenges  []game.Challenge
	completions map[memberKey]float64
	saves       map[string]SavedGame
}

type memberKey struct{ a, b string }

type boardKey struct {
	playerID string
	typ      BoardType
	metric   string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		players:     map[string]Player{},
		playerAuth:  map[string]string{},
		cities:      map[string]State{},
		members:     map[memberKey]bool{},
		board:       map[boardKey]LeaderboardEntry{},
		completions: map[memberKey]float64{},
		saves:       map[string]SavedGame{},
	}
}

func (m *MemoryStore) EnsurePlayer(_ context.Context, authID, displayName string) (Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.playerAuth[authID]; ok {
		return m.players[id], nil
	}
	now := m.now().UTC()
	p := Player{ID: uuid.NewString(), AuthID: authID, DisplayName: displayName, CreatedAt: now, LastActive: now}
	m.players[p.ID] = p
	m.playerAuth[authID] = p.ID
	return p, nil
}

func (m *MemoryStore) PlayerByID(_ context.Context, id string) (Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return Player{}, ErrPlayerNotFound
	}
	return p, nil
}

func (m *MemoryStore) RenamePlayer(_ context.Context, id, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.DisplayName = displayName
	m.players[id] = p
	for k, e := range m.board {
		if k.playerID == id {
			e.PlayerName = displayName
			m.board[k] = e
		}
	}
	return nil
}

func (m *MemoryStore) TouchPlayer(_ context.Context, id string, stats PlayerStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.LastActive = m.now().UTC()
	p.TotalDaysPlayed = stats.DaysPlayed
	p.BestRevenue = max(p.BestRevenue, stats.TotalRevenue, 0)
	p.BestCash = max(p.BestCash, stats.Cash, 0)
	p.BestDayCustomers = max(p.BestDayCustomers, stats.BestDay, 0)
	m.players[id] = p
	return nil
}

func (m *MemoryStore) GetCity(_ context.Context, id string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.cities[id]
	if !ok {
		return State{}, ErrCityNotFound
	}
	return st, nil
}

func (m *MemoryStore) CityByCode(_ context.Context, code string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, st := range m.cities {
		if st.JoinCode == code {
			return st, nil
		}
	}
	return State{}, ErrCityNotFound
}

func (m *MemoryStore) FindOpenCity(_ context.Context, maxPlayers int) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best State
	found := false
	for _, st := range m.cities {
		if st.Private || st.TotalBusinesses >= maxPlayers || st.TotalBusinesses < 0 {
			continue
		}
		if !found || st.TotalBusinesses > best.TotalBusinesses ||
			(st.TotalBusinesses == best.TotalBusinesses && st.ID < best.ID) {
			best = st
			found = true
		}
	}
	if !found {
		return State{}, ErrCityNotFound
	}
	return best, nil
}

func (m *MemoryStore) CreateCity(_ context.Context, st State) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.cities {
		if other.JoinCode == st.JoinCode {
			return State{}, ErrJoinCodeTaken
		}
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	st.UpdatedAt = m.now().UTC()
	m.cities[st.ID] = st
	return st, nil
}

func (m *MemoryStore) UpdateConditions(_ context.Context, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.cities[st.ID]
	if !ok {
		return ErrCityNotFound
	}
	cur.Weather = st.Weather
	cur.EconomicHealth = st.EconomicHealth
	cur.AvgPrice = st.AvgPrice
	cur.UpdatedAt = m.now().UTC()
	m.cities[st.ID] = cur
	return nil
}

func (m *MemoryStore) AddBusinesses(_ context.Context, cityID string, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.cities[cityID]
	if !ok {
		return 0, ErrCityNotFound
	}
	st.TotalBusinesses = max(0, st.TotalBusinesses+delta)
	m.cities[cityID] = st
	return st.TotalBusinesses, nil
}

func (m *MemoryStore) SetBusinesses(_ context.Context, cityID string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.cities[cityID]
	if !ok {
		return ErrCityNotFound
	}
	st.TotalBusinesses = max(0, n)
	m.cities[cityID] = st
	return nil
}

func (m *MemoryStore) ListCities(_ context.Context) ([]State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]State, 0, len(m.cities))
	for _, st := range m.cities {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SetMembership(_ context.Context, cityID, playerID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[memberKey{cityID, playerID}] = active
	return nil
}

func (m *MemoryStore) IsActiveMember(_ context.Context, cityID, playerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[memberKey{cityID, playerID}], nil
}

func (m *MemoryStore) ActiveCity(_ context.Context, playerID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, active := range m.members {
		if active && k.b == playerID {
			if st, ok := m.cities[k.a]; ok {
				return st, nil
			}
		}
	}
	return State{}, ErrCityNotFound
}

func (m *MemoryStore) CountActiveMembers(_ context.Context, cityID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, active := range m.members {
		if active && k.a == cityID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) InsertDayResult(_ context.Context, r DayResult) (DayResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	r.CreatedAt = m.now().UTC()
	m.results = append(m.results, r)
	return r, nil
}

func (m *MemoryStore) RecentResults(_ context.Context, cityID string, limit int) ([]DayResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DayResult
	for i := len(m.results) - 1; i >= 0 && len(out) < limit; i-- {
		if m.results[i].CityID == cityID {
			out = append(out, m.results[i])
		}
	}
	return out, nil
}

func (m *MemoryStore) UpsertLeaderboard(_ context.Context, e LeaderboardEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.board[boardKey{e.PlayerID, e.Type, e.Metric}] = e
	return nil
}

func (m *MemoryStore) CountScoresAbove(_ context.Context, typ BoardType, metric string, score float64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.board {
		if k.typ == typ && k.metric == metric && e.Score > score {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Leaderboard(_ context.Context, q LeaderboardQuery) ([]LeaderboardRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	typ := q.Type
	if typ == BoardCity {
		typ = BoardAllTime
	}
	var entries []LeaderboardEntry
	for k, e := range m.board {
		if k.typ != typ || k.metric != q.Metric {
			continue
		}
		if q.Type == BoardDaily && e.PeriodStart != q.Date {
			continue
		}
		if q.Type == BoardCity && e.CityID != q.CityID {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	out := make([]LeaderboardRow, 0, len(entries))
	for i, e := range entries {
		out = append(out, LeaderboardRow{Rank: i + 1, PlayerID: e.PlayerID, PlayerName: e.PlayerName, Score: e.Score})
	}
	return out, nil
}

func (m *MemoryStore) InsertChat(_ context.Context, msg ChatMessage) (ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = uuid.NewString()
	msg.CreatedAt = m.now().UTC()
	m.chat = append(m.chat, msg)
	return msg, nil
}

func (m *MemoryStore) RecentChat(_ context.Context, cityID string, limit int) ([]ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ChatMessage
	for i := len(m.chat) - 1; i >= 0 && len(out) < limit; i-- {
		if m.chat[i].CityID == cityID {
			out = append(out, m.chat[i])
		}
	}
	return out, nil
}

func (m *MemoryStore) ChallengesFor(_ context.Context, date string) ([]game.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []game.Challenge
	for _, c := range m.challenges {
		if c.Date == date {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertChallenges(_ context.Context, cs []game.Challenge) ([]game.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]game.Challenge, 0, len(cs))
	for _, c := range cs {
		c.ID = uuid.NewString()
		m.challenges = append(m.challenges, c)
		out = append(out, c)
	}
	return out, nil
}

func (m *MemoryStore) ChallengeByID(_ context.Context, id string) (game.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.challenges {
		if c.ID == id {
			return c, nil
		}
	}
	return game.Challenge{}, ErrChallengeUnknown
}

func (m *MemoryStore) CompleteChallenge(_ context.Context, challengeID, playerID string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memberKey{challengeID, playerID}
	if _, ok := m.completions[k]; ok {
		return ErrAlreadyCompleted
	}
	m.completions[k] = score
	return nil
}

func (m *MemoryStore) SaveGame(_ context.Context, g SavedGame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.UpdatedAt = m.now().UTC()
	g.State = append([]byte(nil), g.State...)
	m.saves[g.PlayerID] = g
	return nil
}

func (m *MemoryStore) LoadGame(_ context.Context, playerID string) (SavedGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.saves[playerID]
	if !ok {
		return SavedGame{}, ErrPlayerNotFound
	}
	return g, nil
}
