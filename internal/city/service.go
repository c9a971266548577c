package city

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"empire/internal/config"
	"empire/internal/feed"
	"empire/internal/game"
)

var cityNames = []string{
	"Riverside Market",
	"Downtown District",
	"Sunset Boulevard",
	"Harbor Square",
	"Green Valley",
	"Central Plaza",
	"Maple Street",
	"Oceanview",
	"Mountain Ridge",
	"Lakeside",
}

const (
	maxDisplayNameLen = 30
	defaultChatLimit  = 50
	defaultBoardLimit = 50
	joinCodeLen       = 6
)

type Publisher interface {
	Publish(ev feed.Event)
}

type Service struct {
	store  Store
	tuning config.Tuning
	events Publisher
	log    *slog.Logger
	rand   game.Rand
	now    func() time.Time
}

func NewService(store Store, tuning config.Tuning, events Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		tuning: tuning,
		events: events,
		log:    logger,
		rand:   game.NewRand(0),
		now:    time.Now,
	}
}

func (s *Service) SetRand(r game.Rand) {
	s.rand = r
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Tuning() config.Tuning {
	return s.tuning
}

func (s *Service) EnsurePlayer(ctx context.Context, authID, displayName string) (Player, error) {
	name, err := cleanDisplayName(displayName)
	if err != nil {
		name = "Player_" + strconv.Itoa(int(s.rand.Float64()*9999))
	}
	return s.store.EnsurePlayer(ctx, authID, name)
}

func (s *Service) Player(ctx context.Context, playerID string) (Player, error) {
	return s.store.PlayerByID(ctx, playerID)
}

func (s *Service) RenamePlayer(ctx context.Context, playerID, displayName string) (string, error) {
	name, err := cleanDisplayName(displayName)
	if err != nil {
		return "", err
	}
	return name, s.store.RenamePlayer(ctx, playerID, name)
}

func (s *Service) MyCity(ctx context.Context, playerID string) (State, error) {
	return s.store.ActiveCity(ctx, playerID)
}

func (s *Service) City(ctx context.Context, cityID string) (State, error) {
	return s.store.GetCity(ctx, cityID)
}

// JoinCity places the player in the fullest public city that still has room,
// founding a new one when none does.
func (s *Service) JoinCity(ctx context.Context, playerID string) (State, error) {
	if cur, err := s.store.ActiveCity(ctx, playerID); err == nil {
		return cur, nil
	} else if !errors.Is(err, ErrCityNotFound) {
		return State{}, err
	}
	st, err := s.store.FindOpenCity(ctx, s.tuning.MaxPlayers)
	if errors.Is(err, ErrCityNotFound) {
		name := cityNames[s.pick(len(cityNames))] + " #" + strconv.Itoa(s.pick(999))
		st, err = s.createCity(ctx, name, false)
	}
	if err != nil {
		return State{}, err
	}
	return s.enter(ctx, st, playerID)
}

func (s *Service) CreatePrivateCity(ctx context.Context, playerID, ownerName string) (State, error) {
	owner := strings.TrimSpace(ownerName)
	if owner == "" {
		owner = "Player"
	}
	if err := s.leaveActive(ctx, playerID); err != nil {
		return State{}, err
	}
	st, err := s.createCity(ctx, owner+"'s City", true)
	if err != nil {
		return State{}, err
	}
	return s.enter(ctx, st, playerID)
}

func (s *Service) JoinByCode(ctx context.Context, playerID, code string) (State, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return State{}, ErrCityNotFound
	}
	st, err := s.store.CityByCode(ctx, code)
	if err != nil {
		return State{}, err
	}
	member, err := s.store.IsActiveMember(ctx, st.ID, playerID)
	if err != nil {
		return State{}, err
	}
	if member {
		return st, nil
	}
	if st.Full() {
		return State{}, ErrCityFull
	}
	if err := s.leaveActive(ctx, playerID); err != nil {
		return State{}, err
	}
	return s.enter(ctx, st, playerID)
}

func (s *Service) LeaveCity(ctx context.Context, playerID, cityID string) error {
	member, err := s.store.IsActiveMember(ctx, cityID, playerID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotMember
	}
	if err := s.store.SetMembership(ctx, cityID, playerID, false); err != nil {
		return err
	}
	n, err := s.store.AddBusinesses(ctx, cityID, -1)
	if err != nil {
		return err
	}
	s.log.Info("player left city", "player_id", playerID, "city_id", cityID, "total_businesses", n)
	return nil
}

func (s *Service) leaveActive(ctx context.Context, playerID string) error {
	cur, err := s.store.ActiveCity(ctx, playerID)
	if errors.Is(err, ErrCityNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.LeaveCity(ctx, playerID, cur.ID)
}

func (s *Service) enter(ctx context.Context, st State, playerID string) (State, error) {
	if err := s.store.SetMembership(ctx, st.ID, playerID, true); err != nil {
		return State{}, err
	}
	n, err := s.store.AddBusinesses(ctx, st.ID, 1)
	if err != nil {
		return State{}, err
	}
	st.TotalBusinesses = n
	s.log.Info("player joined city", "player_id", playerID, "city_id", st.ID, "total_businesses", n)
	return st, nil
}

func (s *Service) createCity(ctx context.Context, name string, private bool) (State, error) {
	for attempt := 0; attempt < s.tuning.JoinCodeAttempts; attempt++ {
		st, err := s.store.CreateCity(ctx, State{
			Name:           name,
			Weather:        game.RandomWeather(s.rand),
			EconomicHealth: 1,
			AvgPrice:       1,
			CustomerPool:   s.tuning.BaseCustomerPool,
			JoinCode:       s.joinCode(),
			MaxPlayers:     s.tuning.MaxPlayers,
			Private:        private,
		})
		if errors.Is(err, ErrJoinCodeTaken) {
			continue
		}
		if err != nil {
			return State{}, err
		}
		return st, nil
	}
	return State{}, fmt.Errorf("create city: %w", ErrJoinCodeTaken)
}

func (s *Service) joinCode() string {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	buf := make([]byte, joinCodeLen)
	for i := range buf {
		buf[i] = alphabet[s.pick(len(alphabet))]
	}
	return string(buf)
}

func (s *Service) pick(n int) int {
	i := int(s.rand.Float64() * float64(n))
	return min(max(i, 0), n-1)
}

// SubmitDay allocates the member's customers for one day and moves the city
// to its next conditions. Concurrent submissions may overwrite each other's
// condition updates.
func (s *Service) SubmitDay(ctx context.Context, cityID string, sub game.CitySubmission) (game.CityAllocation, error) {
	member, err := s.store.IsActiveMember(ctx, cityID, sub.PlayerID)
	if err != nil {
		return game.CityAllocation{}, err
	}
	if !member {
		return game.CityAllocation{}, ErrNotMember
	}
	st, err := s.store.GetCity(ctx, cityID)
	if err != nil {
		return game.CityAllocation{}, err
	}
	recent, err := s.store.RecentResults(ctx, cityID, s.tuning.RecentResultsLimit)
	if err != nil {
		return game.CityAllocation{}, err
	}
	alloc, next := Allocate(st, sub, competitorPrices(recent, sub.PlayerID), s.tuning, s.rand)
	if err := s.store.UpdateConditions(ctx, next); err != nil {
		return game.CityAllocation{}, err
	}
	s.publish(feed.KindCityUpdate, cityID, next)
	return alloc, nil
}

type DayResultInput struct {
	PlayerID       string       `json:"-"`
	CityID         string       `json:"city_id,omitempty"`
	Day            int          `json:"day"`
	Price          float64      `json:"price"`
	Customers      int          `json:"customers"`
	Revenue        float64      `json:"revenue"`
	Profit         float64      `json:"profit"`
	Weather        game.Weather `json:"weather"`
	Catastrophe    string       `json:"catastrophe,omitempty"`
	TotalRevenue   float64      `json:"total_revenue"`
	TotalCustomers int          `json:"total_customers"`
	Cash           float64      `json:"cash"`
	BestDay        int          `json:"best_day"`
}

// SubmitDayResult records the day and refreshes the player's leaderboard
// entries. The returned rank is one plus the number of all-time revenue
// scores strictly above the player's total.
func (s *Service) SubmitDayResult(ctx context.Context, in DayResultInput) (int, error) {
	p, err := s.store.PlayerByID(ctx, in.PlayerID)
	if err != nil {
		return 0, err
	}
	if in.CityID != "" {
		member, err := s.store.IsActiveMember(ctx, in.CityID, in.PlayerID)
		if err != nil {
			return 0, err
		}
		if !member {
			in.CityID = ""
		}
	}
	res, err := s.store.InsertDayResult(ctx, DayResult{
		PlayerID:    in.PlayerID,
		CityID:      in.CityID,
		Day:         in.Day,
		Price:       in.Price,
		Customers:   in.Customers,
		Revenue:     in.Revenue,
		Profit:      in.Profit,
		Weather:     in.Weather,
		Catastrophe: in.Catastrophe,
	})
	if err != nil {
		return 0, err
	}
	if err := s.store.TouchPlayer(ctx, in.PlayerID, PlayerStats{
		DaysPlayed:     in.Day,
		TotalRevenue:   in.TotalRevenue,
		TotalCustomers: in.TotalCustomers,
		Cash:           in.Cash,
		BestDay:        in.BestDay,
	}); err != nil {
		return 0, err
	}

	today := s.today()
	entries := []LeaderboardEntry{
		{Type: BoardDaily, Metric: MetricRevenue, Score: in.Revenue, PeriodStart: today},
		{Type: BoardAllTime, Metric: MetricRevenue, Score: in.TotalRevenue},
		{Type: BoardAllTime, Metric: MetricCustomers, Score: float64(in.TotalCustomers)},
	}
	for _, e := range entries {
		e.PlayerID = in.PlayerID
		e.PlayerName = p.DisplayName
		e.CityID = in.CityID
		if err := s.store.UpsertLeaderboard(ctx, e); err != nil {
			return 0, err
		}
	}
	above, err := s.store.CountScoresAbove(ctx, BoardAllTime, MetricRevenue, in.TotalRevenue)
	if err != nil {
		return 0, err
	}
	if in.CityID != "" {
		s.publish(feed.KindDayComplete, in.CityID, struct {
			DayResult
			PlayerName string `json:"player_name"`
		}{res, p.DisplayName})
	}
	return above + 1, nil
}

func (s *Service) Leaderboard(ctx context.Context, q LeaderboardQuery) ([]LeaderboardRow, error) {
	switch q.Type {
	case BoardDaily, BoardAllTime:
	case BoardCity:
		if q.CityID == "" {
			return nil, ErrInvalidBoard
		}
	default:
		return nil, ErrInvalidBoard
	}
	if q.Metric == "" {
		q.Metric = MetricRevenue
	}
	if q.Metric != MetricRevenue && q.Metric != MetricCustomers {
		return nil, ErrInvalidBoard
	}
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = defaultBoardLimit
	}
	if q.Type == BoardDaily && q.Date == "" {
		q.Date = s.today()
	}
	return s.store.Leaderboard(ctx, q)
}

// SendChat posts a message to the city, truncated to the configured length.
func (s *Service) SendChat(ctx context.Context, cityID, playerID, text string) (ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, ErrEmptyMessage
	}
	text = truncateRunes(text, s.tuning.ChatMaxRunes)
	member, err := s.store.IsActiveMember(ctx, cityID, playerID)
	if err != nil {
		return ChatMessage{}, err
	}
	if !member {
		return ChatMessage{}, ErrNotMember
	}
	p, err := s.store.PlayerByID(ctx, playerID)
	if err != nil {
		return ChatMessage{}, err
	}
	msg, err := s.store.InsertChat(ctx, ChatMessage{
		CityID:     cityID,
		PlayerID:   playerID,
		PlayerName: p.DisplayName,
		Message:    text,
	})
	if err != nil {
		return ChatMessage{}, err
	}
	s.publish(feed.KindChat, cityID, msg)
	return msg, nil
}

func (s *Service) Chat(ctx context.Context, cityID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultChatLimit
	}
	msgs, err := s.store.RecentChat(ctx, cityID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *Service) DailyChallenges(ctx context.Context) ([]game.Challenge, error) {
	return s.EnsureChallenges(ctx, s.today())
}

func (s *Service) EnsureChallenges(ctx context.Context, date string) ([]game.Challenge, error) {
	existing, err := s.store.ChallengesFor(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	return s.store.InsertChallenges(ctx, game.GenerateChallenges(date, s.tuning.ChallengesPerDay, s.rand))
}

// CompleteChallenge records that the player reached a challenge's target.
// Score is the measured value for the value kinds and the price for the
// bargain kind, which must not exceed its target.
func (s *Service) CompleteChallenge(ctx context.Context, playerID, challengeID string, score float64) error {
	c, err := s.store.ChallengeByID(ctx, challengeID)
	if err != nil {
		return err
	}
	switch c.Kind {
	case game.ChallengeMaxRevenue:
		if score < c.Target {
			return ErrChallengeNotMet
		}
	case game.ChallengeMaxCustomers, game.ChallengeProfitStreak:
		if score < math.Floor(c.Target) {
			return ErrChallengeNotMet
		}
	case game.ChallengeLowPriceProfit:
		if score > c.Target || score < game.MinPrice {
			return ErrChallengeNotMet
		}
	}
	return s.store.CompleteChallenge(ctx, challengeID, playerID, score)
}

func (s *Service) SaveGame(ctx context.Context, playerID string, state *game.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	cityID := ""
	if st, err := s.store.ActiveCity(ctx, playerID); err == nil {
		cityID = st.ID
	}
	return s.store.SaveGame(ctx, SavedGame{
		PlayerID:     playerID,
		CityID:       cityID,
		State:        raw,
		Day:          state.Day,
		Cash:         state.Cash,
		TotalRevenue: state.TotalRevenue,
		Reputation:   state.Reputation,
		Level:        state.Level,
	})
}

func (s *Service) LoadGame(ctx context.Context, playerID string) (*game.State, error) {
	g, err := s.store.LoadGame(ctx, playerID)
	if err != nil {
		return nil, err
	}
	var st game.State
	if err := json.Unmarshal(g.State, &st); err != nil {
		return nil, fmt.Errorf("decode saved game: %w", err)
	}
	st.Normalize()
	return &st, nil
}

// ReconcileCities rewrites each city's business count from its active
// memberships and returns how many cities were corrected.
func (s *Service) ReconcileCities(ctx context.Context) (int, error) {
	cities, err := s.store.ListCities(ctx)
	if err != nil {
		return 0, err
	}
	fixed := 0
	for _, st := range cities {
		n, err := s.store.CountActiveMembers(ctx, st.ID)
		if err != nil {
			return fixed, err
		}
		if n == st.TotalBusinesses {
			continue
		}
		if err := s.store.SetBusinesses(ctx, st.ID, n); err != nil {
			return fixed, err
		}
		s.log.Info("reconciled city business count", "city_id", st.ID, "was", st.TotalBusinesses, "now", n)
		fixed++
	}
	return fixed, nil
}

func (s *Service) publish(kind feed.Kind, cityID string, data any) {
	if s.events == nil {
		return
	}
	ev, err := feed.NewEvent(kind, cityID, data)
	if err != nil {
		s.log.Warn("encode feed event", "err", err, "type", kind)
		return
	}
	s.events.Publish(ev)
}

func (s *Service) today() string {
	return s.now().UTC().Format(time.DateOnly)
}

func cleanDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxDisplayNameLen {
		return "", ErrInvalidName
	}
	return name, nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
