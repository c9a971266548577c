package city

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"empire/internal/game"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const cityColumns = `id::text, name, weather, economic_health, avg_price, total_businesses,
	customer_pool, join_code, max_players, private, updated_at`

func scanCity(row pgx.Row) (State, error) {
	var st State
	var weather string
	err := row.Scan(&st.ID, &st.Name, &weather, &st.EconomicHealth, &st.AvgPrice, &st.TotalBusinesses,
		&st.CustomerPool, &st.JoinCode, &st.MaxPlayers, &st.Private, &st.UpdatedAt)
	if err == pgx.ErrNoRows {
		return st, ErrCityNotFound
	}
	st.Weather = game.Weather(weather)
	return st, err
}

func (s *PGStore) EnsurePlayer(ctx context.Context, authID, displayName string) (Player, error) {
	_, err := s.db.Exec(ctx, `
		INSERT INTO empire.players (id, auth_id, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (auth_id) DO NOTHING
	`, uuid.NewString(), authID, displayName)
	if err != nil {
		return Player{}, err
	}
	return s.scanPlayer(s.db.QueryRow(ctx, `
		SELECT id::text, auth_id, display_name, total_days_played, best_revenue, best_cash,
		       best_day_customers, last_active, created_at
		FROM empire.players
		WHERE auth_id = $1
	`, authID))
}

func (s *PGStore) PlayerByID(ctx context.Context, id string) (Player, error) {
	return s.scanPlayer(s.db.QueryRow(ctx, `
		SELECT id::text, auth_id, display_name, total_days_played, best_revenue, best_cash,
		       best_day_customers, last_active, created_at
		FROM empire.players
		WHERE id = $1
	`, id))
}

func (s *PGStore) scanPlayer(row pgx.Row) (Player, error) {
	var p Player
	err := row.Scan(&p.ID, &p.AuthID, &p.DisplayName, &p.TotalDaysPlayed, &p.BestRevenue, &p.BestCash,
		&p.BestDayCustomers, &p.LastActive, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return p, ErrPlayerNotFound
	}
	return p, err
}

func (s *PGStore) RenamePlayer(ctx context.Context, id, displayName string) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `UPDATE empire.players SET display_name = $1 WHERE id = $2`, displayName, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	if _, err := tx.Exec(ctx, `
		UPDATE empire.leaderboard_entries SET player_name = $1 WHERE player_id = $2
	`, displayName, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) TouchPlayer(ctx context.Context, id string, stats PlayerStats) error {
	cmd, err := s.db.Exec(ctx, `
		UPDATE empire.players
		SET last_active = now(),
		    total_days_played = $2,
		    best_revenue = GREATEST(best_revenue, $3, 0),
		    best_cash = GREATEST(best_cash, $4, 0),
		    best_day_customers = GREATEST(best_day_customers, $5, 0)
		WHERE id = $1
	`, id, stats.DaysPlayed, stats.TotalRevenue, stats.Cash, stats.BestDay)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

func (s *PGStore) GetCity(ctx context.Context, id string) (State, error) {
	return scanCity(s.db.QueryRow(ctx, `SELECT `+cityColumns+` FROM empire.cities WHERE id = $1`, id))
}

func (s *PGStore) CityByCode(ctx context.Context, code string) (State, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	return scanCity(s.db.QueryRow(ctx, `SELECT `+cityColumns+` FROM empire.cities WHERE join_code = $1`, code))
}

func (s *PGStore) FindOpenCity(ctx context.Context, maxPlayers int) (State, error) {
	return scanCity(s.db.QueryRow(ctx, `
		SELECT `+cityColumns+`
		FROM empire.cities
		WHERE NOT private
		  AND total_businesses >= 0
		  AND total_businesses < LEAST(max_players, $1)
		ORDER BY total_businesses DESC, id
		LIMIT 1
	`, maxPlayers))
}

func (s *PGStore) CreateCity(ctx context.Context, st State) (State, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	created, err := scanCity(s.db.QueryRow(ctx, `
		INSERT INTO empire.cities
			(id, name, weather, economic_health, avg_price, total_businesses, customer_pool, join_code, max_players, private)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+cityColumns,
		st.ID, st.Name, string(st.Weather), st.EconomicHealth, st.AvgPrice, st.TotalBusinesses,
		st.CustomerPool, st.JoinCode, st.MaxPlayers, st.Private))
	if isUniqueViolation(err) {
		return State{}, ErrJoinCodeTaken
	}
	return created, err
}

func (s *PGStore) UpdateConditions(ctx context.Context, st State) error {
	cmd, err := s.db.Exec(ctx, `
		UPDATE empire.cities
		SET weather = $2, economic_health = $3, avg_price = $4, updated_at = now()
		WHERE id = $1
	`, st.ID, string(st.Weather), st.EconomicHealth, st.AvgPrice)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCityNotFound
	}
	return nil
}

func (s *PGStore) AddBusinesses(ctx context.Context, cityID string, delta int) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		UPDATE empire.cities
		SET total_businesses = GREATEST(0, total_businesses + $2), updated_at = now()
		WHERE id = $1
		RETURNING total_businesses
	`, cityID, delta).Scan(&n)
	if err == pgx.ErrNoRows {
		return 0, ErrCityNotFound
	}
	return n, err
}

func (s *PGStore) SetBusinesses(ctx context.Context, cityID string, n int) error {
	cmd, err := s.db.Exec(ctx, `
		UPDATE empire.cities SET total_businesses = GREATEST(0, $2), updated_at = now() WHERE id = $1
	`, cityID, n)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCityNotFound
	}
	return nil
}

func (s *PGStore) ListCities(ctx context.Context) ([]State, error) {
	rows, err := s.db.Query(ctx, `SELECT `+cityColumns+` FROM empire.cities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []State
	for rows.Next() {
		st, err := scanCity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PGStore) SetMembership(ctx context.Context, cityID, playerID string, active bool) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO empire.city_members (city_id, player_id, is_active)
		VALUES ($1, $2, $3)
		ON CONFLICT (city_id, player_id) DO UPDATE
		SET is_active = EXCLUDED.is_active, updated_at = now()
	`, cityID, playerID, active)
	return err
}

func (s *PGStore) IsActiveMember(ctx context.Context, cityID, playerID string) (bool, error) {
	var active bool
	err := s.db.QueryRow(ctx, `
		SELECT is_active FROM empire.city_members WHERE city_id = $1 AND player_id = $2
	`, cityID, playerID).Scan(&active)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	return active, err
}

func (s *PGStore) ActiveCity(ctx context.Context, playerID string) (State, error) {
	return scanCity(s.db.QueryRow(ctx, `
		SELECT `+prefixed("c", cityColumns)+`
		FROM empire.city_members m
		JOIN empire.cities c ON c.id = m.city_id
		WHERE m.player_id = $1 AND m.is_active
		ORDER BY m.updated_at DESC
		LIMIT 1
	`, playerID))
}

func (s *PGStore) CountActiveMembers(ctx context.Context, cityID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(1) FROM empire.city_members WHERE city_id = $1 AND is_active
	`, cityID).Scan(&n)
	return n, err
}

func (s *PGStore) InsertDayResult(ctx context.Context, r DayResult) (DayResult, error) {
	r.ID = uuid.NewString()
	err := s.db.QueryRow(ctx, `
		INSERT INTO empire.day_results
			(id, player_id, city_id, day_number, price_set, customers_served, revenue, profit, weather, catastrophe)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
		RETURNING created_at
	`, r.ID, r.PlayerID, r.CityID, r.Day, r.Price, r.Customers, r.Revenue, r.Profit, string(r.Weather), r.Catastrophe).Scan(&r.CreatedAt)
	return r, err
}

func (s *PGStore) RecentResults(ctx context.Context, cityID string, limit int) ([]DayResult, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, player_id::text, day_number, price_set, customers_served, revenue, profit,
		       weather, COALESCE(catastrophe, ''), created_at
		FROM empire.day_results
		WHERE city_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, cityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayResult
	for rows.Next() {
		r := DayResult{CityID: cityID}
		var weather string
		if err := rows.Scan(&r.ID, &r.PlayerID, &r.Day, &r.Price, &r.Customers, &r.Revenue, &r.Profit,
			&weather, &r.Catastrophe, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Weather = game.Weather(weather)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) UpsertLeaderboard(ctx context.Context, e LeaderboardEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO empire.leaderboard_entries
			(player_id, player_name, leaderboard_type, metric, score, period_start, city_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::date, NULLIF($7, '')::uuid)
		ON CONFLICT (player_id, leaderboard_type, metric) DO UPDATE
		SET player_name = EXCLUDED.player_name,
		    score = EXCLUDED.score,
		    period_start = EXCLUDED.period_start,
		    city_id = EXCLUDED.city_id,
		    updated_at = now()
	`, e.PlayerID, e.PlayerName, string(e.Type), e.Metric, e.Score, e.PeriodStart, e.CityID)
	return err
}

func (s *PGStore) CountScoresAbove(ctx context.Context, typ BoardType, metric string, score float64) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM empire.leaderboard_entries
		WHERE leaderboard_type = $1 AND metric = $2 AND score > $3
	`, string(typ), metric, score).Scan(&n)
	return n, err
}

func (s *PGStore) Leaderboard(ctx context.Context, q LeaderboardQuery) ([]LeaderboardRow, error) {
	typ := q.Type
	if typ == BoardCity {
		typ = BoardAllTime
	}
	rows, err := s.db.Query(ctx, `
		SELECT player_id::text, player_name, score
		FROM empire.leaderboard_entries
		WHERE leaderboard_type = $1
		  AND metric = $2
		  AND ($3 = '' OR period_start = NULLIF($3, '')::date)
		  AND ($4 = '' OR city_id = NULLIF($4, '')::uuid)
		ORDER BY score DESC, player_id
		LIMIT $5
	`, string(typ), q.Metric, dateFilter(q), cityFilter(q), q.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardRow
	rank := 1
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.PlayerID, &r.PlayerName, &r.Score); err != nil {
			return nil, err
		}
		r.Rank = rank
		rank++
		out = append(out, r)
	}
	return out, rows.Err()
}

func dateFilter(q LeaderboardQuery) string {
	if q.Type == BoardDaily {
		return q.Date
	}
	return ""
}

func cityFilter(q LeaderboardQuery) string {
	if q.Type == BoardCity {
		return q.CityID
	}
	return ""
}

func (s *PGStore) InsertChat(ctx context.Context, m ChatMessage) (ChatMessage, error) {
	m.ID = uuid.NewString()
	err := s.db.QueryRow(ctx, `
		INSERT INTO empire.chat_messages (id, city_id, player_id, player_name, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, m.ID, m.CityID, m.PlayerID, m.PlayerName, m.Message).Scan(&m.CreatedAt)
	return m, err
}

func (s *PGStore) RecentChat(ctx context.Context, cityID string, limit int) ([]ChatMessage, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, player_id::text, player_name, message, created_at
		FROM empire.chat_messages
		WHERE city_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, cityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		m := ChatMessage{CityID: cityID}
		if err := rows.Scan(&m.ID, &m.PlayerID, &m.PlayerName, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const challengeColumns = `id::text, challenge_date::text, challenge_type, title, description, target_value, reward_value`

func scanChallenge(row pgx.Row) (game.Challenge, error) {
	var c game.Challenge
	var kind string
	err := row.Scan(&c.ID, &c.Date, &kind, &c.Title, &c.Description, &c.Target, &c.Reward)
	c.Kind = game.ChallengeKind(kind)
	return c, err
}

func (s *PGStore) ChallengesFor(ctx context.Context, date string) ([]game.Challenge, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+challengeColumns+`
		FROM empire.daily_challenges
		WHERE challenge_date = $1::date
		ORDER BY created_at, id
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertChallenges stores cs unless another writer got there first, in which
// case the existing set for the date is returned.
func (s *PGStore) InsertChallenges(ctx context.Context, cs []game.Challenge) ([]game.Challenge, error) {
	if len(cs) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for _, c := range cs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO empire.daily_challenges
				(id, challenge_date, challenge_type, title, description, target_value, reward_value)
			VALUES ($1, $2::date, $3, $4, $5, $6, $7)
			ON CONFLICT (challenge_date, challenge_type) DO NOTHING
		`, uuid.NewString(), c.Date, string(c.Kind), c.Title, c.Description, c.Target, c.Reward); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.ChallengesFor(ctx, cs[0].Date)
}

func (s *PGStore) ChallengeByID(ctx context.Context, id string) (game.Challenge, error) {
	c, err := scanChallenge(s.db.QueryRow(ctx, `
		SELECT `+challengeColumns+` FROM empire.daily_challenges WHERE id = $1
	`, id))
	if err == pgx.ErrNoRows {
		return c, ErrChallengeUnknown
	}
	return c, err
}

func (s *PGStore) CompleteChallenge(ctx context.Context, challengeID, playerID string, score float64) error {
	cmd, err := s.db.Exec(ctx, `
		INSERT INTO empire.challenge_completions (challenge_id, player_id, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (challenge_id, player_id) DO NOTHING
	`, challengeID, playerID, score)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyCompleted
	}
	return nil
}

func (s *PGStore) SaveGame(ctx context.Context, g SavedGame) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO empire.game_saves
			(player_id, city_id, game_state, day, cash, total_revenue, reputation, level)
		VALUES ($1, NULLIF($2, '')::uuid, $3::jsonb, $4, $5, $6, $7, $8)
		ON CONFLICT (player_id) DO UPDATE
		SET city_id = EXCLUDED.city_id,
		    game_state = EXCLUDED.game_state,
		    day = EXCLUDED.day,
		    cash = EXCLUDED.cash,
		    total_revenue = EXCLUDED.total_revenue,
		    reputation = EXCLUDED.reputation,
		    level = EXCLUDED.level,
		    updated_at = now()
	`, g.PlayerID, g.CityID, string(g.State), g.Day, g.Cash, g.TotalRevenue, g.Reputation, g.Level)
	return err
}

func (s *PGStore) LoadGame(ctx context.Context, playerID string) (SavedGame, error) {
	g := SavedGame{PlayerID: playerID}
	var state string
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(city_id::text, ''), game_state::text, day, cash, total_revenue, reputation, level, updated_at
		FROM empire.game_saves
		WHERE player_id = $1
	`, playerID).Scan(&g.CityID, &state, &g.Day, &g.Cash, &g.TotalRevenue, &g.Reputation, &g.Level, &g.UpdatedAt)
	if err == pgx.ErrNoRows {
		return g, ErrPlayerNotFound
	}
	g.State = []byte(state)
	return g, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
