package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE SCHEMA IF NOT EXISTS empire;

CREATE TABLE IF NOT EXISTS empire.players (
	id uuid PRIMARY KEY,
	auth_id text NOT NULL UNIQUE,
	display_name text NOT NULL,
	total_days_played integer NOT NULL DEFAULT 0,
	best_revenue double precision NOT NULL DEFAULT 0,
	best_cash double precision NOT NULL DEFAULT 0,
	best_day_customers integer NOT NULL DEFAULT 0,
	last_active timestamptz NOT NULL DEFAULT now(),
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS empire.cities (
	id uuid PRIMARY KEY,
	name text NOT NULL,
	weather text NOT NULL,
	economic_health double precision NOT NULL DEFAULT 1,
	avg_price double precision NOT NULL DEFAULT 1,
	total_businesses integer NOT NULL DEFAULT 0 CHECK (total_businesses >= 0),
	customer_pool double precision NOT NULL,
	join_code text NOT NULL UNIQUE,
	max_players integer NOT NULL,
	private boolean NOT NULL DEFAULT false,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS empire.city_members (
	city_id uuid NOT NULL REFERENCES empire.cities(id) ON DELETE CASCADE,
	player_id uuid NOT NULL REFERENCES empire.players(id) ON DELETE CASCADE,
	is_active boolean NOT NULL DEFAULT true,
	joined_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (city_id, player_id)
);

CREATE TABLE IF NOT EXISTS empire.day_results (
	id uuid PRIMARY KEY,
	player_id uuid NOT NULL REFERENCES empire.players(id) ON DELETE CASCADE,
	city_id uuid REFERENCES empire.cities(id) ON DELETE SET NULL,
	day_number integer NOT NULL,
	price_set double precision NOT NULL,
	customers_served integer NOT NULL,
	revenue double precision NOT NULL,
	profit double precision NOT NULL,
	weather text NOT NULL,
	catastrophe text,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS empire.leaderboard_entries (
	player_id uuid NOT NULL REFERENCES empire.players(id) ON DELETE CASCADE,
	player_name text NOT NULL,
	leaderboard_type text NOT NULL,
	metric text NOT NULL,
	score double precision NOT NULL,
	period_start date,
	city_id uuid,
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (player_id, leaderboard_type, metric)
);

CREATE TABLE IF NOT EXISTS empire.chat_messages (
	id uuid PRIMARY KEY,
	city_id uuid NOT NULL REFERENCES empire.cities(id) ON DELETE CASCADE,
	player_id uuid NOT NULL REFERENCES empire.players(id) ON DELETE CASCADE,
	player_name text NOT NULL,
	message text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS empire.daily_challenges (
	id uuid PRIMARY KEY,
	challenge_date date NOT NULL,
	challenge_type text NOT NULL,
	title text NOT NULL,
	description text NOT NULL,
	target_value double precision NOT NULL,
	reward_value double precision NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (challenge_date, challenge_type)
);

CREATE TABLE IF NOT EXISTS empire.challenge_completions (
	challenge_id uuid NOT NULL REFERENCES empire.daily_challenges(id) ON DELETE CASCADE,
	player_id uuid NOT NULL REFERENCES empire.players(id) ON DELETE CASCADE,
	score double precision NOT NULL,
	completed_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (challenge_id, player_id)
);

CREATE TABLE IF NOT EXISTS empire.game_saves (
	player_id uuid PRIMARY KEY REFERENCES empire.players(id) ON DELETE CASCADE,
	city_id uuid,
	game_state jsonb NOT NULL,
	day integer NOT NULL,
	cash double precision NOT NULL,
	total_revenue double precision NOT NULL,
	reputation double precision NOT NULL,
	level integer NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_day_results_city_created ON empire.day_results (city_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_chat_city_created ON empire.chat_messages (city_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_leaderboard_board_score ON empire.leaderboard_entries (leaderboard_type, metric, score DESC);
CREATE INDEX IF NOT EXISTS idx_city_members_player ON empire.city_members (player_id) WHERE is_active;
`

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
