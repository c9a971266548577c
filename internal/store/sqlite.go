package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"empire/internal/game"
)

// SQLiteStore keeps the current stand plus a log of resolved days.
type SQLiteStore struct {
	conn *sqlx.DB
	log  *slog.Logger
}

// DayRecord is one row of the local day history.
type DayRecord struct {
	Day        int          `db:"day"`
	Weather    game.Weather `db:"weather"`
	Price      float64      `db:"price"`
	Customers  int          `db:"customers"`
	Served     int          `db:"served"`
	Revenue    float64      `db:"revenue"`
	Profit     float64      `db:"profit"`
	Reason     string       `db:"reason"`
	ResolvedAt string       `db:"resolved_at"`
}

func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn, log: logger}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		slot TEXT PRIMARY KEY,
		day INTEGER NOT NULL,
		cash REAL NOT NULL,
		state_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS day_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day INTEGER NOT NULL,
		weather TEXT NOT NULL,
		price REAL NOT NULL,
		customers INTEGER NOT NULL,
		served INTEGER NOT NULL,
		revenue REAL NOT NULL,
		profit REAL NOT NULL,
		reason TEXT NOT NULL,
		resolved_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_day_log_day ON day_log(day);
	`
	_, err := s.conn.Exec(schema)
	return err
}

const currentSlot = "current"

func (s *SQLiteStore) Save(st *game.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}
	_, err = s.conn.Exec(`
		INSERT INTO saves (slot, day, cash, state_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			day = excluded.day,
			cash = excluded.cash,
			state_json = excluded.state_json,
			updated_at = excluded.updated_at
	`, currentSlot, st.Day, st.Cash, string(raw), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *SQLiteStore) Load() (*game.State, error) {
	var raw string
	err := s.conn.Get(&raw, `SELECT state_json FROM saves WHERE slot = ?`, currentSlot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSave
	}
	if err != nil {
		return nil, err
	}
	return decodeState([]byte(raw), s.log, "sqlite"), nil
}

func (s *SQLiteStore) Reset() error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM saves`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM day_log`); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordDay appends a resolved day to the history.
func (s *SQLiteStore) RecordDay(r game.DayReport) error {
	_, err := s.conn.NamedExec(`
		INSERT INTO day_log (day, weather, price, customers, served, revenue, profit, reason, resolved_at)
		VALUES (:day, :weather, :price, :customers, :served, :revenue, :profit, :reason, :resolved_at)
	`, DayRecord{
		Day:        r.Day,
		Weather:    r.Weather,
		Price:      r.Price,
		Customers:  r.Customers,
		Served:     r.Served,
		Revenue:    r.Revenue,
		Profit:     r.Profit,
		Reason:     r.Reason,
		ResolvedAt: time.Now().UTC().Format(time.RFC3339),
	})
	return err
}

// History returns the latest limit days, newest first.
func (s *SQLiteStore) History(limit int) ([]DayRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []DayRecord
	err := s.conn.Select(&out, `
		SELECT day, weather, price, customers, served, revenue, profit, reason, resolved_at
		FROM day_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	return out, err
}
