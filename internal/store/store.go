// Package store persists a single player's stand between runs.
package store

import (
	"encoding/json"
	"errors"
	"log/slog"

	"empire/internal/game"
)

// ErrNoSave means nothing has been saved yet.
var ErrNoSave = errors.New("no saved game")

// decodeState parses a snapshot and backfills defaults. Undecodable data is
// logged and replaced by a fresh stand.
func decodeState(raw []byte, log *slog.Logger, source string) *game.State {
	var st game.State
	if err := json.Unmarshal(raw, &st); err != nil {
		log.Warn("corrupt save, starting over", "err", err, "source", source)
		return game.NewState()
	}
	if st.Normalize() {
		log.Info("rebuilt achievements from save", "source", source)
	}
	return &st
}
