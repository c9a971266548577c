package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"empire/internal/game"
)

// Session is the signed-in multiplayer identity kept next to the save.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	PlayerID     string    `json:"player_id"`
	PlayerName   string    `json:"player_name"`
	CityID       string    `json:"city_id,omitempty"`
	CityName     string    `json:"city_name,omitempty"`
	JoinCode     string    `json:"join_code,omitempty"`
	Mode         game.Mode `json:"mode"`
}

// InCity reports whether the player last joined a city and has not left it.
func (s Session) InCity() bool {
	return s.Mode == game.ModeCity && s.CityID != ""
}

func sessionPath(dir string) string {
	return filepath.Join(dir, "session.json")
}

func SaveSession(dir string, s Session) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(sessionPath(dir), body, 0o600)
}

func LoadSession(dir string) (Session, error) {
	body, err := os.ReadFile(sessionPath(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if strings.TrimSpace(s.AccessToken) == "" {
		return Session{}, ErrUnauthorized
	}
	if s.Mode == "" {
		s.Mode = game.ModeSolo
	}
	return s, nil
}

func ClearSession(dir string) error {
	err := os.Remove(sessionPath(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
