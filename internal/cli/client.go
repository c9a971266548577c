package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"empire/internal/auth"
	"empire/internal/city"
	"empire/internal/game"
)

// ErrUnauthorized means the stored access token was rejected.
var ErrUnauthorized = errors.New("not signed in or session expired")

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Code, e.Message)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type GuestResponse struct {
	Session auth.Session `json:"session"`
	Player  city.Player  `json:"player"`
}

func (c *Client) GuestSignIn(ctx context.Context, displayName string) (GuestResponse, error) {
	var out GuestResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/guest", "", map[string]any{
		"display_name": displayName,
	}, &out)
	return out, err
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/refresh", "", map[string]any{
		"refresh_token": refreshToken,
	}, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context, accessToken string) (city.Player, error) {
	var out city.Player
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/players/me", accessToken, nil, &out)
	return out, err
}

func (c *Client) Rename(ctx context.Context, accessToken, displayName string) (string, error) {
	var out struct {
		DisplayName string `json:"display_name"`
	}
	err := c.jsonRequest(ctx, http.MethodPatch, "/v1/players/me", accessToken, map[string]any{
		"display_name": displayName,
	}, &out)
	return out.DisplayName, err
}

func (c *Client) MyCity(ctx context.Context, accessToken string) (city.State, error) {
	var out city.State
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/cities/mine", accessToken, nil, &out)
	return out, err
}

func (c *Client) JoinCity(ctx context.Context, accessToken string) (city.State, error) {
	var out city.State
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/cities/join", accessToken, nil, &out)
	return out, err
}

func (c *Client) CreateCity(ctx context.Context, accessToken string) (city.State, error) {
	var out city.State
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/cities", accessToken, nil, &out)
	return out, err
}

func (c *Client) JoinByCode(ctx context.Context, accessToken, code string) (city.State, error) {
	var out city.State
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/cities/join/"+url.PathEscape(code), accessToken, nil, &out)
	return out, err
}

func (c *Client) LeaveCity(ctx context.Context, accessToken, cityID string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/cities/"+url.PathEscape(cityID)+"/leave", accessToken, nil, nil)
}

func (c *Client) CityState(ctx context.Context, accessToken, cityID string) (city.State, error) {
	var out city.State
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/cities/"+url.PathEscape(cityID), accessToken, nil, &out)
	return out, err
}

func (c *Client) SubmitCityDay(ctx context.Context, accessToken, cityID string, sub game.CitySubmission) (game.CityAllocation, error) {
	var out game.CityAllocation
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/cities/"+url.PathEscape(cityID)+"/days", accessToken, sub, &out)
	return out, err
}

func (c *Client) SubmitDayResult(ctx context.Context, accessToken string, in city.DayResultInput) (int, error) {
	var out struct {
		Rank int `json:"rank"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/days", accessToken, in, &out)
	return out.Rank, err
}

func (c *Client) Leaderboard(ctx context.Context, accessToken string, q city.LeaderboardQuery) ([]city.LeaderboardRow, error) {
	v := url.Values{}
	v.Set("type", string(q.Type))
	if q.Metric != "" {
		v.Set("metric", q.Metric)
	}
	if q.CityID != "" {
		v.Set("city_id", q.CityID)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	var out struct {
		Rows []city.LeaderboardRow `json:"rows"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/leaderboard?"+v.Encode(), accessToken, nil, &out)
	return out.Rows, err
}

func (c *Client) Chat(ctx context.Context, accessToken, cityID string, limit int) ([]city.ChatMessage, error) {
	var out struct {
		Messages []city.ChatMessage `json:"messages"`
	}
	path := fmt.Sprintf("/v1/cities/%s/chat?limit=%d", url.PathEscape(cityID), limit)
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out)
	return out.Messages, err
}

func (c *Client) SendChat(ctx context.Context, accessToken, cityID, message string) (city.ChatMessage, error) {
	var out city.ChatMessage
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/cities/"+url.PathEscape(cityID)+"/chat", accessToken, map[string]any{
		"message": message,
	}, &out)
	return out, err
}

func (c *Client) Challenges(ctx context.Context, accessToken string) ([]game.Challenge, error) {
	var out struct {
		Challenges []game.Challenge `json:"challenges"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/challenges", accessToken, nil, &out)
	return out.Challenges, err
}

func (c *Client) CompleteChallenge(ctx context.Context, accessToken, challengeID string, score float64) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/challenges/"+url.PathEscape(challengeID)+"/complete", accessToken, map[string]any{
		"score": score,
	}, nil)
}

func (c *Client) SaveState(ctx context.Context, accessToken string, st *game.State) error {
	return c.jsonRequest(ctx, http.MethodPut, "/v1/saves", accessToken, st, nil)
}

func (c *Client) LoadState(ctx context.Context, accessToken string) (*game.State, error) {
	var out game.State
	if err := c.jsonRequest(ctx, http.MethodGet, "/v1/saves", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// IsStatus reports whether err is an API answer with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
