package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"empire/internal/city"
	"empire/internal/game"
)

func TestRemoteSubmitsThroughSession(t *testing.T) {
	var gotAuth, gotCity string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/v1/days":
			var in city.DayResultInput
			_ = json.NewDecoder(r.Body).Decode(&in)
			gotCity = in.CityID
			_ = json.NewEncoder(w).Encode(map[string]int{"rank": 4})
		case "/v1/cities/c1/days":
			_ = json.NewEncoder(w).Encode(game.CityAllocation{Customers: 17, CityWeather: game.Heatwave})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid token"})
		}
	}))
	defer srv.Close()

	r := &Remote{Client: NewClient(srv.URL), Session: Session{AccessToken: "t", CityID: "c1", Mode: game.ModeCity}}
	rank, err := r.SubmitDayResult(context.Background(), city.DayResultInput{Day: 2})
	if err != nil || rank != 4 {
		t.Fatalf("rank=%d err=%v", rank, err)
	}
	if gotAuth != "Bearer t" || gotCity != "c1" {
		t.Fatalf("auth=%q city=%q", gotAuth, gotCity)
	}

	alloc, err := r.SubmitCityDay(context.Background(), game.CitySubmission{Price: 1})
	if err != nil || alloc.Customers != 17 || alloc.CityWeather != game.Heatwave {
		t.Fatalf("alloc=%+v err=%v", alloc, err)
	}

	if _, err := r.Client.Me(context.Background(), "t"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}

	solo := &Remote{Client: r.Client, Session: Session{AccessToken: "t", Mode: game.ModeSolo}}
	if _, err := solo.SubmitCityDay(context.Background(), game.CitySubmission{}); !errors.Is(err, ErrNotInCity) {
		t.Fatalf("want ErrNotInCity, got %v", err)
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "city is full"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).JoinByCode(context.Background(), "t", "ABC123")
	if !IsStatus(err, http.StatusConflict) {
		t.Fatalf("want 409, got %v", err)
	}
	if err.Error() != "api status 409: city is full" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestSessionFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadSession(dir); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized before sign-in, got %v", err)
	}
	want := Session{AccessToken: "a", PlayerID: "p", PlayerName: "Lemon", CityID: "c", Mode: game.ModeCity}
	if err := SaveSession(dir, want); err != nil {
		t.Fatal(err)
	}
	got, err := LoadSession(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != want || !got.InCity() {
		t.Fatalf("got %+v", got)
	}
	if err := ClearSession(dir); err != nil {
		t.Fatal(err)
	}
	if err := ClearSession(dir); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestRefreshSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		if r.URL.Path != "/v1/auth/refresh" || in.RefreshToken != "r1" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad refresh token"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "a2", "refresh_token": "r2"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	out, err := c.RefreshSession(context.Background(), "r1")
	if err != nil || out.AccessToken != "a2" || out.RefreshToken != "r2" {
		t.Fatalf("session=%+v err=%v", out, err)
	}
	if _, err := c.RefreshSession(context.Background(), "old"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}
