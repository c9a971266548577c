package cli

import (
	"context"
	"errors"

	"empire/internal/city"
	"empire/internal/game"
)

var ErrNotInCity = errors.New("not playing in a city")

// Remote binds a Client to the stored session so the day engine can talk to
// the backend without knowing about tokens.
type Remote struct {
	Client  *Client
	Session Session
}

func (r *Remote) SubmitCityDay(ctx context.Context, sub game.CitySubmission) (game.CityAllocation, error) {
	if !r.Session.InCity() {
		return game.CityAllocation{}, ErrNotInCity
	}
	return r.Client.SubmitCityDay(ctx, r.Session.AccessToken, r.Session.CityID, sub)
}

func (r *Remote) FetchCityState(ctx context.Context) (city.State, error) {
	if !r.Session.InCity() {
		return city.State{}, ErrNotInCity
	}
	return r.Client.CityState(ctx, r.Session.AccessToken, r.Session.CityID)
}

func (r *Remote) SubmitDayResult(ctx context.Context, in city.DayResultInput) (int, error) {
	if r.Session.InCity() && in.CityID == "" {
		in.CityID = r.Session.CityID
	}
	return r.Client.SubmitDayResult(ctx, r.Session.AccessToken, in)
}

func (r *Remote) SyncState(ctx context.Context, st *game.State) error {
	return r.Client.SaveState(ctx, r.Session.AccessToken, st)
}
