// Package session owns one player's stand for the lifetime of a CLI run. It
// serializes actions, persists after every change and talks to the backend
// without ever letting a remote failure block play.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"empire/internal/city"
	"empire/internal/game"
	"empire/internal/store"
	"empire/internal/syncq"
)

var (
	ErrDayInProgress = errors.New("a day is already being resolved")
	ErrClosed        = errors.New("session closed")
)

// Store persists the stand locally.
type Store interface {
	Save(st *game.State) error
	Load() (*game.State, error)
}

// Backend is the multiplayer server as seen by a signed-in player.
type Backend interface {
	SubmitDayResult(ctx context.Context, in city.DayResultInput) (int, error)
	SubmitCityDay(ctx context.Context, sub game.CitySubmission) (game.CityAllocation, error)
	FetchCityState(ctx context.Context) (city.State, error)
	SyncState(ctx context.Context, st *game.State) error
}

type Options struct {
	Store Store
	// Backend is nil when playing offline.
	Backend Backend
	// Queue receives submissions the backend could not take. Optional.
	Queue    *syncq.Queue
	Mode     game.Mode
	PlayerID string
	Rand     game.Rand
	Restock  game.Restocker

	RemoteTimeout time.Duration
	SyncDebounce  time.Duration
	// OnSubmitted is called from a background goroutine once a day result
	// has been accepted or queued.
	OnSubmitted func(day, rank int, err error)
	Log         *slog.Logger
}

type Session struct {
	opts   Options
	log    *slog.Logger
	engine *game.Engine

	busy atomic.Bool

	mu     sync.Mutex
	state  *game.State
	closed bool

	syncMu    sync.Mutex
	syncTimer *time.Timer
	dirty     bool
	// flushMu serializes uploads so Close waits for one already running.
	flushMu sync.Mutex

	pending sync.WaitGroup
}

// Open loads the saved stand, or starts a new one when there is none.
func Open(opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Rand == nil {
		opts.Rand = game.NewRand(time.Now().UnixNano())
	}
	if opts.Restock == nil {
		opts.Restock = game.AutoBuyPolicy{}
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = 5 * time.Second
	}
	if opts.SyncDebounce <= 0 {
		opts.SyncDebounce = 2 * time.Second
	}
	if opts.Mode == "" {
		opts.Mode = game.ModeSolo
	}

	st, err := opts.Store.Load()
	fresh := errors.Is(err, store.ErrNoSave)
	if fresh {
		st = game.NewState()
	} else if err != nil {
		return nil, fmt.Errorf("load save: %w", err)
	}

	s := &Session{opts: opts, log: opts.Log, state: st}
	s.engine = &game.Engine{
		Rand:     opts.Rand,
		Restock:  opts.Restock,
		PlayerID: opts.PlayerID,
		Log:      opts.Log,
	}
	if opts.Mode == game.ModeCity && opts.Backend != nil {
		s.engine.City = remoteCity{s}
	}
	if fresh {
		if err := opts.Store.Save(st); err != nil {
			return nil, fmt.Errorf("save new stand: %w", err)
		}
	}
	return s, nil
}

// State returns a copy of the current stand.
func (s *Session) State() *game.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) Mode() game.Mode {
	return s.opts.Mode
}

// StartDay resolves one day. A second call while one is running returns
// ErrDayInProgress instead of waiting. The snapshot is saved before
// StartDay returns; the result is submitted in the background.
func (s *Session) StartDay(ctx context.Context) (game.DayReport, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return game.DayReport{}, ErrDayInProgress
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return game.DayReport{}, ErrClosed
	}

	if s.engine.City != nil {
		s.mirrorCity(ctx)
	}
	report, err := s.engine.ResolveDay(ctx, s.state)
	if err != nil {
		return report, err
	}
	if err := s.opts.Store.Save(s.state); err != nil {
		return report, fmt.Errorf("save: %w", err)
	}
	s.submit(dayResultInput(report, s.state))
	s.scheduleSync()
	return report, nil
}

// mirrorCity copies the city's current weather and average price into the
// engine before a city day. Failures keep the last known values.
func (s *Session) mirrorCity(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RemoteTimeout)
	defer cancel()
	st, err := s.opts.Backend.FetchCityState(ctx)
	if err != nil {
		s.log.Warn("city state unavailable", "err", err)
		return
	}
	s.engine.CityWeather = st.Weather
	s.engine.CityAvgPrice = st.AvgPrice
}

func (s *Session) submit(in city.DayResultInput) {
	if s.opts.Backend == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.RemoteTimeout)
		defer cancel()
		rank, err := s.opts.Backend.SubmitDayResult(ctx, in)
		if err != nil {
			s.log.Warn("day result not submitted, queued for later", "err", err, "day", in.Day)
			s.enqueue(syncq.KindDayResult, in)
		}
		if s.opts.OnSubmitted != nil {
			s.opts.OnSubmitted(in.Day, rank, err)
		}
	}()
}

func (s *Session) enqueue(kind string, body any) {
	if s.opts.Queue == nil {
		return
	}
	cmd, err := syncq.NewCommand(kind, body)
	if err == nil {
		err = s.opts.Queue.Push(cmd)
	}
	if err != nil {
		s.log.Error("queue remote write", "err", err, "kind", kind)
	}
}

func dayResultInput(r game.DayReport, st *game.State) city.DayResultInput {
	in := city.DayResultInput{
		Day:            r.Day,
		Price:          r.Price,
		Customers:      r.Served,
		Revenue:        r.Revenue,
		Profit:         r.Profit,
		Weather:        r.Weather,
		TotalRevenue:   st.TotalRevenue,
		TotalCustomers: st.TotalCustomers,
		Cash:           st.Cash,
		BestDay:        st.BestDay,
	}
	if r.Catastrophe != nil {
		in.Catastrophe = r.Catastrophe.Name
	}
	return in
}

// mutate applies fn to the stand and persists it. A rejected action leaves
// the stand and the save untouched.
func (s *Session) mutate(fn func(st *game.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	next := s.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := s.opts.Store.Save(next); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	s.state = next
	s.scheduleSync()
	return nil
}

func (s *Session) SetPrice(price float64) error {
	return s.mutate(func(st *game.State) error { return game.SetPrice(st, price) })
}

func (s *Session) Rename(name string) error {
	return s.mutate(func(st *game.State) error { return game.Rename(st, name) })
}

func (s *Session) BuyStock(units int) (game.Purchase, error) {
	var p game.Purchase
	err := s.mutate(func(st *game.State) (err error) {
		p, err = game.BuyStock(st, units)
		return err
	})
	return p, err
}

func (s *Session) QuoteUpgrade(id string) (game.UpgradeQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return game.QuoteUpgrade(s.state, id)
}

func (s *Session) BuyUpgrade(id string) (game.UpgradeQuote, error) {
	var q game.UpgradeQuote
	err := s.mutate(func(st *game.State) (err error) {
		q, err = game.BuyUpgrade(st, id)
		return err
	})
	return q, err
}

func (s *Session) BuyLocation() (game.Location, error) {
	var loc game.Location
	err := s.mutate(func(st *game.State) (err error) {
		loc, err = game.BuyLocation(st)
		return err
	})
	return loc, err
}

func (s *Session) SetAutoBuy(enabled bool, threshold, targetPercent int) error {
	return s.mutate(func(st *game.State) error {
		return game.SetAutoBuy(st, enabled, threshold, targetPercent)
	})
}

// Reset replaces the stand with a fresh one.
func (s *Session) Reset() error {
	return s.mutate(func(st *game.State) error {
		*st = *game.NewState()
		return nil
	})
}

// Replay delivers queued submissions in order and reports how many went
// through.
func (s *Session) Replay(ctx context.Context) (int, error) {
	if s.opts.Queue == nil || s.opts.Backend == nil {
		return 0, nil
	}
	return s.opts.Queue.Replay(func(cmd syncq.Command) error {
		ctx, cancel := context.WithTimeout(ctx, s.opts.RemoteTimeout)
		defer cancel()
		switch cmd.Kind {
		case syncq.KindDayResult:
			var in city.DayResultInput
			if err := json.Unmarshal(cmd.Body, &in); err != nil {
				s.log.Warn("dropping unreadable queued day result", "err", err)
				return nil
			}
			_, err := s.opts.Backend.SubmitDayResult(ctx, in)
			return err
		case syncq.KindSaveState:
			var st game.State
			if err := json.Unmarshal(cmd.Body, &st); err != nil {
				s.log.Warn("dropping unreadable queued save", "err", err)
				return nil
			}
			return s.opts.Backend.SyncState(ctx, &st)
		default:
			s.log.Warn("dropping unknown queued command", "kind", cmd.Kind)
			return nil
		}
	})
}

// Close flushes a pending state sync and waits for background submissions.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.syncMu.Lock()
	if s.syncTimer != nil {
		s.syncTimer.Stop()
		s.syncTimer = nil
	}
	s.syncMu.Unlock()
	if s.opts.Backend != nil {
		if err := s.flushSync(); err != nil {
			s.log.Warn("final state sync failed, queued for later", "err", err)
			s.enqueue(syncq.KindSaveState, s.State())
		}
	}
	s.pending.Wait()
	return nil
}

type remoteCity struct {
	s *Session
}

func (c remoteCity) AllocateCustomers(ctx context.Context, sub game.CitySubmission) (game.CityAllocation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.s.opts.RemoteTimeout)
	defer cancel()
	return c.s.opts.Backend.SubmitCityDay(ctx, sub)
}
