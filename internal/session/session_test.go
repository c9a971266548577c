package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empire/internal/city"
	"empire/internal/game"
	"empire/internal/store"
	"empire/internal/syncq"
)

type memStore struct {
	mu    sync.Mutex
	saved *game.State
	saves int
}

func (m *memStore) Save(st *game.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = st.Clone()
	m.saves++
	return nil
}

func (m *memStore) Load() (*game.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return nil, store.ErrNoSave
	}
	return m.saved.Clone(), nil
}

func (m *memStore) last() *game.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved.Clone()
}

type fakeBackend struct {
	mu        sync.Mutex
	results   []city.DayResultInput
	syncs     []*game.State
	submitErr error
	syncErr   error
	cityErr   error
	cityGate  chan struct{}
	alloc     game.CityAllocation
	cityState city.State
}

func (f *fakeBackend) SubmitDayResult(_ context.Context, in city.DayResultInput) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return 0, f.submitErr
	}
	f.results = append(f.results, in)
	return len(f.results), nil
}

func (f *fakeBackend) SubmitCityDay(ctx context.Context, _ game.CitySubmission) (game.CityAllocation, error) {
	if f.cityGate != nil {
		select {
		case <-f.cityGate:
		case <-ctx.Done():
			return game.CityAllocation{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cityErr != nil {
		return game.CityAllocation{}, f.cityErr
	}
	return f.alloc, nil
}

func (f *fakeBackend) FetchCityState(context.Context) (city.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cityState, nil
}

func (f *fakeBackend) SyncState(_ context.Context, st *game.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.syncErr != nil {
		return f.syncErr
	}
	f.syncs = append(f.syncs, st)
	return nil
}

func (f *fakeBackend) counts() (results, syncs int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results), len(f.syncs)
}

func openSession(t *testing.T, opts Options) *Session {
	t.Helper()
	if opts.Store == nil {
		opts.Store = &memStore{}
	}
	if opts.Rand == nil {
		opts.Rand = game.NewRand(11)
	}
	if opts.SyncDebounce == 0 {
		opts.SyncDebounce = time.Hour
	}
	s, err := Open(opts)
	require.NoError(t, err)
	return s
}

func TestOpenStartsFreshStandAndSavesIt(t *testing.T) {
	st := &memStore{}
	s := openSession(t, Options{Store: st})
	defer s.Close()

	assert.Equal(t, game.NewState(), s.State())
	assert.Equal(t, 1, st.saves)
}

func TestStartDaySavesSynchronouslyAndSubmits(t *testing.T) {
	st := &memStore{}
	backend := &fakeBackend{}
	var ranks []int
	var rmu sync.Mutex
	s := openSession(t, Options{
		Store:   st,
		Backend: backend,
		OnSubmitted: func(_ int, rank int, err error) {
			rmu.Lock()
			defer rmu.Unlock()
			if err == nil {
				ranks = append(ranks, rank)
			}
		},
	})

	report, err := s.StartDay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Day)
	assert.Equal(t, game.ModeSolo, report.Mode)
	assert.Equal(t, 2, st.last().Day, "saved before StartDay returns")

	require.NoError(t, s.SetPrice(1.5))
	require.NoError(t, s.SetPrice(1.75))
	require.NoError(t, s.Close())

	results, syncs := backend.counts()
	assert.Equal(t, 1, results)
	assert.Equal(t, 1, syncs, "debounced changes are flushed once on close")
	assert.Equal(t, 1.75, backend.syncs[0].Price)
	assert.Equal(t, report.Served, backend.results[0].Customers)
	assert.Equal(t, []int{1}, ranks)

	_, err = s.StartDay(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDebouncedSyncFires(t *testing.T) {
	backend := &fakeBackend{}
	s := openSession(t, Options{Backend: backend, SyncDebounce: 50 * time.Millisecond})
	defer s.Close()

	for _, p := range []float64{1.1, 1.2, 1.3} {
		require.NoError(t, s.SetPrice(p))
	}
	assert.Eventually(t, func() bool {
		_, syncs := backend.counts()
		return syncs == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	_, syncs := backend.counts()
	assert.Equal(t, 1, syncs)
}

func TestSecondDayWhilePendingIsRejected(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{cityGate: gate, alloc: game.CityAllocation{Customers: 3, CityWeather: game.Cloudy}}
	s := openSession(t, Options{Backend: backend, Mode: game.ModeCity, PlayerID: "p1", RemoteTimeout: 5 * time.Second})
	defer s.Close()

	done := make(chan game.DayReport)
	go func() {
		r, err := s.StartDay(context.Background())
		assert.NoError(t, err)
		done <- r
	}()

	require.Eventually(t, func() bool { return s.busy.Load() }, time.Second, time.Millisecond)
	_, err := s.StartDay(context.Background())
	assert.ErrorIs(t, err, ErrDayInProgress)

	close(gate)
	r := <-done
	assert.Equal(t, game.ModeCity, r.Mode)
	assert.Equal(t, 3, r.Customers)
	assert.Equal(t, game.Cloudy, r.Weather)
	assert.False(t, r.CityFallback)
}

func TestCityTimeoutFallsBackToLocalDemand(t *testing.T) {
	backend := &fakeBackend{cityGate: make(chan struct{})}
	s := openSession(t, Options{Backend: backend, Mode: game.ModeCity, RemoteTimeout: 20 * time.Millisecond})
	defer s.Close()

	start := time.Now()
	r, err := s.StartDay(context.Background())
	require.NoError(t, err)
	assert.True(t, r.CityFallback)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 2, s.State().Day)
}

func TestCityWeatherMirroredBeforeDay(t *testing.T) {
	backend := &fakeBackend{
		cityErr:   errors.New("down"),
		cityState: city.State{Weather: game.Heatwave, AvgPrice: 2},
	}
	s := openSession(t, Options{Backend: backend, Mode: game.ModeCity})
	defer s.Close()

	r, err := s.StartDay(context.Background())
	require.NoError(t, err)
	assert.True(t, r.CityFallback)
	assert.Equal(t, game.Heatwave, r.Weather)
}

func TestFailedSubmissionIsQueuedAndReplayed(t *testing.T) {
	q := syncq.New(t.TempDir())
	backend := &fakeBackend{submitErr: errors.New("offline")}
	s := openSession(t, Options{Backend: backend, Queue: q})

	_, err := s.StartDay(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	cmds, err := q.Load()
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, syncq.KindDayResult, cmds[0].Kind)

	backend.mu.Lock()
	backend.submitErr = nil
	backend.mu.Unlock()
	sent, err := s.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	results, _ := backend.counts()
	assert.Equal(t, 1, results)
	assert.Equal(t, 1, backend.results[0].Day)
}

func TestFailedFinalSyncIsQueued(t *testing.T) {
	q := syncq.New(t.TempDir())
	backend := &fakeBackend{syncErr: errors.New("offline")}
	s := openSession(t, Options{Backend: backend, Queue: q})

	require.NoError(t, s.SetPrice(2))
	require.NoError(t, s.Close())

	cmds, err := q.Load()
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, syncq.KindSaveState, cmds[0].Kind)
}

func TestRejectedActionsLeaveSaveUntouched(t *testing.T) {
	st := &memStore{}
	s := openSession(t, Options{Store: st})
	defer s.Close()

	assert.ErrorIs(t, s.SetPrice(0.01), game.ErrInvalidPrice)
	_, err := s.BuyStock(1000)
	assert.ErrorIs(t, err, game.ErrInsufficientFunds)
	_, err = s.BuyUpgrade("rocket")
	assert.ErrorIs(t, err, game.ErrUnknownUpgrade)
	_, err = s.BuyLocation()
	assert.ErrorIs(t, err, game.ErrInsufficientFunds)
	assert.Equal(t, 1, st.saves)

	p, err := s.BuyStock(10)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Units)
	assert.Equal(t, 20, st.last().Inventory)
	assert.Equal(t, 2, st.saves)
}

func TestInventoryGuard(t *testing.T) {
	st := &memStore{}
	empty := game.NewState()
	empty.Inventory = 0
	require.NoError(t, st.Save(empty))

	s := openSession(t, Options{Store: st})
	defer s.Close()

	_, err := s.StartDay(context.Background())
	assert.ErrorIs(t, err, game.ErrNoInventory)
	assert.Equal(t, 1, s.State().Day)
	assert.Equal(t, 1, st.saves)
}

func TestResetStartsOver(t *testing.T) {
	s := openSession(t, Options{})
	defer s.Close()
	require.NoError(t, s.SetPrice(3))
	require.NoError(t, s.Reset())
	assert.Equal(t, game.NewState(), s.State())
}
