package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	cl "empire/internal/cli"
	"empire/internal/config"
	"empire/internal/game"
	"empire/internal/session"
	"empire/internal/store"
	"empire/internal/syncq"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	a := &app{cfg: cfg, log: newLogger(cfg.LogLevel)}

	root := &cobra.Command{
		Use:          "empire",
		Short:        "Run a lemonade stand, alone or in a shared city",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.cfg.APIBaseURL, "api", cfg.APIBaseURL, "API base URL")
	root.PersistentFlags().StringVar(&a.cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the save and session")

	root.AddCommand(
		a.newStatusCmd(),
		a.newDayCmd(),
		a.newPriceCmd(),
		a.newBuyCmd(),
		a.newUpgradeCmd(),
		a.newLocationCmd(),
		a.newAutoBuyCmd(),
		a.newRenameCmd(),
		a.newResetCmd(),
		a.newHistoryCmd(),
		a.newGuestCmd(),
		a.newRefreshCmd(),
		a.newLogoutCmd(),
		a.newCityCmd(),
		a.newChatCmd(),
		a.newLeaderboardCmd(),
		a.newChallengesCmd(),
		a.newFeedCmd(),
		a.newSyncCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

type app struct {
	cfg config.CLIConfig
	log *slog.Logger
}

func (a *app) client() *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(a.cfg.APIBaseURL), "/"))
}

// signedIn returns the stored multiplayer session, or ErrUnauthorized.
func (a *app) signedIn() (cl.Session, error) {
	sess, err := cl.LoadSession(a.cfg.DataDir)
	if errors.Is(err, cl.ErrUnauthorized) {
		return sess, fmt.Errorf("%w: run `empire guest` first", err)
	}
	return sess, err
}

// play is one open stand plus whatever backend the player is signed in to.
type play struct {
	sess   *session.Session
	sqlite *store.SQLiteStore
	remote *cl.Remote

	mu   sync.Mutex
	rank int
}

func (a *app) openPlay() (*play, error) {
	if err := os.MkdirAll(a.cfg.DataDir, 0o700); err != nil {
		return nil, err
	}
	p := &play{}
	var local session.Store
	switch a.cfg.Store {
	case "sqlite":
		db, err := store.OpenSQLite(filepath.Join(a.cfg.DataDir, "empire.db"), a.log)
		if err != nil {
			return nil, err
		}
		p.sqlite = db
		local = db
	default:
		local = store.NewFileStore(a.cfg.DataDir, a.log)
	}

	seed := a.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	opts := session.Options{
		Store:         local,
		Queue:         syncq.New(a.cfg.DataDir),
		Mode:          game.ModeSolo,
		Rand:          game.NewRand(seed),
		RemoteTimeout: a.cfg.RemoteTimeout,
		SyncDebounce:  a.cfg.SyncDebounce,
		Log:           a.log,
		OnSubmitted: func(_ int, rank int, err error) {
			if err != nil {
				return
			}
			p.mu.Lock()
			p.rank = rank
			p.mu.Unlock()
		},
	}

	mp, err := cl.LoadSession(a.cfg.DataDir)
	switch {
	case err == nil:
		p.remote = &cl.Remote{Client: a.client(), Session: mp}
		opts.Backend = p.remote
		opts.PlayerID = mp.PlayerID
		if mp.InCity() {
			opts.Mode = game.ModeCity
		}
	case !errors.Is(err, cl.ErrUnauthorized):
		a.log.Warn("ignoring unreadable session", "err", err)
	}

	s, err := session.Open(opts)
	if err != nil {
		if p.sqlite != nil {
			_ = p.sqlite.Close()
		}
		return nil, err
	}
	p.sess = s
	return p, nil
}

func (p *play) close() {
	_ = p.sess.Close()
	if p.sqlite != nil {
		_ = p.sqlite.Close()
	}
	p.mu.Lock()
	rank := p.rank
	p.mu.Unlock()
	if rank > 0 {
		printInfo(fmt.Sprintf("Submitted. All-time rank #%d.", rank))
	}
}

// withPlay opens the stand around fn and closes it afterwards so pending
// syncs are flushed before the process exits.
func (a *app) withPlay(fn func(cmd *cobra.Command, args []string, p *play) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		p, err := a.openPlay()
		if err != nil {
			return err
		}
		defer p.close()
		return fn(cmd, args, p)
	}
}

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show your stand",
		RunE: a.withPlay(func(cmd *cobra.Command, args []string, p *play) error {
			renderStatus(p.sess.State(), p.sess.Mode())
			return nil
		}),
	}
}

func (a *app) newDayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "day",
		Short: "Open the stand for one day",
		RunE: a.withPlay(func(cmd *cobra.Command, args []string, p *play) error {
			report, err := p.sess.StartDay(cmd.Context())
			if errors.Is(err, game.ErrNoInventory) {
				printWarn("No lemonade to sell. Buy stock first, e.g. `empire buy 20`.")
				return nil
			}
			if err != nil {
				return err
			}
			renderDay(report, p.sess.State())
			if tip, ok := game.DayTip(report.Day + 1); ok {
				printInfo("Tip: " + tip)
			}
			if p.sqlite != nil {
				if err := p.sqlite.RecordDay(report); err != nil {
					a.log.Warn("day history not recorded", "err", err)
				}
			}
			if p.remote != nil {
				a.completeChallenges(cmd.Context(), p, report)
			}
			return nil
		}),
	}
}

// completeChallenges reports every daily challenge the day satisfied.
func (a *app) completeChallenges(ctx context.Context, p *play, report game.DayReport) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RemoteTimeout)
	defer cancel()
	token := p.remote.Session.AccessToken
	list, err := p.remote.Client.Challenges(ctx, token)
	if err != nil {
		a.log.Warn("challenges unavailable", "err", err)
		return
	}
	st := p.sess.State()
	for _, c := range list {
		if !c.Met(report, st) {
			continue
		}
		err := p.remote.Client.CompleteChallenge(ctx, token, c.ID, c.Score(report, st))
		switch {
		case err == nil:
			printSuccess(fmt.Sprintf("Challenge complete: %s (reward %s)", c.Title, formatMoney(c.Reward)))
		case cl.IsStatus(err, 409):
		default:
			a.log.Warn("challenge not recorded", "err", err, "challenge_id", c.ID)
		}
	}
}

func (a *app) newPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price <amount>",
		Short: "Set the price per cup",
		Args:  cobra.ExactArgs(1),
		RunE: a.withPlay(func(cmd *cobra.Command, args []string, p *play) error {
			price, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(args[0]), "$"), 64)
			if err != nil {
				return fmt.Errorf("invalid price %q", args[0])
			}
			if err := p.sess.SetPrice(price); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Price set to %s.", formatMoney(price)))
			return nil
		}),
	}
}

func (a *app) newBuyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buy <cups>",
		Short: "Buy lemonade stock",
		Args:  cobra.ExactArgs(1),
		RunE: a.withPlay(func(cmd *cobra.Command, args []string, p *play) error {
			units, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[0])
			}
			out, err := p.sess.BuyStock(units)
			if err != nil {
				return err
			}
			st := p.sess.State()
			printSuccess(fmt.Sprintf("Bought %d cups for %s. Inventory %d/%d, cash %s.",
				out.Units, formatMoney(out.Cost), st.Inventory, st.MaxInventory, formatMoney(st.Cash)))
			return nil
		}),
	}
}

func (a *app) newUpgradeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "upgrade [marketing|quality|efficiency|storage]",
		Short: "List or buy upgrades",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.withPlay(func(cmd *cobra.Command, args []string, p *play) error {
			if len(args) == 0 {
				accent.Println("\n== UPGRADES ==")
				for _, u := range game.Upgrades {
					q, err := p.sess.QuoteUpgrade(u.ID)
					if err != nil {
						return err
					}
					fmt.Printf("  %-11s -> lvl %-3d %10s  %s\n", u.ID, q.NextLevel, formatMoney(q.Cost), u.Desc)
				}
				fmt.Println()
				return nil
			}
			id := strings.ToLower(strings.TrimSpace(args[0]))
			q, err := p.sess.QuoteUpgrade(id)
			if err != nil {
				return err
			}
			if q.Risky && !yes {
				printWarn(fmt.Sprintf("After this upgrade you would have %s left, less than %s for ten cups of stock.",
					formatMoney(q.CashAfter), formatMoney(q.MinStock)))
				ok, err := promptConfirm("Buy anyway?")
				if err != nil {
					return err
				}
				if !ok {
					printInfo("Upgrade cancelled.")
					return nil
				}
			}
			q, err = p.sess.BuyUpgrade(id)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("%s upgraded to level %d for %s.", q.ID, q.NextLevel, formatMoney(q.Cost)))
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the low-cash confirmation")
	return cmd
}

func (a *app) newLocationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "location",
		Short: "Buy another location",
		RunE: a.withPlay(func(cmd *cobra.Command, args []string, p *play) error {
			loc, err := p.sess.BuyLocation()
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Opened %s for %s (rent %s/day).", loc.Name, formatMoney(loc.PurchasePrice), formatMoney(loc.RentPerDay)))
			return nil
		}),
	}
}

func (a *app) newAutoBuyCmd() *cobra.Command {
	var threshold, target int
	cmd := &cobra.Command{
		Use:   "autobuy <on|off>",
		Short: "Restock automatically around each day",
		Args:  cobra.ExactArgs(1),
		RunE: a.withPlay(func(cmd *cobra.Command, args []string, p *play) error {
			var enabled bool
			switch strings.ToLower(args[0]) {
			case "on":
				enabled = true
			case "off":
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			st := p.sess.State()
			if !cmd.Flags().Changed("threshold") {
				threshold = st.AutoBuy.Threshold
			}
			if !cmd.Flags().Changed("target") {
				target = st.AutoBuy.TargetPercent
			}
			if err := p.sess.SetAutoBuy(enabled, threshold, target); err != nil {
				return err
			}
			if enabled {
				printSuccess(fmt.Sprintf("Auto-buy on: below %d cups, refill to %d%% of storage.", threshold, target))
			} else {
				printSuccess("Auto-buy off.")
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&threshold, "threshold", 0, "restock when inventory drops below this many cups")
	cmd.Flags().IntVar(&target, "target", 0, "refill to this percent of storage")
	return cmd
}

func (a *app) newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name>",
		Short: "Rename your business",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.withPlay(func(cmd *cobra.Command, args []string, p *play) error {
			if err := p.sess.Rename(strings.Join(args, " ")); err != nil {
				return err
			}
			printSuccess("Business renamed to " + p.sess.State().BusinessName + ".")
			return nil
		}),
	}
}

func (a *app) newResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Start over with a fresh stand",
		RunE: a.withPlay(func(cmd *cobra.Command, args []string, p *play) error {
			if !yes {
				ok, err := promptConfirm("This wipes your stand. Continue?")
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			if err := p.sess.Reset(); err != nil {
				return err
			}
			printSuccess("Fresh stand ready.")
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent days (sqlite store only)",
		RunE: a.withPlay(func(cmd *cobra.Command, args []string, p *play) error {
			if p.sqlite == nil {
				printWarn("Day history needs EMPIRE_STORE=sqlite.")
				return nil
			}
			rows, err := p.sqlite.History(limit)
			if err != nil {
				return err
			}
			renderHistory(rows)
			return nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of days")
	return cmd
}

func (a *app) newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay submissions queued while offline",
		RunE: a.withPlay(func(cmd *cobra.Command, args []string, p *play) error {
			if p.remote == nil {
				return fmt.Errorf("%w: run `empire guest` first", cl.ErrUnauthorized)
			}
			queue := syncq.New(a.cfg.DataDir)
			before, err := queue.Len()
			if err != nil {
				return err
			}
			if before == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			sent, err := p.sess.Replay(cmd.Context())
			remaining, _ := queue.Len()
			if err != nil {
				printError(fmt.Sprintf("Sync stopped: %v", err))
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", sent, remaining))
			return nil
		}),
	}
}
