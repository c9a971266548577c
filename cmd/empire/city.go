package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"empire/internal/city"
	cl "empire/internal/cli"
	"empire/internal/game"
	"empire/internal/store"

	"github.com/spf13/cobra"
)

const chatCooldown = 5 * time.Second

func (a *app) remoteCtx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func (a *app) newGuestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guest [display name]",
		Short: "Sign in as a guest to play online",
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(strings.Join(args, " "))
			if name == "" {
				var err error
				if name, err = promptRequired("Display name"); err != nil {
					return err
				}
			}
			ctx, cancel := a.remoteCtx(cmd)
			defer cancel()
			client := a.client()
			out, err := client.GuestSignIn(ctx, name)
			if err != nil {
				return err
			}
			sess := cl.Session{
				AccessToken:  out.Session.AccessToken,
				RefreshToken: out.Session.RefreshToken,
				PlayerID:     out.Player.ID,
				PlayerName:   out.Player.DisplayName,
				Mode:         game.ModeSolo,
			}
			// Restore the city the player was already in, if any.
			if st, err := client.MyCity(ctx, sess.AccessToken); err == nil {
				sess = withCity(sess, st)
			} else if !cl.IsStatus(err, http.StatusNotFound) && !cl.IsStatus(err, http.StatusForbidden) {
				a.log.Warn("active city unavailable", "err", err)
			}
			if err := cl.SaveSession(a.cfg.DataDir, sess); err != nil {
				return err
			}
			a.adoptServerSave(ctx, client, sess.AccessToken)
			printSuccess(fmt.Sprintf("Signed in as %s.", sess.PlayerName))
			if sess.InCity() {
				printInfo("Playing in " + sess.CityName + ".")
			}
			return nil
		},
	}
}

// adoptServerSave pulls the server copy of the stand when the local one has
// never been played.
func (a *app) adoptServerSave(ctx context.Context, client *cl.Client, token string) {
	if err := os.MkdirAll(a.cfg.DataDir, 0o700); err != nil {
		return
	}
	var local interface {
		Save(*game.State) error
		Load() (*game.State, error)
	}
	if a.cfg.Store == "sqlite" {
		db, err := store.OpenSQLite(filepath.Join(a.cfg.DataDir, "empire.db"), a.log)
		if err != nil {
			a.log.Warn("local save unavailable", "err", err)
			return
		}
		defer db.Close()
		local = db
	} else {
		local = store.NewFileStore(a.cfg.DataDir, a.log)
	}
	st, err := local.Load()
	if err == nil && st.Day > 1 {
		return
	}
	if err != nil && !errors.Is(err, store.ErrNoSave) {
		return
	}
	remote, err := client.LoadState(ctx, token)
	if err != nil {
		if !cl.IsStatus(err, http.StatusNotFound) {
			a.log.Warn("server save unavailable", "err", err)
		}
		return
	}
	if remote.Day <= 1 {
		return
	}
	if err := local.Save(remote); err != nil {
		a.log.Warn("server save not stored", "err", err)
		return
	}
	printInfo(fmt.Sprintf("Restored your stand from the server (day %d).", remote.Day))
}

func withCity(sess cl.Session, st city.State) cl.Session {
	sess.CityID = st.ID
	sess.CityName = st.Name
	sess.JoinCode = ""
	if st.Private {
		sess.JoinCode = st.JoinCode
	}
	sess.Mode = game.ModeCity
	return sess
}

func (a *app) newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Renew an expired online session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.signedIn()
			if err != nil {
				return err
			}
			if sess.RefreshToken == "" {
				return fmt.Errorf("%w: run `empire guest` again", cl.ErrUnauthorized)
			}
			ctx, cancel := a.remoteCtx(cmd)
			defer cancel()
			out, err := a.client().RefreshSession(ctx, sess.RefreshToken)
			if err != nil {
				return err
			}
			sess.AccessToken = out.AccessToken
			if out.RefreshToken != "" {
				sess.RefreshToken = out.RefreshToken
			}
			if err := cl.SaveSession(a.cfg.DataDir, sess); err != nil {
				return err
			}
			printSuccess("Session renewed.")
			return nil
		},
	}
}

func (a *app) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the online session and play solo",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(a.cfg.DataDir); err != nil {
				return err
			}
			printSuccess("Logged out. Your stand stays on this machine.")
			return nil
		},
	}
}

func (a *app) newCityCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "city",
		Short: "Join and manage your city",
	}
	joined := func(cmd *cobra.Command, join func(ctx context.Context, client *cl.Client, token string) (city.State, error)) error {
		sess, err := a.signedIn()
		if err != nil {
			return err
		}
		ctx, cancel := a.remoteCtx(cmd)
		defer cancel()
		st, err := join(ctx, a.client(), sess.AccessToken)
		if err != nil {
			return err
		}
		if err := cl.SaveSession(a.cfg.DataDir, withCity(sess, st)); err != nil {
			return err
		}
		printSuccess("Welcome to " + st.Name + "!")
		renderCity(st)
		return nil
	}
	c.AddCommand(&cobra.Command{
		Use:   "join",
		Short: "Join the busiest public city with room",
		RunE: func(cmd *cobra.Command, args []string) error {
			return joined(cmd, func(ctx context.Context, client *cl.Client, token string) (city.State, error) {
				return client.JoinCity(ctx, token)
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create a private city and get its join code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return joined(cmd, func(ctx context.Context, client *cl.Client, token string) (city.State, error) {
				return client.CreateCity(ctx, token)
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "code <join code>",
		Short: "Join a private city by code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.ToUpper(strings.TrimSpace(args[0]))
			return joined(cmd, func(ctx context.Context, client *cl.Client, token string) (city.State, error) {
				return client.JoinByCode(ctx, token, code)
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "leave",
		Short: "Leave your city and play solo",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.signedIn()
			if err != nil {
				return err
			}
			if !sess.InCity() {
				printInfo("You are not in a city.")
				return nil
			}
			ctx, cancel := a.remoteCtx(cmd)
			defer cancel()
			if err := a.client().LeaveCity(ctx, sess.AccessToken, sess.CityID); err != nil && !cl.IsStatus(err, http.StatusForbidden) {
				return err
			}
			name := sess.CityName
			sess.CityID, sess.CityName, sess.JoinCode = "", "", ""
			sess.Mode = game.ModeSolo
			if err := cl.SaveSession(a.cfg.DataDir, sess); err != nil {
				return err
			}
			printSuccess("Left " + name + ". Playing solo.")
			return nil
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "state",
		Short: "Show your city's economy",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.inCity()
			if err != nil {
				return err
			}
			ctx, cancel := a.remoteCtx(cmd)
			defer cancel()
			st, err := a.client().CityState(ctx, sess.AccessToken, sess.CityID)
			if err != nil {
				return err
			}
			renderCity(st)
			return nil
		},
	})
	return c
}

func (a *app) inCity() (cl.Session, error) {
	sess, err := a.signedIn()
	if err != nil {
		return sess, err
	}
	if !sess.InCity() {
		return sess, fmt.Errorf("%w: run `empire city join` first", cl.ErrNotInCity)
	}
	return sess, nil
}

func (a *app) newChatCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Read or post city chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.inCity()
			if err != nil {
				return err
			}
			ctx, cancel := a.remoteCtx(cmd)
			defer cancel()
			client := a.client()
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				msgs, err := client.Chat(ctx, sess.AccessToken, sess.CityID, limit)
				if err != nil {
					return err
				}
				renderChat(msgs)
				return nil
			}
			if wait := a.chatWait(); wait > 0 {
				return fmt.Errorf("slow down: wait %s before sending again", wait.Round(100*time.Millisecond))
			}
			msg, err := client.SendChat(ctx, sess.AccessToken, sess.CityID, text)
			if err != nil {
				return err
			}
			a.markChat()
			renderChatLine(msg)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "messages to show")
	return cmd
}

// The cooldown outlives a single invocation, so it is kept as the mtime of a
// marker file.
func (a *app) chatStampPath() string {
	return filepath.Join(a.cfg.DataDir, "chat.stamp")
}

func (a *app) chatWait() time.Duration {
	info, err := os.Stat(a.chatStampPath())
	if err != nil {
		return 0
	}
	return chatCooldown - time.Since(info.ModTime())
}

func (a *app) markChat() {
	path := a.chatStampPath()
	now := time.Now()
	if err := os.Chtimes(path, now, now); err == nil {
		return
	}
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		a.log.Warn("chat cooldown not recorded", "err", err)
	}
}

func (a *app) newLeaderboardCmd() *cobra.Command {
	var boardType, metric, date string
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show rankings",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.signedIn()
			if err != nil {
				return err
			}
			q := city.LeaderboardQuery{
				Type:   city.BoardType(strings.ToLower(boardType)),
				Metric: strings.ToLower(metric),
				Date:   date,
				Limit:  limit,
			}
			if q.Type == city.BoardCity {
				if !sess.InCity() {
					return fmt.Errorf("%w: the city board needs a city", cl.ErrNotInCity)
				}
				q.CityID = sess.CityID
			}
			ctx, cancel := a.remoteCtx(cmd)
			defer cancel()
			rows, err := a.client().Leaderboard(ctx, sess.AccessToken, q)
			if err != nil {
				return err
			}
			title := strings.ToUpper(fmt.Sprintf("%s %s", q.Type, q.Metric))
			renderLeaderboard(rows, title, q.Metric != city.MetricCustomers)
			return nil
		},
	}
	cmd.Flags().StringVar(&boardType, "type", string(city.BoardAllTime), "daily, alltime or city")
	cmd.Flags().StringVar(&metric, "metric", city.MetricRevenue, "revenue or customers")
	cmd.Flags().StringVar(&date, "date", "", "day for the daily board (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&limit, "limit", 10, "rows to show")
	return cmd
}

func (a *app) newChallengesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "challenges",
		Short: "Show today's challenges",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.signedIn()
			if err != nil {
				return err
			}
			ctx, cancel := a.remoteCtx(cmd)
			defer cancel()
			list, err := a.client().Challenges(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			renderChallenges(list)
			return nil
		},
	}
}

func (a *app) newFeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "Follow your city live until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.inCity()
			if err != nil {
				return err
			}
			sub, err := a.client().Subscribe(cmd.Context(), sess.AccessToken, sess.CityID)
			if err != nil {
				return err
			}
			defer sub.Close()
			accent.Printf("Following %s. Ctrl-C to stop.\n", sess.CityName)
			for ev := range sub.C {
				renderEvent(ev)
			}
			if cmd.Context().Err() == nil {
				printWarn("Feed closed by the server.")
			}
			return nil
		},
	}
}
