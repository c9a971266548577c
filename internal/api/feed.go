package api

import (
	"errors"
	"net/http"
	"time"

	"empire/internal/city"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	feedWriteWait  = 5 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = 45 * time.Second
)

// handleFeed streams the city's events to a member over a websocket until
// either side goes away.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	cityID := chi.URLParam(r, "id")
	cur, err := s.city.MyCity(r.Context(), user.PlayerID)
	if errors.Is(err, city.ErrCityNotFound) || (err == nil && cur.ID != cityID) {
		writeDomainError(w, city.ErrNotMember)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Subscribed before the handshake completes so nothing published after
	// the client sees the upgrade is missed.
	sub := s.feed.Subscribe(cityID)
	defer sub.Close()
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.log.Info("feed opened", "city_id", cityID, "player_id", user.PlayerID)

	// Reader: only pongs and close frames are expected.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(feedPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			s.log.Info("feed closed", "city_id", cityID, "player_id", user.PlayerID)
			return
		case ev, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(feedWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		}
	}
}
