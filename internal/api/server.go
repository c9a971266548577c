package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"empire/internal/auth"
	"empire/internal/city"
	"empire/internal/config"
	"empire/internal/feed"
	"empire/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

type contextKey string

const userContextKey contextKey = "user"

const maxBodyBytes = 256 << 10

// Authenticator issues guest sessions and resolves bearer tokens to users.
type Authenticator interface {
	SignInAnonymously(ctx context.Context, displayName string) (auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (auth.Session, error)
	VerifyAccessToken(ctx context.Context, accessToken string) (auth.SupabaseUser, error)
}

type UserContext struct {
	AuthID   string
	PlayerID string
	Token    string
}

type Server struct {
	cfg      config.APIConfig
	log      *slog.Logger
	auth     Authenticator
	city     *city.Service
	feed     *feed.Broker
	upgrader websocket.Upgrader
	schemas  *schemas
	mux      *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, authClient Authenticator, citySvc *city.Service, broker *feed.Broker) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:  cfg,
		log:  logger,
		auth: authClient,
		city: citySvc,
		feed: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		schemas: mustCompileSchemas(),
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.With(middleware.Timeout(60*time.Second)).Post("/auth/guest", s.handleGuest)
		r.With(middleware.Timeout(60*time.Second)).Post("/auth/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			// The feed outlives any request timeout.
			r.Get("/cities/{id}/feed", s.handleFeed)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(60 * time.Second))
				r.Get("/players/me", s.handleMe)
				r.Patch("/players/me", s.handleRename)

				r.Get("/cities/mine", s.handleMyCity)
				r.Post("/cities", s.handleCreateCity)
				r.Post("/cities/join", s.handleJoinCity)
				r.Post("/cities/join/{code}", s.handleJoinByCode)
				r.Get("/cities/{id}", s.handleCityState)
				r.Post("/cities/{id}/leave", s.handleLeaveCity)
				r.Post("/cities/{id}/days", s.handleCityDay)
				r.Get("/cities/{id}/chat", s.handleChatList)
				r.Post("/cities/{id}/chat", s.handleChatSend)

				r.Post("/days", s.handleDayResult)
				r.Get("/leaderboard", s.handleLeaderboard)

				r.Get("/challenges", s.handleChallenges)
				r.Post("/challenges/{id}/complete", s.handleCompleteChallenge)

				r.Put("/saves", s.handleSaveGame)
				r.Get("/saves", s.handleLoadGame)
			})
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.auth.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		player, err := s.city.EnsurePlayer(r.Context(), user.ID, "")
		if err != nil {
			s.log.Error("ensure player", "err", err, "auth_id", user.ID)
			writeError(w, http.StatusInternalServerError, "could not load player")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			AuthID:   user.ID,
			PlayerID: player.ID,
			Token:    token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.PlayerID == "" {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.SignInAnonymously(r.Context(), strings.TrimSpace(in.DisplayName))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	player, err := s.city.EnsurePlayer(r.Context(), session.User.ID, in.DisplayName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"session": session, "player": player})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}
	session, err := s.auth.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	player, err := s.city.Player(r.Context(), user.PlayerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name, err := s.city.RenamePlayer(r.Context(), user.PlayerID, in.DisplayName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"display_name": name})
}

func (s *Server) handleMyCity(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	st, err := s.city.MyCity(r.Context(), user.PlayerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleCreateCity(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	player, err := s.city.Player(r.Context(), user.PlayerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	st, err := s.city.CreatePrivateCity(r.Context(), user.PlayerID, player.DisplayName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleJoinCity(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	st, err := s.city.JoinCity(r.Context(), user.PlayerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleJoinByCode(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	st, err := s.city.JoinByCode(r.Context(), user.PlayerID, chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleCityState(w http.ResponseWriter, r *http.Request) {
	st, err := s.city.City(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleLeaveCity(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := s.city.LeaveCity(r.Context(), user.PlayerID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCityDay(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var sub game.CitySubmission
	if err := s.decodeValidated(r, s.schemas.citySubmission, &sub); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sub.PlayerID = user.PlayerID
	alloc, err := s.city.SubmitDay(r.Context(), chi.URLParam(r, "id"), sub)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alloc)
}

func (s *Server) handleDayResult(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in city.DayResultInput
	if err := s.decodeValidated(r, s.schemas.dayResult, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.PlayerID = user.PlayerID
	rank, err := s.city.SubmitDayResult(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rank": rank})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ := city.BoardType(q.Get("type"))
	if typ == "" {
		typ = city.BoardAllTime
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	rows, err := s.city.Leaderboard(r.Context(), city.LeaderboardQuery{
		Type:   typ,
		Metric: q.Get("metric"),
		CityID: q.Get("city_id"),
		Date:   q.Get("date"),
		Limit:  limit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleChatList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	msgs, err := s.city.Chat(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := s.city.SendChat(r.Context(), chi.URLParam(r, "id"), user.PlayerID, in.Message)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	out, err := s.city.DailyChallenges(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"challenges": out})
}

func (s *Server) handleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Score float64 `json:"score"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.city.CompleteChallenge(r.Context(), user.PlayerID, chi.URLParam(r, "id"), in.Score); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSaveGame(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var st game.State
	if err := decodeJSON(r, &st); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st.Normalize()
	if err := s.city.SaveGame(r.Context(), user.PlayerID, &st); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "day": st.Day})
}

func (s *Server) handleLoadGame(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	st, err := s.city.LoadGame(r.Context(), user.PlayerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// decodeValidated checks the body against schema before decoding it into out.
func (s *Server) decodeValidated(r *http.Request, schema *jsonschema.Schema, out any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, city.ErrCityNotFound), errors.Is(err, city.ErrPlayerNotFound),
		errors.Is(err, city.ErrChallengeUnknown):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, city.ErrNotMember):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, city.ErrCityFull), errors.Is(err, city.ErrAlreadyCompleted),
		errors.Is(err, city.ErrJoinCodeTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, city.ErrInvalidName), errors.Is(err, city.ErrEmptyMessage),
		errors.Is(err, city.ErrInvalidBoard), errors.Is(err, city.ErrChallengeNotMet):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrInvalidPrice), errors.Is(err, game.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
