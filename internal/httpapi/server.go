// Package httpapi exposes the admin surface of the bot: login, game and map
// management, runtime options, and a live feed of announcer output. Chat
// users never touch this API; it exists for the channel owner.
package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/henzzito/pugbot/internal/auth"
	"github.com/henzzito/pugbot/internal/config"
	"github.com/henzzito/pugbot/internal/database"
	"github.com/henzzito/pugbot/internal/match"
	"github.com/henzzito/pugbot/internal/middleware"
)

// Transport is the chat connection the server restarts after an options
// update changes the botted channel.
type Transport interface {
	Restart(channel string) error
}

// Server holds the admin API dependencies.
type Server struct {
	Log       *logrus.Logger
	DB        *database.Store
	Config    *config.Store
	Orch      *match.Orchestrator
	Transport Transport
	Feed      *LiveFeed
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/login", s.loginHandler)

	// everything below requires a bearer token
	mux.Handle("/api/games", s.requireAuth(http.HandlerFunc(s.gamesHandler)))
	mux.Handle("/api/games/", s.requireAuth(http.HandlerFunc(s.gameHandler)))
	mux.Handle("/api/maps", s.requireAuth(http.HandlerFunc(s.mapsHandler)))
	mux.Handle("/api/maps/", s.requireAuth(http.HandlerFunc(s.mapHandler)))
	mux.Handle("/api/options", s.requireAuth(http.HandlerFunc(s.optionsHandler)))
	mux.Handle("/api/matches", s.requireAuth(http.HandlerFunc(s.matchesHandler)))
	mux.Handle("/api/live", s.requireAuth(http.HandlerFunc(s.liveHandler)))

	return middleware.LogMiddleware(s.Log)(mux)
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// loginHandler checks the admin password and issues a session token.
// ADMIN_PASSWORD_HASH (argon2id) is preferred; ADMIN_PASSWORD is the
// plain-text fallback for local setups.
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid login payload", http.StatusBadRequest)
		return
	}

	ok := false
	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); hash != "" {
		valid, err := auth.ComparePasswordAndHash(req.Password, hash)
		if err != nil {
			s.Log.WithError(err).Error("bad ADMIN_PASSWORD_HASH")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		ok = valid
	} else if plain := os.Getenv("ADMIN_PASSWORD"); plain != "" {
		ok = req.Password == plain
	}
	if !ok {
		http.Error(w, "invalid credentials", http.StatusForbidden)
		return
	}

	token, err := auth.CreateToken("admin")
	if err != nil {
		s.Log.WithError(err).Error("token creation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, loginResponse{Token: token})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			// websocket clients can't set headers; accept the token as a
			// query parameter on the live feed
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		if _, err := auth.VerifyToken(token); err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
