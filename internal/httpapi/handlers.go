package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/henzzito/pugbot/internal/config"
)

type createGameRequest struct {
	Name string `json:"name"`
}

func (s *Server) gamesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		games, err := s.DB.ListGames(r.Context())
		if err != nil {
			s.Log.WithError(err).Error("list games")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, games)
	case http.MethodPost:
		var req createGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			http.Error(w, "invalid game payload", http.StatusBadRequest)
			return
		}
		g, err := s.DB.CreateGame(r.Context(), strings.TrimSpace(req.Name))
		if err != nil {
			s.Log.WithError(err).Error("create game")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, g)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// gameHandler serves /api/games/{id} deletes and /api/games/{id}/maps reads.
func (s *Server) gameHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/games/")
	parts := strings.Split(rest, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	if len(parts) == 2 && parts[1] == "maps" {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		maps, err := s.DB.FindMapsForGame(r.Context(), id)
		if err != nil {
			s.Log.WithError(err).Error("list maps")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, maps)
		return
	}

	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.DB.DeleteGame(r.Context(), id); err != nil {
		s.Log.WithError(err).Error("delete game")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createMapRequest struct {
	Name   string `json:"name"`
	GameID int64  `json:"gameId"`
}

func (s *Server) mapsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createMapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" || req.GameID == 0 {
		http.Error(w, "invalid map payload", http.StatusBadRequest)
		return
	}
	m, err := s.DB.CreateMap(r.Context(), strings.TrimSpace(req.Name), req.GameID)
	if err != nil {
		s.Log.WithError(err).Error("create map")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, m)
}

func (s *Server) mapHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/maps/"), 10, 64)
	if err != nil {
		http.Error(w, "invalid map id", http.StatusBadRequest)
		return
	}
	if err := s.DB.DeleteMap(r.Context(), id); err != nil {
		s.Log.WithError(err).Error("delete map")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// optionsHandler reads or replaces the bot options. A successful update
// cancels every live match and restarts the chat connection so the new
// settings take effect from a clean slate.
func (s *Server) optionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.Config.Current())
	case http.MethodPost:
		var opts config.Options
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			http.Error(w, "invalid options payload", http.StatusBadRequest)
			return
		}
		if err := opts.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.Orch.CancelAll(r.Context(), "Bot settings were updated")
		if err := s.Config.Update(opts); err != nil {
			s.Log.WithError(err).Error("persist options")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if err := s.Transport.Restart(opts.BottedChannel); err != nil {
			s.Log.WithError(err).Error("chat restart")
			http.Error(w, "options saved but chat restart failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, opts)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type matchesResponse struct {
	Matches []string `json:"matches"`
}

func (s *Server) matchesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, matchesResponse{Matches: s.Orch.ActiveMatches()})
}
