package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/champ-index/internal/middleware"
	"github.com/Sternrassler/champ-index/pkg/metrics"
	"github.com/Sternrassler/champ-index/pkg/model"
	"github.com/Sternrassler/champ-index/pkg/search"
	"github.com/Sternrassler/champ-index/pkg/serialize"
	"github.com/Sternrassler/champ-index/pkg/veto"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// server answers queries against one immutable index.
type server struct {
	idx      *model.Index
	searcher *search.Searcher
	mapPool  []string
	logger   zerolog.Logger
}

func newServer(idx *model.Index, mapPool []string, searchTTL time.Duration, logger zerolog.Logger) *server {
	return &server{
		idx:      idx,
		searcher: search.New(idx, searchTTL, nil, logger),
		mapPool:  mapPool,
		logger:   logger,
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("GET /teams/search", s.handleSearch)
	mux.HandleFunc("GET /teams/{id}", s.handleTeam)
	mux.HandleFunc("GET /veto", s.handleVeto)
	mux.HandleFunc("GET /export", s.handleExport)
	return mux
}

// handler wraps the routes with request tagging and CORS for the given
// browser origins.
func (s *server) handler(allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.HeaderRequestID},
	})
	return middleware.RequestID(s.logger)(c.Handler(s.routes()))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

type searchResponse struct {
	Query string       `json:"query"`
	Hits  []search.Hit `json:"hits"`
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if search.Normalize(q) == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	s.writeJSON(w, http.StatusOK, searchResponse{Query: q, Hits: s.searcher.Search(q, limit)})
}

type teamPlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type teamResponse struct {
	*model.TeamEntry
	WinRate float64      `json:"win_rate"`
	Roster  []teamPlayer `json:"roster"`
}

func (s *server) handleTeam(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	team, ok := s.idx.Teams[id]
	if !ok {
		s.writeError(w, http.StatusNotFound, "team not found: "+id)
		return
	}

	roster := make([]teamPlayer, 0, team.Players.Len())
	for _, pid := range team.Players.Values() {
		p := teamPlayer{ID: pid, Name: pid}
		if entry, ok := s.idx.Players[pid]; ok {
			p.Name = entry.Name
		}
		roster = append(roster, p)
	}

	s.writeJSON(w, http.StatusOK, teamResponse{TeamEntry: team, WinRate: team.WinRate(), Roster: roster})
}

func (s *server) handleVeto(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	teamA, teamB := query.Get("a"), query.Get("b")
	if teamA == "" || teamB == "" {
		s.writeError(w, http.StatusBadRequest, "query parameters a and b are required")
		return
	}

	if s.idx.StatsOmitted {
		s.writeError(w, http.StatusServiceUnavailable, "per-round statistics were omitted from the loaded snapshot; map win rates are unavailable until they are fetched again")
		return
	}

	format := veto.BO1
	if v := query.Get("format"); v != "" {
		f, err := veto.ParseFormat(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}

	summaryA, err := veto.Summarize(s.idx, teamA)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	summaryB, err := veto.Summarize(s.idx, teamB)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	prediction, err := veto.PredictVeto(summaryA, summaryB, format, s.mapPool)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Debug().
		Str("team_a", teamA).
		Str("team_b", teamB).
		Str("format", string(format)).
		Strs("pool", prediction.PredictedPool).
		Msg("Veto predicted")
	s.writeJSON(w, http.StatusOK, prediction)
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	compressed := false
	if v := r.URL.Query().Get("compressed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "compressed must be true or false")
			return
		}
		compressed = b
	}

	text, err := serialize.Export(s.idx, compressed)
	if err != nil {
		s.logger.Error().Err(err).Msg("Export failed")
		s.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write export")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
