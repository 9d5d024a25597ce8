// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/ktc/internal/adapters/repository"
	service "github.com/okian/ktc/internal/app"
	"github.com/okian/ktc/internal/domain/ballot"
	"github.com/okian/ktc/internal/domain/matchup"
	"github.com/okian/ktc/internal/domain/model"
	"github.com/okian/ktc/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ItemDependencies
	RankingsDependencies
	SessionDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	itemsHandler    *ItemsHandler
	rankingsHandler *RankingsHandler
	sessionsHandler *SessionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		itemsHandler:    NewItemsHandler(deps),
		rankingsHandler: NewRankingsHandler(deps),
		sessionsHandler: NewSessionsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /items", MetricsMiddleware(s.itemsHandler.HandleCreateItem, "create_item"))
	mux.HandleFunc("GET /items/{id}", MetricsMiddleware(s.itemsHandler.HandleGetItem, "get_item"))
	mux.HandleFunc("GET /rankings", MetricsMiddleware(s.rankingsHandler.HandleGetRankings, "rankings"))
	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.sessionsHandler.HandleCreateSession, "create_session"))
	mux.HandleFunc("GET /sessions/{id}/matchup", MetricsMiddleware(s.sessionsHandler.HandleGetMatchup, "matchup"))
	mux.HandleFunc("POST /sessions/{id}/votes", MetricsMiddleware(s.sessionsHandler.HandlePostVote, "vote"))
}

// Entry mirrors the read shape returned by rankings queries.
type Entry = types.Entry

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a service error onto a status and code.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		err = WrapKind(op, ErrInternal, err)
	} else {
		err = Wrap(op, err)
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ballot.ErrDuplicateSelection):
		return http.StatusBadRequest, "duplicate_selection"
	case errors.Is(err, ballot.ErrOutOfSet):
		return http.StatusBadRequest, "out_of_set"
	case errors.Is(err, model.ErrInvalidOutcome):
		return http.StatusBadRequest, "invalid_outcome"
	case errors.Is(err, service.ErrInvalidColor),
		errors.Is(err, service.ErrInvalidLimit),
		errors.Is(err, repository.ErrInvalidItem):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "item_not_found"
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, service.ErrNoMatchup):
		return http.StatusConflict, "no_matchup"
	case errors.Is(err, repository.ErrDuplicateItem):
		return http.StatusConflict, "duplicate_item"
	case errors.Is(err, matchup.ErrInsufficientItems):
		return http.StatusUnprocessableEntity, "insufficient_items"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
