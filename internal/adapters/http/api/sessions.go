package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/ktc/internal/domain/model"
	"github.com/okian/ktc/internal/domain/types"
)

// SessionDependencies defines the voting operations used by the handlers.
type SessionDependencies interface {
	NewSession(ctx context.Context) string
	NextMatchup(ctx context.Context, sessionID string) (types.Matchup, error)
	SubmitVote(ctx context.Context, sessionID, voteID string, v model.Vote) (types.VoteReceipt, error)
}

// SessionsHandler handles session, matchup and vote requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

// voteRequest mirrors the body of POST /sessions/{id}/votes.
type voteRequest struct {
	VoteID string `json:"vote_id"`
	Keep   string `json:"keep"`
	Trade  string `json:"trade"`
	Cut    string `json:"cut"`
}

func (v voteRequest) vote() model.Vote {
	return model.Vote{Keep: v.Keep, Trade: v.Trade, Cut: v.Cut}
}

// HandleCreateSession handles POST /sessions requests.
func (h *SessionsHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: h.deps.NewSession(r.Context())})
}

// HandleGetMatchup handles GET /sessions/{id}/matchup requests.
func (h *SessionsHandler) HandleGetMatchup(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_matchup"
	m, err := h.deps.NextMatchup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandlePostVote handles POST /sessions/{id}/votes requests.
func (h *SessionsHandler) HandlePostVote(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_vote"
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	receipt, err := h.deps.SubmitVote(r.Context(), r.PathValue("id"), req.VoteID, req.vote())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	status := http.StatusAccepted
	if receipt.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, receipt)
}
