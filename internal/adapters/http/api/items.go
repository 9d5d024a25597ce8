package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/ktc/internal/domain/types"
)

// ItemDependencies defines the item operations used by the handlers.
type ItemDependencies interface {
	CreateItem(ctx context.Context, name, color string) (types.Entry, error)
	Item(ctx context.Context, id string) (types.ItemDetail, error)
}

// ItemsHandler handles item requests.
type ItemsHandler struct {
	deps ItemDependencies
}

// NewItemsHandler creates a new items handler.
func NewItemsHandler(deps ItemDependencies) *ItemsHandler {
	return &ItemsHandler{deps: deps}
}

type createItemRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// HandleCreateItem handles POST /items requests.
func (h *ItemsHandler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_item"
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	entry, err := h.deps.CreateItem(r.Context(), req.Name, req.Color)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// HandleGetItem handles GET /items/{id} requests.
func (h *ItemsHandler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_item"
	detail, err := h.deps.Item(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
