package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/models"
)

// ItemRequest is the body of the item mutation endpoints
type ItemRequest struct {
	ItemName string `json:"item_name" validate:"required"`
}

// ItemHandler serves the shopping list endpoints
type ItemHandler struct {
	items  ItemService
	logger arbor.ILogger
}

// NewItemHandler creates a new item handler
func NewItemHandler(items ItemService, logger arbor.ILogger) *ItemHandler {
	return &ItemHandler{
		items:  items,
		logger: logger,
	}
}

// AllItemsHandler handles GET /items/all
func (h *ItemHandler) AllItemsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	h.writeItems(w, "all")(h.items.GetItems(r.Context(), ""))
}

// IncompleteItemsHandler handles GET /items/incomplete
func (h *ItemHandler) IncompleteItemsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	h.writeItems(w, "incomplete")(h.items.GetIncomplete(r.Context()))
}

// CompletedItemsHandler handles GET /items/completed
func (h *ItemHandler) CompletedItemsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	h.writeItems(w, "completed")(h.items.GetCompleted(r.Context()))
}

// ListsHandler handles GET /lists
func (h *ItemHandler) ListsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	lists, err := h.items.ListAllLists(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list shopping lists")
		WriteOperationError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, lists)
}

// AddItemHandler handles POST /items
func (h *ItemHandler) AddItemHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	name, ok := h.itemName(w, r)
	if !ok {
		return
	}

	if err := h.items.AddByName(r.Context(), name); err != nil {
		h.logger.Error().Err(err).Str("item", name).Msg("Failed to add item")
		WriteOperationError(w, err)
		return
	}

	h.logger.Info().Str("item", name).Msg("Item added")
	WriteMessage(w, http.StatusCreated, fmt.Sprintf("Item '%s' added successfully.", name))
}

// DeleteItemHandler handles DELETE /items
func (h *ItemHandler) DeleteItemHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	name, ok := h.itemName(w, r)
	if !ok {
		return
	}

	if _, err := h.items.DeleteByName(r.Context(), name); err != nil {
		h.writeMutationError(w, err, name, fmt.Sprintf("Item '%s' not found.", name))
		return
	}

	h.logger.Info().Str("item", name).Msg("Item deleted")
	WriteMessage(w, http.StatusOK, fmt.Sprintf("Item '%s' deleted successfully.", name))
}

// MarkCompletedHandler handles PUT /items/mark_completed
func (h *ItemHandler) MarkCompletedHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	name, ok := h.itemName(w, r)
	if !ok {
		return
	}

	if _, err := h.items.MarkCompletedByName(r.Context(), name); err != nil {
		h.writeMutationError(w, err, name, fmt.Sprintf("Incomplete item '%s' not found.", name))
		return
	}

	h.logger.Info().Str("item", name).Msg("Item marked completed")
	WriteMessage(w, http.StatusOK, fmt.Sprintf("Item '%s' marked as completed.", name))
}

// MarkIncompleteHandler handles PUT /items/mark_incomplete
func (h *ItemHandler) MarkIncompleteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	name, ok := h.itemName(w, r)
	if !ok {
		return
	}

	if _, err := h.items.MarkIncompleteByName(r.Context(), name); err != nil {
		h.writeMutationError(w, err, name, fmt.Sprintf("Completed item '%s' not found.", name))
		return
	}

	h.logger.Info().Str("item", name).Msg("Item marked incomplete")
	WriteMessage(w, http.StatusOK, fmt.Sprintf("Item '%s' marked as incomplete.", name))
}

func (h *ItemHandler) itemName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req ItemRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	name := strings.TrimSpace(req.ItemName)
	if name == "" {
		WriteError(w, http.StatusBadRequest, "item_name must not be blank")
		return "", false
	}
	return name, true
}

func (h *ItemHandler) writeItems(w http.ResponseWriter, view string) func([]models.ListItem, error) {
	return func(items []models.ListItem, err error) {
		if err != nil {
			h.logger.Error().Err(err).Str("view", view).Msg("Failed to fetch items")
			WriteOperationError(w, err)
			return
		}
		if items == nil {
			items = []models.ListItem{}
		}
		WriteJSON(w, http.StatusOK, items)
	}
}

func (h *ItemHandler) writeMutationError(w http.ResponseWriter, err error, name, notFound string) {
	if errors.Is(err, models.ErrItemNotFound) {
		WriteError(w, http.StatusNotFound, notFound)
		return
	}
	h.logger.Error().Err(err).Str("item", name).Msg("Item update failed")
	WriteOperationError(w, err)
}
