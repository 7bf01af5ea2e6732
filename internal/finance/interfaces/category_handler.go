package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
)

type CategoryServiceInterface interface {
	List(ctx context.Context, userID string) ([]domain.Category, error)
	Create(ctx context.Context, userID, name string) (*domain.Category, error)
	Rename(ctx context.Context, userID string, id int, name string) (*domain.Category, error)
	Delete(ctx context.Context, userID string, id int) error
}

type CategoryHandler struct {
	responder
	service CategoryServiceInterface
}

func NewCategoryHandler(service CategoryServiceInterface, respondJSON RespondJSONFunc, respondError RespondErrorFunc, log logrus.FieldLogger) *CategoryHandler {
	if service == nil {
		panic("category service must not be nil")
	}
	return &CategoryHandler{
		responder: newResponder(respondJSON, respondError, log),
		service:   service,
	}
}

type nameRequest struct {
	Name string `json:"name"`
}

func (h *CategoryHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	categories, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.fail(w, err, "Failed to retrieve categories")
		return
	}
	h.success(w, http.StatusOK, "Categories retrieved successfully.", categories)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	category, err := h.service.Create(r.Context(), userID, req.Name)
	if err != nil {
		h.fail(w, err, "Failed to create category")
		return
	}
	h.success(w, http.StatusCreated, "Category successfully created.", category)
}

func (h *CategoryHandler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid category ID")
		return
	}
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	category, err := h.service.Rename(r.Context(), userID, id, req.Name)
	if err != nil {
		h.fail(w, err, "Failed to update category")
		return
	}
	h.success(w, http.StatusOK, "Category successfully updated.", category)
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid category ID")
		return
	}
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.fail(w, err, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
