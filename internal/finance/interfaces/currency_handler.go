package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
)

type CurrencyServiceInterface interface {
	List(ctx context.Context, userID string) ([]domain.Currency, error)
	Create(ctx context.Context, userID, code string) (*domain.Currency, error)
	Rename(ctx context.Context, userID string, id int, code string) (*domain.Currency, error)
	Delete(ctx context.Context, userID string, id int) error
}

type CurrencyHandler struct {
	responder
	service CurrencyServiceInterface
}

func NewCurrencyHandler(service CurrencyServiceInterface, respondJSON RespondJSONFunc, respondError RespondErrorFunc, log logrus.FieldLogger) *CurrencyHandler {
	if service == nil {
		panic("currency service must not be nil")
	}
	return &CurrencyHandler{
		responder: newResponder(respondJSON, respondError, log),
		service:   service,
	}
}

func (h *CurrencyHandler) GetCurrencies(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	currencies, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.fail(w, err, "Failed to retrieve currencies")
		return
	}
	h.success(w, http.StatusOK, "Currencies retrieved successfully.", currencies)
}

func (h *CurrencyHandler) CreateCurrency(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	currency, err := h.service.Create(r.Context(), userID, req.Name)
	if err != nil {
		h.fail(w, err, "Failed to create currency")
		return
	}
	h.success(w, http.StatusCreated, "Currency successfully created.", currency)
}

func (h *CurrencyHandler) RenameCurrency(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid currency ID")
		return
	}
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	currency, err := h.service.Rename(r.Context(), userID, id, req.Name)
	if err != nil {
		h.fail(w, err, "Failed to update currency")
		return
	}
	h.success(w, http.StatusOK, "Currency successfully updated.", currency)
}

func (h *CurrencyHandler) DeleteCurrency(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid currency ID")
		return
	}
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.fail(w, err, "Failed to delete currency")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
