package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/finance/application"
	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
)

type AccountServiceInterface interface {
	Create(ctx context.Context, userID string, in application.AccountInput) (*domain.Account, error)
	List(ctx context.Context, userID string) ([]domain.Account, error)
	Get(ctx context.Context, userID string, id int) (*domain.Account, error)
	Update(ctx context.Context, userID string, id int, name string, accountType domain.AccountType) (*domain.Account, error)
	Delete(ctx context.Context, userID string, id int) error
}

type AccountHandler struct {
	responder
	service AccountServiceInterface
}

func NewAccountHandler(service AccountServiceInterface, respondJSON RespondJSONFunc, respondError RespondErrorFunc, log logrus.FieldLogger) *AccountHandler {
	if service == nil {
		panic("account service must not be nil")
	}
	return &AccountHandler{
		responder: newResponder(respondJSON, respondError, log),
		service:   service,
	}
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req struct {
		Name           string             `json:"name"`
		CurrencyID     int                `json:"currency_id"`
		AccountType    domain.AccountType `json:"account_type"`
		OpeningBalance decimal.Decimal    `json:"opening_balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.service.Create(r.Context(), userID, application.AccountInput{
		Name:           req.Name,
		CurrencyID:     req.CurrencyID,
		Type:           req.AccountType,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		h.fail(w, err, "Failed to create account")
		return
	}
	h.success(w, http.StatusCreated, "Account successfully created.", account)
}

func (h *AccountHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	accounts, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.fail(w, err, "Failed to retrieve accounts")
		return
	}
	h.success(w, http.StatusOK, "Accounts retrieved successfully.", accounts)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}
	account, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		h.fail(w, err, "Failed to retrieve account")
		return
	}
	h.success(w, http.StatusOK, "Account retrieved successfully.", account)
}

func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}
	var req struct {
		Name        string             `json:"name"`
		AccountType domain.AccountType `json:"account_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	account, err := h.service.Update(r.Context(), userID, id, req.Name, req.AccountType)
	if err != nil {
		h.fail(w, err, "Failed to update account")
		return
	}
	h.success(w, http.StatusOK, "Account successfully updated.", account)
}

func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.fail(w, err, "Failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
