package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/finance/application"
	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
)

const (
	defaultLimit = 20
	maxLimit     = 200
	maxBulkSize  = 1000
)

type TransactionServiceInterface interface {
	Create(ctx context.Context, userID string, transaction *domain.Transaction) error
	CreateBulk(ctx context.Context, userID string, transactions []*domain.Transaction) error
	Get(ctx context.Context, userID string, id uuid.UUID) (*domain.Transaction, error)
	List(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error)
	Update(ctx context.Context, userID string, transaction *domain.Transaction) error
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	Summary(ctx context.Context, userID string, startDate, endDate time.Time) (map[string]map[int]application.TransactionSummary, error)
	SummaryByCategory(ctx context.Context, userID string, startDate, endDate time.Time, transactionType *domain.TransactionType) ([]domain.CategorySummary, error)
}

type TransactionHandler struct {
	responder
	service TransactionServiceInterface
	now     func() time.Time
}

func NewTransactionHandler(service TransactionServiceInterface, respondJSON RespondJSONFunc, respondError RespondErrorFunc, log logrus.FieldLogger) *TransactionHandler {
	if service == nil {
		panic("transaction service must not be nil")
	}
	return &TransactionHandler{
		responder: newResponder(respondJSON, respondError, log),
		service:   service,
		now:       time.Now,
	}
}

func transactionID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	return id, err == nil
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var transaction domain.Transaction
	if err := json.NewDecoder(r.Body).Decode(&transaction); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.Create(r.Context(), userID, &transaction); err != nil {
		h.fail(w, err, "Failed to create transaction")
		return
	}
	h.success(w, http.StatusCreated, "Transaction successfully created.", transaction)
}

func (h *TransactionHandler) CreateTransactionsBulk(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req struct {
		Transactions []*domain.Transaction `json:"transactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Transactions) == 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid request body - no transactions provided")
		return
	}
	if len(req.Transactions) > maxBulkSize {
		h.respondError(w, http.StatusBadRequest, "Too many transactions in one request")
		return
	}
	for _, transaction := range req.Transactions {
		if transaction == nil {
			h.respondError(w, http.StatusBadRequest, "Invalid request body - null transaction")
			return
		}
	}

	if err := h.service.CreateBulk(r.Context(), userID, req.Transactions); err != nil {
		h.fail(w, err, "Failed to create transactions")
		return
	}
	h.success(w, http.StatusCreated, "Transactions successfully created.", req.Transactions)
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := transactionID(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}
	transaction, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		h.fail(w, err, "Failed to retrieve transaction")
		return
	}
	h.success(w, http.StatusOK, "Transaction retrieved successfully.", transaction)
}

func (h *TransactionHandler) GetUserTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()

	transactionType, ok := domain.ParseTransactionType(query.Get("type"))
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction type")
		return
	}

	startDate, endDate, msg := dateRange(r, h.now())
	if msg != "" {
		h.respondError(w, http.StatusBadRequest, msg)
		return
	}

	filter := domain.TransactionFilter{
		Type:  transactionType,
		From:  startDate,
		To:    endDate,
		Limit: defaultLimit,
		Page:  1,
	}

	if s := query.Get("account_id"); s != "" {
		accountID, err := strconv.Atoi(s)
		if err != nil || accountID <= 0 {
			h.respondError(w, http.StatusBadRequest, "Invalid account ID")
			return
		}
		filter.AccountID = &accountID
	}
	if s := query.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 || limit > maxLimit {
			h.respondError(w, http.StatusBadRequest, "Invalid limit value")
			return
		}
		filter.Limit = limit
	}
	if s := query.Get("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil || page <= 0 {
			h.respondError(w, http.StatusBadRequest, "Invalid page value")
			return
		}
		filter.Page = page
	}

	transactions, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		h.fail(w, err, "Failed to retrieve transactions")
		return
	}
	h.success(w, http.StatusOK, "Transactions retrieved successfully.", transactions)
}

func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := transactionID(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}
	var transaction domain.Transaction
	if err := json.NewDecoder(r.Body).Decode(&transaction); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	transaction.ID = id

	if err := h.service.Update(r.Context(), userID, &transaction); err != nil {
		h.fail(w, err, "Failed to update transaction")
		return
	}
	h.success(w, http.StatusOK, "Transaction successfully updated.", transaction)
}

func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := transactionID(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.fail(w, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TransactionHandler) GetTransactionSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	startDate, endDate, msg := dateRange(r, h.now())
	if msg != "" {
		h.respondError(w, http.StatusBadRequest, msg)
		return
	}

	summary, err := h.service.Summary(r.Context(), userID, startDate, endDate)
	if err != nil {
		h.fail(w, err, "Failed to retrieve transaction summary")
		return
	}
	h.success(w, http.StatusOK, "Transactions summary retrieved successfully.", summary)
}

func (h *TransactionHandler) GetTransactionSummaryByCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	transactionType, ok := domain.ParseTransactionType(r.URL.Query().Get("type"))
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction type")
		return
	}
	startDate, endDate, msg := dateRange(r, h.now())
	if msg != "" {
		h.respondError(w, http.StatusBadRequest, msg)
		return
	}

	summary, err := h.service.SummaryByCategory(r.Context(), userID, startDate, endDate, transactionType)
	if err != nil {
		h.fail(w, err, "Failed to retrieve category summary")
		return
	}
	h.success(w, http.StatusOK, "Category summary retrieved successfully.", summary)
}
