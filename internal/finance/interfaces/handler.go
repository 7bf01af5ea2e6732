package interfaces

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	financeErrors "github.com/sebuszqo/FinanceLedger/internal/finance/errors"
	"github.com/sebuszqo/FinanceLedger/internal/identity"
)

type (
	RespondJSONFunc  func(w http.ResponseWriter, status int, payload interface{})
	RespondErrorFunc func(w http.ResponseWriter, status int, message string, errors ...[]string)
)

const dateLayout = "2006-01-02"

// responder carries the response helpers shared by every finance handler.
type responder struct {
	respondJSON  RespondJSONFunc
	respondError RespondErrorFunc
	log          logrus.FieldLogger
}

func newResponder(respondJSON RespondJSONFunc, respondError RespondErrorFunc, log logrus.FieldLogger) responder {
	if respondJSON == nil || respondError == nil {
		panic("response functions must not be nil")
	}
	return responder{respondJSON: respondJSON, respondError: respondError, log: log}
}

func (h responder) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return userID, ok
}

func (h responder) success(w http.ResponseWriter, status int, message string, data interface{}) {
	h.respondJSON(w, status, map[string]interface{}{
		"status":  "success",
		"message": message,
		"data":    data,
	})
}

// fail maps service errors onto HTTP statuses. Unknown errors are logged
// and reported with fallback.
func (h responder) fail(w http.ResponseWriter, err error, fallback string) {
	var validationErrors *financeErrors.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		h.respondError(w, http.StatusBadRequest, "Validation errors occurred", validationErrors.Messages())
	case financeErrors.IsValidationError(err):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, financeErrors.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, financeErrors.ErrForbidden):
		h.respondError(w, http.StatusForbidden, "Default entries cannot be modified")
	case errors.Is(err, financeErrors.ErrConflict):
		h.respondError(w, http.StatusConflict, "Resource conflicts with existing data or is still in use")
	default:
		h.log.WithError(err).Error(fallback)
		h.respondError(w, http.StatusInternalServerError, fallback)
	}
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	return id, err == nil && id > 0
}

// dateRange reads start_date and end_date (inclusive, YYYY-MM-DD). It
// defaults to the current year up to now and returns a half-open range.
func dateRange(r *http.Request, now time.Time) (time.Time, time.Time, string) {
	startDate := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := now

	if s := r.URL.Query().Get("start_date"); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			return time.Time{}, time.Time{}, "Invalid start date format"
		}
		startDate = parsed
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			return time.Time{}, time.Time{}, "Invalid end date format"
		}
		endDate = parsed.AddDate(0, 0, 1)
	}
	if !endDate.After(startDate) {
		return time.Time{}, time.Time{}, "End date must not be before start date"
	}
	return startDate, endDate, ""
}
