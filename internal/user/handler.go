package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/identity"
)

type Handler struct {
	userService Service
	log         logrus.FieldLogger
}

func NewHandler(userService Service, log logrus.FieldLogger) *Handler {
	return &Handler{
		userService: userService,
		log:         log,
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.WithError(err).Error("JSON encoding error")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	})
}

func profileResponse(u *User) map[string]interface{} {
	return map[string]interface{}{
		"user_id":           u.ID,
		"user_name":         u.UserName,
		"email":             u.Email,
		"email_confirmed":   u.EmailConfirmed,
		"first_name":        u.FirstName,
		"last_name":         u.LastName,
		"phone_number":      u.PhoneNumber,
		"2fa_enabled":       u.TwoFactorEnabled,
		"concurrency_stamp": u.ConcurrencyStamp,
		"created_at":        u.CreatedAt,
		"updated_at":        u.UpdatedAt,
	}
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Login     string `json:"login"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.userService.Register(r.Context(), RegisterInput{
		Email:     req.Email,
		UserName:  req.Login,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailAlreadyExists), errors.Is(err, ErrLoginAlreadyExists):
			h.respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrEmailLength), errors.Is(err, ErrLoginLength),
			errors.Is(err, ErrInvalidLogin), errors.Is(err, ErrPasswordTooShort):
			h.respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.respondError(w, http.StatusInternalServerError, "Could not register user")
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"data": map[string]string{
			"user_id": user.ID,
		},
	})
}

func (h *Handler) HandleGetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.respondError(w, http.StatusNotFound, "User not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Could not fetch user data")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   profileResponse(user),
	})
}

func (h *Handler) HandleUpdateUserProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		FirstName        string `json:"first_name"`
		LastName         string `json:"last_name"`
		PhoneNumber      string `json:"phone_number"`
		ConcurrencyStamp string `json:"concurrency_stamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ConcurrencyStamp == "" {
		h.respondError(w, http.StatusBadRequest, "concurrency_stamp is required")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, ProfileInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		PhoneNumber:      req.PhoneNumber,
		ConcurrencyStamp: req.ConcurrencyStamp,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			h.respondError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, ErrConcurrencyConflict):
			h.respondError(w, http.StatusConflict, err.Error())
		default:
			h.log.WithError(err).Error("could not update profile")
			h.respondError(w, http.StatusInternalServerError, "Could not update profile")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   profileResponse(user),
	})
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID, ok := identity.UserID(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	err := h.userService.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			h.respondError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, ErrInvalidOldPassword):
			h.respondError(w, http.StatusUnauthorized, "Invalid old password")
		case errors.Is(err, ErrPasswordTooShort):
			h.respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.respondError(w, http.StatusInternalServerError, "Could not change password")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Password changed successfully",
	})
}

func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.userService.Delete(r.Context(), userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.respondError(w, http.StatusNotFound, "User not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Could not delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Code == "" {
		h.respondError(w, http.StatusBadRequest, "email and code are required")
		return
	}

	if err := h.userService.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		switch {
		case errors.Is(err, ErrInvalidVerificationCode):
			h.respondError(w, http.StatusUnauthorized, "Invalid verification code")
		case errors.Is(err, ErrVerificationCodeExpired):
			h.respondError(w, http.StatusGone, "Verification code has expired")
		case errors.Is(err, ErrUserAlreadyVerified):
			h.respondError(w, http.StatusConflict, "User is already verified")
		default:
			h.respondError(w, http.StatusInternalServerError, "Could not verify email")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Email verified successfully",
	})
}

func (h *Handler) HandleResendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.userService.ResendVerificationCode(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			h.respondError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, ErrUserAlreadyVerified):
			h.respondError(w, http.StatusConflict, "User is already verified")
		case errors.Is(err, ErrTooManyEmailCodeRequests):
			h.respondError(w, http.StatusTooManyRequests, err.Error())
		default:
			h.respondError(w, http.StatusInternalServerError, "Could not send verification email")
		}
		return
	}

	h.respondJSON(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"message": "Verification email sent",
	})
}
