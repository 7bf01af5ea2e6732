package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/user"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUserLockedOut          = errors.New("account is temporarily locked")
	ErrInternalError          = errors.New("internal Server Error")
	ErrUser2FANotEnabled      = errors.New("two factor auth is not enabled")
	ErrUser2FAAlreadyEnabled  = errors.New("2fa auth already enabled")
	ErrTwoFactorNotRegistered = errors.New("two factor auth has not been registered")
	ErrInvalid2FACode         = errors.New("2fa code is invalid")
)

// UserStore is the part of the user service that authentication relies on.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByLoginOrEmail(ctx context.Context, loginOrEmail string) (*user.User, error)
	VerifyPassword(u *user.User, password string) bool
	IsLockedOut(u *user.User) bool
	RecordFailedLogin(ctx context.Context, id string) (bool, error)
	ResetFailedLogins(ctx context.Context, id string) error
}

type Service interface {
	Login(ctx context.Context, emailOrLogin, password string) (*user.User, string, string, error)
	VerifyTwoFactor(ctx context.Context, sessionToken, code string) (*user.User, string, string, error)
	RegisterTwoFactor(ctx context.Context, userID string) (string, error)
	ConfirmTwoFactor(ctx context.Context, userID, code string) error
	DisableTwoFactor(ctx context.Context, userID, code string) error
	RefreshAccessToken(ctx context.Context, userID string) (string, string, error)
	JWTAccessTokenMiddleware() func(http.Handler) http.Handler
	JWTRefreshTokenMiddleware() func(http.Handler) http.Handler
}

type service struct {
	repo           TwoFactorRepository
	users          UserStore
	sessionManager SessionManagerInterface
	jwtManager     JWTManagerInterface
	authenticator  TwoFactorAuthenticator
	log            logrus.FieldLogger
}

func NewAuthService(repo TwoFactorRepository, users UserStore, sessionManager SessionManagerInterface,
	jwtManager JWTManagerInterface, authenticator TwoFactorAuthenticator, log logrus.FieldLogger) Service {
	return &service{
		repo:           repo,
		users:          users,
		sessionManager: sessionManager,
		jwtManager:     jwtManager,
		authenticator:  authenticator,
		log:            log,
	}
}

func (s *service) loadUser(ctx context.Context, userID string) (*user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		s.log.WithError(err).Error("could not load user")
		return nil, ErrInternalError
	}
	return u, nil
}

func (s *service) issueTokens(u *user.User) (string, string, error) {
	accessToken, err := s.jwtManager.GenerateAccessJWT(u.ID)
	if err != nil {
		s.log.WithError(err).Error("error during JWT generation")
		return "", "", ErrInternalError
	}
	refreshToken, err := s.jwtManager.GenerateRefreshJWT(u.ID, u.SecurityStamp)
	if err != nil {
		s.log.WithError(err).Error("error during refresh token generation")
		return "", "", ErrInternalError
	}
	return accessToken, refreshToken, nil
}

// Login checks credentials. When the user has two-factor enabled the second
// return value is a session token and the refresh token is empty; otherwise
// they are the access and refresh tokens.
func (s *service) Login(ctx context.Context, emailOrLogin, password string) (*user.User, string, string, error) {
	existingUser, err := s.users.GetByLoginOrEmail(ctx, emailOrLogin)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, "", "", ErrInvalidCredentials
		}
		s.log.WithError(err).Error("error when getting user from database")
		return nil, "", "", ErrInternalError
	}

	if s.users.IsLockedOut(existingUser) {
		return nil, "", "", ErrUserLockedOut
	}

	if !s.users.VerifyPassword(existingUser, password) {
		locked, err := s.users.RecordFailedLogin(ctx, existingUser.ID)
		if err != nil {
			s.log.WithError(err).Error("could not record failed login")
			return nil, "", "", ErrInternalError
		}
		if locked {
			return nil, "", "", ErrUserLockedOut
		}
		return nil, "", "", ErrInvalidCredentials
	}

	if existingUser.AccessFailedCount > 0 || existingUser.LockoutEnd != nil {
		if err := s.users.ResetFailedLogins(ctx, existingUser.ID); err != nil {
			s.log.WithError(err).Warn("could not reset failed logins")
		}
	}

	if existingUser.TwoFactorEnabled {
		sessionToken, err := s.sessionManager.GenerateSessionToken(existingUser.ID)
		if err != nil {
			return nil, "", "", ErrInternalError
		}
		return existingUser, sessionToken, "", nil
	}

	accessToken, refreshToken, err := s.issueTokens(existingUser)
	if err != nil {
		return nil, "", "", err
	}
	s.log.WithField("user_id", existingUser.ID).Info("user logged in")
	return existingUser, accessToken, refreshToken, nil
}

func (s *service) VerifyTwoFactor(ctx context.Context, sessionToken, code string) (*user.User, string, string, error) {
	userID, err := s.sessionManager.VerifySessionToken(sessionToken)
	if err != nil {
		return nil, "", "", err
	}
	existingUser, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, "", "", err
	}
	if !existingUser.TwoFactorEnabled {
		return nil, "", "", ErrUser2FANotEnabled
	}

	secret, err := s.repo.GetTwoFactorSecret(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrTwoFactorNotRegistered) {
			return nil, "", "", ErrUser2FANotEnabled
		}
		return nil, "", "", ErrInternalError
	}
	if !s.authenticator.VerifyCode(secret, code) {
		return nil, "", "", ErrInvalid2FACode
	}
	s.sessionManager.DeleteSessionToken(sessionToken)

	accessToken, refreshToken, err := s.issueTokens(existingUser)
	if err != nil {
		return nil, "", "", err
	}
	return existingUser, accessToken, refreshToken, nil
}

// RegisterTwoFactor stores a fresh TOTP secret and returns its otpauth URI.
// Two-factor stays disabled until ConfirmTwoFactor succeeds.
func (s *service) RegisterTwoFactor(ctx context.Context, userID string) (string, error) {
	existingUser, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if existingUser.TwoFactorEnabled {
		return "", ErrUser2FAAlreadyEnabled
	}

	otpURI, secret, err := s.authenticator.GenerateSecret(existingUser.Email)
	if err != nil {
		s.log.WithError(err).Error("error during totp secret generation")
		return "", ErrInternalError
	}
	if err := s.repo.SaveTwoFactorSecret(ctx, userID, secret); err != nil {
		s.log.WithError(err).Error("could not save totp secret")
		return "", ErrInternalError
	}
	return otpURI, nil
}

func (s *service) ConfirmTwoFactor(ctx context.Context, userID, code string) error {
	existingUser, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if existingUser.TwoFactorEnabled {
		return ErrUser2FAAlreadyEnabled
	}

	secret, err := s.repo.GetTwoFactorSecret(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrTwoFactorNotRegistered) {
			return ErrTwoFactorNotRegistered
		}
		return ErrInternalError
	}
	if !s.authenticator.VerifyCode(secret, code) {
		return ErrInvalid2FACode
	}

	if err := s.repo.EnableTwoFactor(ctx, userID); err != nil {
		s.log.WithError(err).Error("could not enable two-factor authentication")
		return ErrInternalError
	}
	s.log.WithField("user_id", userID).Info("two-factor authentication enabled")
	return nil
}

func (s *service) DisableTwoFactor(ctx context.Context, userID, code string) error {
	existingUser, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !existingUser.TwoFactorEnabled {
		return ErrUser2FANotEnabled
	}

	secret, err := s.repo.GetTwoFactorSecret(ctx, userID)
	if err != nil {
		return ErrInternalError
	}
	if !s.authenticator.VerifyCode(secret, code) {
		return ErrInvalid2FACode
	}

	if err := s.repo.DisableTwoFactor(ctx, userID); err != nil {
		s.log.WithError(err).Error("could not disable two-factor authentication")
		return ErrInternalError
	}
	s.log.WithField("user_id", userID).Info("two-factor authentication disabled")
	return nil
}

// RefreshAccessToken requests are already checked in refresh token middleware
func (s *service) RefreshAccessToken(ctx context.Context, userID string) (string, string, error) {
	existingUser, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return s.issueTokens(existingUser)
}
