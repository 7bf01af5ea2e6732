package user

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	database "github.com/sebuszqo/FinanceLedger/internal/db"
	"github.com/sebuszqo/FinanceLedger/internal/email"
)

const (
	maxEmailLength    = 256
	minEmailLength    = 3
	maxLoginLength    = 30
	minLoginLength    = 3
	minPasswordLength = 8
	bcryptCost        = 12

	defaultCodeTTL         = 10 * time.Minute
	defaultResendInterval  = 2 * time.Minute
	defaultMaxCodeAttempts = 5
)

var (
	ErrInvalidEmail        = errors.New("email address is not valid")
	ErrEmailLength         = fmt.Errorf("email address is too long or too short, max length: %d, min length: %d", maxEmailLength, minEmailLength)
	ErrLoginLength         = fmt.Errorf("login is too long or too short, max length: %d, min length: %d", maxLoginLength, minLoginLength)
	ErrInvalidLogin        = errors.New("login may contain only letters, digits, '.', '_' and '-'")
	ErrPasswordTooShort    = fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrLoginAlreadyExists  = errors.New("login already exists")
	ErrInvalidOldPassword  = errors.New("invalid old password")
	ErrConcurrencyConflict = errors.New("profile was modified by another request")
	ErrInternalError       = errors.New("internal Server Error")

	ErrUserAlreadyVerified      = errors.New("user is already verified")
	ErrInvalidVerificationCode  = errors.New("invalid verification code")
	ErrVerificationCodeExpired  = errors.New("verification code expired")
	ErrTooManyEmailCodeRequests = errors.New("too many verification code requests, try again later")
)

type User struct {
	ID                   string     `json:"id"`
	UserName             string     `json:"user_name"`
	NormalizedUserName   string     `json:"-"`
	Email                string     `json:"email"`
	NormalizedEmail      string     `json:"-"`
	EmailConfirmed       bool       `json:"email_confirmed"`
	PasswordHash         string     `json:"-"`
	SecurityStamp        string     `json:"-"`
	ConcurrencyStamp     string     `json:"concurrency_stamp"`
	FirstName            string     `json:"first_name"`
	LastName             string     `json:"last_name"`
	PhoneNumber          string     `json:"phone_number"`
	PhoneNumberConfirmed bool       `json:"phone_number_confirmed"`
	TwoFactorEnabled     bool       `json:"two_factor_enabled"`
	LockoutEnabled       bool       `json:"-"`
	LockoutEnd           *time.Time `json:"-"`
	AccessFailedCount    int        `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type RegisterInput struct {
	Email     string
	UserName  string
	Password  string
	FirstName string
	LastName  string
}

type ProfileInput struct {
	FirstName        string
	LastName         string
	PhoneNumber      string
	ConcurrencyStamp string
}

// Options tune password hashing, the lockout policy and email verification.
type Options struct {
	BcryptCost       int
	LockoutThreshold int
	LockoutDuration  time.Duration

	CodeTTL         time.Duration
	ResendInterval  time.Duration
	MaxCodeAttempts int
	// CheckEmailHost resolves the MX host of a new address at registration.
	CheckEmailHost bool
}

type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByLoginOrEmail(ctx context.Context, loginOrEmail string) (*User, error)
	UpdateProfile(ctx context.Context, id string, in ProfileInput) (*User, error)
	ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error
	SetPassword(ctx context.Context, id, newPassword string) error
	VerifyPassword(u *User, password string) bool
	RecordFailedLogin(ctx context.Context, id string) (bool, error)
	ResetFailedLogins(ctx context.Context, id string) error
	IsLockedOut(u *User) bool
	Delete(ctx context.Context, id string) error
	VerifyEmail(ctx context.Context, emailAddress, code string) error
	ResendVerificationCode(ctx context.Context, emailAddress string) error
}

type service struct {
	repo      Repository
	tx        TxManager
	mailer    email.EmailSender
	opts      Options
	log       logrus.FieldLogger
	now       func() time.Time
	checkHost func(emailAddress string) error
}

func NewUserService(repo Repository, tx TxManager, mailer email.EmailSender, opts Options, log logrus.FieldLogger) Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcryptCost
	}
	if opts.LockoutThreshold == 0 {
		opts.LockoutThreshold = 5
	}
	if opts.LockoutDuration == 0 {
		opts.LockoutDuration = 5 * time.Minute
	}
	if opts.CodeTTL == 0 {
		opts.CodeTTL = defaultCodeTTL
	}
	if opts.ResendInterval == 0 {
		opts.ResendInterval = defaultResendInterval
	}
	if opts.MaxCodeAttempts == 0 {
		opts.MaxCodeAttempts = defaultMaxCodeAttempts
	}
	return &service{
		repo:      repo,
		tx:        tx,
		mailer:    mailer,
		opts:      opts,
		log:       log,
		now:       time.Now,
		checkHost: checkmail.ValidateHost,
	}
}

// Normalize produces the lookup key stored in normalized_user_name and
// normalized_email.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func (s *service) hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	return string(hashed), err
}

func generateStamp() (string, error) {
	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return "", fmt.Errorf("could not generate stamp: %w", err)
	}
	return hex.EncodeToString(token), nil
}

func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("could not generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func validateEmailAddress(emailAddress string) error {
	if len(emailAddress) > maxEmailLength || len(emailAddress) < minEmailLength {
		return ErrEmailLength
	}
	if err := checkmail.ValidateFormat(emailAddress); err != nil {
		return ErrInvalidEmail
	}
	// The format check also accepts display names and comments; only bare addresses are stored.
	if strings.ContainsAny(emailAddress, " \t<>()\"") {
		return ErrInvalidEmail
	}
	return nil
}

// validateEmailHost rejects domains without an MX record. A dial failure
// against a resolvable host is only logged, since outbound port 25 is often
// blocked.
func (s *service) validateEmailHost(emailAddress string) error {
	if !s.opts.CheckEmailHost {
		return nil
	}
	err := s.checkHost(emailAddress)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, checkmail.ErrUnresolvableHost):
		return ErrInvalidEmail
	default:
		s.log.WithError(err).WithField("email", emailAddress).Warn("email host check failed, continuing")
		return nil
	}
}

func validateLogin(login string) error {
	if n := utf8.RuneCountInString(login); n > maxLoginLength || n < minLoginLength {
		return ErrLoginLength
	}
	for _, r := range login {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-':
		default:
			return ErrInvalidLogin
		}
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	emailAddress := strings.TrimSpace(in.Email)
	if err := validateEmailAddress(emailAddress); err != nil {
		return nil, err
	}

	login := strings.TrimSpace(in.UserName)
	if login == "" {
		login = emailAddress[:strings.LastIndex(emailAddress, "@")]
	}
	if err := validateLogin(login); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	if err := s.validateEmailHost(emailAddress); err != nil {
		return nil, err
	}

	normalizedLogin, normalizedEmail := Normalize(login), Normalize(emailAddress)
	existing, err := s.repo.FindByNormalizedNameOrEmail(ctx, normalizedLogin, normalizedEmail)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		s.log.WithError(err).Error("could not check existing users")
		return nil, ErrInternalError
	}
	if existing != nil {
		if existing.NormalizedUserName == normalizedLogin {
			return nil, ErrLoginAlreadyExists
		}
		return nil, ErrEmailAlreadyExists
	}

	passwordHash, err := s.hashPassword(in.Password)
	if err != nil {
		s.log.WithError(err).Error("could not hash password")
		return nil, ErrInternalError
	}
	securityStamp, err := generateStamp()
	if err != nil {
		return nil, ErrInternalError
	}
	concurrencyStamp, err := generateStamp()
	if err != nil {
		return nil, ErrInternalError
	}

	user := &User{
		ID:                 uuid.NewString(),
		UserName:           login,
		NormalizedUserName: normalizedLogin,
		Email:              emailAddress,
		NormalizedEmail:    normalizedEmail,
		PasswordHash:       passwordHash,
		SecurityStamp:      securityStamp,
		ConcurrencyStamp:   concurrencyStamp,
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			if strings.Contains(database.ConstraintName(err), "user_name") {
				return nil, ErrLoginAlreadyExists
			}
			return nil, ErrEmailAlreadyExists
		}
		s.log.WithError(err).Error("could not create user")
		return nil, ErrInternalError
	}

	s.log.WithField("user_id", user.ID).Info("user registered")

	// The user can ask for a new code, so a mail failure does not undo the registration.
	if err := s.sendVerificationCode(ctx, user); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("could not send verification email")
	}
	return user, nil
}

func (s *service) sendVerificationCode(ctx context.Context, user *User) error {
	code, err := generateVerificationCode()
	if err != nil {
		return err
	}
	if err := s.repo.SaveVerificationCode(ctx, user.ID, code, s.now().Add(s.opts.CodeTTL)); err != nil {
		return err
	}
	return s.mailer.QueueEmail(user.Email, email.RegistrationConfirmationData{
		UserName:     user.UserName,
		Code:         code,
		ValidMinutes: int(s.opts.CodeTTL / time.Minute),
	})
}

// VerifyEmail confirms the address when code matches the latest one sent.
// Unknown addresses get ErrInvalidVerificationCode like a wrong code does.
func (s *service) VerifyEmail(ctx context.Context, emailAddress, code string) error {
	user, err := s.repo.GetByNormalizedLogin(ctx, Normalize(emailAddress))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidVerificationCode
		}
		return ErrInternalError
	}
	if user.EmailConfirmed {
		return ErrUserAlreadyVerified
	}

	stored, err := s.repo.GetVerificationCode(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrNoVerificationCode) {
			return ErrInvalidVerificationCode
		}
		s.log.WithError(err).Error("could not load verification code")
		return ErrInternalError
	}
	if stored.Attempts >= s.opts.MaxCodeAttempts {
		return ErrInvalidVerificationCode
	}
	if !s.now().Before(stored.ExpiresAt) {
		return ErrVerificationCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(stored.Code), []byte(strings.TrimSpace(code))) != 1 {
		if _, err := s.repo.IncrementVerificationAttempts(ctx, user.ID); err != nil {
			s.log.WithError(err).Error("could not record verification attempt")
		}
		return ErrInvalidVerificationCode
	}

	newStamp, err := generateStamp()
	if err != nil {
		return ErrInternalError
	}
	if err := s.repo.ConfirmEmail(ctx, user.ID, newStamp); err != nil {
		s.log.WithError(err).Error("could not confirm email")
		return ErrInternalError
	}
	s.log.WithField("user_id", user.ID).Info("email confirmed")
	return nil
}

func (s *service) ResendVerificationCode(ctx context.Context, emailAddress string) error {
	user, err := s.repo.GetByNormalizedLogin(ctx, Normalize(emailAddress))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return ErrInternalError
	}
	if user.EmailConfirmed {
		return ErrUserAlreadyVerified
	}

	stored, err := s.repo.GetVerificationCode(ctx, user.ID)
	switch {
	case err == nil:
		if s.now().Before(stored.CreatedAt.Add(s.opts.ResendInterval)) {
			return ErrTooManyEmailCodeRequests
		}
	case !errors.Is(err, ErrNoVerificationCode):
		s.log.WithError(err).Error("could not load verification code")
		return ErrInternalError
	}

	if err := s.sendVerificationCode(ctx, user); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("could not send verification email")
		return ErrInternalError
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByLoginOrEmail(ctx context.Context, loginOrEmail string) (*User, error) {
	return s.repo.GetByNormalizedLogin(ctx, Normalize(loginOrEmail))
}

func (s *service) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)

	newStamp, err := generateStamp()
	if err != nil {
		return nil, ErrInternalError
	}

	updated, err := s.repo.UpdateProfile(ctx, id, in, newStamp)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Either the user is gone or the stamp is stale.
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrConcurrencyConflict
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return ErrInternalError
	}

	if !s.VerifyPassword(user, oldPassword) {
		return ErrInvalidOldPassword
	}

	return s.SetPassword(ctx, id, newPassword)
}

// SetPassword replaces the password without checking the old one and rotates
// the security stamp, which revokes outstanding refresh tokens.
func (s *service) SetPassword(ctx context.Context, id, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	newPasswordHash, err := s.hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("could not hash password: %w", err)
	}

	newStamp, err := generateStamp()
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, id, newPasswordHash, newStamp); err != nil {
		return err
	}
	s.log.WithField("user_id", id).Info("password changed")
	return nil
}

func (s *service) VerifyPassword(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// RecordFailedLogin reports whether this failure locked the account.
func (s *service) RecordFailedLogin(ctx context.Context, id string) (bool, error) {
	_, lockoutEnd, err := s.repo.IncrementAccessFailed(ctx, id, s.opts.LockoutThreshold, s.now().Add(s.opts.LockoutDuration))
	if err != nil {
		return false, err
	}
	locked := lockoutEnd != nil && lockoutEnd.After(s.now())
	if locked {
		s.log.WithFields(logrus.Fields{"user_id": id, "until": lockoutEnd}).Warn("user locked out")
	}
	return locked, nil
}

func (s *service) ResetFailedLogins(ctx context.Context, id string) error {
	return s.repo.ResetAccessFailed(ctx, id)
}

func (s *service) IsLockedOut(u *User) bool {
	return u.LockoutEnabled && u.LockoutEnd != nil && u.LockoutEnd.After(s.now())
}

func (s *service) Delete(ctx context.Context, id string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.WithField("user_id", id).Info("user deleted")
	return nil
}
