package user

import (
	"context"
	"sync"
	"time"

	"github.com/sebuszqo/FinanceLedger/internal/email"
)

type mockRepository struct {
	users      map[string]*User
	codes      map[string]*VerificationCode
	createErr  error
	saveErr    error
	failedArgs struct {
		threshold int
		end       time.Time
	}
}

func newMockRepository(users ...*User) *mockRepository {
	m := &mockRepository{users: make(map[string]*User), codes: make(map[string]*VerificationCode)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockRepository) Create(_ context.Context, user *User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	user.LockoutEnabled = true
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepository) GetByNormalizedLogin(_ context.Context, normalized string) (*User, error) {
	for _, u := range m.users {
		if u.NormalizedUserName == normalized || u.NormalizedEmail == normalized {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) FindByNormalizedNameOrEmail(_ context.Context, normalizedName, normalizedEmail string) (*User, error) {
	for _, u := range m.users {
		if u.NormalizedUserName == normalizedName || u.NormalizedEmail == normalizedEmail {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) UpdateProfile(_ context.Context, id string, in ProfileInput, newStamp string) (bool, error) {
	u, ok := m.users[id]
	if !ok || u.ConcurrencyStamp != in.ConcurrencyStamp {
		return false, nil
	}
	u.FirstName, u.LastName, u.PhoneNumber = in.FirstName, in.LastName, in.PhoneNumber
	u.ConcurrencyStamp = newStamp
	return true, nil
}

func (m *mockRepository) UpdatePassword(_ context.Context, id, hash, stamp string) error {
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash, u.SecurityStamp = hash, stamp
	u.AccessFailedCount, u.LockoutEnd = 0, nil
	return nil
}

func (m *mockRepository) IncrementAccessFailed(_ context.Context, id string, threshold int, end time.Time) (int, *time.Time, error) {
	u, ok := m.users[id]
	if !ok {
		return 0, nil, ErrUserNotFound
	}
	m.failedArgs.threshold, m.failedArgs.end = threshold, end
	if u.LockoutEnabled && u.AccessFailedCount+1 >= threshold {
		u.AccessFailedCount = 0
		u.LockoutEnd = &end
	} else {
		u.AccessFailedCount++
	}
	return u.AccessFailedCount, u.LockoutEnd, nil
}

func (m *mockRepository) ResetAccessFailed(_ context.Context, id string) error {
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.AccessFailedCount, u.LockoutEnd = 0, nil
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, id)
	delete(m.codes, id)
	return nil
}

func (m *mockRepository) SaveVerificationCode(_ context.Context, userID, code string, expiresAt time.Time) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.codes[userID] = &VerificationCode{UserID: userID, Code: code, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return nil
}

func (m *mockRepository) GetVerificationCode(_ context.Context, userID string) (*VerificationCode, error) {
	vc, ok := m.codes[userID]
	if !ok {
		return nil, ErrNoVerificationCode
	}
	cp := *vc
	return &cp, nil
}

func (m *mockRepository) IncrementVerificationAttempts(_ context.Context, userID string) (int, error) {
	vc, ok := m.codes[userID]
	if !ok {
		return 0, ErrNoVerificationCode
	}
	vc.Attempts++
	return vc.Attempts, nil
}

func (m *mockRepository) ConfirmEmail(_ context.Context, userID, newStamp string) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.EmailConfirmed = true
	u.ConcurrencyStamp = newStamp
	delete(m.codes, userID)
	return nil
}

type queuedEmail struct {
	to   string
	data email.EmailData
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []queuedEmail
	err  error
}

func (f *fakeMailer) QueueEmail(to string, data email.EmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, queuedEmail{to: to, data: data})
	return nil
}

func (f *fakeMailer) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].data.(email.RegistrationConfirmationData).Code
}

type fakeTx struct {
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}
