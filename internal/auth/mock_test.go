package auth

import (
	"context"
	"time"

	"github.com/sebuszqo/FinanceLedger/internal/user"
)

type fakeUserStore struct {
	users       map[string]*user.User
	passwords   map[string]string
	threshold   int
	resetCalled int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*user.User{}, passwords: map[string]string{}, threshold: 3}
}

func (f *fakeUserStore) add(u *user.User, password string) {
	u.LockoutEnabled = true
	f.users[u.ID] = u
	f.passwords[u.ID] = password
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetByLoginOrEmail(ctx context.Context, loginOrEmail string) (*user.User, error) {
	key := user.Normalize(loginOrEmail)
	for _, u := range f.users {
		if user.Normalize(u.UserName) == key || user.Normalize(u.Email) == key {
			return f.GetByID(ctx, u.ID)
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUserStore) VerifyPassword(u *user.User, password string) bool {
	return f.passwords[u.ID] == password
}

func (f *fakeUserStore) IsLockedOut(u *user.User) bool {
	return u.LockoutEnd != nil && u.LockoutEnd.After(time.Now())
}

func (f *fakeUserStore) RecordFailedLogin(_ context.Context, id string) (bool, error) {
	u := f.users[id]
	u.AccessFailedCount++
	if u.AccessFailedCount >= f.threshold {
		end := time.Now().Add(time.Minute)
		u.LockoutEnd = &end
		u.AccessFailedCount = 0
		return true, nil
	}
	return false, nil
}

func (f *fakeUserStore) ResetFailedLogins(_ context.Context, id string) error {
	f.resetCalled++
	u := f.users[id]
	u.AccessFailedCount, u.LockoutEnd = 0, nil
	return nil
}

type fakeTwoFactorRepository struct {
	store   *fakeUserStore
	secrets map[string]string
}

func (f *fakeTwoFactorRepository) SaveTwoFactorSecret(_ context.Context, userID, secret string) error {
	f.secrets[userID] = secret
	return nil
}

func (f *fakeTwoFactorRepository) GetTwoFactorSecret(_ context.Context, userID string) (string, error) {
	s, ok := f.secrets[userID]
	if !ok {
		return "", ErrTwoFactorNotRegistered
	}
	return s, nil
}

func (f *fakeTwoFactorRepository) EnableTwoFactor(_ context.Context, userID string) error {
	f.store.users[userID].TwoFactorEnabled = true
	return nil
}

func (f *fakeTwoFactorRepository) DisableTwoFactor(_ context.Context, userID string) error {
	f.store.users[userID].TwoFactorEnabled = false
	delete(f.secrets, userID)
	return nil
}
