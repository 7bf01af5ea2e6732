package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
)

type CurrencyService struct {
	repo domain.CurrencyRepository
	log  logrus.FieldLogger
}

func NewCurrencyService(repo domain.CurrencyRepository, log logrus.FieldLogger) *CurrencyService {
	return &CurrencyService{repo: repo, log: log}
}

func (s *CurrencyService) List(ctx context.Context, userID string) ([]domain.Currency, error) {
	return s.repo.ListVisible(ctx, userID)
}

func (s *CurrencyService) Create(ctx context.Context, userID, code string) (*domain.Currency, error) {
	code, err := domain.NormalizeCurrencyCode(code)
	if err != nil {
		return nil, err
	}
	currency := &domain.Currency{Name: code, UserID: &userID}
	if err := s.repo.Create(ctx, currency); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "currency": code}).Info("currency created")
	return currency, nil
}

func (s *CurrencyService) Rename(ctx context.Context, userID string, id int, code string) (*domain.Currency, error) {
	code, err := domain.NormalizeCurrencyCode(code)
	if err != nil {
		return nil, err
	}
	currency, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkWritable(currency, userID); err != nil {
		return nil, err
	}
	if err := s.repo.Rename(ctx, id, userID, code); err != nil {
		return nil, err
	}
	currency.Name = code
	return currency, nil
}

// Delete fails with ErrConflict while any account still uses the currency.
func (s *CurrencyService) Delete(ctx context.Context, userID string, id int) error {
	currency, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := checkWritable(currency, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id, userID)
}
