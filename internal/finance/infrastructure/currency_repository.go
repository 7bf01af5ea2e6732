package infrastructure

import (
	"context"
	"database/sql"

	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
)

type CurrencyRepository struct {
	table ownedNameTable
}

func NewCurrencyRepository(db *sql.DB) *CurrencyRepository {
	return &CurrencyRepository{table: ownedNameTable{db: db, table: "currencies"}}
}

func (r *CurrencyRepository) ListVisible(ctx context.Context, userID string) ([]domain.Currency, error) {
	rows, err := r.table.listVisible(ctx, userID)
	if err != nil {
		return nil, err
	}
	currencies := make([]domain.Currency, 0, len(rows))
	for _, row := range rows {
		currencies = append(currencies, domain.Currency{ID: row.ID, Name: row.Name, UserID: row.UserID})
	}
	return currencies, nil
}

func (r *CurrencyRepository) FindByID(ctx context.Context, id int) (*domain.Currency, error) {
	row, err := r.table.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.Currency{ID: row.ID, Name: row.Name, UserID: row.UserID}, nil
}

func (r *CurrencyRepository) Create(ctx context.Context, currency *domain.Currency) error {
	id, err := r.table.create(ctx, currency.Name, currency.UserID)
	if err != nil {
		return err
	}
	currency.ID = id
	return nil
}

func (r *CurrencyRepository) Rename(ctx context.Context, id int, userID, name string) error {
	return r.table.rename(ctx, id, userID, name)
}

func (r *CurrencyRepository) Delete(ctx context.Context, id int, userID string) error {
	return r.table.delete(ctx, id, userID)
}
