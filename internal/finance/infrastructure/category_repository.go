package infrastructure

import (
	"context"
	"database/sql"

	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
)

type CategoryRepository struct {
	table ownedNameTable
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{table: ownedNameTable{db: db, table: "categories"}}
}

func toCategory(r ownedRow) domain.Category {
	return domain.Category{ID: r.ID, Name: r.Name, UserID: r.UserID}
}

func (r *CategoryRepository) ListVisible(ctx context.Context, userID string) ([]domain.Category, error) {
	rows, err := r.table.listVisible(ctx, userID)
	if err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, toCategory(row))
	}
	return categories, nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id int) (*domain.Category, error) {
	row, err := r.table.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	category := toCategory(*row)
	return &category, nil
}

func (r *CategoryRepository) FindGlobalByName(ctx context.Context, name string) (*domain.Category, error) {
	row, err := r.table.findGlobalByName(ctx, name)
	if err != nil {
		return nil, err
	}
	category := toCategory(*row)
	return &category, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	id, err := r.table.create(ctx, category.Name, category.UserID)
	if err != nil {
		return err
	}
	category.ID = id
	return nil
}

func (r *CategoryRepository) Rename(ctx context.Context, id int, userID, name string) error {
	return r.table.rename(ctx, id, userID, name)
}

func (r *CategoryRepository) Delete(ctx context.Context, id int, userID string) error {
	return r.table.delete(ctx, id, userID)
}
