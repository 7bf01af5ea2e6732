package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	database "github.com/sebuszqo/FinanceLedger/internal/db"
	financeErrors "github.com/sebuszqo/FinanceLedger/internal/finance/errors"
)

// ownedRow is the shape shared by categories and currencies: a name that is
// either global (NULL owner) or private to one user.
type ownedRow struct {
	ID     int
	Name   string
	UserID *string
}

// ownedNameTable holds the queries common to tables keyed by (name, user_id).
type ownedNameTable struct {
	db    *sql.DB
	table string
}

func scanOwnedRow(row interface{ Scan(dest ...any) error }) (ownedRow, error) {
	var (
		r      ownedRow
		userID sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Name, &userID); err != nil {
		return ownedRow{}, err
	}
	if userID.Valid {
		r.UserID = &userID.String
	}
	return r, nil
}

// listVisible returns global rows first, then the user's own, each ordered by name.
func (t *ownedNameTable) listVisible(ctx context.Context, userID string) ([]ownedRow, error) {
	query := fmt.Sprintf(`
		SELECT id, name, user_id FROM %s
		WHERE user_id IS NULL OR user_id = $1
		ORDER BY user_id IS NOT NULL, name`, t.table)
	rows, err := database.Conn(ctx, t.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("could not list %s: %w", t.table, err)
	}
	defer rows.Close()

	result := []ownedRow{}
	for rows.Next() {
		r, err := scanOwnedRow(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan %s: %w", t.table, err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (t *ownedNameTable) queryOne(ctx context.Context, query string, args ...any) (*ownedRow, error) {
	r, err := scanOwnedRow(database.Conn(ctx, t.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, financeErrors.ErrNotFound
		}
		return nil, fmt.Errorf("could not find %s row: %w", t.table, err)
	}
	return &r, nil
}

func (t *ownedNameTable) findByID(ctx context.Context, id int) (*ownedRow, error) {
	return t.queryOne(ctx, fmt.Sprintf(`SELECT id, name, user_id FROM %s WHERE id = $1`, t.table), id)
}

func (t *ownedNameTable) findGlobalByName(ctx context.Context, name string) (*ownedRow, error) {
	return t.queryOne(ctx, fmt.Sprintf(`SELECT id, name, user_id FROM %s WHERE user_id IS NULL AND name = $1`, t.table), name)
}

func (t *ownedNameTable) create(ctx context.Context, name string, userID *string) (int, error) {
	var id int
	query := fmt.Sprintf(`INSERT INTO %s (name, user_id) VALUES ($1, $2) RETURNING id`, t.table)
	if err := database.Conn(ctx, t.db).QueryRowContext(ctx, query, name, userID).Scan(&id); err != nil {
		if database.IsUniqueViolation(err) {
			return 0, financeErrors.ErrConflict
		}
		return 0, fmt.Errorf("could not create %s row: %w", t.table, err)
	}
	return id, nil
}

func (t *ownedNameTable) rename(ctx context.Context, id int, userID, name string) error {
	query := fmt.Sprintf(`UPDATE %s SET name = $3 WHERE id = $1 AND user_id = $2`, t.table)
	return t.execOwned(ctx, query, id, userID, name)
}

// delete fails with ErrConflict while accounts or transactions still point at the row.
func (t *ownedNameTable) delete(ctx context.Context, id int, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, t.table)
	return t.execOwned(ctx, query, id, userID)
}

func (t *ownedNameTable) execOwned(ctx context.Context, query string, args ...any) error {
	res, err := database.Conn(ctx, t.db).ExecContext(ctx, query, args...)
	if err != nil {
		if database.IsUniqueViolation(err) || database.IsForeignKeyViolation(err) {
			return financeErrors.ErrConflict
		}
		return fmt.Errorf("could not modify %s row: %w", t.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not modify %s row: %w", t.table, err)
	}
	if n == 0 {
		return financeErrors.ErrNotFound
	}
	return nil
}
