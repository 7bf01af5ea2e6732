package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/db/migrations"
)

// MigrationStatus describes one entry of the schema history.
type MigrationStatus struct {
	Version   int64
	Source    string
	Applied   bool
	AppliedAt time.Time
}

// Migrator applies and rolls back the embedded schema history.
type Migrator struct {
	provider *goose.Provider
	log      logrus.FieldLogger
}

func NewMigrator(db *sql.DB, seed migrations.SeedOptions, log logrus.FieldLogger) (*Migrator, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.SQL,
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(migrations.GoMigrations(seed)...),
	)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return &Migrator{provider: provider, log: log}, nil
}

// Up applies every pending migration in version order.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	m.logResults(results...)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	if len(results) == 0 {
		m.log.Info("schema is up to date")
	}
	return nil
}

func (m *Migrator) UpTo(ctx context.Context, version int64) error {
	results, err := m.provider.UpTo(ctx, version)
	m.logResults(results...)
	if err != nil {
		return fmt.Errorf("migrate up to %d: %w", version, err)
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	result, err := m.provider.Down(ctx)
	if result != nil {
		m.logResults(result)
	}
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			m.log.Info("no migrations to roll back")
			return nil
		}
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// DownTo rolls back every migration newer than version. Version 0 empties the schema.
func (m *Migrator) DownTo(ctx context.Context, version int64) error {
	results, err := m.provider.DownTo(ctx, version)
	m.logResults(results...)
	if err != nil {
		return fmt.Errorf("migrate down to %d: %w", version, err)
	}
	return nil
}

// Redo rolls back the latest migration and applies it again.
func (m *Migrator) Redo(ctx context.Context) error {
	down, err := m.provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("redo down: %w", err)
	}
	m.logResults(down)

	up, err := m.provider.UpByOne(ctx)
	if up != nil {
		m.logResults(up)
	}
	if err != nil {
		return fmt.Errorf("redo up: %w", err)
	}
	return nil
}

func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}

	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationStatus{
			Version:   s.Source.Version,
			Source:    sourceName(s.Source),
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

func (m *Migrator) Version(ctx context.Context) (int64, error) {
	v, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func (m *Migrator) HasPending(ctx context.Context) (bool, error) {
	return m.provider.HasPending(ctx)
}

func (m *Migrator) logResults(results ...*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		entry := m.log.WithFields(logrus.Fields{
			"version":   r.Source.Version,
			"source":    sourceName(r.Source),
			"direction": r.Direction,
			"duration":  r.Duration.String(),
		})
		if r.Error != nil {
			entry.WithError(r.Error).Error("migration failed")
			continue
		}
		entry.Info("migration applied")
	}
}

func sourceName(s *goose.Source) string {
	if s.Path != "" {
		return s.Path
	}
	return fmt.Sprintf("go:%d", s.Version)
}
