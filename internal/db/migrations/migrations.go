// Package migrations holds the ordered schema history of the ledger database.
//
// Schema changes live in timestamp-prefixed SQL files embedded below. Steps that
// seed or rewrite reference data and need application logic (password hashing,
// random stamps) are Go migrations returned by GoMigrations. Both kinds share one
// version sequence and are applied by the Migrator in internal/db.
package migrations

import (
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var SQL embed.FS

const (
	VersionSeedDemoData      int64 = 20240115080000
	VersionRepurposeAccounts int64 = 20240210120000
)

// GoMigrations returns the seed migrations bound to the given options.
func GoMigrations(opts SeedOptions) []*goose.Migration {
	s := newSeeder(opts)
	return []*goose.Migration{
		goose.NewGoMigration(VersionSeedDemoData,
			&goose.GoFunc{RunTx: s.seedDemoDataUp},
			&goose.GoFunc{RunTx: s.seedDemoDataDown},
		),
		goose.NewGoMigration(VersionRepurposeAccounts,
			&goose.GoFunc{RunTx: s.repurposeAccountsUp},
			&goose.GoFunc{RunTx: s.repurposeAccountsDown},
		),
	}
}
