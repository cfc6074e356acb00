package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/docstore"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/identity"
)

// Migrations creates the tables the service needs, in order.
var Migrations = []string{
	docstore.DocumentsTableDDL,
	identity.AccountsTableDDL,
}

// RunMigrations executes every statement of Migrations.  Statements are
// idempotent, so this runs on every start.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	for i, m := range Migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	log.Printf("database: %d migrations applied", len(Migrations))
	return nil
}
