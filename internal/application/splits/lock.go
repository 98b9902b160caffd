package splits

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// lockDeal serializes split writers of one deal for the rest of tx.
// Only Postgres has transaction-scoped advisory locks; other dialects
// (sqlite in tests) already run one writer at a time.
func lockDeal(tx *gorm.DB, dealID uuid.UUID) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", dealID.String()).Error
}
