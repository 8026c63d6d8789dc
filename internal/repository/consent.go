package repository

import (
	"context"

	"github.com/clinisafe/patientvault/internal/model"
)

// ConsentRepository provides the append-only consent ledger. Entries are never
// updated in place; a changed decision is a new entry. Cascade deletion on
// patient removal happens inside PatientRepository transactions.
type ConsentRepository interface {
	// Record appends one consent entry together with its audit row.
	Record(ctx context.Context, e *model.ConsentEntry, log model.AuditEntry) error
	// ForPatient returns the consent history of one patient, newest first.
	ForPatient(ctx context.Context, patientID int64) ([]model.ConsentEntry, error)
	// Summary aggregates consent state across all stored patients.
	Summary(ctx context.Context) (model.ConsentSummary, error)
}
