package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/clinisafe/patientvault/internal/errs"
	"github.com/clinisafe/patientvault/internal/model"
)

// ConsentRepo implements ConsentRepository using PostgreSQL.
type ConsentRepo struct{ db *DB }

// NewConsentRepo constructs a consent repository.
func NewConsentRepo(db *DB) *ConsentRepo { return &ConsentRepo{db: db} }

// Record appends one consent entry and its audit row in one transaction. The
// referenced patient must exist.
func (r *ConsentRepo) Record(ctx context.Context, e *model.ConsentEntry, log model.AuditEntry) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	var exists bool
	if err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM patients WHERE patient_id=$1)`, e.PatientID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return errs.ErrNotFound
	}
	const ins = `INSERT INTO consent_records (patient_id, consent_type, consent_given) VALUES ($1, $2, $3)`
	if _, err = tx.Exec(ctx, ins, e.PatientID, e.Type, e.Given); err != nil {
		return err
	}
	return insertLog(ctx, tx, log)
}

// ForPatient returns the consent history of one patient, newest first.
func (r *ConsentRepo) ForPatient(ctx context.Context, patientID int64) ([]model.ConsentEntry, error) {
	const q = `
SELECT consent_id, patient_id, consent_type, consent_given, consent_date
FROM consent_records
WHERE patient_id=$1
ORDER BY consent_date DESC, consent_id DESC`
	rows, err := r.db.Pool.Query(ctx, q, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ConsentEntry
	for rows.Next() {
		var e model.ConsentEntry
		if err := rows.Scan(&e.ID, &e.PatientID, &e.Type, &e.Given, &e.Date); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Summary aggregates consent state across all stored patients.
func (r *ConsentRepo) Summary(ctx context.Context) (model.ConsentSummary, error) {
	const q = `SELECT COUNT(*) FILTER (WHERE consent_given), COUNT(*) FROM patients`
	var s model.ConsentSummary
	if err := r.db.Pool.QueryRow(ctx, q).Scan(&s.Given, &s.Total); err != nil {
		return model.ConsentSummary{}, err
	}
	return s, nil
}
