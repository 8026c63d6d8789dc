package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clinisafe/patientvault/internal/errs"
	"github.com/clinisafe/patientvault/internal/model"
)

// PatientRepo implements PatientRepository using PostgreSQL.
type PatientRepo struct{ db *DB }

// NewPatientRepo constructs a patient repository.
func NewPatientRepo(db *DB) *PatientRepo { return &PatientRepo{db: db} }

const patientColumns = `patient_id, name, contact, diagnosis, obscured_name, obscured_contact,
       cipher_name, cipher_contact, cipher_diagnosis, created_at, is_obscured, retain_until, consent_given`

// Create inserts a patient, its optional consent entry, and the audit row in
// one transaction.
func (r *PatientRepo) Create(
	ctx context.Context, p *model.Patient, consent *model.ConsentEntry, log model.AuditEntry,
) (id int64, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
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

	const ins = `
INSERT INTO patients (name, contact, diagnosis, retain_until, consent_given)
VALUES ($1, $2, $3, $4, $5)
RETURNING patient_id`
	if err = tx.QueryRow(ctx, ins, p.Name, p.Contact, p.Diagnosis, p.RetainUntil, p.ConsentGiven).Scan(&id); err != nil {
		return 0, err
	}
	if consent != nil {
		const insConsent = `
INSERT INTO consent_records (patient_id, consent_type, consent_given) VALUES ($1, $2, $3)`
		if _, err = tx.Exec(ctx, insConsent, id, consent.Type, consent.Given); err != nil {
			return 0, err
		}
	}
	if err = insertLog(ctx, tx, log); err != nil {
		return 0, err
	}
	return id, nil
}

// Update overwrites raw fields and clears any obscured state. The previous
// ciphertext is discarded: the new raw values supersede it.
func (r *PatientRepo) Update(
	ctx context.Context, id int64, name, contact, diagnosis string, log model.AuditEntry,
) (err error) {
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

	const upd = `
UPDATE patients
SET name=$2, contact=$3, diagnosis=$4,
    is_obscured=false, obscured_name='', obscured_contact='',
    cipher_name='', cipher_contact='', cipher_diagnosis=''
WHERE patient_id=$1`
	tag, err := tx.Exec(ctx, upd, id, name, contact, diagnosis)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return insertLog(ctx, tx, log)
}

// Delete removes a patient and cascades its consent entries.
func (r *PatientRepo) Delete(ctx context.Context, id int64, log model.AuditEntry) (err error) {
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

	if _, err = tx.Exec(ctx, `DELETE FROM consent_records WHERE patient_id=$1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM patients WHERE patient_id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return insertLog(ctx, tx, log)
}

// List returns all patients, most recently created first.
func (r *PatientRepo) List(ctx context.Context) ([]model.Patient, error) {
	q := `SELECT ` + patientColumns + ` FROM patients ORDER BY created_at DESC, patient_id DESC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPatients(rows)
}

// ListByObscured returns patients filtered by obscured state, most recently
// created first.
func (r *PatientRepo) ListByObscured(ctx context.Context, obscured bool) ([]model.Patient, error) {
	q := `SELECT ` + patientColumns + ` FROM patients WHERE is_obscured=$1 ORDER BY created_at DESC, patient_id DESC`
	rows, err := r.db.Pool.Query(ctx, q, obscured)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPatients(rows)
}

func scanPatients(rows pgx.Rows) ([]model.Patient, error) {
	var out []model.Patient
	for rows.Next() {
		var p model.Patient
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Contact, &p.Diagnosis,
			&p.ObscuredName, &p.ObscuredContact,
			&p.CipherName, &p.CipherContact, &p.CipherDiagnosis,
			&p.CreatedAt, &p.IsObscured, &p.RetainUntil, &p.ConsentGiven,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ApplyObscure stores masked and encrypted values for a batch and marks the
// records obscured. The raw columns are left in place: obscuring is a display
// policy, not field erasure. One audit row covers the batch.
func (r *PatientRepo) ApplyObscure(ctx context.Context, ups []model.ObscureUpdate, log model.AuditEntry) (err error) {
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

	const upd = `
UPDATE patients
SET obscured_name=$2, obscured_contact=$3,
    cipher_name=$4, cipher_contact=$5, cipher_diagnosis=$6,
    is_obscured=true
WHERE patient_id=$1 AND is_obscured=false`
	for _, up := range ups {
		if _, err = tx.Exec(ctx, upd,
			up.ID, up.ObscuredName, up.ObscuredContact,
			up.CipherName, up.CipherContact, up.CipherDiagnosis,
		); err != nil {
			return err
		}
	}
	return insertLog(ctx, tx, log)
}

// ApplyRestore writes decrypted raw values back for a batch and clears the
// obscured flag. One audit row covers the batch.
func (r *PatientRepo) ApplyRestore(ctx context.Context, ups []model.RestoreUpdate, log model.AuditEntry) (err error) {
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

	const upd = `
UPDATE patients
SET name=$2, contact=$3, diagnosis=$4, is_obscured=false
WHERE patient_id=$1 AND is_obscured=true`
	for _, up := range ups {
		if _, err = tx.Exec(ctx, upd, up.ID, up.Name, up.Contact, up.Diagnosis); err != nil {
			return err
		}
	}
	return insertLog(ctx, tx, log)
}

// DeleteExpired purges every record whose retention deadline has passed,
// cascading consent entries and logging one entry per deleted record.
func (r *PatientRepo) DeleteExpired(ctx context.Context, now time.Time) (count int64, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
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

	rows, err := tx.Query(ctx, `SELECT patient_id FROM patients WHERE retain_until < $1`, now)
	if err != nil {
		return 0, err
	}
	var expired []int64
	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		expired = append(expired, id)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range expired {
		if _, err = tx.Exec(ctx, `DELETE FROM consent_records WHERE patient_id=$1`, id); err != nil {
			return 0, err
		}
		if _, err = tx.Exec(ctx, `DELETE FROM patients WHERE patient_id=$1`, id); err != nil {
			return 0, err
		}
		log := model.AuditEntry{
			UserID:   model.SystemIdentity.UserID,
			Username: model.SystemIdentity.Username,
			Role:     model.SystemIdentity.Role,
			Action:   model.ActionRetentionSweep,
			Details:  fmt.Sprintf("Auto-deleted expired patient record: %d", id),
		}
		if err = insertLog(ctx, tx, log); err != nil {
			return 0, err
		}
	}
	return int64(len(expired)), nil
}
