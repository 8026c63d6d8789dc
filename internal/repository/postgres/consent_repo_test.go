package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/clinisafe/patientvault/internal/errs"
	"github.com/clinisafe/patientvault/internal/model"
)

func TestConsentRepo_Record_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewConsentRepo(db)
	ctx := context.Background()

	e := &model.ConsentEntry{PatientID: 7, Type: "data_processing", Given: true}
	log := addLog(testActor, model.ActionRecordConsent, "Recorded consent for patient: 7")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM patients WHERE patient_id=\$1\)`).
		WithArgs(e.PatientID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`INSERT INTO consent_records \(patient_id, consent_type, consent_given\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs(e.PatientID, e.Type, e.Given).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO logs`).
		WithArgs(log.UserID, log.Username, string(log.Role), log.Action, log.Details).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, r.Record(ctx, e, log))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentRepo_Record_PatientMissing(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewConsentRepo(db)
	ctx := context.Background()

	e := &model.ConsentEntry{PatientID: 999, Type: "data_processing", Given: true}
	log := addLog(testActor, model.ActionRecordConsent, "Recorded consent for patient: 999")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM patients WHERE patient_id=\$1\)`).
		WithArgs(e.PatientID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := r.Record(ctx, e, log)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentRepo_ForPatient(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewConsentRepo(db)
	ctx := context.Background()
	ts := time.Now()

	mock.ExpectQuery(`SELECT consent_id, patient_id, consent_type, consent_given, consent_date`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"consent_id", "patient_id", "consent_type", "consent_given", "consent_date"}).
			AddRow(int64(2), int64(7), "marketing", false, ts).
			AddRow(int64(1), int64(7), "data_processing", true, ts.Add(-time.Hour)))

	got, err := r.ForPatient(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "marketing", got[0].Type)
	require.False(t, got[0].Given)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentRepo_Summary(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewConsentRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FILTER \(WHERE consent_given\), COUNT\(\*\) FROM patients`).
		WillReturnRows(pgxmock.NewRows([]string{"given", "total"}).AddRow(int64(3), int64(5)))

	s, err := r.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), s.Given)
	require.Equal(t, int64(5), s.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}
