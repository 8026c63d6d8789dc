// Package export flattens patients and audit entries into stable tabular CSV
// for data portability. Column sets are fixed; callers choose what rows to
// pass (patients are exported already projected for the caller's role).
package export

import (
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"github.com/clinisafe/patientvault/internal/model"
)

const timeLayout = time.RFC3339

// PatientsCSV renders projected patient rows.
// Columns: Patient ID, Name, Contact, Diagnosis, Date Added, Is Anonymized, Consent Given.
func PatientsCSV(patients []model.ProjectedPatient) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write([]string{"Patient ID", "Name", "Contact", "Diagnosis", "Date Added", "Is Anonymized", "Consent Given"}); err != nil {
		return "", err
	}
	for _, p := range patients {
		rec := []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.Contact,
			p.Diagnosis,
			p.CreatedAt.Format(timeLayout),
			strconv.FormatBool(p.IsObscured),
			strconv.FormatBool(p.ConsentGiven),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	return b.String(), w.Error()
}

// LogsCSV renders audit entries.
// Columns: Log ID, Username, Role, Action, Timestamp, Details.
func LogsCSV(entries []model.AuditEntry) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write([]string{"Log ID", "Username", "Role", "Action", "Timestamp", "Details"}); err != nil {
		return "", err
	}
	for _, e := range entries {
		rec := []string{
			strconv.FormatInt(e.ID, 10),
			e.Username,
			string(e.Role),
			e.Action,
			e.Timestamp.Format(timeLayout),
			e.Details,
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	return b.String(), w.Error()
}
