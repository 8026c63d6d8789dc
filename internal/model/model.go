// Package model defines domain entities used by services and repositories.
package model

import "time"

// Role is the access level of an authenticated user.
type Role string

// Known roles. Every stored user carries exactly one of these.
const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleReceptionist Role = "receptionist"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleReceptionist:
		return true
	}
	return false
}

// Identity is the authenticated caller attached to every privileged operation.
type Identity struct {
	UserID   int64
	Username string
	Role     Role
}

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User represents a provisioned account. Passwords are stored as digests only.
type User struct {
	ID           int64
	Username     string // unique
	PasswordHash string // hex digest, see internal/crypto
	Role         Role
	CreatedAt    time.Time
}

// Patient is a stored patient record. The raw fields are always present; the
// obscured and cipher fields are non-empty only while IsObscured is true
// (they are set and cleared together across all three sensitive fields).
type Patient struct {
	ID              int64
	Name            string
	Contact         string
	Diagnosis       string
	ObscuredName    string // masked display value, e.g. ANON_0042
	ObscuredContact string // masked display value, e.g. XXX-XXX-1234
	CipherName      string // AEAD token recoverable with the active key
	CipherContact   string
	CipherDiagnosis string
	CreatedAt       time.Time
	IsObscured      bool
	RetainUntil     time.Time // deadline after which the record is purged
	ConsentGiven    bool
}

// ProjectedPatient is the role-scoped read view of a Patient. It never exposes
// more than the caller's role is entitled to see.
type ProjectedPatient struct {
	ID           int64
	Name         string
	Contact      string
	Diagnosis    string
	CreatedAt    time.Time
	IsObscured   bool
	ConsentGiven bool
}

// ObscureUpdate carries the derived masked and encrypted values applied to one
// record during a batch obscure.
type ObscureUpdate struct {
	ID              int64
	ObscuredName    string
	ObscuredContact string
	CipherName      string
	CipherContact   string
	CipherDiagnosis string
}

// RestoreUpdate carries decrypted raw values written back during a batch restore.
type RestoreUpdate struct {
	ID        int64
	Name      string
	Contact   string
	Diagnosis string
}

// ConsentEntry is one captured consent decision. Entries are append-only; a
// changed decision is a new entry, preserving history.
type ConsentEntry struct {
	ID        int64
	PatientID int64
	Type      string
	Given     bool
	Date      time.Time
}

// ConsentSummary aggregates consent state across all stored patients.
type ConsentSummary struct {
	Given int64
	Total int64
}

// AuditEntry is one row of the append-only activity log.
type AuditEntry struct {
	ID        int64
	UserID    int64
	Username  string
	Role      Role
	Action    string
	Timestamp time.Time
	Details   string
}

// Audit actions written by the services.
const (
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionAddPatient     = "add_patient"
	ActionUpdatePatient  = "update_patient"
	ActionDeletePatient  = "delete_patient"
	ActionObscureData    = "anonymize_data"
	ActionRestoreData    = "de_anonymize_data"
	ActionRetentionSweep = "data_retention_cleanup"
	ActionRecordConsent  = "record_consent"
	ActionExportPatients = "export_patients"
	ActionExportLogs     = "export_logs"
)

// SystemIdentity is the actor attributed to automatic maintenance such as the
// retention sweep.
var SystemIdentity = Identity{UserID: 0, Username: "system", Role: "system"}

// DailyCount is the number of audit entries recorded on one calendar day.
type DailyCount struct {
	Day   string // YYYY-MM-DD
	Count int64
}

// ActionCount is the number of audit entries per action.
type ActionCount struct {
	Action string
	Count  int64
}
