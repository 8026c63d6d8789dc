// Package policy maps (role, record state) to the view and operations a
// caller is entitled to. Decisions are pure functions; nothing here touches
// storage.
package policy

import "github.com/clinisafe/patientvault/internal/model"

// RedactedDiagnosis replaces the diagnosis in every obscured projection. The
// diagnosis has no recoverable masked display form, so it is withheld even
// from admins viewing the obscured form.
const RedactedDiagnosis = "[REDACTED]"

// Project computes the read view of p for the given role. Admins see raw
// fields unless they explicitly request the obscured view. Everyone else,
// and admins in obscured-view mode, see masked values for records that have
// been obscured; records never obscured project as-is.
func Project(role model.Role, obscuredView bool, p model.Patient) model.ProjectedPatient {
	out := model.ProjectedPatient{
		ID:           p.ID,
		Name:         p.Name,
		Contact:      p.Contact,
		Diagnosis:    p.Diagnosis,
		CreatedAt:    p.CreatedAt,
		IsObscured:   p.IsObscured,
		ConsentGiven: p.ConsentGiven,
	}
	if role == model.RoleAdmin && !obscuredView {
		return out
	}
	if p.IsObscured {
		out.Name = p.ObscuredName
		out.Contact = p.ObscuredContact
		out.Diagnosis = RedactedDiagnosis
	}
	return out
}

// CanDelete reports whether the role may delete patient records.
func CanDelete(role model.Role) bool { return role == model.RoleAdmin }

// CanRestore reports whether the role may run a batch restore.
func CanRestore(role model.Role) bool { return role == model.RoleAdmin }
