package service

import (
	"context"
	"fmt"

	"github.com/clinisafe/patientvault/internal/errs"
	"github.com/clinisafe/patientvault/internal/model"
	"github.com/clinisafe/patientvault/internal/repository"
)

// DefaultConsentType is used when a consent capture names no explicit type.
const DefaultConsentType = "data_processing"

// ConsentService exposes the append-only consent ledger.
type ConsentService interface {
	// Record captures a consent decision for a patient. History is preserved:
	// a changed decision is a new entry.
	Record(ctx context.Context, actor model.Identity, patientID int64, consentType string, given bool) error
	// ForPatient returns a patient's consent history, newest first.
	ForPatient(ctx context.Context, patientID int64) ([]model.ConsentEntry, error)
	// Summary reports how many stored patients have consent and the rate.
	Summary(ctx context.Context) (model.ConsentSummary, float64, error)
}

type ConsentServiceImpl struct {
	repo repository.ConsentRepository
}

// NewConsentService constructs ConsentService.
func NewConsentService(repo repository.ConsentRepository) *ConsentServiceImpl {
	return &ConsentServiceImpl{repo: repo}
}

// Record appends a consent entry and its audit row as one unit.
func (s *ConsentServiceImpl) Record(ctx context.Context, actor model.Identity, patientID int64, consentType string, given bool) error {
	if patientID <= 0 {
		return fmt.Errorf("%w: patient id required", errs.ErrValidation)
	}
	if consentType == "" {
		consentType = DefaultConsentType
	}
	e := &model.ConsentEntry{PatientID: patientID, Type: consentType, Given: given}
	log := auditFor(actor, model.ActionRecordConsent, fmt.Sprintf("Recorded consent for patient ID: %d", patientID))
	return s.repo.Record(ctx, e, log)
}

func (s *ConsentServiceImpl) ForPatient(ctx context.Context, patientID int64) ([]model.ConsentEntry, error) {
	return s.repo.ForPatient(ctx, patientID)
}

// Summary returns the aggregate plus the consent rate in percent.
func (s *ConsentServiceImpl) Summary(ctx context.Context) (model.ConsentSummary, float64, error) {
	sum, err := s.repo.Summary(ctx)
	if err != nil {
		return model.ConsentSummary{}, 0, err
	}
	var rate float64
	if sum.Total > 0 {
		rate = float64(sum.Given) / float64(sum.Total) * 100
	}
	return sum, rate, nil
}
