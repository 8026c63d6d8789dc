package service

import (
	"context"
	"fmt"

	"github.com/clinisafe/patientvault/internal/errs"
	"github.com/clinisafe/patientvault/internal/model"
	"github.com/clinisafe/patientvault/internal/repository"
)

// AuditService exposes the query surface of the activity log.
type AuditService interface {
	// All returns every entry, newest first.
	All(ctx context.Context) ([]model.AuditEntry, error)
	// Filter returns entries matching the role/action sets, newest first.
	Filter(ctx context.Context, roles []model.Role, actions []string, limit int) ([]model.AuditEntry, error)
	// RangeStats returns per-day and per-action counts over the trailing days.
	RangeStats(ctx context.Context, days int) ([]model.DailyCount, []model.ActionCount, error)
	// RecordExport appends an export audit entry for the actor.
	RecordExport(ctx context.Context, actor model.Identity, action string) error
}

type AuditServiceImpl struct {
	repo repository.AuditRepository
}

// NewAuditService constructs AuditService.
func NewAuditService(repo repository.AuditRepository) *AuditServiceImpl {
	return &AuditServiceImpl{repo: repo}
}

func (s *AuditServiceImpl) All(ctx context.Context) ([]model.AuditEntry, error) {
	return s.repo.All(ctx)
}

func (s *AuditServiceImpl) Filter(ctx context.Context, roles []model.Role, actions []string, limit int) ([]model.AuditEntry, error) {
	return s.repo.Filter(ctx, roles, actions, limit)
}

// RangeStats validates the window and fetches both aggregates.
func (s *AuditServiceImpl) RangeStats(ctx context.Context, days int) ([]model.DailyCount, []model.ActionCount, error) {
	if days <= 0 {
		return nil, nil, fmt.Errorf("%w: days must be positive", errs.ErrValidation)
	}
	daily, err := s.repo.DailyCounts(ctx, days)
	if err != nil {
		return nil, nil, err
	}
	actions, err := s.repo.ActionCounts(ctx, days)
	if err != nil {
		return nil, nil, err
	}
	return daily, actions, nil
}

// RecordExport logs a CSV export performed by the actor.
func (s *AuditServiceImpl) RecordExport(ctx context.Context, actor model.Identity, action string) error {
	var details string
	switch action {
	case model.ActionExportPatients:
		details = "Exported patient data to CSV"
	case model.ActionExportLogs:
		details = "Exported audit logs to CSV"
	default:
		return fmt.Errorf("%w: unknown export action %q", errs.ErrValidation, action)
	}
	return s.repo.Append(ctx, auditFor(actor, action, details))
}
