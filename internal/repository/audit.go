package repository

import (
	"context"

	"github.com/clinisafe/patientvault/internal/model"
)

// AuditRepository provides the append-only activity log. Append is the only
// mutation; entries are never edited or removed.
type AuditRepository interface {
	// Append writes one audit entry.
	Append(ctx context.Context, e model.AuditEntry) error
	// All returns every entry, newest first.
	All(ctx context.Context) ([]model.AuditEntry, error)
	// Filter returns entries matching any of roles and any of actions (an empty
	// set means no filter on that column), newest first, capped at limit when
	// limit > 0.
	Filter(ctx context.Context, roles []model.Role, actions []string, limit int) ([]model.AuditEntry, error)
	// DailyCounts returns per-day entry counts over the trailing days window.
	DailyCounts(ctx context.Context, days int) ([]model.DailyCount, error)
	// ActionCounts returns per-action entry counts over the trailing days window.
	ActionCounts(ctx context.Context, days int) ([]model.ActionCount, error)
}
