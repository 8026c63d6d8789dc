package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clinisafe/patientvault/internal/model"
)

// AuditRepo implements AuditRepository using PostgreSQL. The logs table is
// append-only: nothing here ever updates or deletes a row, and the retention
// sweep deliberately leaves it alone.
type AuditRepo struct{ db *DB }

// NewAuditRepo constructs an audit repository.
func NewAuditRepo(db *DB) *AuditRepo { return &AuditRepo{db: db} }

// Append writes one audit entry.
func (r *AuditRepo) Append(ctx context.Context, e model.AuditEntry) error {
	return insertLog(ctx, r.db.Pool, e)
}

const auditColumns = `log_id, user_id, username, role, action, timestamp, details`

// All returns every entry, newest first.
func (r *AuditRepo) All(ctx context.Context) ([]model.AuditEntry, error) {
	q := `SELECT ` + auditColumns + ` FROM logs ORDER BY timestamp DESC, log_id DESC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

// Filter returns entries matching any of roles and any of actions, newest
// first. Empty slices disable the corresponding filter; limit <= 0 means no cap.
func (r *AuditRepo) Filter(ctx context.Context, roles []model.Role, actions []string, limit int) ([]model.AuditEntry, error) {
	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, string(role))
	}
	if actions == nil {
		actions = []string{}
	}
	const q = `
SELECT ` + auditColumns + `
FROM logs
WHERE (cardinality($1::text[]) = 0 OR role = ANY($1))
  AND (cardinality($2::text[]) = 0 OR action = ANY($2))
ORDER BY timestamp DESC, log_id DESC
LIMIT NULLIF($3::bigint, 0)`
	lim := int64(limit)
	if lim < 0 {
		lim = 0
	}
	rows, err := r.db.Pool.Query(ctx, q, roleNames, actions, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func scanAuditEntries(rows pgx.Rows) ([]model.AuditEntry, error) {
	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var role string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &role, &e.Action, &e.Timestamp, &e.Details); err != nil {
			return nil, err
		}
		e.Role = model.Role(role)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DailyCounts returns per-day entry counts over the trailing days window.
func (r *AuditRepo) DailyCounts(ctx context.Context, days int) ([]model.DailyCount, error) {
	const q = `
SELECT date(timestamp) AS day, COUNT(*) AS count
FROM logs
WHERE timestamp >= now() - make_interval(days => $1)
GROUP BY day
ORDER BY day`
	rows, err := r.db.Pool.Query(ctx, q, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DailyCount
	for rows.Next() {
		var day time.Time
		var c model.DailyCount
		if err := rows.Scan(&day, &c.Count); err != nil {
			return nil, err
		}
		c.Day = day.Format("2006-01-02")
		out = append(out, c)
	}
	return out, rows.Err()
}

// ActionCounts returns per-action entry counts over the trailing days window.
func (r *AuditRepo) ActionCounts(ctx context.Context, days int) ([]model.ActionCount, error) {
	const q = `
SELECT action, COUNT(*) AS count
FROM logs
WHERE timestamp >= now() - make_interval(days => $1)
GROUP BY action
ORDER BY count DESC`
	rows, err := r.db.Pool.Query(ctx, q, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ActionCount
	for rows.Next() {
		var c model.ActionCount
		if err := rows.Scan(&c.Action, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
