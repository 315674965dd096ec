package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/careflow/adrenav/internal/model"
	"github.com/careflow/adrenav/internal/pkg/dbutil"
)

type ChecklistRepo struct {
	db *sql.DB
}

func NewChecklistRepo(db *sql.DB) *ChecklistRepo {
	return &ChecklistRepo{db: db}
}

// Upsert is keyed by (session_id, label): a repeated label updates the
// status instead of inserting a duplicate.
func (r *ChecklistRepo) Upsert(ctx context.Context, item *model.ChecklistItem) error {
	const query = `
		INSERT INTO checklist_items (id, session_id, label, status, due_date, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id, label) DO UPDATE SET
			status = EXCLUDED.status,
			due_date = EXCLUDED.due_date,
			mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.SessionID,
		item.Label,
		item.Status,
		item.DueDate,
		item.Ctime,
		item.Mtime,
	)
	return err
}

func (r *ChecklistRepo) ListBySession(ctx context.Context, sessionID string) ([]model.ChecklistItem, error) {
	where := map[string]interface{}{
		"session_id": sessionID,
		"_orderby":   "ctime asc",
	}
	sqlStr, args, err := builder.BuildSelect("checklist_items", where,
		[]string{"id", "session_id", "label", "status", "due_date", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.ChecklistItem
	for rows.Next() {
		var item model.ChecklistItem
		var dueDate sql.NullString
		if err := rows.Scan(&item.ID, &item.SessionID, &item.Label, &item.Status, &dueDate, &item.Ctime, &item.Mtime); err != nil {
			return nil, err
		}
		if dueDate.Valid {
			item.DueDate = &dueDate.String
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
