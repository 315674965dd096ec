package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/careflow/adrenav/internal/model"
	"github.com/careflow/adrenav/internal/pkg/dbutil"
	appErr "github.com/careflow/adrenav/internal/pkg/errors"
)

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Upsert creates the session row if missing and leaves an existing one
// untouched.
func (r *SessionRepo) Upsert(ctx context.Context, session *model.Session) error {
	const query = `
		INSERT INTO sessions (id, ctime)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, session.ID, session.Ctime)
	return err
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	where := map[string]interface{}{"id": sessionID}
	sqlStr, args, err := builder.BuildSelect("sessions", where, []string{"id", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var session model.Session
	if err := row.Scan(&session.ID, &session.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Delete removes the session; messages and checklist items cascade.
func (r *SessionRepo) Delete(ctx context.Context, sessionID string) error {
	sqlStr, args, err := builder.BuildDelete("sessions", map[string]interface{}{"id": sessionID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
