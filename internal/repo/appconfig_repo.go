package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/careflow/adrenav/internal/model"
	"github.com/careflow/adrenav/internal/pkg/dbutil"
)

type AppConfigRepo struct {
	db *sql.DB
}

func NewAppConfigRepo(db *sql.DB) *AppConfigRepo {
	return &AppConfigRepo{db: db}
}

func (r *AppConfigRepo) Upsert(ctx context.Context, entry *model.AppConfigEntry) error {
	const query = `
		INSERT INTO app_config (key, value, mtime)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query, entry.Key, entry.Value, entry.Mtime)
	return err
}

func (r *AppConfigRepo) List(ctx context.Context, keys []string) ([]model.AppConfigEntry, error) {
	where := map[string]interface{}{
		"key in":   keys,
		"_orderby": "key asc",
	}
	sqlStr, args, err := builder.BuildSelect("app_config", where, []string{"key", "value", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.AppConfigEntry
	for rows.Next() {
		var entry model.AppConfigEntry
		if err := rows.Scan(&entry.Key, &entry.Value, &entry.Mtime); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
