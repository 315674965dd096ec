package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/careflow/adrenav/internal/model"
	"github.com/careflow/adrenav/internal/pkg/dbutil"
	appErr "github.com/careflow/adrenav/internal/pkg/errors"
)

var messageColumns = []string{"id", "session_id", "role", "content_text", "content_json", "ctime"}

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append adds one turn to the session's append-only message log.
func (r *MessageRepo) Append(ctx context.Context, msg *model.Message) error {
	var contentJSON interface{}
	if len(msg.ContentJSON) > 0 {
		contentJSON = []byte(msg.ContentJSON)
	}
	data := map[string]interface{}{
		"id":           msg.ID,
		"session_id":   msg.SessionID,
		"role":         msg.Role,
		"content_text": msg.ContentText,
		"content_json": contentJSON,
		"ctime":        msg.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("messages", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *MessageRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Message, error) {
	where := map[string]interface{}{
		"session_id": sessionID,
		"_orderby":   "ctime asc",
	}
	sqlStr, args, err := builder.BuildSelect("messages", where, messageColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var messages []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// LatestAssistant returns the most recent assistant turn for the
// session.
func (r *MessageRepo) LatestAssistant(ctx context.Context, sessionID string) (*model.Message, error) {
	where := map[string]interface{}{
		"session_id": sessionID,
		"role":       model.RoleAssistant,
		"_orderby":   "ctime desc",
		"_limit":     []uint{1},
	}
	sqlStr, args, err := builder.BuildSelect("messages", where, messageColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	msg, err := scanMessage(rows)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func scanMessage(rows *sql.Rows) (model.Message, error) {
	var msg model.Message
	var contentJSON []byte
	if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.ContentText, &contentJSON, &msg.Ctime); err != nil {
		return model.Message{}, err
	}
	if len(contentJSON) > 0 {
		msg.ContentJSON = contentJSON
	}
	return msg, nil
}
