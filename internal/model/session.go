package model

import "encoding/json"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Session struct {
	ID    string `json:"id"`
	Ctime int64  `json:"ctime"`
}

// Message is one turn of the chat log. User turns carry ContentText,
// assistant turns carry the full AssistantTurn blob in ContentJSON.
type Message struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	Role        string          `json:"role"`
	ContentText string          `json:"content_text"`
	ContentJSON json.RawMessage `json:"content_json"`
	Ctime       int64           `json:"ctime"`
}

const (
	ChecklistStatusTodo       = "todo"
	ChecklistStatusInProgress = "in_progress"
	ChecklistStatusDone       = "done"
)

type ChecklistItem struct {
	ID        string  `json:"id"`
	SessionID string  `json:"session_id"`
	Label     string  `json:"label"`
	Status    string  `json:"status"`
	DueDate   *string `json:"due_date"`
	Ctime     int64   `json:"ctime"`
	Mtime     int64   `json:"mtime"`
}
