package history

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"github.com/driftbot/driftbot/internal/schema"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	context    TEXT NOT NULL,
	messages   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_owner ON conversations(owner);
CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
`

// SQLiteStorage persists conversations in a single SQLite table, keeping
// the message transcript as a JSON blob per row. Schema is owned by the
// app and applied on open.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (creating if missing) the database at path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("open", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageErr("open", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, storageErr("open", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Load(id string) (*schema.Conversation, error) {
	row := s.db.QueryRow(
		`SELECT owner, created_at, updated_at, context, messages FROM conversations WHERE id = ?`, id)

	var owner, createdAt, updatedAt, contextJSON, messagesJSON string
	if err := row.Scan(&owner, &createdAt, &updatedAt, &contextJSON, &messagesJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, errNotFound
		}
		return nil, storageErr("load", err)
	}

	conv := &schema.Conversation{ID: id, Owner: owner, Context: map[string]string{}}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		conv.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		conv.UpdatedAt = t
	}
	if err := json.Unmarshal([]byte(contextJSON), &conv.Context); err != nil {
		return nil, storageErr("load", err)
	}

	var wires []wireMessage
	if err := json.Unmarshal([]byte(messagesJSON), &wires); err != nil {
		return nil, storageErr("load", err)
	}
	for _, w := range wires {
		conv.Messages = append(conv.Messages, wireToMessage(w))
	}
	return conv, nil
}

func (s *SQLiteStorage) Save(conv *schema.Conversation) error {
	wires := make([]wireMessage, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		wires = append(wires, messageToWire(m))
	}
	messagesJSON, err := json.Marshal(wires)
	if err != nil {
		return storageErr("save", err)
	}
	contextJSON, err := json.Marshal(conv.Context)
	if err != nil {
		return storageErr("save", err)
	}

	_, err = s.db.Exec(`
INSERT INTO conversations (id, owner, created_at, updated_at, context, messages)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	owner = excluded.owner,
	updated_at = excluded.updated_at,
	context = excluded.context,
	messages = excluded.messages`,
		conv.ID, conv.Owner,
		conv.CreatedAt.UTC().Format(time.RFC3339Nano),
		conv.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(contextJSON), string(messagesJSON))
	if err != nil {
		return storageErr("save", err)
	}
	return nil
}

func (s *SQLiteStorage) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return storageErr("delete", err)
	}
	return nil
}

func (s *SQLiteStorage) List(owner string) ([]Summary, error) {
	query := `SELECT id, owner, created_at, updated_at, messages FROM conversations`
	args := []any{}
	if owner != "" {
		query += ` WHERE owner = ?`
		args = append(args, owner)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("list", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var createdAt, updatedAt, messagesJSON string
		if err := rows.Scan(&sum.ID, &sum.Owner, &createdAt, &updatedAt, &messagesJSON); err != nil {
			return nil, storageErr("list", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			sum.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			sum.UpdatedAt = t
		}
		var wires []wireMessage
		if err := json.Unmarshal([]byte(messagesJSON), &wires); err == nil {
			sum.MessageCount = len(wires)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", err)
	}
	return out, nil
}

func (s *SQLiteStorage) Close() error { return s.db.Close() }
