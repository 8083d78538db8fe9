package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/driftbot/driftbot/internal/schema"
)

// FileStorage persists each conversation as a JSONL file:
//
//	Line 1:  {"_type":"metadata","id":"…","owner":"…","created_at":"…",
//	          "updated_at":"…","context":{…}}
//	Line 2+: one JSON message object per line
type FileStorage struct {
	dir string
}

// NewFileStorage creates the directory if necessary.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageErr("init", fmt.Errorf("create history dir: %w", err))
	}
	return &FileStorage{dir: dir}, nil
}

type fileMetadata struct {
	Type      string            `json:"_type"`
	ID        string            `json:"id"`
	Owner     string            `json:"owner"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
	Context   map[string]string `json:"context"`
}

// wireMessage is the on-disk JSON representation of a message.
type wireMessage struct {
	Role       string           `json:"role"`
	Content    *string          `json:"content"`
	ToolCalls  []map[string]any `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
	Timestamp  string           `json:"timestamp"`
}

func messageToWire(m schema.Message) wireMessage {
	w := wireMessage{
		Role:       m.Role,
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
		Name:       m.ToolName,
		Timestamp:  m.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	for _, tc := range m.ToolCalls {
		w.ToolCalls = append(w.ToolCalls, tc.ToWireMap())
	}
	return w
}

func wireToMessage(w wireMessage) schema.Message {
	msg := schema.Message{
		Role:       w.Role,
		Content:    w.Content,
		ToolCallID: w.ToolCallID,
		ToolName:   w.Name,
	}
	if t, err := time.Parse(time.RFC3339Nano, w.Timestamp); err == nil {
		msg.Timestamp = t
	}
	for _, tcm := range w.ToolCalls {
		fn, _ := tcm["function"].(map[string]any)
		id, _ := tcm["id"].(string)
		name, _ := fn["name"].(string)
		argsStr, _ := fn["arguments"].(string)
		var args map[string]any
		_ = json.Unmarshal([]byte(argsStr), &args)
		msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{ID: id, Name: name, Arguments: args})
	}
	return msg
}

func (s *FileStorage) path(id string) string {
	return filepath.Join(s.dir, id+".jsonl")
}

func (s *FileStorage) Load(id string) (*schema.Conversation, error) {
	f, err := os.Open(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errNotFound
		}
		return nil, storageErr("load", err)
	}
	defer f.Close()

	conv := &schema.Conversation{ID: id, Context: map[string]string{}}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<20) // 1 MB per line
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if bytes.Contains(line, []byte(`"_type":"metadata"`)) {
			var meta fileMetadata
			if err := json.Unmarshal(line, &meta); err != nil {
				slog.Warn("skipping malformed metadata line", "id", id, "err", err)
				continue
			}
			conv.Owner = meta.Owner
			if meta.Context != nil {
				conv.Context = meta.Context
			}
			if t, err := time.Parse(time.RFC3339Nano, meta.CreatedAt); err == nil {
				conv.CreatedAt = t
			}
			if t, err := time.Parse(time.RFC3339Nano, meta.UpdatedAt); err == nil {
				conv.UpdatedAt = t
			}
			continue
		}
		var w wireMessage
		if err := json.Unmarshal(line, &w); err != nil {
			slog.Warn("skipping malformed message line", "id", id, "err", err)
			continue
		}
		conv.Messages = append(conv.Messages, wireToMessage(w))
	}
	if err := scanner.Err(); err != nil {
		return nil, storageErr("load", err)
	}
	return conv, nil
}

func (s *FileStorage) Save(conv *schema.Conversation) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	meta := fileMetadata{
		Type:      "metadata",
		ID:        conv.ID,
		Owner:     conv.Owner,
		CreatedAt: conv.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: conv.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Context:   conv.Context,
	}
	if err := enc.Encode(meta); err != nil {
		return storageErr("save", err)
	}
	for _, msg := range conv.Messages {
		if err := enc.Encode(messageToWire(msg)); err != nil {
			return storageErr("save", err)
		}
	}

	if err := os.WriteFile(s.path(conv.ID), buf.Bytes(), 0o644); err != nil {
		return storageErr("save", err)
	}
	return nil
}

func (s *FileStorage) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return storageErr("delete", err)
	}
	return nil
}

func (s *FileStorage) List(owner string) ([]Summary, error) {
	entries, err := filepath.Glob(filepath.Join(s.dir, "*.jsonl"))
	if err != nil {
		return nil, storageErr("list", err)
	}

	var out []Summary
	for _, path := range entries {
		id := strings.TrimSuffix(filepath.Base(path), ".jsonl")
		conv, err := s.Load(id)
		if err != nil {
			slog.Warn("skipping unreadable conversation file", "path", path, "err", err)
			continue
		}
		if owner != "" && conv.Owner != owner {
			continue
		}
		out = append(out, Summary{
			ID:           conv.ID,
			Owner:        conv.Owner,
			MessageCount: len(conv.Messages),
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *FileStorage) Close() error { return nil }
