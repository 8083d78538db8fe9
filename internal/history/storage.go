// Package history owns conversation state: creation, append-only message
// threading, trimming, context notes, and pluggable persistence.
package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/driftbot/driftbot/internal/schema"
)

var (
	// ErrConversationNotFound is returned for operations on unknown ids.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrInvalidMessage is returned when an appended message violates
	// tool-call threading rules.
	ErrInvalidMessage = errors.New("invalid message")
	// errNotFound is the sentinel storage backends return from Load when
	// the id is absent. The manager translates it to ErrConversationNotFound.
	errNotFound = errors.New("storage: conversation absent")
)

// StorageError wraps a backend I/O failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Summary describes one stored conversation without its messages.
type Summary struct {
	ID           string
	Owner        string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Storage is the persistence boundary. Implementations must be safe for
// concurrent use from independent conversations and must return copies
// the caller may mutate freely.
//
// Load returns errNotFound (via IsNotFound) for absent ids; all other
// failures are backend I/O errors.
type Storage interface {
	Load(id string) (*schema.Conversation, error)
	Save(conv *schema.Conversation) error
	Delete(id string) error
	List(owner string) ([]Summary, error)
	Close() error
}

// IsNotFound reports whether err means the conversation does not exist.
func IsNotFound(err error) bool { return errors.Is(err, errNotFound) }

// NewStorage selects a backend by name: "memory" (default), "file"
// (requires dir), or "sqlite" (requires path).
func NewStorage(backend, dir, path string) (Storage, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStorage(), nil
	case "file":
		if dir == "" {
			return nil, fmt.Errorf("file storage requires a directory")
		}
		return NewFileStorage(dir)
	case "sqlite":
		if path == "" {
			return nil, fmt.Errorf("sqlite storage requires a database path")
		}
		return NewSQLiteStorage(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
