// Package journal records the commands the bridge executes.
//
// Each call to the bridge's command operation produces one Entry, whether
// or not anything was published. The SQLite repository stores them in the
// command_journal table created by the migrations package.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/climate-bridge/internal/command"
)

// Limits for List.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// ErrInvalidEntry is returned when an entry lacks its action.
var ErrInvalidEntry = errors.New("journal: invalid entry")

// Entry is one executed command.
type Entry struct {
	ID        string                  `json:"id"`
	Action    string                  `json:"action"`
	Source    string                  `json:"source"`
	Text      string                  `json:"text,omitempty"`
	Intent    command.Intent          `json:"intent,omitempty"`
	Commands  []command.DeviceCommand `json:"commands,omitempty"`
	Success   bool                    `json:"success"`
	Message   string                  `json:"message"`
	CreatedAt time.Time               `json:"created_at"`
}

// Repository stores and lists journal entries.
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}

// SQLiteRepository is a Repository backed by SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on db. The command_journal table
// must already exist.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts entry. ID and CreatedAt are filled in when empty.
func (r *SQLiteRepository) Record(ctx context.Context, entry *Entry) error {
	if entry.Action == "" {
		return fmt.Errorf("%w: missing action", ErrInvalidEntry)
	}
	if entry.ID == "" {
		entry.ID = "cmd-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Source == "" {
		entry.Source = "api"
	}

	var commandsJSON *string
	if len(entry.Commands) > 0 {
		b, err := json.Marshal(entry.Commands)
		if err != nil {
			return fmt.Errorf("marshalling journal commands: %w", err)
		}
		s := string(b)
		commandsJSON = &s
	}

	success := 0
	if entry.Success {
		success = 1
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO command_journal (id, action, source, text, intent, commands, success, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, entry.Source,
		nullableString(entry.Text), nullableString(string(entry.Intent)),
		commandsJSON, success, entry.Message,
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

// nullableString maps "" to NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns up to limit entries, newest first. limit is clamped to
// 1..MaxLimit, with DefaultLimit for zero or negative values.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, action, source, text, intent, commands, success, message, created_at
		 FROM command_journal ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var text, intent, commandsJSON sql.NullString
		var success int
		var createdAt string

		if err := rows.Scan(&e.ID, &e.Action, &e.Source, &text, &intent,
			&commandsJSON, &success, &e.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}

		e.Text = text.String
		e.Intent = command.Intent(intent.String)
		e.Success = success != 0
		if commandsJSON.Valid && commandsJSON.String != "" {
			if err := json.Unmarshal([]byte(commandsJSON.String), &e.Commands); err != nil {
				return nil, fmt.Errorf("decoding journal commands for %s: %w", e.ID, err)
			}
		}

		e.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing journal timestamp %q: %w", createdAt, err)
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}
	return entries, nil
}
