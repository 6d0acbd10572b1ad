// Package state persists the relay's durable state: discovered chat titles
// and the forwarding-enabled flag shared with the admin command loop.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

const forwardEnabledKey = "forward_enabled"

// ChatInfo is one entry of the chat-title store.
type ChatInfo struct {
	ID    int64
	Title string
}

// Store is a SQLite-backed key-value state store. Every read degrades to a
// default on error so a broken database never stops the relay.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create state directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open state database: %w", err)
	}

	// Single connection: SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("state migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_titles (
		chat_id     INTEGER PRIMARY KEY,
		title       TEXT NOT NULL,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key    TEXT PRIMARY KEY,
		value  TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ChatTitle returns the stored title for a chat.
func (s *Store) ChatTitle(ctx context.Context, chatID int64) (string, bool) {
	var title string
	err := s.db.QueryRowContext(ctx,
		`SELECT title FROM chat_titles WHERE chat_id = ?`, chatID,
	).Scan(&title)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		s.logger.Warn("chat title read failed", "chat_id", chatID, "err", err)
		return "", false
	}
	return title, true
}

// SaveChatTitle records a chat's display title, overwriting a previous one.
func (s *Store) SaveChatTitle(ctx context.Context, chatID int64, title string) error {
	if title == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_titles (chat_id, title, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		chatID, title, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save chat title: %w", err)
	}
	return nil
}

// ChatTitles lists every known chat, sorted by id.
func (s *Store) ChatTitles(ctx context.Context) []ChatInfo {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id, title FROM chat_titles`)
	if err != nil {
		s.logger.Warn("chat titles listing failed", "err", err)
		return nil
	}
	defer rows.Close()

	var chats []ChatInfo
	for rows.Next() {
		var c ChatInfo
		if err := rows.Scan(&c.ID, &c.Title); err != nil {
			s.logger.Warn("chat titles scan failed", "err", err)
			continue
		}
		chats = append(chats, c)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].ID < chats[j].ID })
	return chats
}

// ForwardingEnabled reports whether the relay should forward messages.
// A missing or unreadable flag defaults to enabled.
func (s *Store) ForwardingEnabled(ctx context.Context) bool {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, forwardEnabledKey,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return true
	}
	if err != nil {
		s.logger.Warn("forwarding flag read failed", "err", err)
		return true
	}
	return value != "false"
}

// SetForwardingEnabled persists the forwarding flag.
func (s *Store) SetForwardingEnabled(ctx context.Context, enabled bool) error {
	value := "true"
	if !enabled {
		value = "false"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		forwardEnabledKey, value,
	)
	if err != nil {
		return fmt.Errorf("set forwarding flag: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
