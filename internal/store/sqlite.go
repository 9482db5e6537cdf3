package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/devaloi/chatterbox-cleaner/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens or creates a SQLite database at the given path.
// Use ":memory:" for an in-memory database.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}

	// Every connection to ":memory:" opens its own database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// busyTimeout is how long a connection waits for another writer's lock
// before failing with SQLITE_BUSY. Bot replies, evictions and client deletes
// write from their own goroutines.
const busyTimeout = 5 * time.Second

// dsn applies busyTimeout through the driver's _pragma parameter, which runs
// on every new pooled connection.
func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", path, sep, busyTimeout.Milliseconds())
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room TEXT NOT NULL,
			user TEXT NOT NULL,
			text TEXT NOT NULL,
			type TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages(room, created_at);
	`)
	return err
}

// Save persists a message to the database and returns its row id.
func (s *SQLiteStore) Save(msg domain.Message) (int64, error) {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	res, err := s.db.Exec(
		"INSERT INTO messages (room, user, text, type, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.Room, msg.User, msg.Text, msg.Type, ts,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// History returns the last `limit` messages for a room, oldest first.
func (s *SQLiteStore) History(room string, limit int) ([]domain.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, room, user, text, type, created_at FROM messages
		WHERE room = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, room, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.Room, &m.User, &m.Text, &m.Type, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Get returns the message with the given id in room.
func (s *SQLiteStore) Get(room string, id int64) (domain.Message, error) {
	var m domain.Message
	err := s.db.QueryRow(`
		SELECT id, room, user, text, type, created_at FROM messages
		WHERE room = ? AND id = ?
	`, room, id).Scan(&m.ID, &m.Room, &m.User, &m.Text, &m.Type, &m.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Message{}, fmt.Errorf("%w: %d in %s", ErrNotFound, id, room)
	}
	return m, err
}

// Delete removes the message with the given id from room.
func (s *SQLiteStore) Delete(room string, id int64) error {
	res, err := s.db.Exec("DELETE FROM messages WHERE room = ? AND id = ?", room, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d in %s", ErrNotFound, id, room)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
