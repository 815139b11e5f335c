// Package catalog persists the broadcast server's room, recording, and
// directory-token bookkeeping in SQLite.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("catalog: not found")

// RoomRow is one persisted room.
type RoomRow struct {
	ID        string
	Name      string
	Port      int
	Token     string
	CreatedAt time.Time
}

// RecordingRow is one persisted recording's metadata.
type RecordingRow struct {
	ID        string
	RoomID    string
	Path      string
	SizeBytes int64
	CreatedAt time.Time
}

// Catalog persists server state in SQLite.
type Catalog struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database and runs migrations.
func Open(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("catalog: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("catalog opened", "path", path)
	return c, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Catalog) migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	port INTEGER NOT NULL,
	token TEXT NOT NULL UNIQUE,
	created_at_unix_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rooms_token ON rooms(token);

CREATE TABLE IF NOT EXISTS recordings (
	id TEXT PRIMARY KEY,
	room_id TEXT NOT NULL,
	path TEXT NOT NULL,
	size_bytes INTEGER NOT NULL CHECK(size_bytes >= 0),
	created_at_unix_ms INTEGER NOT NULL,
	FOREIGN KEY(room_id) REFERENCES rooms(id)
);
CREATE INDEX IF NOT EXISTS idx_recordings_room ON recordings(room_id);
`
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("run catalog migrations: %w", err)
	}
	slog.Debug("catalog migrations applied")
	return nil
}

// CreateRoom persists a new room with an issued directory token.
func (c *Catalog) CreateRoom(ctx context.Context, id, name string, port int, token string) error {
	const q = `INSERT INTO rooms (id, name, port, token, created_at_unix_ms) VALUES (?, ?, ?, ?, ?)`
	_, err := c.db.ExecContext(ctx, q, id, name, port, token, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	slog.Debug("room persisted", "room_id", id, "port", port)
	return nil
}

// RoomByToken looks up a room by its directory-issued token.
func (c *Catalog) RoomByToken(ctx context.Context, token string) (RoomRow, error) {
	const q = `SELECT id, name, port, token, created_at_unix_ms FROM rooms WHERE token = ?`
	var r RoomRow
	var createdAtMs int64
	err := c.db.QueryRowContext(ctx, q, token).Scan(&r.ID, &r.Name, &r.Port, &r.Token, &createdAtMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RoomRow{}, ErrNotFound
		}
		return RoomRow{}, fmt.Errorf("query room: %w", err)
	}
	r.CreatedAt = time.UnixMilli(createdAtMs).UTC()
	return r, nil
}

// ListRooms returns every persisted room, most recent first.
func (c *Catalog) ListRooms(ctx context.Context) ([]RoomRow, error) {
	const q = `SELECT id, name, port, token, created_at_unix_ms FROM rooms ORDER BY created_at_unix_ms DESC`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var out []RoomRow
	for rows.Next() {
		var r RoomRow
		var createdAtMs int64
		if err := rows.Scan(&r.ID, &r.Name, &r.Port, &r.Token, &createdAtMs); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdAtMs).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordRecording persists a completed recording's metadata.
func (c *Catalog) RecordRecording(ctx context.Context, id, roomID, path string, sizeBytes int64) error {
	const q = `INSERT INTO recordings (id, room_id, path, size_bytes, created_at_unix_ms) VALUES (?, ?, ?, ?, ?)`
	_, err := c.db.ExecContext(ctx, q, id, roomID, path, sizeBytes, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	slog.Debug("recording persisted", "recording_id", id, "room_id", roomID, "size", sizeBytes)
	return nil
}

// RecordingsForRoom lists a room's recordings, most recent first.
func (c *Catalog) RecordingsForRoom(ctx context.Context, roomID string) ([]RecordingRow, error) {
	const q = `SELECT id, room_id, path, size_bytes, created_at_unix_ms FROM recordings WHERE room_id = ? ORDER BY created_at_unix_ms DESC`
	rows, err := c.db.QueryContext(ctx, q, roomID)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var out []RecordingRow
	for rows.Next() {
		var r RecordingRow
		var createdAtMs int64
		if err := rows.Scan(&r.ID, &r.RoomID, &r.Path, &r.SizeBytes, &createdAtMs); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdAtMs).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
