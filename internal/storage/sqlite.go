package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reportbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &sqliteStore{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("sqlite store opened", logx.String("path", cfg.Path))
	return s, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) LoadChat(ctx context.Context, chatID int64) (ChatRecord, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM chats WHERE chat_id = ?`, chatID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ChatRecord{}, false, nil
	}
	if err != nil {
		return ChatRecord{}, false, err
	}
	var rec ChatRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return ChatRecord{}, false, err
	}
	return rec, true, nil
}

func (s *sqliteStore) SaveChat(ctx context.Context, chatID int64, rec ChatRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chats(chat_id, record, updated_at) VALUES(?,?,?)
		 ON CONFLICT(chat_id) DO UPDATE SET record=excluded.record, updated_at=excluded.updated_at`,
		chatID, string(b), rec.UpdatedAt.Format(time.RFC3339Nano))
	return err
}

func (s *sqliteStore) DeleteChat(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE chat_id = ?`, chatID)
	return err
}

func (s *sqliteStore) ListChats(ctx context.Context) (map[int64]ChatRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id, record FROM chats`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]ChatRecord{}
	for rows.Next() {
		var id int64
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var rec ChatRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.log.Warn("skipping undecodable chat record", logx.Int64("chat_id", id), logx.Err(err))
			continue
		}
		out[id] = rec
	}
	return out, rows.Err()
}

func (s *sqliteStore) Compact(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
