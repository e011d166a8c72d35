package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const createOddsHistoryTable = `
CREATE TABLE IF NOT EXISTS odds_history (
	game_key   TEXT PRIMARY KEY,
	odds_json  TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

type sqliteStore struct {
	db *sql.DB
}

// InitSqliteStore 打开(或创建)嵌入式存储
// 单进程同步使用,进程启动时连不上视为致命错误
func InitSqliteStore(path string) (OddsStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("打开sqlite失败: %w", err)
	}
	if _, err := db.Exec(createOddsHistoryTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化odds_history表失败: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) GetPrevious(ctx context.Context, gameKey string) ([]byte, bool, error) {
	var odds string
	err := s.db.QueryRowContext(ctx,
		`SELECT odds_json FROM odds_history WHERE game_key = ?`, gameKey).Scan(&odds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取上一轮快照失败: %w", err)
	}
	return []byte(odds), true, nil
}

func (s *sqliteStore) Store(ctx context.Context, gameKey string, odds []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO odds_history (game_key, odds_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(game_key) DO UPDATE SET
			odds_json = excluded.odds_json,
			updated_at = excluded.updated_at`,
		gameKey, string(odds), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("写入快照失败: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
