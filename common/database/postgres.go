package database

import (
	"context"
	"database/sql"
	"fmt"

	"driveguard/common/config"

	_ "github.com/lib/pq"
)

// Connect 打开 PostgreSQL 连接池并确认连通
// 只有事件日志一张表，连接池按 MaxConns/MaxIdle 限制
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdle)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
