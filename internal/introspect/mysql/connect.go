package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"schemadrift/internal/config"
	"schemadrift/internal/core"
)

// DSN builds a go-sql-driver DSN from a connection descriptor.
func DSN(conn config.Connection) string {
	cfg := mysql.NewConfig()
	cfg.User = conn.User
	cfg.Passwd = conn.Password
	cfg.Net = "tcp"
	cfg.Addr = conn.Addr()
	cfg.DBName = conn.Database
	cfg.Timeout = 10 * time.Second
	return cfg.FormatDSN()
}

// Open connects and pings. The caller closes the returned pool.
func Open(ctx context.Context, conn config.Connection) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(conn))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", conn.Addr(), err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", conn.Addr(), err)
	}
	return db, nil
}

// Capture opens conn, introspects its database and closes the connection.
// The returned snapshot carries the descriptor's host and database name.
func Capture(ctx context.Context, conn config.Connection, logger *zap.Logger) (*core.Database, []core.Warning, error) {
	db, err := Open(ctx, conn)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	snap, warnings, err := New(logger).Introspect(ctx, db, conn.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("introspect %s/%s: %w", conn.Host, conn.Database, err)
	}
	snap.Host = conn.Host
	return snap, warnings, nil
}
