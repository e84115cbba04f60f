// Package mysql reads table structure from MySQL, MariaDB and TiDB through
// information_schema. All three speak the same protocol; the flavor is detected
// only for logging.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"schemadrift/internal/core"
	"schemadrift/internal/introspect"
)

func init() {
	introspect.Register("mysql", New)
	introspect.Register("mariadb", New)
	introspect.Register("tidb", New)
}

type introspecter struct {
	logger *zap.Logger
}

type introspectCtx struct {
	ctx    context.Context
	db     *sql.DB
	schema string
}

func New(logger *zap.Logger) introspect.Introspecter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &introspecter{logger: logger}
}

// Introspect captures every base table of schema. An empty schema means the
// connection's current database.
func (i *introspecter) Introspect(ctx context.Context, db *sql.DB, schema string) (*core.Database, []core.Warning, error) {
	if schema == "" {
		var current sql.NullString
		if err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&current); err != nil {
			return nil, nil, fmt.Errorf("current database: %w", err)
		}
		if !current.Valid || current.String == "" {
			return nil, nil, fmt.Errorf("no database selected")
		}
		schema = current.String
	}

	srv, err := detectServer(ctx, db)
	if err != nil {
		return nil, nil, fmt.Errorf("detect server: %w", err)
	}
	i.logger.Debug("introspecting schema",
		zap.String("schema", schema),
		zap.String("flavor", srv.flavor),
		zap.String("version", srv.version))

	ic := &introspectCtx{ctx: ctx, db: db, schema: schema}
	tables, err := introspectTables(ic)
	if err != nil {
		return nil, nil, fmt.Errorf("list tables: %w", err)
	}
	columns, err := introspectColumns(ic)
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}
	indexes, err := introspectIndexes(ic)
	if err != nil {
		return nil, nil, fmt.Errorf("read indexes: %w", err)
	}

	d := &core.Database{Name: schema}
	var warnings []core.Warning
	for _, info := range tables {
		t, w := introspect.FromIntrospectionRows(info.name, columns[info.name])
		t.Comment = info.comment
		t.Indexes = indexes[info.name]
		d.Tables = append(d.Tables, t)
		warnings = append(warnings, w...)
		i.logger.Debug("introspected table",
			zap.String("table", t.Name),
			zap.Int("columns", len(t.Columns)),
			zap.Int("indexes", len(t.Indexes)))
	}
	return d, warnings, nil
}
