// Package introspect reads the current structure of a live database. Every
// backend converts its catalog rows through FromIntrospectionRows, so a live
// table converges on the same core.Table shape a parsed CREATE TABLE produces.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"schemadrift/internal/core"
)

// Introspecter captures one schema from an open connection.
type Introspecter interface {
	Introspect(ctx context.Context, db *sql.DB, schema string) (*core.Database, []core.Warning, error)
}

var (
	registry = make(map[string]func(*zap.Logger) Introspecter)
	mu       sync.RWMutex
)

// Register makes a backend available under name.
func Register(name string, fn func(*zap.Logger) Introspecter) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(name)] = fn
}

// New returns the backend registered under name.
func New(name string, logger *zap.Logger) (Introspecter, error) {
	mu.RLock()
	fn, ok := registry[strings.ToLower(name)]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q", name)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return fn(logger), nil
}

// Row is one column as reported by information_schema.columns or
// SHOW FULL COLUMNS.
type Row struct {
	Name     string
	Type     string
	Nullable bool
	Default  *string
	// Extra holds attributes such as "auto_increment" or
	// "DEFAULT_GENERATED on update CURRENT_TIMESTAMP".
	Extra string
	// Key is PRI, UNI, MUL or empty.
	Key      string
	Position int
	Comment  string
	Charset  string
	Collate  string
}

// FromIntrospectionRows builds a table from catalog rows. Rows are ordered by
// Position; types go through core.NormalizeType and Extra/Key become flags.
func FromIntrospectionRows(table string, rows []Row) (*core.Table, []core.Warning) {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	t := &core.Table{Name: table}
	for _, r := range sorted {
		col := core.NewColumn(r.Name, r.Type)
		col.Nullable = r.Nullable
		col.Comment = r.Comment
		col.Charset = strings.ToLower(r.Charset)
		col.Collate = strings.ToLower(r.Collate)
		col.Default = rowDefault(r.Default)
		col.AddFlag(extraFlags(r.Extra)...)
		// MySQL 8 reports literals and expressions unquoted alike; only
		// DEFAULT_GENERATED tells them apart.
		if strings.Contains(strings.ToUpper(r.Extra), "DEFAULT_GENERATED") {
			col.MarkDefaultExpression()
		}

		switch strings.ToUpper(r.Key) {
		case "PRI":
			col.AddFlag(core.FlagPrimaryKey)
			col.Nullable = false
		case "UNI":
			col.AddFlag(core.FlagUnique)
		}
		t.Columns = append(t.Columns, col)
	}
	t.Renumber()
	return t, t.UnknownTypeWarnings()
}

// rowDefault normalizes a catalog default. MySQL 8 reports string defaults
// unquoted and NULL defaults as SQL NULL, MariaDB quotes strings and reports
// the literal text NULL.
func rowDefault(v *string) *string {
	if v == nil {
		return nil
	}
	d := core.NormalizeDefault(*v)
	if d == "NULL" && !strings.HasPrefix(strings.TrimSpace(*v), "'") {
		return nil
	}
	return &d
}

// extraFlags turns the Extra column into flags.
func extraFlags(extra string) []string {
	lower := strings.ToLower(extra)
	var flags []string
	if strings.Contains(lower, "auto_increment") {
		flags = append(flags, core.FlagAutoIncrement)
	}
	if i := strings.Index(lower, "on update "); i >= 0 {
		expr := strings.TrimSpace(extra[i+len("on update "):])
		if f := core.OnUpdateFlag(expr); f != "" {
			flags = append(flags, f)
		}
	}
	return flags
}
