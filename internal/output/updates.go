package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"schemadrift/internal/snapshot"
)

// UpdateSchemaFile collects every statement of a run in execution order.
const UpdateSchemaFile = "update-schema.sql"

// WriteUpdates writes the plan of r under <root>/<host>/<database>/<timestamp>/:
// one <table>-structure.sql per table with statements and update-schema.sql
// with the full SQL report. It returns the folder. A report without
// statements writes nothing and returns "".
func WriteUpdates(root, host, database, timestamp string, r *Report) (string, error) {
	if r == nil || r.Plan == nil || r.Plan.Empty() {
		return "", nil
	}
	if host == "" || database == "" || timestamp == "" {
		return "", fmt.Errorf("updates need host, database and timestamp, got %q/%q/%q", host, database, timestamp)
	}

	dir := filepath.Join(root, host, database, timestamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create updates dir: %w", err)
	}

	for _, table := range r.Plan.Tables() {
		stmts := r.Plan.TableStatements(table)
		if len(stmts) == 0 {
			continue
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "-- schemadrift run %s: %s\n", r.RunID, table)
		for _, stmt := range stmts {
			sb.WriteString(normalizeStatement(stmt))
			sb.WriteString("\n")
		}
		name := snapshot.TableFileName(table) + "-structure.sql"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sb.String()), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}

	script, err := sqlFormatter{}.Format(r)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, UpdateSchemaFile), []byte(script), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", UpdateSchemaFile, err)
	}
	return dir, nil
}
