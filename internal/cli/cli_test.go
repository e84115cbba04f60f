package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemadrift/internal/parser/ddl"
	"schemadrift/internal/snapshot"
)

const (
	sourceSQL = `
CREATE TABLE users (id int NOT NULL AUTO_INCREMENT PRIMARY KEY, email varchar(100) NOT NULL, name varchar(50));
CREATE TABLE orders (id int NOT NULL, user_id int NOT NULL, PRIMARY KEY (id));`
	targetSQL = `
CREATE TABLE users (id int NOT NULL AUTO_INCREMENT PRIMARY KEY, name varchar(100));
CREATE TABLE logs (id int);`
)

type workspace struct {
	dir    string
	source string
	target string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	w := workspace{
		dir:    dir,
		source: filepath.Join(dir, "source.sql"),
		target: filepath.Join(dir, "target.sql"),
	}
	require.NoError(t, os.WriteFile(w.source, []byte(sourceSQL), 0o644))
	require.NoError(t, os.WriteFile(w.target, []byte(targetSQL), 0o644))
	return w
}

func (w workspace) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	args = append(args,
		"--dump-dir", filepath.Join(w.dir, "dumps"),
		"--updates-dir", filepath.Join(w.dir, "updates"),
		"--log-level", "error")
	var stdout, stderr bytes.Buffer
	code := Execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (w workspace) saveSnapshot(t *testing.T, sql, timestamp string) {
	t.Helper()
	db, _, err := ddl.ParseSchema(sql)
	require.NoError(t, err)
	db.Host, db.Name, db.Timestamp = "db1", "shop", timestamp
	store := &snapshot.Store{Root: filepath.Join(w.dir, "dumps")}
	_, err = store.Save(db)
	require.NoError(t, err)
}

func TestPlanFromFiles(t *testing.T) {
	w := newWorkspace(t)
	code, out, stderr := w.run(t, "plan", "db1", "shop", "--source", w.source, "--target", w.target)
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, out, "-- source: "+w.source)
	assert.Contains(t, out, "ALTER TABLE users ADD COLUMN email VARCHAR(100) NOT NULL;\n")
	assert.Contains(t, out, "\nDROP TABLE logs;\n")
}

func TestPlanWithoutDestructive(t *testing.T) {
	w := newWorkspace(t)
	code, out, stderr := w.run(t, "plan", "db1", "shop",
		"--source", w.source, "--target", w.target, "--include-destructive=false")
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, out, "ALTER TABLE users ADD COLUMN email VARCHAR(100) NOT NULL;\n")
	assert.NotContains(t, out, "\nDROP TABLE logs;\n")
}

func TestPlanWritesFiles(t *testing.T) {
	w := newWorkspace(t)
	out := filepath.Join(w.dir, "migration.sql")
	rollback := filepath.Join(w.dir, "rollback.sql")

	code, stdout, stderr := w.run(t, "plan", "db1", "shop",
		"--source", w.source, "--target", w.target,
		"-o", out, "-r", rollback, "--write")
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Output saved to "+out)
	assert.Contains(t, stderr, "Updates saved to ")

	script, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(script), "DROP TABLE logs;")

	undo, err := os.ReadFile(rollback)
	require.NoError(t, err)
	assert.Contains(t, string(undo), "ALTER TABLE users DROP COLUMN email;")

	matches, err := filepath.Glob(filepath.Join(w.dir, "updates", "db1", "shop", "*", "update-schema.sql"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestPlanWritesUpdatesForTarget(t *testing.T) {
	w := newWorkspace(t)
	w.saveSnapshot(t, sourceSQL, "2025-06-01-10")
	w.saveSnapshot(t, targetSQL, "2025-06-02-10")

	code, out, stderr := w.run(t, "plan", "db1", "shop",
		"--timestamp", "2025-06-01-10", "--target", w.target,
		"--target-host", "db2", "--target-database", "shop2", "--write")
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, out, "-- source: db1/shop@2025-06-01-10")
	assert.Contains(t, out, "ALTER TABLE users ADD COLUMN email VARCHAR(100) NOT NULL;\n")
	assert.FileExists(t, filepath.Join(w.dir, "updates", "db2", "shop2", "2025-06-01-10", "update-schema.sql"))
	assert.NoDirExists(t, filepath.Join(w.dir, "updates", "db1"))
}

func TestPlanWritesUpdatesUnderGivenTimestamp(t *testing.T) {
	w := newWorkspace(t)
	code, _, stderr := w.run(t, "plan", "db1", "shop",
		"--source", w.source, "--target", w.target, "--timestamp", "2025-01-02-03", "--write")
	require.Equal(t, 0, code, stderr)

	assert.FileExists(t, filepath.Join(w.dir, "updates", "db1", "shop", "2025-01-02-03", "update-schema.sql"))
}

func TestDiffAgainstLatestSnapshot(t *testing.T) {
	w := newWorkspace(t)
	w.saveSnapshot(t, targetSQL, "2025-06-01-10")
	w.saveSnapshot(t, sourceSQL, "2025-06-02-10")

	code, out, stderr := w.run(t, "diff", "db1", "shop", "--target", w.target)
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, out, "Source:      db1/shop@2025-06-02-10\n")
	assert.Contains(t, out, "Tables:      +1, -1\n")
	assert.Contains(t, out, "  - drop_table logs [destructive]\n")
}

func TestDiffJSONFromConfigFile(t *testing.T) {
	w := newWorkspace(t)
	cfgFile := filepath.Join(w.dir, "schemadrift.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("format: json\n"), 0o644))

	code, out, stderr := w.run(t, "diff", "db1", "shop",
		"--config", cfgFile, "--source", w.source, "--target", w.target)
	require.Equal(t, 0, code, stderr)

	var payload struct {
		Format  string `json:"format"`
		Summary struct {
			Changes int `json:"changes"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "json", payload.Format)
	assert.Equal(t, 4, payload.Summary.Changes)
}

func TestLatest(t *testing.T) {
	w := newWorkspace(t)
	w.saveSnapshot(t, targetSQL, "2025-06-01-10")
	w.saveSnapshot(t, sourceSQL, "2025-06-02-10")

	code, out, stderr := w.run(t, "latest", "db1", "shop")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "2025-06-02-10\n", out)

	code, _, stderr = w.run(t, "latest", "db1", "other")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no snapshot found")
}

func TestShow(t *testing.T) {
	w := newWorkspace(t)
	code, out, stderr := w.run(t, "show", w.source)
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, out, "Tables found: 2\n")
	assert.Contains(t, out, "- users (3 columns)\n")
	assert.Contains(t, out, "  - email: varchar(100) NOT NULL\n")
}

func TestErrors(t *testing.T) {
	w := newWorkspace(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "unknown format",
			args: []string{"plan", "db1", "shop", "--source", w.source, "--target", w.target, "--format", "xml"},
			want: "unsupported format",
		},
		{
			name: "unknown parser",
			args: []string{"show", w.source, "--parser", "yacc"},
			want: "unsupported parser",
		},
		{
			name: "missing descriptor",
			args: []string{"snapshot", "db1", "shop"},
			want: "no connection descriptor found",
		},
		{
			name: "live target reads the target descriptor",
			args: []string{"diff", "db1", "shop", "--source", w.source, "--target-host", "db2", "--target-database", "shop2"},
			want: filepath.Join("db2", "shop2"),
		},
		{
			name: "malformed timestamp",
			args: []string{"diff", "db1", "shop", "--timestamp", "yesterday", "--target", w.target},
			want: "does not match",
		},
		{
			name: "unknown snapshot timestamp",
			args: []string{"diff", "db1", "shop", "--timestamp", "2020-01-01-00", "--target", w.target},
			want: "no snapshot found at 2020-01-01-00",
		},
		{
			name: "missing args",
			args: []string{"plan", "db1"},
			want: "accepts 2 arg(s)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := w.run(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}
