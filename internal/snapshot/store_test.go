package snapshot

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemadrift/internal/core"
	"schemadrift/internal/parser/ddl"
)

type fakeRenderer struct{}

func (fakeRenderer) CreateTable(t *core.Table) (string, error) {
	return "CREATE TABLE " + t.Name + " (...);", nil
}

func (fakeRenderer) QuoteIdentifier(name string) string { return "`" + name + "`" }

type failingRenderer struct{ fakeRenderer }

func (failingRenderer) CreateTable(*core.Table) (string, error) {
	return "", errors.New("boom")
}

func sampleDB(t *testing.T) *core.Database {
	t.Helper()
	db, _, err := ddl.ParseSchema(`
CREATE TABLE users (id int NOT NULL, email varchar(100), PRIMARY KEY (id), UNIQUE KEY uniq_email (email));
CREATE TABLE logs (id bigint NOT NULL, msg text);
`)
	require.NoError(t, err)
	db.Host, db.Name = "db1.local", "shop"
	return db
}

func TestStoreSaveWritesFolder(t *testing.T) {
	store := &Store{Root: t.TempDir(), Renderer: fakeRenderer{}}
	db := sampleDB(t)
	db.Timestamp = "2025-06-01-14"

	dir, err := store.Save(db)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root, "db1.local", "shop", "2025-06-01-14"), dir)

	for _, name := range []string{SnapshotFile, "users.json", "users.sql", "logs.json", "logs.sql", StructureFile, IndexesFile, IndexesJSONFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	sql, err := os.ReadFile(filepath.Join(dir, "users.sql"))
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE users (...);\n", string(sql))

	indexes, err := os.ReadFile(filepath.Join(dir, IndexesFile))
	require.NoError(t, err)
	assert.Equal(t,
		"ALTER TABLE `users` ADD PRIMARY KEY (id);\n"+
			"ALTER TABLE `users` ADD UNIQUE KEY uniq_email (email);\n",
		string(indexes))

	structure, err := os.ReadFile(filepath.Join(dir, StructureFile))
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE users (...);\n\nCREATE TABLE logs (...);\n", string(structure))

	indexJSON, err := os.ReadFile(filepath.Join(dir, IndexesJSONFile))
	require.NoError(t, err)
	var byTable map[string][]*core.Index
	require.NoError(t, json.Unmarshal(indexJSON, &byTable))
	require.Len(t, byTable, 1)
	assert.Len(t, byTable["users"], 2)

	loaded, err := store.Load("db1.local", "shop", "2025-06-01-14")
	require.NoError(t, err)
	assert.Equal(t, sortedCopy(db), loaded)
}

func TestStoreSaveStampsTimestamp(t *testing.T) {
	store := &Store{
		Root: t.TempDir(),
		Now:  func() time.Time { return time.Date(2025, 3, 4, 5, 59, 0, 0, time.UTC) },
	}
	db := sampleDB(t)

	dir, err := store.Save(db)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04-05", filepath.Base(dir))
	assert.Empty(t, db.Timestamp, "the caller's database is not stamped")
	assert.NoFileExists(t, filepath.Join(dir, "users.sql"))
	assert.NoFileExists(t, filepath.Join(dir, StructureFile))

	loaded, err := store.Load("db1.local", "shop", "2025-03-04-05")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04-05", loaded.Timestamp)
}

func TestStoreSaveErrors(t *testing.T) {
	store := &Store{Root: t.TempDir()}

	_, err := store.Save(&core.Database{Name: "shop"})
	assert.Error(t, err)

	db := sampleDB(t)
	db.Timestamp = "yesterday"
	_, err = store.Save(db)
	assert.Error(t, err)

	store.Renderer = failingRenderer{}
	db.Timestamp = "2025-01-01-00"
	_, err = store.Save(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestStoreLatest(t *testing.T) {
	root := t.TempDir()
	store := &Store{Root: root}
	base := filepath.Join(root, "h", "d")
	for _, name := range []string{"2024-12-31-23", "2025-01-10-08", "2025-01-02-09", "notes", "2025-13-01-00"} {
		require.NoError(t, os.MkdirAll(filepath.Join(base, name), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(base, "2099-01-01-00"), nil, 0o644))

	ts, err := store.Timestamps("h", "d")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-12-31-23", "2025-01-02-09", "2025-01-10-08"}, ts)

	latest, err := store.Latest("h", "d")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10-08", latest)

	_, err = store.Latest("h", "missing")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestStoreLoadLatestFromPerTableFiles(t *testing.T) {
	root := t.TempDir()
	store := &Store{Root: root}
	dir := store.Dir("h", "d", "2025-02-02-02")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"),
		[]byte(`[{"name":"id","type":"int","nullable":false,"position":1},{"name":"name","type":"varchar(20)","nullable":true,"position":2}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "all-tables-indexes.json"), []byte(`{}`), 0o644))

	db, err := store.LoadLatest("h", "d")
	require.NoError(t, err)
	assert.Equal(t, "h", db.Host)
	assert.Equal(t, "d", db.Name)
	assert.Equal(t, "2025-02-02-02", db.Timestamp)
	require.Len(t, db.Tables, 1)
	assert.Equal(t, "users", db.Tables[0].Name)
	assert.Len(t, db.Tables[0].Columns, 2)
}

func TestLoadDirReportsEveryBadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`[`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(`[{"name":"x"}]`), 0o644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "table a") && strings.Contains(err.Error(), "table b"), err.Error())

	_, err = LoadDir(t.TempDir())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}
