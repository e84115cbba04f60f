package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"schemadrift/internal/core"
)

// TimestampLayout names snapshot folders, e.g. 2025-06-01-14.
const TimestampLayout = "2006-01-02-15"

const (
	SnapshotFile    = "snapshot.json"
	StructureFile   = "all-tables-structure.sql"
	IndexesFile     = "all-tables-indexes.sql"
	IndexesJSONFile = "all-tables-indexes.json"
)

// ErrNoSnapshot is returned when a host/database folder holds no timestamped
// snapshot.
var ErrNoSnapshot = errors.New("no snapshot found")

// TableRenderer renders the CREATE TABLE statement stored next to each
// per-table JSON file.
type TableRenderer interface {
	CreateTable(t *core.Table) (string, error)
	QuoteIdentifier(name string) string
}

// Store reads and writes snapshots under Root.
type Store struct {
	Root     string
	Renderer TableRenderer
	Logger   *zap.Logger
	// Now stamps snapshots saved without a timestamp.
	Now func() time.Time
}

func (s *Store) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Dir returns the folder of one snapshot.
func (s *Store) Dir(host, database, timestamp string) string {
	return filepath.Join(s.Root, host, database, timestamp)
}

// Save writes db under <root>/<host>/<database>/<timestamp>/: snapshot.json,
// one <table>.json and <table>.sql per table, all-tables-structure.sql,
// all-tables-indexes.sql and all-tables-indexes.json. An empty db.Timestamp
// is taken from the clock; db itself is left untouched. Save returns the
// folder.
func (s *Store) Save(db *core.Database) (string, error) {
	if db.Host == "" || db.Name == "" {
		return "", fmt.Errorf("snapshot needs host and database, got %q/%q", db.Host, db.Name)
	}
	stamped := *db
	if stamped.Timestamp == "" {
		now := time.Now
		if s.Now != nil {
			now = s.Now
		}
		stamped.Timestamp = now().Format(TimestampLayout)
	}
	if _, err := time.Parse(TimestampLayout, stamped.Timestamp); err != nil {
		return "", fmt.Errorf("snapshot timestamp %q does not match %s: %w", stamped.Timestamp, TimestampLayout, err)
	}

	dir := s.Dir(stamped.Host, stamped.Name, stamped.Timestamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := Marshal(&stamped)
	if err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(dir, SnapshotFile), data); err != nil {
		return "", err
	}

	var structure, indexes strings.Builder
	indexDoc := make(map[string][]*core.Index)
	for _, t := range stamped.Tables {
		tableJSON, err := MarshalTable(t)
		if err != nil {
			return "", err
		}
		if err := writeFile(filepath.Join(dir, TableFileName(t.Name)+".json"), tableJSON); err != nil {
			return "", err
		}

		if s.Renderer != nil {
			create, err := s.Renderer.CreateTable(t)
			if err != nil {
				return "", fmt.Errorf("render table %s: %w", t.Name, err)
			}
			if err := writeFile(filepath.Join(dir, TableFileName(t.Name)+".sql"), []byte(create+"\n")); err != nil {
				return "", err
			}
			if structure.Len() > 0 {
				structure.WriteString("\n")
			}
			structure.WriteString(create)
			structure.WriteString("\n")
		}

		if len(t.Indexes) > 0 {
			indexDoc[t.Name] = t.Indexes
		}
		for _, idx := range t.Indexes {
			indexes.WriteString("ALTER TABLE ")
			indexes.WriteString(s.quote(t.Name))
			indexes.WriteString(" ADD ")
			indexes.WriteString(idx.Definition)
			indexes.WriteString(";\n")
		}
	}
	if s.Renderer != nil {
		if err := writeFile(filepath.Join(dir, StructureFile), []byte(structure.String())); err != nil {
			return "", err
		}
	}
	if err := writeFile(filepath.Join(dir, IndexesFile), []byte(indexes.String())); err != nil {
		return "", err
	}
	indexJSON, err := json.MarshalIndent(indexDoc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode indexes: %w", err)
	}
	if err := writeFile(filepath.Join(dir, IndexesJSONFile), indexJSON); err != nil {
		return "", err
	}

	s.logger().Info("snapshot saved",
		zap.String("dir", dir),
		zap.Int("tables", len(stamped.Tables)))
	return dir, nil
}

func (s *Store) quote(name string) string {
	if s.Renderer != nil {
		return s.Renderer.QuoteIdentifier(name)
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Timestamps lists the snapshot folders of host/database in ascending order.
// Folders whose name is not a timestamp are ignored.
func (s *Store) Timestamps(host, database string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.Root, host, database))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(TimestampLayout, e.Name()); err != nil {
			continue
		}
		out = append(out, e.Name())
	}
	// the layout is fixed-width, so lexical order is chronological
	sort.Strings(out)
	return out, nil
}

// Latest returns the newest snapshot timestamp of host/database.
func (s *Store) Latest(host, database string) (string, error) {
	ts, err := s.Timestamps(host, database)
	if err != nil {
		return "", err
	}
	if len(ts) == 0 {
		return "", fmt.Errorf("%w for %s/%s under %s", ErrNoSnapshot, host, database, s.Root)
	}
	return ts[len(ts)-1], nil
}

// Load reads one snapshot. A folder without snapshot.json is assembled from
// its per-table JSON files.
func (s *Store) Load(host, database, timestamp string) (*core.Database, error) {
	dir := s.Dir(host, database, timestamp)
	data, err := os.ReadFile(filepath.Join(dir, SnapshotFile))
	if errors.Is(err, fs.ErrNotExist) {
		db, err := LoadDir(dir)
		if err != nil {
			return nil, err
		}
		db.Host, db.Name, db.Timestamp = host, database, timestamp
		return db, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Unmarshal(data)
}

// LoadLatest reads the newest snapshot of host/database.
func (s *Store) LoadLatest(host, database string) (*core.Database, error) {
	ts, err := s.Latest(host, database)
	if err != nil {
		return nil, err
	}
	return s.Load(host, database, ts)
}

// LoadDir assembles a snapshot from the <table>.json files in dir. Every
// malformed file is reported.
func LoadDir(dir string) (*core.Database, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	db := &core.Database{}
	var errs error
	for _, p := range paths {
		base := filepath.Base(p)
		if base == SnapshotFile || base == IndexesJSONFile {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		t, err := UnmarshalTable(strings.TrimSuffix(base, ".json"), data)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		db.Tables = append(db.Tables, t)
	}
	if errs != nil {
		return nil, errs
	}
	if len(db.Tables) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSnapshot, dir)
	}
	return db, nil
}

// TableFileName keeps table names usable as file names.
func TableFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, name)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
