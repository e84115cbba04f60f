// Package parser reads a schema from a file in any supported format and
// converts it to the canonical core.Database representation.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"schemadrift/internal/core"
	"schemadrift/internal/parser/ddl"
	"schemadrift/internal/parser/mysql"
	"schemadrift/internal/parser/toml"
	"schemadrift/internal/snapshot"
)

// Engine selects the SQL parser.
type Engine string

const (
	// EngineScan is the tolerant quote-aware scanner. It skips clauses it does
	// not understand.
	EngineScan Engine = "scan"
	// EngineTiDB parses with the TiDB MySQL grammar and rejects anything the
	// grammar does not accept.
	EngineTiDB Engine = "tidb"
)

// ParseSQL parses CREATE TABLE statements with the chosen engine. Tables that
// fail to parse are left out and reported in err; the rest are returned.
func ParseSQL(sql string, engine Engine) (*core.Database, []core.Warning, error) {
	switch engine {
	case EngineScan, "":
		return ddl.ParseSchema(sql)
	case EngineTiDB:
		return mysql.NewParser().Parse(sql)
	default:
		return nil, nil, fmt.Errorf("unsupported parser engine %q", engine)
	}
}

// ParseFile reads a schema by file extension: .sql dumps, .toml desired-schema
// files and .json snapshots. A directory is read as a stored snapshot folder,
// preferring its combined snapshot.json over the per-table files.
func ParseFile(path string, engine Engine) (*core.Database, []core.Warning, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		combined := filepath.Join(path, snapshot.SnapshotFile)
		if _, err := os.Stat(combined); err == nil {
			return ParseFile(combined, engine)
		}
		db, err := snapshot.LoadDir(path)
		return db, unknownTypes(db), err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".sql":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		return ParseSQL(string(data), engine)
	case ".toml":
		return toml.NewParser().ParseFile(path)
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		db, err := snapshot.Decode(f)
		if err != nil {
			return nil, nil, fmt.Errorf("decode snapshot %s: %w", path, err)
		}
		return db, unknownTypes(db), nil
	default:
		return nil, nil, &UnsupportedFormatError{Path: path}
	}
}

func unknownTypes(db *core.Database) []core.Warning {
	if db == nil {
		return nil
	}
	var out []core.Warning
	for _, t := range db.Tables {
		out = append(out, t.UnknownTypeWarnings()...)
	}
	return out
}

type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return "unsupported file format: " + e.Path
}
