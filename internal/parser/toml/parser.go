// Package toml reads desired-schema files written in TOML and converts them
// into the canonical core.Database, so a hand-maintained schema can be
// compared against a snapshot or a live database.
package toml

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"schemadrift/internal/core"
)

// schemaFile is the top-level TOML document. [database] and [[tables]] are
// both top-level keys.
type schemaFile struct {
	Database tomlDatabase `toml:"database"`
	Tables   []tomlTable  `toml:"tables"`
}

// tomlDatabase maps [database].
type tomlDatabase struct {
	Name string `toml:"name"`
	Host string `toml:"host"`
}

// Parser reads TOML schema files.
type Parser struct{}

// NewParser creates a new TOML schema parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile opens the file at the given path and parses it as a TOML schema.
func (p *Parser) ParseFile(path string) (*core.Database, []core.Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("toml: open file %q: %w", path, err)
	}
	defer f.Close()

	return p.Parse(f)
}

// Parse reads TOML content from r. Columns whose type is not recognized are
// kept as opaque types and reported as warnings.
func (p *Parser) Parse(r io.Reader) (*core.Database, []core.Warning, error) {
	var sf schemaFile
	md, err := toml.NewDecoder(r).Decode(&sf)
	if err != nil {
		return nil, nil, fmt.Errorf("toml: decode error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, nil, fmt.Errorf("toml: unknown keys: %s", strings.Join(keys, ", "))
	}

	db, err := convert(&sf)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Validate(core.DefaultComparePolicy()); err != nil {
		return nil, nil, err
	}

	var warnings []core.Warning
	for _, t := range db.Tables {
		warnings = append(warnings, t.UnknownTypeWarnings()...)
	}
	return db, warnings, nil
}

func convert(sf *schemaFile) (*core.Database, error) {
	db := &core.Database{
		Host:   sf.Database.Host,
		Name:   sf.Database.Name,
		Tables: make([]*core.Table, 0, len(sf.Tables)),
	}

	for i := range sf.Tables {
		tt := &sf.Tables[i]
		if strings.TrimSpace(tt.Name) == "" {
			return nil, fmt.Errorf("toml: table #%d: %w", i+1, errors.New("table name is empty"))
		}
		t, err := convertTable(tt)
		if err != nil {
			return nil, fmt.Errorf("toml: table %q: %w", tt.Name, err)
		}
		db.Tables = append(db.Tables, t)
	}
	return db, nil
}
