// Package snapshot persists core.Database values as JSON documents and manages
// the <root>/<host>/<database>/<timestamp>/ folder tree they are stored in.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"schemadrift/internal/core"
)

// document is the on-disk shape of a snapshot. Tables are keyed by name and
// hold their ordered column list, which keeps per-table files and the combined
// file interchangeable.
type document struct {
	Host      string                    `json:"host"`
	Database  string                    `json:"database"`
	Timestamp string                    `json:"timestamp"`
	Tables    map[string][]*core.Column `json:"tables"`
	Indexes   map[string][]*core.Index  `json:"indexes,omitempty"`
	Comments  map[string]string         `json:"comments,omitempty"`
}

// Marshal encodes db as indented JSON.
func Marshal(db *core.Database) ([]byte, error) {
	doc := document{
		Host:      db.Host,
		Database:  db.Name,
		Timestamp: db.Timestamp,
		Tables:    make(map[string][]*core.Column, len(db.Tables)),
	}
	for _, t := range db.Tables {
		if _, dup := doc.Tables[t.Name]; dup {
			return nil, fmt.Errorf("duplicate table %q", t.Name)
		}
		doc.Tables[t.Name] = nonNilColumns(t.Columns)
		if len(t.Indexes) > 0 {
			if doc.Indexes == nil {
				doc.Indexes = make(map[string][]*core.Index)
			}
			doc.Indexes[t.Name] = t.Indexes
		}
		if t.Comment != "" {
			if doc.Comments == nil {
				doc.Comments = make(map[string]string)
			}
			doc.Comments[t.Name] = t.Comment
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal decodes a snapshot. Canonical types are re-derived from the stored
// raw types, flags are re-normalized and tables come back sorted by name with
// columns in ordinal order.
func Unmarshal(data []byte) (*core.Database, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	db := &core.Database{Host: doc.Host, Name: doc.Database, Timestamp: doc.Timestamp}
	names := make([]string, 0, len(doc.Tables))
	for name := range doc.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t, err := tableFromColumns(name, doc.Tables[name])
		if err != nil {
			return nil, err
		}
		t.Indexes = doc.Indexes[name]
		t.Comment = doc.Comments[name]
		db.Tables = append(db.Tables, t)
	}
	return db, nil
}

// Decode reads a snapshot from r.
func Decode(r io.Reader) (*core.Database, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// MarshalTable encodes a table's ordered column list, the per-table file format.
func MarshalTable(t *core.Table) ([]byte, error) {
	return json.MarshalIndent(nonNilColumns(t.Columns), "", "  ")
}

// UnmarshalTable decodes a per-table file.
func UnmarshalTable(name string, data []byte) (*core.Table, error) {
	var cols []*core.Column
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", name, err)
	}
	return tableFromColumns(name, cols)
}

func tableFromColumns(name string, cols []*core.Column) (*core.Table, error) {
	t := &core.Table{Name: name}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("table %s: column %d is null", name, i)
		}
		if strings.TrimSpace(c.TypeRaw) == "" {
			return nil, fmt.Errorf("table %s: column %q has no type", name, c.Name)
		}
		col := core.NewColumn(c.Name, c.TypeRaw)
		col.Nullable = c.Nullable
		col.Default = c.Default
		col.Position = c.Position
		col.Comment = c.Comment
		col.Charset = c.Charset
		col.Collate = c.Collate
		col.AddFlag(c.Flags...)
		t.Columns = append(t.Columns, col)
	}

	sort.SliceStable(t.Columns, func(i, j int) bool { return t.Columns[i].Position < t.Columns[j].Position })
	if !positionsSet(t.Columns) {
		t.Renumber()
	}
	return t, nil
}

// positionsSet reports whether every column carries a distinct positive ordinal.
func positionsSet(cols []*core.Column) bool {
	for i, c := range cols {
		if c.Position <= 0 || (i > 0 && cols[i-1].Position == c.Position) {
			return false
		}
	}
	return true
}

func nonNilColumns(cols []*core.Column) []*core.Column {
	if cols == nil {
		return []*core.Column{}
	}
	return cols
}
