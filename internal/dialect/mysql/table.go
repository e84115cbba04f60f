package mysql

import (
	"errors"
	"fmt"
	"strings"

	"schemadrift/internal/core"
)

// CreateTable renders a CREATE TABLE statement. Primary key membership is
// rendered as a PRIMARY KEY line; captured keys follow it. Foreign keys are
// left out so tables can be created in any order (see AddKey).
func (d *Dialect) CreateTable(t *core.Table) (string, error) {
	if t == nil {
		return "", errors.New("create table: nil table")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("create table %s: no columns", t.Name)
	}

	lines := make([]string, 0, len(t.Columns)+len(t.Indexes)+1)
	for _, c := range t.Columns {
		lines = append(lines, "  "+d.columnDefinition(c))
	}
	if pk := primaryKey(t); len(pk) > 0 {
		lines = append(lines, "  PRIMARY KEY "+d.formatColumns(pk))
	}
	for _, c := range t.Columns {
		if c.HasFlag(core.FlagUnique) && !hasUniqueKey(t, c.Name) {
			lines = append(lines, "  UNIQUE KEY "+d.formatColumns([]string{c.Name}))
		}
	}
	for _, idx := range t.Indexes {
		switch idx.Kind {
		case "PRIMARY KEY", "FOREIGN KEY":
			continue
		}
		if def := strings.TrimSpace(idx.Definition); def != "" {
			lines = append(lines, "  "+def)
		}
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (\n%s\n)", d.QuoteIdentifier(t.Name), strings.Join(lines, ",\n"))
	if t.Comment != "" {
		stmt += " COMMENT=" + d.QuoteString(t.Comment)
	}
	return stmt + ";", nil
}

// AddKey renders a captured key or constraint as a standalone ALTER TABLE.
func (d *Dialect) AddKey(table string, idx *core.Index) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s;", d.QuoteIdentifier(table), strings.TrimSpace(idx.Definition))
}

// columnDefinition renders name, type, modifiers and attributes in the order
// MySQL prints them in SHOW CREATE TABLE.
func (d *Dialect) columnDefinition(c *core.Column) string {
	parts := []string{d.QuoteIdentifier(c.Name), c.Type.SQL()}
	if c.HasFlag(core.FlagUnsigned) {
		parts = append(parts, "UNSIGNED")
	}
	if c.HasFlag(core.FlagZerofill) {
		parts = append(parts, "ZEROFILL")
	}
	parts = d.addCharsetCollation(parts, c)
	if !c.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if c.Default != nil {
		parts = append(parts, "DEFAULT "+d.formatDefault(c))
	}
	if c.HasFlag(core.FlagAutoIncrement) {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if expr := c.OnUpdate(); expr != "" {
		parts = append(parts, "ON UPDATE "+expr)
	}
	if c.Comment != "" {
		parts = append(parts, "COMMENT "+d.QuoteString(c.Comment))
	}
	return strings.Join(parts, " ")
}

func (d *Dialect) addCharsetCollation(parts []string, c *core.Column) []string {
	switch c.Type.Kind {
	case core.KindString, core.KindText, core.KindEnum:
	default:
		return parts
	}
	if c.Type.Base == "json" {
		return parts
	}
	if c.Charset != "" {
		parts = append(parts, "CHARACTER SET "+c.Charset)
	}
	if c.Collate != "" {
		parts = append(parts, "COLLATE "+c.Collate)
	}
	return parts
}

// primaryKey prefers the declared PRIMARY KEY column order and falls back to
// the flagged columns.
func primaryKey(t *core.Table) []string {
	for _, idx := range t.Indexes {
		if idx.Kind == "PRIMARY KEY" && len(idx.Columns) > 0 {
			return idx.Columns
		}
	}
	return t.PrimaryKeyColumns()
}

func hasUniqueKey(t *core.Table, column string) bool {
	for _, idx := range t.Indexes {
		if idx.Kind == "UNIQUE KEY" && len(idx.Columns) == 1 && strings.EqualFold(idx.Columns[0], column) {
			return true
		}
	}
	return false
}

func (d *Dialect) formatColumns(cols []string) string {
	quoted := make([]string, 0, len(cols))
	for _, c := range cols {
		if c = strings.TrimSpace(c); c != "" {
			quoted = append(quoted, d.QuoteIdentifier(c))
		}
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}
