// Package core contains the canonical schema model shared by every stage of schemadrift.
// Parsers and introspecters produce it, the diff engine compares it and dialects render
// it back to SQL. A Database built here is treated as an immutable snapshot.
package core

import (
	"slices"
	"strings"
)

// Column flags. Flags are free-form lower-case tags so new attributes can be
// captured without changing the model.
const (
	FlagAutoIncrement = "auto_increment"
	FlagUnsigned      = "unsigned"
	FlagZerofill      = "zerofill"
	FlagPrimaryKey    = "primary_key"
	FlagUnique        = "unique"
	// FlagDefaultExpression marks a default that is an expression, stored in
	// parentheses, rather than a string literal that happens to look like one.
	FlagDefaultExpression = "default_expression"

	flagOnUpdatePrefix = "on_update:"
)

// keyFlags describe key membership, which belongs to index structure rather than
// to the column definition. They are kept for rendering CREATE TABLE but are not
// compared.
var keyFlags = map[string]struct{}{
	FlagPrimaryKey: {},
	FlagUnique:     {},
}

// Database represents one schema snapshot: the tables of a single database captured
// from one host at one point in time.
type Database struct {
	Host      string
	Name      string
	Timestamp string
	Tables    []*Table
}

// Table represents a table in the snapshot.
type Table struct {
	Name    string    `json:"name"`
	Columns []*Column `json:"columns"`
	Indexes []*Index  `json:"indexes,omitempty"`
	Comment string    `json:"comment,omitempty"`
}

// Column represents one column of a table.
type Column struct {
	Name     string        `json:"name"`
	TypeRaw  string        `json:"type"`
	Type     CanonicalType `json:"-"`
	Nullable bool          `json:"nullable"`
	Default  *string       `json:"default"`
	Position int           `json:"position"`
	Flags    []string      `json:"flags,omitempty"`

	Comment string `json:"comment,omitempty"`
	Charset string `json:"charset,omitempty"`
	Collate string `json:"collate,omitempty"`
}

// Index is a key or constraint line captured from a table definition.
// Indexes are persisted with the snapshot but never diffed.
type Index struct {
	Name       string   `json:"name,omitempty"`
	Kind       string   `json:"kind"`
	Columns    []string `json:"columns,omitempty"`
	Definition string   `json:"definition"`
}

// NewColumn builds a column from a raw vendor type, normalizing the type and
// merging type-level modifiers (UNSIGNED, ZEROFILL) into the flag set.
func NewColumn(name, rawType string) *Column {
	ct, flags := NormalizeType(rawType)
	c := &Column{
		Name:     name,
		TypeRaw:  strings.TrimSpace(rawType),
		Type:     ct,
		Nullable: true,
	}
	c.AddFlag(flags...)
	return c
}

// FindTable returns the table with the given name, folding case.
func (db *Database) FindTable(name string) *Table {
	for _, t := range db.Tables {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

// TableNames returns table names in declaration order.
func (db *Database) TableNames() []string {
	names := make([]string, 0, len(db.Tables))
	for _, t := range db.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Clone returns a deep copy of the database.
func (db *Database) Clone() *Database {
	if db == nil {
		return nil
	}
	out := &Database{Host: db.Host, Name: db.Name, Timestamp: db.Timestamp}
	out.Tables = make([]*Table, 0, len(db.Tables))
	for _, t := range db.Tables {
		out.Tables = append(out.Tables, t.Clone())
	}
	return out
}

// FindColumn returns the column with the given name, folding case.
func (t *Table) FindColumn(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// PrimaryKeyColumns returns the names of columns flagged as primary key, in order.
func (t *Table) PrimaryKeyColumns() []string {
	var out []string
	for _, c := range t.Columns {
		if c.HasFlag(FlagPrimaryKey) {
			out = append(out, c.Name)
		}
	}
	return out
}

// Renumber assigns 1-based ordinal positions following declaration order.
func (t *Table) Renumber() {
	for i, c := range t.Columns {
		c.Position = i + 1
	}
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Name: t.Name, Comment: t.Comment}
	out.Columns = make([]*Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		out.Columns = append(out.Columns, c.Clone())
	}
	for _, idx := range t.Indexes {
		cp := *idx
		cp.Columns = slices.Clone(idx.Columns)
		out.Indexes = append(out.Indexes, &cp)
	}
	return out
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Flags = slices.Clone(c.Flags)
	cp.Type.Values = slices.Clone(c.Type.Values)
	cp.Type.Params = slices.Clone(c.Type.Params)
	if c.Default != nil {
		v := *c.Default
		cp.Default = &v
	}
	return &cp
}

// HasFlag reports whether the column carries flag f.
func (c *Column) HasFlag(f string) bool {
	_, ok := slices.BinarySearch(c.Flags, f)
	return ok
}

// AddFlag adds flags, keeping the set sorted and free of duplicates.
func (c *Column) AddFlag(flags ...string) {
	for _, f := range flags {
		f = normalizeFlag(f)
		if f == "" {
			continue
		}
		i, ok := slices.BinarySearch(c.Flags, f)
		if ok {
			continue
		}
		c.Flags = slices.Insert(c.Flags, i, f)
	}
}

// RemoveFlag removes f if present.
func (c *Column) RemoveFlag(f string) {
	if i, ok := slices.BinarySearch(c.Flags, normalizeFlag(f)); ok {
		c.Flags = slices.Delete(c.Flags, i, i+1)
	}
}

// OnUpdate returns the ON UPDATE expression, or "" when the column has none.
func (c *Column) OnUpdate() string {
	for _, f := range c.Flags {
		if expr, ok := strings.CutPrefix(f, flagOnUpdatePrefix); ok {
			return expr
		}
	}
	return ""
}

// OnUpdateFlag returns the flag tag recording an ON UPDATE expression.
func OnUpdateFlag(expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return ""
	}
	return flagOnUpdatePrefix + NormalizeDefault(expr)
}

// DefinitionFlags returns the flags that belong to the column definition itself,
// leaving out key membership and the default expression marker, which is part
// of the default.
func (c *Column) DefinitionFlags() []string {
	out := make([]string, 0, len(c.Flags))
	for _, f := range c.Flags {
		if _, ok := keyFlags[f]; ok || f == FlagDefaultExpression {
			continue
		}
		out = append(out, f)
	}
	return out
}

func normalizeFlag(f string) string {
	f = strings.TrimSpace(f)
	if f == "" {
		return ""
	}
	if expr, ok := strings.CutPrefix(strings.ToLower(f), flagOnUpdatePrefix); ok {
		return OnUpdateFlag(f[len(f)-len(expr):])
	}
	return strings.ToLower(f)
}

// MarkDefaultExpression flags the default as an expression when it is one.
// Callers use it only for defaults that were not quoted in the source.
func (c *Column) MarkDefaultExpression() {
	if c.Default == nil {
		return
	}
	if expr, ok := DefaultExpression(*c.Default); ok {
		c.Default = &expr
		c.AddFlag(FlagDefaultExpression)
	}
}

// DefaultExpression reports whether an unquoted default is an expression, and
// returns it in parentheses. Numbers, TRUE/FALSE, bit literals and temporal
// keywords such as CURRENT_TIMESTAMP(3) are not expressions.
func DefaultExpression(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" || IsTemporalDefault(strings.ToUpper(v)) {
		return "", false
	}
	if v[0] == '(' && v[len(v)-1] == ')' {
		return v, true
	}
	if strings.Contains(v, "(") {
		return "(" + v + ")", true
	}
	return "", false
}

// IsTemporalDefault reports whether a normalized default is a temporal keyword
// that MySQL accepts unquoted and without parentheses.
func IsTemporalDefault(v string) bool {
	switch v {
	case "CURRENT_TIMESTAMP", "CURRENT_DATE", "CURRENT_TIME", "LOCALTIME", "LOCALTIMESTAMP", "NOW()":
		return true
	}
	return strings.HasPrefix(v, "CURRENT_TIMESTAMP(") || strings.HasPrefix(v, "NOW(") ||
		strings.HasPrefix(v, "LOCALTIMESTAMP(") || strings.HasPrefix(v, "LOCALTIME(")
}

// NormalizeDefault canonicalizes a default value as stored in the model: string
// literals lose their quotes, and SQL keywords and function calls are upper-cased.
func NormalizeDefault(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && (v[0] == '\'' || v[0] == '"') && v[len(v)-1] == v[0] {
		return unquoteLiteral(v)
	}
	upper := strings.ToUpper(v)
	// MariaDB reports current_timestamp() where MySQL reports CURRENT_TIMESTAMP.
	upper = strings.TrimSuffix(upper, "()")
	if upper == "NOW" {
		return "NOW()"
	}
	switch upper {
	case "NULL", "TRUE", "FALSE", "CURRENT_TIMESTAMP", "CURRENT_DATE", "CURRENT_TIME", "LOCALTIME", "LOCALTIMESTAMP":
		return upper
	}
	if strings.HasPrefix(upper, "CURRENT_TIMESTAMP(") || strings.HasPrefix(upper, "NOW(") {
		return upper
	}
	return v
}

// unquoteLiteral strips the surrounding quotes of a SQL string literal and
// resolves doubled quotes and backslash escapes.
func unquoteLiteral(s string) string {
	q := s[0]
	body := s[1 : len(s)-1]
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case ch == q && i+1 < len(body) && body[i+1] == q:
			b.WriteByte(q)
			i++
		case ch == '\\' && i+1 < len(body):
			i++
			switch body[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			default:
				b.WriteByte(body[i])
			}
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// UnquoteIdentifier strips backtick or double-quote identifier quoting.
func UnquoteIdentifier(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		q := s[0]
		if (q == '`' || q == '"') && s[len(s)-1] == q {
			inner := s[1 : len(s)-1]
			return strings.ReplaceAll(inner, string([]byte{q, q}), string(q))
		}
	}
	return s
}
