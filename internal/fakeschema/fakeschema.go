// Package fakeschema generates random, valid snapshots for property tests.
package fakeschema

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"schemadrift/internal/core"
)

type columnKind struct {
	raw      string
	defaults []string
	integer  bool
}

var columnKinds = []columnKind{
	{raw: "int(11)", defaults: []string{"0", "1", "42"}, integer: true},
	{raw: "int unsigned", defaults: []string{"0", "7"}, integer: true},
	{raw: "bigint(20) unsigned", integer: true},
	{raw: "tinyint(1)", defaults: []string{"0", "1"}, integer: true},
	{raw: "smallint", defaults: []string{"5"}, integer: true},
	{raw: "varchar(32)", defaults: []string{"", "n/a", "a,b", "it's", "(none)"}},
	{raw: "varchar(255)", defaults: []string{"pending"}},
	{raw: "char(2)", defaults: []string{"US"}},
	{raw: "decimal(10,2)", defaults: []string{"0.00", "9.99"}},
	{raw: "double"},
	{raw: "datetime", defaults: []string{"CURRENT_TIMESTAMP"}},
	{raw: "timestamp", defaults: []string{"CURRENT_TIMESTAMP"}},
	{raw: "date"},
	{raw: "text"},
	{raw: "longtext"},
	{raw: "json"},
	{raw: "blob"},
	{raw: "varbinary(16)"},
	{raw: "enum('new','paid','void')", defaults: []string{"new", "void"}},
	{raw: "set('a','b')"},
}

// Options bounds the generated snapshot.
type Options struct {
	MaxTables  int
	MaxColumns int
}

// Database returns a random snapshot. Names are unique under lower-case folding.
func Database(f *gofakeit.Faker, opts Options) *core.Database {
	if opts.MaxTables <= 0 {
		opts.MaxTables = 6
	}
	if opts.MaxColumns <= 0 {
		opts.MaxColumns = 8
	}

	db := &core.Database{Host: "host-" + strings.ToLower(f.LetterN(4)), Name: "db_" + strings.ToLower(f.LetterN(5))}
	n := f.Number(1, opts.MaxTables)
	for i := 0; i < n; i++ {
		db.Tables = append(db.Tables, Table(f, fmt.Sprintf("t_%s_%d", strings.ToLower(f.LetterN(6)), i), opts.MaxColumns))
	}
	return db
}

// Table returns a random table with an auto-increment primary key followed by
// up to maxColumns-1 random columns.
func Table(f *gofakeit.Faker, name string, maxColumns int) *core.Table {
	t := &core.Table{Name: name}
	id := core.NewColumn("id", "int(10) unsigned")
	id.Nullable = false
	id.AddFlag(core.FlagAutoIncrement, core.FlagPrimaryKey)
	t.Columns = append(t.Columns, id)

	n := f.Number(0, max(maxColumns-1, 0))
	for i := 0; i < n; i++ {
		t.Columns = append(t.Columns, Column(f, fmt.Sprintf("c%d_%s", i, strings.ToLower(f.LetterN(3)))))
	}
	t.Renumber()
	return t
}

// Column returns a random non-key column.
func Column(f *gofakeit.Faker, name string) *core.Column {
	kind := columnKinds[f.Number(0, len(columnKinds)-1)]
	c := core.NewColumn(name, kind.raw)
	c.Nullable = f.Bool()
	if len(kind.defaults) > 0 && f.Bool() {
		d := f.RandomString(kind.defaults)
		c.Default = &d
	}
	if kind.raw == "timestamp" && f.Bool() {
		c.AddFlag(core.OnUpdateFlag("CURRENT_TIMESTAMP"))
	}
	return c
}

// Mutate returns a changed copy of db: tables are dropped and added, and
// columns are dropped, added and retyped. db itself is not modified.
func Mutate(f *gofakeit.Faker, db *core.Database) *core.Database {
	out := db.Clone()

	var kept []*core.Table
	for _, t := range out.Tables {
		if len(out.Tables) > 1 && f.Number(0, 4) == 0 {
			continue
		}
		kept = append(kept, t)
	}
	out.Tables = kept

	for _, t := range out.Tables {
		var cols []*core.Column
		for _, c := range t.Columns {
			switch {
			case c.Name == "id":
			case f.Number(0, 5) == 0:
				continue
			case f.Number(0, 5) == 0:
				c = Column(f, c.Name)
			case f.Number(0, 5) == 0:
				c.Nullable = !c.Nullable
			}
			cols = append(cols, c)
		}
		for i := f.Number(0, 2); i > 0; i-- {
			cols = append(cols, Column(f, fmt.Sprintf("n%d_%s", i, strings.ToLower(f.LetterN(4)))))
		}
		t.Columns = cols
		t.Renumber()
	}

	for i := f.Number(0, 2); i > 0; i-- {
		out.Tables = append(out.Tables, Table(f, fmt.Sprintf("new_%s_%d", strings.ToLower(f.LetterN(5)), i), 5))
	}
	return out
}
