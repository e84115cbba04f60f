// Package mysql renders schema changes as MySQL DDL.
package mysql

import (
	"fmt"

	"schemadrift/internal/dialect"
	"schemadrift/internal/diff"
)

func init() {
	dialect.Register(dialect.MySQL, func(opts dialect.RenderOptions) dialect.Dialect {
		return New(opts)
	})
}

// Dialect renders MySQL statements. It holds only its options.
type Dialect struct {
	opts dialect.RenderOptions
}

// New returns a MySQL dialect.
func New(opts dialect.RenderOptions) *Dialect {
	if opts.Quote == "" {
		opts.Quote = dialect.QuoteAsNeeded
	}
	return &Dialect{opts: opts}
}

// Name returns dialect.MySQL.
func (d *Dialect) Name() dialect.Type {
	return dialect.MySQL
}

// Render returns the single statement that applies ch.
func (d *Dialect) Render(ch *diff.Change) (string, error) {
	if err := ch.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", dialect.ErrInvalidChange, err)
	}

	table := d.QuoteIdentifier(ch.Table)
	switch ch.Kind {
	case diff.AddTable:
		return d.CreateTable(ch.TableDef)
	case diff.DropTable:
		return fmt.Sprintf("DROP TABLE %s;", table), nil
	case diff.AddColumn:
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, d.columnDefinition(ch.After))
		if d.opts.Placement {
			stmt += d.placement(ch.Previous)
		}
		return stmt + ";", nil
	case diff.DropColumn:
		return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", table, d.QuoteIdentifier(ch.Before.Name)), nil
	case diff.ModifyColumn:
		if ch.Renamed() {
			return fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s;", table, d.QuoteIdentifier(ch.Before.Name), d.columnDefinition(ch.After)), nil
		}
		return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;", table, d.columnDefinition(ch.After)), nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", dialect.ErrInvalidChange, ch.Kind)
}

func (d *Dialect) placement(previous string) string {
	if previous == "" {
		return " FIRST"
	}
	return " AFTER " + d.QuoteIdentifier(previous)
}
