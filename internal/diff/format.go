package diff

import (
	"fmt"
	"strings"
)

// Inverse returns the change that undoes c.
func (c *Change) Inverse() *Change {
	switch c.Kind {
	case AddTable:
		return &Change{Kind: DropTable, Table: c.Table, TableDef: c.TableDef}
	case DropTable:
		return &Change{Kind: AddTable, Table: c.Table, TableDef: c.TableDef}
	case AddColumn:
		return &Change{Kind: DropColumn, Table: c.Table, Column: c.After.Name, Before: c.After, Previous: c.Previous}
	case DropColumn:
		return &Change{Kind: AddColumn, Table: c.Table, Column: c.Before.Name, After: c.Before, Previous: c.Previous}
	case ModifyColumn:
		inv := &Change{Kind: ModifyColumn, Table: c.Table, Column: c.After.Name, Before: c.After, After: c.Before}
		for _, fc := range c.Changes {
			inv.Changes = append(inv.Changes, &FieldChange{Field: fc.Field, Old: fc.New, New: fc.Old})
		}
		return inv
	}
	return nil
}

// String returns a one-line description, e.g. "add_column users.email".
func (c *Change) String() string {
	target := c.Table
	if c.Column != "" {
		target += "." + c.Column
	}
	s := string(c.Kind) + " " + target
	if c.Destructive() {
		s += " [destructive]"
	}
	return s
}

// String returns a readable report of the changes and warnings.
func (r *Result) String() string {
	if r.Empty() && len(r.Warnings) == 0 {
		return "No differences detected."
	}

	var sb strings.Builder
	sb.WriteString("Schema differences:\n")

	if len(r.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", w))
		}
	}

	for _, k := range Kinds {
		changes := r.ByKind(k)
		if len(changes) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n%s:\n", kindTitle(k)))
		for _, c := range changes {
			writeChange(&sb, c)
		}
	}
	return sb.String()
}

func writeChange(sb *strings.Builder, c *Change) {
	switch c.Kind {
	case AddTable, DropTable:
		sb.WriteString(fmt.Sprintf("  - %s (%d columns)\n", c.Table, len(c.TableDef.Columns)))
	case AddColumn:
		sb.WriteString(fmt.Sprintf("  - %s.%s: %s\n", c.Table, c.Column, c.After.TypeRaw))
	case DropColumn:
		sb.WriteString(fmt.Sprintf("  - %s.%s: %s\n", c.Table, c.Column, c.Before.TypeRaw))
	case ModifyColumn:
		sb.WriteString(fmt.Sprintf("  - %s.%s:\n", c.Table, c.Column))
		for _, fc := range c.Changes {
			sb.WriteString(fmt.Sprintf("      - %s: %q -> %q\n", fc.Field, fc.Old, fc.New))
		}
	}
}

func kindTitle(k Kind) string {
	switch k {
	case AddTable:
		return "Added tables"
	case AddColumn:
		return "Added columns"
	case ModifyColumn:
		return "Modified columns"
	case DropColumn:
		return "Dropped columns (destructive)"
	case DropTable:
		return "Dropped tables (destructive)"
	}
	return string(k)
}
