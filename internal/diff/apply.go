package diff

import (
	"fmt"
	"slices"

	"schemadrift/internal/core"
)

// Apply returns a copy of target with every change applied, as the emitted
// statements would leave it. target is not modified. Diffing the source
// against the result yields no changes.
func (r *Result) Apply(target *core.Database) (*core.Database, error) {
	out := target.Clone()
	fold := r.Policy.Fold
	if r.Policy == (core.ComparePolicy{}) {
		fold = core.DefaultComparePolicy().Fold
	}

	findTable := func(name string) (int, *core.Table) {
		for i, t := range out.Tables {
			if fold(t.Name) == fold(name) {
				return i, t
			}
		}
		return -1, nil
	}
	findColumn := func(t *core.Table, name string) int {
		for i, c := range t.Columns {
			if fold(c.Name) == fold(name) {
				return i
			}
		}
		return -1
	}

	for _, ch := range r.Changes {
		ti, t := findTable(ch.Table)
		switch ch.Kind {
		case AddTable:
			if t != nil {
				return nil, fmt.Errorf("apply %s: table %s already exists", ch.Kind, ch.Table)
			}
			out.Tables = append(out.Tables, ch.TableDef.Clone())
			continue
		case DropTable:
			if t == nil {
				return nil, fmt.Errorf("apply %s: table %s not found", ch.Kind, ch.Table)
			}
			out.Tables = slices.Delete(out.Tables, ti, ti+1)
			continue
		}

		if t == nil {
			return nil, fmt.Errorf("apply %s: table %s not found", ch.Kind, ch.Table)
		}
		ci := findColumn(t, ch.Column)
		switch ch.Kind {
		case AddColumn:
			if ci >= 0 {
				return nil, fmt.Errorf("apply %s: column %s.%s already exists", ch.Kind, ch.Table, ch.Column)
			}
			at := len(t.Columns)
			if ch.Previous == "" {
				at = 0
			} else if pi := findColumn(t, ch.Previous); pi >= 0 {
				at = pi + 1
			}
			t.Columns = slices.Insert(t.Columns, at, ch.After.Clone())
		case ModifyColumn:
			if ci < 0 {
				return nil, fmt.Errorf("apply %s: column %s.%s not found", ch.Kind, ch.Table, ch.Column)
			}
			t.Columns[ci] = ch.After.Clone()
		case DropColumn:
			if ci < 0 {
				return nil, fmt.Errorf("apply %s: column %s.%s not found", ch.Kind, ch.Table, ch.Column)
			}
			t.Columns = slices.Delete(t.Columns, ci, ci+1)
		default:
			return nil, fmt.Errorf("apply: unknown change kind %q", ch.Kind)
		}
		t.Renumber()
	}
	return out, nil
}
