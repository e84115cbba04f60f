// Package diff compares two schema snapshots and returns the ordered list of
// changes that would make the target match the source.
package diff

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"schemadrift/internal/core"
)

const (
	// renameDetectionScoreThreshold is the minimum similarity score for a
	// dropped+added column pair to be reported as a possible rename. Type
	// equality alone is worth 4 points, so near-identical definitions are needed.
	renameDetectionScoreThreshold = 7

	// renameSharedTokenMinLen is the minimum length of a shared name token
	// ("user" in "user_id" and "user_name") accepted as rename evidence.
	renameSharedTokenMinLen = 3
)

// Kind identifies the type of a change.
type Kind string

const (
	AddTable     Kind = "add_table"
	AddColumn    Kind = "add_column"
	ModifyColumn Kind = "modify_column"
	DropColumn   Kind = "drop_column"
	DropTable    Kind = "drop_table"
)

// kindOrder is the emission order: creations first so later statements can
// refer to them, removals last.
var kindOrder = map[Kind]int{
	AddTable:     0,
	AddColumn:    1,
	ModifyColumn: 2,
	DropColumn:   3,
	DropTable:    4,
}

// Kinds lists every kind in emission order.
var Kinds = []Kind{AddTable, AddColumn, ModifyColumn, DropColumn, DropTable}

// Change is one structural difference.
type Change struct {
	Kind  Kind   `json:"kind"`
	Table string `json:"table"`
	// Column is the column name as it exists in the target; for AddColumn it
	// is the new column's name.
	Column string `json:"column,omitempty"`
	// Before is the target column (ModifyColumn, DropColumn), After the source
	// column (AddColumn, ModifyColumn).
	Before *core.Column `json:"before,omitempty"`
	After  *core.Column `json:"after,omitempty"`
	// TableDef is the whole table for AddTable (source) and DropTable (target).
	TableDef *core.Table `json:"tableDef,omitempty"`
	// Previous names the column that precedes the added or dropped column in
	// its own table; empty means it is the first column.
	Previous string         `json:"previous,omitempty"`
	Changes  []*FieldChange `json:"changes,omitempty"`
}

// FieldChange describes one differing attribute of a modified column.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Destructive reports whether applying the change loses data.
func (c *Change) Destructive() bool {
	return c.Kind == DropTable || c.Kind == DropColumn
}

// Validate checks that c carries the data its kind needs.
func (c *Change) Validate() error {
	if c == nil {
		return errors.New("nil change")
	}
	if c.Table == "" {
		return fmt.Errorf("%s change without table name", c.Kind)
	}
	switch c.Kind {
	case AddTable, DropTable:
		if c.TableDef == nil {
			return fmt.Errorf("%s %s: missing table definition", c.Kind, c.Table)
		}
	case AddColumn:
		if c.After == nil {
			return fmt.Errorf("%s %s: missing column", c.Kind, c.Table)
		}
	case DropColumn:
		if c.Before == nil {
			return fmt.Errorf("%s %s: missing column", c.Kind, c.Table)
		}
	case ModifyColumn:
		if c.Before == nil || c.After == nil {
			return fmt.Errorf("%s %s: missing column", c.Kind, c.Table)
		}
	default:
		return fmt.Errorf("unknown change kind %q", c.Kind)
	}
	return nil
}

// Renamed reports whether a ModifyColumn changes the column name's case.
func (c *Change) Renamed() bool {
	return c.Kind == ModifyColumn && c.Before != nil && c.After != nil && c.Before.Name != c.After.Name
}

// Result holds the ordered changes and the warnings raised while comparing.
type Result struct {
	Changes  []*Change          `json:"changes"`
	Warnings []core.Warning     `json:"warnings,omitempty"`
	Policy   core.ComparePolicy `json:"policy"`
}

// Options tune a comparison.
type Options struct {
	Policy core.ComparePolicy
	// DetectRenames adds rename hints for dropped/added column pairs that look
	// alike. Hints never change the emitted changes.
	DetectRenames bool
	Logger        *zap.Logger
}

// DefaultOptions compares with the default policy and rename hints enabled.
func DefaultOptions() Options {
	return Options{Policy: core.DefaultComparePolicy(), DetectRenames: true}
}

// Diff returns what must change in target to match source. Both snapshots are
// validated first; an inconsistent snapshot yields *core.SchemaInconsistencyError.
// Neither input is modified.
func Diff(source, target *core.Database, opts Options) (*Result, error) {
	if opts.Policy == (core.ComparePolicy{}) {
		opts.Policy = core.DefaultComparePolicy()
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if err := source.Validate(opts.Policy); err != nil {
		return nil, err
	}
	if err := target.Validate(opts.Policy); err != nil {
		return nil, err
	}

	c := &comparer{policy: opts.Policy, renames: opts.DetectRenames, log: log}
	c.compareTables(source, target)
	sortChanges(c.changes, opts.Policy)

	log.Debug("schema comparison finished",
		zap.String("source", source.Name),
		zap.String("target", target.Name),
		zap.Int("changes", len(c.changes)),
		zap.Int("warnings", len(c.warnings)))

	return &Result{Changes: c.changes, Warnings: c.warnings, Policy: opts.Policy}, nil
}

// sortChanges orders by kind, then folded table name, then ordinal.
func sortChanges(changes []*Change, policy core.ComparePolicy) {
	sort.SliceStable(changes, func(i, j int) bool {
		a, b := changes[i], changes[j]
		if kindOrder[a.Kind] != kindOrder[b.Kind] {
			return kindOrder[a.Kind] < kindOrder[b.Kind]
		}
		ta, tb := policy.Fold(a.Table), policy.Fold(b.Table)
		if ta != tb {
			return ta < tb
		}
		return a.ordinal() < b.ordinal()
	})
}

// ordinal is the source position for additions and modifications and the
// target position for drops.
func (c *Change) ordinal() int {
	switch {
	case c.After != nil:
		return c.After.Position
	case c.Before != nil:
		return c.Before.Position
	}
	return 0
}

// Empty reports whether the snapshots matched.
func (r *Result) Empty() bool { return len(r.Changes) == 0 }

// Destructive returns the changes that drop data.
func (r *Result) Destructive() []*Change {
	return r.filter(func(c *Change) bool { return c.Destructive() })
}

// Additive returns the changes that only add tables or columns.
func (r *Result) Additive() []*Change {
	return r.filter(func(c *Change) bool { return c.Kind == AddTable || c.Kind == AddColumn })
}

// ByKind returns the changes of one kind, in order.
func (r *Result) ByKind(k Kind) []*Change {
	return r.filter(func(c *Change) bool { return c.Kind == k })
}

// Counts returns the number of changes per kind.
func (r *Result) Counts() map[Kind]int {
	out := make(map[Kind]int, len(Kinds))
	for _, c := range r.Changes {
		out[c.Kind]++
	}
	return out
}

// Tables returns the names of the tables touched by the changes, in first-seen
// order.
func (r *Result) Tables() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range r.Changes {
		if _, ok := seen[c.Table]; ok {
			continue
		}
		seen[c.Table] = struct{}{}
		out = append(out, c.Table)
	}
	return out
}

func (r *Result) filter(keep func(*Change) bool) []*Change {
	var out []*Change
	for _, c := range r.Changes {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
