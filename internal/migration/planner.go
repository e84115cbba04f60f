package migration

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"schemadrift/internal/core"
	"schemadrift/internal/dialect"
	"schemadrift/internal/diff"
)

// Options control plan generation.
type Options struct {
	// IncludeDestructive keeps DROP statements in the plan. When false they are
	// turned into breaking notes carrying the statement as a comment.
	IncludeDestructive bool
	Logger             *zap.Logger
}

// DefaultOptions keeps destructive statements.
func DefaultOptions() Options {
	return Options{IncludeDestructive: true}
}

// Build renders every change of res with d and returns the plan. Statements
// keep the order of the changes; foreign keys of created tables are added
// once all tables exist.
func Build(res *diff.Result, d dialect.Dialect, opts Options) (*Migration, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	m := &Migration{}
	var pendingFKs []core.Operation

	flushFKs := func() {
		if len(pendingFKs) == 0 {
			return
		}
		m.AddNote("", "Foreign keys are added after table creation to avoid dependency issues.", core.RiskInfo)
		for _, op := range pendingFKs {
			m.Add(op)
		}
		pendingFKs = nil
	}

	for _, ch := range res.Changes {
		if ch.Kind != diff.AddTable {
			flushFKs()
		}

		stmt, err := d.Render(ch)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", ch, err)
		}
		rollback, err := dialect.Rollback(d, ch)
		if err != nil {
			return nil, fmt.Errorf("render rollback of %s: %w", ch, err)
		}

		op := core.Operation{
			Kind:         core.OperationSQL,
			SQL:          stmt,
			RollbackSQL:  rollback,
			Risk:         changeRisk(ch),
			Destructive:  ch.Destructive(),
			RequiresLock: ch.Kind != diff.AddTable,
			Table:        ch.Table,
		}

		if ch.Destructive() && !opts.IncludeDestructive {
			log.Info("withholding destructive statement", zap.String("change", ch.String()))
			m.AddBreaking(ch.Table, fmt.Sprintf("withheld destructive statement: %s", stmt))
			continue
		}
		m.Add(op)

		for _, note := range changeNotes(ch) {
			m.Add(note)
		}
		if ch.Kind == diff.AddTable {
			pendingFKs = append(pendingFKs, foreignKeys(d, ch.TableDef)...)
		}
	}
	flushFKs()

	for _, w := range res.Warnings {
		switch w.Kind {
		case core.WarningRenameHint:
			m.AddUnresolved(w.Table, w.String())
		default:
			m.AddNote(w.Table, w.String(), core.RiskWarning)
		}
	}

	if hasLockingStatements(m) {
		m.AddNote("", "Lock-time warning: ALTER TABLE may lock or rebuild tables; for large tables consider online schema change tools and off-peak execution.", core.RiskInfo)
	}

	m.Dedupe()
	log.Debug("migration plan built",
		zap.Int("statements", len(m.SQLStatements())),
		zap.String("risk", string(m.Risk())))
	return m, nil
}

func changeRisk(ch *diff.Change) core.OperationRisk {
	switch {
	case ch.Destructive():
		return core.RiskBreaking
	case ch.Kind == diff.ModifyColumn:
		return core.RiskWarning
	}
	return core.RiskInfo
}

// changeNotes explains the consequences of a change that the statement alone
// does not show.
func changeNotes(ch *diff.Change) []core.Operation {
	var out []core.Operation
	breaking := func(msg string) {
		out = append(out, core.Operation{Kind: core.OperationBreaking, SQL: msg, Risk: core.RiskBreaking, Table: ch.Table})
	}
	note := func(msg string, risk core.OperationRisk) {
		out = append(out, core.Operation{Kind: core.OperationNote, SQL: msg, Risk: risk, Table: ch.Table})
	}

	switch ch.Kind {
	case diff.DropTable:
		breaking(fmt.Sprintf("%s: table and all its rows are removed", ch.Table))
		note(fmt.Sprintf("%s: rollback recreates the structure only; restore the data from a backup", ch.Table), core.RiskWarning)
	case diff.DropColumn:
		breaking(fmt.Sprintf("%s.%s: column and its values are removed", ch.Table, ch.Column))
	case diff.AddColumn:
		c := ch.After
		if !c.Nullable && c.Default == nil && !c.HasFlag(core.FlagAutoIncrement) {
			note(fmt.Sprintf("%s.%s: NOT NULL without a default; existing rows receive the implicit default of %s", ch.Table, ch.Column, c.Type.SQL()), core.RiskWarning)
		}
	case diff.ModifyColumn:
		for _, fc := range ch.Changes {
			switch fc.Field {
			case "type":
				if narrows(ch.Before.Type, ch.After.Type) {
					breaking(fmt.Sprintf("%s.%s: type change %s -> %s may truncate or reject existing values", ch.Table, ch.Column, fc.Old, fc.New))
				}
			case "nullable":
				if fc.New == "false" {
					note(fmt.Sprintf("%s.%s: becomes NOT NULL; the statement fails while NULL values exist", ch.Table, ch.Column), core.RiskWarning)
				}
			case "name":
				note(fmt.Sprintf("%s.%s: renamed to %s (case only); queries using a case-sensitive name must follow", ch.Table, fc.Old, fc.New), core.RiskWarning)
			}
		}
	}
	return out
}

// narrows reports whether converting a column from one type to another can
// lose data.
func narrows(from, to core.CanonicalType) bool {
	if from.Kind != to.Kind {
		return true
	}
	switch from.Kind {
	case core.KindString, core.KindBinary:
		return capacity(to) < capacity(from)
	case core.KindDecimal:
		return to.Precision-to.Scale < from.Precision-from.Scale || to.Scale < from.Scale
	case core.KindInteger:
		return integerRank[to.Base] < integerRank[from.Base]
	case core.KindText:
		return textRank[to.Base] < textRank[from.Base]
	case core.KindDatetime:
		return from.Base != to.Base || to.Length < from.Length
	case core.KindEnum:
		for _, v := range from.Values {
			if !containsFold(to.Values, v) {
				return true
			}
		}
	}
	return false
}

// capacity is the maximum length in bytes or characters of a string or
// binary type.
func capacity(t core.CanonicalType) int64 {
	if n, ok := blobCapacity[t.Base]; ok {
		return n
	}
	return int64(t.Length)
}

var integerRank = map[string]int{"tinyint": 1, "smallint": 2, "mediumint": 3, "int": 4, "bigint": 5}

var textRank = map[string]int{"tinytext": 1, "text": 2, "mediumtext": 3, "longtext": 4, "json": 4}

var blobCapacity = map[string]int64{"tinyblob": 1<<8 - 1, "blob": 1<<16 - 1, "mediumblob": 1<<24 - 1, "longblob": 1<<32 - 1}

func containsFold(values []string, v string) bool {
	for _, x := range values {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}

func foreignKeys(d dialect.Dialect, t *core.Table) []core.Operation {
	var out []core.Operation
	for _, idx := range t.Indexes {
		if idx.Kind != "FOREIGN KEY" {
			continue
		}
		op := core.Operation{
			Kind:         core.OperationSQL,
			SQL:          d.AddKey(t.Name, idx),
			Risk:         core.RiskInfo,
			RequiresLock: true,
			Table:        t.Name,
		}
		if idx.Name != "" {
			op.RollbackSQL = fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s;", d.QuoteIdentifier(t.Name), d.QuoteIdentifier(idx.Name))
		}
		out = append(out, op)
	}
	return out
}

func hasLockingStatements(m *Migration) bool {
	for i := range m.Operations {
		op := &m.Operations[i]
		if op.Kind == core.OperationSQL && op.RequiresLock {
			return true
		}
	}
	return false
}
