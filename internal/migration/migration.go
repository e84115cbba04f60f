// Package migration turns a diff result into an ordered plan of operations:
// rendered statements with their rollback and risk, plus notes for the operator.
// The plan is only ever printed or written; nothing here executes SQL.
package migration

import (
	"slices"
	"strings"

	"schemadrift/internal/core"
)

// Migration is an ordered list of plan operations.
type Migration struct {
	Operations []core.Operation
}

// Plan returns the operations in order.
func (m *Migration) Plan() []core.Operation {
	return m.Operations
}

// Empty reports whether the plan holds no statements.
func (m *Migration) Empty() bool {
	return len(m.SQLStatements()) == 0
}

// SQLStatements returns the statements in execution order.
func (m *Migration) SQLStatements() []string {
	return m.collect(core.OperationSQL, func(op *core.Operation) string { return op.SQL })
}

// SQLOperations returns the operations that carry a statement, in order.
func (m *Migration) SQLOperations() []core.Operation {
	var out []core.Operation
	for _, op := range m.Operations {
		if op.Kind == core.OperationSQL && op.SQL != "" {
			out = append(out, op)
		}
	}
	return out
}

// RollbackStatements returns the rollback statements in the order they must
// run, which is the reverse of the plan.
func (m *Migration) RollbackStatements() []string {
	out := m.collect(core.OperationSQL, func(op *core.Operation) string { return op.RollbackSQL })
	slices.Reverse(out)
	return out
}

// TableStatements returns the statements touching table, in execution order.
func (m *Migration) TableStatements(table string) []string {
	var out []string
	for i := range m.Operations {
		op := &m.Operations[i]
		if op.Kind == core.OperationSQL && op.SQL != "" && op.Table == table {
			out = append(out, op.SQL)
		}
	}
	return out
}

// Tables returns the tables with statements, in first-seen order.
func (m *Migration) Tables() []string {
	var out []string
	for i := range m.Operations {
		op := &m.Operations[i]
		if op.Kind != core.OperationSQL || op.SQL == "" || op.Table == "" || slices.Contains(out, op.Table) {
			continue
		}
		out = append(out, op.Table)
	}
	return out
}

// BreakingNotes returns the messages of breaking-change entries.
func (m *Migration) BreakingNotes() []string {
	return m.collect(core.OperationBreaking, func(op *core.Operation) string { return op.SQL })
}

// UnresolvedNotes returns the reasons of entries that need a human decision.
func (m *Migration) UnresolvedNotes() []string {
	return m.collect(core.OperationUnresolved, func(op *core.Operation) string { return op.UnresolvedReason })
}

// InfoNotes returns the messages of note entries.
func (m *Migration) InfoNotes() []string {
	return m.collect(core.OperationNote, func(op *core.Operation) string { return op.SQL })
}

// Risk returns the highest risk in the plan.
func (m *Migration) Risk() core.OperationRisk {
	risk := core.RiskInfo
	for i := range m.Operations {
		switch m.Operations[i].Risk {
		case core.RiskBreaking:
			return core.RiskBreaking
		case core.RiskWarning:
			risk = core.RiskWarning
		}
	}
	return risk
}

// Add appends op unless it carries no content.
func (m *Migration) Add(op core.Operation) {
	op.SQL = strings.TrimSpace(op.SQL)
	op.RollbackSQL = strings.TrimSpace(op.RollbackSQL)
	op.UnresolvedReason = strings.TrimSpace(op.UnresolvedReason)
	if op.SQL == "" && op.RollbackSQL == "" && op.UnresolvedReason == "" {
		return
	}
	m.Operations = append(m.Operations, op)
}

func (m *Migration) AddBreaking(table, msg string) {
	m.Add(core.Operation{Kind: core.OperationBreaking, SQL: msg, Risk: core.RiskBreaking, Table: table})
}

func (m *Migration) AddNote(table, msg string, risk core.OperationRisk) {
	m.Add(core.Operation{Kind: core.OperationNote, SQL: msg, Risk: risk, Table: table})
}

func (m *Migration) AddUnresolved(table, msg string) {
	m.Add(core.Operation{Kind: core.OperationUnresolved, UnresolvedReason: msg, Risk: core.RiskWarning, Table: table})
}

// Dedupe drops repeated notes and repeated rollback statements, keeping the
// first occurrence. Statements are never dropped.
func (m *Migration) Dedupe() {
	if len(m.Operations) == 0 {
		return
	}
	seen := make(map[core.OperationKind]map[string]struct{})
	mark := func(kind core.OperationKind, key string) bool {
		if seen[kind] == nil {
			seen[kind] = make(map[string]struct{})
		}
		if _, ok := seen[kind][key]; ok {
			return false
		}
		seen[kind][key] = struct{}{}
		return true
	}

	out := make([]core.Operation, 0, len(m.Operations))
	for _, op := range m.Operations {
		switch op.Kind {
		case core.OperationSQL:
			if op.RollbackSQL != "" && !mark("rollback", op.RollbackSQL) {
				op.RollbackSQL = ""
			}
		case core.OperationUnresolved:
			if !mark(op.Kind, op.UnresolvedReason) {
				continue
			}
		default:
			if !mark(op.Kind, op.SQL) {
				continue
			}
		}
		out = append(out, op)
	}
	m.Operations = out
}

func (m *Migration) collect(kind core.OperationKind, field func(*core.Operation) string) []string {
	out := make([]string, 0, len(m.Operations))
	for i := range m.Operations {
		op := &m.Operations[i]
		if op.Kind != kind {
			continue
		}
		if v := strings.TrimSpace(field(op)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
