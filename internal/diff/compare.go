package diff

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"schemadrift/internal/core"
)

type comparer struct {
	policy   core.ComparePolicy
	renames  bool
	log      *zap.Logger
	changes  []*Change
	warnings []core.Warning
}

func (c *comparer) compareTables(source, target *core.Database) {
	targets := c.indexTables(target.Tables)
	matched := make(map[string]struct{}, len(source.Tables))

	for _, st := range source.Tables {
		key := c.policy.Fold(st.Name)
		tt, ok := targets[key]
		if !ok {
			c.add(&Change{Kind: AddTable, Table: st.Name, TableDef: st})
			continue
		}
		matched[key] = struct{}{}
		if st.Name != tt.Name {
			c.warn(core.Warning{
				Kind:    core.WarningDiffAmbiguity,
				Table:   tt.Name,
				Message: fmt.Sprintf("table name differs only in case (source %q, target %q); tables are not renamed", st.Name, tt.Name),
			})
		}
		c.compareColumns(st, tt)
	}

	for _, tt := range target.Tables {
		if _, ok := matched[c.policy.Fold(tt.Name)]; !ok {
			c.add(&Change{Kind: DropTable, Table: tt.Name, TableDef: tt})
		}
	}
}

func (c *comparer) compareColumns(st, tt *core.Table) {
	targets := make(map[string]*core.Column, len(tt.Columns))
	for _, col := range tt.Columns {
		targets[c.policy.Fold(col.Name)] = col
	}
	matched := make(map[string]struct{}, len(st.Columns))

	var added, dropped []*Change
	for i, sc := range st.Columns {
		key := c.policy.Fold(sc.Name)
		tc, ok := targets[key]
		if !ok {
			ch := &Change{Kind: AddColumn, Table: tt.Name, Column: sc.Name, After: sc, Previous: previousName(st.Columns, i)}
			added = append(added, ch)
			c.add(ch)
			continue
		}
		matched[key] = struct{}{}

		fields := c.columnFieldChanges(tc, sc)
		if len(fields) == 0 {
			continue
		}
		ch := &Change{Kind: ModifyColumn, Table: tt.Name, Column: tc.Name, Before: tc, After: sc, Changes: fields}
		if ch.Renamed() {
			c.warn(core.Warning{
				Kind:    core.WarningDiffAmbiguity,
				Table:   tt.Name,
				Column:  tc.Name,
				Message: fmt.Sprintf("column name differs only in case (source %q, target %q)", sc.Name, tc.Name),
			})
		}
		c.add(ch)
	}

	for i, tc := range tt.Columns {
		if _, ok := matched[c.policy.Fold(tc.Name)]; ok {
			continue
		}
		ch := &Change{Kind: DropColumn, Table: tt.Name, Column: tc.Name, Before: tc, Previous: previousName(tt.Columns, i)}
		dropped = append(dropped, ch)
		c.add(ch)
	}

	if c.renames {
		c.detectColumnRenames(tt.Name, dropped, added)
	}
}

func previousName(cols []*core.Column, i int) string {
	if i == 0 {
		return ""
	}
	return cols[i-1].Name
}

func (c *comparer) add(ch *Change) {
	c.log.Debug("change detected",
		zap.String("kind", string(ch.Kind)),
		zap.String("table", ch.Table),
		zap.String("column", ch.Column))
	c.changes = append(c.changes, ch)
}

func (c *comparer) warn(w core.Warning) {
	c.log.Debug("comparison warning", zap.String("warning", w.String()))
	c.warnings = append(c.warnings, w)
}

// indexTables keys tables by folded name. Validation has already rejected
// duplicates.
func (c *comparer) indexTables(tables []*core.Table) map[string]*core.Table {
	m := make(map[string]*core.Table, len(tables))
	for _, t := range tables {
		m[c.policy.Fold(t.Name)] = t
	}
	return m
}

// columnFieldChanges lists the significant differences between the target
// column (old) and the source column (new). Comments, charsets, collations and
// positions are not compared.
func (c *comparer) columnFieldChanges(oldC, newC *core.Column) []*FieldChange {
	fc := &fieldChangeCollector{}

	if oldC.Name != newC.Name {
		fc.Add("name", oldC.Name, newC.Name)
	}
	if !oldC.Type.Equal(newC.Type, c.policy) {
		oldT, newT := oldC.Type.SQL(), newC.Type.SQL()
		if oldT == newT {
			oldT, newT = oldC.TypeRaw, newC.TypeRaw
		}
		fc.Set("type", oldT, newT)
	}
	fc.Add("nullable", strconv.FormatBool(oldC.Nullable), strconv.FormatBool(newC.Nullable))
	if !ptrEq(oldC.Default, newC.Default) || oldC.HasFlag(core.FlagDefaultExpression) != newC.HasFlag(core.FlagDefaultExpression) {
		oldD, newD := ptrStr(oldC.Default), ptrStr(newC.Default)
		if oldD == newD {
			oldD, newD = defaultStr(oldC), defaultStr(newC)
		}
		fc.Set("default", oldD, newD)
	}
	if c.policy.CompareFlags {
		oldF, newF := oldC.DefinitionFlags(), newC.DefinitionFlags()
		if !slices.Equal(oldF, newF) {
			fc.Add("flags", strings.Join(oldF, ","), strings.Join(newF, ","))
		}
	}
	return fc.Changes
}

type fieldChangeCollector struct {
	Changes []*FieldChange
}

func (c *fieldChangeCollector) Add(field, oldV, newV string) {
	if oldV == newV {
		return
	}
	c.Changes = append(c.Changes, &FieldChange{Field: field, Old: oldV, New: newV})
}

// Set records a change the caller has already established.
func (c *fieldChangeCollector) Set(field, oldV, newV string) {
	c.Changes = append(c.Changes, &FieldChange{Field: field, Old: oldV, New: newV})
}

// defaultStr tells a literal from an expression with the same text.
func defaultStr(c *core.Column) string {
	if c.HasFlag(core.FlagDefaultExpression) {
		return "expression " + ptrStr(c.Default)
	}
	return "literal '" + ptrStr(c.Default) + "'"
}

func ptrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ptrStr renders a default for reports; a nil default prints as (none).
func ptrStr(p *string) string {
	if p == nil {
		return "(none)"
	}
	return *p
}
