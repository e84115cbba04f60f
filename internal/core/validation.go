package core

import (
	"fmt"
	"strings"
)

// ValidationError represents one invariant violation found in a snapshot.
type ValidationError struct {
	Entity  string
	Name    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s %q field %q: %s", e.Entity, e.Name, e.Field, e.Message)
	}
	return fmt.Sprintf("%s %q: %s", e.Entity, e.Name, e.Message)
}

// Validate checks the snapshot invariants: table names unique, column names
// unique within each table, every column typed. Names are compared with the
// policy's folding. All problems are collected into one SchemaInconsistencyError.
func (db *Database) Validate(policy ComparePolicy) error {
	if db == nil {
		return &SchemaInconsistencyError{Problems: []*ValidationError{{Entity: "database", Message: "database is nil"}}}
	}

	var problems []*ValidationError
	seen := make(map[string]string, len(db.Tables))
	for i, t := range db.Tables {
		if t == nil {
			problems = append(problems, &ValidationError{Entity: "database", Name: db.Name, Message: fmt.Sprintf("table at index %d is nil", i)})
			continue
		}
		key := policy.Fold(t.Name)
		if prev, ok := seen[key]; ok {
			problems = append(problems, &ValidationError{Entity: "database", Name: db.Name, Message: fmt.Sprintf("duplicate table name %q (already declared as %q)", t.Name, prev)})
			continue
		}
		seen[key] = t.Name
		problems = append(problems, t.validate(policy)...)
	}

	if len(problems) > 0 {
		return &SchemaInconsistencyError{Database: db.Name, Problems: problems}
	}
	return nil
}

func (t *Table) validate(policy ComparePolicy) []*ValidationError {
	var problems []*ValidationError
	if strings.TrimSpace(t.Name) == "" {
		problems = append(problems, &ValidationError{Entity: "table", Name: "(empty)", Message: "table name is empty"})
	}

	seen := make(map[string]string, len(t.Columns))
	for i, c := range t.Columns {
		if c == nil {
			problems = append(problems, &ValidationError{Entity: "table", Name: t.Name, Message: fmt.Sprintf("column at index %d is nil", i)})
			continue
		}
		if strings.TrimSpace(c.Name) == "" {
			problems = append(problems, &ValidationError{Entity: "table", Name: t.Name, Message: fmt.Sprintf("column at index %d has no name", i)})
			continue
		}
		if strings.TrimSpace(c.TypeRaw) == "" {
			problems = append(problems, &ValidationError{Entity: "column", Name: t.Name + "." + c.Name, Field: "type", Message: "type is empty"})
		}
		key := policy.Fold(c.Name)
		if prev, ok := seen[key]; ok {
			problems = append(problems, &ValidationError{Entity: "table", Name: t.Name, Message: fmt.Sprintf("duplicate column name %q (already declared as %q)", c.Name, prev)})
			continue
		}
		seen[key] = c.Name
	}
	return problems
}
