package core

import (
	"errors"
	"fmt"
	"strings"
)

// Scanner failures wrapped by ParseError.
var (
	ErrUnbalancedParens  = errors.New("unbalanced parentheses")
	ErrUnterminatedQuote = errors.New("unterminated quote")
	ErrMissingBody       = errors.New("missing column list")
	ErrMissingType       = errors.New("column has no type")
	ErrMissingName       = errors.New("missing table name")
)

const maxFragmentLen = 80

// ParseError reports a table definition that could not be parsed. The rest of
// the statement batch is still processed.
type ParseError struct {
	Table    string
	Fragment string
	Err      error
}

func (e *ParseError) Error() string {
	table := e.Table
	if table == "" {
		table = "(unknown)"
	}
	return fmt.Sprintf("parse table %q: %v near %q", table, e.Err, shorten(e.Fragment))
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaInconsistencyError reports a snapshot that violates model invariants,
// such as duplicate table or column names. Such a snapshot cannot be diffed.
type SchemaInconsistencyError struct {
	Database string
	Problems []*ValidationError
}

func (e *SchemaInconsistencyError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Error())
	}
	name := e.Database
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("schema %s is inconsistent: %s", name, strings.Join(msgs, "; "))
}

// WarningKind classifies a non-fatal finding.
type WarningKind string

const (
	WarningUnknownType   WarningKind = "unknown_type"
	WarningDiffAmbiguity WarningKind = "diff_ambiguity"
	WarningRenameHint    WarningKind = "rename_hint"
)

// Warning is a non-fatal finding surfaced to the caller.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Table   string      `json:"table,omitempty"`
	Column  string      `json:"column,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	target := w.Table
	if w.Column != "" {
		target += "." + w.Column
	}
	if target == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Kind, target, w.Message)
}

// UnknownTypeWarnings lists columns whose type fell back to opaque.
func (t *Table) UnknownTypeWarnings() []Warning {
	var out []Warning
	for _, c := range t.Columns {
		if c.Type.Unknown() {
			out = append(out, Warning{
				Kind:    WarningUnknownType,
				Table:   t.Name,
				Column:  c.Name,
				Message: fmt.Sprintf("unrecognized type %q compared as opaque", c.TypeRaw),
			})
		}
	}
	return out
}

func shorten(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxFragmentLen {
		return s
	}
	return s[:maxFragmentLen] + "..."
}
