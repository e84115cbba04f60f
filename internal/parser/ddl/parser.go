// Package ddl parses CREATE TABLE statements into the canonical schema model.
//
// Statements are cut with the quote-aware scanner from sqlscan, then each table
// body is split on top-level commas into column and key clauses. A malformed
// table produces a *core.ParseError and is skipped; the rest of the batch is
// still parsed.
package ddl

import (
	"errors"
	"strings"

	"go.uber.org/multierr"

	"schemadrift/internal/core"
	"schemadrift/internal/sqlscan"
)

// ErrEmptyClause is reported for a body such as "(id int,,name text)".
var ErrEmptyClause = errors.New("empty clause")

// ParseSchema parses every CREATE TABLE statement in sql. Other statements
// (SET, DROP TABLE, INSERT, ...) are ignored. Tables that fail to parse are left
// out of the returned database and their errors are combined into err; callers
// can inspect each one with multierr.Errors.
func ParseSchema(sql string) (*core.Database, []core.Warning, error) {
	db := &core.Database{}
	var warnings []core.Warning
	var errs error

	statements, _ := sqlscan.SplitStatements(sqlscan.StripComments(sql))
	for _, stmt := range statements {
		if !IsCreateTable(stmt) {
			continue
		}
		t, err := ParseTable(stmt)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		db.Tables = append(db.Tables, t)
		warnings = append(warnings, t.UnknownTypeWarnings()...)
	}
	return db, warnings, errs
}

// IsCreateTable reports whether stmt starts with CREATE [TEMPORARY] TABLE.
func IsCreateTable(stmt string) bool {
	words := strings.Fields(stmt)
	if len(words) < 3 || !strings.EqualFold(words[0], "CREATE") {
		return false
	}
	if strings.EqualFold(words[1], "TABLE") {
		return true
	}
	return strings.EqualFold(words[1], "TEMPORARY") && strings.EqualFold(words[2], "TABLE")
}

// ParseTable parses a single CREATE TABLE statement.
func ParseTable(stmt string) (*core.Table, error) {
	stmt = strings.TrimSpace(sqlscan.StripComments(stmt))
	stmt = strings.TrimSuffix(stmt, ";")

	open := sqlscan.IndexTopLevel(stmt, '(')
	header := stmt
	if open >= 0 {
		header = stmt[:open]
	}
	name, err := tableName(header)
	if err != nil {
		return nil, &core.ParseError{Fragment: stmt, Err: err}
	}
	if err := sqlscan.Check(stmt); err != nil {
		return nil, &core.ParseError{Table: name, Fragment: stmt[max(open, 0):], Err: scanErr(err)}
	}
	if open < 0 {
		return nil, &core.ParseError{Table: name, Fragment: stmt, Err: core.ErrMissingBody}
	}
	closeIdx := sqlscan.MatchParen(stmt, open)
	if closeIdx < 0 {
		return nil, &core.ParseError{Table: name, Fragment: stmt[open:], Err: core.ErrUnbalancedParens}
	}

	t := &core.Table{Name: name}
	clauses, err := sqlscan.Split(stmt[open+1:closeIdx], ',')
	if err != nil {
		return nil, &core.ParseError{Table: name, Fragment: stmt[open : closeIdx+1], Err: scanErr(err)}
	}
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			return nil, &core.ParseError{Table: name, Fragment: stmt[open : closeIdx+1], Err: ErrEmptyClause}
		}
		if isKeyClause(clause) {
			if err := parseKeyClause(t, clause); err != nil {
				return nil, &core.ParseError{Table: name, Fragment: clause, Err: err}
			}
			continue
		}
		col, err := parseColumn(clause)
		if err != nil {
			return nil, &core.ParseError{Table: name, Fragment: clause, Err: err}
		}
		t.Columns = append(t.Columns, col)
	}
	if len(t.Columns) == 0 {
		return nil, &core.ParseError{Table: name, Fragment: stmt[open : closeIdx+1], Err: core.ErrMissingBody}
	}

	applyKeys(t)
	t.Comment = tableComment(stmt[closeIdx+1:])
	t.Renumber()
	return t, nil
}

// TableName returns the table named by a CREATE TABLE statement, or "" when
// the header cannot be read.
func TableName(stmt string) string {
	header := stmt
	if open := sqlscan.IndexTopLevel(stmt, '('); open >= 0 {
		header = stmt[:open]
	}
	name, _ := tableName(header)
	return name
}

// tableName extracts the unqualified table name from
// "CREATE [TEMPORARY] TABLE [IF NOT EXISTS] name".
func tableName(header string) (string, error) {
	words, err := sqlscan.Tokens(header)
	if err != nil {
		return "", scanErr(err)
	}
	i := 0
	for i < len(words) {
		switch strings.ToUpper(words[i]) {
		case "CREATE", "TEMPORARY", "TABLE", "IF", "NOT", "EXISTS":
			i++
			continue
		}
		break
	}
	if i >= len(words) {
		return "", core.ErrMissingName
	}
	parts, err := sqlscan.Split(words[i], '.')
	if err != nil {
		return "", scanErr(err)
	}
	name := core.UnquoteIdentifier(parts[len(parts)-1])
	if name == "" {
		return "", core.ErrMissingName
	}
	return name, nil
}

// tableComment returns the COMMENT table option, if present.
func tableComment(options string) string {
	tokens, err := sqlscan.Tokens(options)
	if err != nil {
		return ""
	}
	for i, tok := range tokens {
		if len(tok) < len("COMMENT") || !strings.EqualFold(tok[:len("COMMENT")], "COMMENT") {
			continue
		}
		rest := tok[len("COMMENT"):]
		for j := i + 1; strings.TrimPrefix(rest, "=") == "" && j < len(tokens); j++ {
			rest = tokens[j]
		}
		return core.NormalizeDefault(strings.TrimPrefix(rest, "="))
	}
	return ""
}

func scanErr(err error) error {
	switch {
	case errors.Is(err, sqlscan.ErrUnterminatedQuote):
		return core.ErrUnterminatedQuote
	case errors.Is(err, sqlscan.ErrUnbalancedParens):
		return core.ErrUnbalancedParens
	}
	return err
}
