// Package mysql parses CREATE TABLE statements with the TiDB MySQL grammar.
// It is the strict alternative to the tolerant scanner in package ddl: anything
// the grammar rejects fails, but accepted statements are read from a full AST.
package mysql

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
	"go.uber.org/multierr"

	"schemadrift/internal/core"
	"schemadrift/internal/parser/ddl"
	"schemadrift/internal/sqlscan"
)

// Parser wraps a TiDB parser. It is not safe for concurrent use.
type Parser struct {
	p *parser.Parser
}

func NewParser() *Parser {
	return &Parser{
		p: parser.New(),
	}
}

// Parse reads every CREATE TABLE statement in sql. Statements are parsed one at
// a time so a statement the grammar rejects only drops its own table; the
// failures are combined into err as *core.ParseError values.
func (p *Parser) Parse(sql string) (*core.Database, []core.Warning, error) {
	db := &core.Database{}
	var warnings []core.Warning
	var errs error

	statements, _ := sqlscan.SplitStatements(sqlscan.StripComments(sql))
	for _, stmt := range statements {
		if !ddl.IsCreateTable(stmt) {
			continue
		}
		t, err := p.ParseTable(stmt)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		db.Tables = append(db.Tables, t)
		warnings = append(warnings, t.UnknownTypeWarnings()...)
	}
	return db, warnings, errs
}

// ParseTable parses a single CREATE TABLE statement.
func (p *Parser) ParseTable(stmt string) (*core.Table, error) {
	nodes, _, err := p.p.Parse(stmt, "", "")
	if err != nil {
		return nil, &core.ParseError{Table: ddl.TableName(stmt), Fragment: stmt, Err: err}
	}
	for _, node := range nodes {
		if create, ok := node.(*ast.CreateTableStmt); ok {
			return p.convertCreateTable(create), nil
		}
	}
	return nil, &core.ParseError{Table: ddl.TableName(stmt), Fragment: stmt, Err: core.ErrMissingBody}
}

func (p *Parser) convertCreateTable(stmt *ast.CreateTableStmt) *core.Table {
	table := &core.Table{Name: stmt.Table.Name.O}

	for _, opt := range stmt.Options {
		if opt.Tp == ast.TableOptionComment {
			table.Comment = opt.StrValue
		}
	}

	p.parseColumns(stmt.Cols, table)
	p.parseConstraints(stmt.Constraints, table)
	table.Renumber()
	return table
}

// restore prints a node back to SQL with upper-case keywords and backquoted
// names, the same style SHOW CREATE TABLE uses.
func restore(node ast.Node) (string, bool) {
	var sb strings.Builder
	if err := node.Restore(format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)); err != nil {
		return "", false
	}
	return strings.TrimSpace(sb.String()), true
}
