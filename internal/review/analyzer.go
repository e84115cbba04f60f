// Package review checks generated statements before anyone runs them. Each
// statement is parsed with the TiDB MySQL grammar; statements that do not parse
// are reported, and the rest are classified as destructive or locking.
package review

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver" // registers the value expression driver the parser needs
)

// Level ranks a finding.
type Level string

const (
	LevelCaution Level = "CAUTION"
	LevelDanger  Level = "DANGER"
	LevelError   Level = "ERROR"
)

// Finding is one observation about one statement.
type Finding struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	SQL     string `json:"sql"`
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s", f.Level, f.Message)
}

// Analysis classifies a single statement.
type Analysis struct {
	Type              string
	Blocking          bool
	BlockingReasons   []string
	Destructive       bool
	DestructiveReason string
}

type alterEffect struct {
	blockingReason    string
	destructiveReason string
}

var alterEffects = map[ast.AlterTableType]alterEffect{
	ast.AlterTableAddColumns: {
		blockingReason: "ADD COLUMN may require a table rebuild depending on MySQL version and column position",
	},
	ast.AlterTableDropColumn: {
		blockingReason:    "DROP COLUMN typically requires a full table rebuild and will lock the table",
		destructiveReason: "DROP COLUMN will permanently delete the column and its data",
	},
	ast.AlterTableModifyColumn: {
		blockingReason: "MODIFY COLUMN may require a table rebuild if changing column type or size",
	},
	ast.AlterTableChangeColumn: {
		blockingReason: "CHANGE COLUMN may require a table rebuild",
	},
	ast.AlterTableDropForeignKey: {
		blockingReason: "DROP FOREIGN KEY may briefly lock the table",
	},
}

// Analyzer parses statements with the TiDB parser. It is not safe for
// concurrent use.
type Analyzer struct {
	parser *parser.Parser
}

// NewAnalyzer returns an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{parser: parser.New()}
}

// Analyze parses one statement and classifies it. A statement the grammar
// rejects returns an error.
func (a *Analyzer) Analyze(sql string) (*Analysis, error) {
	nodes, _, err := a.parser.Parse(sql, "", "")
	if err != nil {
		return nil, fmt.Errorf("parse statement: %w", err)
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("expected exactly one statement, got %d", len(nodes))
	}

	analysis := &Analysis{}
	switch stmt := nodes[0].(type) {
	case *ast.CreateTableStmt:
		analysis.Type = "CREATE TABLE"
	case *ast.DropTableStmt:
		analysis.Type = "DROP TABLE"
		analysis.Destructive = true
		analysis.DestructiveReason = "DROP TABLE will permanently delete the table and all its data"
	case *ast.AlterTableStmt:
		analysis.Type = "ALTER TABLE"
		for _, spec := range stmt.Specs {
			a.analyzeAlterSpec(spec, analysis)
		}
	case *ast.TruncateTableStmt:
		analysis.Type = "TRUNCATE TABLE"
		analysis.Destructive = true
		analysis.DestructiveReason = "TRUNCATE TABLE will delete all rows from the table"
	default:
		analysis.Type = "OTHER"
	}
	return analysis, nil
}

func (a *Analyzer) analyzeAlterSpec(spec *ast.AlterTableSpec, analysis *Analysis) {
	if spec.Tp == ast.AlterTableAddConstraint {
		analysis.Blocking = true
		reason := "ADD CONSTRAINT may lock the table while validating existing data"
		if spec.Constraint != nil && spec.Constraint.Tp == ast.ConstraintForeignKey {
			reason = "ADD FOREIGN KEY may lock the table while validating existing data"
		}
		analysis.BlockingReasons = append(analysis.BlockingReasons, reason)
		return
	}

	effect, ok := alterEffects[spec.Tp]
	if !ok {
		return
	}
	if effect.blockingReason != "" {
		analysis.Blocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, effect.blockingReason)
	}
	if effect.destructiveReason != "" {
		analysis.Destructive = true
		analysis.DestructiveReason = effect.destructiveReason
	}
}

// Report is the outcome of reviewing a list of statements.
type Report struct {
	Statements  int       `json:"statements"`
	Unparseable int       `json:"unparseable"`
	Destructive int       `json:"destructive"`
	Findings    []Finding `json:"findings,omitempty"`
}

// OK reports whether every statement parsed.
func (r *Report) OK() bool {
	return r.Unparseable == 0
}

// Review analyzes every statement. Parse failures become ERROR findings,
// destructive statements DANGER and locking statements CAUTION.
func (a *Analyzer) Review(statements []string) *Report {
	r := &Report{}
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		r.Statements++

		analysis, err := a.Analyze(stmt)
		if err != nil {
			r.Unparseable++
			r.Findings = append(r.Findings, Finding{Level: LevelError, Message: err.Error(), SQL: stmt})
			continue
		}
		if analysis.Destructive {
			r.Destructive++
			r.Findings = append(r.Findings, Finding{Level: LevelDanger, Message: analysis.DestructiveReason, SQL: stmt})
		}
		for _, reason := range analysis.BlockingReasons {
			r.Findings = append(r.Findings, Finding{Level: LevelCaution, Message: "Potentially blocking DDL: " + reason, SQL: stmt})
		}
	}
	return r
}
