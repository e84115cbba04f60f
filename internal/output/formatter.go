// Package output renders the result of a comparison as SQL, JSON, a compact
// summary or a readable report, and writes the update files.
package output

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"schemadrift/internal/core"
	"schemadrift/internal/diff"
	"schemadrift/internal/migration"
	"schemadrift/internal/review"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatSQL     Format = "sql"
	FormatJSON    Format = "json"
	FormatSummary Format = "summary"
	FormatHuman   Format = "human"
)

// Report is everything one comparison produced.
type Report struct {
	RunID  uuid.UUID
	Source string
	Target string
	Result *diff.Result
	Plan   *migration.Migration
	Review *review.Report
}

// NewReport stamps a new run id and reviews the plan's statements.
func NewReport(source, target string, res *diff.Result, plan *migration.Migration) *Report {
	r := &Report{
		RunID:  uuid.New(),
		Source: source,
		Target: target,
		Result: res,
		Plan:   plan,
	}
	if plan != nil {
		r.Review = review.NewAnalyzer().Review(plan.SQLStatements())
	}
	return r
}

func (r *Report) changes() []*diff.Change {
	if r == nil || r.Result == nil {
		return nil
	}
	return r.Result.Changes
}

func (r *Report) warnings() []core.Warning {
	if r == nil || r.Result == nil {
		return nil
	}
	return r.Result.Warnings
}

func (r *Report) sqlOperations() []core.Operation {
	if r == nil || r.Plan == nil {
		return nil
	}
	return r.Plan.SQLOperations()
}

// Formatter renders a report.
type Formatter interface {
	Format(*Report) (string, error)
}

// NewFormatter creates a new Formatter instance based on the given name.
// If no format is specified, defaults to SQL format.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatSQL:
		return sqlFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatSummary:
		return summaryFormatter{}, nil
	case FormatHuman:
		return humanFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'sql', 'json', 'summary' or 'human'", name)
	}
}

func normalizeStatement(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if stmt != "" && !strings.HasSuffix(stmt, ";") {
		stmt += ";"
	}
	return stmt
}

func splitCommentLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}
