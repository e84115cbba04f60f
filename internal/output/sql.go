package output

import (
	"strings"

	"schemadrift/internal/core"
	"schemadrift/internal/review"
)

type sqlFormatter struct{}

// Format renders the plan as a script that can be reviewed and run. Notes,
// warnings and rollback statements are SQL comments.
func (sqlFormatter) Format(r *Report) (string, error) {
	var sb strings.Builder
	sb.WriteString("-- schemadrift migration\n")
	if r != nil {
		sb.WriteString("-- run " + r.RunID.String() + "\n")
		if r.Source != "" || r.Target != "" {
			sb.WriteString("-- source: " + r.Source + "\n")
			sb.WriteString("-- target: " + r.Target + "\n")
		}
	}
	sb.WriteString("-- Review before running in production.\n")

	if r == nil || r.Plan == nil {
		sb.WriteString("\n-- No SQL statements generated.\n")
		return sb.String(), nil
	}

	writeCommentSection(&sb, "BREAKING CHANGES (manual review required)", r.Plan.BreakingNotes())
	writeCommentSection(&sb, "UNRESOLVED (cannot auto-generate safely)", r.Plan.UnresolvedNotes())
	writeCommentSection(&sb, "NOTES", r.Plan.InfoNotes())
	if r.Review != nil {
		var findings []string
		for _, f := range r.Review.Findings {
			if f.Level == review.LevelCaution {
				continue
			}
			findings = append(findings, f.String()+": "+f.SQL)
		}
		writeCommentSection(&sb, "REVIEW", findings)
	}

	ops := r.Plan.SQLOperations()
	if len(ops) == 0 {
		sb.WriteString("\n-- No SQL statements generated.\n")
		return sb.String(), nil
	}

	sb.WriteString("\n-- SQL\n")
	for _, op := range ops {
		writeRiskComment(&sb, op)
		sb.WriteString(normalizeStatement(op.SQL))
		sb.WriteString("\n")
	}

	if rb := r.Plan.RollbackStatements(); len(rb) > 0 {
		sb.WriteString("\n-- ROLLBACK SQL (run separately)\n")
		for _, stmt := range rb {
			for _, line := range splitCommentLines(stmt) {
				if line == "" {
					continue
				}
				sb.WriteString("-- " + line + "\n")
			}
		}
	}
	return sb.String(), nil
}

func writeRiskComment(sb *strings.Builder, op core.Operation) {
	if op.Risk == "" || op.Risk == core.RiskInfo {
		return
	}
	sb.WriteString("-- [" + string(op.Risk) + "]")
	if op.Destructive {
		sb.WriteString(" DESTRUCTIVE")
	}
	if op.RequiresLock {
		sb.WriteString(" (may acquire locks)")
	}
	sb.WriteString("\n")
}

func writeCommentSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n-- " + title + "\n")
	for _, item := range items {
		for _, line := range splitCommentLines(item) {
			if line == "" {
				continue
			}
			sb.WriteString("-- - " + line + "\n")
		}
	}
}
