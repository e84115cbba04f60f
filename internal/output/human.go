package output

import (
	"fmt"
	"strings"
)

type humanFormatter struct{}

// Format renders the change report followed by the planned statements.
func (humanFormatter) Format(r *Report) (string, error) {
	if r == nil || r.Result == nil {
		return "No differences detected.\n", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Run %s\n", r.RunID)
	if r.Source != "" || r.Target != "" {
		fmt.Fprintf(&sb, "Comparing %s (source) with %s (target)\n", r.Source, r.Target)
	}
	sb.WriteString("\n")
	sb.WriteString(r.Result.String())
	sb.WriteString("\n")

	if r.Plan == nil || r.Plan.Empty() {
		return sb.String(), nil
	}

	sb.WriteString("\nPlanned statements:\n")
	for i, op := range r.Plan.SQLOperations() {
		marker := ""
		if op.Destructive {
			marker = "  [DESTRUCTIVE]"
		}
		fmt.Fprintf(&sb, "%3d. %s%s\n", i+1, normalizeStatement(op.SQL), marker)
	}
	if notes := r.Plan.BreakingNotes(); len(notes) > 0 {
		sb.WriteString("\nBreaking changes:\n")
		for _, n := range notes {
			fmt.Fprintf(&sb, "  - %s\n", n)
		}
	}
	if notes := r.Plan.UnresolvedNotes(); len(notes) > 0 {
		sb.WriteString("\nNeeds a decision:\n")
		for _, n := range notes {
			fmt.Fprintf(&sb, "  - %s\n", n)
		}
	}
	if r.Review != nil && len(r.Review.Findings) > 0 {
		sb.WriteString("\nReview:\n")
		for _, f := range r.Review.Findings {
			fmt.Fprintf(&sb, "  %s\n", f)
		}
	}
	return sb.String(), nil
}
