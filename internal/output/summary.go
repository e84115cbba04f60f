package output

import (
	"fmt"
	"strings"

	"schemadrift/internal/diff"
)

type summaryFormatter struct{}

// Format renders a compact summary.
// Example output:
//
//	Tables:    +1, -1
//	Columns:   +2, ~1, -0
//	Destructive: 1
func (summaryFormatter) Format(r *Report) (string, error) {
	changes := r.changes()
	if len(changes) == 0 && len(r.warnings()) == 0 {
		return "No changes detected.\n", nil
	}

	counts := map[diff.Kind]int{}
	destructive := 0
	for _, c := range changes {
		counts[c.Kind]++
		if c.Destructive() {
			destructive++
		}
	}

	var sb strings.Builder
	sb.WriteString("Schema Diff Summary\n")
	sb.WriteString("===================\n\n")
	if r.Source != "" || r.Target != "" {
		fmt.Fprintf(&sb, "Source:      %s\n", r.Source)
		fmt.Fprintf(&sb, "Target:      %s\n\n", r.Target)
	}

	fmt.Fprintf(&sb, "Tables:      +%d, -%d\n", counts[diff.AddTable], counts[diff.DropTable])
	fmt.Fprintf(&sb, "Columns:     +%d, ~%d, -%d\n", counts[diff.AddColumn], counts[diff.ModifyColumn], counts[diff.DropColumn])
	fmt.Fprintf(&sb, "Destructive: %d\n", destructive)
	if n := len(r.warnings()); n > 0 {
		fmt.Fprintf(&sb, "Warnings:    %d\n", n)
	}
	if r.Plan != nil {
		fmt.Fprintf(&sb, "Risk:        %s\n", r.Plan.Risk())
	}
	if r.Review != nil && !r.Review.OK() {
		fmt.Fprintf(&sb, "Unparseable: %d\n", r.Review.Unparseable)
	}

	if len(changes) > 0 {
		sb.WriteString("\nDetails:\n")
		for _, c := range changes {
			fmt.Fprintf(&sb, "  %s %s\n", kindSymbol(c.Kind), c)
		}
	}
	return sb.String(), nil
}

func kindSymbol(k diff.Kind) string {
	switch k {
	case diff.AddTable, diff.AddColumn:
		return "+"
	case diff.DropTable, diff.DropColumn:
		return "-"
	}
	return "~"
}
