package core

import (
	"fmt"
	"strings"
)

// IdentifierFolding controls how table and column names are matched.
type IdentifierFolding string

const (
	// FoldLower matches identifiers case-insensitively, as MySQL does for
	// column names and for table names with lower_case_table_names=1.
	FoldLower IdentifierFolding = "lower"
	// FoldNone matches identifiers byte for byte.
	FoldNone IdentifierFolding = "none"
)

// ComparePolicy decides which differences between two columns are significant.
type ComparePolicy struct {
	// IgnoreIntegerDisplayWidth treats int(11) and int as the same type.
	IgnoreIntegerDisplayWidth bool `json:"ignoreIntegerDisplayWidth" mapstructure:"ignore_integer_display_width"`
	// CompareFlags makes unsigned, zerofill, auto_increment and ON UPDATE
	// differences produce modifications.
	CompareFlags bool              `json:"compareFlags" mapstructure:"compare_flags"`
	Folding      IdentifierFolding `json:"folding" mapstructure:"folding"`
}

// DefaultComparePolicy treats display width as cosmetic and flags as significant,
// matching identifiers case-insensitively.
func DefaultComparePolicy() ComparePolicy {
	return ComparePolicy{
		IgnoreIntegerDisplayWidth: true,
		CompareFlags:              true,
		Folding:                   FoldLower,
	}
}

// Fold returns the key used to match an identifier.
func (p ComparePolicy) Fold(name string) string {
	if p.Folding == FoldNone {
		return name
	}
	return strings.ToLower(name)
}

// Validate rejects unknown folding modes.
func (p ComparePolicy) Validate() error {
	switch p.Folding {
	case FoldLower, FoldNone:
		return nil
	case "":
		return fmt.Errorf("identifier folding is required; use %q or %q", FoldLower, FoldNone)
	default:
		return fmt.Errorf("unsupported identifier folding %q; use %q or %q", p.Folding, FoldLower, FoldNone)
	}
}

// Describe returns the comparison decisions in report form.
func (p ComparePolicy) Describe() []string {
	width := "significant"
	if p.IgnoreIntegerDisplayWidth {
		width = "cosmetic (ignored)"
	}
	flags := "ignored"
	if p.CompareFlags {
		flags = "significant"
	}
	folding := "case-insensitive"
	if p.Folding == FoldNone {
		folding = "case-sensitive"
	}
	return []string{
		"integer display width: " + width,
		"column flags (unsigned, zerofill, auto_increment, on update): " + flags,
		"identifier matching: " + folding,
	}
}
