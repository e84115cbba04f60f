package diff

import (
	"fmt"
	"slices"
	"strings"

	"schemadrift/internal/core"
)

// detectColumnRenames warns about dropped/added pairs that look like a rename.
// The changes themselves are kept: a rename cannot be told apart from a real
// drop and add from structure alone.
func (c *comparer) detectColumnRenames(table string, dropped, added []*Change) {
	if len(dropped) == 0 || len(added) == 0 {
		return
	}

	used := make(map[int]struct{}, len(added))
	for _, d := range dropped {
		bestIdx, bestScore := -1, -1
		for j, a := range added {
			if _, ok := used[j]; ok {
				continue
			}
			score := c.renameSimilarityScore(d.Before, a.After)
			if score > bestScore {
				bestIdx, bestScore = j, score
			}
		}
		if bestIdx < 0 || bestScore < renameDetectionScoreThreshold {
			continue
		}
		a := added[bestIdx]
		if !renameEvidence(d.Before, a.After) {
			continue
		}
		used[bestIdx] = struct{}{}
		c.warn(core.Warning{
			Kind:    core.WarningRenameHint,
			Table:   table,
			Column:  d.Before.Name,
			Message: fmt.Sprintf("dropped column %q and added column %q look like a rename; review before applying", d.Before.Name, a.After.Name),
		})
	}
}

func (c *comparer) renameSimilarityScore(oldC, newC *core.Column) int {
	score := 0
	if oldC.Type.Equal(newC.Type, c.policy) {
		score += 4
	}
	if oldC.Nullable == newC.Nullable {
		score++
	}
	if ptrEq(oldC.Default, newC.Default) {
		score++
	}
	if slices.Equal(oldC.DefinitionFlags(), newC.DefinitionFlags()) {
		score++
	}
	if oldC.Comment != "" && oldC.Comment == newC.Comment {
		score++
	}
	return score
}

func renameEvidence(oldC, newC *core.Column) bool {
	if hasSharedNameToken(oldC.Name, newC.Name) {
		return true
	}
	return strings.TrimSpace(oldC.Comment) != "" && strings.EqualFold(strings.TrimSpace(oldC.Comment), strings.TrimSpace(newC.Comment))
}

func hasSharedNameToken(a, b string) bool {
	split := func(s string) []string {
		parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
			return (r < 'a' || r > 'z') && (r < '0' || r > '9')
		})
		out := parts[:0]
		for _, p := range parts {
			if len(p) >= renameSharedTokenMinLen {
				out = append(out, p)
			}
		}
		return out
	}

	set := make(map[string]struct{})
	for _, t := range split(a) {
		set[t] = struct{}{}
	}
	for _, t := range split(b) {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
