package output

import (
	"encoding/json"

	"schemadrift/internal/core"
	"schemadrift/internal/diff"
	"schemadrift/internal/review"
)

type jsonFormatter struct{}

type reportSummary struct {
	Changes            int `json:"changes"`
	Destructive        int `json:"destructive"`
	Warnings           int `json:"warnings"`
	BreakingChanges    int `json:"breakingChanges"`
	Unresolved         int `json:"unresolved"`
	Notes              int `json:"notes"`
	SQLStatements      int `json:"sqlStatements"`
	RollbackStatements int `json:"rollbackStatements"`
}

type jsonChange struct {
	*diff.Change
	Destructive bool `json:"destructive"`
}

type jsonStatement struct {
	SQL          string             `json:"sql"`
	Rollback     string             `json:"rollback,omitempty"`
	Table        string             `json:"table,omitempty"`
	Risk         core.OperationRisk `json:"risk,omitempty"`
	Destructive  bool               `json:"destructive"`
	RequiresLock bool               `json:"requiresLock"`
}

type reportPayload struct {
	Format          string          `json:"format"`
	RunID           string          `json:"runId"`
	Source          string          `json:"source,omitempty"`
	Target          string          `json:"target,omitempty"`
	Summary         reportSummary   `json:"summary"`
	Changes         []jsonChange    `json:"changes"`
	Warnings        []core.Warning  `json:"warnings,omitempty"`
	BreakingChanges []string        `json:"breakingChanges,omitempty"`
	Unresolved      []string        `json:"unresolved,omitempty"`
	Notes           []string        `json:"notes,omitempty"`
	Statements      []jsonStatement `json:"statements,omitempty"`
	Rollback        []string        `json:"rollback,omitempty"`
	Review          *review.Report  `json:"review,omitempty"`
}

// Format renders the report as one indented JSON document.
func (jsonFormatter) Format(r *Report) (string, error) {
	payload := reportPayload{Format: string(FormatJSON), Changes: []jsonChange{}}
	if r != nil {
		payload.RunID = r.RunID.String()
		payload.Source = r.Source
		payload.Target = r.Target
		payload.Warnings = r.warnings()
		payload.Review = r.Review
	}

	for _, c := range r.changes() {
		payload.Changes = append(payload.Changes, jsonChange{Change: c, Destructive: c.Destructive()})
		if c.Destructive() {
			payload.Summary.Destructive++
		}
	}
	for _, op := range r.sqlOperations() {
		payload.Statements = append(payload.Statements, jsonStatement{
			SQL:          normalizeStatement(op.SQL),
			Rollback:     normalizeStatement(op.RollbackSQL),
			Table:        op.Table,
			Risk:         op.Risk,
			Destructive:  op.Destructive,
			RequiresLock: op.RequiresLock,
		})
	}
	if r != nil && r.Plan != nil {
		payload.BreakingChanges = r.Plan.BreakingNotes()
		payload.Unresolved = r.Plan.UnresolvedNotes()
		payload.Notes = r.Plan.InfoNotes()
		payload.Rollback = r.Plan.RollbackStatements()
	}

	payload.Summary.Changes = len(payload.Changes)
	payload.Summary.Warnings = len(payload.Warnings)
	payload.Summary.BreakingChanges = len(payload.BreakingChanges)
	payload.Summary.Unresolved = len(payload.Unresolved)
	payload.Summary.Notes = len(payload.Notes)
	payload.Summary.SQLStatements = len(payload.Statements)
	payload.Summary.RollbackStatements = len(payload.Rollback)

	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
