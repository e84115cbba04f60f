package core

// OperationKind is used to identify what kind of operation a migration plan entry is.
type OperationKind string

const (
	OperationSQL        OperationKind = "SQL"
	OperationNote       OperationKind = "NOTE"
	OperationBreaking   OperationKind = "BREAKING"
	OperationUnresolved OperationKind = "UNRESOLVED"
)

// OperationRisk is used to identify the risk level of an operation.
type OperationRisk string

const (
	RiskInfo     OperationRisk = "INFO"
	RiskWarning  OperationRisk = "WARNING"
	RiskBreaking OperationRisk = "BREAKING"
)

// Operation is a single entry of a migration plan: a statement with its
// rollback and risk, or a note for the operator.
type Operation struct {
	Kind OperationKind `json:"kind"`

	SQL         string `json:"sql,omitempty"`
	RollbackSQL string `json:"rollbackSql,omitempty"`

	Risk         OperationRisk `json:"risk,omitempty"`
	Destructive  bool          `json:"destructive,omitempty"`
	RequiresLock bool          `json:"requiresLock,omitempty"`
	Table        string        `json:"table,omitempty"`

	UnresolvedReason string `json:"unresolvedReason,omitempty"`
}
