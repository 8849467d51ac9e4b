package app

// Invocation tracks a CLI command run that may mutate a project. Invocations
// are created in memory with an empty ID; only mutating commands persist
// them to the history ledger.
type Invocation struct {
	ID      string
	Command string
	Project string
	Status  string // "success" or "error"
}

// NewInvocation creates a new in-memory invocation.
func NewInvocation(command, project string) *Invocation {
	return &Invocation{
		Command: command,
		Project: project,
		Status:  "success",
	}
}

// Persisted returns true if this invocation has been saved to the ledger.
func (inv *Invocation) Persisted() bool {
	return inv.ID != ""
}
