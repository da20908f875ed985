package app

// Operation tracks the CLI command being run. Commands that change the
// local library mark it, so Close knows whether an auto-sync is due.
type Operation struct {
	ID        string // time-based id, stamped on every log line
	Name      string
	Status    string // "success" or "error"
	mutations int
}

// NewOperation creates an operation with status "success" and no mutations.
func NewOperation(id, name string) *Operation {
	return &Operation{
		ID:     id,
		Name:   name,
		Status: "success",
	}
}

// MarkMutated records that the command changed the local library.
func (op *Operation) MarkMutated() { op.mutations++ }

// Mutated returns true if the command changed the local library.
func (op *Operation) Mutated() bool {
	return op.mutations > 0
}

// Fail marks the operation as failed.
func (op *Operation) Fail() { op.Status = "error" }
