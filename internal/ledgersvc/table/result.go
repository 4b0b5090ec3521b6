package table

// Result is the outcome of a mutation applied through Apply. Table is the
// new state and is only set when Err is nil.
type Result struct {
	Table *Table
	Err   error
}

// Ok reports whether the mutation succeeded.
func (r Result) Ok() bool {
	return r.Err == nil
}

// Apply runs mutate on a snapshot of t. t itself is never modified, so the
// caller keeps its prior state whenever the result carries an error.
func Apply(t *Table, mutate func(*Table) error) Result {
	next := t.Snapshot()
	if err := mutate(next); err != nil {
		return Result{Err: err}
	}
	return Result{Table: next}
}
