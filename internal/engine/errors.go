package engine

import "fmt"

// InitError reports that an engine could not be started.
type InitError struct {
	Engine string
	Err    error
}

func (e *InitError) Error() string { return fmt.Sprintf("engine %s: init: %v", e.Engine, e.Err) }
func (e *InitError) Unwrap() error { return e.Err }

// QueryError carries the statement the engine rejected.
type QueryError struct {
	Statement string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v [statement: %s]", e.Err, e.Statement)
}
func (e *QueryError) Unwrap() error { return e.Err }
