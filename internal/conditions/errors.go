package conditions

import "fmt"

// PanicError wraps a value recovered from a panicking fetch or aggregation step.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("recovered panic: %v", e.Value)
}
