package flash

import "fmt"

// EraseError is fatal for the session: a failed erase leaves the flash in an
// ambiguous state and a blind retry risks compounding the damage.
type EraseError struct {
	// Output is the tool's diagnostic text, verbatim.
	Output string
	Err    error
}

func (e *EraseError) Error() string {
	return fmt.Sprintf("flash erase failed: %v", e.Err)
}

func (e *EraseError) Unwrap() error {
	return e.Err
}

// WriteError means the write failed at the primary rate and, when the
// failure class allowed it, also at the fallback rate.
type WriteError struct {
	// Outcome is the classification of the final attempt.
	Outcome Outcome
	// Output is the tool's diagnostic text from the final attempt, verbatim.
	Output string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("firmware write failed (%s): %v", e.Outcome, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
