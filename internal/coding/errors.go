package coding

import "errors"

var (
	// ErrIncompleteCoding blocks a save before any persistence call when the
	// active variant is missing required fields.
	ErrIncompleteCoding = errors.New("required coding fields are missing for the selected coding type")

	// ErrSplitSumMismatch is returned by split validation when line amounts
	// do not conserve the parent amount.
	ErrSplitSumMismatch = errors.New("split line amounts do not sum to the transaction amount")

	// ErrIncompleteLineCoding is returned by split validation when any line
	// carries an incomplete assignment.
	ErrIncompleteLineCoding = errors.New("every split line must be fully coded")
)

// LockedError rejects a coding mutation against a locked statement or
// transaction. Reason carries the statement's lock reason when one was given.
type LockedError struct {
	Reason string
}

func (e *LockedError) Error() string {
	if e.Reason != "" {
		return "statement is locked: " + e.Reason
	}
	return "statement is locked"
}

// IsLocked reports whether err is a LockedError.
func IsLocked(err error) bool {
	var le *LockedError
	return errors.As(err, &le)
}
