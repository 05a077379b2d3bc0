package optimistic

import (
	"errors"
	"fmt"
)

// ValidationError is raised by the local gate before any state mutation or
// network call. Nothing has changed when it is returned, so no rollback is
// needed. It is a UX guard, not a security boundary: the server re-checks
// everything.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s.%s: %s", e.Entity, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
}

// IsValidation reports whether err is a ValidationError anywhere in its chain.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrNoSuchRecord is returned when a mutation targets an identifier that is
// not present in the local collection.
var ErrNoSuchRecord = errors.New("record not in collection")
