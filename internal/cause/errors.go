package cause

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument reports a caller contract violation, such as building
// an UpstreamCause without an upstream run.
var ErrInvalidArgument = errors.New("invalid argument")

// PolicyError reports an unusable Policy limit.
type PolicyError struct {
	Field string
	Value int
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy %s must be >= 1, got %d", e.Field, e.Value)
}

// validateRef checks the identifying fields of an upstream reference.
func validateRef(project string, number int) error {
	if project == "" {
		return fmt.Errorf("%w: upstream project is empty", ErrInvalidArgument)
	}
	if number < 1 {
		return fmt.Errorf("%w: upstream build number %d is not positive", ErrInvalidArgument, number)
	}
	return nil
}
