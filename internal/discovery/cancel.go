package discovery

import (
	"errors"
	"fmt"
)

// DeploymentCancelledError signals that the operator chose to abort the
// deployment from the recovery menu. It is a deliberate decision, not a
// malfunction, so callers must be able to match it separately from every
// other failure. No release exists when this is returned.
type DeploymentCancelledError struct {
	Version string
}

func (e *DeploymentCancelledError) Error() string {
	return fmt.Sprintf("deployment of %s cancelled by operator", e.Version)
}

// IsCancelled reports whether err is (or wraps) an operator cancellation.
func IsCancelled(err error) bool {
	var cancelled *DeploymentCancelledError
	return errors.As(err, &cancelled)
}
