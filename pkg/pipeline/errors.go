// pkg/pipeline/errors.go
package pipeline

import (
	"errors"
	"fmt"
)

// SystemicError is a failure no single record can absorb: unreachable
// storage, malformed configuration, a broken collaborator. It aborts the run
// and names the failing stage and resource. Per-record business-rule failures
// never become errors; they are absorbed into rejections and audit entries at
// the stage boundary.
type SystemicError struct {
	Stage    string
	Resource string
	Err      error
}

func (e *SystemicError) Error() string {
	return fmt.Sprintf("stage %s: %s failure: %v", e.Stage, e.Resource, e.Err)
}

func (e *SystemicError) Unwrap() error {
	return e.Err
}

// IsSystemic reports whether err carries a SystemicError.
func IsSystemic(err error) bool {
	var serr *SystemicError
	return errors.As(err, &serr)
}
