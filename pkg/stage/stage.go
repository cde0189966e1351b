// pkg/stage/stage.go
package stage

import (
	"context"
	"errors"
	"fmt"

	"github.com/delta-logistics/shipment-etl/pkg/model"
)

// ErrRejected signals that a record failed validation and that the record
// function has already emitted the audit entries describing why. The runner
// rejects the record without adding an entry of its own.
var ErrRejected = errors.New("record rejected")

// Stage is one independent transformation step in the cleaning pipeline.
// A stage consumes the previous stage's retained set and partitions it into
// retained and rejected records, emitting an audit entry for every mutation
// and rejection. Business-rule failures never surface as errors; a returned
// error always indicates a systemic problem.
type Stage interface {
	Name() string
	Clean(ctx context.Context, records []model.ShipmentRecord) (model.CleaningResult, error)
}

// ValidationError describes a single record failing a business rule.
// It is absorbed at the stage boundary into a rejection plus an audit entry
// and never propagates past the stage.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
