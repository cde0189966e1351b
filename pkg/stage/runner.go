// pkg/stage/runner.go
package stage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/delta-logistics/shipment-etl/pkg/model"
)

// recordFunc validates and repairs a single record. It returns the possibly
// mutated record, the audit entries for any repairs or drops it performed,
// and a *ValidationError when the record must be rejected. The function must
// not depend on any other record; cross-record rules (duplicate detection,
// outlier thresholds) are handled by the stages themselves.
type recordFunc func(rec model.ShipmentRecord) (model.ShipmentRecord, []model.AuditEntry, error)

// outcome is the result of processing one record.
type outcome struct {
	record  model.ShipmentRecord
	entries []model.AuditEntry
	keep    bool
}

// minParallelBatch is the smallest input for which partitioned execution is
// worth the goroutine overhead.
const minParallelBatch = 256

// runPerRecord applies fn to every record, sequentially or across disjoint
// partitions when workers > 1. Outcomes are collected per input position, so
// retained records, rejected records, and audit entries always come out in
// original ingestion order regardless of worker scheduling.
//
// A panic inside fn is confined to the record being processed: the record is
// rejected with a "processing error" audit entry and the run continues.
func runPerRecord(
	ctx context.Context,
	logger *zap.Logger,
	stageName string,
	records []model.ShipmentRecord,
	workers int,
	fn recordFunc,
) model.CleaningResult {
	outcomes := make([]outcome, len(records))

	if workers <= 1 || len(records) < minParallelBatch {
		for i := range records {
			outcomes[i] = applyToRecord(logger, stageName, records[i], fn)
		}
	} else {
		g, _ := errgroup.WithContext(ctx)
		chunk := (len(records) + workers - 1) / workers

		for start := 0; start < len(records); start += chunk {
			start := start
			end := start + chunk
			if end > len(records) {
				end = len(records)
			}
			g.Go(func() error {
				for i := start; i < end; i++ {
					outcomes[i] = applyToRecord(logger, stageName, records[i], fn)
				}
				return nil
			})
		}

		// Workers only write their own partition and never return errors;
		// validation failures are outcomes, not errors.
		_ = g.Wait()
	}

	result := model.CleaningResult{
		Retained: make([]model.ShipmentRecord, 0, len(records)),
	}
	for _, out := range outcomes {
		if out.keep {
			result.Retained = append(result.Retained, out.record)
		} else {
			result.Rejected = append(result.Rejected, out.record)
		}
		result.Entries = append(result.Entries, out.entries...)
	}

	return result
}

// applyToRecord runs fn on one record, translating validation errors and
// panics into rejection outcomes.
func applyToRecord(logger *zap.Logger, stageName string, rec model.ShipmentRecord, fn recordFunc) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Recovered panic while processing record",
				zap.String("stage", stageName),
				zap.String("record", rec.RowIdentifier()),
				zap.Any("panic", r))

			out = outcome{
				record: rec,
				keep:   false,
				entries: []model.AuditEntry{
					model.NewAuditEntry(stageName, rec, model.ActionDropped, "",
						"", "", fmt.Sprintf("processing error: %v", r)),
				},
			}
		}
	}()

	cleaned, entries, err := fn(rec)
	if err != nil {
		var verr *ValidationError
		if errors.Is(err, ErrRejected) {
			// Entries already emitted by the record function.
		} else if errors.As(err, &verr) {
			entries = append(entries, model.NewAuditEntry(stageName, cleaned,
				model.ActionDropped, verr.Field, verr.Value, "", verr.Reason))
		} else {
			// Not a business-rule failure, but still confined to this record.
			logger.Warn("Unexpected record error",
				zap.String("stage", stageName),
				zap.String("record", rec.RowIdentifier()),
				zap.Error(err))
			entries = append(entries, model.NewAuditEntry(stageName, cleaned,
				model.ActionDropped, "", "", "", fmt.Sprintf("processing error: %v", err)))
		}
		return outcome{record: cleaned, entries: entries, keep: false}
	}

	return outcome{record: cleaned, entries: entries, keep: true}
}
