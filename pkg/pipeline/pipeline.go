// pkg/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/delta-logistics/shipment-etl/pkg/audit"
	"github.com/delta-logistics/shipment-etl/pkg/config"
	"github.com/delta-logistics/shipment-etl/pkg/load"
	"github.com/delta-logistics/shipment-etl/pkg/model"
	"github.com/delta-logistics/shipment-etl/pkg/stage"
)

// Pipeline sequences the cleaning stages in fixed order, feeds each stage's
// retained set into the next, aggregates rejections, and hands the final
// dataset to the load collaborator. A stage is never re-entered.
type Pipeline struct {
	stages   []stage.Stage
	auditLog *audit.Logger
	loader   load.Loader
	logger   *zap.Logger
}

// RejectedRecord tags a rejected record with the stage that dropped it.
type RejectedRecord struct {
	Stage  string
	Record model.ShipmentRecord
}

// StageOutcome summarizes one stage run.
type StageOutcome struct {
	Stage        string
	Input        int
	Retained     int
	Rejected     int
	AuditEntries int
}

// Summary is the user-visible report of a completed run.
type Summary struct {
	RunID           string
	Input           int
	Retained        int
	TotalRejected   int
	Stages          []StageOutcome
	RejectedByStage map[string]int
	Rejections      []RejectedRecord
	AuditLocations  []string
	Duration        time.Duration
}

// NewRunID returns a run identifier combining the run timestamp with a short
// random suffix, used to name audit artifacts deterministically per run.
func NewRunID() string {
	return fmt.Sprintf("%s_%s",
		time.Now().UTC().Format("20060102T150405Z"),
		uuid.NewString()[:8])
}

// New builds the pipeline with the standard stage order: ID repair, date
// repair, duration filtering, region normalization.
func New(cfg *config.Config, auditLog *audit.Logger, loader load.Loader, logger *zap.Logger) *Pipeline {
	workers := cfg.WorkerPoolSize

	return &Pipeline{
		stages: []stage.Stage{
			stage.NewIDRepair(cfg.Cleaning, workers, logger),
			stage.NewDateRepair(workers, logger),
			stage.NewDuration(cfg.Cleaning, workers, logger),
			stage.NewRegionNormalize(cfg.Cleaning, workers, logger),
		},
		auditLog: auditLog,
		loader:   loader,
		logger:   logger.Named("pipeline"),
	}
}

// Run executes all stages over the extracted records and loads the final
// retained set. It returns the run summary and the cleaned records. Any
// returned error is systemic: the audit trail or dataset could not be
// persisted, and the run must be treated as failed.
func (p *Pipeline) Run(ctx context.Context, records []model.ShipmentRecord) (*Summary, []model.ShipmentRecord, error) {
	start := time.Now()

	summary := &Summary{
		RunID:           p.auditLog.RunID(),
		Input:           len(records),
		RejectedByStage: make(map[string]int, len(p.stages)),
	}

	p.logger.Info("Starting cleaning run",
		zap.String("runID", summary.RunID),
		zap.Int("records", len(records)))

	retained := records
	for _, st := range p.stages {
		result, err := st.Clean(ctx, retained)
		if err != nil {
			return nil, nil, &SystemicError{Stage: st.Name(), Resource: "stage execution", Err: err}
		}

		p.auditLog.Append(st.Name(), result.Entries...)

		// The audit trail is the correctness witness for the run; if it
		// cannot be committed the run is worthless and must abort.
		if err := p.auditLog.Flush(st.Name()); err != nil {
			return nil, nil, &SystemicError{Stage: st.Name(), Resource: "audit storage", Err: err}
		}

		for _, rec := range result.Rejected {
			summary.Rejections = append(summary.Rejections, RejectedRecord{Stage: st.Name(), Record: rec})
		}
		summary.RejectedByStage[st.Name()] = len(result.Rejected)
		summary.Stages = append(summary.Stages, StageOutcome{
			Stage:        st.Name(),
			Input:        len(retained),
			Retained:     len(result.Retained),
			Rejected:     len(result.Rejected),
			AuditEntries: len(result.Entries),
		})

		retained = result.Retained
	}

	if p.loader != nil {
		if err := p.loader.Load(ctx, retained); err != nil {
			return nil, nil, &SystemicError{Stage: "load", Resource: "dataset storage", Err: err}
		}
	}

	summary.Retained = len(retained)
	summary.TotalRejected = len(summary.Rejections)
	summary.AuditLocations = p.auditLog.Locations()
	summary.Duration = time.Since(start)

	p.logger.Info("Cleaning run completed",
		zap.String("runID", summary.RunID),
		zap.Int("input", summary.Input),
		zap.Int("retained", summary.Retained),
		zap.Int("rejected", summary.TotalRejected),
		zap.Duration("duration", summary.Duration))

	return summary, retained, nil
}
