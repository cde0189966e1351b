// pkg/stage/ids.go
package stage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/delta-logistics/shipment-etl/pkg/config"
	"github.com/delta-logistics/shipment-etl/pkg/model"
)

// IDRepair fixes missing shipment identifiers and removes duplicates.
//
// A record without a shipment ID gets a synthetic one derived from its row
// position plus a fixed prefix, so the new ID is deterministic and cannot
// collide with genuine identifiers. A record whose ID duplicates an
// already-seen one (scanning in ingestion order) is removed, keeping the
// first occurrence. No record is ever dropped for a missing ID alone.
type IDRepair struct {
	prefix  string
	workers int
	logger  *zap.Logger
}

// NewIDRepair creates the ID repair stage.
func NewIDRepair(cfg *config.CleaningConfig, workers int, logger *zap.Logger) *IDRepair {
	return &IDRepair{
		prefix:  cfg.IDPrefix,
		workers: workers,
		logger:  logger.Named("id-repair"),
	}
}

// Name returns the stage identifier used in audit artifacts.
func (s *IDRepair) Name() string { return "id_repair" }

// Clean repairs missing IDs, then removes duplicates in ingestion order.
func (s *IDRepair) Clean(ctx context.Context, records []model.ShipmentRecord) (model.CleaningResult, error) {
	// Phase 1: synthesize IDs for records missing one. Per-record and
	// deterministic, so it is safe to partition.
	repaired := runPerRecord(ctx, s.logger, s.Name(), records, s.workers, s.repairRecord)

	// Phase 2: duplicate scan. Inherently sequential over ingestion order.
	seen := make(map[string]int, len(repaired.Retained))
	result := model.CleaningResult{
		Retained: make([]model.ShipmentRecord, 0, len(repaired.Retained)),
		Rejected: repaired.Rejected,
		Entries:  repaired.Entries,
	}

	for _, rec := range repaired.Retained {
		firstRow, dup := seen[rec.ShipmentID]
		if !dup {
			seen[rec.ShipmentID] = rec.Row
			result.Retained = append(result.Retained, rec)
			continue
		}

		result.Rejected = append(result.Rejected, rec)
		result.Entries = append(result.Entries, model.NewAuditEntry(
			s.Name(), rec, model.ActionDuplicateRemoved, "shipment_id",
			rec.ShipmentID, "",
			fmt.Sprintf("duplicate shipment id, first seen at row %d", firstRow)))
	}

	s.logger.Info("ID repair completed",
		zap.Int("input", len(records)),
		zap.Int("retained", len(result.Retained)),
		zap.Int("duplicatesRemoved", len(result.Rejected)))

	return result, nil
}

// repairRecord assigns a synthetic ID when the extracted one is blank.
func (s *IDRepair) repairRecord(rec model.ShipmentRecord) (model.ShipmentRecord, []model.AuditEntry, error) {
	if strings.TrimSpace(rec.ShipmentID) != "" {
		rec.ShipmentID = strings.TrimSpace(rec.ShipmentID)
		return rec, nil, nil
	}

	original := rec.ShipmentID
	rec.ShipmentID = fmt.Sprintf("%s%06d", s.prefix, rec.Row+1)

	entry := model.NewAuditEntry(s.Name(), rec, model.ActionRepaired,
		"shipment_id", original, rec.ShipmentID, "missing shipment id")

	return rec, []model.AuditEntry{entry}, nil
}
