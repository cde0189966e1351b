// pkg/stage/dates.go
package stage

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/delta-logistics/shipment-etl/pkg/model"
)

// DateRepair validates and normalizes the shipment date and status fields.
//
// Records with a missing or unparsable ship date are dropped, as are records
// whose delivery date precedes the ship date and delivered records with no
// delivery date at all. Status text is normalized into the closed enumeration;
// unrecognized text is repaired to "unknown" rather than dropped, and an empty
// status is derived from the presence of a delivery date.
type DateRepair struct {
	workers int
	logger  *zap.Logger
}

// NewDateRepair creates the date repair stage.
func NewDateRepair(workers int, logger *zap.Logger) *DateRepair {
	return &DateRepair{
		workers: workers,
		logger:  logger.Named("date-repair"),
	}
}

// Name returns the stage identifier used in audit artifacts.
func (s *DateRepair) Name() string { return "date_repair" }

// Clean runs the per-record date validation over the retained set.
func (s *DateRepair) Clean(ctx context.Context, records []model.ShipmentRecord) (model.CleaningResult, error) {
	result := runPerRecord(ctx, s.logger, s.Name(), records, s.workers, s.repairRecord)

	s.logger.Info("Date repair completed",
		zap.Int("input", len(records)),
		zap.Int("retained", len(result.Retained)),
		zap.Int("rejected", len(result.Rejected)))

	return result, nil
}

func (s *DateRepair) repairRecord(rec model.ShipmentRecord) (model.ShipmentRecord, []model.AuditEntry, error) {
	var entries []model.AuditEntry

	shipDate, err := model.ParseDate(rec.RawShipDate)
	if err != nil {
		return rec, entries, &ValidationError{
			Field:  "ship_date",
			Value:  rec.RawShipDate,
			Reason: "invalid ship date",
		}
	}
	rec.ShipDate = &shipDate

	// A present but unparsable delivery date is cleared rather than fatal;
	// the record survives as not-yet-delivered unless its status says otherwise.
	if raw := strings.TrimSpace(rec.RawDeliveryDate); raw != "" {
		deliveryDate, err := model.ParseDate(raw)
		if err != nil {
			entries = append(entries, model.NewAuditEntry(s.Name(), rec,
				model.ActionRepaired, "delivery_date", rec.RawDeliveryDate, "",
				"unparsable delivery date cleared"))
			rec.RawDeliveryDate = ""
			rec.DeliveryDate = nil
		} else {
			rec.DeliveryDate = &deliveryDate
		}
	}

	rec, entries = s.normalizeStatus(rec, entries)

	if rec.DeliveryDate != nil && rec.DeliveryDate.Before(*rec.ShipDate) {
		return rec, entries, &ValidationError{
			Field:  "delivery_date",
			Value:  rec.RawDeliveryDate,
			Reason: "chronology violation",
		}
	}

	if rec.Status == model.StatusDelivered && rec.DeliveryDate == nil {
		return rec, entries, &ValidationError{
			Field:  "delivery_date",
			Value:  "",
			Reason: "delivered without delivery date",
		}
	}

	return rec, entries, nil
}

// normalizeStatus maps raw status text into the closed enumeration. Case and
// separator differences are tolerated without an audit entry; only deriving a
// missing status or falling back to "unknown" counts as a repair.
func (s *DateRepair) normalizeStatus(rec model.ShipmentRecord, entries []model.AuditEntry) (model.ShipmentRecord, []model.AuditEntry) {
	raw := strings.TrimSpace(rec.RawStatus)

	if raw == "" {
		if rec.DeliveryDate != nil {
			rec.Status = model.StatusDelivered
		} else {
			rec.Status = model.StatusInTransit
		}
		rec.RawStatus = string(rec.Status)
		entries = append(entries, model.NewAuditEntry(s.Name(), rec,
			model.ActionRepaired, "status", "", string(rec.Status),
			"status derived from delivery date presence"))
		return rec, entries
	}

	normalized := strings.ReplaceAll(strings.ReplaceAll(strings.ToLower(raw), " ", "_"), "-", "_")
	switch normalized {
	case "pending":
		rec.Status = model.StatusPending
	case "in_transit", "intransit":
		rec.Status = model.StatusInTransit
	case "delivered":
		rec.Status = model.StatusDelivered
	case "unknown":
		// Already flagged on a previous run; not a new correction.
		rec.Status = model.StatusUnknown
	default:
		rec.Status = model.StatusUnknown
		rec.RawStatus = string(rec.Status)
		entries = append(entries, model.NewAuditEntry(s.Name(), rec,
			model.ActionRepaired, "status", raw, string(rec.Status),
			"unrecognized status"))
	}

	return rec, entries
}
