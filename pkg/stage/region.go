// pkg/stage/region.go
package stage

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/delta-logistics/shipment-etl/pkg/config"
	"github.com/delta-logistics/shipment-etl/pkg/model"
)

// RegionNormalize canonicalizes the free-text origin and destination regions.
//
// Lookup is case-insensitive and whitespace-trimmed. A string matching the
// canonical vocabulary is rewritten to canonical form without an audit entry;
// a string matching the configured misspelling map is corrected and logged as
// repaired; anything else rejects the record. Origin and destination are
// judged independently and the record is retained only when both resolve.
type RegionNormalize struct {
	canonical   map[string]string // lowercased name -> canonical form
	corrections map[string]string // lowercased misspelling -> canonical form
	workers     int
	logger      *zap.Logger
}

// NewRegionNormalize creates the region normalization stage from the
// configured vocabulary and misspelling map.
func NewRegionNormalize(cfg *config.CleaningConfig, workers int, logger *zap.Logger) *RegionNormalize {
	canonical := make(map[string]string, len(cfg.CanonicalRegions))
	for _, region := range cfg.CanonicalRegions {
		canonical[strings.ToLower(strings.TrimSpace(region))] = region
	}

	corrections := make(map[string]string, len(cfg.RegionCorrections))
	for from, to := range cfg.RegionCorrections {
		corrections[strings.ToLower(strings.TrimSpace(from))] = to
	}

	return &RegionNormalize{
		canonical:   canonical,
		corrections: corrections,
		workers:     workers,
		logger:      logger.Named("region-normalize"),
	}
}

// Name returns the stage identifier used in audit artifacts.
func (s *RegionNormalize) Name() string { return "region_normalize" }

// Clean runs the per-record region lookup over the retained set.
func (s *RegionNormalize) Clean(ctx context.Context, records []model.ShipmentRecord) (model.CleaningResult, error) {
	result := runPerRecord(ctx, s.logger, s.Name(), records, s.workers, s.normalizeRecord)

	s.logger.Info("Region normalization completed",
		zap.Int("input", len(records)),
		zap.Int("retained", len(result.Retained)),
		zap.Int("rejected", len(result.Rejected)))

	return result, nil
}

func (s *RegionNormalize) normalizeRecord(rec model.ShipmentRecord) (model.ShipmentRecord, []model.AuditEntry, error) {
	var entries []model.AuditEntry
	var failed bool

	resolve := func(field, value string) string {
		canon, corrected, ok := s.lookup(value)
		if !ok {
			reason := "unrecognized region"
			if strings.TrimSpace(value) == "" {
				reason = "missing region"
			}
			entries = append(entries, model.NewAuditEntry(s.Name(), rec,
				model.ActionDropped, field, value, "", reason))
			failed = true
			return value
		}
		if corrected {
			entries = append(entries, model.NewAuditEntry(s.Name(), rec,
				model.ActionRepaired, field, value, canon, "region misspelling corrected"))
		}
		return canon
	}

	rec.OriginRegion = resolve("origin_region", rec.OriginRegion)
	rec.DestinationRegion = resolve("destination_region", rec.DestinationRegion)

	if failed {
		// The dropped entries above carry the per-field details; the record
		// itself is rejected once.
		return rec, entries, ErrRejected
	}

	return rec, entries, nil
}

// lookup resolves a raw region string. The second return reports whether the
// match came from the misspelling map rather than the canonical vocabulary.
func (s *RegionNormalize) lookup(value string) (string, bool, bool) {
	key := strings.ToLower(strings.TrimSpace(value))
	if key == "" {
		return "", false, false
	}

	if canon, ok := s.canonical[key]; ok {
		return canon, false, true
	}

	if canon, ok := s.corrections[key]; ok {
		return canon, true, true
	}

	return "", false, false
}
