// pkg/stage/duration.go
package stage

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/delta-logistics/shipment-etl/pkg/config"
	"github.com/delta-logistics/shipment-etl/pkg/model"
)

// Duration derives delivery durations for delivered records and removes
// statistical outliers. Non-delivered records pass through untouched.
//
// The outlier bound is computed exactly once per run, over the full delivered
// population at stage entry, before any removal decision is made. Removing a
// record therefore never cascades into re-evaluating the threshold within the
// same stage invocation.
type Duration struct {
	cfg     *config.CleaningConfig
	workers int
	logger  *zap.Logger
}

// durationBounds is the acceptance window for delivery_days, derived from the
// population statistics at stage entry.
type durationBounds struct {
	lower float64
	upper float64
	label string // method description embedded in audit reasons
	valid bool   // false when the population is too small for statistics
}

// NewDuration creates the duration stage.
func NewDuration(cfg *config.CleaningConfig, workers int, logger *zap.Logger) *Duration {
	return &Duration{
		cfg:     cfg,
		workers: workers,
		logger:  logger.Named("duration"),
	}
}

// Name returns the stage identifier used in audit artifacts.
func (s *Duration) Name() string { return "duration" }

// Clean computes delivery_days, derives the outlier bound from the full
// population, then applies the per-record removal decision.
func (s *Duration) Clean(ctx context.Context, records []model.ShipmentRecord) (model.CleaningResult, error) {
	// Phase 1: derive durations for the whole retained set. Pure computation,
	// no rejections yet; the statistic below must see every delivered record.
	population := make([]float64, 0, len(records))
	for i := range records {
		if records[i].Delivered() && records[i].ShipDate != nil && records[i].DeliveryDate != nil {
			days := model.WholeDaysBetween(*records[i].ShipDate, *records[i].DeliveryDate)
			records[i].DeliveryDays = &days
			population = append(population, float64(days))
		}
	}

	bounds := s.computeBounds(population)
	if bounds.valid {
		s.logger.Info("Computed duration outlier bounds",
			zap.Float64("lower", bounds.lower),
			zap.Float64("upper", bounds.upper),
			zap.String("method", s.cfg.OutlierMethod),
			zap.Int("population", len(population)))
	} else {
		s.logger.Info("Population too small for outlier statistics, skipping outlier test",
			zap.Int("population", len(population)))
	}

	// Phase 2: per-record decision against the frozen bounds.
	result := runPerRecord(ctx, s.logger, s.Name(), records, s.workers,
		func(rec model.ShipmentRecord) (model.ShipmentRecord, []model.AuditEntry, error) {
			return s.decideRecord(rec, bounds)
		})

	s.logger.Info("Duration filtering completed",
		zap.Int("input", len(records)),
		zap.Int("retained", len(result.Retained)),
		zap.Int("rejected", len(result.Rejected)))

	return result, nil
}

func (s *Duration) decideRecord(rec model.ShipmentRecord, bounds durationBounds) (model.ShipmentRecord, []model.AuditEntry, error) {
	if rec.DeliveryDays == nil {
		return rec, nil, nil
	}

	days := *rec.DeliveryDays
	if days > s.cfg.MaxDeliveryDays {
		return rec, nil, &ValidationError{
			Field:  "delivery_days",
			Value:  fmt.Sprintf("%d", days),
			Reason: fmt.Sprintf("implausible delivery duration: %d days exceeds maximum of %d", days, s.cfg.MaxDeliveryDays),
		}
	}

	if bounds.valid && (float64(days) < bounds.lower || float64(days) > bounds.upper) {
		return rec, nil, &ValidationError{
			Field:  "delivery_days",
			Value:  fmt.Sprintf("%d", days),
			Reason: fmt.Sprintf("duration outlier: %d days outside [%.2f, %.2f] (%s)", days, bounds.lower, bounds.upper, bounds.label),
		}
	}

	return rec, nil, nil
}

// computeBounds derives the acceptance window from the delivered population.
// With fewer than three observations the spread statistic is meaningless, so
// the outlier test is skipped and only the plausibility maximum applies.
func (s *Duration) computeBounds(population []float64) durationBounds {
	if len(population) < 3 {
		return durationBounds{}
	}

	switch s.cfg.OutlierMethod {
	case config.OutlierMethodIQR:
		sorted := make([]float64, len(population))
		copy(sorted, population)
		sort.Float64s(sorted)

		q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
		q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
		iqr := q3 - q1

		return durationBounds{
			lower: q1 - s.cfg.IQRFactor*iqr,
			upper: q3 + s.cfg.IQRFactor*iqr,
			label: fmt.Sprintf("iqr x%.1f", s.cfg.IQRFactor),
			valid: true,
		}

	default: // config.OutlierMethodStdDev
		mean, std := stat.MeanStdDev(population, nil)

		return durationBounds{
			lower: mean - s.cfg.StdDevFactor*std,
			upper: mean + s.cfg.StdDevFactor*std,
			label: fmt.Sprintf("stddev x%.1f", s.cfg.StdDevFactor),
			valid: true,
		}
	}
}
