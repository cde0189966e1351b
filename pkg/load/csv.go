// pkg/load/csv.go
package load

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/delta-logistics/shipment-etl/pkg/model"
)

const dateLayout = "2006-01-02"

// CSVLoader writes the cleaned dataset as a tabular CSV file. Like the audit
// file sink it writes to a temporary name and renames into place, so a failed
// load never leaves a half-written dataset.
type CSVLoader struct {
	path   string
	logger *zap.Logger
}

// NewCSVLoader creates a loader writing to path.
func NewCSVLoader(path string, logger *zap.Logger) *CSVLoader {
	return &CSVLoader{
		path:   path,
		logger: logger.Named("csv-loader"),
	}
}

// Load writes all records to the configured path.
func (l *CSVLoader) Load(ctx context.Context, records []model.ShipmentRecord) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".shipments_*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	header := []string{"shipment_id", "origin_region", "destination_region", "ship_date", "delivery_date", "status", "delivery_days", "is_holiday"}
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write output header: %w", err)
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return err
		}

		shipDate := ""
		if rec.ShipDate != nil {
			shipDate = rec.ShipDate.Format(dateLayout)
		}
		deliveryDate := ""
		if rec.DeliveryDate != nil {
			deliveryDate = rec.DeliveryDate.Format(dateLayout)
		}
		deliveryDays := ""
		if rec.DeliveryDays != nil {
			deliveryDays = strconv.Itoa(*rec.DeliveryDays)
		}

		row := []string{
			rec.ShipmentID,
			rec.OriginRegion,
			rec.DestinationRegion,
			shipDate,
			deliveryDate,
			string(rec.Status),
			deliveryDays,
			strconv.FormatBool(rec.IsHoliday),
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write output row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("failed to commit output file: %w", err)
	}

	l.logger.Info("Saved cleaned dataset",
		zap.String("path", l.path),
		zap.Int("records", len(records)))

	return nil
}
