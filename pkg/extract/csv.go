// pkg/extract/csv.go
package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/delta-logistics/shipment-etl/pkg/model"
)

// CSVExtractor reads raw shipment records from a CSV file with named columns.
// Column order is free; shipment_id, ship_date, delivery_date, origin_region
// and destination_region are required, status and is_holiday are optional.
type CSVExtractor struct {
	path   string
	logger *zap.Logger
}

// NewCSVExtractor creates an extractor reading from path.
func NewCSVExtractor(path string, logger *zap.Logger) *CSVExtractor {
	return &CSVExtractor{
		path:   path,
		logger: logger.Named("csv-extractor"),
	}
}

// Extract reads the whole file into ordered raw records. Any I/O or format
// error is systemic; per-record data problems are the cleaning stages' job.
func (e *CSVExtractor) Extract(ctx context.Context) ([]model.ShipmentRecord, error) {
	f, err := os.Open(e.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw dataset %s: %w", e.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows surface as short-field records, not a hard stop

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", e.path, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"shipment_id", "ship_date", "delivery_date", "origin_region", "destination_region"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("raw dataset %s is missing required column %q", e.path, required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var records []model.ShipmentRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row from %s: %w", e.path, err)
		}

		records = append(records, model.ShipmentRecord{
			Row:               len(records),
			ShipmentID:        strings.TrimSpace(field(row, "shipment_id")),
			OriginRegion:      field(row, "origin_region"),
			DestinationRegion: field(row, "destination_region"),
			RawShipDate:       field(row, "ship_date"),
			RawDeliveryDate:   field(row, "delivery_date"),
			RawStatus:         field(row, "status"),
			IsHoliday:         parseFlag(field(row, "is_holiday")),
		})
	}

	e.logger.Info("Extracted raw shipment records",
		zap.String("path", e.path),
		zap.Int("count", len(records)))

	return records, nil
}

func parseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "t", "yes", "y", "1":
		return true
	default:
		return false
	}
}
