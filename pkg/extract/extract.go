// pkg/extract/extract.go
package extract

import (
	"context"

	"github.com/delta-logistics/shipment-etl/pkg/model"
)

// Extractor supplies the ordered sequence of raw shipment records the
// pipeline cleans. Implementations make no promises about data quality;
// every field arrives as extracted.
type Extractor interface {
	Extract(ctx context.Context) ([]model.ShipmentRecord, error)
}
