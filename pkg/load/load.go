// pkg/load/load.go
package load

import (
	"context"

	"github.com/delta-logistics/shipment-etl/pkg/model"
)

// Loader persists the pipeline's final retained record sequence. A load
// failure is systemic; by the time records reach a loader they satisfy every
// cleaning invariant.
type Loader interface {
	Load(ctx context.Context, records []model.ShipmentRecord) error
}

// MultiLoader fans the cleaned dataset out to several destinations,
// failing on the first error.
type MultiLoader struct {
	loaders []Loader
}

// NewMultiLoader combines loaders into one.
func NewMultiLoader(loaders ...Loader) *MultiLoader {
	return &MultiLoader{loaders: loaders}
}

// Load runs every wrapped loader in order.
func (m *MultiLoader) Load(ctx context.Context, records []model.ShipmentRecord) error {
	for _, loader := range m.loaders {
		if err := loader.Load(ctx, records); err != nil {
			return err
		}
	}
	return nil
}
