package stage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/delta-logistics/shipment-etl/pkg/model"
	"github.com/delta-logistics/shipment-etl/pkg/stage"
)

func dateRecord(ship, delivery, status string) model.ShipmentRecord {
	return model.ShipmentRecord{
		ShipmentID:      "S-1",
		RawShipDate:     ship,
		RawDeliveryDate: delivery,
		RawStatus:       status,
	}
}

func Test_DateRepair_RecordFates(t *testing.T) {
	tests := []struct {
		name       string
		record     model.ShipmentRecord
		retained   bool
		status     model.Status
		dropReason string
	}{
		{
			name:     "valid_delivered_record",
			record:   dateRecord("2024-05-10", "2024-05-12", "Delivered"),
			retained: true,
			status:   model.StatusDelivered,
		},
		{
			name:       "missing_ship_date",
			record:     dateRecord("", "2024-05-12", "delivered"),
			dropReason: "invalid ship date",
		},
		{
			name:       "unparsable_ship_date",
			record:     dateRecord("sometime in may", "2024-05-12", "delivered"),
			dropReason: "invalid ship date",
		},
		{
			name:       "chronology_violation",
			record:     dateRecord("2024-05-10", "2024-05-08", "delivered"),
			dropReason: "chronology violation",
		},
		{
			name:       "delivered_without_delivery_date",
			record:     dateRecord("2024-05-10", "", "delivered"),
			dropReason: "delivered without delivery date",
		},
		{
			name:     "pending_without_delivery_date",
			record:   dateRecord("2024-05-10", "", "Pending"),
			retained: true,
			status:   model.StatusPending,
		},
		{
			name:     "spaced_status_variant",
			record:   dateRecord("2024-05-10", "", "In Transit"),
			retained: true,
			status:   model.StatusInTransit,
		},
	}

	s := stage.NewDateRepair(0, zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.Clean(context.Background(), []model.ShipmentRecord{tt.record})
			require.NoError(t, err)

			if tt.retained {
				require.Len(t, result.Retained, 1)
				assert.Empty(t, result.Rejected)
				assert.Equal(t, tt.status, result.Retained[0].Status)
				require.NotNil(t, result.Retained[0].ShipDate)
				return
			}

			require.Len(t, result.Rejected, 1)
			assert.Empty(t, result.Retained)
			require.NotEmpty(t, result.Entries)
			last := result.Entries[len(result.Entries)-1]
			assert.Equal(t, model.ActionDropped, last.Action)
			assert.Equal(t, tt.dropReason, last.Reason)
		})
	}
}

func Test_DateRepair_UnrecognizedStatusIsRepairedNotDropped(t *testing.T) {
	s := stage.NewDateRepair(0, zap.NewNop())

	result, err := s.Clean(context.Background(),
		[]model.ShipmentRecord{dateRecord("2024-05-10", "2024-05-12", "lost in warehouse")})
	require.NoError(t, err)

	require.Len(t, result.Retained, 1)
	assert.Equal(t, model.StatusUnknown, result.Retained[0].Status)

	require.Len(t, result.Entries, 1)
	entry := result.Entries[0]
	assert.Equal(t, model.ActionRepaired, entry.Action)
	assert.Equal(t, "status", entry.Field)
	assert.Equal(t, "lost in warehouse", entry.OriginalValue)
	assert.Equal(t, "unknown", entry.NewValue)
}

func Test_DateRepair_EmptyStatusDerivedFromDeliveryDate(t *testing.T) {
	s := stage.NewDateRepair(0, zap.NewNop())

	result, err := s.Clean(context.Background(), []model.ShipmentRecord{
		dateRecord("2024-05-10", "2024-05-12", ""),
		dateRecord("2024-05-10", "", ""),
	})
	require.NoError(t, err)

	require.Len(t, result.Retained, 2)
	assert.Equal(t, model.StatusDelivered, result.Retained[0].Status)
	assert.Equal(t, model.StatusInTransit, result.Retained[1].Status)

	require.Len(t, result.Entries, 2)
	for _, entry := range result.Entries {
		assert.Equal(t, model.ActionRepaired, entry.Action)
		assert.Equal(t, "status derived from delivery date presence", entry.Reason)
	}
}

func Test_DateRepair_UnparsableDeliveryDateCleared(t *testing.T) {
	s := stage.NewDateRepair(0, zap.NewNop())

	result, err := s.Clean(context.Background(),
		[]model.ShipmentRecord{dateRecord("2024-05-10", "soon", "pending")})
	require.NoError(t, err)

	require.Len(t, result.Retained, 1)
	rec := result.Retained[0]
	assert.Nil(t, rec.DeliveryDate)
	assert.Empty(t, rec.RawDeliveryDate)

	require.Len(t, result.Entries, 1)
	entry := result.Entries[0]
	assert.Equal(t, model.ActionRepaired, entry.Action)
	assert.Equal(t, "delivery_date", entry.Field)
	assert.Equal(t, "soon", entry.OriginalValue)
}

func Test_DateRepair_RecognizedStatusCaseNotAudited(t *testing.T) {
	s := stage.NewDateRepair(0, zap.NewNop())

	result, err := s.Clean(context.Background(),
		[]model.ShipmentRecord{dateRecord("2024-05-10", "2024-05-12", "DELIVERED")})
	require.NoError(t, err)

	require.Len(t, result.Retained, 1)
	assert.Equal(t, model.StatusDelivered, result.Retained[0].Status)
	assert.Empty(t, result.Entries)
}
