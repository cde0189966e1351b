package load_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/delta-logistics/shipment-etl/pkg/load"
	"github.com/delta-logistics/shipment-etl/pkg/model"
)

func cleanedRecord(id string, days int) model.ShipmentRecord {
	ship := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	delivery := ship.AddDate(0, 0, days)
	return model.ShipmentRecord{
		ShipmentID:        id,
		OriginRegion:      "North",
		DestinationRegion: "South",
		ShipDate:          &ship,
		DeliveryDate:      &delivery,
		Status:            model.StatusDelivered,
		DeliveryDays:      &days,
	}
}

func Test_CSVLoader_WritesTabularDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cleaned", "shipments_cleaned.csv")
	loader := load.NewCSVLoader(path, zap.NewNop())

	pending := model.ShipmentRecord{
		ShipmentID:        "S-002",
		OriginRegion:      "East",
		DestinationRegion: "West",
		Status:            model.StatusPending,
	}
	ship := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	pending.ShipDate = &ship

	err := loader.Load(context.Background(), []model.ShipmentRecord{
		cleanedRecord("S-001", 3),
		pending,
	})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t,
		[]string{"shipment_id", "origin_region", "destination_region", "ship_date", "delivery_date", "status", "delivery_days", "is_holiday"},
		rows[0])
	assert.Equal(t,
		[]string{"S-001", "North", "South", "2024-05-01", "2024-05-04", "delivered", "3", "false"},
		rows[1])
	assert.Equal(t,
		[]string{"S-002", "East", "West", "2024-05-03", "", "pending", "", "false"},
		rows[2])
}

func Test_CSVLoader_ReplacesPreviousDatasetAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shipments_cleaned.csv")
	loader := load.NewCSVLoader(path, zap.NewNop())

	require.NoError(t, loader.Load(context.Background(),
		[]model.ShipmentRecord{cleanedRecord("S-001", 3), cleanedRecord("S-002", 4)}))
	require.NoError(t, loader.Load(context.Background(),
		[]model.ShipmentRecord{cleanedRecord("S-003", 5)}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2, "second run fully replaces the first")
	assert.Equal(t, "S-003", rows[1][0])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func Test_CSVLoader_EmptyDatasetStillWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shipments_cleaned.csv")
	loader := load.NewCSVLoader(path, zap.NewNop())

	require.NoError(t, loader.Load(context.Background(), nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
