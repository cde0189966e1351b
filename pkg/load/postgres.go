// pkg/load/postgres.go
package load

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/delta-logistics/shipment-etl/pkg/model"
)

// PostgresLoader replaces the shipments_cleaned table with the pipeline's
// final retained set, inside one transaction so downstream SQL analysis never
// observes a partially loaded dataset.
type PostgresLoader struct {
	db        *sqlx.DB
	batchSize int
	logger    *zap.Logger
}

// shipmentRow mirrors the shipments_cleaned table for named inserts.
type shipmentRow struct {
	ShipmentID        string     `db:"shipment_id"`
	OriginRegion      string     `db:"origin_region"`
	DestinationRegion string     `db:"destination_region"`
	ShipDate          *time.Time `db:"ship_date"`
	DeliveryDate      *time.Time `db:"delivery_date"`
	Status            string     `db:"status"`
	DeliveryDays      *int       `db:"delivery_days"`
	IsHoliday         bool       `db:"is_holiday"`
}

// NewPostgresLoader creates the loader and ensures the target table exists.
func NewPostgresLoader(db *sqlx.DB, logger *zap.Logger) (*PostgresLoader, error) {
	loader := &PostgresLoader{
		db:        db,
		batchSize: 500,
		logger:    logger.Named("postgres-loader"),
	}

	if err := loader.setupTable(); err != nil {
		return nil, fmt.Errorf("failed to setup shipments_cleaned table: %w", err)
	}

	return loader, nil
}

func (l *PostgresLoader) setupTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS public.shipments_cleaned (
			shipment_id TEXT PRIMARY KEY,
			origin_region TEXT NOT NULL,
			destination_region TEXT NOT NULL,
			ship_date DATE NOT NULL,
			delivery_date DATE,
			status TEXT NOT NULL,
			delivery_days INTEGER,
			is_holiday BOOLEAN NOT NULL DEFAULT FALSE
		)
	`
	if _, err := l.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

// Load truncates and repopulates shipments_cleaned in a single transaction.
func (l *PostgresLoader) Load(ctx context.Context, records []model.ShipmentRecord) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				l.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.Error(err))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, "TRUNCATE public.shipments_cleaned"); err != nil {
		return fmt.Errorf("failed to truncate shipments_cleaned: %w", err)
	}

	insertSQL := `
		INSERT INTO public.shipments_cleaned
		(shipment_id, origin_region, destination_region, ship_date,
		 delivery_date, status, delivery_days, is_holiday)
		VALUES (:shipment_id, :origin_region, :destination_region, :ship_date,
		 :delivery_date, :status, :delivery_days, :is_holiday)
	`

	for start := 0; start < len(records); start += l.batchSize {
		end := start + l.batchSize
		if end > len(records) {
			end = len(records)
		}

		rows := make([]shipmentRow, 0, end-start)
		for _, rec := range records[start:end] {
			rows = append(rows, shipmentRow{
				ShipmentID:        rec.ShipmentID,
				OriginRegion:      rec.OriginRegion,
				DestinationRegion: rec.DestinationRegion,
				ShipDate:          rec.ShipDate,
				DeliveryDate:      rec.DeliveryDate,
				Status:            string(rec.Status),
				DeliveryDays:      rec.DeliveryDays,
				IsHoliday:         rec.IsHoliday,
			})
		}

		if _, err = tx.NamedExecContext(ctx, insertSQL, rows); err != nil {
			return fmt.Errorf("failed to insert shipment batch: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	l.logger.Info("Loaded cleaned dataset into PostgreSQL",
		zap.Int("records", len(records)))

	return nil
}
