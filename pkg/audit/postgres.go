// pkg/audit/postgres.go
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/delta-logistics/shipment-etl/pkg/model"
)

// PostgresSink records audit entries in a tracking table, one transaction per
// stage flush so a stage's artifact is committed fully or not at all.
type PostgresSink struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresSink creates the sink and ensures the tracking table exists.
func NewPostgresSink(db *sqlx.DB, logger *zap.Logger) (*PostgresSink, error) {
	sink := &PostgresSink{
		db:     db,
		logger: logger.Named("audit-postgres"),
	}

	if err := sink.setupTrackingTable(); err != nil {
		return nil, fmt.Errorf("failed to setup audit tracking table: %w", err)
	}

	return sink, nil
}

// setupTrackingTable ensures the shipment_cleaning_audit table exists
func (s *PostgresSink) setupTrackingTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS public.shipment_cleaning_audit (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			stage_name TEXT NOT NULL,
			row_identifier TEXT NOT NULL,
			action TEXT NOT NULL,
			field_name TEXT,
			original_value TEXT,
			new_value TEXT,
			reason TEXT NOT NULL,
			logged_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create tracking table: %w", err)
	}

	s.logger.Info("Ensured shipment_cleaning_audit table exists")
	return nil
}

// Persist inserts the stage's entries inside a single transaction.
func (s *PostgresSink) Persist(stageName, runID string, entries []model.AuditEntry) (string, error) {
	location := "postgres:public.shipment_cleaning_audit"
	if len(entries) == 0 {
		return location, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.Error(err))
			}
		}
	}()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO public.shipment_cleaning_audit
		(run_id, stage_name, row_identifier, action, field_name,
		 original_value, new_value, reason, logged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err = stmt.ExecContext(ctx,
			runID,
			entry.Stage,
			entry.RowIdentifier,
			string(entry.Action),
			entry.Field,
			entry.OriginalValue,
			entry.NewValue,
			entry.Reason,
			entry.LoggedAt,
		); err != nil {
			return "", fmt.Errorf("failed to insert audit entry: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Recorded audit entries",
		zap.String("stage", stageName),
		zap.Int("count", len(entries)))

	return location, nil
}
