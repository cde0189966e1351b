// pkg/audit/file.go
package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/delta-logistics/shipment-etl/pkg/model"
)

// FileSink writes one CSV audit artifact per stage run into a log directory,
// named deterministically by stage identifier and run ID. The file is written
// to a temporary name and renamed into place, so a crash mid-write leaves no
// partial artifact behind.
type FileSink struct {
	dir string
}

// NewFileSink creates a file sink rooted at dir, creating it if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory %s: %w", dir, err)
	}
	return &FileSink{dir: dir}, nil
}

// Persist writes the stage's entries as a CSV file and returns its path.
func (s *FileSink) Persist(stageName, runID string, entries []model.AuditEntry) (string, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", stageName, runID))

	tmp, err := os.CreateTemp(s.dir, fmt.Sprintf(".%s_*.tmp", stageName))
	if err != nil {
		return "", fmt.Errorf("failed to create audit log file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	header := []string{"stage", "row_identifier", "action", "field", "original_value", "new_value", "reason", "logged_at"}
	if err := w.Write(header); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write audit log header: %w", err)
	}

	for _, entry := range entries {
		row := []string{
			entry.Stage,
			entry.RowIdentifier,
			string(entry.Action),
			entry.Field,
			entry.OriginalValue,
			entry.NewValue,
			entry.Reason,
			entry.LoggedAt.Format(time.RFC3339Nano),
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return "", fmt.Errorf("failed to write audit log row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to flush audit log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close audit log file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to commit audit log file: %w", err)
	}

	return path, nil
}
