package audit_test

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/delta-logistics/shipment-etl/pkg/audit"
	"github.com/delta-logistics/shipment-etl/pkg/model"
)

func testEntry(stage, id, reason string) model.AuditEntry {
	return model.NewAuditEntry(stage,
		model.ShipmentRecord{ShipmentID: id},
		model.ActionRepaired, "field", "old", "new", reason)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func Test_Logger_FlushWritesOneArtifactPerStage(t *testing.T) {
	dir := t.TempDir()
	sink, err := audit.NewFileSink(dir)
	require.NoError(t, err)

	logger := audit.NewLogger("run1", zap.NewNop(), sink)
	logger.Append("id_repair", testEntry("id_repair", "A", "first"))
	logger.Append("id_repair", testEntry("id_repair", "B", "second"))
	require.NoError(t, logger.Flush("id_repair"))

	logger.Append("date_repair", testEntry("date_repair", "C", "third"))
	require.NoError(t, logger.Flush("date_repair"))

	idLog := filepath.Join(dir, "id_repair_run1.csv")
	dateLog := filepath.Join(dir, "date_repair_run1.csv")
	assert.FileExists(t, idLog)
	assert.FileExists(t, dateLog)

	locations := logger.Locations()
	assert.ElementsMatch(t, []string{idLog, dateLog}, locations)
}

func Test_Logger_EntriesPreserveProductionOrder(t *testing.T) {
	dir := t.TempDir()
	sink, err := audit.NewFileSink(dir)
	require.NoError(t, err)

	logger := audit.NewLogger("run1", zap.NewNop(), sink)
	for i := 0; i < 20; i++ {
		logger.Append("duration", testEntry("duration", fmt.Sprintf("S-%02d", i), "r"))
	}
	require.NoError(t, logger.Flush("duration"))

	rows := readCSV(t, filepath.Join(dir, "duration_run1.csv"))
	require.Len(t, rows, 21) // header plus 20 entries
	for i, row := range rows[1:] {
		assert.Equal(t, fmt.Sprintf("S-%02d", i), row[1])
	}
}

func Test_Logger_EmptyStageStillLeavesArtifact(t *testing.T) {
	dir := t.TempDir()
	sink, err := audit.NewFileSink(dir)
	require.NoError(t, err)

	logger := audit.NewLogger("run1", zap.NewNop(), sink)
	require.NoError(t, logger.Flush("region_normalize"))

	rows := readCSV(t, filepath.Join(dir, "region_normalize_run1.csv"))
	require.Len(t, rows, 1, "header only")
}

func Test_Logger_DoubleFlushRejected(t *testing.T) {
	sink, err := audit.NewFileSink(t.TempDir())
	require.NoError(t, err)

	logger := audit.NewLogger("run1", zap.NewNop(), sink)
	require.NoError(t, logger.Flush("id_repair"))
	assert.Error(t, logger.Flush("id_repair"))
}

func Test_Logger_AppendAfterFlushIsIgnored(t *testing.T) {
	dir := t.TempDir()
	sink, err := audit.NewFileSink(dir)
	require.NoError(t, err)

	logger := audit.NewLogger("run1", zap.NewNop(), sink)
	require.NoError(t, logger.Flush("id_repair"))
	logger.Append("id_repair", testEntry("id_repair", "late", "too late"))

	rows := readCSV(t, filepath.Join(dir, "id_repair_run1.csv"))
	require.Len(t, rows, 1, "flushed log is never retroactively edited")
}

type failingSink struct{}

func (failingSink) Persist(string, string, []model.AuditEntry) (string, error) {
	return "", errors.New("disk full")
}

func Test_Logger_SinkFailureSurfacesAndStageStaysOpen(t *testing.T) {
	logger := audit.NewLogger("run1", zap.NewNop(), failingSink{})
	logger.Append("id_repair", testEntry("id_repair", "A", "r"))

	err := logger.Flush("id_repair")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id_repair")

	// The stage was not marked flushed, so a retry against working storage
	// would still see the buffered entries.
	assert.Empty(t, logger.Locations())
}

func Test_FileSink_ArtifactsAreIndependentAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	sink, err := audit.NewFileSink(dir)
	require.NoError(t, err)

	_, err = sink.Persist("id_repair", "runA", []model.AuditEntry{testEntry("id_repair", "A", "r")})
	require.NoError(t, err)
	_, err = sink.Persist("id_repair", "runB", nil)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "id_repair_runA.csv"))
	assert.FileExists(t, filepath.Join(dir, "id_repair_runB.csv"))

	rows := readCSV(t, filepath.Join(dir, "id_repair_runA.csv"))
	require.Len(t, rows, 2, "earlier artifact untouched by later flush")
}
