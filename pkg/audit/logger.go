// pkg/audit/logger.go
package audit

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/delta-logistics/shipment-etl/pkg/model"
)

// Sink persists one stage's audit entries as a single durable artifact,
// committed atomically. It returns the artifact location for reporting.
type Sink interface {
	Persist(stageName, runID string, entries []model.AuditEntry) (string, error)
}

// Logger buffers audit entries per stage and flushes each stage's buffer as
// one independently committed artifact when the stage completes. Entries keep
// the order in which they were produced, and a flushed artifact is never
// touched again, so a crash mid-stage cannot corrupt earlier stages' logs.
type Logger struct {
	runID     string
	sinks     []Sink
	logger    *zap.Logger
	mu        sync.Mutex
	buffers   map[string][]model.AuditEntry
	flushed   map[string]bool
	locations []string
}

// NewLogger creates an audit logger writing to the given sinks.
func NewLogger(runID string, logger *zap.Logger, sinks ...Sink) *Logger {
	return &Logger{
		runID:   runID,
		sinks:   sinks,
		logger:  logger.Named("audit"),
		buffers: make(map[string][]model.AuditEntry),
		flushed: make(map[string]bool),
	}
}

// RunID returns the identifier stamped on every artifact of this run.
func (l *Logger) RunID() string { return l.runID }

// Append buffers entries for a stage. Safe for concurrent use; callers that
// partition a stage across workers must merge their entries into production
// order before appending.
func (l *Logger) Append(stageName string, entries ...model.AuditEntry) {
	if len(entries) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.flushed[stageName] {
		// A flushed log is append-only and closed; this indicates a
		// sequencing bug in the caller, not a data problem.
		l.logger.Error("Dropping audit entries appended after flush",
			zap.String("stage", stageName),
			zap.Int("count", len(entries)))
		return
	}

	l.buffers[stageName] = append(l.buffers[stageName], entries...)
}

// Flush commits the stage's buffered entries to every sink. The stage buffer
// is closed afterwards regardless of entry count, so every stage run leaves a
// durable artifact. A sink failure is systemic and must abort the run.
func (l *Logger) Flush(stageName string) error {
	l.mu.Lock()
	if l.flushed[stageName] {
		l.mu.Unlock()
		return fmt.Errorf("audit log for stage %q already flushed", stageName)
	}
	entries := l.buffers[stageName]
	l.mu.Unlock()

	var locations []string
	for _, sink := range l.sinks {
		location, err := sink.Persist(stageName, l.runID, entries)
		if err != nil {
			return fmt.Errorf("failed to persist audit log for stage %q: %w", stageName, err)
		}
		if location != "" {
			locations = append(locations, location)
		}
	}

	l.mu.Lock()
	l.flushed[stageName] = true
	delete(l.buffers, stageName)
	l.locations = append(l.locations, locations...)
	l.mu.Unlock()

	l.logger.Info("Flushed audit log",
		zap.String("stage", stageName),
		zap.Int("entries", len(entries)),
		zap.Strings("locations", locations))

	return nil
}

// Locations returns the artifact locations flushed so far.
func (l *Logger) Locations() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.locations))
	copy(out, l.locations)
	return out
}
