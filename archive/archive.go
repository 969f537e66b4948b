// Package archive defines the historical-record archive sink:
// gzip-compressed JSON arrays of a session's finalized lap records.
package archive

import (
	"context"

	"github.com/pitwall/timingpipeline/lapproc"
)

// Writer persists a session's lap log as a compressed archive.
// Implementations have an at-least-once contract; the store is the
// tie-breaker of record.
type Writer interface {
	WriteArchive(ctx context.Context, sessionID int, records []lapproc.CarLapData) error
}
