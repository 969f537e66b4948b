// Package gzwriter is a reference archive.Writer adapter that streams a
// gzip-compressed JSON array of a session's lap records to a
// caller-supplied destination (e.g. a blob upload), using klauspost's
// drop-in faster gzip implementation.
package gzwriter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/pitwall/timingpipeline/lapproc"
)

// DestinationOpener opens the write destination for one session's
// archive (a blob upload stream, a local file, ...).
type DestinationOpener func(ctx context.Context, sessionID int) (io.WriteCloser, error)

// Writer implements archive.Writer.
type Writer struct {
	open   DestinationOpener
	logger zerolog.Logger
}

// New builds a Writer that opens destinations via open.
func New(open DestinationOpener, logger zerolog.Logger) *Writer {
	return &Writer{open: open, logger: logger}
}

// WriteArchive gzip-compresses records as a single JSON array and
// streams it to the opened destination.
func (w *Writer) WriteArchive(ctx context.Context, sessionID int, records []lapproc.CarLapData) error {
	dest, err := w.open(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("gzwriter: open destination for session %d: %w", sessionID, err)
	}
	defer dest.Close()

	gz := gzip.NewWriter(dest)
	if err := json.NewEncoder(gz).Encode(records); err != nil {
		gz.Close()
		return fmt.Errorf("gzwriter: encode archive for session %d: %w", sessionID, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzwriter: flush archive for session %d: %w", sessionID, err)
	}
	w.logger.Debug().Int("sessionId", sessionID).Int("records", len(records)).Msg("wrote session archive")
	return nil
}
