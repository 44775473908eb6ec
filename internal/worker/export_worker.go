// Package worker processes model-change events out of process: it reads the
// latest stored snapshot and mirrors the wealth history to the export target.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budgetboard/internal/amqp"
	"budgetboard/internal/core"
	"budgetboard/internal/export"
)

// ModelReader loads the stored model snapshot.
type ModelReader interface {
	LoadModel(ctx context.Context) (*core.DataModel, error)
}

// ExportWorker mirrors the wealth history after every committed mutation.
type ExportWorker struct {
	storage ModelReader
	writer  export.WealthWriter

	lastExported uint64
}

func NewExportWorker(storage ModelReader, writer export.WealthWriter) *ExportWorker {
	return &ExportWorker{
		storage: storage,
		writer:  writer,
	}
}

// HandleModelChanged processes one change event. Events are revision-tagged;
// an event at or below the last exported revision is dropped, so a burst of
// mutations collapses into one export of the final snapshot.
func (w *ExportWorker) HandleModelChanged(ctx context.Context, msg *amqp.ModelChangedMessage) error {
	if msg.Revision <= w.lastExported {
		slog.DebugContext(ctx, "Skipping already exported revision",
			"revision", msg.Revision,
			"last_exported", w.lastExported)
		return nil
	}

	m, err := w.storage.LoadModel(ctx)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	if err := w.writer.WriteWealthHistory(ctx, m.WealthHistory); err != nil {
		return fmt.Errorf("export wealth history: %w", err)
	}

	w.lastExported = msg.Revision
	slog.InfoContext(ctx, "Export completed",
		"revision", msg.Revision,
		"samples", len(m.WealthHistory))
	return nil
}

// ExportOnce runs a full export outside of any event, used on worker startup
// to recover from missed messages.
func (w *ExportWorker) ExportOnce(ctx context.Context) error {
	m, err := w.storage.LoadModel(ctx)
	if err != nil {
		return fmt.Errorf("load model for startup export: %w", err)
	}
	if err := w.writer.WriteWealthHistory(ctx, m.WealthHistory); err != nil {
		return fmt.Errorf("startup export: %w", err)
	}
	slog.InfoContext(ctx, "Startup export completed", "samples", len(m.WealthHistory))
	return nil
}
