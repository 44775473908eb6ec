package worker

import (
	"context"
	"errors"
	"testing"

	"budgetboard/internal/amqp"
	"budgetboard/internal/core"
)

type fakeReader struct {
	model *core.DataModel
	err   error
	loads int
}

func (r *fakeReader) LoadModel(context.Context) (*core.DataModel, error) {
	r.loads++
	return r.model, r.err
}

type fakeWriter struct {
	writes  int
	lastLen int
	err     error
}

func (w *fakeWriter) WriteWealthHistory(_ context.Context, samples []core.WealthSample) error {
	if w.err != nil {
		return w.err
	}
	w.writes++
	w.lastLen = len(samples)
	return nil
}

func testModel() *core.DataModel {
	m := core.NewModel()
	m.WealthHistory = []core.WealthSample{
		{Profile: "partner-1", Month: "2026-07", Balance: core.Money{Cents: 100000}},
		{Profile: "partner-2", Month: "2026-07", Balance: core.Money{Cents: 200000}},
	}
	return m
}

func TestHandleModelChanged(t *testing.T) {
	reader := &fakeReader{model: testModel()}
	writer := &fakeWriter{}
	w := NewExportWorker(reader, writer)

	if err := w.HandleModelChanged(context.Background(), amqp.NewModelChangedMessage(1)); err != nil {
		t.Fatalf("HandleModelChanged: %v", err)
	}
	if writer.writes != 1 || writer.lastLen != 2 {
		t.Fatalf("writes = %d, lastLen = %d", writer.writes, writer.lastLen)
	}
}

func TestHandleModelChangedSkipsOldRevisions(t *testing.T) {
	reader := &fakeReader{model: testModel()}
	writer := &fakeWriter{}
	w := NewExportWorker(reader, writer)

	if err := w.HandleModelChanged(context.Background(), amqp.NewModelChangedMessage(5)); err != nil {
		t.Fatalf("first event: %v", err)
	}
	if err := w.HandleModelChanged(context.Background(), amqp.NewModelChangedMessage(3)); err != nil {
		t.Fatalf("stale event: %v", err)
	}
	if err := w.HandleModelChanged(context.Background(), amqp.NewModelChangedMessage(5)); err != nil {
		t.Fatalf("duplicate event: %v", err)
	}
	if writer.writes != 1 {
		t.Fatalf("writes = %d, want 1 (stale events must be dropped)", writer.writes)
	}
	if reader.loads != 1 {
		t.Fatalf("loads = %d, want 1", reader.loads)
	}
}

func TestHandleModelChangedWriterErrorKeepsRevision(t *testing.T) {
	reader := &fakeReader{model: testModel()}
	writer := &fakeWriter{err: errors.New("sheets down")}
	w := NewExportWorker(reader, writer)

	if err := w.HandleModelChanged(context.Background(), amqp.NewModelChangedMessage(1)); err == nil {
		t.Fatal("expected error from failing writer")
	}

	// A redelivery of the same revision must be retried, not skipped.
	writer.err = nil
	if err := w.HandleModelChanged(context.Background(), amqp.NewModelChangedMessage(1)); err != nil {
		t.Fatalf("retry after writer recovery: %v", err)
	}
	if writer.writes != 1 {
		t.Fatalf("writes = %d, want 1", writer.writes)
	}
}

func TestExportOnce(t *testing.T) {
	reader := &fakeReader{model: testModel()}
	writer := &fakeWriter{}
	w := NewExportWorker(reader, writer)

	if err := w.ExportOnce(context.Background()); err != nil {
		t.Fatalf("ExportOnce: %v", err)
	}
	if writer.writes != 1 || writer.lastLen != 2 {
		t.Fatalf("writes = %d, lastLen = %d", writer.writes, writer.lastLen)
	}
}
