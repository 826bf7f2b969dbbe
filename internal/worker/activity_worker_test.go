package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/metrics"
	"github.com/stemsi/gradebook-backend/internal/model"
)

type fakeSink struct {
	copyErr  error
	failOn   map[string]bool
	copied   int
	inserted []string
}

func (f *fakeSink) CopyMany(_ context.Context, batch []*model.ActivityLog) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.copied += len(batch)
	return int64(len(batch)), nil
}

func (f *fakeSink) Insert(_ context.Context, a *model.ActivityLog) error {
	if f.failOn[a.Action] {
		return errors.New("constraint violation")
	}
	f.inserted = append(f.inserted, a.Action)
	return nil
}

func newTestWorker(sink ActivitySink) (*ActivityWorker, *[]*model.ActivityLog) {
	var requeued []*model.ActivityLog
	w := NewActivityWorker(sink, nil, zerolog.Nop())
	w.requeue = func(_ context.Context, items []*model.ActivityLog) {
		requeued = append(requeued, items...)
	}
	return w, &requeued
}

func batchOf(actions ...string) []*model.ActivityLog {
	out := make([]*model.ActivityLog, len(actions))
	for i, a := range actions {
		out[i] = &model.ActivityLog{Action: a, ResourceType: "grades"}
	}
	return out
}

func TestFlushSafeCopy(t *testing.T) {
	sink := &fakeSink{}
	w, requeued := newTestWorker(sink)
	before := testutil.ToFloat64(metrics.ActivityFlushed.WithLabelValues("copy"))

	w.flushSafe(context.Background(), batchOf("create", "read", "update"))

	if sink.copied != 3 {
		t.Fatalf("copied = %d, want 3", sink.copied)
	}
	if len(sink.inserted) != 0 || len(*requeued) != 0 {
		t.Fatalf("unexpected fallback: inserted=%v requeued=%d", sink.inserted, len(*requeued))
	}
	if got := testutil.ToFloat64(metrics.ActivityFlushed.WithLabelValues("copy")) - before; got != 3 {
		t.Errorf("copy counter delta = %v, want 3", got)
	}
}

func TestFlushSafeFallsBackRowByRow(t *testing.T) {
	sink := &fakeSink{
		copyErr: errors.New("copy failed"),
		failOn:  map[string]bool{"delete": true},
	}
	w, requeued := newTestWorker(sink)
	before := testutil.ToFloat64(metrics.ActivityFlushed.WithLabelValues("requeued"))

	w.flushSafe(context.Background(), batchOf("create", "delete", "read"))

	if len(sink.inserted) != 2 || sink.inserted[0] != "create" || sink.inserted[1] != "read" {
		t.Fatalf("inserted = %v, want [create read]", sink.inserted)
	}
	if len(*requeued) != 1 || (*requeued)[0].Action != "delete" {
		t.Fatalf("requeued = %v, want the delete record", *requeued)
	}
	if got := testutil.ToFloat64(metrics.ActivityFlushed.WithLabelValues("requeued")) - before; got != 1 {
		t.Errorf("requeued counter delta = %v, want 1", got)
	}
}

func TestShutdownFlushesBuffer(t *testing.T) {
	sink := &fakeSink{}
	w, _ := newTestWorker(sink)

	w.shutdown(batchOf("create"))
	w.shutdown(nil)

	if sink.copied != 1 {
		t.Fatalf("copied = %d, want 1", sink.copied)
	}
}

func TestDecodeActivity(t *testing.T) {
	entry, err := decodeActivity(`{"action":"update","resource_type":"grades","resource_id":"7","status_code":200}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.Action != "update" || entry.ResourceID == nil || *entry.ResourceID != "7" {
		t.Fatalf("decoded %+v", entry)
	}
	if entry.Timestamp.IsZero() {
		t.Error("missing timestamp should be defaulted")
	}

	if _, err := decodeActivity("not json"); err == nil {
		t.Error("expected error for malformed payload")
	}
}
