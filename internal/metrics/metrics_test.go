package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordImport(t *testing.T) {
	before := testutil.ToFloat64(ImportRows.WithLabelValues("created"))
	RecordImport(3, 1, 0)
	if got := testutil.ToFloat64(ImportRows.WithLabelValues("created")) - before; got != 3 {
		t.Errorf("created delta = %v, want 3", got)
	}
}

func TestRecordBackupOnlyObservesSuccess(t *testing.T) {
	before := testutil.CollectAndCount(BackupDuration)
	RecordBackup("failure", time.Second)
	if got := testutil.ToFloat64(BackupRuns.WithLabelValues("failure")); got < 1 {
		t.Errorf("failure count = %v", got)
	}
	if testutil.CollectAndCount(BackupDuration) != before {
		t.Error("histogram series changed on failure")
	}
}

func TestRecordAPIRequest(t *testing.T) {
	RecordAPIRequest("GET", "/api/v1/grades/:id/history", 200, 10*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/grades/:id/history", "200")); got < 1 {
		t.Errorf("request count = %v", got)
	}
}
