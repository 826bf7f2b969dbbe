package service

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/repository"
)

type fakeSnapshotter struct {
	dumps []repository.TableDump
	err   error
}

func (f fakeSnapshotter) Snapshot(context.Context) ([]repository.TableDump, error) {
	return f.dumps, f.err
}

func (fakeSnapshotter) DatabaseName() string { return "gradebook_test" }

type fakeLock struct {
	held     bool
	released int
}

func (l *fakeLock) Acquire(context.Context, time.Duration) (func(), bool, error) {
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func() { l.held = false; l.released++ }, true, nil
}

func newTestBackupService(t *testing.T, retain int, snap Snapshotter, lock BackupLock) (*BackupService, *time.Time) {
	t.Helper()
	svc := NewBackupService(t.TempDir(), retain, snap, lock, zerolog.Nop())
	clock := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	return svc, &clock
}

func readArchive(t *testing.T, path string) map[string][]byte {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(gz)
	files := map[string][]byte{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatal(err)
		}
		files[hdr.Name] = data
	}
	return files
}

func TestBackupCreate(t *testing.T) {
	snap := fakeSnapshotter{dumps: []repository.TableDump{
		{Table: "grades", Rows: 2, CSV: []byte("id,student_id,subject,grade\n1,1,Math,80\n2,1,Art,90\n")},
		{Table: "courses", Rows: 0, CSV: []byte("id,name\n")},
	}}
	lock := &fakeLock{}
	svc, _ := newTestBackupService(t, 5, snap, lock)

	info, err := svc.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "backup_20260301_020000.tar.gz" {
		t.Errorf("name = %q", info.Name)
	}
	if info.SizeBytes == 0 {
		t.Error("archive is empty")
	}
	if lock.held || lock.released != 1 {
		t.Errorf("lock not released: held=%v released=%d", lock.held, lock.released)
	}

	files := readArchive(t, filepath.Join(svc.dir, info.Name))
	if string(files["grades.csv"]) != string(snap.dumps[0].CSV) {
		t.Errorf("grades.csv = %q", files["grades.csv"])
	}
	if _, ok := files["courses.csv"]; !ok {
		t.Error("courses.csv missing")
	}
	var manifest model.BackupManifest
	if err := json.Unmarshal(files["manifest.json"], &manifest); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if manifest.Database != "gradebook_test" || manifest.Tables["grades"] != 2 {
		t.Errorf("manifest = %+v", manifest)
	}

	entries, _ := os.ReadDir(svc.dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestBackupCreateBusy(t *testing.T) {
	lock := &fakeLock{held: true}
	svc, _ := newTestBackupService(t, 5, fakeSnapshotter{}, lock)

	if _, err := svc.Create(context.Background()); !errors.Is(err, ErrBackupInProgress) {
		t.Errorf("err = %v, want ErrBackupInProgress", err)
	}
}

func TestBackupCreateSnapshotFailure(t *testing.T) {
	svc, _ := newTestBackupService(t, 5, fakeSnapshotter{err: errDiskFull}, &fakeLock{})

	if _, err := svc.Create(context.Background()); !errors.Is(err, errDiskFull) {
		t.Errorf("err = %v, want wrapped errDiskFull", err)
	}
	backups, err := svc.List()
	if err != nil || len(backups) != 0 {
		t.Errorf("backups = %v, %v", backups, err)
	}
}

func TestBackupPruneAndList(t *testing.T) {
	svc, clock := newTestBackupService(t, 2, fakeSnapshotter{}, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := svc.Create(ctx); err != nil {
			t.Fatal(err)
		}
		*clock = clock.Add(time.Hour)
	}
	if err := os.WriteFile(filepath.Join(svc.dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	backups, err := svc.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 2 {
		t.Fatalf("kept %d backups, want 2", len(backups))
	}
	if backups[0].Name != "backup_20260301_050000.tar.gz" || backups[1].Name != "backup_20260301_040000.tar.gz" {
		t.Errorf("order = %s, %s", backups[0].Name, backups[1].Name)
	}
}

func TestBackupListMissingDir(t *testing.T) {
	svc := NewBackupService(filepath.Join(t.TempDir(), "absent"), 1, fakeSnapshotter{}, nil, zerolog.Nop())
	backups, err := svc.List()
	if err != nil || len(backups) != 0 {
		t.Errorf("List = %v, %v", backups, err)
	}
}

func TestBackupCreateSameSecondKeepsBoth(t *testing.T) {
	first := fakeSnapshotter{dumps: []repository.TableDump{{Table: "grades", Rows: 1, CSV: []byte("id\n1\n")}}}
	svc, _ := newTestBackupService(t, 0, first, &fakeLock{})
	ctx := context.Background()

	a, err := svc.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	svc.snap = fakeSnapshotter{dumps: []repository.TableDump{{Table: "grades", Rows: 2, CSV: []byte("id\n1\n2\n")}}}
	b, err := svc.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if a.Name != "backup_20260301_020000.tar.gz" || b.Name != "backup_20260301_020000_2.tar.gz" {
		t.Fatalf("names = %s, %s", a.Name, b.Name)
	}
	if got := string(readArchive(t, filepath.Join(svc.dir, a.Name))["grades.csv"]); got != "id\n1\n" {
		t.Errorf("first archive overwritten: grades.csv = %q", got)
	}

	backups, err := svc.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 2 || backups[0].Name != b.Name || backups[1].Name != a.Name {
		t.Errorf("backups = %+v", backups)
	}
	entries, _ := os.ReadDir(svc.dir)
	if len(entries) != 2 {
		t.Errorf("dir holds %d entries, want 2", len(entries))
	}
}

func TestParseBackupName(t *testing.T) {
	at := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		wantSeq int
		ok      bool
	}{
		{"backup_20260301_020000.tar.gz", 1, true},
		{"backup_20260301_020000_3.tar.gz", 3, true},
		{"backup_20260301_020000_1.tar.gz", 0, false},
		{"backup_20260301_020000_x.tar.gz", 0, false},
		{"backup_20260301_020000-2.tar.gz", 0, false},
		{"backup_2026.tar.gz", 0, false},
		{"notes.txt", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, seq, ok := parseBackupName(tt.name)
			if ok != tt.ok || seq != tt.wantSeq {
				t.Fatalf("parseBackupName = (%d, %v), want (%d, %v)", seq, ok, tt.wantSeq, tt.ok)
			}
			if ok && !created.Equal(at) {
				t.Errorf("created = %v", created)
			}
		})
	}
}
