package service

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/config"
	"github.com/stemsi/gradebook-backend/internal/metrics"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/repository"
)

const (
	backupPrefix     = "backup_"
	backupSuffix     = ".tar.gz"
	backupTimeLayout = "20060102_150405"
	backupLockTTL    = 30 * time.Minute

	// maxSameSecond bounds the numbered names tried when a second already has an archive.
	maxSameSecond = 100
)

// Snapshotter exports every table from one consistent snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]repository.TableDump, error)
	DatabaseName() string
}

// BackupLock keeps two backups from running at once, across processes.
type BackupLock interface {
	Acquire(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
}

// RedisBackupLock is a SET NX lock released only by its owner.
type RedisBackupLock struct {
	rdb *redis.Client
}

// NewRedisBackupLock creates a new RedisBackupLock.
func NewRedisBackupLock(rdb *redis.Client) *RedisBackupLock {
	return &RedisBackupLock{rdb: rdb}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (l *RedisBackupLock) Acquire(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	key := config.CacheKey.BackupLockKey()
	token := uuid.New().String()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		releaseScript.Run(context.Background(), l.rdb, []string{key}, token)
	}
	return release, true, nil
}

// BackupService writes timestamped tar.gz snapshots of the database.
type BackupService struct {
	dir    string
	retain int
	snap   Snapshotter
	lock   BackupLock
	now    func() time.Time
	log    zerolog.Logger
}

// NewBackupService creates a new BackupService writing into dir and keeping
// the newest retain archives.
func NewBackupService(dir string, retain int, snap Snapshotter, lock BackupLock, log zerolog.Logger) *BackupService {
	return &BackupService{
		dir:    dir,
		retain: retain,
		snap:   snap,
		lock:   lock,
		now:    time.Now,
		log:    log.With().Str("component", "backup_service").Logger(),
	}
}

// BackupName returns the archive name for a backup taken at t.
func BackupName(t time.Time) string {
	return backupPrefix + t.Format(backupTimeLayout) + backupSuffix
}

// numberedBackupName is the name of the seq-th archive taken within the
// same second as t. Sequence 1 is the plain BackupName.
func numberedBackupName(t time.Time, seq int) string {
	if seq <= 1 {
		return BackupName(t)
	}
	return fmt.Sprintf("%s%s_%d%s", backupPrefix, t.Format(backupTimeLayout), seq, backupSuffix)
}

// parseBackupName extracts the timestamp and same-second sequence from an
// archive name.
func parseBackupName(name string) (time.Time, int, bool) {
	if !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
		return time.Time{}, 0, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, backupPrefix), backupSuffix)
	if len(stamp) < len(backupTimeLayout) {
		return time.Time{}, 0, false
	}
	created, err := time.Parse(backupTimeLayout, stamp[:len(backupTimeLayout)])
	if err != nil {
		return time.Time{}, 0, false
	}
	rest := stamp[len(backupTimeLayout):]
	if rest == "" {
		return created, 1, true
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(rest, "_"))
	if err != nil || !strings.HasPrefix(rest, "_") || seq < 2 {
		return time.Time{}, 0, false
	}
	return created, seq, true
}

// Create takes a snapshot and writes it as a new archive. Returns
// ErrBackupInProgress when another backup holds the lock.
func (s *BackupService) Create(ctx context.Context) (*model.BackupInfo, error) {
	start := s.now()
	if s.lock != nil {
		release, ok, err := s.lock.Acquire(ctx, backupLockTTL)
		if err != nil {
			metrics.RecordBackup("failure", 0)
			return nil, fmt.Errorf("acquire backup lock: %w", err)
		}
		if !ok {
			metrics.RecordBackup("skipped", 0)
			return nil, ErrBackupInProgress
		}
		defer release()
	}

	info, err := s.create(ctx, start)
	if err != nil {
		metrics.RecordBackup("failure", 0)
		s.log.Error().Err(err).Msg("Backup failed")
		return nil, err
	}
	metrics.RecordBackup("success", s.now().Sub(start))

	if err := s.prune(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to prune old backups")
	}
	s.log.Info().Str("file", info.Name).Int64("bytes", info.SizeBytes).Msg("Backup created")
	return info, nil
}

func (s *BackupService) create(ctx context.Context, at time.Time) (*model.BackupInfo, error) {
	dumps, err := s.snap.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".backup-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp archive: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // the published link keeps the data

	manifest := model.BackupManifest{
		CreatedAt: at.UTC(),
		Database:  s.snap.DatabaseName(),
		Tables:    make(map[string]int, len(dumps)),
	}
	for _, d := range dumps {
		manifest.Tables[d.Table] = int(d.Rows)
	}

	if err := writeArchive(tmp, at.UTC(), manifest, dumps); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	name, err := s.publish(tmp.Name(), at.UTC())
	if err != nil {
		return nil, err
	}

	st, err := os.Stat(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	return &model.BackupInfo{Name: name, SizeBytes: st.Size(), CreatedAt: at.UTC()}, nil
}

// publish hard-links the finished temp archive under the first free name for
// its second. Linking fails on an existing name, so an earlier archive is
// never replaced.
func (s *BackupService) publish(tmp string, at time.Time) (string, error) {
	for seq := 1; seq <= maxSameSecond; seq++ {
		name := numberedBackupName(at, seq)
		err := os.Link(tmp, filepath.Join(s.dir, name))
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("finalize archive: %w", err)
		}
	}
	return "", fmt.Errorf("finalize archive: %d archives already exist for %s", maxSameSecond, at.Format(backupTimeLayout))
}

func writeArchive(f *os.File, at time.Time, manifest model.BackupManifest, dumps []repository.TableDump) error {
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	add := func(name string, data []byte) error {
		hdr := &tar.Header{Name: name, Mode: 0o640, Size: int64(len(data)), ModTime: at}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("tar header %s: %w", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("tar write %s: %w", name, err)
		}
		return nil
	}

	mdata, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := add("manifest.json", mdata); err != nil {
		return err
	}
	for _, d := range dumps {
		if err := add(d.Table+".csv", d.CSV); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return nil
}

// List returns existing archives, newest first.
func (s *BackupService) List() ([]model.BackupInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.BackupInfo{}, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	type listed struct {
		info model.BackupInfo
		seq  int
	}
	found := make([]listed, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		created, seq, ok := parseBackupName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, listed{
			info: model.BackupInfo{Name: e.Name(), SizeBytes: info.Size(), CreatedAt: created},
			seq:  seq,
		})
	}
	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if !a.info.CreatedAt.Equal(b.info.CreatedAt) {
			return a.info.CreatedAt.After(b.info.CreatedAt)
		}
		return a.seq > b.seq
	})

	backups := make([]model.BackupInfo, len(found))
	for i, f := range found {
		backups[i] = f.info
	}
	return backups, nil
}

// prune deletes archives beyond the newest s.retain. Zero keeps everything.
func (s *BackupService) prune() error {
	if s.retain <= 0 {
		return nil
	}
	backups, err := s.List()
	if err != nil {
		return err
	}
	var errs []error
	for _, b := range backups[min(s.retain, len(backups)):] {
		if err := os.Remove(filepath.Join(s.dir, b.Name)); err != nil {
			errs = append(errs, err)
			continue
		}
		s.log.Debug().Str("file", b.Name).Msg("Pruned old backup")
	}
	return errors.Join(errs...)
}
