package repository

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BackupTables is every table captured by a snapshot, in restore order.
var BackupTables = []string{
	"users", "students", "courses", "student_courses", "grades", "grade_history", "activity_logs",
}

// TableDump is one table exported as CSV with a header row.
type TableDump struct {
	Table string
	Rows  int64
	CSV   []byte
}

// BackupRepository exports the database for archival.
type BackupRepository struct {
	pool *pgxpool.Pool
}

// NewBackupRepository creates a new BackupRepository.
func NewBackupRepository(pool *pgxpool.Pool) *BackupRepository {
	return &BackupRepository{pool: pool}
}

// DatabaseName reports the connected database, recorded in backup manifests.
func (r *BackupRepository) DatabaseName() string {
	return r.pool.Config().ConnConfig.Database
}

// Snapshot dumps every table from one read-only REPEATABLE READ
// transaction so that all tables reflect the same point in time.
func (r *BackupRepository) Snapshot(ctx context.Context) ([]TableDump, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only

	pgConn := tx.Conn().PgConn()
	dumps := make([]TableDump, 0, len(BackupTables))
	for _, table := range BackupTables {
		var buf bytes.Buffer
		sql := fmt.Sprintf(`COPY (SELECT * FROM %s ORDER BY id) TO STDOUT WITH (FORMAT csv, HEADER)`,
			pgx.Identifier{table}.Sanitize())
		tag, err := pgConn.CopyTo(ctx, &buf, sql)
		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", table, err)
		}
		dumps = append(dumps, TableDump{Table: table, Rows: tag.RowsAffected(), CSV: buf.Bytes()})
	}
	return dumps, nil
}
