package auditlog

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultPostgresTable = "cnw_license_verifications"

// validIdentifier matches safe PostgreSQL identifiers (letters, digits, underscores).
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresOption configures a PostgresRecorder.
type PostgresOption func(*PostgresRecorder)

// WithTableName sets the PostgreSQL table name. Default: "cnw_license_verifications".
func WithTableName(name string) PostgresOption {
	return func(r *PostgresRecorder) {
		r.tableName = name
	}
}

// PostgresRecorder implements Recorder using PostgreSQL.
type PostgresRecorder struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewPostgresRecorder creates a PostgreSQL-backed recorder.
// It auto-creates the table and index on initialization.
func NewPostgresRecorder(ctx context.Context, pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresRecorder, error) {
	r := &PostgresRecorder{
		pool:      pool,
		tableName: defaultPostgresTable,
	}
	for _, opt := range opts {
		opt(r)
	}
	if !validIdentifier.MatchString(r.tableName) {
		return nil, fmt.Errorf("invalid table name %q: must match [a-zA-Z_][a-zA-Z0-9_]*", r.tableName)
	}
	if err := r.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	return r, nil
}

func (r *PostgresRecorder) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          UUID PRIMARY KEY,
			license_id  TEXT NOT NULL DEFAULT '',
			program_id  TEXT NOT NULL DEFAULT '',
			ok          BOOLEAN NOT NULL,
			reason      TEXT NOT NULL,
			fingerprint TEXT NOT NULL DEFAULT '',
			hostname    TEXT NOT NULL DEFAULT '',
			checked_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_%s_license_checked
			ON %s (license_id, checked_at);
	`, r.tableName, r.tableName, r.tableName)
	_, err := r.pool.Exec(ctx, query)
	return err
}

func (r *PostgresRecorder) Record(ctx context.Context, e Entry) (*Entry, error) {
	e = e.withDefaults(time.Now())
	query := fmt.Sprintf(`
		INSERT INTO %s (id, license_id, program_id, ok, reason, fingerprint, hostname, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tableName)

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.LicenseID, e.ProgramID, e.OK, e.Reason, e.Fingerprint, e.Hostname, e.CheckedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("record verification: %w", err)
	}
	return &e, nil
}

func (r *PostgresRecorder) List(ctx context.Context, licenseID string) ([]Entry, error) {
	query := fmt.Sprintf(`
		SELECT id::text, license_id, program_id, ok, reason, fingerprint, hostname, checked_at
		FROM %s WHERE license_id = $1 ORDER BY checked_at
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query, licenseID)
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.LicenseID, &e.ProgramID, &e.OK, &e.Reason,
			&e.Fingerprint, &e.Hostname, &e.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PostgresRecorder) CountRejected(ctx context.Context, licenseID string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE license_id = $1 AND NOT ok`, r.tableName)
	var count int
	err := r.pool.QueryRow(ctx, query, licenseID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count rejected verifications: %w", err)
	}
	return count, nil
}

func (r *PostgresRecorder) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	query := fmt.Sprintf(`DELETE FROM %s WHERE checked_at < $1`, r.tableName)
	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune verifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresRecorder) Close(_ context.Context) error {
	return nil // user manages the pgxpool.Pool lifecycle
}
