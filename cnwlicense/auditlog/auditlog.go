// Package auditlog stores license verification outcomes for support
// diagnostics. It receives finished verdicts and never takes part in
// deciding them.
package auditlog

import (
	"context"
	"time"
)

// Entry is one recorded verification.
type Entry struct {
	ID          string    `json:"id" bson:"_id"`
	LicenseID   string    `json:"license_id" bson:"license_id"`
	ProgramID   string    `json:"program_id" bson:"program_id"`
	OK          bool      `json:"ok" bson:"ok"`
	Reason      string    `json:"reason" bson:"reason"`
	Fingerprint string    `json:"fingerprint" bson:"fingerprint"`
	Hostname    string    `json:"hostname" bson:"hostname"`
	CheckedAt   time.Time `json:"checked_at" bson:"checked_at"`
}

// Recorder persists verification entries.
type Recorder interface {
	// Record stores an entry. An empty ID is filled with a new UUID and a
	// zero CheckedAt with the current time.
	Record(ctx context.Context, e Entry) (*Entry, error)

	// List returns the entries for a license id, oldest first.
	List(ctx context.Context, licenseID string) ([]Entry, error)

	// CountRejected returns how many verifications of a license id failed.
	CountRejected(ctx context.Context, licenseID string) (int, error)

	// Prune removes entries checked before now-olderThan and returns how
	// many were removed.
	Prune(ctx context.Context, olderThan time.Duration) (int, error)

	// Close releases any resources held by the recorder.
	Close(ctx context.Context) error
}

var (
	_ Recorder = (*MemoryRecorder)(nil)
	_ Recorder = (*PostgresRecorder)(nil)
	_ Recorder = (*MongoRecorder)(nil)
)
