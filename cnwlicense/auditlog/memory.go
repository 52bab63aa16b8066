package auditlog

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryRecorder keeps entries in process memory. It suits tests and
// short-lived tools.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryRecorder returns an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(_ context.Context, e Entry) (*Entry, error) {
	e = e.withDefaults(time.Now())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return &e, nil
}

func (r *MemoryRecorder) List(_ context.Context, licenseID string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if e.LicenseID == licenseID {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b Entry) int {
		return a.CheckedAt.Compare(b.CheckedAt)
	})
	return out, nil
}

func (r *MemoryRecorder) CountRejected(_ context.Context, licenseID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.LicenseID == licenseID && !e.OK {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRecorder) Prune(_ context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.entries)
	r.entries = slices.DeleteFunc(r.entries, func(e Entry) bool {
		return e.CheckedAt.Before(cutoff)
	})
	return before - len(r.entries), nil
}

func (r *MemoryRecorder) Close(_ context.Context) error {
	return nil
}
