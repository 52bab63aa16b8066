package auditlog

import (
	"time"

	"github.com/google/uuid"
)

func (e Entry) withDefaults(now time.Time) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CheckedAt.IsZero() {
		e.CheckedAt = now
	}
	e.CheckedAt = e.CheckedAt.UTC()
	return e
}
