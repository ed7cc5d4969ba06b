package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	sqlite3 "modernc.org/sqlite/lib"
)

// lockRetry re-runs a ledger statement while another vcxenc process holds
// the database write lock. Concurrent encodes into different outputs share
// one ledger file.
type lockRetry struct {
	attempts int
	first    time.Duration
	ceiling  time.Duration
}

var defaultLockRetry = lockRetry{
	attempts: 6,
	first:    15 * time.Millisecond,
	ceiling:  250 * time.Millisecond,
}

func (r lockRetry) do(ctx context.Context, op func() error) error {
	attempts := max(r.attempts, 1)
	wait := r.first
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || !isLocked(err) || attempt >= attempts {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		wait = min(wait*2, r.ceiling)
	}
}

// isLocked reports whether err is SQLITE_BUSY or SQLITE_LOCKED, including
// their extended result codes.
func isLocked(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		switch coder.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}
