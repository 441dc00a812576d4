package tracker

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var lastTimestamp int64

// nextTimestamp returns a strictly increasing nanosecond timestamp, even when
// the wall clock stalls or several goroutines ask at once.
func nextTimestamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTimestamp, last, now) {
			return now
		}
	}
}

// NewID joins a monotonic timestamp with a random suffix. The timestamp alone
// makes ids unique within the process; the suffix keeps ids from separate
// processes apart.
func NewID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return strconv.FormatInt(nextTimestamp(), 36) + suffix
}
