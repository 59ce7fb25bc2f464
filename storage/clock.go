package storage

import (
	"sync/atomic"
	"time"
)

var lastCreation int64

// nextCreationTime returns a unix-nano timestamp strictly greater than any
// value returned before, so creation order stays total even when the clock
// does not advance between calls.
func nextCreationTime() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastCreation)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastCreation, last, now) {
			return now
		}
	}
}
