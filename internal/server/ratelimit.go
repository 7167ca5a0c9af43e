package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter throttles extraction requests per client. Extraction is far
// more expensive than a typical API call, so beyond a per-minute request
// rate it also enforces daily request and upload-volume quotas.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	maxRequestsPerDay int
	maxUploadPerDay   int64

	clients map[string]*clientUsage
}

// clientUsage tracks one client's consumption.
type clientUsage struct {
	requestsLastMinute int
	requestsToday      int
	uploadedToday      int64

	lastRequestTime time.Time
	dayStartTime    time.Time
}

// NewRateLimiter creates a limiter with the given ceilings. A zero ceiling
// disables that check.
func NewRateLimiter(requestsPerMinute, maxRequestsPerDay int, maxUploadPerDay int64) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		maxRequestsPerDay: maxRequestsPerDay,
		maxUploadPerDay:   maxUploadPerDay,
		clients:           make(map[string]*clientUsage),
	}
}

// Check reports whether a request of uploadSize bytes from the client is
// allowed, updating the client's counters when it is.
func (rl *RateLimiter) Check(clientID string, uploadSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	usage := rl.clients[clientID]
	if usage == nil {
		usage = &clientUsage{lastRequestTime: now, dayStartTime: now}
		rl.clients[clientID] = usage
	}

	rl.resetCounters(usage, now)

	if rl.requestsPerMinute > 0 && usage.requestsLastMinute >= rl.requestsPerMinute {
		return &RateLimitError{
			Limit:      rl.requestsPerMinute,
			RetryAfter: time.Minute - now.Sub(usage.lastRequestTime),
		}
	}
	if rl.maxRequestsPerDay > 0 && usage.requestsToday >= rl.maxRequestsPerDay {
		return &QuotaExceededError{
			Kind:   "requests",
			Limit:  int64(rl.maxRequestsPerDay),
			Used:   int64(usage.requestsToday),
			Resets: startOfNextDay(now),
		}
	}
	if rl.maxUploadPerDay > 0 && usage.uploadedToday+uploadSize > rl.maxUploadPerDay {
		return &QuotaExceededError{
			Kind:   "upload",
			Limit:  rl.maxUploadPerDay,
			Used:   usage.uploadedToday,
			Resets: startOfNextDay(now),
		}
	}

	usage.requestsLastMinute++
	usage.requestsToday++
	usage.uploadedToday += uploadSize
	usage.lastRequestTime = now
	return nil
}

// resetCounters rolls counters over when their window has passed.
func (rl *RateLimiter) resetCounters(usage *clientUsage, now time.Time) {
	if now.Day() != usage.dayStartTime.Day() || now.Month() != usage.dayStartTime.Month() {
		usage.requestsToday = 0
		usage.uploadedToday = 0
		usage.dayStartTime = now
	}
	if now.Sub(usage.lastRequestTime) >= time.Minute {
		usage.requestsLastMinute = 0
	}
}

func startOfNextDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}

// RateLimitError reports a per-minute rate violation.
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %d per minute, retry after: %v)", e.Limit, e.RetryAfter)
}

// QuotaExceededError reports a daily request or upload-volume violation.
type QuotaExceededError struct {
	Kind   string
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily %s quota exceeded (used: %d, limit: %d, resets: %s)",
		e.Kind, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
