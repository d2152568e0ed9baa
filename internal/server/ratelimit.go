package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitConfig sets per-client limits. A zero limit is unlimited.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// RateLimiter counts requests per client in fixed minute, hour and day
// windows, plus uploaded bytes per day.
type RateLimiter struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	now     func() time.Time
	clients map[string]*clientUsage
}

type clientUsage struct {
	minuteStart time.Time
	hourStart   time.Time
	dayStart    time.Time

	minute int
	hour   int
	day    int
	bytes  int64
}

// Usage is a snapshot of one client's counters.
type Usage struct {
	Minute int
	Hour   int
	Day    int
	Bytes  int64
}

// NewRateLimiter creates a limiter with the given limits.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*clientUsage),
	}
}

// Allow records a request of size bytes from client, or returns a
// *RateLimitError or *QuotaExceededError without counting it.
func (rl *RateLimiter) Allow(client string, size int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u := rl.clients[client]
	if u == nil {
		u = &clientUsage{minuteStart: now, hourStart: now, dayStart: startOfDay(now)}
		rl.clients[client] = u
	}
	u.roll(now)

	if lim := rl.cfg.RequestsPerMinute; lim > 0 && u.minute >= lim {
		return &RateLimitError{Window: "minute", Limit: lim, RetryAfter: u.minuteStart.Add(time.Minute).Sub(now)}
	}
	if lim := rl.cfg.RequestsPerHour; lim > 0 && u.hour >= lim {
		return &RateLimitError{Window: "hour", Limit: lim, RetryAfter: u.hourStart.Add(time.Hour).Sub(now)}
	}
	resets := u.dayStart.AddDate(0, 0, 1)
	if lim := rl.cfg.MaxRequestsPerDay; lim > 0 && u.day >= lim {
		return &QuotaExceededError{Kind: "requests", Limit: int64(lim), Used: int64(u.day), Resets: resets}
	}
	if lim := rl.cfg.MaxDataPerDay; lim > 0 && u.bytes+size > lim {
		return &QuotaExceededError{Kind: "data", Limit: lim, Used: u.bytes, Resets: resets}
	}

	u.minute++
	u.hour++
	u.day++
	u.bytes += size
	return nil
}

func (u *clientUsage) roll(now time.Time) {
	if now.Sub(u.minuteStart) >= time.Minute {
		u.minuteStart, u.minute = now, 0
	}
	if now.Sub(u.hourStart) >= time.Hour {
		u.hourStart, u.hour = now, 0
	}
	if day := startOfDay(now); day.After(u.dayStart) {
		u.dayStart, u.day, u.bytes = day, 0, 0
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Usage returns the counters for client.
func (rl *RateLimiter) Usage(client string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	u := rl.clients[client]
	if u == nil {
		return Usage{}
	}
	return Usage{Minute: u.minute, Hour: u.hour, Day: u.day, Bytes: u.bytes}
}

// RateLimitError is returned when a per-minute or per-hour limit is hit.
type RateLimitError struct {
	Window     string // "minute" or "hour"
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests per %s, retry after %v", e.Limit, e.Window, e.RetryAfter.Round(time.Second))
}

// QuotaExceededError is returned when a daily quota is used up.
type QuotaExceededError struct {
	Kind   string // "requests" or "data"
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily %s quota exceeded (used %d of %d, resets %s)",
		e.Kind, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
