package ratelimit

import (
	"sync"
	"time"
)

const (
	window       = time.Minute
	safetyMargin = 500 * time.Millisecond
)

// Limiter admits at most quota calls per trailing one-minute window.
// Acquire blocks until there is headroom; it never rejects.
type Limiter struct {
	mu    sync.Mutex
	quota int
	times []time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func New(quotaPerMinute int) *Limiter {
	if quotaPerMinute <= 0 {
		quotaPerMinute = 1
	}
	return &Limiter{
		quota: quotaPerMinute,
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Acquire blocks until admitting one more call keeps the trailing
// one-minute window at or under the quota, then records the admission.
func (l *Limiter) Acquire() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.times) >= l.quota {
		oldest := l.times[0]
		wait := oldest.Add(window + safetyMargin).Sub(now)
		if wait > 0 {
			l.sleep(wait)
			l.prune(l.now())
		}
	}

	l.times = append(l.times, l.now())
}

// Reset drops all tracked admissions. Called after the backend reports a
// quota error so the next window starts clean instead of compounding
// waits against entries the backend already counted.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.times = l.times[:0]
}

// CurrentCount reports how many admissions sit in the trailing window.
func (l *Limiter) CurrentCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.times)
}

func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(l.times) && l.times[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.times = append(l.times[:0], l.times[i:]...)
	}
}
