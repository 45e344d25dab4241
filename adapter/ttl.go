package adapter

import "time"

// TTL expresses how long an entry should live. The zero value means "use
// the adapter's default TTL". An explicitly supplied value of zero or less
// means "expire immediately": Set turns into Delete for such TTLs, never
// "store forever" (backends disagree on what a zero TTL stores, so the
// contract pins it down). No expiration is only reachable via SetForever.
type TTL struct {
	d   time.Duration
	set bool
}

// DefaultTTL asks the adapter to apply its configured default.
// Equivalent to the zero TTL value.
func DefaultTTL() TTL { return TTL{} }

// Seconds sets an explicit lifetime of n seconds. n <= 0 expires the entry
// immediately.
func Seconds(n int64) TTL {
	return TTL{d: time.Duration(n) * time.Second, set: true}
}

// Duration sets an explicit lifetime. d <= 0 expires the entry immediately.
func Duration(d time.Duration) TTL { return TTL{d: d, set: true} }

// Interval sets a calendar-correct lifetime: the number of seconds between
// now and now shifted by the given calendar amounts. Computed as
// (now + interval) - now so DST transitions are not baked in twice.
func Interval(years, months, days int) TTL {
	now := time.Now()
	return TTL{d: now.AddDate(years, months, days).Sub(now), set: true}
}

// Until sets the lifetime to the span between now and t.
func Until(t time.Time) TTL { return TTL{d: time.Until(t), set: true} }

// IsDefault reports whether the adapter default should be applied.
func (t TTL) IsDefault() bool { return !t.set }

// Resolve returns the concrete lifetime, substituting def when no explicit
// value was supplied.
func (t TTL) Resolve(def time.Duration) time.Duration {
	if !t.set {
		return def
	}
	return t.d
}
