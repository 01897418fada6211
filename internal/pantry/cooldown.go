package pantry

import "time"

// DefaultCooldownWindow is the minimum time between accepting two
// triggers for the same barcode.
const DefaultCooldownWindow = 5 * time.Second

// Cooldown suppresses repeat triggering for a barcode that was just
// processed. Entries are never evicted; they go stale once the window
// has passed. All access happens from the engine's run goroutine.
type Cooldown struct {
	window time.Duration
	seen   map[string]time.Time
}

// NewCooldown creates a Cooldown with the given window. A zero or
// negative window falls back to the default.
func NewCooldown(window time.Duration) *Cooldown {
	if window <= 0 {
		window = DefaultCooldownWindow
	}
	return &Cooldown{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

// ShouldTrigger reports whether a detection of barcode at now should
// start a new scan. When it returns true it records now against the
// barcode; a false result leaves the entry untouched, so the window is
// measured from the last accepted trigger.
func (c *Cooldown) ShouldTrigger(barcode string, now time.Time) bool {
	last, ok := c.seen[barcode]
	if ok && now.Sub(last) < c.window {
		return false
	}
	c.seen[barcode] = now
	return true
}

// Len returns the number of barcodes ever triggered.
func (c *Cooldown) Len() int {
	return len(c.seen)
}
