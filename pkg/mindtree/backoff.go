package mindtree

import "time"

// Backoff yields exponentially growing delays between Floor and Cap.
// Not safe for concurrent use; each push run owns one.
type Backoff struct {
	Floor time.Duration
	Cap   time.Duration
	cur   time.Duration
}

func NewBackoff(floor, ceiling time.Duration) *Backoff {
	if ceiling < floor {
		ceiling = floor
	}
	return &Backoff{Floor: floor, Cap: ceiling, cur: floor}
}

// Next returns the delay to wait now and doubles the following one.
func (b *Backoff) Next() time.Duration {
	if b.cur < b.Floor {
		b.cur = b.Floor
	}
	d := b.cur
	b.cur = min(d*2, b.Cap)
	return d
}

// Reset brings the next delay back to Floor.
func (b *Backoff) Reset() {
	b.cur = b.Floor
}
