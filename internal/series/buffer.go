package series

import "sort"

// Sample is one point in a price series.
type Sample struct {
	// Time is milliseconds since the unix epoch.
	Time int64
	// Price is always strictly positive.
	Price float64
	// Simulated marks points produced by a simulation rather than the market.
	Simulated bool
}

// Buffer is an append-only, capacity-bounded price series for a single asset.
// Samples are kept in strictly increasing time order; when the capacity is
// exceeded the oldest samples are evicted first.
type Buffer struct {
	samples []Sample
	cap     int
}

// NewBuffer creates a Buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{
		samples: make([]Sample, 0, capacity),
		cap:     capacity,
	}
}

// Append adds a sample to the buffer. It returns false without mutating the
// buffer when the sample would violate the time ordering invariant.
func (b *Buffer) Append(s Sample) bool {
	if n := len(b.samples); n > 0 && s.Time <= b.samples[n-1].Time {
		return false
	}
	b.samples = append(b.samples, s)
	if len(b.samples) > b.cap {
		b.samples = b.samples[len(b.samples)-b.cap:]
	}
	return true
}

// Replace discards the current contents and seeds the buffer from history.
// Out-of-order samples in the input are dropped rather than reordered, and
// only the newest cap samples are kept.
func (b *Buffer) Replace(samples []Sample) {
	b.samples = b.samples[:0]
	for _, s := range samples {
		b.Append(s)
	}
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return b.cap
}

// Last returns the most recent sample, if any.
func (b *Buffer) Last() (Sample, bool) {
	if len(b.samples) == 0 {
		return Sample{}, false
	}
	return b.samples[len(b.samples)-1], true
}

// First returns the oldest sample, if any.
func (b *Buffer) First() (Sample, bool) {
	if len(b.samples) == 0 {
		return Sample{}, false
	}
	return b.samples[0], true
}

// LastN returns up to n of the most recent samples in chronological order.
// The result is a copy, not a view into the buffer.
func (b *Buffer) LastN(n int) []Sample {
	if n <= 0 || len(b.samples) == 0 {
		return nil
	}
	if n > len(b.samples) {
		n = len(b.samples)
	}
	out := make([]Sample, n)
	copy(out, b.samples[len(b.samples)-n:])
	return out
}

// Between returns a copy of the contiguous run of samples with
// from <= Time <= to, in chronological order.
func (b *Buffer) Between(from, to int64) []Sample {
	if len(b.samples) == 0 || from > to {
		return nil
	}
	lo := sort.Search(len(b.samples), func(i int) bool {
		return b.samples[i].Time >= from
	})
	hi := sort.Search(len(b.samples), func(i int) bool {
		return b.samples[i].Time > to
	})
	if lo >= hi {
		return nil
	}
	out := make([]Sample, hi-lo)
	copy(out, b.samples[lo:hi])
	return out
}

// Samples returns a copy of the whole buffer in chronological order.
func (b *Buffer) Samples() []Sample {
	out := make([]Sample, len(b.samples))
	copy(out, b.samples)
	return out
}
