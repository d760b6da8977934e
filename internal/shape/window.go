package shape

// Window is a fixed-size ring of the most recent shaped values for one
// axis, with a running sum so the moving average is O(1) per sample.
type Window struct {
	vals []float64
	sum  float64
	next int
	n    int
}

// NewWindow returns a window averaging the last size samples. Size is
// clamped to at least 1 (a window of 1 is pass-through).
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{vals: make([]float64, size)}
}

// Push adds v and returns the mean of the values currently held. Until
// the window fills, the mean is over the samples seen so far.
func (w *Window) Push(v float64) float64 {
	if w.n == len(w.vals) {
		w.sum -= w.vals[w.next]
	} else {
		w.n++
	}
	w.vals[w.next] = v
	w.sum += v
	w.next = (w.next + 1) % len(w.vals)
	return w.sum / float64(w.n)
}

// Mean returns the current average without adding a sample. Zero when
// empty.
func (w *Window) Mean() float64 {
	if w.n == 0 {
		return 0
	}
	return w.sum / float64(w.n)
}

// Reset drops all history. Required after recalibration: carrying
// averaged samples from the old center produces a visible glitch for the
// next few reads.
func (w *Window) Reset() {
	for i := range w.vals {
		w.vals[i] = 0
	}
	w.sum = 0
	w.next = 0
	w.n = 0
}
