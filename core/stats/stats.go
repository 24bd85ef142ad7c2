// Package stats keeps a sliding window of observed door travel durations
// and computes summary statistics over it.
package stats

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the durations currently held in a window.
type Summary struct {
	Count  int
	Mean   time.Duration
	StdDev time.Duration
	Min    time.Duration
	Max    time.Duration
}

// Window retains the most recent travel durations up to a fixed size.
// Safe for concurrent use.
type Window struct {
	mu      sync.Mutex
	size    int
	seconds []float64
}

// NewWindow returns a window holding up to size samples. A non-positive
// size falls back to 32.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = 32
	}
	return &Window{size: size}
}

// Add records one observed travel duration, evicting the oldest sample when
// the window is full.
func (w *Window) Add(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.seconds) == w.size {
		w.seconds = w.seconds[1:]
	}
	w.seconds = append(w.seconds, d.Seconds())
}

// Summary computes statistics over the current samples. An empty window
// yields a zero Summary.
func (w *Window) Summary() Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.seconds) == 0 {
		return Summary{}
	}
	s := Summary{
		Count: len(w.seconds),
		Mean:  secondsToDuration(stat.Mean(w.seconds, nil)),
		Min:   secondsToDuration(w.seconds[0]),
		Max:   secondsToDuration(w.seconds[0]),
	}
	if len(w.seconds) > 1 {
		s.StdDev = secondsToDuration(stat.StdDev(w.seconds, nil))
	}
	for _, v := range w.seconds {
		if d := secondsToDuration(v); d < s.Min {
			s.Min = d
		} else if d > s.Max {
			s.Max = d
		}
	}
	return s
}

// Outlier reports whether d deviates from the window mean by more than k
// standard deviations. Windows with fewer than three samples never flag.
func (w *Window) Outlier(d time.Duration, k float64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.seconds) < 3 || k <= 0 {
		return false
	}
	mean := stat.Mean(w.seconds, nil)
	sd := stat.StdDev(w.seconds, nil)
	if sd == 0 {
		return d.Seconds() != mean
	}
	z := (d.Seconds() - mean) / sd
	if z < 0 {
		z = -z
	}
	return z > k
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
