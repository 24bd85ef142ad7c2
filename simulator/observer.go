package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/doorbridge/core/door"
	"github.com/kilianp07/doorbridge/core/stats"
)

// StatusObserver consumes the status stream during a soak run and keeps
// per-payload counts plus the travel durations between a transitional
// status and the settled one that follows it.
type StatusObserver struct {
	mu          sync.Mutex
	counts      map[string]int
	window      *stats.Window
	movingSince time.Time
}

// NewStatusObserver creates an observer sized for long soaks.
func NewStatusObserver(windowSize int) *StatusObserver {
	return &StatusObserver{
		counts: map[string]int{},
		window: stats.NewWindow(windowSize),
	}
}

// Observe records one status payload.
func (o *StatusObserver) Observe(payload string, at time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[payload]++
	st, ok := door.ParseState(payload)
	if !ok {
		return
	}
	if st.Moving() {
		o.movingSince = at
		return
	}
	if !o.movingSince.IsZero() {
		o.window.Add(at.Sub(o.movingSince))
		o.movingSince = time.Time{}
	}
}

// Report summarizes the run.
type Report struct {
	Counts map[string]int
	Travel stats.Summary
}

// Report returns a snapshot of what was observed so far.
func (o *StatusObserver) Report() Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	counts := make(map[string]int, len(o.counts))
	for k, v := range o.counts {
		counts[k] = v
	}
	return Report{Counts: counts, Travel: o.window.Summary()}
}

// String renders the report for the terminal.
func (r Report) String() string {
	keys := make([]string, 0, len(r.Counts))
	for k := range r.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("statuses:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "  %-8s %d\n", k, r.Counts[k])
	}
	fmt.Fprintf(&b, "travel: n=%d mean=%s stddev=%s\n", r.Travel.Count, r.Travel.Mean, r.Travel.StdDev)
	return b.String()
}
