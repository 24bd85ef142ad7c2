package main

import (
	"math/rand"
	"time"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// PressStrategy picks the payload for the i-th press.
type PressStrategy interface {
	Next(i int) string
}

// AlternatingPress cycles OPEN, CLOSE, OPEN, ...
type AlternatingPress struct{}

// Next implements PressStrategy.
func (AlternatingPress) Next(i int) string {
	if i%2 == 0 {
		return "OPEN"
	}
	return "CLOSE"
}

// RandomPress picks OPEN or CLOSE at random.
type RandomPress struct{}

// Next implements PressStrategy.
func (RandomPress) Next(int) string {
	if rng.Intn(2) == 0 {
		return "OPEN"
	}
	return "CLOSE"
}

// junkPayloads are near-misses the bridge must ignore: wrong case,
// trailing space, empty, and plain garbage.
var junkPayloads = []string{"open", "close", "OPEN ", " CLOSE", "", "TOGGLE", "stop", "{}"}

// ChaosPress mixes invalid payloads into a random press stream with the
// configured rate.
type ChaosPress struct {
	InvalidRate float64
}

// Next implements PressStrategy.
func (c ChaosPress) Next(i int) string {
	if rng.Float64() < c.InvalidRate {
		return junkPayloads[rng.Intn(len(junkPayloads))]
	}
	return RandomPress{}.Next(i)
}

func newStrategy(cfg Config) PressStrategy {
	switch cfg.Strategy {
	case "random":
		return RandomPress{}
	case "chaos":
		return ChaosPress{InvalidRate: cfg.ChaosRate}
	default:
		return AlternatingPress{}
	}
}
