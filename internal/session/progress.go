package session

import (
	"context"
	"math/rand/v2"
	"time"
)

// Progress timing.
const (
	TickInterval = 400 * time.Millisecond
	SettleDelay  = 500 * time.Millisecond
	ProgressCap  = 95.0
)

// NextProgress advances simulated progress by one tick. r is a random
// number in [0,1). Progress slows down as it climbs and never passes
// ProgressCap.
func NextProgress(p, r float64) float64 {
	if p >= ProgressCap {
		return ProgressCap
	}
	var inc float64
	switch {
	case p < 50:
		inc = r * 5
	case p < 80:
		inc = r * 3
	default:
		inc = r * 1.5
	}
	return min(p+inc, ProgressCap)
}

// Simulator ticks simulated progress while a request is in flight.
type Simulator struct {
	Interval time.Duration
	Rand     func() float64
}

// DefaultSimulator ticks every TickInterval with math/rand.
func DefaultSimulator() Simulator {
	return Simulator{Interval: TickInterval, Rand: rand.Float64}
}

// Run calls onTick with each new value until ctx is done or the cap is
// reached. It blocks; run it in its own goroutine.
func (s Simulator) Run(ctx context.Context, onTick func(float64)) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	p := 0.0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p = NextProgress(p, s.Rand())
			onTick(p)
			if p >= ProgressCap {
				return
			}
		}
	}
}
