package client

import (
	"context"
	"time"
)

const (
	ProgressTick = 500 * time.Millisecond
	progressCap  = 95
)

// NextProgress advances the cosmetic indicator by one tick. It slows down as
// it climbs and never passes 95 on its own.
func NextProgress(p float64) float64 {
	var step float64
	switch {
	case p >= progressCap:
		return progressCap
	case p < 30:
		step = 5
	case p < 60:
		step = 3
	case p < 85:
		step = 1
	default:
		step = 0.5
	}
	if p+step > progressCap {
		return progressCap
	}
	return p + step
}

// runProgress calls onTick with each new value until ctx ends.
func runProgress(ctx context.Context, interval time.Duration, onTick func(float64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	p := 0.0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p = NextProgress(p)
			onTick(p)
		}
	}
}
