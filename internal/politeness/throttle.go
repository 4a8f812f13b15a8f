package politeness

import (
	"context"
	"time"
)

// DefaultLatencyFactor scales the last response latency into the next delay.
const DefaultLatencyFactor = 0.5

// pauseController abstracts how the guard waits between requests.
type pauseController interface {
	Pause(ctx context.Context, delay time.Duration)
}

type timerPauseController struct{}

func (p *timerPauseController) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// NextDelay returns max(minDelay, latency*factor).
func NextDelay(minDelay, latency time.Duration, factor float64) time.Duration {
	adaptive := time.Duration(float64(latency) * factor)
	if adaptive > minDelay {
		return adaptive
	}
	return minDelay
}
