package worker

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	backoffBase = 2 * time.Second
	backoffCap  = 5 * time.Minute
)

// ExponentialBackoff: attempt 0 => 2s, 1 => 4s, 2 => 8s ... capped at 5m,
// plus up to 250ms of jitter.
func ExponentialBackoff(attempt int) time.Duration {
	return backoffDelay(attempt) + time.Duration(rand.IntN(250))*time.Millisecond
}

func backoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := time.Duration(float64(backoffBase) * math.Pow(2, float64(attempt)))
	if delay > backoffCap || delay <= 0 {
		delay = backoffCap
	}
	return delay
}
