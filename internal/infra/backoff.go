package infra

import (
	"time"
)

const (
	baseBackoff = 1 * time.Second
	maxBackoff  = 60 * time.Second
)

// CalculateBackoff returns the reconnect delay for the given attempt:
// 1s doubling per attempt, capped at 60s.
func CalculateBackoff(retryCount int) time.Duration {
	if retryCount <= 0 {
		return baseBackoff
	}
	if retryCount >= 6 {
		return maxBackoff
	}
	return baseBackoff << retryCount
}
