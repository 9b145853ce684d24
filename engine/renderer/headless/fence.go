package headless

import (
	"context"
	"time"
)

/**
 * @brief Simulates a GPU completion fence. It signals from its own goroutine
 * after the configured latency, like a queue finishing submitted work.
 */
type HeadlessFence struct {
	signaled chan struct{}
}

func NewFence(latency time.Duration) *HeadlessFence {
	fence := &HeadlessFence{signaled: make(chan struct{})}
	go func() {
		if latency > 0 {
			time.Sleep(latency)
		}
		close(fence.signaled)
	}()
	return fence
}

/** @brief Blocks until the fence signals or ctx is done. */
func (hf *HeadlessFence) FenceWait(ctx context.Context) error {
	select {
	case <-hf.signaled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (hf *HeadlessFence) IsSignaled() bool {
	select {
	case <-hf.signaled:
		return true
	default:
		return false
	}
}
