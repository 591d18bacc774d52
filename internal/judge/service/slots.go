package service

import (
	"context"
	"time"

	appErr "codejudge/pkg/errors"
)

const defaultSlotWait = 2 * time.Second

// slots bounds concurrent executions. A nil *slots never blocks.
type slots struct {
	sem  chan struct{}
	wait time.Duration
}

func newSlots(size int, wait time.Duration) *slots {
	if size <= 0 {
		return nil
	}
	if wait <= 0 {
		wait = defaultSlotWait
	}
	return &slots{sem: make(chan struct{}, size), wait: wait}
}

func (s *slots) acquire(ctx context.Context) error {
	if s == nil {
		return nil
	}
	timer := time.NewTimer(s.wait)
	defer timer.Stop()
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return appErr.New(appErr.ServiceUnavailable).WithMessage("judge is busy, try again later")
	}
}

func (s *slots) release() {
	if s == nil {
		return
	}
	select {
	case <-s.sem:
	default:
	}
}
