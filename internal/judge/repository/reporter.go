package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codejudge/internal/judge/model"
	"codejudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultReportTimeout = 15 * time.Second

// Reporter forwards verdicts to every sink off the request path.
// Sink failures are logged and never reach the caller.
type Reporter struct {
	sinks   []VerdictSink
	timeout time.Duration
	wg      sync.WaitGroup
	newID   func() string
	now     func() time.Time
}

// NewReporter creates a reporter. Nil sinks are skipped.
func NewReporter(timeout time.Duration, sinks ...VerdictSink) *Reporter {
	if timeout <= 0 {
		timeout = defaultReportTimeout
	}
	kept := make([]VerdictSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	return &Reporter{
		sinks:   kept,
		timeout: timeout,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Report hands record to the sinks in the background and returns at once.
// The request context's values are kept but its cancellation is not.
func (r *Reporter) Report(ctx context.Context, record model.VerdictRecord) {
	if r == nil || len(r.sinks) == 0 {
		return
	}
	if record.ID == "" {
		record.ID = r.newID()
	}
	if record.At.IsZero() {
		record.At = r.now()
	}
	detached := context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(detached, "verdict report panicked",
					zap.String("record_id", record.ID),
					zap.String("panic", fmt.Sprint(rec)),
				)
			}
		}()
		reportCtx, cancel := context.WithTimeout(detached, r.timeout)
		defer cancel()
		r.deliver(reportCtx, record)
	}()
}

func (r *Reporter) deliver(ctx context.Context, record model.VerdictRecord) {
	for _, sink := range r.sinks {
		if err := sink.Save(ctx, record); err != nil {
			logger.Warn(ctx, "verdict sink failed",
				zap.String("sink", sink.Name()),
				zap.String("record_id", record.ID),
				zap.Error(err),
			)
			continue
		}
		logger.Debug(ctx, "verdict delivered",
			zap.String("sink", sink.Name()),
			zap.String("record_id", record.ID),
		)
	}
}

// Wait blocks until every pending report finished.
func (r *Reporter) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}
