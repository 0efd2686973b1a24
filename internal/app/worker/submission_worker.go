package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"codeduel/internal/platform/logging"

	log "github.com/sirupsen/logrus"
)

const (
	popTimeout   = 5 * time.Second
	errorBackoff = time.Second
)

// Judger judges one queued submission end to end.
type Judger interface {
	JudgeQueued(ctx context.Context, submissionID string) error
}

// SubmissionWorker drains the submission queue with a fixed number of
// goroutines. Failed submissions are not requeued; they end as Judge Failed.
type SubmissionWorker struct {
	queue       *Queue
	judger      Judger
	concurrency int
	log         *log.Entry
	wg          sync.WaitGroup
}

func NewSubmissionWorker(queue *Queue, judger Judger, concurrency int) *SubmissionWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SubmissionWorker{
		queue:       queue,
		judger:      judger,
		concurrency: concurrency,
		log:         logging.Component("submission-worker"),
	}
}

// Start launches the consumers; they stop once ctx is cancelled. Wait blocks
// until the in-flight submissions are finished.
func (w *SubmissionWorker) Start(ctx context.Context) {
	w.log.WithField("concurrency", w.concurrency).Info("submission worker started")
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.loop(ctx, id)
		}(i)
	}
}

func (w *SubmissionWorker) Wait() {
	w.wg.Wait()
	w.log.Info("submission worker stopped")
}

func (w *SubmissionWorker) loop(ctx context.Context, id int) {
	entry := w.log.WithField("consumer", id)
	for {
		if ctx.Err() != nil {
			return
		}
		submissionID, err := w.queue.Dequeue(ctx, popTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			entry.WithError(err).Error("failed to pop from submission queue")
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorBackoff):
			}
			continue
		}
		if submissionID == "" {
			continue
		}
		w.process(ctx, entry, submissionID)
	}
}

// process finishes a submission even when shutdown starts mid-judging.
func (w *SubmissionWorker) process(ctx context.Context, entry *log.Entry, submissionID string) {
	entry = entry.WithField("submission_id", submissionID)
	entry.Debug("judging queued submission")
	if err := w.judger.JudgeQueued(context.WithoutCancel(ctx), submissionID); err != nil {
		entry.WithError(err).Error("queued submission failed")
	}
}
