// Package reconcile drives the matcher from queued match requests and from
// batch files.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"piggyback/internal/amqp"
	apperrors "piggyback/internal/errors"
	"piggyback/internal/logger"
	"piggyback/internal/services"
)

// BatchSummary counts the outcomes of a batch run.
type BatchSummary struct {
	Created       int `json:"created"`
	Existing      int `json:"existing"`
	AlreadyLinked int `json:"already_linked"`
	Failed        int `json:"failed"`
}

// Reconciler applies match requests through a MatcherServicer.
type Reconciler struct {
	matcher     services.MatcherServicer
	timeout     time.Duration
	concurrency int
}

// New creates a Reconciler. Each request gets its own timeout; batches run
// at most concurrency requests at once.
func New(matcher services.MatcherServicer, timeout time.Duration, concurrency int) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{matcher: matcher, timeout: timeout, concurrency: concurrency}
}

// Handle processes one queued match request. Errors that a retry can fix are
// returned as is so the message is requeued; everything else is wrapped in
// amqp.ErrDrop.
func (r *Reconciler) Handle(ctx context.Context, msg *amqp.MatchRequestMessage) error {
	in := services.MatchInput{
		PartnershipID: msg.PartnershipID,
		TransactionID: msg.TransactionID,
		ExpenseID:     msg.ExpenseID,
		Actor:         msg.Actor,
		Confidence:    msg.Confidence,
	}

	res, err := r.matchOne(ctx, in)
	if err != nil {
		if isRetryable(err) {
			return err
		}
		return fmt.Errorf("%w: %w", amqp.ErrDrop, err)
	}

	logger.Named("reconcile").Infow("match request applied",
		"transaction_id", in.TransactionID,
		"expense_id", in.ExpenseID,
		"outcome", res.Outcome,
		"next_due_date", res.NextDueDate.String(),
	)
	return nil
}

// MatchBatch applies every input and reports outcome counts. Individual
// failures are counted, not returned; the error is non-nil only when ctx is
// cancelled before the batch finishes.
func (r *Reconciler) MatchBatch(ctx context.Context, inputs []services.MatchInput) (BatchSummary, error) {
	log := logger.Named("reconcile")

	var (
		mu      sync.Mutex
		summary BatchSummary
	)

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for _, in := range inputs {
		in := in
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := r.matchOne(ctx, in)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				log.Warnw("batch match failed",
					"transaction_id", in.TransactionID,
					"expense_id", in.ExpenseID,
					"error", err,
				)
				return nil
			}
			switch res.Outcome {
			case services.MatchOutcomeCreated:
				summary.Created++
			case services.MatchOutcomeExisting:
				summary.Existing++
			case services.MatchOutcomeAlreadyLinked:
				summary.AlreadyLinked++
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (r *Reconciler) matchOne(ctx context.Context, in services.MatchInput) (*services.MatchResult, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.matcher.MatchTransaction(ctx, in)
}

func isRetryable(err error) bool {
	return errors.Is(err, apperrors.ErrStoreUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
