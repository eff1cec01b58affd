package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"piggyback/internal/amqp"
	"piggyback/internal/calendar"
	apperrors "piggyback/internal/errors"
	"piggyback/internal/logger"
	"piggyback/internal/models"
	"piggyback/internal/repository"
	"piggyback/internal/services"
	"piggyback/internal/testutil"
)

func init() {
	logger.Init("test")
}

type fakeMatcher struct {
	services.MatcherServicer

	mu       sync.Mutex
	calls    []services.MatchInput
	outcome  func(in services.MatchInput) (*services.MatchResult, error)
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeMatcher) MatchTransaction(ctx context.Context, in services.MatchInput) (*services.MatchResult, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if n <= prev || f.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected a deadline on the store context")
	}
	return f.outcome(in)
}

func created(services.MatchInput) (*services.MatchResult, error) {
	return &services.MatchResult{
		Outcome:     services.MatchOutcomeCreated,
		Created:     true,
		NextDueDate: calendar.MustParseDate("2026-02-01"),
		Match:       &models.ExpenseMatch{},
	}, nil
}

func TestHandle(t *testing.T) {
	msg := amqp.NewMatchRequestMessage("p1", "t1", "e1", "alice", 0.8)

	t.Run("success_passes_fields_through", func(t *testing.T) {
		m := &fakeMatcher{outcome: created}
		r := New(m, time.Second, 1)

		if err := r.Handle(context.Background(), msg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(m.calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(m.calls))
		}
		got := m.calls[0]
		if got.PartnershipID != "p1" || got.TransactionID != "t1" || got.ExpenseID != "e1" || got.Actor != "alice" || got.Confidence != 0.8 {
			t.Errorf("unexpected input %+v", got)
		}
	})

	t.Run("store_unavailable_is_retried", func(t *testing.T) {
		m := &fakeMatcher{outcome: func(services.MatchInput) (*services.MatchResult, error) {
			return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, errors.New("connection reset"))
		}}
		err := New(m, time.Second, 1).Handle(context.Background(), msg)
		if err == nil {
			t.Fatal("expected error")
		}
		if errors.Is(err, amqp.ErrDrop) {
			t.Error("store outage should not drop the message")
		}
	})

	t.Run("deadline_is_retried", func(t *testing.T) {
		m := &fakeMatcher{outcome: func(services.MatchInput) (*services.MatchResult, error) {
			return nil, fmt.Errorf("query: %w", context.DeadlineExceeded)
		}}
		err := New(m, time.Second, 1).Handle(context.Background(), msg)
		if err == nil || errors.Is(err, amqp.ErrDrop) {
			t.Errorf("expected retryable error, got %v", err)
		}
	})

	t.Run("permanent_errors_are_dropped", func(t *testing.T) {
		for _, sentinel := range []*apperrors.AppError{
			apperrors.ErrExpenseNotFound,
			apperrors.ErrTransactionNotFound,
			apperrors.ErrExpenseInactive,
			apperrors.ErrInvalidInput,
		} {
			m := &fakeMatcher{outcome: func(services.MatchInput) (*services.MatchResult, error) {
				return nil, sentinel
			}}
			err := New(m, time.Second, 1).Handle(context.Background(), msg)
			if !errors.Is(err, amqp.ErrDrop) {
				t.Errorf("%s: expected drop, got %v", sentinel.Code, err)
			}
			if !errors.Is(err, sentinel) {
				t.Errorf("%s: cause lost in %v", sentinel.Code, err)
			}
		}
	})

	t.Run("malformed_ids_are_dropped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		matcher := services.NewMatcherService(db, services.NewAuditService(db))
		bad := amqp.NewMatchRequestMessage(testutil.NewPartnershipID(), "txn-42", "rent", "alice", 0.8)

		err := New(matcher, time.Second, 1).Handle(context.Background(), bad)
		if !errors.Is(err, amqp.ErrDrop) {
			t.Errorf("expected drop, got %v", err)
		}
		testutil.AssertAppError(t, err, apperrors.ErrInvalidInput.Code)
	})

	t.Run("rejected_data_is_dropped", func(t *testing.T) {
		m := &fakeMatcher{outcome: func(services.MatchInput) (*services.MatchResult, error) {
			cause := errors.Join(repository.ErrInvalidData,
				errors.New(`invalid input syntax for type uuid: "txn-42" (SQLSTATE 22P02)`))
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, cause)
		}}
		err := New(m, time.Second, 1).Handle(context.Background(), msg)
		if !errors.Is(err, amqp.ErrDrop) {
			t.Errorf("expected drop, got %v", err)
		}
	})

	t.Run("already_linked_is_acked", func(t *testing.T) {
		m := &fakeMatcher{outcome: func(services.MatchInput) (*services.MatchResult, error) {
			return &services.MatchResult{Outcome: services.MatchOutcomeAlreadyLinked}, nil
		}}
		if err := New(m, time.Second, 1).Handle(context.Background(), msg); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestMatchBatch(t *testing.T) {
	inputs := make([]services.MatchInput, 0, 20)
	for i := 0; i < 20; i++ {
		inputs = append(inputs, services.MatchInput{
			PartnershipID: "p1",
			TransactionID: fmt.Sprintf("t%d", i),
			ExpenseID:     "e1",
		})
	}

	t.Run("counts_outcomes", func(t *testing.T) {
		m := &fakeMatcher{outcome: func(in services.MatchInput) (*services.MatchResult, error) {
			switch in.TransactionID[len(in.TransactionID)-1] {
			case '0', '1':
				return nil, apperrors.ErrTransactionNotFound
			case '2', '3':
				return &services.MatchResult{Outcome: services.MatchOutcomeExisting}, nil
			case '4':
				return &services.MatchResult{Outcome: services.MatchOutcomeAlreadyLinked}, nil
			default:
				return created(in)
			}
		}}

		summary, err := New(m, time.Second, 4).MatchBatch(context.Background(), inputs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := BatchSummary{Created: 10, Existing: 4, AlreadyLinked: 2, Failed: 4}
		if summary != want {
			t.Errorf("summary = %+v, want %+v", summary, want)
		}
		if len(m.calls) != len(inputs) {
			t.Errorf("expected %d calls, got %d", len(inputs), len(m.calls))
		}
	})

	t.Run("respects_concurrency_limit", func(t *testing.T) {
		m := &fakeMatcher{outcome: func(in services.MatchInput) (*services.MatchResult, error) {
			time.Sleep(5 * time.Millisecond)
			return created(in)
		}}

		if _, err := New(m, time.Second, 3).MatchBatch(context.Background(), inputs); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := m.maxSeen.Load(); got > 3 {
			t.Errorf("saw %d concurrent matches, limit is 3", got)
		}
	})

	t.Run("cancelled_context", func(t *testing.T) {
		m := &fakeMatcher{outcome: created}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		summary, err := New(m, time.Second, 2).MatchBatch(ctx, inputs)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if summary.Created != 0 || len(m.calls) != 0 {
			t.Errorf("expected no work after cancellation, got %+v with %d calls", summary, len(m.calls))
		}
	})

	t.Run("empty_batch", func(t *testing.T) {
		summary, err := New(&fakeMatcher{outcome: created}, time.Second, 2).MatchBatch(context.Background(), nil)
		if err != nil || summary != (BatchSummary{}) {
			t.Errorf("unexpected result %+v, %v", summary, err)
		}
	})
}
