package payment

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/david-andreasson/novareport/pkg/logger"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 120
)

// Outcome is the terminal result of a poll session.
type Outcome int

const (
	OutcomeConfirmed Outcome = iota
	OutcomeFailed
	OutcomeExpired
	// OutcomeCancelled means the session's context ended first. It is not
	// reported to the user as a failure.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeFailed:
		return "failed"
	case OutcomeExpired:
		return "expired"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result describes how a poll session ended.
type Result struct {
	Outcome  Outcome
	Attempts int    // status queries issued
	Message  string // user-facing text; empty for confirmed and cancelled
}

// Timer produces the wait between attempts. It matches retry.Timer so
// tests can substitute a clock that fires immediately.
type Timer interface {
	After(time.Duration) <-chan time.Time
}

type realTimer struct{}

func (realTimer) After(d time.Duration) <-chan time.Time { return time.After(d) }

var errPending = errors.New("payment pending")

// Poller polls a payment's status until it is confirmed or failed, or until
// MaxAttempts queries have been made. Every attempt waits Interval first.
type Poller struct {
	Fetcher     StatusFetcher
	Interval    time.Duration
	MaxAttempts int
	Timer       Timer
	Logger      logger.Logger
}

// NewPoller returns a Poller with the default interval and attempt budget.
func NewPoller(f StatusFetcher, lggr logger.Logger) *Poller {
	return &Poller{
		Fetcher:     f,
		Interval:    DefaultPollInterval,
		MaxAttempts: DefaultMaxAttempts,
		Timer:       realTimer{},
		Logger:      lggr,
	}
}

// Poll runs one session for paymentID. Transient fetch errors and PENDING
// both consume an attempt and are never surfaced. Poll always returns
// exactly one terminal Result.
func (p *Poller) Poll(ctx context.Context, paymentID string) Result {
	timer := p.Timer
	if timer == nil {
		timer = realTimer{}
	}
	lggr := p.Logger
	if lggr == nil {
		lggr = logger.Nop()
	}
	lggr = lggr.With("paymentId", paymentID)

	attempts := 0
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	// retry-go only delays between attempts; the first wait happens here.
	select {
	case <-timer.After(p.Interval):
	case <-ctx.Done():
		lggr.Debugw("poll session cancelled before first attempt")
		return Result{Outcome: OutcomeCancelled}
	}

	err := retry.Do(
		func() error {
			attempts++
			status, err := p.Fetcher.FetchStatus(ctx, paymentID)
			if err != nil {
				return err
			}
			switch status {
			case StatusConfirmed:
				return nil
			case StatusFailed:
				return retry.Unrecoverable(ErrPaymentFailed)
			default:
				return errPending
			}
		},
		retry.Context(ctx),
		retry.Attempts(uint(maxAttempts)),
		retry.Delay(p.Interval),
		retry.DelayType(retry.FixedDelay),
		retry.WithTimer(timer),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if errors.Is(err, errPending) {
				lggr.Debugw("payment still pending", "attempt", n+1)
				return
			}
			lggr.Debugw("status query failed", "attempt", n+1, "error", err)
		}),
	)

	res := Result{Attempts: attempts}
	switch {
	case err == nil:
		res.Outcome = OutcomeConfirmed
	case errors.Is(err, ErrPaymentFailed):
		res.Outcome = OutcomeFailed
		res.Message = FailedMessage
	case ctx.Err() != nil:
		res.Outcome = OutcomeCancelled
	default:
		res.Outcome = OutcomeExpired
		res.Message = ExpiredMessage
	}
	lggr.Infow("poll session ended", "outcome", res.Outcome.String(), "attempts", attempts)
	return res
}
