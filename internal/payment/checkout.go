package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/david-andreasson/novareport/pkg/logger"
)

// Phase is the step a purchase attempt is in.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSelecting
	PhasePending
	PhasePolling
	PhaseConfirmed
	PhaseExpired
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSelecting:
		return "selecting"
	case PhasePending:
		return "pending"
	case PhasePolling:
		return "polling"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseExpired:
		return "expired"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is a snapshot of the current purchase attempt.
type State struct {
	Phase   Phase    `json:"phase"`
	Plan    *Plan    `json:"plan,omitempty"`
	Method  Method   `json:"method,omitempty"`
	Invoice *Invoice `json:"invoice,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Checkout drives one purchase attempt at a time through
// idle → selecting → pending → polling → confirmed | expired | error.
// Selecting a plan or resetting cancels whatever attempt came before.
type Checkout struct {
	// Gateways maps each supported method to its backend.
	Gateways map[Method]Gateway
	// NewPoller builds the poller for a session. Nil uses NewPoller.
	NewPoller func(StatusFetcher) *Poller
	// Refresh is called once after a confirmed payment, typically to
	// reload the subscription.
	Refresh func(ctx context.Context) error
	// OnChange observes every state transition. It is called with the
	// checkout lock held and must not call back into the Checkout.
	OnChange func(State)
	Logger   logger.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	cancel     context.CancelFunc
}

// State returns a copy of the current state.
func (c *Checkout) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Checkout) log() logger.Logger {
	if c.Logger == nil {
		return logger.Nop()
	}
	return c.Logger
}

// setLocked replaces the state and notifies the observer. c.mu must be held.
func (c *Checkout) setLocked(s State) {
	c.state = s
	if c.OnChange != nil {
		c.OnChange(s)
	}
}

// resetLocked cancels any running session and starts a new generation.
// c.mu must be held.
func (c *Checkout) resetLocked() uint64 {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	return c.generation
}

// SelectPlan discards the previous attempt and creates a payment for plan
// using method.
func (c *Checkout) SelectPlan(ctx context.Context, plan Plan, method Method) (*Invoice, error) {
	gw, ok := c.Gateways[method]
	if !ok {
		return nil, fmt.Errorf("payment method %q is not available", method)
	}

	c.mu.Lock()
	gen := c.resetLocked()
	c.setLocked(State{Phase: PhaseSelecting, Plan: &plan, Method: method})
	c.mu.Unlock()

	inv, err := gw.CreatePayment(ctx, plan)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil, ErrSuperseded
	}
	if err != nil {
		c.setLocked(State{Phase: PhaseError, Plan: &plan, Method: method, Message: err.Error()})
		return nil, fmt.Errorf("creating payment: %w", err)
	}
	if inv.Method == "" {
		inv.Method = method
	}
	c.log().Infow("payment created", "paymentId", inv.PaymentID, "plan", plan.Name, "method", string(method))
	c.setLocked(State{Phase: PhasePending, Plan: &plan, Method: method, Invoice: inv})
	return inv, nil
}

// Await polls the pending payment until a terminal outcome. Only one
// session runs per purchase attempt; a second concurrent call returns
// ErrAlreadyPolling. A cancelled session returns the attempt to pending so
// it can be awaited again.
func (c *Checkout) Await(ctx context.Context) (Result, error) {
	c.mu.Lock()
	switch c.state.Phase {
	case PhasePolling:
		c.mu.Unlock()
		return Result{}, ErrAlreadyPolling
	case PhasePending:
	default:
		c.mu.Unlock()
		return Result{}, ErrNoPayment
	}
	pending := c.state
	gw := c.Gateways[pending.Method]
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	gen := c.generation
	polling := pending
	polling.Phase = PhasePolling
	c.setLocked(polling)
	c.mu.Unlock()

	newPoller := c.NewPoller
	if newPoller == nil {
		newPoller = func(f StatusFetcher) *Poller { return NewPoller(f, c.log().Named("poller")) }
	}
	res := newPoller(gw).Poll(sessionCtx, pending.Invoice.PaymentID)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return res, ErrSuperseded
	}
	c.cancel = nil
	next := pending
	switch res.Outcome {
	case OutcomeConfirmed:
		next.Phase = PhaseConfirmed
		next.Message = ConfirmedMessage
	case OutcomeFailed:
		next.Phase = PhaseError
		next.Message = res.Message
	case OutcomeExpired:
		next.Phase = PhaseExpired
		next.Message = res.Message
	case OutcomeCancelled:
		next.Phase = PhasePending
	}
	c.setLocked(next)
	c.mu.Unlock()

	if res.Outcome == OutcomeConfirmed && c.Refresh != nil {
		if err := c.Refresh(ctx); err != nil {
			c.log().Warnw("refresh after confirmed payment failed", "error", err)
		}
	}
	return res, nil
}

// Reset cancels any running session and returns to idle.
func (c *Checkout) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.setLocked(State{Phase: PhaseIdle})
}
