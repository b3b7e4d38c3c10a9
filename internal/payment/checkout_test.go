package payment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david-andreasson/novareport/pkg/logger"
)

type fakeGateway struct {
	scriptedFetcher
	createErr error
	created   atomic.Int32
}

func (g *fakeGateway) CreatePayment(ctx context.Context, plan Plan) (*Invoice, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	n := g.created.Add(1)
	return &Invoice{
		PaymentID: "pay-" + string(rune('0'+n)),
		Address:   "44AFFq5kSiGBoZ",
		AmountXMR: plan.AmountXMR,
	}, nil
}

// blockingGateway holds every status query until release is closed.
type blockingGateway struct {
	fakeGateway
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *blockingGateway) FetchStatus(ctx context.Context, paymentID string) (Status, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return StatusConfirmed, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newTestCheckout(t *testing.T, gw Gateway) (*Checkout, *[]Phase) {
	var mu sync.Mutex
	var phases []Phase
	c := &Checkout{
		Gateways: map[Method]Gateway{MethodXMR: gw},
		NewPoller: func(f StatusFetcher) *Poller {
			p := NewPoller(f, logger.Test(t))
			p.Timer = &fakeTimer{}
			return p
		},
		OnChange: func(s State) {
			mu.Lock()
			defer mu.Unlock()
			phases = append(phases, s.Phase)
		},
		Logger: logger.Test(t),
	}
	return c, &phases
}

func TestCheckout_ConfirmedFlow(t *testing.T) {
	gw := &fakeGateway{}
	gw.results = append(pending(2), fetchResult{status: StatusConfirmed})
	c, phases := newTestCheckout(t, gw)

	var refreshes atomic.Int32
	c.Refresh = func(context.Context) error {
		refreshes.Add(1)
		return nil
	}

	inv, err := c.SelectPlan(context.Background(), PlanMonthly, MethodXMR)
	require.NoError(t, err)
	assert.Equal(t, MethodXMR, inv.Method)
	assert.Equal(t, 0.01, inv.AmountXMR)

	res, err := c.Await(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
	assert.EqualValues(t, 1, refreshes.Load())
	assert.Equal(t, PhaseConfirmed, c.State().Phase)
	assert.Equal(t, ConfirmedMessage, c.State().Message)
	assert.Equal(t, []Phase{PhaseSelecting, PhasePending, PhasePolling, PhaseConfirmed}, *phases)
}

func TestCheckout_TerminalPhases(t *testing.T) {
	tests := []struct {
		name        string
		results     []fetchResult
		wantPhase   Phase
		wantMessage string
	}{
		{
			name:        "failed payment enters error",
			results:     []fetchResult{{status: StatusFailed}},
			wantPhase:   PhaseError,
			wantMessage: FailedMessage,
		},
		{
			name:        "exhausted budget enters expired",
			results:     pending(1),
			wantPhase:   PhaseExpired,
			wantMessage: ExpiredMessage,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{}
			gw.results = tc.results
			c, _ := newTestCheckout(t, gw)
			refreshed := false
			c.Refresh = func(context.Context) error {
				refreshed = true
				return nil
			}

			_, err := c.SelectPlan(context.Background(), PlanYearly, MethodXMR)
			require.NoError(t, err)
			_, err = c.Await(context.Background())
			require.NoError(t, err)

			st := c.State()
			assert.Equal(t, tc.wantPhase, st.Phase)
			assert.Equal(t, tc.wantMessage, st.Message)
			assert.False(t, refreshed)
		})
	}
}

func TestCheckout_CreateError(t *testing.T) {
	gw := &fakeGateway{createErr: errors.New("Kunde inte skapa betalning")}
	c, _ := newTestCheckout(t, gw)

	_, err := c.SelectPlan(context.Background(), PlanMonthly, MethodXMR)
	require.Error(t, err)

	st := c.State()
	assert.Equal(t, PhaseError, st.Phase)
	assert.Equal(t, "Kunde inte skapa betalning", st.Message)

	_, err = c.Await(context.Background())
	assert.ErrorIs(t, err, ErrNoPayment)
}

func TestCheckout_UnknownMethod(t *testing.T) {
	c, _ := newTestCheckout(t, &fakeGateway{})
	_, err := c.SelectPlan(context.Background(), PlanMonthly, MethodCard)
	assert.Error(t, err)
	assert.Equal(t, PhaseIdle, c.State().Phase)
}

func TestCheckout_SingleSession(t *testing.T) {
	gw := &blockingGateway{entered: make(chan struct{}), release: make(chan struct{})}
	c, _ := newTestCheckout(t, gw)

	var refreshes atomic.Int32
	c.Refresh = func(context.Context) error {
		refreshes.Add(1)
		return nil
	}

	_, err := c.SelectPlan(context.Background(), PlanMonthly, MethodXMR)
	require.NoError(t, err)

	done := make(chan Result, 1)
	go func() {
		res, err := c.Await(context.Background())
		assert.NoError(t, err)
		done <- res
	}()

	select {
	case <-gw.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("poll session did not start")
	}

	_, err = c.Await(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyPolling)
	assert.Equal(t, PhasePolling, c.State().Phase)

	close(gw.release)
	res := <-done
	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.EqualValues(t, 1, refreshes.Load())
}

func TestCheckout_SelectPlanCancelsRunningSession(t *testing.T) {
	gw := &blockingGateway{entered: make(chan struct{}), release: make(chan struct{})}
	c, _ := newTestCheckout(t, gw)

	_, err := c.SelectPlan(context.Background(), PlanMonthly, MethodXMR)
	require.NoError(t, err)

	type awaited struct {
		res Result
		err error
	}
	done := make(chan awaited, 1)
	go func() {
		res, err := c.Await(context.Background())
		done <- awaited{res, err}
	}()
	<-gw.entered

	inv, err := c.SelectPlan(context.Background(), PlanYearly, MethodXMR)
	require.NoError(t, err)

	got := <-done
	assert.ErrorIs(t, got.err, ErrSuperseded)
	assert.Equal(t, OutcomeCancelled, got.res.Outcome)

	st := c.State()
	assert.Equal(t, PhasePending, st.Phase)
	assert.Equal(t, inv.PaymentID, st.Invoice.PaymentID)
	assert.Equal(t, "yearly", st.Plan.Name)
}

func TestCheckout_CallerCancelReturnsToPending(t *testing.T) {
	gw := &blockingGateway{entered: make(chan struct{}), release: make(chan struct{})}
	c, _ := newTestCheckout(t, gw)

	_, err := c.SelectPlan(context.Background(), PlanMonthly, MethodXMR)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-gw.entered
		cancel()
	}()

	res, err := c.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, res.Outcome)
	assert.Equal(t, PhasePending, c.State().Phase)
}

func TestCheckout_Reset(t *testing.T) {
	gw := &fakeGateway{}
	gw.results = pending(1)
	c, _ := newTestCheckout(t, gw)

	_, err := c.SelectPlan(context.Background(), PlanMonthly, MethodXMR)
	require.NoError(t, err)

	c.Reset()
	st := c.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Nil(t, st.Invoice)

	_, err = c.Await(context.Background())
	assert.ErrorIs(t, err, ErrNoPayment)
}

func TestLookupPlanAndMethod(t *testing.T) {
	p, err := LookupPlan("yearly")
	require.NoError(t, err)
	assert.Equal(t, 365, p.Days)
	assert.Equal(t, 0.50, p.AmountXMR)

	_, err = LookupPlan("weekly")
	assert.Error(t, err)

	m, err := ParseMethod("card")
	require.NoError(t, err)
	assert.Equal(t, MethodCard, m)

	_, err = ParseMethod("paypal")
	assert.Error(t, err)
}

func TestPhaseMarshalText(t *testing.T) {
	b, err := PhasePolling.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "polling", string(b))
}
