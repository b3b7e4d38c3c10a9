// Package state holds the client's application state. Each concern lives
// in its own sub-state and changes only through dispatched actions, so a
// command can observe every transition in one place.
package state

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/david-andreasson/novareport/internal/api"
	"github.com/david-andreasson/novareport/internal/payment"
	"github.com/david-andreasson/novareport/pkg/summary"
)

// ReportPhase is the loading state of the daily report.
type ReportPhase int32

const (
	ReportIdle ReportPhase = iota
	ReportLoading
	ReportSuccess
	ReportError
)

// String returns the string representation of the phase.
func (p ReportPhase) String() string {
	switch p {
	case ReportIdle:
		return "idle"
	case ReportLoading:
		return "loading"
	case ReportSuccess:
		return "success"
	case ReportError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", p)
	}
}

// MarshalJSON implements json.Marshaler.
func (p ReportPhase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *ReportPhase) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*p = ParseReportPhase(str)
	return nil
}

// ParseReportPhase converts a string to ReportPhase.
func ParseReportPhase(s string) ReportPhase {
	switch s {
	case "loading":
		return ReportLoading
	case "success":
		return ReportSuccess
	case "error":
		return ReportError
	default:
		return ReportIdle
	}
}

// AuthState is the signed-in identity.
type AuthState struct {
	Token     string    `json:"-"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// SignedIn reports whether a token is present.
func (a AuthState) SignedIn() bool {
	return a.Token != ""
}

// ProfileState is the loaded user profile.
type ProfileState struct {
	Profile *api.UserProfile `json:"profile,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// SubscriptionState is the loaded subscription.
type SubscriptionState struct {
	Loaded bool                  `json:"loaded"`
	Info   *api.SubscriptionInfo `json:"info,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// HasAccess reports whether the subscription grants access to reports.
func (s SubscriptionState) HasAccess() bool {
	return s.Info != nil && s.Info.HasAccess
}

// ReportState is the daily report and its parsed summary. Report is nil
// after a successful load when nothing has been published yet.
type ReportState struct {
	Phase    ReportPhase       `json:"phase"`
	Report   *api.DailyReport  `json:"report,omitempty"`
	Document *summary.Document `json:"-"`
	Error    string            `json:"error,omitempty"`
}

// State is a snapshot of the whole application.
type State struct {
	Auth         AuthState         `json:"auth"`
	Profile      ProfileState      `json:"profile"`
	Subscription SubscriptionState `json:"subscription"`
	Report       ReportState       `json:"report"`
	Payment      payment.State     `json:"payment"`
}

// Listener observes the state after each dispatched action.
type Listener func(s State, a Action)

// Store serialises actions against the application state.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
}

// NewStore returns a store in its initial state.
func NewStore() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

// Dispatch applies a to the state and then notifies listeners outside the
// lock, so a listener may dispatch further actions.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	a.apply(&s.state)
	snap := s.state
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap, a)
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
