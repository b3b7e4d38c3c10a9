package state

import (
	"time"

	"github.com/david-andreasson/novareport/internal/api"
	"github.com/david-andreasson/novareport/internal/payment"
	"github.com/david-andreasson/novareport/pkg/summary"
)

// Action is a discrete state change. The set of actions is closed.
type Action interface {
	Name() string
	apply(*State)
}

// LoggedIn records a new session. Any state belonging to a previous user
// is discarded.
type LoggedIn struct {
	Token     string
	Email     string
	Role      string
	ExpiresAt time.Time
}

func (LoggedIn) Name() string { return "logged-in" }

func (a LoggedIn) apply(s *State) {
	*s = State{Auth: AuthState{Token: a.Token, Email: a.Email, Role: a.Role, ExpiresAt: a.ExpiresAt}}
}

// LoggedOut clears every user-scoped sub-state.
type LoggedOut struct{}

func (LoggedOut) Name() string { return "logged-out" }

func (LoggedOut) apply(s *State) {
	*s = State{}
}

// ProfileLoaded stores the signed-in user's profile.
type ProfileLoaded struct {
	Profile *api.UserProfile
}

func (ProfileLoaded) Name() string { return "profile-loaded" }

func (a ProfileLoaded) apply(s *State) {
	s.Profile = ProfileState{Profile: a.Profile}
	if a.Profile != nil && s.Auth.Email == "" {
		s.Auth.Email = a.Profile.Email
	}
}

// ProfileFailed records a profile load error.
type ProfileFailed struct {
	Err error
}

func (ProfileFailed) Name() string { return "profile-failed" }

func (a ProfileFailed) apply(s *State) {
	s.Profile = ProfileState{Error: a.Err.Error()}
}

// SubscriptionLoaded stores the subscription.
type SubscriptionLoaded struct {
	Info *api.SubscriptionInfo
}

func (SubscriptionLoaded) Name() string { return "subscription-loaded" }

func (a SubscriptionLoaded) apply(s *State) {
	s.Subscription = SubscriptionState{Loaded: true, Info: a.Info}
}

// SubscriptionFailed records a subscription load error.
type SubscriptionFailed struct {
	Err error
}

func (SubscriptionFailed) Name() string { return "subscription-failed" }

func (a SubscriptionFailed) apply(s *State) {
	s.Subscription = SubscriptionState{Loaded: true, Error: a.Err.Error()}
}

// ReportRequested starts loading the report. The previous report stays
// visible until the new one arrives.
type ReportRequested struct{}

func (ReportRequested) Name() string { return "report-requested" }

func (ReportRequested) apply(s *State) {
	s.Report.Phase = ReportLoading
	s.Report.Error = ""
}

// ReportLoaded stores the report and its parsed summary. A nil report
// means none has been published.
type ReportLoaded struct {
	Report *api.DailyReport
}

func (ReportLoaded) Name() string { return "report-loaded" }

func (a ReportLoaded) apply(s *State) {
	rs := ReportState{Phase: ReportSuccess, Report: a.Report}
	if a.Report != nil {
		doc := summary.Parse(a.Report.Summary)
		rs.Document = &doc
	}
	s.Report = rs
}

// ReportFailed records a report load error.
type ReportFailed struct {
	Err error
}

func (ReportFailed) Name() string { return "report-failed" }

func (a ReportFailed) apply(s *State) {
	s.Report = ReportState{Phase: ReportError, Error: a.Err.Error()}
}

// PaymentChanged mirrors a checkout transition.
type PaymentChanged struct {
	State payment.State
}

func (PaymentChanged) Name() string { return "payment-changed" }

func (a PaymentChanged) apply(s *State) {
	s.Payment = a.State
}
