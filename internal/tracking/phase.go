// Package tracking serves the public order tracking view and drives it on
// the customer side: phases, server clock offset, countdowns and polling.
package tracking

import (
	"errors"
	"regexp"

	"dinepos/m/domain"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-fA-F]{16,64}$`)

// ErrMalformedToken is returned for tokens that are not 16-64 hex characters.
var ErrMalformedToken = errors.New("malformed tracking token")

func ValidToken(token string) bool { return tokenPattern.MatchString(token) }

type Phase struct {
	Number int    `json:"phase"`
	Label  string `json:"phase_label"`
}

var (
	PhaseConfirmed = Phase{Number: 1, Label: "Confirmed"}
	PhasePreparing = Phase{Number: 2, Label: "Preparing"}
	PhaseOnTheWay  = Phase{Number: 3, Label: "On the way"}
)

// PhaseFor collapses an order status into one of the three customer phases.
// Statuses without a phase of their own show as Confirmed.
func PhaseFor(s domain.OrderStatus) Phase {
	switch s {
	case domain.StatusPending, domain.StatusConfirmed:
		return PhaseConfirmed
	case domain.StatusCooking:
		return PhasePreparing
	case domain.StatusReady, domain.StatusDispatched, domain.StatusDelivered, domain.StatusCompleted:
		return PhaseOnTheWay
	case domain.StatusCancelled, domain.StatusReplacement:
		return PhaseConfirmed
	}
	return PhaseConfirmed
}

// Final reports whether the tracking page should stop polling.
func Final(s domain.OrderStatus) bool {
	switch s {
	case domain.StatusDelivered, domain.StatusCancelled, domain.StatusCompleted, domain.StatusReplacement:
		return true
	case domain.StatusPending, domain.StatusConfirmed, domain.StatusCooking, domain.StatusReady, domain.StatusDispatched:
		return false
	}
	return false
}
