package tracking

import (
	"fmt"
	"strconv"
	"time"

	"dinepos/m/domain"
)

const (
	DefaultCookingDuration  = 20 * time.Minute
	DefaultDeliveryDuration = 10 * time.Minute
	DefaultExtension        = 5 * time.Minute
	DefaultMaxExtensions    = 2
)

// Countdown estimates completion of a phase. When the phase runs past its
// estimate the ETA is pushed back in fixed steps, at most MaxExtensions times;
// after that the display counts overtime.
type Countdown struct {
	Duration      time.Duration
	Extension     time.Duration
	MaxExtensions int
}

func CookingCountdown() Countdown {
	return Countdown{Duration: DefaultCookingDuration, Extension: DefaultExtension, MaxExtensions: DefaultMaxExtensions}
}

func DeliveryCountdown() Countdown {
	return Countdown{Duration: DefaultDeliveryDuration, Extension: DefaultExtension, MaxExtensions: DefaultMaxExtensions}
}

// Millis is a duration encoded as whole milliseconds in JSON.
type Millis time.Duration

func (m Millis) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, time.Duration(m).Milliseconds(), 10), nil
}

func (m *Millis) UnmarshalJSON(b []byte) error {
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("duration millis: %w", err)
	}
	*m = Millis(time.Duration(ms) * time.Millisecond)
	return nil
}

type CountdownState struct {
	Kind       string    `json:"kind"`
	StartedAt  time.Time `json:"started_at"`
	Elapsed    Millis    `json:"elapsed_ms"`
	ETA        Millis    `json:"eta_ms"`
	Extensions int       `json:"extensions"`
	Remaining  Millis    `json:"remaining_ms"`
	Overtime   bool      `json:"overtime"`
	Display    string    `json:"display"`
}

func (c Countdown) At(start, now time.Time) CountdownState {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	eta := c.Duration
	st := CountdownState{StartedAt: start, Elapsed: Millis(elapsed)}
	if elapsed > c.Duration && c.Extension > 0 {
		over := elapsed - c.Duration
		n := int((over + c.Extension - 1) / c.Extension)
		if n > c.MaxExtensions {
			n = c.MaxExtensions
		}
		st.Extensions = n
		eta = c.Duration + time.Duration(n)*c.Extension
	}
	st.ETA = Millis(eta)
	if elapsed > eta {
		st.Overtime = true
		st.Display = "+" + clockFormat(elapsed-eta)
		return st
	}
	st.Remaining = Millis(eta - elapsed)
	st.Display = clockFormat(eta-elapsed) + " remaining"
	return st
}

// clockFormat renders whole minutes and seconds, minutes unbounded.
func clockFormat(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// CountdownFor picks the countdown that applies to the order's current phase,
// or nil when none runs.
func CountdownFor(o domain.Order, now time.Time) *CountdownState {
	var (
		start *time.Time
		c     Countdown
		kind  string
	)
	switch o.Status {
	case domain.StatusCooking:
		start, c, kind = firstSet(o.CookingStartedAt, &o.CreatedAt), CookingCountdown(), "cooking"
	case domain.StatusReady, domain.StatusDispatched:
		start, c, kind = firstSet(o.DispatchedAt, o.ReadyAt, &o.CreatedAt), DeliveryCountdown(), "delivery"
	default:
		return nil
	}
	st := c.At(*start, now)
	st.Kind = kind
	return &st
}

func firstSet(ts ...*time.Time) *time.Time {
	for _, t := range ts {
		if t != nil && !t.IsZero() {
			return t
		}
	}
	return ts[len(ts)-1]
}
