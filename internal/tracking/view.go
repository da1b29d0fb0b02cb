package tracking

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"dinepos/m/domain"
	"dinepos/m/internal/metrics"
	"dinepos/m/internal/repository"
)

// TrackedOrder is the order as the customer sees it.
type TrackedOrder struct {
	domain.Order
	RiderName    string `json:"rider_name,omitempty"`
	RiderPhone   string `json:"rider_phone,omitempty"`
	LocationName string `json:"location_name,omitempty"`
}

type View struct {
	Success bool         `json:"success"`
	Order   TrackedOrder `json:"order"`
	Phase
	Countdown   *CountdownState `json:"countdown,omitempty"`
	ServerUTCMs int64           `json:"server_utc_ms"`
}

type SearchResult struct {
	Success     bool   `json:"success"`
	TrackingURL string `json:"tracking_url"`
	OrderNumber string `json:"order_number"`
}

// Service builds public tracking views. It never exposes staff data.
type Service struct {
	db      *sqlx.DB
	baseURL string
	clock   Clock
	metrics *metrics.Metrics
}

func NewService(db *sqlx.DB, baseURL string, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.New()
	}
	return &Service{db: db, baseURL: strings.TrimRight(baseURL, "/"), clock: SystemClock{}, metrics: m}
}

func (s *Service) WithClock(c Clock) *Service {
	s.clock = c
	return s
}

// URL is the customer facing tracking link for a token.
func (s *Service) URL(token string) string {
	return s.baseURL + "/" + token
}

func (s *Service) View(ctx context.Context, token string) (View, error) {
	if !ValidToken(token) {
		s.metrics.TrackingLookups.WithLabelValues("malformed").Inc()
		return View{}, ErrMalformedToken
	}
	o, err := repository.NewOrders(s.db).ByTrackingToken(ctx, strings.ToLower(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.metrics.TrackingLookups.WithLabelValues("not_found").Inc()
		}
		return View{}, err
	}

	tracked := TrackedOrder{Order: o}
	tracked.SessionID, tracked.CashierID = nil, nil
	if o.RiderID != nil {
		rider, err := repository.NewRiders(s.db).Get(ctx, *o.RiderID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return View{}, err
		}
		tracked.RiderName, tracked.RiderPhone = rider.Name, rider.Phone
	}
	if o.AreaID != nil {
		area, err := repository.NewAreas(s.db).Get(ctx, *o.AreaID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return View{}, err
		}
		tracked.LocationName = area.Name
	}

	now := s.clock.Now().UTC()
	s.metrics.TrackingLookups.WithLabelValues("ok").Inc()
	return View{
		Success:     true,
		Order:       tracked,
		Phase:       PhaseFor(o.Status),
		Countdown:   CountdownFor(o, now),
		ServerUTCMs: now.UnixMilli(),
	}, nil
}

// MinPhoneDigits is how many trailing phone digits a number search must match.
const MinPhoneDigits = 4

// Search finds an order by its token, or by its order number together with
// the last digits of the customer's phone, and returns where to track it.
// Order numbers are sequential, so a number alone never resolves.
func (s *Service) Search(ctx context.Context, query, phone string) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{}, domain.Invalid("order number is required")
	}
	orders := repository.NewOrders(s.db)
	if ValidToken(query) {
		o, err := orders.ByTrackingToken(ctx, strings.ToLower(query))
		if err == nil {
			return s.found(o), nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return SearchResult{}, err
		}
	}

	suffix := digits(phone)
	if len(suffix) < MinPhoneDigits {
		return SearchResult{}, domain.Invalid("the last %d digits of the customer phone are required", MinPhoneDigits)
	}
	o, err := orders.ByNumber(ctx, query)
	if err != nil {
		s.metrics.TrackingLookups.WithLabelValues("not_found").Inc()
		return SearchResult{}, err
	}
	if !strings.HasSuffix(digits(o.CustomerPhone), suffix) {
		s.metrics.TrackingLookups.WithLabelValues("not_found").Inc()
		return SearchResult{}, domain.ErrNotFound
	}
	return s.found(o), nil
}

func (s *Service) found(o domain.Order) SearchResult {
	return SearchResult{Success: true, TrackingURL: s.URL(o.TrackingToken), OrderNumber: o.OrderNumber}
}

func digits(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
