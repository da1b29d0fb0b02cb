// Package client is a typed client for the POS HTTP API, used by terminals,
// kitchen screens and the tracking page.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"dinepos/m/domain"
	"dinepos/m/internal/tracking"
	"dinepos/m/internal/wire"
)

// APIError is a non-2xx response. Message is taken from the body when the
// server sent one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Is maps HTTP statuses onto the domain sentinels so callers can use errors.Is.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusNotFound:
		return target == domain.ErrNotFound
	case http.StatusConflict:
		return target == domain.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return target == domain.ErrValidation
	}
	return false
}

const fallbackMessage = "request failed, please try again"

type Client struct {
	base string
	http *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) authHeader() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return ""
	}
	return "Bearer " + c.token
}

// do sends body as JSON and decodes a 2xx response into out. It reports
// whether the response had a body (204 does not).
func (c *Client) do(ctx context.Context, method, path string, body, out any) (bool, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth := c.authHeader(); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, decodeError(resp)
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode != http.StatusNoContent, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return true, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return true, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: fallbackMessage}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Error != "":
			apiErr.Message = body.Error
		case body.Message != "":
			apiErr.Message = body.Message
		}
	} else if s := strings.TrimSpace(string(raw)); s != "" && len(s) < 200 {
		apiErr.Message = s
	}
	return apiErr
}

// Message extracts a user facing message from any client error.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return fallbackMessage
}

func (c *Client) Login(ctx context.Context, email, password string) (wire.LoginResponse, error) {
	var out wire.LoginResponse
	_, err := c.do(ctx, http.MethodPost, "/auth/login", wire.LoginRequest{Email: email, Password: password}, &out)
	if err == nil {
		c.SetToken(out.Token)
	}
	return out, err
}

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	_, err := c.do(ctx, http.MethodGet, "/products", nil, &out)
	return out, err
}

func (c *Client) CreateOrder(ctx context.Context, req wire.CreateOrderRequest) (domain.Order, error) {
	var out domain.Order
	_, err := c.do(ctx, http.MethodPost, "/orders", req, &out)
	return out, err
}

func (c *Client) Orders(ctx context.Context, limit int) ([]domain.Order, error) {
	var out []domain.Order
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders?limit=%d", limit), nil, &out)
	return out, err
}

func (c *Client) Order(ctx context.Context, id int64) (domain.Order, error) {
	var out domain.Order
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, &out)
	return out, err
}

// UpdateOrderStatus is the kitchen's forward transition.
func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error) {
	var out domain.Order
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d", id), wire.StatusRequest{Status: status}, &out)
	return out, err
}

// SetOrderStatus is used from the shift order list to cancel or flag a
// replacement.
func (c *Client) SetOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error) {
	var out domain.Order
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d/order-status", id), wire.StatusRequest{Status: status}, &out)
	return out, err
}

func (c *Client) MarkPaid(ctx context.Context, id int64, method domain.PaymentType) (domain.Order, error) {
	var out domain.Order
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d/payment-status", id), wire.PaymentRequest{Method: method}, &out)
	return out, err
}

func (c *Client) MarkDelivered(ctx context.Context, id int64) (domain.Order, error) {
	var out domain.Order
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d/mark-delivered", id), nil, &out)
	return out, err
}

func (c *Client) MarkCODReceived(ctx context.Context, id int64) (domain.Order, error) {
	var out domain.Order
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d/mark-cod-received", id), nil, &out)
	return out, err
}

// KitchenOrders returns the orders on the kitchen board, items included.
func (c *Client) KitchenOrders(ctx context.Context) ([]domain.Order, error) {
	var cards []struct {
		Order domain.Order `json:"order"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/kds/orders", nil, &cards); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(cards))
	for _, card := range cards {
		out = append(out, card.Order)
	}
	return out, nil
}

// CurrentSession returns nil without error when the cashier has no open shift.
func (c *Client) CurrentSession(ctx context.Context) (*domain.Session, error) {
	var out domain.Session
	ok, err := c.do(ctx, http.MethodGet, "/sessions/current", nil, &out)
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OpenSession(ctx context.Context, req wire.OpenSessionRequest) (domain.Session, error) {
	var out domain.Session
	_, err := c.do(ctx, http.MethodPost, "/sessions/open", req, &out)
	return out, err
}

func (c *Client) SessionTotals(ctx context.Context, id int64) (domain.SessionTotals, error) {
	var out domain.SessionTotals
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sessions/%d/totals", id), nil, &out)
	return out, err
}

func (c *Client) CloseSession(ctx context.Context, id int64, req wire.CloseSessionRequest) (domain.CloseResult, error) {
	var out domain.CloseResult
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/sessions/%d/close", id), req, &out)
	return out, err
}

func (c *Client) AddExpense(ctx context.Context, req wire.ExpenseRequest) (domain.Expense, error) {
	var out domain.Expense
	_, err := c.do(ctx, http.MethodPost, "/expenses", req, &out)
	return out, err
}

func (c *Client) Expenses(ctx context.Context, sessionID int64) ([]domain.Expense, error) {
	var out []domain.Expense
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/expenses?session_id=%d", sessionID), nil, &out)
	return out, err
}

func (c *Client) ActiveRiders(ctx context.Context, areaID *int64) ([]domain.RiderOption, error) {
	path := "/riders/active"
	if areaID != nil {
		path += fmt.Sprintf("?area_id=%d", *areaID)
	}
	var out []domain.RiderOption
	_, err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) AssignRider(ctx context.Context, orderID, riderID int64) (domain.Order, error) {
	var out domain.Order
	_, err := c.do(ctx, http.MethodPost, "/assign-rider", wire.AssignRiderRequest{OrderID: orderID, RiderID: riderID}, &out)
	return out, err
}

func (c *Client) DeliveryAreas(ctx context.Context, activeOnly bool) ([]domain.DeliveryArea, error) {
	var out []domain.DeliveryArea
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/delivery-areas?active_only=%t", activeOnly), nil, &out)
	return out, err
}

func (c *Client) CalcDeliveryCharge(ctx context.Context, req wire.DeliveryChargeRequest) (domain.DeliveryCharge, error) {
	var out domain.DeliveryCharge
	_, err := c.do(ctx, http.MethodPost, "/calc-delivery-charges", req, &out)
	return out, err
}

// Track loads the public tracking view. It needs no login.
func (c *Client) Track(ctx context.Context, token string) (tracking.View, error) {
	var out tracking.View
	_, err := c.do(ctx, http.MethodGet, "/track/"+url.PathEscape(token), nil, &out)
	return out, err
}

// SearchTracking resolves an order number to its tracking link. phone is the
// customer's phone or its last digits; it may be empty when query is a token.
func (c *Client) SearchTracking(ctx context.Context, query, phone string) (tracking.SearchResult, error) {
	var out tracking.SearchResult
	path := "/track/order/" + url.PathEscape(query)
	if phone != "" {
		path += "?" + url.Values{"phone": {phone}}.Encode()
	}
	_, err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}
