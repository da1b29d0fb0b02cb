package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dinepos/m/domain"
	"dinepos/m/internal/wire"
)

func TestErrorsCarryServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/assign-rider":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"rider 9 does not exist"}`))
		case "/orders/5":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"order changed"}`))
		}
	}))
	defer srv.Close()
	c := New(srv.URL, srv.Client())
	ctx := context.Background()

	_, err := c.AssignRider(ctx, 1, 9)
	if Message(err) != "rider 9 does not exist" || !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("assign err = %v", err)
	}
	_, err = c.Order(ctx, 5)
	if Message(err) != fallbackMessage || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("order err = %v (%q)", err, Message(err))
	}
	_, err = c.UpdateOrderStatus(ctx, 1, domain.StatusCooking)
	if Message(err) != "order changed" || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("update err = %v", err)
	}
}

func TestCurrentSessionNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	c := New(srv.URL, nil)
	c.SetToken("tok")

	s, err := c.CurrentSession(context.Background())
	if err != nil || s != nil {
		t.Fatalf("session = %v, err = %v", s, err)
	}
}

func TestLoginStoresToken(t *testing.T) {
	var sawAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			var req wire.LoginRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(wire.LoginResponse{Token: "jwt-" + req.Email})
			return
		}
		sawAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	c := New(srv.URL+"/", nil)
	ctx := context.Background()
	if _, err := c.Login(ctx, "a@b.c", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Products(ctx); err != nil {
		t.Fatal(err)
	}
	if sawAuth != "Bearer jwt-a@b.c" {
		t.Fatalf("authorization = %q", sawAuth)
	}
}
