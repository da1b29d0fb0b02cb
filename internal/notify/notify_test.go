package notify

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"dinepos/m/domain"
)

func TestStatusEventWireFormat(t *testing.T) {
	evt := StatusEvent{
		OrderID:     7,
		OrderNumber: "ORD-20240101-0007",
		OrderType:   domain.OrderTypeDelivery,
		From:        domain.StatusReady,
		To:          domain.StatusDispatched,
		ChangedAt:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"old_status":"ready"`, `"new_status":"dispatched"`, `"order_number":"ORD-20240101-0007"`} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("%s missing from %s", want, b)
		}
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var p Publisher = &r
	_ = p.PublishStatus(context.Background(), StatusEvent{OrderID: 1, To: domain.StatusCooking})
	_ = p.PublishStatus(context.Background(), StatusEvent{OrderID: 1, To: domain.StatusReady})
	got := r.Events()
	if len(got) != 2 || got[1].To != domain.StatusReady {
		t.Fatalf("events = %+v", got)
	}
}
