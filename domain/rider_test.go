package domain

import "testing"

func TestEstimatePayout(t *testing.T) {
	perKm := Rider{PayoutType: PayoutPerKm, BaseRate: d("20"), PerKmRate: d("10")}
	if got := perKm.EstimatePayout(d("5")); !got.Equal(d("70")) {
		t.Fatalf("per_km: expected 70, got %s", got)
	}
	hybrid := Rider{PayoutType: PayoutHybrid, PerDeliveryRate: d("50"), PerKmRate: d("10")}
	if got := hybrid.EstimatePayout(d("5")); !got.Equal(d("100")) {
		t.Fatalf("hybrid: expected 100, got %s", got)
	}
	flat := Rider{PayoutType: PayoutPerDelivery, PerDeliveryRate: d("45"), PerKmRate: d("10")}
	if got := flat.EstimatePayout(d("12")); !got.Equal(d("45")) {
		t.Fatalf("per_delivery: expected 45, got %s", got)
	}
}

func TestWorkloadFor(t *testing.T) {
	cases := map[int64]Workload{0: WorkloadLow, 1: WorkloadLow, 2: WorkloadMedium, 3: WorkloadMedium, 4: WorkloadHigh}
	for pending, want := range cases {
		if got := WorkloadFor(pending); got != want {
			t.Fatalf("pending %d: expected %s, got %s", pending, want, got)
		}
	}
	if !WorkloadLow.Less(WorkloadHigh) || WorkloadHigh.Less(WorkloadMedium) {
		t.Fatalf("unexpected workload ordering")
	}
}

func TestParsePayoutTypeRejectsUnknown(t *testing.T) {
	if _, err := ParsePayoutType("per_mile"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRankRiders(t *testing.T) {
	riders := []Rider{
		{Name: "Busy", PayoutType: PayoutPerDelivery, PerDeliveryRate: d("10"), PendingDeliveries: 5},
		{Name: "Pricey", PayoutType: PayoutPerDelivery, PerDeliveryRate: d("90")},
		{Name: "Cheap", PayoutType: PayoutPerKm, BaseRate: d("20"), PerKmRate: d("10")},
	}
	km := d("5")
	got := RankRiders(riders, &km)
	order := []string{got[0].Name, got[1].Name, got[2].Name}
	if order[0] != "Cheap" || order[1] != "Pricey" || order[2] != "Busy" {
		t.Fatalf("unexpected ranking %v", order)
	}
	if got[2].Workload != WorkloadHigh || got[0].EstimatedPayout == nil || !got[0].EstimatedPayout.Equal(d("70")) {
		t.Fatalf("unexpected option %+v", got[0])
	}

	noArea := RankRiders(riders, nil)
	if noArea[0].EstimatedPayout != nil || noArea[0].Name != "Cheap" {
		t.Fatalf("without distance riders sort by workload then name, got %+v", noArea[0])
	}
}
