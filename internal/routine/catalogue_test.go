package routine

import (
	"testing"

	"salon-consult/backend/internal/store"
)

func TestCheckSafetyOrderAndIndependence(t *testing.T) {
	allUnsafe := store.Product{
		ID:                 "PX",
		PregnancyUnsafe:    true,
		IsotretinoinUnsafe: true,
		BarrierUnsafe:      true,
	}

	tests := []struct {
		name    string
		product store.Product
		profile SafetyProfile
		reason  SafetyReason
	}{
		{"no flags", store.Product{ID: "P1"}, SafetyProfile{Pregnant: true, OnIsotretinoin: true, BarrierCompromised: true}, ReasonNone},
		{"inactive profile", allUnsafe, SafetyProfile{}, ReasonNone},
		{"pregnancy", store.Product{ID: "P2", PregnancyUnsafe: true}, SafetyProfile{Pregnant: true}, ReasonPregnancy},
		{"isotretinoin", store.Product{ID: "P3", IsotretinoinUnsafe: true}, SafetyProfile{OnIsotretinoin: true}, ReasonIsotretinoin},
		{"barrier", store.Product{ID: "P4", BarrierUnsafe: true}, SafetyProfile{BarrierCompromised: true}, ReasonBarrierCompromise},
		{"flag without matching condition", store.Product{ID: "P5", PregnancyUnsafe: true}, SafetyProfile{BarrierCompromised: true}, ReasonNone},
		{"pregnancy reported first when all apply", allUnsafe, SafetyProfile{Pregnant: true, OnIsotretinoin: true, BarrierCompromised: true}, ReasonPregnancy},
		{"isotretinoin first when pregnancy inactive", allUnsafe, SafetyProfile{OnIsotretinoin: true, BarrierCompromised: true}, ReasonIsotretinoin},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CheckSafety(tc.product, tc.profile)
			if got != tc.reason {
				t.Fatalf("expected %q got %q", tc.reason, got)
			}
			if safe := IsSafeFor(tc.product, tc.profile); safe != (tc.reason == ReasonNone) {
				t.Fatalf("IsSafeFor disagrees with CheckSafety: %v vs %q", safe, got)
			}
		})
	}
}

func TestCatalogueGet(t *testing.T) {
	catalogue := NewCatalogue([]store.Product{
		{ID: "P1", DisplayName: "Gel Cleanser"},
		{ID: "P2", DisplayName: "Azelaic Serum"},
	})
	if catalogue.Len() != 2 {
		t.Fatalf("expected 2 products, got %d", catalogue.Len())
	}
	if p, ok := catalogue.Get("P2"); !ok || p.DisplayName != "Azelaic Serum" {
		t.Fatalf("unexpected lookup result: %+v %v", p, ok)
	}
	if _, ok := catalogue.Get("P404"); ok {
		t.Fatal("expected miss for unknown id")
	}
}

func TestBandOrdering(t *testing.T) {
	ordered := []Band{BandGreen, BandBlue, BandYellow, BandRed}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() >= ordered[i].Rank() {
			t.Fatalf("expected %s < %s", ordered[i-1], ordered[i])
		}
	}
	if Band("purple").Valid() {
		t.Fatal("unexpected valid band")
	}
}
