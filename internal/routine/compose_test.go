package routine

import (
	"reflect"
	"testing"

	"salon-consult/backend/internal/store"
)

func oilyCysticFixture() ([]store.Product, []store.MatrixEntry, []store.SkinTypeDefault) {
	products := []store.Product{
		{ID: "P1", DisplayName: "Clarifying Cleanser"},
		{ID: "P2", DisplayName: "BHA Serum", PregnancyUnsafe: true},
		{ID: "P9", DisplayName: "Light Fluid SPF50"},
	}
	entries := []store.MatrixEntry{
		{
			ID:          "M1",
			Concern:     "acne",
			SubtypeID:   "sub-cystic",
			SkinType:    "Oily",
			Band:        "red",
			CleanserID:  "P1",
			CoreSerumID: "P2",
			Remarks:     "Refer to dermatologist if no improvement in 8 weeks.",
		},
	}
	defaults := []store.SkinTypeDefault{
		{SkinType: "Oily", Slot: "sunscreen", ProductID: "P9"},
	}
	return products, entries, defaults
}

func composeFixture(profile SafetyProfile) ComposeInput {
	products, entries, defaults := oilyCysticFixture()
	return ComposeInput{
		Concern:   ConcernAcne,
		SubtypeID: "sub-cystic",
		SkinType:  SkinOily,
		Band:      BandRed,
		Catalogue: NewCatalogue(products),
		Entries:   entries,
		Defaults:  defaults,
		Profile:   profile,
	}
}

func TestComposeMatrixHitWithDefaultFallback(t *testing.T) {
	result := ComposeRoutine(composeFixture(SafetyProfile{}))

	if got := result.Slots[SlotCleanser]; got.Status != SlotResolved || got.ProductID != "P1" {
		t.Fatalf("cleanser: expected Resolved(P1) got %+v", got)
	}
	if got := result.Slots[SlotCoreSerum]; got.Status != SlotResolved || got.ProductID != "P2" {
		t.Fatalf("core serum: expected Resolved(P2) got %+v", got)
	}
	// Matrix row leaves sunscreen blank; skin-type default fills it.
	if got := result.Slots[SlotSunscreen]; got.Status != SlotResolved || got.ProductID != "P9" {
		t.Fatalf("sunscreen: expected Resolved(P9) got %+v", got)
	}
	for _, slot := range []Slot{SlotSecondarySerum, SlotMoisturizer} {
		if got := result.Slots[slot]; got.Status != SlotUnfilled {
			t.Fatalf("%s: expected Unfilled got %+v", slot, got)
		}
	}
	if result.Remarks == "" {
		t.Fatal("expected remarks passthrough")
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", result.Warnings)
	}
}

func TestComposeSafetyExclusionIsPerSlot(t *testing.T) {
	in := composeFixture(SafetyProfile{BarrierCompromised: true})
	products, entries, defaults := oilyCysticFixture()
	products[0].BarrierUnsafe = true
	in.Catalogue = NewCatalogue(products)
	in.Entries = entries
	in.Defaults = defaults

	result := ComposeRoutine(in)

	got := result.Slots[SlotCleanser]
	if got.Status != SlotExcluded || got.Reason != ReasonBarrierCompromise || got.ProductID != "P1" {
		t.Fatalf("cleanser: expected Excluded(P1, BarrierCompromise) got %+v", got)
	}
	// Exclusion never silently substitutes another product.
	if got := result.Slots[SlotSunscreen]; got.Status != SlotResolved || got.ProductID != "P9" {
		t.Fatalf("sunscreen unaffected: expected Resolved(P9) got %+v", got)
	}
	if got := result.Slots[SlotCoreSerum]; got.Status != SlotResolved || got.ProductID != "P2" {
		t.Fatalf("core serum unaffected: expected Resolved(P2) got %+v", got)
	}
}

func TestComposeSparseMissIsUnfilled(t *testing.T) {
	in := ComposeInput{
		Concern:   ConcernPores,
		SkinType:  SkinDry,
		Band:      BandYellow,
		Catalogue: NewCatalogue(nil),
	}
	result := ComposeRoutine(in)
	for _, slot := range Slots() {
		if got := result.Slots[slot]; got.Status != SlotUnfilled {
			t.Fatalf("%s: expected Unfilled got %+v", slot, got)
		}
	}
	if result.Remarks != "" || result.MatrixEntryID != "" {
		t.Fatalf("expected no matrix metadata, got %+v", result)
	}
}

func TestComposeDanglingReferenceWarns(t *testing.T) {
	in := composeFixture(SafetyProfile{})
	products, entries, defaults := oilyCysticFixture()
	entries[0].CleanserID = "P404"
	in.Catalogue = NewCatalogue(products)
	in.Entries = entries
	in.Defaults = defaults

	result := ComposeRoutine(in)

	if got := result.Slots[SlotCleanser]; got.Status != SlotUnfilled {
		t.Fatalf("cleanser: expected Unfilled got %+v", got)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected one dangling-reference warning, got %+v", result.Warnings)
	}
	warning := result.Warnings[0]
	if warning.Slot != SlotCleanser || warning.ProductID != "P404" || warning.Band != BandRed {
		t.Fatalf("unexpected warning: %+v", warning)
	}
	// Other slots must resolve regardless of the bad reference.
	if got := result.Slots[SlotSunscreen]; got.Status != SlotResolved || got.ProductID != "P9" {
		t.Fatalf("sunscreen: expected Resolved(P9) got %+v", got)
	}
}

func TestComposeIdempotent(t *testing.T) {
	in := composeFixture(SafetyProfile{Pregnant: true})
	first := ComposeRoutine(in)
	second := ComposeRoutine(in)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %+v vs %+v", first, second)
	}
}

func TestComposeDoesNotMutateInputs(t *testing.T) {
	products, entries, defaults := oilyCysticFixture()
	entriesCopy := make([]store.MatrixEntry, len(entries))
	copy(entriesCopy, entries)

	in := ComposeInput{
		Concern:   ConcernAcne,
		SubtypeID: "sub-cystic",
		SkinType:  SkinOily,
		Band:      BandRed,
		Catalogue: NewCatalogue(products),
		Entries:   entries,
		Defaults:  defaults,
	}
	ComposeRoutine(in)

	if !reflect.DeepEqual(entries, entriesCopy) {
		t.Fatal("compose mutated the matrix snapshot")
	}
}

func TestComposeDuplicateRowsFirstMatchWins(t *testing.T) {
	products, entries, defaults := oilyCysticFixture()
	dup := entries[0]
	dup.ID = "M2"
	dup.CleanserID = "P9"
	entries = append(entries, dup)

	in := ComposeInput{
		Concern:   ConcernAcne,
		SubtypeID: "sub-cystic",
		SkinType:  SkinOily,
		Band:      BandRed,
		Catalogue: NewCatalogue(products),
		Entries:   entries,
		Defaults:  defaults,
	}
	result := ComposeRoutine(in)
	if result.MatrixEntryID != "M1" {
		t.Fatalf("expected first row to win, matched %s", result.MatrixEntryID)
	}
	if got := result.Slots[SlotCleanser]; got.ProductID != "P1" {
		t.Fatalf("expected P1 from first row, got %+v", got)
	}
}

func TestResolveEntryIgnoresSubtypeForPlainConcerns(t *testing.T) {
	entries := []store.MatrixEntry{
		{ID: "M3", Concern: "pores", SkinType: "Dry", Band: "yellow", MoisturizerID: "P5"},
	}
	entry, ok := ResolveEntry(entries, ConcernPores, "whatever", SkinDry, BandYellow)
	if !ok || entry.ID != "M3" {
		t.Fatalf("expected match ignoring subtype, got %v %v", entry, ok)
	}
	if _, ok := ResolveEntry(entries, ConcernAcne, "", SkinDry, BandYellow); ok {
		t.Fatal("expected miss for different concern")
	}
}

func TestResolveDefault(t *testing.T) {
	defaults := []store.SkinTypeDefault{
		{SkinType: "Dry", Slot: "moisturizer", ProductID: "P5"},
	}
	if id, ok := ResolveDefault(defaults, SkinDry, SlotMoisturizer); !ok || id != "P5" {
		t.Fatalf("expected P5, got %q %v", id, ok)
	}
	if _, ok := ResolveDefault(defaults, SkinOily, SlotMoisturizer); ok {
		t.Fatal("expected miss for unconfigured skin type")
	}
}
