package store

import (
	"reflect"
	"testing"
)

func TestApplyKeywordsTranslatesLegacyPrefixes(t *testing.T) {
	var p Product
	p.ApplyKeywords([]string{"tier:premium", "subcat:exfoliant", "aha", " gentle ", ""})

	if p.Tier != "premium" {
		t.Fatalf("expected tier premium got %q", p.Tier)
	}
	if p.Subcategory != "exfoliant" {
		t.Fatalf("expected subcategory exfoliant got %q", p.Subcategory)
	}
	if got := p.Keywords(); !reflect.DeepEqual(got, []string{"aha", "gentle"}) {
		t.Fatalf("unexpected plain keywords: %v", got)
	}
}

func TestApplyKeywordsEmptyList(t *testing.T) {
	var p Product
	p.ApplyKeywords(nil)
	if got := p.Keywords(); len(got) != 0 {
		t.Fatalf("expected no keywords, got %v", got)
	}
	if p.Tier != "" || p.Subcategory != "" {
		t.Fatalf("expected empty tier/subcategory, got %q/%q", p.Tier, p.Subcategory)
	}
}

func TestMatrixEntrySlotAccess(t *testing.T) {
	var m MatrixEntry
	slots := []string{"cleanser", "coreSerum", "secondarySerum", "moisturizer", "sunscreen"}
	for i, slot := range slots {
		m.SetSlotProduct(slot, "P"+string(rune('1'+i)))
	}
	for i, slot := range slots {
		want := "P" + string(rune('1'+i))
		if got := m.SlotProduct(slot); got != want {
			t.Fatalf("%s: expected %q got %q", slot, want, got)
		}
	}
	if got := m.SlotProduct("toner"); got != "" {
		t.Fatalf("unknown slot should be blank, got %q", got)
	}
}
