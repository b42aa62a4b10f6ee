package routine

import (
	"encoding/json"
	"os"
	"testing"
)

func testRules() map[string][]SubtypeRule {
	return map[string][]SubtypeRule{
		"acne": {
			{Match: []string{"cystic", "large painful"}, Subtype: "Cystic", Band: "red"},
			{Match: []string{"jawline", "before my period"}, Subtype: "Hormonal", Band: "yellow"},
			{Match: []string{"blackheads", "t-zone"}, Subtype: "Comedonal", Band: "blue"},
		},
		"scarring": {
			{Match: []string{"deep narrow", "ice pick"}, Subtype: "IcePick", Band: "red"},
			{Match: []string{"rolling", "shallow and wide"}, Subtype: "Rolling", Band: "yellow"},
		},
	}
}

func TestClassify(t *testing.T) {
	classifier := newTestClassifier(t, testRules())

	tests := []struct {
		name    string
		answer  string
		concern Concern
		band    Band
		subtype string
	}{
		{"arrow suffix wins", "Many in the T-zone (11–30) → Yellow", ConcernAcne, BandYellow, "Comedonal"},
		{"ascii arrow", "Occasional spots -> Blue", ConcernAcne, BandBlue, ""},
		{"direct green answer", "Comfortable all day → Green", ConcernAcne, BandGreen, ""},
		{"keyword implies band", "Lots of blackheads on my nose", ConcernAcne, BandBlue, "Comedonal"},
		{"first listed rule wins overlap", "Large painful cysts along my jawline", ConcernAcne, BandRed, "Cystic"},
		{"second rule when first misses", "They flare along my jawline", ConcernAcne, BandYellow, "Hormonal"},
		{"verbatim band value", "yellow", ConcernPores, BandYellow, ""},
		{"scarring keyword", "Shallow and wide dips across cheeks", ConcernScarring, BandYellow, "Rolling"},
		{"unclassifiable", "not sure really", ConcernAcne, "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classifier.Classify(tc.answer, tc.concern)
			if got.Band != tc.band {
				t.Fatalf("expected band %q got %q", tc.band, got.Band)
			}
			if got.Subtype != tc.subtype {
				t.Fatalf("expected subtype %q got %q", tc.subtype, got.Subtype)
			}
		})
	}
}

func TestClassifyUnclassifiedIsNotError(t *testing.T) {
	classifier := newTestClassifier(t, testRules())
	got := classifier.Classify("???", ConcernTexture)
	if got.Classified() {
		t.Fatalf("expected unclassified result, got %+v", got)
	}
}

func TestNewClassifierRejectsGreenKeywordRules(t *testing.T) {
	rules := map[string][]SubtypeRule{
		"acne": {{Match: []string{"calm"}, Subtype: "Comedonal", Band: "green"}},
	}
	path := writeRules(t, rules)
	if _, err := NewClassifier(path); err == nil {
		t.Fatal("expected error for green keyword rule")
	}
}

func TestNewClassifierRejectsUnknownConcern(t *testing.T) {
	rules := map[string][]SubtypeRule{
		"dandruff": {{Match: []string{"flakes"}, Subtype: "Dry"}},
	}
	path := writeRules(t, rules)
	if _, err := NewClassifier(path); err == nil {
		t.Fatal("expected error for unknown concern")
	}
}

func TestShippedRulesLoad(t *testing.T) {
	classifier, err := NewClassifier("classifier_rules.json")
	if err != nil {
		t.Fatalf("load shipped rules: %v", err)
	}
	if err := classifier.Validate(); err != nil {
		t.Fatalf("validate shipped rules: %v", err)
	}
	for _, concern := range []Concern{ConcernAcne, ConcernPigmentation, ConcernScarring} {
		if len(classifier.Rules(concern)) == 0 {
			t.Fatalf("expected rules for %s", concern)
		}
	}
}

func newTestClassifier(t *testing.T, rules map[string][]SubtypeRule) *Classifier {
	t.Helper()
	classifier, err := NewClassifier(writeRules(t, rules))
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	return classifier
}

func writeRules(t *testing.T, rules map[string][]SubtypeRule) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "rules-*.json")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	data, err := json.Marshal(rules)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return f.Name()
}
