package routine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Classification is the canonical output of the severity classifier. A zero
// value (empty Band) means "unclassified"; callers must re-prompt rather
// than proceed.
type Classification struct {
	Band    Band   `json:"band"`
	Subtype string `json:"subtype,omitempty"`
}

// Classified reports whether a recognizable band was extracted.
func (c Classification) Classified() bool {
	return c.Band.Valid()
}

// SubtypeRule is one ordered keyword pattern for a subtype-bearing concern.
// Earlier rules win when an answer matches multiple fragments; the listed
// order is the tie-break contract and must be preserved.
type SubtypeRule struct {
	Match   []string `json:"match"`
	Subtype string   `json:"subtype"`
	Band    string   `json:"band,omitempty"`
}

// Classifier maps raw questionnaire/machine answers to canonical band and
// subtype values. It is the single boundary that parses display-format
// answer strings; downstream components only ever see the enum values it
// produces.
type Classifier struct {
	rules map[Concern][]SubtypeRule
}

// NewClassifier constructs a classifier from the provided JSON rules file.
func NewClassifier(path string) (*Classifier, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read classifier rules: %w", err)
	}
	var raw map[string][]SubtypeRule
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal classifier rules: %w", err)
	}

	rules := make(map[Concern][]SubtypeRule)
	for key, list := range raw {
		concern := ParseConcern(key)
		if concern == "" {
			return nil, fmt.Errorf("classifier rules: unknown concern %q", key)
		}
		kept := make([]SubtypeRule, 0, len(list))
		for i, rule := range list {
			if rule.Subtype == "" {
				return nil, fmt.Errorf("classifier rules: %s rule %d missing subtype", key, i)
			}
			if rule.Band != "" {
				band := ParseBand(rule.Band)
				if !band.Valid() {
					return nil, fmt.Errorf("classifier rules: %s rule %d has invalid band %q", key, i, rule.Band)
				}
				if band == BandGreen {
					return nil, fmt.Errorf("classifier rules: %s rule %d: green is not reachable via keywords", key, i)
				}
			}
			var fragments []string
			for _, fragment := range rule.Match {
				fragment = normalizeAnswer(fragment)
				if fragment != "" {
					fragments = append(fragments, fragment)
				}
			}
			if len(fragments) == 0 {
				continue
			}
			rule.Match = fragments
			kept = append(kept, rule)
		}
		if len(kept) > 0 {
			rules[concern] = kept
		}
	}
	return &Classifier{rules: rules}, nil
}

// Validate ensures the classifier carries at least baseline configuration.
func (c *Classifier) Validate() error {
	if c == nil {
		return errors.New("classifier is nil")
	}
	if len(c.rules) == 0 {
		return errors.New("classifier rules missing")
	}
	return nil
}

// Rules exposes the ordered rule list for a concern (primarily for testing).
func (c *Classifier) Rules(concern Concern) []SubtypeRule {
	if c == nil {
		return nil
	}
	return c.rules[concern]
}

// Classify resolves a raw answer string to a band and, for subtype-bearing
// concerns, a subtype code. An empty Band means no recognizable pattern
// matched; that outcome is a value, never an error.
func (c *Classifier) Classify(raw string, concern Concern) Classification {
	body, band := splitBandSuffix(raw)

	var subtype string
	if c != nil {
		normalized := normalizeAnswer(body)
	scan:
		for _, rule := range c.rules[concern] {
			for _, fragment := range rule.Match {
				if strings.Contains(normalized, fragment) {
					subtype = rule.Subtype
					if !band.Valid() && rule.Band != "" {
						band = ParseBand(rule.Band)
					}
					break scan
				}
			}
		}
	}

	// No suffix and no keyword hit: the input may already be a band value.
	if !band.Valid() {
		band = ParseBand(body)
	}
	if !band.Valid() {
		return Classification{Subtype: subtype}
	}
	return Classification{Band: band, Subtype: subtype}
}

// splitBandSuffix strips a trailing arrow-separated band directive
// (e.g. "Many in the T-zone (11-30) → Yellow") from a display answer.
func splitBandSuffix(raw string) (string, Band) {
	for _, arrow := range []string{"→", "->"} {
		idx := strings.LastIndex(raw, arrow)
		if idx < 0 {
			continue
		}
		suffix := strings.TrimSpace(raw[idx+len(arrow):])
		if band := ParseBand(suffix); band.Valid() {
			return strings.TrimSpace(raw[:idx]), band
		}
	}
	return strings.TrimSpace(raw), ""
}

func normalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
