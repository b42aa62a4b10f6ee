package store

import (
	"encoding/json"
	"strings"
	"time"
)

// Product is a purchasable catalogue item referenced (never owned) by matrix
// rows and skin-type defaults. The id is immutable once referenced.
type Product struct {
	ID                 string `gorm:"primaryKey;size:64"`
	DisplayName        string `gorm:"size:256;index"`
	Brand              string `gorm:"size:128"`
	Category           string `gorm:"size:64;index"`
	Tier               string `gorm:"size:32"`
	Subcategory        string `gorm:"size:64"`
	PregnancyUnsafe    bool
	IsotretinoinUnsafe bool
	BarrierUnsafe      bool
	Notes              string `gorm:"type:text"`
	KeywordsJSON       string `gorm:"type:text"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SetKeywords persists the free-form keyword list as JSON.
func (p *Product) SetKeywords(keywords []string) {
	if keywords == nil {
		p.KeywordsJSON = "[]"
		return
	}
	payload, _ := json.Marshal(keywords)
	p.KeywordsJSON = string(payload)
}

// Keywords returns the unmarshalled keyword list.
func (p *Product) Keywords() []string {
	if strings.TrimSpace(p.KeywordsJSON) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(p.KeywordsJSON), &out); err != nil {
		return nil
	}
	return out
}

// ApplyKeywords translates the legacy prefixed-token encoding ("tier:premium",
// "subcat:exfoliant") into the typed Tier/Subcategory fields and stores the
// remaining plain keywords. The prefix convention stops at this boundary and
// never reaches the resolution engine.
func (p *Product) ApplyKeywords(tokens []string) {
	var plain []string
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		switch {
		case strings.HasPrefix(token, "tier:"):
			p.Tier = strings.TrimPrefix(token, "tier:")
		case strings.HasPrefix(token, "subcat:"):
			p.Subcategory = strings.TrimPrefix(token, "subcat:")
		default:
			plain = append(plain, token)
		}
	}
	p.SetKeywords(plain)
}

// ConcernSubtype is static reference data naming a clinical refinement of a
// concern (e.g. concern "acne", code "Cystic").
type ConcernSubtype struct {
	ID        string `gorm:"primaryKey;size:64"`
	Concern   string `gorm:"size:32;index"`
	Code      string `gorm:"size:64"`
	Label     string `gorm:"size:128"`
	CreatedAt time.Time
}

// MatrixEntry is the core rule row mapping (concern, subtype, skin type,
// band) to the five routine slot assignments. A blank slot column is
// meaningful ("no specific product at this severity") and distinct from a
// missing row. At most one row should exist per tuple; duplicates are a data
// error the resolver tolerates by taking the first match.
type MatrixEntry struct {
	ID               string `gorm:"primaryKey;size:64"`
	Concern          string `gorm:"size:32;index"`
	SubtypeID        string `gorm:"size:64;index"`
	SkinType         string `gorm:"size:16;index"`
	Band             string `gorm:"size:16;index"`
	CleanserID       string `gorm:"size:64"`
	CoreSerumID      string `gorm:"size:64"`
	SecondarySerumID string `gorm:"size:64"`
	MoisturizerID    string `gorm:"size:64"`
	SunscreenID      string `gorm:"size:64"`
	Remarks          string `gorm:"type:text"`
	UpdatedBy        string `gorm:"size:128"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SlotProduct returns the product id assigned to the named slot, or "" when
// the slot is blank.
func (m *MatrixEntry) SlotProduct(slot string) string {
	switch slot {
	case "cleanser":
		return m.CleanserID
	case "coreSerum":
		return m.CoreSerumID
	case "secondarySerum":
		return m.SecondarySerumID
	case "moisturizer":
		return m.MoisturizerID
	case "sunscreen":
		return m.SunscreenID
	default:
		return ""
	}
}

// SetSlotProduct assigns a product id to the named slot. Unknown slot names
// are ignored.
func (m *MatrixEntry) SetSlotProduct(slot, productID string) {
	switch slot {
	case "cleanser":
		m.CleanserID = productID
	case "coreSerum":
		m.CoreSerumID = productID
	case "secondarySerum":
		m.SecondarySerumID = productID
	case "moisturizer":
		m.MoisturizerID = productID
	case "sunscreen":
		m.SunscreenID = productID
	}
}

// SkinTypeDefault is the per-(skin type, slot) fallback product used when no
// matrix-specific assignment exists. One row per pair; absence of a row
// means "no fallback", not "unsafe".
type SkinTypeDefault struct {
	ID        uint   `gorm:"primaryKey"`
	SkinType  string `gorm:"size:16;uniqueIndex:idx_default_skin_slot"`
	Slot      string `gorm:"size:32;uniqueIndex:idx_default_skin_slot"`
	ProductID string `gorm:"size:64;index"`
	UpdatedAt time.Time
	CreatedAt time.Time
}

// Consultation persists one served routine resolution for staff review and
// later recomputation after matrix edits.
type Consultation struct {
	ID                 uint   `gorm:"primaryKey"`
	ClientName         string `gorm:"size:128;index"`
	Concern            string `gorm:"size:32;index"`
	SubtypeID          string `gorm:"size:64"`
	SkinType           string `gorm:"size:16"`
	Band               string `gorm:"size:16"`
	Pregnant           bool
	OnIsotretinoin     bool
	BarrierCompromised bool
	SlotsJSON          string `gorm:"type:text"`
	Remarks            string `gorm:"type:text"`
	WarningsJSON       string `gorm:"type:text"`
	ProcessingTimeMs   int64
	RecomputedAt       *time.Time
	CreatedAt          time.Time `gorm:"autoCreateTime"`
}

// SetSlots stores the slot outcome map as JSON.
func (c *Consultation) SetSlots(v any) {
	payload, _ := json.Marshal(v)
	c.SlotsJSON = string(payload)
}

// SetWarnings stores the warning list as JSON.
func (c *Consultation) SetWarnings(v any) {
	payload, _ := json.Marshal(v)
	c.WarningsJSON = string(payload)
}
