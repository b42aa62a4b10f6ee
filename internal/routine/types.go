package routine

import "strings"

// Band is the four-level severity classification for a concern. Ordering
// (green < blue < yellow < red) matters for display only; resolution is an
// exact-match lookup.
type Band string

const (
	BandGreen  Band = "green"
	BandBlue   Band = "blue"
	BandYellow Band = "yellow"
	BandRed    Band = "red"
)

// Rank returns the band position for display ordering. Unknown bands rank -1.
func (b Band) Rank() int {
	switch b {
	case BandGreen:
		return 0
	case BandBlue:
		return 1
	case BandYellow:
		return 2
	case BandRed:
		return 3
	default:
		return -1
	}
}

// Valid reports whether the band is one of the four canonical values.
func (b Band) Valid() bool {
	return b.Rank() >= 0
}

// ParseBand normalizes a band string. Returns "" when unrecognized.
func ParseBand(s string) Band {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "green":
		return BandGreen
	case "blue":
		return BandBlue
	case "yellow":
		return BandYellow
	case "red":
		return BandRed
	default:
		return ""
	}
}

// SkinType is the client's classified skin type.
type SkinType string

const (
	SkinDry       SkinType = "Dry"
	SkinCombo     SkinType = "Combo"
	SkinOily      SkinType = "Oily"
	SkinSensitive SkinType = "Sensitive"
	SkinNormal    SkinType = "Normal"
)

// ParseSkinType normalizes a skin type string. Returns "" when unrecognized.
func ParseSkinType(s string) SkinType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dry":
		return SkinDry
	case "combo", "combination":
		return SkinCombo
	case "oily":
		return SkinOily
	case "sensitive":
		return SkinSensitive
	case "normal":
		return SkinNormal
	default:
		return ""
	}
}

// Slot is one of the five positions in a skincare routine.
type Slot string

const (
	SlotCleanser       Slot = "cleanser"
	SlotCoreSerum      Slot = "coreSerum"
	SlotSecondarySerum Slot = "secondarySerum"
	SlotMoisturizer    Slot = "moisturizer"
	SlotSunscreen      Slot = "sunscreen"
)

// Slots returns the five slots in routine order.
func Slots() []Slot {
	return []Slot{SlotCleanser, SlotCoreSerum, SlotSecondarySerum, SlotMoisturizer, SlotSunscreen}
}

// ParseSlot normalizes a slot string. Returns "" when unrecognized.
func ParseSlot(s string) Slot {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cleanser":
		return SlotCleanser
	case "coreserum", "core_serum", "core serum":
		return SlotCoreSerum
	case "secondaryserum", "secondary_serum", "secondary serum":
		return SlotSecondarySerum
	case "moisturizer", "moisturiser":
		return SlotMoisturizer
	case "sunscreen":
		return SlotSunscreen
	default:
		return ""
	}
}

// Concern is a top-level skin issue category.
type Concern string

const (
	ConcernAcne         Concern = "acne"
	ConcernPigmentation Concern = "pigmentation"
	ConcernTexture      Concern = "texture"
	ConcernPores        Concern = "pores"
	ConcernWrinkles     Concern = "wrinkles"
	ConcernScarring     Concern = "scarring"
)

// ParseConcern normalizes a concern key. Returns "" when unrecognized.
func ParseConcern(s string) Concern {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "acne":
		return ConcernAcne
	case "pigmentation":
		return ConcernPigmentation
	case "texture":
		return ConcernTexture
	case "pores":
		return ConcernPores
	case "wrinkles":
		return ConcernWrinkles
	case "scarring":
		return ConcernScarring
	default:
		return ""
	}
}

// SafetyProfile carries the three independent client safety flags derived
// from intake.
type SafetyProfile struct {
	Pregnant           bool `json:"pregnant"`
	OnIsotretinoin     bool `json:"on_isotretinoin"`
	BarrierCompromised bool `json:"barrier_compromised"`
}

// SafetyReason identifies which safety condition excluded a product.
type SafetyReason string

const (
	ReasonNone              SafetyReason = ""
	ReasonPregnancy         SafetyReason = "Pregnancy"
	ReasonIsotretinoin      SafetyReason = "Isotretinoin"
	ReasonBarrierCompromise SafetyReason = "BarrierCompromise"
)
