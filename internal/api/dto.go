package api

import (
	"encoding/json"
	"time"

	"salon-consult/backend/internal/routine"
	"salon-consult/backend/internal/store"
)

// ProductDTO is the API representation of a catalogue product.
type ProductDTO struct {
	ID                 string   `json:"id"`
	DisplayName        string   `json:"display_name"`
	Brand              string   `json:"brand,omitempty"`
	Category           string   `json:"category,omitempty"`
	Tier               string   `json:"tier,omitempty"`
	Subcategory        string   `json:"subcategory,omitempty"`
	PregnancyUnsafe    bool     `json:"pregnancy_unsafe"`
	IsotretinoinUnsafe bool     `json:"isotretinoin_unsafe"`
	BarrierUnsafe      bool     `json:"barrier_unsafe"`
	Notes              string   `json:"notes,omitempty"`
	Keywords           []string `json:"keywords,omitempty"`
}

// ProductFromModel converts a store row to its DTO.
func ProductFromModel(p store.Product) ProductDTO {
	return ProductDTO{
		ID:                 p.ID,
		DisplayName:        p.DisplayName,
		Brand:              p.Brand,
		Category:           p.Category,
		Tier:               p.Tier,
		Subcategory:        p.Subcategory,
		PregnancyUnsafe:    p.PregnancyUnsafe,
		IsotretinoinUnsafe: p.IsotretinoinUnsafe,
		BarrierUnsafe:      p.BarrierUnsafe,
		Notes:              p.Notes,
		Keywords:           p.Keywords(),
	}
}

// ToModel converts the DTO into a store row. Incoming keywords may still use
// the legacy "tier:"/"subcat:" prefix encoding; it is translated here and
// never stored prefixed.
func (dto ProductDTO) ToModel() store.Product {
	p := store.Product{
		ID:                 dto.ID,
		DisplayName:        dto.DisplayName,
		Brand:              dto.Brand,
		Category:           dto.Category,
		Tier:               dto.Tier,
		Subcategory:        dto.Subcategory,
		PregnancyUnsafe:    dto.PregnancyUnsafe,
		IsotretinoinUnsafe: dto.IsotretinoinUnsafe,
		BarrierUnsafe:      dto.BarrierUnsafe,
		Notes:              dto.Notes,
	}
	p.ApplyKeywords(dto.Keywords)
	return p
}

// SubtypeDTO is the API representation of a concern subtype.
type SubtypeDTO struct {
	ID      string `json:"id"`
	Concern string `json:"concern"`
	Code    string `json:"code"`
	Label   string `json:"label"`
}

// SubtypeFromModel converts a store row to its DTO.
func SubtypeFromModel(s store.ConcernSubtype) SubtypeDTO {
	return SubtypeDTO{ID: s.ID, Concern: s.Concern, Code: s.Code, Label: s.Label}
}

// MatrixEntryDTO is the API representation of one rule row. Empty slot
// fields mean "no specific product for this slot at this severity".
type MatrixEntryDTO struct {
	ID               string    `json:"id"`
	Concern          string    `json:"concern"`
	SubtypeID        string    `json:"subtype_id,omitempty"`
	SkinType         string    `json:"skin_type"`
	Band             string    `json:"band"`
	CleanserID       string    `json:"cleanser_id,omitempty"`
	CoreSerumID      string    `json:"core_serum_id,omitempty"`
	SecondarySerumID string    `json:"secondary_serum_id,omitempty"`
	MoisturizerID    string    `json:"moisturizer_id,omitempty"`
	SunscreenID      string    `json:"sunscreen_id,omitempty"`
	Remarks          string    `json:"remarks,omitempty"`
	UpdatedBy        string    `json:"updated_by,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MatrixEntryFromModel converts a store row to its DTO.
func MatrixEntryFromModel(m store.MatrixEntry) MatrixEntryDTO {
	return MatrixEntryDTO{
		ID:               m.ID,
		Concern:          m.Concern,
		SubtypeID:        m.SubtypeID,
		SkinType:         m.SkinType,
		Band:             m.Band,
		CleanserID:       m.CleanserID,
		CoreSerumID:      m.CoreSerumID,
		SecondarySerumID: m.SecondarySerumID,
		MoisturizerID:    m.MoisturizerID,
		SunscreenID:      m.SunscreenID,
		Remarks:          m.Remarks,
		UpdatedBy:        m.UpdatedBy,
		UpdatedAt:        m.UpdatedAt,
	}
}

// ToModel converts the DTO into a store row.
func (dto MatrixEntryDTO) ToModel() store.MatrixEntry {
	return store.MatrixEntry{
		ID:               dto.ID,
		Concern:          dto.Concern,
		SubtypeID:        dto.SubtypeID,
		SkinType:         dto.SkinType,
		Band:             dto.Band,
		CleanserID:       dto.CleanserID,
		CoreSerumID:      dto.CoreSerumID,
		SecondarySerumID: dto.SecondarySerumID,
		MoisturizerID:    dto.MoisturizerID,
		SunscreenID:      dto.SunscreenID,
		Remarks:          dto.Remarks,
		UpdatedBy:        dto.UpdatedBy,
	}
}

// DefaultDTO is the API representation of a skin-type default.
type DefaultDTO struct {
	SkinType  string `json:"skin_type"`
	Slot      string `json:"slot"`
	ProductID string `json:"product_id"`
}

// DefaultFromModel converts a store row to its DTO.
func DefaultFromModel(d store.SkinTypeDefault) DefaultDTO {
	return DefaultDTO{SkinType: d.SkinType, Slot: d.Slot, ProductID: d.ProductID}
}

// ClassifyRequest carries a raw questionnaire answer for classification.
type ClassifyRequest struct {
	Answer  string `json:"answer"`
	Concern string `json:"concern"`
}

// ClassifyResponse reports the canonical classification, or unclassified
// when no recognizable pattern matched (the caller should re-prompt).
type ClassifyResponse struct {
	Band         string `json:"band,omitempty"`
	Subtype      string `json:"subtype,omitempty"`
	Unclassified bool   `json:"unclassified"`
}

// RecommendRequest carries everything one routine resolution needs. Either a
// raw answer to classify or a pre-classified band (plus optional subtype id)
// must be supplied.
type RecommendRequest struct {
	ClientName string                `json:"client_name"`
	Concern    string                `json:"concern"`
	RawAnswer  string                `json:"raw_answer,omitempty"`
	SubtypeID  string                `json:"subtype_id,omitempty"`
	Band       string                `json:"band,omitempty"`
	SkinType   string                `json:"skin_type"`
	Profile    routine.SafetyProfile `json:"profile"`
}

// RecommendResponse is the rendered routine resolution.
type RecommendResponse struct {
	ConsultationID   uint                                `json:"consultation_id,omitempty"`
	Concern          string                              `json:"concern"`
	SubtypeID        string                              `json:"subtype_id,omitempty"`
	SkinType         string                              `json:"skin_type"`
	Band             string                              `json:"band,omitempty"`
	Unclassified     bool                                `json:"unclassified,omitempty"`
	Slots            map[routine.Slot]routine.SlotResult `json:"slots,omitempty"`
	Remarks          string                              `json:"remarks,omitempty"`
	Warnings         []routine.Warning                   `json:"warnings,omitempty"`
	ProcessingTimeMs int64                               `json:"processing_time_ms"`
}

// ConsultationDTO is the API representation of a stored consultation.
type ConsultationDTO struct {
	ID               uint                                `json:"id"`
	ClientName       string                              `json:"client_name"`
	Concern          string                              `json:"concern"`
	SubtypeID        string                              `json:"subtype_id,omitempty"`
	SkinType         string                              `json:"skin_type"`
	Band             string                              `json:"band"`
	Profile          routine.SafetyProfile               `json:"profile"`
	Slots            map[routine.Slot]routine.SlotResult `json:"slots"`
	Remarks          string                              `json:"remarks,omitempty"`
	Warnings         []routine.Warning                   `json:"warnings,omitempty"`
	ProcessingTimeMs int64                               `json:"processing_time_ms"`
	RecomputedAt     *time.Time                          `json:"recomputed_at,omitempty"`
	CreatedAt        time.Time                           `json:"created_at"`
}

// ConsultationFromModel converts a store row to its DTO.
func ConsultationFromModel(c store.Consultation) ConsultationDTO {
	dto := ConsultationDTO{
		ID:         c.ID,
		ClientName: c.ClientName,
		Concern:    c.Concern,
		SubtypeID:  c.SubtypeID,
		SkinType:   c.SkinType,
		Band:       c.Band,
		Profile: routine.SafetyProfile{
			Pregnant:           c.Pregnant,
			OnIsotretinoin:     c.OnIsotretinoin,
			BarrierCompromised: c.BarrierCompromised,
		},
		Remarks:          c.Remarks,
		ProcessingTimeMs: c.ProcessingTimeMs,
		RecomputedAt:     c.RecomputedAt,
		CreatedAt:        c.CreatedAt,
	}
	if c.SlotsJSON != "" {
		_ = json.Unmarshal([]byte(c.SlotsJSON), &dto.Slots)
	}
	if c.WarningsJSON != "" {
		_ = json.Unmarshal([]byte(c.WarningsJSON), &dto.Warnings)
	}
	return dto
}

// ConsultationsResponse is the paginated consultation listing.
type ConsultationsResponse struct {
	Items []ConsultationDTO `json:"items"`
	Total int64             `json:"total"`
}
