package routine

import "salon-consult/backend/internal/store"

// SlotStatus is the outcome of resolving a single routine slot.
type SlotStatus string

const (
	SlotResolved SlotStatus = "resolved"
	SlotUnfilled SlotStatus = "unfilled"
	SlotExcluded SlotStatus = "excluded"
)

// SlotResult carries the resolution outcome for one slot. ProductID is set
// for resolved and excluded slots; Reason only for excluded ones.
type SlotResult struct {
	Status    SlotStatus   `json:"status"`
	ProductID string       `json:"product_id,omitempty"`
	Reason    SafetyReason `json:"reason,omitempty"`
}

// Warning flags a dangling product reference found during composition. It is
// surfaced to operators; it never aborts resolution of the other slots.
type Warning struct {
	Concern   Concern  `json:"concern"`
	SubtypeID string   `json:"subtype_id,omitempty"`
	SkinType  SkinType `json:"skin_type"`
	Band      Band     `json:"band"`
	Slot      Slot     `json:"slot"`
	ProductID string   `json:"product_id"`
}

// ComposeInput bundles the immutable snapshot and classification a single
// composition call operates on. The engine never mutates any of it.
type ComposeInput struct {
	Concern   Concern
	SubtypeID string
	SkinType  SkinType
	Band      Band
	Catalogue *Catalogue
	Entries   []store.MatrixEntry
	Defaults  []store.SkinTypeDefault
	Profile   SafetyProfile
}

// RoutineResult maps each slot to its outcome, plus the matched matrix row's
// remarks passed through unchanged for staff display.
type RoutineResult struct {
	Slots         map[Slot]SlotResult `json:"slots"`
	Remarks       string              `json:"remarks,omitempty"`
	MatrixEntryID string              `json:"matrix_entry_id,omitempty"`
	Warnings      []Warning           `json:"warnings,omitempty"`
}

// ComposeRoutine resolves the five routine slots for one classified concern.
// The matrix row is resolved once and shared across slots. Per slot, the
// candidate is the row's slot product, else the skin-type default, else the
// slot stays unfilled. A candidate that fails the safety check is excluded
// outright; there is no tier beyond matrix-specific then skin-type default,
// so an excluded slot is handed to the consultant rather than silently
// substituted. Each slot resolves independently of the other four.
func ComposeRoutine(in ComposeInput) RoutineResult {
	result := RoutineResult{Slots: make(map[Slot]SlotResult, 5)}

	entry, found := ResolveEntry(in.Entries, in.Concern, in.SubtypeID, in.SkinType, in.Band)
	if found {
		result.Remarks = entry.Remarks
		result.MatrixEntryID = entry.ID
	}

	for _, slot := range Slots() {
		candidate := ""
		if found {
			candidate = entry.SlotProduct(string(slot))
		}
		if candidate == "" {
			candidate, _ = ResolveDefault(in.Defaults, in.SkinType, slot)
		}
		if candidate == "" {
			result.Slots[slot] = SlotResult{Status: SlotUnfilled}
			continue
		}

		product, ok := in.Catalogue.Get(candidate)
		if !ok {
			result.Slots[slot] = SlotResult{Status: SlotUnfilled}
			result.Warnings = append(result.Warnings, Warning{
				Concern:   in.Concern,
				SubtypeID: in.SubtypeID,
				SkinType:  in.SkinType,
				Band:      in.Band,
				Slot:      slot,
				ProductID: candidate,
			})
			continue
		}

		if reason := CheckSafety(product, in.Profile); reason != ReasonNone {
			result.Slots[slot] = SlotResult{Status: SlotExcluded, ProductID: product.ID, Reason: reason}
			continue
		}

		result.Slots[slot] = SlotResult{Status: SlotResolved, ProductID: product.ID}
	}

	return result
}
