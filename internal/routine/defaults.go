package routine

import "salon-consult/backend/internal/store"

// ResolveDefault looks up the skin-type-wide fallback product for a slot.
// Absence means "no fallback configured", not an error.
func ResolveDefault(defaults []store.SkinTypeDefault, skinType SkinType, slot Slot) (string, bool) {
	for _, d := range defaults {
		if d.SkinType == string(skinType) && d.Slot == string(slot) && d.ProductID != "" {
			return d.ProductID, true
		}
	}
	return "", false
}
