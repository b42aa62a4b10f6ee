package routine

import "salon-consult/backend/internal/store"

// HasSubtypes reports whether a concern is refined into clinical subtypes.
// For the remaining concerns the matrix is keyed on concern alone and the
// subtype dimension is ignored during matching.
func HasSubtypes(c Concern) bool {
	switch c {
	case ConcernAcne, ConcernPigmentation, ConcernScarring:
		return true
	default:
		return false
	}
}

// ResolveEntry finds the matrix row matching all four dimensions exactly.
// The table is sparse, so a miss is a legitimate outcome, not an error. If
// the uniqueness invariant is violated upstream the first match in the
// supplied order wins; duplicates are a data-quality issue, never a crash.
func ResolveEntry(entries []store.MatrixEntry, concern Concern, subtypeID string, skinType SkinType, band Band) (*store.MatrixEntry, bool) {
	for i := range entries {
		entry := &entries[i]
		if entry.Concern != string(concern) {
			continue
		}
		if entry.SkinType != string(skinType) {
			continue
		}
		if entry.Band != string(band) {
			continue
		}
		if HasSubtypes(concern) && entry.SubtypeID != subtypeID {
			continue
		}
		return entry, true
	}
	return nil, false
}
