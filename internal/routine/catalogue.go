package routine

import "salon-consult/backend/internal/store"

// Catalogue is an in-memory, id-keyed read index over the product table,
// built once per resolution session. It owns nothing and never mutates its
// inputs.
type Catalogue struct {
	products map[string]store.Product
}

// NewCatalogue builds the index from a product snapshot.
func NewCatalogue(products []store.Product) *Catalogue {
	index := make(map[string]store.Product, len(products))
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		index[p.ID] = p
	}
	return &Catalogue{products: index}
}

// Get returns the product for the given id, if present.
func (c *Catalogue) Get(id string) (store.Product, bool) {
	if c == nil {
		return store.Product{}, false
	}
	p, ok := c.products[id]
	return p, ok
}

// Len returns the number of indexed products.
func (c *Catalogue) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// CheckSafety reports the first violated safety condition for the product
// under the given profile, checked in fixed order (pregnancy, isotretinoin,
// barrier compromise) so messaging stays deterministic when several apply.
func CheckSafety(p store.Product, profile SafetyProfile) SafetyReason {
	if profile.Pregnant && p.PregnancyUnsafe {
		return ReasonPregnancy
	}
	if profile.OnIsotretinoin && p.IsotretinoinUnsafe {
		return ReasonIsotretinoin
	}
	if profile.BarrierCompromised && p.BarrierUnsafe {
		return ReasonBarrierCompromise
	}
	return ReasonNone
}

// IsSafeFor is the boolean view of CheckSafety. A product unsafe for any one
// active condition is rejected outright.
func IsSafeFor(p store.Product, profile SafetyProfile) bool {
	return CheckSafety(p, profile) == ReasonNone
}
