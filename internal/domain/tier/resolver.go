package tier

// Resolve maps a contribution amount to the greatest tier whose minimum
// amount does not exceed it. Boundary values are inclusive: an amount equal
// to a tier's threshold belongs to that tier, not the one below. Returns
// false when the amount is below the smallest threshold.
//
// tiers must be ordered ascending by MinAmount, which is how the catalog
// serves them.
func Resolve(amount float64, tiers []*Tier) (*Tier, bool) {
	var match *Tier
	for _, t := range tiers {
		if t.MinAmount > amount {
			break
		}
		match = t
	}
	return match, match != nil
}
