package domain

// Profile is the registry record kept for every registered identity.
type Profile struct {
	Principal Principal `json:"principal"`
	Name      string    `json:"name"`
	Expertise []string  `json:"expertise"`
	// Reputation is server-maintained; one point per completed review.
	Reputation int `json:"reputation"`
	// ReviewingCount is the number of articles the profile is assigned to and
	// has not yet reviewed. Never negative.
	ReviewingCount int `json:"reviewingCount"`
}

// ExpertiseOverlap counts how many of the given keywords appear in the
// profile's expertise tags. Matching is exact on the normalized tag.
func (p Profile) ExpertiseOverlap(keywords []string) int {
	tags := make(map[string]bool, len(p.Expertise))
	for _, t := range p.Expertise {
		tags[t] = true
	}
	overlap := 0
	for _, k := range keywords {
		if tags[k] {
			overlap++
		}
	}
	return overlap
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	out := p
	out.Expertise = append([]string(nil), p.Expertise...)
	return out
}
