package geo

// prefixRange maps an inclusive span of ZIP3 prefixes to a state code.
type prefixRange struct {
	lo, hi int
	state  string
}

// prefixStates is a curated subset of USPS ZIP3 allocations. Prefixes not
// covered here resolve to no state, which skips the statewide tier.
var prefixStates = []prefixRange{
	{10, 27, "MA"},
	{28, 29, "RI"},
	{60, 69, "CT"},
	{70, 89, "NJ"},
	{100, 149, "NY"},
	{150, 196, "PA"},
	{197, 199, "DE"},
	{200, 205, "DC"},
	{206, 219, "MD"},
	{220, 246, "VA"},
	{270, 289, "NC"},
	{290, 299, "SC"},
	{300, 319, "GA"},
	{320, 349, "FL"},
	{350, 369, "AL"},
	{370, 385, "TN"},
	{400, 427, "KY"},
	{430, 458, "OH"},
	{460, 479, "IN"},
	{480, 499, "MI"},
	{500, 528, "IA"},
	{530, 549, "WI"},
	{550, 567, "MN"},
	{600, 629, "IL"},
	{630, 658, "MO"},
	{700, 714, "LA"},
	{730, 749, "OK"},
	{750, 799, "TX"},
	{800, 816, "CO"},
	{840, 847, "UT"},
	{850, 865, "AZ"},
	{889, 898, "NV"},
	{900, 961, "CA"},
	{967, 968, "HI"},
	{970, 979, "OR"},
	{980, 994, "WA"},
	{995, 999, "AK"},
}

// StateForPrefix returns the state code for a three-digit ZIP prefix.
func StateForPrefix(zip3 string) (string, bool) {
	if len(zip3) != 3 {
		return "", false
	}
	n := 0
	for i := 0; i < 3; i++ {
		c := zip3[i]
		if c < '0' || c > '9' {
			return "", false
		}
		n = n*10 + int(c-'0')
	}
	for _, r := range prefixStates {
		if n >= r.lo && n <= r.hi {
			return r.state, true
		}
	}
	return "", false
}
