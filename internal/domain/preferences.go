package domain

import "strings"

// ExcludedBy reports the first excluded breed term that appears, case-insensitively,
// as a substring of any of the given breed names. "Pit Bull" therefore also
// excludes "American Pit Bull Terrier". Blank terms never match.
func (p PreferenceProfile) ExcludedBy(breeds []string) (string, bool) {
	for _, term := range p.ExcludedBreeds {
		needle := strings.ToLower(strings.TrimSpace(term))
		if needle == "" {
			continue
		}
		for _, breed := range breeds {
			if strings.Contains(strings.ToLower(breed), needle) {
				return term, true
			}
		}
	}
	return "", false
}
