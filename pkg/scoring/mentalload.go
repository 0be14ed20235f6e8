package scoring

import (
	"math"
	"strings"
)

// MentalLoad computes the 0-100 severity of an email from its category, its stated
// priority and urgency or stress words in the snippet. It is independent of the
// relevance score.
func (s *Scorer) MentalLoad(category, priority, snippet string) int {
	m := &s.rules.MentalLoad

	base, ok := m.CategoryBase[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		base = m.DefaultBase
	}
	factor, ok := m.PriorityFactor[strings.ToLower(strings.TrimSpace(priority))]
	if !ok {
		factor = m.DefaultFactor
	}

	text := strings.ToLower(snippet)
	bonus := 0.0
	if containsAny(text, m.UrgencyTerms) {
		bonus += m.UrgencyBonus
	}
	if containsAny(text, m.StressTerms) {
		bonus += m.StressBonus
	}

	load := math.Round(math.Min(m.Max, base*factor+bonus))
	if load < 0 {
		return 0
	}
	if load > 100 {
		return 100
	}
	return int(load)
}
