package scoring

// RelevanceScore applies every rule cumulatively and returns the floored score
// together with the names of the rules that fired, in evaluation order.
func (s *Scorer) RelevanceScore(sig Signals) (int, []string) {
	r := &s.rules
	total := 0
	var fired []string

	hit := func(name string, weight int) {
		total += weight
		fired = append(fired, name)
	}

	for _, b := range r.Bonuses {
		if containsAny(sig.CombinedText, b.Patterns) {
			hit(b.Name, b.Weight)
		}
	}
	if sig.IsPersonalSender {
		hit(RulePersonalSender, r.Personal.Weight)
	}

	// Occurrence-counted, unlike every other family.
	if countAll(sig.CombinedText, r.Manipulation.Patterns) >= r.Manipulation.MinMatches {
		hit(r.Manipulation.Name, r.Manipulation.Weight)
	}
	if containsAny(sig.SenderLower, r.Noise.SenderPatterns) || containsAny(sig.CombinedText, r.Noise.TextPatterns) {
		hit(r.Noise.Name, r.Noise.Weight)
	}
	if containsAny(sig.CombinedText, r.Promotional.Patterns) {
		hit(r.Promotional.Name, r.Promotional.Weight)
	}

	if total < 0 {
		total = 0
	}
	return total, fired
}
