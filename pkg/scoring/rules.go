package scoring

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuleVersion identifies the default weight tables. Bump it whenever a weight or
// pattern changes so stored verdicts can be told apart.
const RuleVersion = "2024.1"

// DefaultDisplayThreshold is the relevance score an email needs to be surfaced.
const DefaultDisplayThreshold = 6

// Rule names, reported in ScoredEmail.Signals.
const (
	RuleFamilySchool      = "family_school"
	RuleClubCommunity     = "club_community"
	RulePersonalSender    = "personal_sender"
	RuleOrderConfirmation = "order_confirmation"
	RuleFinanceMedical    = "finance_medical"
	RuleCalendarEvent     = "calendar_event"
	RuleManipulation      = "manipulation"
	RuleNoiseSender       = "noise_sender"
	RulePromotional       = "promotional"
)

// KeywordRule adds Weight once when any pattern occurs in the combined text.
type KeywordRule struct {
	Name     string   `yaml:"name" json:"name"`
	Weight   int      `yaml:"weight" json:"weight"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// PersonalRule rewards mail that looks like it was written by a person.
type PersonalRule struct {
	Weight int `yaml:"weight" json:"weight"`
	// BulkSenders disqualify a sender address.
	BulkSenders []string `yaml:"bulk_senders" json:"bulk_senders"`
	// PromoText disqualifies the message when found in subject or snippet.
	PromoText []string `yaml:"promo_text" json:"promo_text"`
}

// CountRule fires when the total number of pattern occurrences reaches MinMatches.
type CountRule struct {
	Name       string   `yaml:"name" json:"name"`
	Weight     int      `yaml:"weight" json:"weight"`
	MinMatches int      `yaml:"min_matches" json:"min_matches"`
	Patterns   []string `yaml:"patterns" json:"patterns"`
}

// SenderOrTextRule fires when the sender matches SenderPatterns or the combined
// text matches TextPatterns.
type SenderOrTextRule struct {
	Name           string   `yaml:"name" json:"name"`
	Weight         int      `yaml:"weight" json:"weight"`
	SenderPatterns []string `yaml:"sender_patterns" json:"sender_patterns"`
	TextPatterns   []string `yaml:"text_patterns" json:"text_patterns"`
}

// MentalLoadRules drive the 0-100 severity score.
type MentalLoadRules struct {
	CategoryBase   map[string]float64 `yaml:"category_base" json:"category_base"`
	DefaultBase    float64            `yaml:"default_base" json:"default_base"`
	PriorityFactor map[string]float64 `yaml:"priority_factor" json:"priority_factor"`
	DefaultFactor  float64            `yaml:"default_factor" json:"default_factor"`
	UrgencyBonus   float64            `yaml:"urgency_bonus" json:"urgency_bonus"`
	UrgencyTerms   []string           `yaml:"urgency_terms" json:"urgency_terms"`
	StressBonus    float64            `yaml:"stress_bonus" json:"stress_bonus"`
	StressTerms    []string           `yaml:"stress_terms" json:"stress_terms"`
	Max            float64            `yaml:"max" json:"max"`
}

// RuleSet is the complete, immutable configuration of a Scorer.
type RuleSet struct {
	Version          string `yaml:"version" json:"version"`
	DisplayThreshold int    `yaml:"display_threshold" json:"display_threshold"`

	// Bonus families, applied in order, each at most once.
	Bonuses  []KeywordRule `yaml:"bonuses" json:"bonuses"`
	Personal PersonalRule  `yaml:"personal" json:"personal"`

	Manipulation CountRule        `yaml:"manipulation" json:"manipulation"`
	Noise        SenderOrTextRule `yaml:"noise" json:"noise"`
	Promotional  KeywordRule      `yaml:"promotional" json:"promotional"`

	MentalLoad MentalLoadRules `yaml:"mental_load" json:"mental_load"`
}

// DefaultRuleSet returns a fresh copy of the built-in tables.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Version:          RuleVersion,
		DisplayThreshold: DefaultDisplayThreshold,
		Bonuses: []KeywordRule{
			{
				Name:   RuleFamilySchool,
				Weight: 10,
				Patterns: []string{
					"school", "pta", "classroom", "field trip", "camp", "tuition", "signup",
					"parent", "teacher", "student", "homework", "grades", "conference",
				},
			},
			{
				Name:   RuleClubCommunity,
				Weight: 8,
				Patterns: []string{
					"golf", "club", "league", "practice", "team", "volunteer", "community",
					"meeting", "event", "tournament", "registration",
				},
			},
			{
				Name:   RuleOrderConfirmation,
				Weight: 6,
				Patterns: []string{
					"order confirmed", "shipped", "tracking", "receipt", "purchase", "delivery",
					"your order",
				},
			},
			{
				Name:   RuleFinanceMedical,
				Weight: 5,
				Patterns: []string{
					"copay", "insurance", "invoice", "bill", "statement", "payment", "account",
					"balance", "medical", "appointment", "doctor", "dentist",
				},
			},
			{
				Name:   RuleCalendarEvent,
				Weight: 4,
				Patterns: []string{
					"calendar", "meeting", "appointment", "schedule", "rsvp", "save the date",
					"reminder",
				},
			},
		},
		Personal: PersonalRule{
			Weight:      7,
			BulkSenders: []string{"noreply", "no-reply", "mailchimp", "constantcontact"},
			PromoText:   []string{"unsubscribe", "marketing", "promotion"},
		},
		Manipulation: CountRule{
			Name:       RuleManipulation,
			Weight:     -4,
			MinMatches: 2,
			Patterns: []string{
				"urgent", "limited time", "act now", "expires", "don't miss", "final notice",
				"last chance",
			},
		},
		Noise: SenderOrTextRule{
			Name:           RuleNoiseSender,
			Weight:         -3,
			SenderPatterns: []string{"noreply", "no-reply", "mailchimp", "constantcontact"},
			TextPatterns:   []string{"unsubscribe", "marketing blast", "newsletter", "promotional"},
		},
		Promotional: KeywordRule{
			Name:   RulePromotional,
			Weight: -2,
			Patterns: []string{
				"newsletter", "weekly digest", "marketing", "promotion", "deal", "sale", "% off",
				"discount",
			},
		},
		MentalLoad: MentalLoadRules{
			CategoryBase: map[string]float64{
				"medical":       85,
				"family":        80,
				"finance":       80,
				"school":        75,
				"travel":        75,
				"education":     75,
				"home":          70,
				"work":          70,
				"sports":        65,
				"shopping":      60,
				"technology":    55,
				"food":          50,
				"entertainment": 45,
			},
			DefaultBase: 50,
			PriorityFactor: map[string]float64{
				"high":   1.3,
				"medium": 1.0,
				"low":    0.7,
			},
			DefaultFactor: 1.0,
			UrgencyBonus:  10,
			UrgencyTerms:  []string{"urgent", "deadline", "tomorrow", "today", "asap", "immediately"},
			StressBonus:   5,
			StressTerms:   []string{"conflict", "problem", "issue", "failure", "error", "missing"},
			Max:           100,
		},
	}
}

// Validate reports configuration mistakes that would make scores meaningless.
func (r RuleSet) Validate() error {
	var errs []error
	if r.DisplayThreshold < 0 {
		errs = append(errs, fmt.Errorf("display_threshold must be >= 0, got %d", r.DisplayThreshold))
	}
	for _, b := range r.Bonuses {
		if b.Name == "" {
			errs = append(errs, errors.New("bonus rule without name"))
		}
		if len(b.Patterns) == 0 {
			errs = append(errs, fmt.Errorf("bonus rule %q has no patterns", b.Name))
		}
	}
	if r.Manipulation.MinMatches < 1 {
		errs = append(errs, fmt.Errorf("manipulation.min_matches must be >= 1, got %d", r.Manipulation.MinMatches))
	}
	if r.MentalLoad.Max <= 0 || r.MentalLoad.Max > 100 {
		errs = append(errs, fmt.Errorf("mental_load.max must be in (0, 100], got %v", r.MentalLoad.Max))
	}
	if r.MentalLoad.DefaultFactor <= 0 {
		errs = append(errs, fmt.Errorf("mental_load.default_factor must be > 0, got %v", r.MentalLoad.DefaultFactor))
	}
	return errors.Join(errs...)
}

// LoadRuleSet reads a YAML override file. Keys present in the file replace the
// corresponding default tables; absent keys keep their defaults.
func LoadRuleSet(path string) (RuleSet, error) {
	rules := DefaultRuleSet()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rule file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return RuleSet{}, fmt.Errorf("failed to parse rule file %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return RuleSet{}, fmt.Errorf("invalid rule file %s: %w", path, err)
	}
	return rules, nil
}
