// Package scoring decides whether an email is worth surfacing and how heavy it is.
//
// Two scores come out of a single pass and are never merged: the relevance score
// (a floored, additive keyword tally gating display) and the mental-load score
// (a 0-100 severity derived from category, priority and urgency words).
package scoring

import (
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// batchParallelThreshold is the batch size above which ScoreBatch fans out.
const batchParallelThreshold = 64

// ScoredEmail is the verdict for one EmailRecord.
type ScoredEmail struct {
	Score           int      `json:"score"`
	MentalLoadScore int      `json:"mentalLoadScore"`
	Category        string   `json:"category"`
	Priority        string   `json:"priority"`
	ShouldDisplay   bool     `json:"shouldDisplay"`
	Icon            string   `json:"icon"`
	Signals         []string `json:"signals"`
	RuleVersion     string   `json:"ruleVersion"`
}

// Scorer is immutable once built and safe for concurrent use.
type Scorer struct {
	rules RuleSet
	icons IconSet
}

// New builds a Scorer over the given tables. The tables are copied so later changes
// by the caller do not leak in.
func New(rules RuleSet, icons IconSet) *Scorer {
	return &Scorer{rules: cloneRuleSet(rules), icons: cloneIconSet(icons)}
}

// Default returns a Scorer over the built-in tables.
func Default() *Scorer {
	return New(DefaultRuleSet(), DefaultIconSet())
}

// Load builds a Scorer from a YAML rule file over the built-in tables. An
// empty path gives the built-in rules.
func Load(path string) (*Scorer, error) {
	rules, err := LoadRuleSet(path)
	if err != nil {
		return nil, err
	}
	return New(rules, DefaultIconSet()), nil
}

// Rules returns a copy of the active rule set.
func (s *Scorer) Rules() RuleSet {
	return cloneRuleSet(s.rules)
}

// Threshold is the minimum relevance score for display.
func (s *Scorer) Threshold() int {
	return s.rules.DisplayThreshold
}

// WithThreshold returns a copy of s using another display threshold.
func (s *Scorer) WithThreshold(threshold int) *Scorer {
	if threshold < 0 {
		threshold = 0
	}
	rules := cloneRuleSet(s.rules)
	rules.DisplayThreshold = threshold
	return &Scorer{rules: rules, icons: s.icons}
}

// Score classifies one record. It never fails.
func (s *Scorer) Score(rec EmailRecord) ScoredEmail {
	sig := s.Extract(rec)
	score, fired := s.RelevanceScore(sig)
	category := canonicalCategory(rec.Category)

	return ScoredEmail{
		Score:           score,
		MentalLoadScore: s.MentalLoad(rec.Category, rec.Priority, rec.Snippet),
		Category:        category,
		Priority:        canonicalPriority(rec.Priority),
		ShouldDisplay:   score >= s.rules.DisplayThreshold,
		Icon:            s.Icon(category, rec.Sender, rec.Subject),
		Signals:         fired,
		RuleVersion:     s.rules.Version,
	}
}

// ScoreBatch scores records preserving their order. Large batches are spread over
// the available CPUs.
func (s *Scorer) ScoreBatch(records []EmailRecord) []ScoredEmail {
	out := make([]ScoredEmail, len(records))
	if len(records) <= batchParallelThreshold {
		for i, rec := range records {
			out[i] = s.Score(rec)
		}
		return out
	}

	workers := runtime.GOMAXPROCS(0)
	var g errgroup.Group
	g.SetLimit(workers)
	chunk := (len(records) + workers - 1) / workers
	for start := 0; start < len(records); start += chunk {
		start, end := start, min(start+chunk, len(records))
		g.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = s.Score(records[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func canonicalCategory(category string) string {
	c := strings.Join(strings.Fields(strings.ToLower(category)), " ")
	if c == "" {
		return "general"
	}
	return c
}

func canonicalPriority(priority string) string {
	p := strings.ToLower(strings.TrimSpace(priority))
	if p == "" {
		return "medium"
	}
	return p
}

func cloneRuleSet(r RuleSet) RuleSet {
	out := r
	out.Bonuses = make([]KeywordRule, len(r.Bonuses))
	for i, b := range r.Bonuses {
		b.Patterns = lowerAll(b.Patterns)
		out.Bonuses[i] = b
	}
	out.Personal.BulkSenders = lowerAll(r.Personal.BulkSenders)
	out.Personal.PromoText = lowerAll(r.Personal.PromoText)
	out.Manipulation.Patterns = lowerAll(r.Manipulation.Patterns)
	out.Noise.SenderPatterns = lowerAll(r.Noise.SenderPatterns)
	out.Noise.TextPatterns = lowerAll(r.Noise.TextPatterns)
	out.Promotional.Patterns = lowerAll(r.Promotional.Patterns)
	out.MentalLoad.CategoryBase = cloneMap(r.MentalLoad.CategoryBase)
	out.MentalLoad.PriorityFactor = cloneMap(r.MentalLoad.PriorityFactor)
	out.MentalLoad.UrgencyTerms = lowerAll(r.MentalLoad.UrgencyTerms)
	out.MentalLoad.StressTerms = lowerAll(r.MentalLoad.StressTerms)
	return out
}

// lowerAll copies patterns, case-folding them to match the lowered text.
func lowerAll(patterns []string) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = strings.ToLower(p)
	}
	return out
}

func cloneIconSet(i IconSet) IconSet {
	return IconSet{
		Brands:     append([]BrandIcon(nil), i.Brands...),
		Categories: cloneMap(i.Categories),
		Default:    i.Default,
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
