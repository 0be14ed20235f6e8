package scoring

import "strings"

// Signals is the normalized, case-folded view of an EmailRecord that every rule reads.
type Signals struct {
	SubjectLower     string
	SnippetLower     string
	SenderLower      string
	CombinedText     string
	SenderDomain     string
	IsPersonalSender bool
}

// Extract normalizes a record. It never fails: missing fields are empty strings.
func (s *Scorer) Extract(rec EmailRecord) Signals {
	sig := Signals{
		SubjectLower: strings.ToLower(rec.Subject),
		SnippetLower: strings.ToLower(rec.Snippet),
		SenderLower:  strings.ToLower(strings.TrimSpace(rec.Sender)),
	}
	sig.CombinedText = sig.SubjectLower + " " + sig.SnippetLower
	sig.SenderDomain = senderDomain(sig.SenderLower)
	sig.IsPersonalSender = s.isPersonalSender(sig)
	return sig
}

// senderDomain handles both bare addresses and "Name <user@host>" headers.
func senderDomain(sender string) string {
	at := strings.LastIndex(sender, "@")
	if at < 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(sender[at+1:], ">"))
}

func (s *Scorer) isPersonalSender(sig Signals) bool {
	if sig.SenderLower == "" {
		return false
	}
	if containsAny(sig.SenderLower, s.rules.Personal.BulkSenders) {
		return false
	}
	return !containsAny(sig.CombinedText, s.rules.Personal.PromoText)
}

func containsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func countAll(text string, patterns []string) int {
	n := 0
	for _, p := range patterns {
		if p != "" {
			n += strings.Count(text, p)
		}
	}
	return n
}
