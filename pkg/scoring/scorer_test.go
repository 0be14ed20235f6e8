package scoring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_Scenarios(t *testing.T) {
	s := Default()

	tests := []struct {
		name        string
		rec         EmailRecord
		wantScore   int
		wantDisplay bool
		wantSignals []string
	}{
		{
			name: "field trip from teacher",
			rec: EmailRecord{
				Subject: "Field trip permission slip - Due Friday",
				Snippet: "Please sign and return the permission slip for the science museum field trip next week.",
				Sender:  "teacher@lincoln-elementary.edu",
			},
			wantScore:   17,
			wantDisplay: true,
			wantSignals: []string{RuleFamilySchool, RulePersonalSender},
		},
		{
			name: "manipulative marketing floors at zero",
			rec: EmailRecord{
				Subject: "URGENT: Limited time offer - 50% off!",
				Snippet: "Don't miss out! This exclusive deal expires in 24 hours. Act now before it's gone forever!",
				Sender:  "noreply@marketing-blast.com",
			},
			wantScore:   0,
			wantDisplay: false,
			wantSignals: []string{RuleManipulation, RuleNoiseSender, RulePromotional},
		},
		{
			name:        "empty record",
			rec:         EmailRecord{},
			wantScore:   0,
			wantDisplay: false,
		},
		{
			name: "family family stacks once",
			rec: EmailRecord{
				Subject: "School PTA classroom homework grades",
				Snippet: "parent teacher conference for every student",
			},
			wantScore:   10,
			wantDisplay: true,
			wantSignals: []string{RuleFamilySchool},
		},
		{
			name: "order confirmation from bulk sender",
			rec: EmailRecord{
				Subject: "Your order has shipped",
				Snippet: "Tracking number inside",
				Sender:  "no-reply@shop.example",
			},
			// +6 order, -3 noise
			wantScore:   3,
			wantDisplay: false,
			wantSignals: []string{RuleOrderConfirmation, RuleNoiseSender},
		},
		{
			name: "dentist appointment from a person",
			rec: EmailRecord{
				Subject: "Dentist appointment",
				Snippet: "See you Tuesday at 3pm",
				Sender:  "Dr Smith <office@smilecare.com>",
			},
			// +5 finance/medical, +4 calendar, +7 personal
			wantScore:   16,
			wantDisplay: true,
			wantSignals: []string{RuleFinanceMedical, RuleCalendarEvent, RulePersonalSender},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.rec)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantDisplay, got.ShouldDisplay)
			assert.Equal(t, tt.wantSignals, got.Signals)
			assert.Equal(t, RuleVersion, got.RuleVersion)
		})
	}
}

func TestScore_EmptyRecordDefaults(t *testing.T) {
	got := Default().Score(EmailRecord{})

	assert.Equal(t, 0, got.Score)
	assert.False(t, got.ShouldDisplay)
	assert.Equal(t, "general", got.Category)
	assert.Equal(t, "medium", got.Priority)
	assert.Equal(t, 50, got.MentalLoadScore)
	assert.Equal(t, "mail", got.Icon)
}

func TestScore_ManipulationCountsOccurrences(t *testing.T) {
	s := Default()

	once := s.Score(EmailRecord{Subject: "urgent"})
	assert.NotContains(t, once.Signals, RuleManipulation)

	twice := s.Score(EmailRecord{Subject: "urgent", Snippet: "this is urgent"})
	assert.Contains(t, twice.Signals, RuleManipulation)
}

func TestScore_NeverNegative(t *testing.T) {
	s := Default()
	rec := EmailRecord{
		Subject: "URGENT final notice last chance act now",
		Snippet: "newsletter weekly digest marketing blast promotional deal sale 50% off discount unsubscribe",
		Sender:  "news@mailchimp.com",
	}

	got := s.Score(rec)
	assert.Equal(t, 0, got.Score)
	assert.False(t, got.ShouldDisplay)
}

func TestScore_Idempotent(t *testing.T) {
	s := Default()
	rec := EmailRecord{
		Subject:  "Soccer practice moved",
		Snippet:  "Team meeting tomorrow, field conflict",
		Sender:   "coach@league.org",
		Category: "Sports",
		Priority: "High",
	}

	assert.Equal(t, s.Score(rec), s.Score(rec))
}

func TestScore_CanonicalLabels(t *testing.T) {
	got := Default().Score(EmailRecord{Category: "  Home   Repair ", Priority: " URGENT "})

	assert.Equal(t, "home repair", got.Category)
	assert.Equal(t, "urgent", got.Priority)
}

func TestMentalLoad(t *testing.T) {
	s := Default()

	tests := []struct {
		name     string
		category string
		priority string
		snippet  string
		want     int
	}{
		{"medical high urgent conflict", "medical", "high", "urgent appointment conflict", 100},
		{"unspecified", "", "", "see attached photos", 50},
		{"finance low", "Finance", "Low", "", 56},
		{"home high", "home", "HIGH", "", 91},
		{"urgent priority falls back", "work", "urgent", "", 70},
		{"urgency only", "entertainment", "medium", "tickets on sale today", 55},
		{"stress only", "technology", "", "build failure", 60},
		{"both bonuses", "food", "", "deadline missing", 65},
		{"family high capped", "family", "high", "", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.MentalLoad(tt.category, tt.priority, tt.snippet))
		})
	}
}

func TestMentalLoad_AlwaysInRange(t *testing.T) {
	s := Default()
	categories := []string{"", "medical", "family", "entertainment", "unknown"}
	priorities := []string{"", "high", "medium", "low", "urgent"}
	snippets := []string{"", "urgent", "conflict", "asap problem issue error"}

	for _, c := range categories {
		for _, p := range priorities {
			for _, sn := range snippets {
				got := s.MentalLoad(c, p, sn)
				assert.GreaterOrEqual(t, got, 0)
				assert.LessOrEqual(t, got, 100)
			}
		}
	}
}

func TestExtract(t *testing.T) {
	s := Default()

	tests := []struct {
		name         string
		rec          EmailRecord
		wantDomain   string
		wantPersonal bool
	}{
		{"bare address", EmailRecord{Sender: "mom@family.net"}, "family.net", true},
		{"display name", EmailRecord{Sender: "Jane Doe <Jane@Example.COM>"}, "example.com", true},
		{"no at sign", EmailRecord{Sender: "Jane Doe"}, "", true},
		{"empty sender", EmailRecord{}, "", false},
		{"bulk sender", EmailRecord{Sender: "noreply@school.org"}, "school.org", false},
		{"promo text", EmailRecord{Sender: "friend@x.com", Snippet: "click to Unsubscribe"}, "x.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := s.Extract(tt.rec)
			assert.Equal(t, tt.wantDomain, sig.SenderDomain)
			assert.Equal(t, tt.wantPersonal, sig.IsPersonalSender)
			assert.Equal(t, sig.SubjectLower+" "+sig.SnippetLower, sig.CombinedText)
		})
	}
}

func TestIcon(t *testing.T) {
	s := Default()

	assert.Equal(t, "amazon", s.Icon("shopping", "ship-confirm@amazon.com", "Your order"))
	assert.Equal(t, "stethoscope", s.Icon("Medical", "office@clinic.com", "Results"))
	assert.Equal(t, "mail", s.Icon("pets", "vet@clinic.com", "Checkup"))
	assert.Equal(t, "mail", s.Icon("", "", ""))
}

func TestWithThreshold(t *testing.T) {
	base := Default()
	strict := base.WithThreshold(20)

	rec := EmailRecord{Subject: "Field trip", Sender: "teacher@school.edu"}
	assert.True(t, base.Score(rec).ShouldDisplay)
	assert.False(t, strict.Score(rec).ShouldDisplay)
	assert.Equal(t, DefaultDisplayThreshold, base.Threshold())
	assert.Equal(t, 20, strict.Threshold())
	assert.Equal(t, 0, base.WithThreshold(-5).Threshold())
}

func TestNew_CopiesTables(t *testing.T) {
	rules := DefaultRuleSet()
	s := New(rules, DefaultIconSet())

	rules.Bonuses[0].Patterns[0] = "zzz"
	rules.MentalLoad.CategoryBase["medical"] = 1

	assert.Equal(t, 10, s.Score(EmailRecord{Subject: "school"}).Score)
	assert.Equal(t, 85, s.MentalLoad("medical", "", ""))
}

func TestScoreBatch_PreservesOrder(t *testing.T) {
	s := Default()
	records := make([]EmailRecord, 300)
	for i := range records {
		if i%3 == 0 {
			records[i] = EmailRecord{Subject: fmt.Sprintf("PTA meeting %d", i), Sender: "pta@school.org"}
		} else {
			records[i] = EmailRecord{Subject: fmt.Sprintf("Weekly digest %d", i), Sender: "noreply@news.com"}
		}
	}

	got := s.ScoreBatch(records)
	require.Len(t, got, len(records))
	for i, rec := range records {
		assert.Equal(t, s.Score(rec), got[i], "record %d", i)
	}

	assert.Empty(t, s.ScoreBatch(nil))
}

func TestEmailRecord_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want EmailRecord
	}{
		{
			name: "canonical keys",
			in:   `{"subject":"Hi","snippet":"body","sender":"a@b.com","category":"School","priority":"High"}`,
			want: EmailRecord{Subject: "Hi", Snippet: "body", Sender: "a@b.com", Category: "School", Priority: "High"},
		},
		{
			name: "aliases",
			in:   `{"subject":"Hi","summary":"body","from":"a@b.com"}`,
			want: EmailRecord{Subject: "Hi", Snippet: "body", Sender: "a@b.com"},
		},
		{
			name: "capitalized header style keys",
			in:   `{"Subject":"Hi","Snippet":"body","From":"a@b.com","Category":"School","PRIORITY":"High"}`,
			want: EmailRecord{Subject: "Hi", Snippet: "body", Sender: "a@b.com", Category: "School", Priority: "High"},
		},
		{
			name: "exact lowercase key wins",
			in:   `{"Subject":"upper","subject":"lower"}`,
			want: EmailRecord{Subject: "lower"},
		},
		{
			name: "non string values",
			in:   `{"subject":5,"snippet":null,"sender":{"x":1},"priority":true}`,
			want: EmailRecord{},
		},
		{
			name: "null record",
			in:   `null`,
			want: EmailRecord{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got EmailRecord
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmailRecord_CapitalizedKeysScore(t *testing.T) {
	var rec EmailRecord
	in := `{"Subject":"Field trip permission slip - Due Friday","Summary":"Please sign and return the permission slip for the science museum field trip next week.","From":"teacher@lincoln-elementary.edu"}`
	require.NoError(t, json.Unmarshal([]byte(in), &rec))

	got := Default().Score(rec)
	assert.Equal(t, 17, got.Score)
	assert.True(t, got.ShouldDisplay)
}

func TestEmailRecord_UnmarshalBatchWithGarbage(t *testing.T) {
	var got []EmailRecord
	require.NoError(t, json.Unmarshal([]byte(`[{"subject":"ok"}, 42, "text"]`), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "ok", got[0].Subject)
	assert.Equal(t, EmailRecord{}, got[1])
	assert.Equal(t, EmailRecord{}, got[2])
}

func TestLoadRuleSet(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		rules, err := LoadRuleSet("")
		require.NoError(t, err)
		assert.Equal(t, DefaultRuleSet(), rules)
	})

	t.Run("override merges over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		content := "version: household-2\ndisplay_threshold: 10\nmental_load:\n  category_base:\n    pets: 60\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		rules, err := LoadRuleSet(path)
		require.NoError(t, err)
		assert.Equal(t, "household-2", rules.Version)
		assert.Equal(t, 10, rules.DisplayThreshold)
		assert.Equal(t, 60.0, rules.MentalLoad.CategoryBase["pets"])
		assert.Equal(t, 85.0, rules.MentalLoad.CategoryBase["medical"])
		assert.Len(t, rules.Bonuses, 5)

		s := New(rules, DefaultIconSet())
		assert.Equal(t, 60, s.MentalLoad("Pets", "", ""))
	})

	t.Run("invalid override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("manipulation:\n  min_matches: 0\n"), 0o600))

		_, err := LoadRuleSet(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRuleSet(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestRuleSet_Validate(t *testing.T) {
	require.NoError(t, DefaultRuleSet().Validate())

	bad := DefaultRuleSet()
	bad.DisplayThreshold = -1
	bad.Bonuses = append(bad.Bonuses, KeywordRule{Name: "empty"})
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display_threshold")
	assert.Contains(t, err.Error(), "empty")
}
