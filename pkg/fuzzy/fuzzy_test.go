package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"School", "school", 0},
		{"café", "cafe", 0},
		{"dentist", "dentst", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, LevenshteinDistance(tt.a, tt.b))
		})
	}
}

func TestThreshold(t *testing.T) {
	assert.Equal(t, 1, Threshold("pta"))
	assert.Equal(t, 2, Threshold("soccer"))
	assert.Equal(t, 3, Threshold("insurance"))
}

func TestFuzzyMatch(t *testing.T) {
	assert.True(t, FuzzyMatch("trip", "Field trip permission slip", 1))
	assert.True(t, FuzzyMatch("permision", "Field trip permission slip", 2))
	assert.True(t, FuzzyMatch("perm", "Field trip permission slip", 0))
	assert.False(t, FuzzyMatch("dentist", "Field trip permission slip", 2))
	assert.False(t, FuzzyMatch("", "anything", 2))
}

func TestMatchAny(t *testing.T) {
	assert.True(t, MatchAny("lincon", "Field trip", "teacher@lincoln-elementary.edu lincoln"))
	assert.False(t, MatchAny("golf", "Field trip", "teacher@school.edu"))
}

func TestRank(t *testing.T) {
	subjectHit := Rank("trip", "Field trip tomorrow", "teacher@school.edu", "")
	snippetHit := Rank("trip", "Permission slip", "teacher@school.edu", "for the museum trip")
	typoHit := Rank("tirp", "Field trip tomorrow", "", "")

	assert.Greater(t, subjectHit, snippetHit)
	assert.Greater(t, snippetHit, 0.0)
	assert.Greater(t, typoHit, 0.0)
	assert.Less(t, typoHit, subjectHit)
	assert.Zero(t, Rank("golf", "Field trip", "teacher@school.edu", "museum"))
	assert.Zero(t, Rank("  ", "Field trip", "", ""))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "creme brulee night", Normalize("  Crème   Brûlée\tNight "))
}
