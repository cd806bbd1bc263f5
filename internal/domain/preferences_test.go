package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcludedBy(t *testing.T) {
	t.Parallel()

	profile := PreferenceProfile{ExcludedBreeds: []string{"Pit Bull Terrier", " husky ", "", "Chihuahua"}}

	tests := []struct {
		name   string
		breeds []string
		term   string
		want   bool
	}{
		{"exact match", []string{"Pit Bull Terrier"}, "Pit Bull Terrier", true},
		{"case insensitive", []string{"PIT BULL TERRIER"}, "Pit Bull Terrier", true},
		{"substring of longer breed", []string{"American Pit Bull Terrier"}, "Pit Bull Terrier", true},
		{"secondary breed", []string{"Labrador Retriever", "Siberian Husky"}, " husky ", true},
		{"term longer than breed", []string{"Pit Bull"}, "", false},
		{"unrelated breed", []string{"Beagle"}, "", false},
		{"no breeds", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, got := profile.ExcludedBy(tt.breeds)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.term, term)
		})
	}
}

func TestExcludedByBlankTermsNeverMatch(t *testing.T) {
	t.Parallel()

	profile := PreferenceProfile{ExcludedBreeds: []string{"", "   "}}
	_, excluded := profile.ExcludedBy([]string{"Beagle"})
	assert.False(t, excluded)
}
