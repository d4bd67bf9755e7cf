package fuzzy_test

import (
	"testing"

	"github.com/draup/assetexplorer/explorer/pkg/fuzzy"
	"github.com/stretchr/testify/assert"
)

func TestRank_Tiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		query string
		tier  fuzzy.Tier
	}{
		{"case sensitive equal", "Azuki", "Azuki", fuzzy.CaseSensitiveEqual},
		{"equal", "Azuki", "azuki", fuzzy.Equal},
		{"starts with", "Bored Ape Yacht Club", "bored", fuzzy.StartsWith},
		{"word starts with", "Bored Ape Yacht Club", "yacht", fuzzy.WordStartsWith},
		{"contains", "CryptoPunks", "punk", fuzzy.Contains},
		{"acronym", "Bored Ape Yacht Club", "bayc", fuzzy.Acronym},
		{"hyphen acronym", "mutant-ape yacht", "may", fuzzy.Acronym},
		{"subsequence", "CryptoPunks", "cpk", fuzzy.Matches},
		{"no match", "CryptoPunks", "zzz", fuzzy.NoMatch},
		{"single char not contained", "Azuki", "q", fuzzy.NoMatch},
		{"query longer than value", "ape", "apes!", fuzzy.NoMatch},
		{"diacritics folded", "Café Society", "cafe", fuzzy.StartsWith},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := fuzzy.Rank(tt.value, tt.query)
			assert.Equal(t, tt.tier, r.Tier, "rank %v", r.Rank)
			assert.Equal(t, tt.tier != fuzzy.NoMatch, r.Passed)
		})
	}
}

func TestRank_CloserMatchesRankHigher(t *testing.T) {
	t.Parallel()

	tight := fuzzy.Rank("a1b1c", "abc")
	loose := fuzzy.Rank("a111b111c", "abc")
	assert.True(t, tight.Passed)
	assert.True(t, loose.Passed)
	assert.Greater(t, tight.Rank, loose.Rank)
	assert.Less(t, tight.Rank, float64(fuzzy.Acronym))

	contains := fuzzy.Rank("xxabcxx", "abc")
	assert.Greater(t, contains.Rank, tight.Rank)
}

func TestRank_Deterministic(t *testing.T) {
	t.Parallel()

	for range 5 {
		assert.Equal(t, fuzzy.Rank("Bored Ape Yacht Club", "bac"), fuzzy.Rank("Bored Ape Yacht Club", "bac"))
	}
}

func TestBest(t *testing.T) {
	t.Parallel()

	r := fuzzy.Best([]string{"0xabc", "Azuki", "Minted"}, "azu")
	assert.Equal(t, fuzzy.StartsWith, r.Tier)

	r = fuzzy.Best(nil, "azu")
	assert.False(t, r.Passed)
	assert.Equal(t, fuzzy.NoMatch, r.Tier)
}

func TestTier_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "acronym", fuzzy.Acronym.String())
	assert.Equal(t, "no-match", fuzzy.NoMatch.String())
}
