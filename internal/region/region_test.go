package region_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/desertthunder/enrichr/internal/region"
)

func TestOf(t *testing.T) {
	t.Parallel()

	table := map[string][]string{
		region.NorthAmerica: {"US", "CA", "MX"},
		region.Europe:       {"GB", "FR", "DE", "SE", "IT", "ES", "NL", "NO", "DK", "IE", "BE", "CH"},
		region.Asia:         {"KR", "JP", "CN", "IN", "TW"},
		region.LatinAmerica: {"BR", "AR", "CO", "PR", "CL"},
		region.Oceania:      {"AU", "NZ"},
		region.RestOfWorld:  {"ZA", "NG", "RU", "QM", "XX", "PT", "PL"},
	}

	for want, codes := range table {
		for _, code := range codes {
			t.Run(code, func(t *testing.T) {
				t.Parallel()
				assert.Equal(t, want, region.Of(code))
				assert.Equal(t, want, region.Of(strings.ToLower(code)), "classification is case-insensitive")
			})
		}
	}
}

func TestOfMalformed(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"", "U", "USA", "USUM71204425", " US"} {
		assert.Equal(t, region.Unknown, region.Of(code), "code %q", code)
	}
}

func TestOfMixedCase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, region.Europe, region.Of("Fr"))
	assert.Equal(t, region.Asia, region.Of("jP"))
}

func TestOfCountsRunes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, region.RestOfWorld, region.Of("ÅÖ"))
}

func TestAll(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		region.NorthAmerica,
		region.Europe,
		region.Asia,
		region.LatinAmerica,
		region.Oceania,
		region.RestOfWorld,
		region.Unknown,
	}, region.All())
}
