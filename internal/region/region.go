// Package region buckets two-letter country codes into coarse world regions.
package region

import (
	"strings"
	"unicode/utf8"
)

const (
	NorthAmerica = "North America"
	Europe       = "Europe"
	Asia         = "Asia"
	LatinAmerica = "Latin America"
	Oceania      = "Oceania"
	RestOfWorld  = "Rest of World"
	Unknown      = "Unknown"
)

type group struct {
	label string
	codes map[string]struct{}
}

func newGroup(label string, codes ...string) group {
	g := group{label: label, codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		g.codes[c] = struct{}{}
	}
	return g
}

// groups are checked in order; the first match wins.
var groups = []group{
	newGroup(NorthAmerica, "US", "CA", "MX"),
	newGroup(Europe, "GB", "FR", "DE", "SE", "IT", "ES", "NL", "NO", "DK", "IE", "BE", "CH"),
	newGroup(Asia, "KR", "JP", "CN", "IN", "TW"),
	newGroup(LatinAmerica, "BR", "AR", "CO", "PR", "CL"),
	newGroup(Oceania, "AU", "NZ"),
}

// Of returns the region for a two-letter country code, case-insensitively.
//
// Anything that is not exactly two characters is [Unknown]; well-formed codes outside the known groups are [RestOfWorld].
func Of(code string) string {
	if utf8.RuneCountInString(code) != 2 {
		return Unknown
	}

	code = strings.ToUpper(code)
	for _, g := range groups {
		if _, ok := g.codes[code]; ok {
			return g.label
		}
	}
	return RestOfWorld
}

// All lists every label Of can return, in classification order.
func All() []string {
	labels := make([]string, 0, len(groups)+2)
	for _, g := range groups {
		labels = append(labels, g.label)
	}
	return append(labels, RestOfWorld, Unknown)
}
