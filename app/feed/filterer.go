package feed

import (
	"strings"
)

// DefaultMarker is the title prefix EDGAR uses for Form C filings.
const DefaultMarker = "C -"

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run keeps the entries whose title starts with the watch's form marker.
// The match is exact and case-sensitive: "C-U -" and "C/A -" are different
// filing types and must not slip through a "C -" watch.
func (f *Filterer) Run(entries []Entry, feedConfig *Config) []Entry {
	marker := feedConfig.Marker
	if marker == "" {
		marker = DefaultMarker
	}

	matched := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if f.matchesMarker(entry.Title, marker) {
			matched = append(matched, entry)
		}
	}

	return matched
}

func (f *Filterer) matchesMarker(title, marker string) bool {
	return strings.HasPrefix(title, marker)
}
