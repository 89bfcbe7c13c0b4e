package feed

import (
	"strings"
)

const (
	DefaultArchiveRoot = "https://www.sec.gov/Archives/edgar/data"

	// A filing index link looks like
	// https://www.sec.gov/Archives/edgar/data/<cik>/<accession>/<accession-dashed>-index.htm
	// which splits on "/" into scheme, "", host, Archives, edgar, data, cik, accession, ...
	minLinkSegments  = 8
	cikSegment       = 6
	accessionSegment = 7

	primaryDocName = "primary_doc.xml"
)

// Locator derives the primary document URL of a filing from its feed entry.
// The positional parsing lives here alone so it can be swapped without
// touching the rest of the pipeline.
type Locator struct {
	archiveRoot string
}

func NewLocator(archiveRoot string) *Locator {
	if archiveRoot == "" {
		archiveRoot = DefaultArchiveRoot
	}
	return &Locator{archiveRoot: strings.TrimRight(archiveRoot, "/")}
}

func (l *Locator) Run(entry Entry) (string, error) {
	segments := strings.Split(entry.Link, "/")
	if len(segments) < minLinkSegments {
		return "", &MalformedLinkError{Link: entry.Link, Segments: len(segments)}
	}

	cik := segments[cikSegment]
	accession := segments[accessionSegment]

	return l.archiveRoot + "/" + cik + "/" + accession + "/" + primaryDocName, nil
}
