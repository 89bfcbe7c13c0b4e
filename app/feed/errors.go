package feed

import "fmt"

// FetchError means the feed itself could not be retrieved or parsed.
// No entries are available, so the whole run stops.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch feed %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MalformedLinkError is returned by the Locator when an entry link does not
// carry the CIK and accession number segments.
type MalformedLinkError struct {
	Link     string
	Segments int
}

func (e *MalformedLinkError) Error() string {
	return fmt.Sprintf("malformed filing link %q: %d path segments, need at least %d", e.Link, e.Segments, minLinkSegments)
}

// MissingFieldError is returned when a primary document lacks a node the
// offering record cannot do without.
type MissingFieldError struct {
	DocumentURL string
	Path        string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %s in %s", e.Path, e.DocumentURL)
}
