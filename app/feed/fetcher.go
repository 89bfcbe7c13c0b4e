package feed

import (
	"context"
	"log/slog"
)

// Fetcher retrieves the EDGAR current-filings feed and returns its entries in
// feed order.
type Fetcher struct {
	client *Client
	parser *Parser
}

func NewFetcher(client *Client, parser *Parser) *Fetcher {
	return &Fetcher{
		client: client,
		parser: parser,
	}
}

func (f *Fetcher) Run(ctx context.Context, feedURL string) ([]Entry, error) {
	data, err := f.client.Get(ctx, feedURL)
	if err != nil {
		return nil, &FetchError{URL: feedURL, Err: err}
	}

	entries, err := f.parser.Run(data)
	if err != nil {
		return nil, &FetchError{URL: feedURL, Err: err}
	}

	slog.Debug("Feed fetched", "url", feedURL, "entries", len(entries))
	return entries, nil
}
