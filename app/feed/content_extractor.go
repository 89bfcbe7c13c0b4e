package feed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

const maxSummaryRunes = 500

// ContentExtractor pulls a short plain-text summary out of an issuer's
// website. The page's own description meta tags win; the readability excerpt
// is the fallback.
type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

func (e *ContentExtractor) Run(data []byte, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	if summary := e.metaDescription(data); summary != "" {
		return truncateRunes(summary, maxSummaryRunes), nil
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	summary := CleanText(article.Excerpt)
	if summary == "" {
		summary = CleanText(article.TextContent)
	}
	if summary == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	return truncateRunes(summary, maxSummaryRunes), nil
}

func (e *ContentExtractor) metaDescription(data []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	for _, selector := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if content := CleanText(doc.Find(selector).First().AttrOr("content", "")); content != "" {
			return content
		}
	}

	return ""
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}

// Summarizer fills Offering.Summary from the issuer website. It is best
// effort: any failure leaves the summary empty.
type Summarizer struct {
	client    DocumentFetcher
	extractor *ContentExtractor
}

func NewSummarizer(client DocumentFetcher, extractor *ContentExtractor) *Summarizer {
	return &Summarizer{
		client:    client,
		extractor: extractor,
	}
}

func (s *Summarizer) Run(ctx context.Context, offering *Offering) {
	site := normalizeWebsite(offering.CompanyURL)
	if site == "" {
		return
	}

	data, err := s.client.Get(ctx, site)
	if err != nil {
		slog.Debug("Issuer website unavailable", "cik", offering.CompanyCIK, "url", site, "error", err)
		return
	}

	summary, err := s.extractor.Run(data, site)
	if err != nil {
		slog.Debug("No summary extracted", "cik", offering.CompanyCIK, "url", site, "error", err)
		return
	}

	offering.Summary = summary
}

// Form C websites are often filed without a scheme ("www.acme.com").
func normalizeWebsite(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(u.Hostname(), ".") || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}
