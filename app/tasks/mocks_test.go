package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lysyi3m/crowd-list/app/database"
	"github.com/lysyi3m/crowd-list/app/feed"
)

// MockFeedFetcher returns a fixed set of entries
type MockFeedFetcher struct {
	entries []feed.Entry
	err     error
	calls   int
}

func (m *MockFeedFetcher) Run(ctx context.Context, feedURL string) ([]feed.Entry, error) {
	m.calls++
	if m.err != nil {
		return nil, &feed.FetchError{URL: feedURL, Err: m.err}
	}
	return m.entries, nil
}

// MockDocumentExtractor serves offerings keyed by document URL
type MockDocumentExtractor struct {
	mu        sync.Mutex
	offerings map[string]*feed.Offering
	errs      map[string]error
	calls     []string
}

func (m *MockDocumentExtractor) Run(ctx context.Context, docURL string) (*feed.Offering, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, docURL)
	if err, ok := m.errs[docURL]; ok {
		return nil, err
	}
	offering, ok := m.offerings[docURL]
	if !ok {
		return nil, fmt.Errorf("HTTP error: 404 Not Found")
	}
	copied := *offering
	return &copied, nil
}

// MockOfferingRepository keeps offerings in memory keyed by CIK and deadline
type MockOfferingRepository struct {
	mu         sync.Mutex
	stored     map[string]database.Offering
	order      []string
	existsErrs map[string]error
	createErrs map[string]error
}

func NewMockOfferingRepository() *MockOfferingRepository {
	return &MockOfferingRepository{
		stored:     make(map[string]database.Offering),
		existsErrs: make(map[string]error),
		createErrs: make(map[string]error),
	}
}

func offeringKey(cik, deadline string) string {
	return cik + "|" + deadline
}

func (m *MockOfferingRepository) Exists(ctx context.Context, companyCIK, deadlineDate string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.existsErrs[companyCIK]; err != nil {
		return false, err
	}
	_, ok := m.stored[offeringKey(companyCIK, deadlineDate)]
	return ok, nil
}

func (m *MockOfferingRepository) Create(ctx context.Context, offering database.Offering) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.createErrs[offering.CompanyCIK]; err != nil {
		return "", err
	}
	key := offeringKey(offering.CompanyCIK, offering.DeadlineDate)
	if _, ok := m.stored[key]; ok {
		return "", errors.New("UNIQUE constraint failed")
	}
	m.stored[key] = offering
	m.order = append(m.order, offering.CompanyCIK)
	return "rec" + offering.CompanyCIK, nil
}

func (m *MockOfferingRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stored)
}

// MockEnricher stamps a summary on every offering
type MockEnricher struct {
	mu    sync.Mutex
	calls int
}

func (m *MockEnricher) Run(ctx context.Context, offering *feed.Offering) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	offering.Summary = "summary for " + offering.CompanyName
}

func filingLink(cik, accession string) string {
	return fmt.Sprintf("https://www.sec.gov/Archives/edgar/data/%s/%s/%s-index.htm", cik, accession, accession)
}

func docURL(cik, accession string) string {
	return fmt.Sprintf("%s/%s/%s/primary_doc.xml", feed.DefaultArchiveRoot, cik, accession)
}

func testOffering(cik, name, deadline string) *feed.Offering {
	return &feed.Offering{
		CompanyCIK:   strings.Repeat("0", 10-len(cik)) + cik,
		CompanyName:  name,
		DeadlineDate: deadline,
		LiveStatus:   "LIVE",
	}
}
