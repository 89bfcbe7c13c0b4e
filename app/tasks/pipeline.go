package tasks

import (
	"sync"
	"time"

	"github.com/lysyi3m/crowd-list/app/database"
	"github.com/lysyi3m/crowd-list/app/feed"
)

// Pipeline holds the collaborators shared by every ingestion run. The
// backend is injected; its lifecycle belongs to the caller.
type Pipeline struct {
	fetcher        FeedFetcher
	filterer       *feed.Filterer
	locator        *feed.Locator
	extractor      DocumentExtractor
	enricher       OfferingEnricher
	repo           database.OfferingRepository
	lock           *RunLock
	extractWorkers int

	mu         sync.RWMutex
	lastResult *Result
}

type PipelineOption func(*Pipeline)

// WithEnricher runs enricher on every extracted offering before storage.
func WithEnricher(enricher OfferingEnricher) PipelineOption {
	return func(p *Pipeline) {
		p.enricher = enricher
	}
}

// WithRunLock makes every run take lock first.
func WithRunLock(lock *RunLock) PipelineOption {
	return func(p *Pipeline) {
		p.lock = lock
	}
}

// WithExtractWorkers sets how many primary documents are fetched at once.
func WithExtractWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.extractWorkers = n
		}
	}
}

func NewPipeline(fetcher FeedFetcher, filterer *feed.Filterer, locator *feed.Locator,
	extractor DocumentExtractor, repo database.OfferingRepository, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		fetcher:        fetcher,
		filterer:       filterer,
		locator:        locator,
		extractor:      extractor,
		repo:           repo,
		extractWorkers: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) LastResult() *Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastResult
}

func (p *Pipeline) setLastResult(result *Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastResult = result
}

// Stage names used in Result failures and logs
const (
	StageFetching   = "fetching"
	StageLocating   = "locating"
	StageExtracting = "extracting"
	StageChecking   = "checking"
	StagePersisting = "persisting"
)

type Failure struct {
	Stage   string `json:"stage"`
	Subject string `json:"subject"`
	Error   string `json:"error"`
}

// Result is the aggregate outcome of one ingestion run.
type Result struct {
	Watch         string        `json:"watch"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Entries       int           `json:"entries"`
	Matched       int           `json:"matched"`
	Located       int           `json:"located"`
	Extracted     int           `json:"extracted"`
	Created       int           `json:"created"`
	Duplicates    int           `json:"duplicates"`
	LocateErrors  int           `json:"locate_errors"`
	ExtractErrors int           `json:"extract_errors"`
	QueryErrors   int           `json:"query_errors"`
	WriteErrors   int           `json:"write_errors"`
	Failures      []Failure     `json:"failures,omitempty"`
}

func (r *Result) ErrorCount() int {
	return r.LocateErrors + r.ExtractErrors + r.QueryErrors + r.WriteErrors
}

func (r *Result) addFailure(stage, subject string, err error) {
	r.Failures = append(r.Failures, Failure{Stage: stage, Subject: subject, Error: err.Error()})
}
