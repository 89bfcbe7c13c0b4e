package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/crowd-list/app/database"
	"github.com/lysyi3m/crowd-list/app/feed"
)

type IngestFilingsTask struct {
	Task
	WatchConfig *feed.Config
	pipeline    *Pipeline
	result      *Result
}

func NewIngestFilingsTask(watchConfig *feed.Config, pipeline *Pipeline) *IngestFilingsTask {
	return &IngestFilingsTask{
		Task:        NewTask(TaskTypeIngestFilings, watchConfig.Name),
		WatchConfig: watchConfig,
		pipeline:    pipeline,
	}
}

// Result returns the outcome of the last Execute call.
func (t *IngestFilingsTask) Result() *Result {
	return t.result
}

func (t *IngestFilingsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.WatchConfig.Settings.Enabled {
		slog.Debug("Watch disabled, skipping", "watch", t.WatchName)
		return nil
	}

	result, err := t.Run(ctx)
	t.result = result
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"watch", t.WatchName,
		"duration", t.GetDuration(),
		"entries", result.Entries,
		"matched", result.Matched,
		"created", result.Created,
		"duplicates", result.Duplicates,
		"errors", result.ErrorCount())

	return nil
}

// Run performs one ingestion: fetch the feed, keep the watch's filings,
// locate and extract their primary documents, then store every offering not
// already in the backend. Only a feed fetch failure (or a held run lock)
// ends the run early; everything else is counted in the Result and the run
// moves on to the next filing.
func (t *IngestFilingsTask) Run(ctx context.Context) (*Result, error) {
	p := t.pipeline

	if p.lock != nil {
		release, err := p.lock.TryAcquire()
		if err != nil {
			return nil, err
		}
		defer release()
	}

	result := &Result{Watch: t.WatchConfig.Name, StartedAt: time.Now().UTC()}
	defer func() {
		result.Duration = time.Since(result.StartedAt)
		p.setLastResult(result)
	}()

	entries, err := p.fetcher.Run(ctx, t.WatchConfig.URL)
	if err != nil {
		result.addFailure(StageFetching, t.WatchConfig.URL, err)
		return result, err
	}
	result.Entries = len(entries)

	matched := p.filterer.Run(entries, t.WatchConfig)
	if limit := t.WatchConfig.Settings.MaxItems; limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	result.Matched = len(matched)

	docURLs := t.locate(matched, result)
	offerings := t.extract(ctx, docURLs, result)

	for _, offering := range offerings {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("run interrupted: %w", err)
		}
		t.store(ctx, offering, result)
	}

	return result, nil
}

func (t *IngestFilingsTask) locate(entries []feed.Entry, result *Result) []string {
	seen := make(map[string]bool, len(entries))
	docURLs := make([]string, 0, len(entries))

	for _, entry := range entries {
		docURL, err := t.pipeline.locator.Run(entry)
		if err != nil {
			slog.Warn("Skipping entry with malformed link", "watch", t.WatchName, "title", entry.Title, "link", entry.Link, "error", err)
			result.LocateErrors++
			result.addFailure(StageLocating, entry.Link, err)
			continue
		}

		// EDGAR lists a filing once per role (issuer, filer agent)
		if seen[docURL] {
			slog.Debug("Filing listed more than once", "watch", t.WatchName, "url", docURL)
			result.Duplicates++
			continue
		}
		seen[docURL] = true
		docURLs = append(docURLs, docURL)
	}

	result.Located = len(docURLs)
	return docURLs
}

// extract fetches documents concurrently but returns offerings in feed order.
func (t *IngestFilingsTask) extract(ctx context.Context, docURLs []string, result *Result) []*feed.Offering {
	p := t.pipeline
	offerings := make([]*feed.Offering, len(docURLs))
	errs := make([]error, len(docURLs))

	var g errgroup.Group
	g.SetLimit(p.extractWorkers)

	for i, docURL := range docURLs {
		g.Go(func() error {
			offering, err := p.extractor.Run(ctx, docURL)
			if err != nil {
				errs[i] = err
				return nil
			}
			if p.enricher != nil {
				p.enricher.Run(ctx, offering)
			}
			offerings[i] = offering
			return nil
		})
	}
	_ = g.Wait()

	extracted := make([]*feed.Offering, 0, len(docURLs))
	for i, docURL := range docURLs {
		if err := errs[i]; err != nil {
			var missing *feed.MissingFieldError
			if errors.As(err, &missing) {
				slog.Warn("Skipping filing with incomplete primary document", "watch", t.WatchName, "url", docURL, "path", missing.Path)
			} else {
				slog.Error("Failed to extract primary document", "watch", t.WatchName, "url", docURL, "error", err)
			}
			result.ExtractErrors++
			result.addFailure(StageExtracting, docURL, err)
			continue
		}
		extracted = append(extracted, offerings[i])
	}

	result.Extracted = len(extracted)
	return extracted
}

func (t *IngestFilingsTask) store(ctx context.Context, offering *feed.Offering, result *Result) {
	repo := t.pipeline.repo

	exists, err := repo.Exists(ctx, offering.CompanyCIK, offering.DeadlineDate)
	if err != nil {
		queryErr := &BackendQueryError{CompanyCIK: offering.CompanyCIK, DeadlineDate: offering.DeadlineDate, Err: err}
		slog.Error("Duplicate check failed, offering not stored", "watch", t.WatchName, "error", queryErr)
		result.QueryErrors++
		result.addFailure(StageChecking, offering.DocumentURL, queryErr)
		return
	}

	if exists {
		slog.Info("Offering already stored", "watch", t.WatchName, "cik", offering.CompanyCIK, "deadline", offering.DeadlineDate)
		result.Duplicates++
		return
	}

	id, err := repo.Create(ctx, toRecord(offering))
	if err != nil {
		writeErr := &BackendWriteError{CompanyCIK: offering.CompanyCIK, DeadlineDate: offering.DeadlineDate, Err: err}
		slog.Error("Failed to store offering", "watch", t.WatchName, "error", writeErr)
		result.WriteErrors++
		result.addFailure(StagePersisting, offering.DocumentURL, writeErr)
		return
	}

	slog.Info("Offering stored", "watch", t.WatchName, "id", id, "cik", offering.CompanyCIK, "company", offering.CompanyName, "deadline", offering.DeadlineDate)
	result.Created++
}

func toRecord(offering *feed.Offering) database.Offering {
	return database.Offering{
		CompanyCIK:        offering.CompanyCIK,
		CompanyName:       offering.CompanyName,
		CompanyURL:        offering.CompanyURL,
		LiveStatus:        offering.LiveStatus,
		FundingPortal:     offering.FundingPortal,
		MaxOfferingAmount: offering.MaxOfferingAmount,
		PricePerShare:     offering.PricePerShare,
		CompanyState:      offering.CompanyState,
		DeadlineDate:      offering.DeadlineDate,
		SignatureDate:     offering.SignatureDate,
		DocumentURL:       offering.DocumentURL,
		Summary:           offering.Summary,
	}
}
