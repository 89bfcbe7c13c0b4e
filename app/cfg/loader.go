package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Backend configuration
	Backend               string `long:"backend" env:"BACKEND" default:"sqlite" choice:"sqlite" choice:"postgres" choice:"airtable" description:"Storage backend for offerings"`
	DBPath                string `long:"db-path" env:"DB_PATH" default:"./data/crowd-list.db" description:"SQLite database file path"`
	DatabaseURL           string `long:"database-url" env:"DATABASE_URL" description:"Postgres connection URL (postgres backend)"`
	AirtableBaseID        string `long:"airtable-base-id" env:"AIRTABLE_BASE_ID" description:"Airtable base ID (airtable backend)"`
	AirtableAPIKey        string `long:"airtable-api-key" env:"AIRTABLE_API_KEY" description:"Airtable API key; read from the OS keyring when empty"`
	AirtableTable         string `long:"airtable-table" env:"AIRTABLE_TABLE" default:"The List" description:"Airtable table name"`
	AirtableDeadlineField string `long:"airtable-deadline-field" env:"AIRTABLE_DEADLINE_FIELD" default:"Converted Deadline Date" description:"Airtable field compared against the deadline date in duplicate checks"`
	AirtableDeadlineFmt   string `long:"airtable-deadline-layout" env:"AIRTABLE_DEADLINE_LAYOUT" default:"01-02-2006" description:"Go time layout the deadline lookup field renders dates in"`

	// EDGAR access
	FeedURL           string  `long:"feed-url" env:"FEED_URL" default:"https://www.sec.gov/cgi-bin/browse-edgar?action=getcurrent&CIK=&type=C&company=&dateb=&owner=include&start=0&count=100&output=atom" description:"EDGAR current filings feed URL"`
	FormMarker        string  `long:"form-marker" env:"FORM_MARKER" default:"C -" description:"Title prefix identifying original Form C filings"`
	ArchiveRoot       string  `long:"archive-root" env:"ARCHIVE_ROOT" default:"https://www.sec.gov/Archives/edgar/data" description:"EDGAR archive root for primary documents"`
	UserAgent         string  `long:"user-agent" env:"USER_AGENT" default:"Crowd List admin@crowdlist.example" description:"User agent sent to EDGAR (must identify the operator)"`
	RequestTimeout    int     `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"HTTP request timeout in seconds"`
	RequestsPerSecond float64 `long:"requests-per-second" env:"REQUESTS_PER_SECOND" default:"8" description:"Maximum EDGAR requests per second"`
	ExtractWorkers    int     `long:"extract-workers" env:"EXTRACT_WORKERS" default:"4" description:"Primary documents fetched concurrently per run"`
	EnrichSummaries   bool    `long:"enrich-summaries" env:"ENRICH_SUMMARIES" description:"Fetch issuer websites and store a short summary"`

	// Scheduling
	WatchesDir        string `long:"watches-dir" env:"WATCHES_DIR" default:"./watches" description:"Directory containing watch configuration files"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers running ingestion tasks"`
	RunTimeout        int    `long:"run-timeout" env:"RUN_TIMEOUT" default:"600" description:"Timeout in seconds for a single ingestion run"`
	LockFile          string `long:"lock-file" env:"LOCK_FILE" default:"./data/ingest.lock" description:"Lock file serializing ingestion runs"`
	Once              bool   `long:"once" description:"Run the default watch once, print the result and exit"`

	// HTTP server
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Logging and metadata
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`
	LogFile   string `long:"log-file" env:"LOG_FILE" description:"Write logs to this file with rotation instead of stdout"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load reads .env (if present), then the environment and command line.
// It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Backend:               raw.Backend,
		DBPath:                raw.DBPath,
		DatabaseURL:           raw.DatabaseURL,
		AirtableBaseID:        raw.AirtableBaseID,
		AirtableAPIKey:        raw.AirtableAPIKey,
		AirtableTable:         raw.AirtableTable,
		AirtableDeadlineField: raw.AirtableDeadlineField,
		AirtableDeadlineFmt:   raw.AirtableDeadlineFmt,
		FeedURL:               raw.FeedURL,
		FormMarker:            raw.FormMarker,
		ArchiveRoot:           raw.ArchiveRoot,
		UserAgent:             raw.UserAgent,
		RequestTimeout:        time.Duration(raw.RequestTimeout) * time.Second,
		RequestsPerSecond:     raw.RequestsPerSecond,
		ExtractWorkers:        raw.ExtractWorkers,
		EnrichSummaries:       raw.EnrichSummaries,
		WatchesDir:            raw.WatchesDir,
		SchedulerInterval:     raw.SchedulerInterval,
		WorkerCount:           raw.WorkerCount,
		RunTimeout:            time.Duration(raw.RunTimeout) * time.Second,
		LockFile:              raw.LockFile,
		Once:                  raw.Once,
		Port:                  raw.Port,
		APIAccessKey:          raw.APIAccessKey,
		LogFormat:             raw.LogFormat,
		LogFile:               raw.LogFile,
		Timezone:              raw.Timezone,
		Debug:                 raw.Debug,
		Version:               GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func (c *Cfg) validate() error {
	switch c.Backend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("--database-url is required for the postgres backend")
		}
	case BackendAirtable:
		if c.AirtableBaseID == "" {
			return fmt.Errorf("--airtable-base-id is required for the airtable backend")
		}
	}

	if c.UserAgent == "" {
		return fmt.Errorf("--user-agent must not be empty")
	}
	if c.ExtractWorkers < 1 {
		return fmt.Errorf("--extract-workers must be at least 1, got %d", c.ExtractWorkers)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
