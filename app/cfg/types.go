package cfg

import "time"

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendAirtable = "airtable"
)

type Cfg struct {
	// Backend configuration
	Backend               string
	DBPath                string
	DatabaseURL           string
	AirtableBaseID        string
	AirtableAPIKey        string
	AirtableTable         string
	AirtableDeadlineField string
	AirtableDeadlineFmt   string

	// EDGAR access
	FeedURL           string
	FormMarker        string
	ArchiveRoot       string
	UserAgent         string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	ExtractWorkers    int
	EnrichSummaries   bool

	// Scheduling
	WatchesDir        string
	SchedulerInterval int
	WorkerCount       int
	RunTimeout        time.Duration
	LockFile          string
	Once              bool

	// HTTP server
	Port         string
	APIAccessKey string

	// Logging and metadata
	LogFormat string
	LogFile   string
	Timezone  string
	Debug     bool
	Version   string
}
