// Package config holds the pipeline configuration: the directory layout under
// BASE_DIR, similarity thresholds, discovery limits, and the source registry.
// Values load from environment variables with sensible defaults; the registry
// can additionally be overridden from a YAML file.
package config

import (
	"path/filepath"
	"time"

	"veritas-scraper/pkg/config"
)

// Default thresholds and limits. The scattered historical variants (0.75 vs
// 0.80 match threshold, 6 vs 7 stagnant pages) are fixed to one canonical set.
const (
	DefaultMatchThreshold    = 0.75
	DefaultInternalThreshold = 0.70
	DefaultStagnationLimit   = 6
	DefaultMaxPages          = 10
	DefaultListingBound      = 300
	DefaultEncodeBatchSize   = 32
	DefaultCycleInterval     = 900 * time.Second
	DefaultEncoderModel      = "paraphrase-multilingual-MiniLM-L12-v2"
)

// Pipeline is the aggregate configuration passed to every stage.
type Pipeline struct {
	// BaseDir is the root under which all pipeline state lives.
	BaseDir string

	// MatchThreshold is the attachment similarity threshold.
	MatchThreshold float64

	// InternalThreshold is the minimum pairwise similarity inside a persisted group.
	InternalThreshold float64

	// StagnationLimit is how many consecutive listing pages may add zero new
	// URLs before pagination stops early.
	StagnationLimit int

	// MaxPages bounds paginated HTML discovery.
	MaxPages int

	// ListingBound caps the candidate URLs collected per source per cycle.
	ListingBound int

	// EncodeBatchSize is the encoder batch size.
	EncodeBatchSize int

	// CycleInterval is the sleep between orchestrator cycles.
	CycleInterval time.Duration

	// EncoderModel names the sentence-encoder model the encoder service hosts.
	EncoderModel string

	// EncoderURL is the HTTP endpoint of the sentence-encoder service.
	EncoderURL string

	// GeminiAPIKeys is the rotation pool for the objectification stage.
	GeminiAPIKeys []string

	// InsertURL is the backend endpoint objectified articles are POSTed to.
	InsertURL string

	// ObjectifyEnabled gates the summarize-and-send stage of each cycle.
	ObjectifyEnabled bool

	// MaxInflightFetches bounds the total concurrent article fetches across sources.
	MaxInflightFetches int

	// PerSourceFetches bounds concurrent article fetches within one source.
	PerSourceFetches int

	// SaveWorkers bounds concurrent record writes per source.
	SaveWorkers int
}

// Load builds the Pipeline configuration from environment variables.
func Load() Pipeline {
	return Pipeline{
		BaseDir:            config.GetEnvString("BASE_DIR", "./data"),
		MatchThreshold:     config.GetEnvFloat("MATCH_THRESHOLD", DefaultMatchThreshold),
		InternalThreshold:  config.GetEnvFloat("INTERNAL_THRESHOLD", DefaultInternalThreshold),
		StagnationLimit:    config.GetEnvInt("STAGNATION_LIMIT", DefaultStagnationLimit),
		MaxPages:           config.GetEnvInt("MAX_PAGES", DefaultMaxPages),
		ListingBound:       config.GetEnvInt("LISTING_BOUND", DefaultListingBound),
		EncodeBatchSize:    config.GetEnvInt("ENCODE_BATCH_SIZE", DefaultEncodeBatchSize),
		CycleInterval:      config.GetEnvDuration("CYCLE_INTERVAL", DefaultCycleInterval),
		EncoderModel:       config.GetEnvString("ENCODER_MODEL", DefaultEncoderModel),
		EncoderURL:         config.GetEnvString("ENCODER_URL", "http://localhost:8081/encode"),
		GeminiAPIKeys:      config.GetEnvStringList("GEMINI_API_KEYS", nil),
		InsertURL:          config.GetEnvString("INSERT_URL", "http://localhost:8000/api/insert_single_article/"),
		ObjectifyEnabled:   config.GetEnvBool("OBJECTIFY_ENABLED", false),
		MaxInflightFetches: config.GetEnvInt("MAX_INFLIGHT_FETCHES", 64),
		PerSourceFetches:   config.GetEnvInt("PER_SOURCE_FETCHES", 8),
		SaveWorkers:        config.GetEnvInt("SAVE_WORKERS", 5),
	}
}

// PulledDir is where RawArticle records and URL ledgers are written.
func (p Pipeline) PulledDir() string {
	return filepath.Join(p.BaseDir, "pulled_articles")
}

// GroupedDir is the group-store root holding group_{N}/ and still_unmatched/.
func (p Pipeline) GroupedDir() string {
	return filepath.Join(p.BaseDir, "grouped_articles_updated")
}

// ObjectifiedDir is where objectified article folders are written.
func (p Pipeline) ObjectifiedDir() string {
	return filepath.Join(p.BaseDir, "objectified_jsons")
}

// CacheFile is the persistent embedding cache path.
func (p Pipeline) CacheFile() string {
	return filepath.Join(p.BaseDir, "embedding_cache.json")
}

// ScraperLogFile is the append-only cycle summary log.
func (p Pipeline) ScraperLogFile() string {
	return filepath.Join(p.BaseDir, "scraper_log.txt")
}

// NewArticlesLogFile lists the record paths written during the current cycle.
func (p Pipeline) NewArticlesLogFile() string {
	return filepath.Join(p.BaseDir, "new_articles_log.txt")
}
