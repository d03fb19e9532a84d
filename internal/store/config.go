package store

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned when the data source API key is not in the environment
var ErrMissingAPIKey = errors.New("data source API key not set")

const weightSumTolerance = 1e-9

type Config struct {
	Paths struct {
		CacheDir   string `yaml:"cache_dir" validate:"required"`
		LogDir     string `yaml:"log_dir" validate:"required"`
		ResultsDir string `yaml:"results_dir" validate:"required"`
	} `yaml:"paths"`
	Files struct {
		QuarterlyEstimates string `yaml:"quarterly_estimates" validate:"required"`
		AnnualEstimates    string `yaml:"annual_estimates" validate:"required"`
		SurpriseResults    string `yaml:"surprise_results" validate:"required"`
		Candidates         string `yaml:"candidates" validate:"required"`
		DatedResultFile    bool   `yaml:"dated_result_file"`
		LogFile            string `yaml:"log_file"`
		MetricsTextfile    string `yaml:"metrics_textfile"`
	} `yaml:"files"`
	Universe struct {
		Index    string   `yaml:"index" validate:"oneof=nasdaq100 sp500"`
		UseCache bool     `yaml:"use_cache"`
		Static   []string `yaml:"static"`
	} `yaml:"universe"`
	Provider struct {
		DataSource        string  `yaml:"data_source" validate:"oneof=LIVE MOCK"`
		BaseURL           string  `yaml:"base_url" validate:"required,url"`
		APIKeyEnv         string  `yaml:"api_key_env" validate:"required"`
		Limit             int     `yaml:"limit" validate:"gt=0"`
		TimeoutSeconds    int     `yaml:"timeout_seconds" validate:"gt=0"`
		RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
		BreakerFailures   int     `yaml:"breaker_failures" validate:"gte=0"`
	} `yaml:"provider"`
	Analysis struct {
		SurpriseWindowDays  int `yaml:"surprise_window_days" validate:"gt=0"`
		UpsideWindowDays    int `yaml:"upside_window_days" validate:"gt=0"`
		MagnitudeWindowDays int `yaml:"magnitude_window_days" validate:"gt=0"`
	} `yaml:"analysis"`
	Weights  Weights `yaml:"weights"`
	Schedule struct {
		Cron     string `yaml:"cron" validate:"required"`
		Timezone string `yaml:"timezone"`
	} `yaml:"schedule"`
}

// Weights maps each ranked metric to its share of the composite score
type Weights struct {
	QuarterlyPercentChange  float64 `yaml:"quarterly_percent_change" validate:"gte=0,lte=1"`
	AnnualPercentChange     float64 `yaml:"annual_percent_change" validate:"gte=0,lte=1"`
	QuarterlyAgreementScore float64 `yaml:"quarterly_agreement_score" validate:"gte=0,lte=1"`
	AnnualAgreementScore    float64 `yaml:"annual_agreement_score" validate:"gte=0,lte=1"`
	EarningsSurpriseChange  float64 `yaml:"earnings_surprise_change" validate:"gte=0,lte=1"`
	UpsideScore             float64 `yaml:"upside_score" validate:"gte=0,lte=1"`
	MagnitudeScore          float64 `yaml:"magnitude_score" validate:"gte=0,lte=1"`
}

// Sum returns the total of all weights
func (w Weights) Sum() float64 {
	return w.QuarterlyPercentChange + w.AnnualPercentChange +
		w.QuarterlyAgreementScore + w.AnnualAgreementScore +
		w.EarningsSurpriseChange + w.UpsideScore + w.MagnitudeScore
}

// DefaultWeights favours near-term revisions; annual, upside and magnitude
// are computed but weighted zero.
func DefaultWeights() Weights {
	return Weights{
		QuarterlyPercentChange:  0.6,
		QuarterlyAgreementScore: 0.2,
		EarningsSurpriseChange:  0.2,
	}
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	var c Config
	c.applyDefaults()
	c.Weights = DefaultWeights()
	c.Universe.UseCache = true
	// not in applyDefaults: an explicit 0 disables the breaker
	c.Provider.BreakerFailures = 10
	return &c
}

func (c *Config) applyDefaults() {
	if c.Paths.CacheDir == "" {
		c.Paths.CacheDir = "cache"
	}
	if c.Paths.LogDir == "" {
		c.Paths.LogDir = "logs"
	}
	if c.Paths.ResultsDir == "" {
		c.Paths.ResultsDir = "results"
	}
	if c.Files.QuarterlyEstimates == "" {
		c.Files.QuarterlyEstimates = "quarterly_eps_estimates.csv"
	}
	if c.Files.AnnualEstimates == "" {
		c.Files.AnnualEstimates = "annual_eps_estimates.csv"
	}
	if c.Files.SurpriseResults == "" {
		c.Files.SurpriseResults = "earnings_surprise_results.csv"
	}
	if c.Files.Candidates == "" {
		c.Files.Candidates = "earnings_estimate_revision_candidates.csv"
	}
	if c.Universe.Index == "" {
		c.Universe.Index = "nasdaq100"
	}
	if c.Provider.DataSource == "" {
		c.Provider.DataSource = "LIVE"
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = "https://financialmodelingprep.com"
	}
	if c.Provider.APIKeyEnv == "" {
		c.Provider.APIKeyEnv = "FMP_API_KEY"
	}
	if c.Provider.Limit == 0 {
		c.Provider.Limit = 100
	}
	if c.Provider.TimeoutSeconds == 0 {
		c.Provider.TimeoutSeconds = 30
	}
	if c.Analysis.SurpriseWindowDays == 0 {
		c.Analysis.SurpriseWindowDays = 90
	}
	if c.Analysis.UpsideWindowDays == 0 {
		c.Analysis.UpsideWindowDays = 90
	}
	if c.Analysis.MagnitudeWindowDays == 0 {
		c.Analysis.MagnitudeWindowDays = 30
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "30 1 * * *"
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if sum := c.Weights.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}

// LoadConfig reads a yaml file on top of the defaults. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		c := DefaultConfig()
		return c, c.Validate()
	}
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	// yaml decodes over the defaults; an explicit weights block replaces them entirely
	c.Weights = Weights{}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	if _, ok := raw["weights"]; !ok {
		c.Weights = DefaultWeights()
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	for i, s := range c.Universe.Static {
		c.Universe.Static[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

// APIKey reads the data source key from the configured environment variable
func (c *Config) APIKey() (string, error) {
	key := os.Getenv(c.Provider.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%w: set %s", ErrMissingAPIKey, c.Provider.APIKeyEnv)
	}
	return key, nil
}

// EnsureDirectories creates the cache, log and results directories
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir, c.Paths.ResultsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) QuarterlyEstimatesPath() string {
	return filepath.Join(c.Paths.ResultsDir, c.Files.QuarterlyEstimates)
}

func (c *Config) AnnualEstimatesPath() string {
	return filepath.Join(c.Paths.ResultsDir, c.Files.AnnualEstimates)
}

func (c *Config) SurpriseResultsPath() string {
	return filepath.Join(c.Paths.CacheDir, c.Files.SurpriseResults)
}

// UniverseCachePath is the cached constituents file for the configured index
func (c *Config) UniverseCachePath() string {
	return filepath.Join(c.Paths.CacheDir, c.Universe.Index+"_symbols.csv")
}

// LogFilePath is empty when file logging is disabled
func (c *Config) LogFilePath() string {
	if c.Files.LogFile == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, c.Files.LogFile)
}
