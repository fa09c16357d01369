package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SymbolPolicyPassthrough = "passthrough"
	SymbolPolicyStripSuffix = "strip-suffix"

	ArtifactChannelFile   = "file"
	ArtifactChannelMemory = "memory"

	ProviderYahoo    = "yahoo"
	ProviderLongport = "longport"

	LLMProviderDeepSeek = "deepseek"
	LLMProviderOpenAI   = "openai"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	HistoryPath  string `json:"history_path"`

	// Report pipeline
	SymbolPolicy    string        `json:"symbol_policy"`
	ArtifactChannel string        `json:"artifact_channel"`
	FetchTimeout    time.Duration `json:"fetch_timeout"`
	LookupCount     int           `json:"lookup_count"`
	MaxGraphSteps   int           `json:"max_graph_steps"`
	CacheEnabled    bool          `json:"cache_enabled"`

	// Market data
	MarketDataProvider string `json:"market_data_provider"`
	YahooSearchURL     string `json:"yahoo_search_url"`
	TradingViewURL     string `json:"tradingview_url"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	// Agent runtime
	LLMProvider    string `json:"llm_provider"`
	Model          string `json:"model"`
	BackendURL     string `json:"backend_url"`
	MaxAgentSteps  int    `json:"max_agent_steps"`
	DeepSeekAPIKey string `json:"deepseek_api_key"`
	OpenAIAPIKey   string `json:"openai_api_key"`

	Debug bool `json:"debug"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		ResultsDir:   filepath.Join(currentDir, "results"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),
		HistoryPath:  filepath.Join(currentDir, "data", "history.db"),

		SymbolPolicy:    SymbolPolicyPassthrough,
		ArtifactChannel: ArtifactChannelFile,
		FetchTimeout:    30 * time.Second,
		LookupCount:     10,
		MaxGraphSteps:   25,
		CacheEnabled:    true,

		MarketDataProvider: ProviderYahoo,
		YahooSearchURL:     "https://query2.finance.yahoo.com/v1/finance/search",
		TradingViewURL:     "https://scanner.tradingview.com",

		LLMProvider:   LLMProviderDeepSeek,
		Model:         "deepseek-chat",
		MaxAgentSteps: 12,

		EinoDebugEnabled: false,
		EinoDebugPort:    52538,
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val, ok := os.LookupEnv("STOCKLENS_HISTORY_PATH"); ok {
		c.HistoryPath = val
	}

	if val := os.Getenv("STOCKLENS_SYMBOL_POLICY"); val != "" {
		c.SymbolPolicy = val
	}
	if val := os.Getenv("STOCKLENS_ARTIFACT_CHANNEL"); val != "" {
		c.ArtifactChannel = val
	}
	if val := os.Getenv("STOCKLENS_FETCH_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.FetchTimeout = d
		}
	}
	if val := os.Getenv("STOCKLENS_LOOKUP_COUNT"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.LookupCount = v
		}
	}
	if val := os.Getenv("STOCKLENS_MAX_GRAPH_STEPS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxGraphSteps = v
		}
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}

	if val := os.Getenv("STOCKLENS_MARKET_DATA_PROVIDER"); val != "" {
		c.MarketDataProvider = val
	}
	if val := os.Getenv("STOCKLENS_YAHOO_SEARCH_URL"); val != "" {
		c.YahooSearchURL = val
	}
	if val := os.Getenv("STOCKLENS_TRADINGVIEW_URL"); val != "" {
		c.TradingViewURL = val
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.Model = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("MAX_AGENT_STEPS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxAgentSteps = v
		}
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}

	if val := os.Getenv("STOCKLENS_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.EinoDebugPort = port
		}
	}
}

// LoadFile overlays the JSON document at path onto c. Fields missing from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.SymbolPolicy {
	case SymbolPolicyPassthrough, SymbolPolicyStripSuffix:
	default:
		return fmt.Errorf("unknown symbol policy %q (want %s or %s)", c.SymbolPolicy, SymbolPolicyPassthrough, SymbolPolicyStripSuffix)
	}
	switch c.ArtifactChannel {
	case ArtifactChannelFile, ArtifactChannelMemory:
	default:
		return fmt.Errorf("unknown artifact channel %q (want %s or %s)", c.ArtifactChannel, ArtifactChannelFile, ArtifactChannelMemory)
	}
	switch c.MarketDataProvider {
	case ProviderYahoo, ProviderLongport:
	default:
		return fmt.Errorf("unknown market data provider %q", c.MarketDataProvider)
	}
	switch c.LLMProvider {
	case LLMProviderDeepSeek, LLMProviderOpenAI:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.LookupCount <= 0 {
		return fmt.Errorf("lookup count must be positive, got %d", c.LookupCount)
	}
	if c.MaxGraphSteps <= 0 {
		return fmt.Errorf("max graph steps must be positive, got %d", c.MaxGraphSteps)
	}
	return nil
}

// HasLongportCredentials reports whether all three Longport secrets are set.
func (c *Config) HasLongportCredentials() bool {
	return c.LongportAppKey != "" && c.LongportAppSecret != "" && c.LongportAccessToken != ""
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.ResultsDir, c.DataCacheDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
