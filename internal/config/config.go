package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/chunkytofustudios/analytics-gate/internal/build"
)

type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentProduction  Environment = "production"
)

const DefaultMeasurementID = "G-REYS4TKJBK"

type Config struct {
	//===============
	// Analytics
	//===============
	// GA4 measurement identifier; also the routing identifier (send_to) on every event
	measurementID string
	// Measurement Protocol secret. Empty means events are logged, not sent
	apiSecret string
	// Remote analytics bundle. "%s" is replaced with the measurement ID
	scriptURLTemplate string
	// Measurement Protocol collection endpoint
	collectURL string
	// Number of fetch attempts per script load. 1 means a single attempt
	loadAttempts int
	// Whether served pages get their external links rewritten through /out
	trackOutboundLinks bool

	//===============
	// Site
	//===============
	// Public origin of the site, used for page_location and external-link detection
	siteOrigin url.URL
	// Directory holding the built static site
	siteDir string
	// Address the HTTP server listens on
	listenAddr string

	//===============
	// Delivery
	//===============
	// maximum attempt per Measurement Protocol request
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration
	// Minimum spacing between two requests to the collection endpoint
	baseDelay time.Duration
	// Randomized variation added on top of the base delay
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// Maximum time of a single outgoing HTTP request
	timeout time.Duration
	// User agent for outgoing requests
	userAgent string
	// Log payloads instead of sending them
	dryRun bool

	//===============
	// Runtime
	//===============
	// development enables debug logging
	environment Environment
}

type configDTO struct {
	MeasurementID          string        `json:"measurementId,omitempty"`
	APISecret              string        `json:"apiSecret,omitempty"`
	ScriptURLTemplate      string        `json:"scriptUrlTemplate,omitempty"`
	CollectURL             string        `json:"collectUrl,omitempty"`
	LoadAttempts           int           `json:"loadAttempts,omitempty"`
	TrackOutboundLinks     *bool         `json:"trackOutboundLinks,omitempty"`
	SiteOrigin             string        `json:"siteOrigin,omitempty"`
	SiteDir                string        `json:"siteDir,omitempty"`
	ListenAddr             string        `json:"listenAddr,omitempty"`
	MaxAttempt             int           `json:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64       `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration `json:"backoffMaxDuration,omitempty"`
	BaseDelay              time.Duration `json:"baseDelay,omitempty"`
	Jitter                 time.Duration `json:"jitter,omitempty"`
	RandomSeed             int64         `json:"randomSeed,omitempty"`
	Timeout                time.Duration `json:"timeout,omitempty"`
	UserAgent              string        `json:"userAgent,omitempty"`
	DryRun                 bool          `json:"dryRun,omitempty"`
	Environment            string        `json:"environment,omitempty"`
}

// envOverrides is the only environment input: the development/production switch.
type envOverrides struct {
	Environment string `env:"ANALYTICS_GATE_ENV"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	builder := WithDefault()

	if dto.MeasurementID != "" {
		builder = builder.WithMeasurementID(dto.MeasurementID)
	}
	if dto.APISecret != "" {
		builder = builder.WithAPISecret(dto.APISecret)
	}
	if dto.ScriptURLTemplate != "" {
		builder = builder.WithScriptURLTemplate(dto.ScriptURLTemplate)
	}
	if dto.CollectURL != "" {
		builder = builder.WithCollectURL(dto.CollectURL)
	}
	if dto.LoadAttempts != 0 {
		builder = builder.WithLoadAttempts(dto.LoadAttempts)
	}
	if dto.TrackOutboundLinks != nil {
		builder = builder.WithTrackOutboundLinks(*dto.TrackOutboundLinks)
	}
	if dto.SiteOrigin != "" {
		origin, err := url.Parse(dto.SiteOrigin)
		if err != nil {
			return Config{}, fmt.Errorf("%w: siteOrigin: %s", ErrInvalidConfig, err.Error())
		}
		builder = builder.WithSiteOrigin(*origin)
	}
	if dto.SiteDir != "" {
		builder = builder.WithSiteDir(dto.SiteDir)
	}
	if dto.ListenAddr != "" {
		builder = builder.WithListenAddr(dto.ListenAddr)
	}
	if dto.MaxAttempt != 0 {
		builder = builder.WithMaxAttempt(dto.MaxAttempt)
	}
	if dto.BackoffInitialDuration != 0 {
		builder = builder.WithBackoffInitialDuration(dto.BackoffInitialDuration)
	}
	if dto.BackoffMultiplier != 0 {
		builder = builder.WithBackoffMultiplier(dto.BackoffMultiplier)
	}
	if dto.BackoffMaxDuration != 0 {
		builder = builder.WithBackoffMaxDuration(dto.BackoffMaxDuration)
	}
	if dto.BaseDelay != 0 {
		builder = builder.WithBaseDelay(dto.BaseDelay)
	}
	if dto.Jitter != 0 {
		builder = builder.WithJitter(dto.Jitter)
	}
	if dto.RandomSeed != 0 {
		builder = builder.WithRandomSeed(dto.RandomSeed)
	}
	if dto.Timeout != 0 {
		builder = builder.WithTimeout(dto.Timeout)
	}
	if dto.UserAgent != "" {
		builder = builder.WithUserAgent(dto.UserAgent)
	}
	builder = builder.WithDryRun(dto.DryRun)
	if dto.Environment != "" {
		builder = builder.WithEnvironment(Environment(dto.Environment))
	}

	return builder.Build()
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	cfgDTO := configDTO{}
	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config with default values for all fields.
// The environment defaults to the one the binary was built for.
func WithDefault() *Config {
	defaultConfig := Config{
		measurementID:          DefaultMeasurementID,
		scriptURLTemplate:      "https://www.googletagmanager.com/gtag/js?id=%s",
		collectURL:             "https://www.google-analytics.com/mp/collect",
		loadAttempts:           1,
		trackOutboundLinks:     true,
		siteOrigin:             url.URL{Scheme: "https", Host: "chunkytofustudios.com"},
		siteDir:                "build",
		listenAddr:             ":3000",
		maxAttempt:             3,
		backoffInitialDuration: 200 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		baseDelay:              0,
		jitter:                 50 * time.Millisecond,
		randomSeed:             time.Now().UnixNano(),
		timeout:                10 * time.Second,
		userAgent:              "analytics-gate/" + build.Version,
		dryRun:                 false,
		environment:            Environment(build.Environment),
	}
	return &defaultConfig
}

func (c *Config) WithMeasurementID(id string) *Config {
	c.measurementID = id
	return c
}

func (c *Config) WithAPISecret(secret string) *Config {
	c.apiSecret = secret
	return c
}

func (c *Config) WithScriptURLTemplate(template string) *Config {
	c.scriptURLTemplate = template
	return c
}

func (c *Config) WithCollectURL(collectURL string) *Config {
	c.collectURL = collectURL
	return c
}

func (c *Config) WithLoadAttempts(attempts int) *Config {
	c.loadAttempts = attempts
	return c
}

func (c *Config) WithTrackOutboundLinks(track bool) *Config {
	c.trackOutboundLinks = track
	return c
}

func (c *Config) WithSiteOrigin(origin url.URL) *Config {
	c.siteOrigin = origin
	return c
}

func (c *Config) WithSiteDir(dir string) *Config {
	c.siteDir = dir
	return c
}

func (c *Config) WithListenAddr(addr string) *Config {
	c.listenAddr = addr
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithDryRun(dryRun bool) *Config {
	c.dryRun = dryRun
	return c
}

func (c *Config) WithEnvironment(environment Environment) *Config {
	c.environment = environment
	return c
}

// WithEnvOverrides applies ANALYTICS_GATE_ENV when it is set.
func (c *Config) WithEnvOverrides() (*Config, error) {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return c, fmt.Errorf("%w: %s", ErrEnvParsingFail, err.Error())
	}
	if overrides.Environment != "" {
		c.environment = Environment(strings.ToLower(overrides.Environment))
	}
	return c, nil
}

func (c *Config) Build() (Config, error) {
	if strings.TrimSpace(c.measurementID) == "" {
		return Config{}, fmt.Errorf("%w: measurementId cannot be empty", ErrInvalidConfig)
	}
	if !strings.Contains(c.scriptURLTemplate, "%s") {
		return Config{}, fmt.Errorf("%w: scriptUrlTemplate must contain %%s", ErrInvalidConfig)
	}
	if _, err := url.ParseRequestURI(c.collectURL); err != nil {
		return Config{}, fmt.Errorf("%w: collectUrl: %s", ErrInvalidConfig, err.Error())
	}
	if c.siteOrigin.Scheme == "" || c.siteOrigin.Host == "" {
		return Config{}, fmt.Errorf("%w: siteOrigin must be an absolute URL", ErrInvalidConfig)
	}
	if c.loadAttempts < 1 {
		return Config{}, fmt.Errorf("%w: loadAttempts must be at least 1", ErrInvalidConfig)
	}
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be at least 1", ErrInvalidConfig)
	}
	switch c.environment {
	case EnvironmentDevelopment, EnvironmentProduction:
	default:
		return Config{}, fmt.Errorf("%w: unknown environment %q", ErrInvalidConfig, c.environment)
	}

	return *c, nil
}

func (c Config) MeasurementID() string {
	return c.measurementID
}

func (c Config) APISecret() string {
	return c.apiSecret
}

// ScriptURL is the remote analytics bundle for the configured measurement ID.
func (c Config) ScriptURL() string {
	return fmt.Sprintf(c.scriptURLTemplate, url.QueryEscape(c.measurementID))
}

func (c Config) CollectURL() string {
	return c.collectURL
}

func (c Config) LoadAttempts() int {
	return c.loadAttempts
}

func (c Config) TrackOutboundLinks() bool {
	return c.trackOutboundLinks
}

func (c Config) SiteOrigin() url.URL {
	return c.siteOrigin
}

func (c Config) SiteDir() string {
	return c.siteDir
}

func (c Config) ListenAddr() string {
	return c.listenAddr
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) DryRun() bool {
	return c.dryRun
}

func (c Config) Environment() Environment {
	return c.environment
}

func (c Config) IsDevelopment() bool {
	return c.environment == EnvironmentDevelopment
}
