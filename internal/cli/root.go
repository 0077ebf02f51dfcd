package cmd

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/chunkytofustudios/analytics-gate/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile            string
	measurementID      string
	apiSecret          string
	scriptURLTemplate  string
	collectURL         string
	siteOrigin         string
	siteDir            string
	listenAddr         string
	loadAttempts       int
	maxAttempt         int
	userAgent          string
	timeout            time.Duration
	baseDelay          time.Duration
	jitter             time.Duration
	randomSeed         int64
	dryRun             bool
	noOutboundTracking bool
	environment        string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "analytics-gate",
	Short: "Serves the Chunky Tofu Studios site and owns its analytics.",
	Long: `analytics-gate fronts the static build of the studio site and tracks
page views, outbound link clicks and custom events.

Tracking calls are buffered until the remote analytics bundle has loaded,
then delivered in call order to the analytics backend. The bundle is
loaded at most once; a failed load is retried on the next tracking call.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ExecuteWithArgs runs the CLI with explicit arguments and output.
// This makes it easier to test commands end to end.
func ExecuteWithArgs(ctx context.Context, args []string, out io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /etc/analytics-gate/config.json)")
	rootCmd.PersistentFlags().StringVar(&measurementID, "measurement-id", "", "GA4 measurement ID")
	rootCmd.PersistentFlags().StringVar(&apiSecret, "api-secret", "", "Measurement Protocol API secret (events are only logged without one)")
	rootCmd.PersistentFlags().StringVar(&scriptURLTemplate, "script-url-template", "", "analytics bundle URL, %s is replaced by the measurement ID")
	rootCmd.PersistentFlags().StringVar(&collectURL, "collect-url", "", "Measurement Protocol collection endpoint")
	rootCmd.PersistentFlags().StringVar(&siteOrigin, "site-origin", "", "public origin of the site (e.g., https://chunkytofustudios.com)")
	rootCmd.PersistentFlags().StringVar(&siteDir, "site-dir", "", "directory holding the built static site")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen-addr", "", "address the HTTP server listens on")
	rootCmd.PersistentFlags().IntVar(&loadAttempts, "load-attempts", 0, "fetch attempts per analytics bundle load")
	rootCmd.PersistentFlags().IntVar(&maxAttempt, "max-attempt", 0, "attempts per delivery request")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for outgoing requests")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for outgoing requests")
	rootCmd.PersistentFlags().DurationVar(&baseDelay, "base-delay", 0, "minimum delay between delivery requests")
	rootCmd.PersistentFlags().DurationVar(&jitter, "jitter", 0, "random jitter added to delays")
	rootCmd.PersistentFlags().Int64Var(&randomSeed, "random-seed", 0, "seed for random number generation (0 for current time)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log events instead of sending them")
	rootCmd.PersistentFlags().BoolVar(&noOutboundTracking, "no-outbound-tracking", false, "serve pages without rewriting external links")
	rootCmd.PersistentFlags().StringVar(&environment, "environment", "", "development or production (overrides ANALYTICS_GATE_ENV)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(versionCmd)
}

// InitConfigWithError builds the config from the config file, or from
// defaults, ANALYTICS_GATE_ENV and flags, returning any errors.
func InitConfigWithError() (config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	configBuilder, err := config.WithDefault().WithEnvOverrides()
	if err != nil {
		return config.Config{}, err
	}

	if measurementID != "" {
		configBuilder = configBuilder.WithMeasurementID(measurementID)
	}

	if apiSecret != "" {
		configBuilder = configBuilder.WithAPISecret(apiSecret)
	}

	if scriptURLTemplate != "" {
		configBuilder = configBuilder.WithScriptURLTemplate(scriptURLTemplate)
	}

	if collectURL != "" {
		configBuilder = configBuilder.WithCollectURL(collectURL)
	}

	if siteOrigin != "" {
		origin, err := url.Parse(siteOrigin)
		if err != nil {
			return config.Config{}, fmt.Errorf("%w: site-origin: %s", config.ErrInvalidConfig, err.Error())
		}
		configBuilder = configBuilder.WithSiteOrigin(*origin)
	}

	if siteDir != "" {
		configBuilder = configBuilder.WithSiteDir(siteDir)
	}

	if listenAddr != "" {
		configBuilder = configBuilder.WithListenAddr(listenAddr)
	}

	if loadAttempts > 0 {
		configBuilder = configBuilder.WithLoadAttempts(loadAttempts)
	}

	if maxAttempt > 0 {
		configBuilder = configBuilder.WithMaxAttempt(maxAttempt)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if baseDelay > 0 {
		configBuilder = configBuilder.WithBaseDelay(baseDelay)
	}

	if jitter > 0 {
		configBuilder = configBuilder.WithJitter(jitter)
	}

	if randomSeed != 0 {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}

	if dryRun {
		configBuilder = configBuilder.WithDryRun(dryRun)
	}

	if noOutboundTracking {
		configBuilder = configBuilder.WithTrackOutboundLinks(false)
	}

	if environment != "" {
		configBuilder = configBuilder.WithEnvironment(config.Environment(environment))
	}

	return configBuilder.Build()
}

func ResetFlags() {
	cfgFile = ""
	measurementID = ""
	apiSecret = ""
	scriptURLTemplate = ""
	collectURL = ""
	siteOrigin = ""
	siteDir = ""
	listenAddr = ""
	loadAttempts = 0
	maxAttempt = 0
	userAgent = ""
	timeout = 0
	baseDelay = 0
	jitter = 0
	randomSeed = 0
	dryRun = false
	noOutboundTracking = false
	environment = ""
	resetTrackFlags()
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetMeasurementIDForTest(id string) {
	measurementID = id
}

func SetAPISecretForTest(secret string) {
	apiSecret = secret
}

func SetScriptURLTemplateForTest(template string) {
	scriptURLTemplate = template
}

func SetCollectURLForTest(u string) {
	collectURL = u
}

func SetSiteOriginForTest(origin string) {
	siteOrigin = origin
}

func SetSiteDirForTest(dir string) {
	siteDir = dir
}

func SetLoadAttemptsForTest(attempts int) {
	loadAttempts = attempts
}

func SetMaxAttemptForTest(attempts int) {
	maxAttempt = attempts
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetDryRunForTest(dry bool) {
	dryRun = dry
}

func SetNoOutboundTrackingForTest(disable bool) {
	noOutboundTracking = disable
}

func SetEnvironmentForTest(env string) {
	environment = env
}
