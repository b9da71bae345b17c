package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ndacheck/ndacheck/internal/observability"
	"github.com/ndacheck/ndacheck/internal/observability/logging"
	otelobs "github.com/ndacheck/ndacheck/internal/observability/otel"
	"github.com/ndacheck/ndacheck/internal/observability/receipt"
	"github.com/ndacheck/ndacheck/internal/version"
)

// Exit codes
const (
	ExitOK       = 0
	ExitFindings = 1 // --fail and findings or drift present
	ExitError    = 2 // extraction, playbook or usage error
)

// ErrFindings signals a successful run whose result should fail the process
var ErrFindings = errors.New("findings present")

var (
	cfgFile         string
	receiptPath     string
	receiptMode     string
	otelEnabled     bool
	otelEndpoint    string
	otelProtocol    string
	otelInsecure    bool
	otelSampleRatio float64

	// vp holds flag, env and file values; settings is resolved from it per run
	vp       = viper.New()
	settings = DefaultSettings()
	cleanups []func()
)

var rootCmd = &cobra.Command{
	Use:   "ndacheck",
	Short: "Review NDAs against a clause playbook",
	Long: `ndacheck reviews non-disclosure agreements against a playbook of
preferred positions and lists what to insert, strike or qualify.

Each finding pairs a category (Governing State, Notices, ...) with a
recommendation. An empty list means the agreement is clean.

Configuration hierarchy (highest to lowest priority):
  1. CLI flags
  2. Environment variables (NDACHECK_*)
  3. Config file (~/.ndacheck/config.yaml)
  4. Defaults`,
	Version:           version.BuildVersion(),
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command and exits with the command's status
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	runCleanups()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrFindings):
		return ExitFindings
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return ExitError
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.ndacheck/config.yaml)")
	pf.String("playbook", "", "Path to a playbook YAML file")
	pf.String("preset", "", "Built-in playbook: standard or strict")
	pf.String("log-format", "", "Log format: pretty or jsonl")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-output", "", "Log destination: stderr, none, or a file path")
	pf.StringVar(&receiptPath, "receipt", "", "Write an audit receipt to this path")
	pf.StringVar(&receiptMode, "receipt-mode", "overwrite", "Receipt mode: overwrite or append (JSONL)")
	pf.BoolVar(&otelEnabled, "otel", false, "Enable OpenTelemetry tracing")
	pf.StringVar(&otelEndpoint, "otel-endpoint", "", "OTLP endpoint (default: OTEL_EXPORTER_OTLP_ENDPOINT or localhost)")
	pf.StringVar(&otelProtocol, "otel-protocol", otelobs.ProtocolHTTP, "OTLP protocol: otlphttp or otlpgrpc")
	pf.BoolVar(&otelInsecure, "otel-insecure", false, "Disable TLS for the OTLP exporter")
	pf.Float64Var(&otelSampleRatio, "otel-sample-ratio", 1.0, "Trace sample ratio (0..1)")

	for key, flag := range map[string]string{
		"playbook.path":   "playbook",
		"playbook.preset": "preset",
		"log.format":      "log-format",
		"log.level":       "log-level",
		"log.output":      "log-output",
	} {
		_ = vp.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.AddCommand(GetReviewCmd())
	rootCmd.AddCommand(GetBatchCmd())
	rootCmd.AddCommand(GetPlaybookCmd())
	rootCmd.AddCommand(GetCompareCmd())
	rootCmd.AddCommand(GetHistoryCmd())
	rootCmd.AddCommand(GetWatchCmd())
	rootCmd.AddCommand(GetConfigCmd())
	rootCmd.AddCommand(GetVersionCmd())
}

// initConfig reads in config file and ENV variables
func initConfig(v *viper.Viper) error {
	setDefaults(v)

	v.SetEnvPrefix("NDACHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	dir, err := configDir()
	if err != nil {
		return nil
	}
	v.AddConfigPath(dir)
	v.SetConfigType("yaml")
	v.SetConfigName("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// setup resolves settings and installs the op id, logger, tracer and
// receipt writer into the command context
func setup(cmd *cobra.Command, args []string) error {
	if err := initConfig(vp); err != nil {
		return err
	}
	s, err := loadSettings(vp)
	if err != nil {
		return err
	}
	settings = s

	ctx := observability.WithOpID(cmd.Context())

	logger, err := logging.NewLogger(logging.Config{
		Format: settings.Log.Format,
		Level:  settings.Log.Level,
		Output: settings.Log.Output,
	})
	if err != nil {
		return err
	}
	cleanups = append(cleanups, func() { _ = logger.Close() })
	ctx = logging.WithLogger(ctx, logger)

	if used := vp.ConfigFileUsed(); used != "" {
		logger.Debug("config", "using config file", "path", used)
	}

	if otelEnabled {
		h, err := otelobs.Init(ctx, otelobs.Config{
			Enabled:     true,
			Endpoint:    otelEndpoint,
			Protocol:    otelProtocol,
			Insecure:    otelInsecure,
			ServiceName: otelobs.ServiceName,
			SampleRatio: otelSampleRatio,
		})
		if err != nil {
			return fmt.Errorf("otel init: %w", err)
		}
		cleanups = append(cleanups, func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.Shutdown(sctx); err != nil {
				logger.Warn("otel", "shutdown failed", "error", err.Error())
			}
		})
		ctx = otelobs.WithHandle(ctx, h)
	}

	if receiptPath != "" {
		mode, err := receipt.ParseMode(receiptMode)
		if err != nil {
			return err
		}
		w, err := receipt.NewWriter(receiptPath, mode)
		if err != nil {
			return fmt.Errorf("receipt: %w", err)
		}
		cleanups = append(cleanups, func() { _ = w.Close() })
		ctx = receipt.WithWriter(ctx, w)
	}

	cmd.SetContext(ctx)
	return nil
}

// runCleanups releases resources in reverse order of acquisition
func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}
