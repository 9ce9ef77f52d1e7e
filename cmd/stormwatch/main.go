package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stormwatch/stormwatch/internal/config"
	"github.com/stormwatch/stormwatch/internal/lifecycle"
	"github.com/stormwatch/stormwatch/internal/logger"
	"github.com/stormwatch/stormwatch/internal/metricsexporter"
	"github.com/stormwatch/stormwatch/internal/notify"
	"github.com/stormwatch/stormwatch/internal/source"
	"github.com/stormwatch/stormwatch/internal/tracing"
	"github.com/stormwatch/stormwatch/internal/validation"
)

var (
	refreshInterval   time.Duration
	feedURL           string
	obsFile           string
	webhookURL        string
	slackWebhookURL   string
	slackChannel      string
	enableMetrics     bool
	enableTracing     bool
	tracingEndpoint   string
	tracingSampleRate float64
	logLevel          string
	runOnce           bool

	sourceFactory func(province string) (source.Source, error)
	exitFunc      func(int)
)

func init() {
	sourceFactory = buildSource
	exitFunc = os.Exit
}

func main() {
	var rootCmd = &cobra.Command{
		Use:          "stormwatch <province>",
		Short:        "Weather alert monitor with lifecycle tracking and notification dispatch",
		Long:         `stormwatch periodically pulls weather alerts for a province, tracks which alerts are active versus dismissed or expired, and dispatches exactly one notification per newly-active alert to the configured sinks.`,
		Args:         cobra.ExactArgs(1),
		RunE:         runStormwatch,
		SilenceUsage: true,
	}

	rootCmd.Flags().DurationVar(&refreshInterval, "interval", config.RefreshInterval, "Alert feed refresh interval")
	rootCmd.Flags().StringVar(&feedURL, "feed-url", config.FeedURL, "Alert feed URL (JSON)")
	rootCmd.Flags().StringVar(&obsFile, "obs-file", "", "Observation JSON file to derive alerts from when no feed is available")
	rootCmd.Flags().StringVar(&webhookURL, "webhook-url", config.WebhookURL, "Webhook notification sink URL")
	rootCmd.Flags().StringVar(&slackWebhookURL, "slack-webhook-url", config.SlackWebhookURL, "Slack webhook notification sink URL")
	rootCmd.Flags().StringVar(&slackChannel, "slack-channel", config.SlackChannel, "Slack channel for notifications")
	rootCmd.Flags().BoolVar(&enableMetrics, "metrics", false, "Enable Prometheus metrics and the local dismissal endpoint")
	rootCmd.Flags().BoolVar(&enableTracing, "tracing", config.DefaultTracingEnabled, "Enable distributed tracing")
	rootCmd.Flags().StringVar(&tracingEndpoint, "tracing-otlp-endpoint", config.DefaultOTLPEndpoint, "OpenTelemetry OTLP endpoint")
	rootCmd.Flags().Float64Var(&tracingSampleRate, "tracing-sample-rate", config.DefaultTracingSampleRate, "Tracing sample rate (0.0-1.0)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Set log level (debug, info, warn, error, fatal). Overrides STORMWATCH_LOG_LEVEL environment variable")
	rootCmd.Flags().BoolVar(&runOnce, "once", false, "Refresh once, print active alerts, and exit")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if logLevel != "" {
			logger.SetLevel(logLevel)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", zap.Error(err))
		exitFunc(1)
	}
	defer logger.Sync()
}

func runStormwatch(cmd *cobra.Command, args []string) error {
	province := args[0]
	if err := validation.ValidateProvince(province); err != nil {
		return err
	}
	if err := validation.ValidateRefreshInterval(refreshInterval); err != nil {
		return err
	}
	for _, u := range []string{feedURL, webhookURL, slackWebhookURL} {
		if err := validation.ValidateSinkURL(u); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var tracingProvider *tracing.Provider
	if enableTracing {
		tp, err := tracing.NewProvider(ctx, tracingEndpoint, tracingSampleRate)
		if err != nil {
			logger.Warn("Failed to initialize tracing, continuing without it", zap.Error(err))
		} else {
			tracingProvider = tp
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
				defer shutdownCancel()
				if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Tracing shutdown failed", zap.Error(err))
				}
			}()
		}
	}

	src, err := sourceFactory(province)
	if err != nil {
		return err
	}
	sinks, err := buildSinks()
	if err != nil {
		return err
	}
	gate := notify.GateFunc(func(context.Context) bool {
		return len(sinks) > 0
	})

	manager, err := lifecycle.NewManager(ctx, src, sinks, gate,
		lifecycle.WithLogger(logger.Logger()),
		lifecycle.WithDispatchRate(config.DispatchRatePerMin, config.DispatchBurst),
	)
	if err != nil {
		return err
	}

	var metricsServer *metricsexporter.Server
	if enableMetrics {
		metricsServer = metricsexporter.StartServer(manager)
		defer metricsServer.Shutdown()
	}

	logger.Info("Watching weather alerts",
		zap.String("province", province),
		zap.Duration("interval", refreshInterval),
		zap.Int("sinks", len(sinks)))

	manager.Refresh(ctx)
	printActive(manager)
	if err := manager.LastError(); err != nil && runOnce {
		return err
	}
	if runOnce {
		return nil
	}

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	interrupt := interruptChan()
	lastPrinted := activeFingerprint(manager)

	for {
		select {
		case <-interrupt:
			logger.Info("Shutting down")
			return nil
		case <-ticker.C:
			manager.Refresh(ctx)
			if fp := activeFingerprint(manager); fp != lastPrinted {
				printActive(manager)
				lastPrinted = fp
			}
		}
	}
}

func buildSource(province string) (source.Source, error) {
	if feedURL != "" {
		return source.NewHTTPSource(feedURL, config.HTTPTimeout)
	}
	if obsFile != "" {
		provider, err := source.NewFileObservationProvider(obsFile)
		if err != nil {
			return nil, err
		}
		return source.NewHazardSource(provider, province, config.HazardAlertTTL), nil
	}
	return nil, fmt.Errorf("either --feed-url or --obs-file is required")
}

func buildSinks() ([]notify.Sink, error) {
	sinks := []notify.Sink{notify.NewLogSink(logger.Logger())}
	if webhookURL != "" {
		webhookSink, err := notify.NewWebhookSink(webhookURL, config.HTTPTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook sink: %w", err)
		}
		sinks = append(sinks, notify.NewRetrySink(webhookSink, config.MaxRetries, config.RetryBackoffBase))
	}
	if slackWebhookURL != "" {
		slackSink, err := notify.NewSlackSink(slackWebhookURL, slackChannel, config.HTTPTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid slack sink: %w", err)
		}
		sinks = append(sinks, notify.NewRetrySink(slackSink, config.MaxRetries, config.RetryBackoffBase))
	}
	return sinks, nil
}

func printActive(m *lifecycle.Manager) {
	active := m.Active()
	if err := m.LastError(); err != nil {
		fmt.Printf("warning: refresh failed (%v), showing last good data\n", err)
	}
	if len(active) == 0 {
		fmt.Println("No active weather alerts.")
		return
	}
	fmt.Printf("%d active alert(s):\n", len(active))
	for _, a := range active {
		fmt.Printf("  [%s/%s] %s - %s (expires %s)\n",
			strings.ToUpper(string(a.Severity)), a.Category, a.Title, a.Area,
			a.ExpiresAt.Local().Format("15:04 Jan 02"))
	}
}

func activeFingerprint(m *lifecycle.Manager) string {
	active := m.Active()
	ids := make([]string, 0, len(active))
	for _, a := range active {
		ids = append(ids, a.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

func interruptChan() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}
