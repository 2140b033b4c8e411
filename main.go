package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var (
	configFile string
	apiKey     string
	debugMode  bool
	newRun     bool
	watchServe bool
)

var rootCmd = &cobra.Command{
	Use:   "feed-curator",
	Short: "Curate Hacker News into a topic-filtered RSS feed",
	Long: `Scrapes Hacker News listing pages, rates each new story against
configured topic groups with an LLM and publishes accepted stories as RSS.
Runs without a subcommand behave like "ingest".`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context())
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Classify new stories into the newest run (or a new one with --new)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context())
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize accepted stories of the newest run that lack a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadConfig()
		if err != nil {
			return err
		}
		processor, err := newProcessor(settings)
		if err != nil {
			return err
		}
		report, err := processor.Summarize(cmd.Context())
		if report != nil {
			fmt.Printf("Summarized %d of %d articles in %s\n", report.Summarized, report.Attempted, report.RunDir)
		}
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the merged feed of the newest run over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadConfig()
		if err != nil {
			return err
		}
		var servers ServerManager
		return serveUntilDone(cmd.Context(), &servers, settings)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest on the configured schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadConfig()
		if err != nil {
			return err
		}
		processor, err := newProcessor(settings)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if watchServe {
			var servers ServerManager
			handler := NewFeedHandler(NewRunLocator(settings.DataDirectory), settings.Serve.Path)
			if _, err := servers.Start(ctx, settings.Serve.Address, handler); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := servers.Stop(stopCtx); err != nil {
					slog.Error("stopping server", "error", err)
				}
			}()
		}

		return NewScheduler(settings.Watch.Schedule, processor).Run(ctx)
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List run directories, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadConfig()
		if err != nil {
			return err
		}
		processor := NewArticleProcessor(settings, nil, nil, nil, nil)
		runs, err := processor.ListRuns()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No run directories found.")
			return nil
		}
		for _, run := range runs {
			fmt.Printf("%s\tresults=%d\tfailed=%d\tknown=%d\n",
				run.Dir, run.Counts[LedgerResults], run.Counts[LedgerFailed], run.Counts[LedgerKnown])
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to settings YAML (default .feed-curator/settings.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Anthropic API key")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.Flags().BoolVarP(&newRun, "new", "n", false, "Start a new run directory")
	ingestCmd.Flags().BoolVarP(&newRun, "new", "n", false, "Start a new run directory")
	watchCmd.Flags().BoolVar(&watchServe, "serve", false, "Also serve the feed while watching")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogging(debugMode)
	}
	rootCmd.AddCommand(ingestCmd, summarizeCmd, serveCmd, watchCmd, runsCmd)
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func loadConfig() (*Settings, error) {
	overrides := &ConfigOverrides{}
	if configFile != "" {
		overrides.SettingsPath = &configFile
	}
	settings, err := LoadSettings(overrides)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return settings, nil
}

// newProcessor wires the production collaborators
func newProcessor(settings *Settings) (*ArticleProcessor, error) {
	key := apiKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if key == "" {
		return nil, errors.New("API key required: use --api-key flag or ANTHROPIC_API_KEY environment variable")
	}

	agents, err := NewAgentManager(key, settings)
	if err != nil {
		return nil, err
	}
	source, err := NewHackerNewsFetcher(settings.Source.URL, &http.Client{Timeout: settings.Source.Timeout})
	if err != nil {
		return nil, err
	}

	classifier := NewClassifier(agents.Oracle(), NewIntervalThrottle(settings.Classifier.Interval), settings.Oracle.Timeout)
	content := NewContentFetcher(&http.Client{Timeout: settings.Summarizer.Timeout}, getConfigPath("cache"), key)
	summarizer := NewArticleSummarizer(content, agents, settings.Summarizer.ContentMaxTokens, settings.Summarizer.Timeout)

	return NewArticleProcessor(settings, source, classifier, summarizer, NewIntervalThrottle(settings.Summarizer.Interval)), nil
}

func runIngest(ctx context.Context) error {
	settings, err := loadConfig()
	if err != nil {
		return err
	}
	processor, err := newProcessor(settings)
	if err != nil {
		return err
	}
	report, err := processor.Ingest(ctx, newRun)
	if report != nil {
		fmt.Printf("Scraping and filtering complete. Check the '%s' directory for results.\n", report.RunDir)
	}
	return err
}

// serveUntilDone serves the feed until ctx ends or the server fails
func serveUntilDone(ctx context.Context, servers *ServerManager, settings *Settings) error {
	handler := NewFeedHandler(NewRunLocator(settings.DataDirectory), settings.Serve.Path)
	h, err := servers.Start(ctx, settings.Serve.Address, handler)
	if err != nil {
		return err
	}
	fmt.Printf("Serving feed at http://%s%s\n", h.Addr(), settings.Serve.Path)

	select {
	case <-ctx.Done():
	case <-h.Done():
		return h.Err()
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return servers.Stop(stopCtx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
