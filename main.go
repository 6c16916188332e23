package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sjsage522/clubticketworker/config"
	"sjsage522/clubticketworker/helpers"
	"sjsage522/clubticketworker/internal/crawler"
	"sjsage522/clubticketworker/internal/fetch"
	"sjsage522/clubticketworker/logger"
	apperrors "sjsage522/clubticketworker/pkg/errors"
	"sjsage522/clubticketworker/services/cache"
	"sjsage522/clubticketworker/services/output"
	"sjsage522/clubticketworker/services/publisher"
	"sjsage522/clubticketworker/services/worker"
)

var flags struct {
	baseURL     string
	source      string
	venues      string
	output      string
	maxEvents   int
	parallelism int
	widget      bool
}

var rootCmd = &cobra.Command{
	Use:          "clubticketworker",
	Short:        "clubticketworker collects club events and their ticket releases into one JSON file.",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runRoot,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.baseURL, "base-url", "", "platform base URL (BASE_URL)")
	f.StringVar(&flags.source, "source", "", "event source, page or graphql (SOURCE)")
	f.StringVar(&flags.venues, "venues", "", "comma separated venue ids to crawl (VENUE_IDS)")
	f.StringVarP(&flags.output, "output", "o", "", "output file (OUTPUT_PATH)")
	f.IntVar(&flags.maxEvents, "max-events", 0, "maximum events per venue (MAX_EVENTS_PER_VENUE)")
	f.IntVarP(&flags.parallelism, "parallelism", "p", 0, "venues crawled at once (PARALLELISM)")
	f.BoolVar(&flags.widget, "widget", true, "fall back to the ticket widget (USE_WIDGET)")
}

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	log := logger.Default

	cfg := config.LoadConfig()
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("source", cfg.Source).
		Int("parallelism", cfg.Parallelism).
		Msg("Starting run")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err := run(ctx, cfg, cmd.OutOrStdout())
	return err
}

// applyFlags overrides the environment configuration with flags the user set
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("base-url") {
		cfg.BaseURL = strings.TrimRight(flags.baseURL, "/")
	}
	if f.Changed("source") {
		cfg.Source = strings.ToLower(flags.source)
	}
	if f.Changed("venues") {
		var ids []string
		for _, id := range strings.Split(flags.venues, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		cfg.VenueIDs = ids
	}
	if f.Changed("output") {
		cfg.OutputPath = flags.output
	}
	if f.Changed("max-events") {
		cfg.MaxEventsPerVenue = flags.maxEvents
	}
	if f.Changed("parallelism") {
		cfg.Parallelism = flags.parallelism
	}
	if f.Changed("widget") {
		cfg.UseWidget = flags.widget
	}
}

// run performs a single crawl, writes the output file and prints the
// summary. Only configuration and output failures are returned.
func run(ctx context.Context, cfg *config.Config, out io.Writer) (*worker.Report, error) {
	log := logger.ForWorker()

	venues, err := cfg.LoadVenues()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load venues")
		return nil, err
	}

	services := initializeServices(ctx, cfg)
	defer services.Cleanup()

	fetcher := fetch.New(fetch.Options{
		Timeout:    cfg.FetchTimeout,
		RetryCount: cfg.FetchRetryCount,
		BlockTime:  cfg.BlockTime,
		Cache:      services.Cache,
	})

	crawlers := crawler.CreateCrawlers(cfg, venues, fetcher)
	log.Info().
		Int("crawler_count", len(crawlers)).
		Msg("Created crawlers")

	w := worker.NewWorker(
		ctx,
		crawlers,
		services.Publisher,
		helpers.NewLogger(cfg.ErrorLogPath),
		cfg.Parallelism,
	)
	report := w.Run()

	if err := output.WriteJSON(cfg.OutputPath, report.Rows); err != nil {
		log.Error().Err(err).Str("path", cfg.OutputPath).Msg("Failed to write output")
		return report, err
	}
	logger.Info("Wrote %d rows to %s", len(report.Rows), cfg.OutputPath)

	worker.PrintSummary(out, report)
	return report, nil
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices sets up the cache and the optional publisher. An
// unreachable memcache falls back to the in-process cache and an
// unreachable Redis disables publishing.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{Cache: cache.NewMemoryService()}

	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := mc.Ping(); err != nil {
			logger.ForCache().Warn().
				Err(apperrors.NewCache("", "memcache unreachable at "+cfg.MemcacheAddr, err)).
				Msg("Using in-process cache")
		} else {
			services.Cache = mc
			logger.ForCache().Info().Str("addr", cfg.MemcacheAddr).Msg("Connected to Memcache")
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(ctx); err != nil {
			redisPublisher.Close()
			logger.ForPublisher().Warn().
				Err(apperrors.NewPublisher("", "redis unreachable at "+cfg.RedisAddr, err)).
				Msg("Publishing disabled")
		} else {
			services.Publisher = redisPublisher
			logger.ForPublisher().Info().
				Str("addr", cfg.RedisAddr).
				Int("db", cfg.RedisDB).
				Str("stream", cfg.RedisStream).
				Msg("Connected to Redis")
		}
	}

	return services
}
