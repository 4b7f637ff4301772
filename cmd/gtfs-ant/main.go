package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hako/durafmt"
	flag "github.com/spf13/pflag"

	"github.com/carlhiggs/GTFS-ANT/gtfsdb"
	"github.com/carlhiggs/GTFS-ANT/internal/analysis"
	"github.com/carlhiggs/GTFS-ANT/internal/appconf"
	"github.com/carlhiggs/GTFS-ANT/internal/config"
	"github.com/carlhiggs/GTFS-ANT/internal/logging"
)

// cliConfig holds all the configuration settings for one batch run, read
// from command-line flags when the tool starts.
type cliConfig struct {
	dir        string
	dbDir      string
	configPath string
	env        string
	reprocess  bool
	verbose    bool
}

// application holds the dependencies shared by the per-feed pipeline runs.
type application struct {
	config cliConfig
	cfg    *config.Config
	logger *slog.Logger
	env    appconf.Environment
}

func main() {
	var cfg cliConfig

	flag.StringVar(&cfg.dir, "dir", ".", "Folder containing zipped GTFS feeds")
	flag.StringVar(&cfg.dbDir, "db-dir", "", "Folder for per-feed databases (defaults to --dir)")
	flag.StringVar(&cfg.configPath, "config", "modes.yml", "Analysis configuration file")
	flag.StringVar(&cfg.env, "env", "development", "Environment (development|production)")
	flag.BoolVar(&cfg.reprocess, "reprocess", false, "Re-analyse feeds whose database already exists")
	flag.BoolVar(&cfg.verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	if cfg.dbDir == "" {
		cfg.dbDir = cfg.dir
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(os.Stdout, level)

	analysisCfg, err := config.Load(cfg.configPath)
	if err != nil {
		logger.Error("failed to load analysis configuration", "error", err)
		os.Exit(1)
	}

	app := &application{
		config: cfg,
		cfg:    analysisCfg,
		logger: logger,
		env:    appconf.EnvFlagToEnvironment(cfg.env),
	}

	if err := app.run(context.Background()); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func (app *application) run(ctx context.Context) error {
	feeds, err := findFeeds(app.config.dir)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", app.config.dir, err)
	}
	if len(feeds) == 0 {
		return fmt.Errorf("no GTFS zip files found in %s", app.config.dir)
	}

	app.logger.Info("starting batch",
		slog.Int("feeds", len(feeds)),
		slog.String("dir", app.config.dir),
		slog.String("env", app.env.String()))

	// One feed failing must not take down its siblings; the error is
	// logged and the loop moves on. Cancellation is honoured between
	// feeds, never mid-pipeline.
	for _, feedPath := range feeds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := app.processFeed(ctx, feedPath); err != nil {
			logging.LogFeedFailure(app.logger, filepath.Base(feedPath), "pipeline", err)
		}
	}

	return nil
}

func findFeeds(dir string) ([]string, error) {
	var feeds []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".zip") {
			feeds = append(feeds, path)
		}
		return nil
	})
	sort.Strings(feeds)
	return feeds, err
}

func (app *application) processFeed(ctx context.Context, feedPath string) error {
	started := time.Now()
	name := strings.TrimSuffix(filepath.Base(feedPath), ".zip")
	dbPath := filepath.Join(app.config.dbDir, name+".db")

	_, statErr := os.Stat(dbPath)
	alreadyImported := statErr == nil
	if alreadyImported && !app.config.reprocess {
		app.logger.Info("feed already processed, skipping",
			slog.String("feed", name),
			slog.String("db", dbPath))
		return nil
	}

	opts, err := app.cfg.AnalysisOptions(feedYear(name, app.logger))
	if err != nil {
		return fmt.Errorf("resolving analysis options: %w", err)
	}

	client, err := gtfsdb.NewClient(gtfsdb.NewConfig(dbPath, app.env, app.config.verbose), app.logger)
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(client, app.logger, "close_feed_db")

	if !alreadyImported {
		summary, err := client.ImportFromFile(ctx, feedPath)
		if err != nil {
			return fmt.Errorf("importing %s: %w", feedPath, err)
		}
		for table, count := range summary.TableCounts {
			app.logger.Debug("table_imported",
				slog.String("feed", name),
				slog.String("table", table),
				slog.Int64("rows", count))
		}
	}

	analyzer := analysis.NewAnalyzer(client, app.logger)
	result, err := analyzer.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("analysing %s: %w", name, err)
	}

	for _, warning := range result.Warnings {
		app.logger.Warn("analysis_warning",
			slog.String("feed", name),
			slog.String("kind", warning.Kind.String()),
			slog.String("mode", warning.Mode),
			slog.String("detail", warning.Detail))
	}

	printComparison(os.Stdout, name, result)

	app.logger.Info("feed completed",
		slog.String("feed", name),
		slog.String("elapsed", durafmt.Parse(time.Since(started)).LimitFirstN(2).String()))
	return nil
}

// feedYear derives the analysis year from the recommended feed naming
// schema, e.g. "gtfs_vic_ptv_20180413". Feeds named otherwise fall back to
// the current year.
func feedYear(name string, logger *slog.Logger) int {
	parts := strings.Split(name, "_")
	suffix := parts[len(parts)-1]
	if len(suffix) >= 4 {
		if year, err := strconv.Atoi(suffix[:4]); err == nil && year >= 1900 && year <= 2999 {
			return year
		}
	}

	year := time.Now().Year()
	logger.Warn("feed name has no _yyyymmdd suffix, using current year",
		slog.String("feed", name),
		slog.Int("year", year))
	return year
}

func printComparison(w io.Writer, feed string, result *analysis.Result) {
	for _, interval := range result.Intervals {
		fmt.Fprintf(w, "\n%s: frequency %s\n", feed, analysis.FormatServiceTime(interval.Interval))

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "mode\tstops\tfrequent\tpct")
		for _, s := range interval.Summaries {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\n", s.Mode, s.UniverseCount, s.FrequentCount, s.FrequentPct)
		}
		tw.Flush() // nolint:errcheck
	}
}
