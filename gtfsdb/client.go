package gtfsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/carlhiggs/GTFS-ANT/internal/appconf"
	"github.com/carlhiggs/GTFS-ANT/internal/logging"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Client owns one feed's SQLite database: the imported GTFS tables and the
// derived analysis tables.
type Client struct {
	config        Config
	DB            *sql.DB
	logger        *slog.Logger
	importRuntime time.Duration
}

// NewClient opens (creating if needed) the database for one feed and runs
// the schema migration.
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, errors.New("test database must use in-memory storage")
	}

	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	return &Client{
		config: config,
		DB:     db,
		logger: logger,
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// ImportRuntime reports how long the last import took.
func (c *Client) ImportRuntime() time.Duration {
	return c.importRuntime
}

// ImportSummary describes the result of one feed import.
type ImportSummary struct {
	TableCounts      map[string]int64
	DroppedColumns   []ColumnDrop
	SkippedStops     int // stops without usable WGS84 coordinates
	SkippedStopTimes int // rows with unusable values or a skipped stop
	Runtime          time.Duration
}

// ImportFromFile imports GTFS data from a local zip file into the database.
// The archive is preflighted first: all required files must be present and
// any source columns the schema does not carry are surfaced as typed
// dropped-column warnings on the summary rather than silently discarded.
func (c *Client) ImportFromFile(ctx context.Context, path string) (*ImportSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()

	drops, err := ReconcileColumns(data)
	if err != nil {
		return nil, fmt.Errorf("preflighting %s: %w", path, err)
	}
	for _, drop := range drops {
		c.logger.Warn("column_dropped",
			slog.String("table", drop.Table),
			slog.String("column", drop.Column))
	}

	summary, err := c.processAndStoreGTFSData(ctx, data)
	if err != nil {
		return nil, err
	}

	c.importRuntime = time.Since(startTime)
	summary.DroppedColumns = drops
	summary.Runtime = c.importRuntime

	logging.LogOperation(c.logger, "gtfs_data_imported",
		slog.String("source", path),
		slog.Int("dropped_columns", len(drops)),
		slog.Int("skipped_stops", summary.SkippedStops),
		slog.Int("skipped_stop_times", summary.SkippedStopTimes),
		slog.Duration("duration", c.importRuntime))

	return summary, nil
}

// TableCounts returns the row count of every imported GTFS table.
func (c *Client) TableCounts(ctx context.Context) (map[string]int64, error) {
	tables := []string{
		"agencies", "routes", "stops", "calendar", "calendar_dates",
		"trips", "stop_times", "shapes",
	}

	counts := make(map[string]int64, len(tables))
	for _, table := range tables {
		var count int64
		// Table names come from the fixed list above, never from input.
		row := c.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table)
		if err := row.Scan(&count); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts[table] = count
	}
	return counts, nil
}
