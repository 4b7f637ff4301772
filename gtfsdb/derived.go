package gtfsdb

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/carlhiggs/GTFS-ANT/internal/analysis"
	"github.com/carlhiggs/GTFS-ANT/internal/logging"
)

// Derived-table persistence. Every writer deletes the rows scoped to its key
// before inserting, inside one transaction, so re-running an analysis fully
// replaces prior results for that mode/interval and nothing else.

// ReplaceServiceDates rebuilds the expanded service calendar.
func (c *Client) ReplaceServiceDates(ctx context.Context, dates []analysis.ServiceDate) error {
	return c.replaceRows(ctx, sq.Delete("service_dates"), `
		INSERT OR REPLACE INTO service_dates (service_id, service_date)
		VALUES (?, ?);
	`, len(dates), func(i int) []any {
		return []any{dates[i].ServiceID, formatFeedDate(dates[i].Date)}
	})
}

// ReplaceModeStops rebuilds one mode's stop universe.
func (c *Client) ReplaceModeStops(ctx context.Context, mode string, stopIDs []string) error {
	return c.replaceRows(ctx, sq.Delete("mode_stops").Where(sq.Eq{"mode": mode}), `
		INSERT OR REPLACE INTO mode_stops (mode, stop_id)
		VALUES (?, ?);
	`, len(stopIDs), func(i int) []any {
		return []any{mode, stopIDs[i]}
	})
}

// ReplaceVerdicts rebuilds the per-date verdicts for one analysis key.
func (c *Client) ReplaceVerdicts(ctx context.Context, key analysis.ResultKey, verdicts []analysis.Verdict) error {
	return c.replaceRows(ctx, scopedDelete("stop_frequency_verdicts", key), `
		INSERT OR REPLACE INTO stop_frequency_verdicts (
			mode, interval_secs, window_start, service_date, stop_id, frequent, max_gap
		) VALUES (?, ?, ?, ?, ?, ?, ?);
	`, len(verdicts), func(i int) []any {
		v := verdicts[i]
		return []any{key.Mode, key.Interval, key.WindowStart,
			formatFeedDate(v.Date), v.StopID, boolToInt(v.Frequent), v.MaxGap}
	})
}

// ReplaceFrequentStops rebuilds the final frequent-stop set for one analysis
// key.
func (c *Client) ReplaceFrequentStops(ctx context.Context, key analysis.ResultKey, stops []analysis.FrequentStop) error {
	return c.replaceRows(ctx, scopedDelete("frequent_stops", key), `
		INSERT OR REPLACE INTO frequent_stops (
			mode, interval_secs, window_start, stop_id, stop_name,
			stop_lat, stop_lon, consistency_pct
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`, len(stops), func(i int) []any {
		s := stops[i]
		return []any{key.Mode, key.Interval, key.WindowStart,
			s.StopID, s.Name, s.Lat, s.Lon, s.ConsistencyPct}
	})
}

// ReplaceModeComparison rebuilds the cross-mode summary for one interval.
func (c *Client) ReplaceModeComparison(ctx context.Context, interval int, summaries []analysis.ModeSummary) error {
	return c.replaceRows(ctx, sq.Delete("mode_comparison").Where(sq.Eq{"interval_secs": interval}), `
		INSERT OR REPLACE INTO mode_comparison (
			interval_secs, mode, universe_count, frequent_count, frequent_pct
		) VALUES (?, ?, ?, ?, ?);
	`, len(summaries), func(i int) []any {
		s := summaries[i]
		return []any{interval, s.Mode, s.UniverseCount, s.FrequentCount, s.FrequentPct}
	})
}

func scopedDelete(table string, key analysis.ResultKey) sq.DeleteBuilder {
	return sq.Delete(table).Where(sq.Eq{
		"mode":          key.Mode,
		"interval_secs": key.Interval,
		"window_start":  key.WindowStart,
	})
}

func (c *Client) replaceRows(ctx context.Context, del sq.DeleteBuilder, insert string, count int, args func(i int) []any) error {
	tx, err := c.DB.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "replace_derived_rows")

	if _, err := del.RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("error clearing prior rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for i := 0; i < count; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("error inserting row: %w", err)
		}
	}

	return tx.Commit()
}
