package gtfsdb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/jamespfennell/gtfs"

	"github.com/carlhiggs/GTFS-ANT/internal/logging"
)

//go:embed schema.sql
var ddl string

// createDB opens a SQLite database and applies the schema migration.
func createDB(config Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", config.DBPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}

	ctx := context.Background()
	if err := performDatabaseMigration(ctx, db); err != nil {
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	statements := strings.Split(ddl, "-- migrate") // Split DDL into individual statements
	for _, stmt := range statements {
		trimmedStmt := strings.TrimSpace(stmt)
		if trimmedStmt == "" {
			continue // Skip empty statements
		}
		if _, err := db.ExecContext(ctx, trimmedStmt); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmedStmt, err)
		}
	}
	return nil
}

func (c *Client) processAndStoreGTFSData(ctx context.Context, b []byte) (*ImportSummary, error) {
	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("parsing GTFS archive: %w", err)
	}

	summary := &ImportSummary{}

	var agencies []Agency
	for _, a := range staticData.Agencies {
		agencies = append(agencies, Agency{
			ID:       a.Id,
			Name:     a.Name,
			URL:      a.Url,
			Timezone: a.Timezone,
			Lang:     toNullString(a.Language),
			Phone:    toNullString(a.Phone),
			FareURL:  toNullString(a.FareUrl),
			Email:    toNullString(a.Email),
		})
	}
	if err := c.insertAgencies(ctx, agencies); err != nil {
		return nil, fmt.Errorf("storing agencies: %w", err)
	}

	singleAgencyID := ""
	if len(staticData.Agencies) == 1 {
		singleAgencyID = staticData.Agencies[0].Id
	}

	var routes []Route
	for _, r := range staticData.Routes {
		routes = append(routes, Route{
			ID:        r.Id,
			AgencyID:  pickFirstAvailable(r.Agency.Id, singleAgencyID),
			ShortName: toNullString(r.ShortName),
			LongName:  toNullString(r.LongName),
			Desc:      toNullString(r.Description),
			Type:      int64(r.Type),
			URL:       toNullString(r.Url),
			Color:     toNullString(r.Color),
			TextColor: toNullString(r.TextColor),
		})
	}
	if err := c.insertRoutes(ctx, routes); err != nil {
		return nil, fmt.Errorf("storing routes: %w", err)
	}

	// Stops without usable WGS84 coordinates are skipped and counted; their
	// stop_times must be skipped with them or the foreign key on stop_id
	// aborts the whole import.
	var stops []Stop
	storedStops := make(map[string]bool, len(staticData.Stops))
	for _, s := range staticData.Stops {
		if s.Latitude == nil || s.Longitude == nil ||
			*s.Latitude < -90 || *s.Latitude > 90 ||
			*s.Longitude < -180 || *s.Longitude > 180 {
			summary.SkippedStops++
			continue
		}
		storedStops[s.Id] = true
		stops = append(stops, Stop{
			ID:                 s.Id,
			Code:               toNullString(s.Code),
			Name:               toNullString(s.Name),
			Desc:               toNullString(s.Description),
			Lat:                *s.Latitude,
			Lon:                *s.Longitude,
			ZoneID:             toNullString(s.ZoneId),
			URL:                toNullString(s.Url),
			LocationType:       toNullInt64(int64(s.Type)),
			Timezone:           toNullString(s.Timezone),
			WheelchairBoarding: toNullInt64(int64(s.WheelchairBoarding)),
			PlatformCode:       toNullString(s.PlatformCode),
		})
	}
	if err := c.insertStops(ctx, stops); err != nil {
		return nil, fmt.Errorf("storing stops: %w", err)
	}

	var calendars []Calendar
	var calendarDates []CalendarDate
	for _, s := range staticData.Services {
		calendars = append(calendars, Calendar{
			ServiceID: s.Id,
			Monday:    boolToInt(s.Monday),
			Tuesday:   boolToInt(s.Tuesday),
			Wednesday: boolToInt(s.Wednesday),
			Thursday:  boolToInt(s.Thursday),
			Friday:    boolToInt(s.Friday),
			Saturday:  boolToInt(s.Saturday),
			Sunday:    boolToInt(s.Sunday),
			StartDate: s.StartDate.Format("20060102"),
			EndDate:   s.EndDate.Format("20060102"),
		})
		for _, d := range s.AddedDates {
			calendarDates = append(calendarDates, CalendarDate{
				ServiceID:     s.Id,
				Date:          d.Format("20060102"),
				ExceptionType: 1,
			})
		}
		for _, d := range s.RemovedDates {
			calendarDates = append(calendarDates, CalendarDate{
				ServiceID:     s.Id,
				Date:          d.Format("20060102"),
				ExceptionType: 2,
			})
		}
	}
	if err := c.insertCalendars(ctx, calendars); err != nil {
		return nil, fmt.Errorf("storing calendar: %w", err)
	}
	if err := c.insertCalendarDates(ctx, calendarDates); err != nil {
		return nil, fmt.Errorf("storing calendar dates: %w", err)
	}

	var trips []Trip
	var stopTimes []StopTime
	for _, t := range staticData.Trips {
		shapeID := ""
		if t.Shape != nil {
			shapeID = t.Shape.ID
		}
		trips = append(trips, Trip{
			ID:          t.ID,
			RouteID:     t.Route.Id,
			ServiceID:   t.Service.Id,
			Headsign:    toNullString(t.Headsign),
			ShortName:   toNullString(t.ShortName),
			DirectionID: toNullInt64(int64(t.DirectionId)),
			BlockID:     toNullString(t.BlockID),
			ShapeID:     toNullString(shapeID),
		})

		for _, st := range t.StopTimes {
			departure := int64(st.DepartureTime / time.Second)
			arrival := int64(st.ArrivalTime / time.Second)
			// A departure before the service day's midnight cannot be
			// expressed in elapsed seconds; skip and count the row
			// instead of aborting the feed.
			if departure < 0 || arrival < 0 || !storedStops[st.Stop.Id] {
				summary.SkippedStopTimes++
				continue
			}
			stopTimes = append(stopTimes, StopTime{
				TripID:        t.ID,
				ArrivalTime:   arrival,
				DepartureTime: departure,
				StopID:        st.Stop.Id,
				StopSequence:  int64(st.StopSequence),
				StopHeadsign:  toNullString(st.Headsign),
				PickupType:    toNullInt64(int64(st.PickupType)),
				DropOffType:   toNullInt64(int64(st.DropOffType)),
			})
		}
	}
	if err := c.insertTrips(ctx, trips); err != nil {
		return nil, fmt.Errorf("storing trips: %w", err)
	}
	if err := c.insertStopTimes(ctx, stopTimes); err != nil {
		return nil, fmt.Errorf("storing stop times: %w", err)
	}

	var shapes []Shape
	for _, s := range staticData.Shapes {
		for idx, pt := range s.Points {
			shapes = append(shapes, Shape{
				ID:       s.ID,
				Lat:      pt.Latitude,
				Lon:      pt.Longitude,
				Sequence: int64(idx),
			})
		}
	}
	if err := c.insertShapes(ctx, shapes); err != nil {
		return nil, fmt.Errorf("storing shapes: %w", err)
	}

	counts, err := c.TableCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting tables: %w", err)
	}
	summary.TableCounts = counts

	return summary, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func toNullInt64(i int64) sql.NullInt64 {
	if i != 0 {
		return sql.NullInt64{
			Int64: i,
			Valid: true,
		}
	}
	return sql.NullInt64{}
}

// toNullString converts a string to sql.NullString
func toNullString(s string) sql.NullString {
	return sql.NullString{
		String: s,
		Valid:  s != "",
	}
}

func pickFirstAvailable(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// bulkExec runs one prepared statement over many rows inside a transaction.
func (c *Client) bulkExec(ctx context.Context, query string, count int, args func(i int) []any) error {
	tx, err := c.DB.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "bulk_insert")

	stmt, err := tx.PrepareContext(ctx, query)
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

func (c *Client) insertAgencies(ctx context.Context, agencies []Agency) error {
	return c.bulkExec(ctx, `
		INSERT OR REPLACE INTO agencies (
			id, name, url, timezone, lang, phone, fare_url, email
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`, len(agencies), func(i int) []any {
		a := agencies[i]
		return []any{a.ID, a.Name, a.URL, a.Timezone, a.Lang, a.Phone, a.FareURL, a.Email}
	})
}

func (c *Client) insertRoutes(ctx context.Context, routes []Route) error {
	return c.bulkExec(ctx, `
		INSERT OR REPLACE INTO routes (
			route_id, agency_id, route_short_name, route_long_name, route_desc,
			route_type, route_url, route_color, route_text_color
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, len(routes), func(i int) []any {
		r := routes[i]
		return []any{r.ID, r.AgencyID, r.ShortName, r.LongName, r.Desc, r.Type, r.URL, r.Color, r.TextColor}
	})
}

func (c *Client) insertStops(ctx context.Context, stops []Stop) error {
	return c.bulkExec(ctx, `
		INSERT OR REPLACE INTO stops (
			stop_id, stop_code, stop_name, stop_desc, stop_lat, stop_lon,
			zone_id, stop_url, location_type, stop_timezone,
			wheelchair_boarding, platform_code
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, len(stops), func(i int) []any {
		s := stops[i]
		return []any{s.ID, s.Code, s.Name, s.Desc, s.Lat, s.Lon, s.ZoneID, s.URL,
			s.LocationType, s.Timezone, s.WheelchairBoarding, s.PlatformCode}
	})
}

func (c *Client) insertCalendars(ctx context.Context, calendars []Calendar) error {
	return c.bulkExec(ctx, `
		INSERT OR REPLACE INTO calendar (
			service_id, monday, tuesday, wednesday, thursday,
			friday, saturday, sunday, start_date, end_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, len(calendars), func(i int) []any {
		cal := calendars[i]
		return []any{cal.ServiceID, cal.Monday, cal.Tuesday, cal.Wednesday, cal.Thursday,
			cal.Friday, cal.Saturday, cal.Sunday, cal.StartDate, cal.EndDate}
	})
}

func (c *Client) insertCalendarDates(ctx context.Context, dates []CalendarDate) error {
	return c.bulkExec(ctx, `
		INSERT OR REPLACE INTO calendar_dates (
			service_id, date, exception_type
		) VALUES (?, ?, ?);
	`, len(dates), func(i int) []any {
		d := dates[i]
		return []any{d.ServiceID, d.Date, d.ExceptionType}
	})
}

func (c *Client) insertTrips(ctx context.Context, trips []Trip) error {
	return c.bulkExec(ctx, `
		INSERT OR REPLACE INTO trips (
			trip_id, route_id, service_id, trip_headsign, trip_short_name,
			direction_id, block_id, shape_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`, len(trips), func(i int) []any {
		t := trips[i]
		return []any{t.ID, t.RouteID, t.ServiceID, t.Headsign, t.ShortName,
			t.DirectionID, t.BlockID, t.ShapeID}
	})
}

func (c *Client) insertStopTimes(ctx context.Context, stopTimes []StopTime) error {
	return c.bulkExec(ctx, `
		INSERT OR REPLACE INTO stop_times (
			trip_id, arrival_time, departure_time, stop_id, stop_sequence,
			stop_headsign, pickup_type, drop_off_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`, len(stopTimes), func(i int) []any {
		st := stopTimes[i]
		return []any{st.TripID, st.ArrivalTime, st.DepartureTime, st.StopID, st.StopSequence,
			st.StopHeadsign, st.PickupType, st.DropOffType}
	})
}

func (c *Client) insertShapes(ctx context.Context, shapes []Shape) error {
	return c.bulkExec(ctx, `
		INSERT OR REPLACE INTO shapes (
			shape_id, lat, lon, shape_pt_sequence
		) VALUES (?, ?, ?, ?);
	`, len(shapes), func(i int) []any {
		s := shapes[i]
		return []any{s.ID, s.Lat, s.Lon, s.Sequence}
	})
}
