package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rickb777/date"

	"github.com/carlhiggs/GTFS-ANT/internal/analysis"
)

// Read queries for the analysis pipeline. All SQL is built with squirrel
// builders; no query text is assembled from configuration strings.

// ServiceCalendars returns every calendar.txt row as an analysis value.
func (c *Client) ServiceCalendars(ctx context.Context) ([]analysis.ServiceCalendar, error) {
	rows, err := sq.Select(
		"service_id", "monday", "tuesday", "wednesday", "thursday",
		"friday", "saturday", "sunday", "start_date", "end_date").
		From("calendar").
		RunWith(c.DB).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying calendar: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var calendars []analysis.ServiceCalendar
	for rows.Next() {
		var cal analysis.ServiceCalendar
		var mon, tue, wed, thu, fri, sat, sun int64
		var startStr, endStr string
		if err := rows.Scan(&cal.ServiceID, &mon, &tue, &wed, &thu, &fri, &sat, &sun, &startStr, &endStr); err != nil {
			return nil, fmt.Errorf("scanning calendar: %w", err)
		}

		cal.Weekdays[time.Monday] = mon == 1
		cal.Weekdays[time.Tuesday] = tue == 1
		cal.Weekdays[time.Wednesday] = wed == 1
		cal.Weekdays[time.Thursday] = thu == 1
		cal.Weekdays[time.Friday] = fri == 1
		cal.Weekdays[time.Saturday] = sat == 1
		cal.Weekdays[time.Sunday] = sun == 1

		cal.Start, err = parseFeedDate(startStr)
		if err != nil {
			return nil, fmt.Errorf("calendar %s start_date: %w", cal.ServiceID, err)
		}
		cal.End, err = parseFeedDate(endStr)
		if err != nil {
			return nil, fmt.Errorf("calendar %s end_date: %w", cal.ServiceID, err)
		}
		calendars = append(calendars, cal)
	}
	return calendars, rows.Err()
}

// ServiceExceptions returns every calendar_dates.txt row as an analysis
// value.
func (c *Client) ServiceExceptions(ctx context.Context) ([]analysis.ServiceException, error) {
	rows, err := sq.Select("service_id", "date", "exception_type").
		From("calendar_dates").
		RunWith(c.DB).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying calendar_dates: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var exceptions []analysis.ServiceException
	for rows.Next() {
		var exc analysis.ServiceException
		var dateStr string
		var kind int64
		if err := rows.Scan(&exc.ServiceID, &dateStr, &kind); err != nil {
			return nil, fmt.Errorf("scanning calendar_dates: %w", err)
		}
		exc.Date, err = parseFeedDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("calendar_dates %s: %w", exc.ServiceID, err)
		}
		exc.Kind = analysis.ExceptionKind(kind)
		exceptions = append(exceptions, exc)
	}
	return exceptions, rows.Err()
}

// Routes returns all routes keyed by route ID, with the columns the mode
// predicate needs.
func (c *Client) Routes(ctx context.Context) (map[string]analysis.Route, error) {
	rows, err := sq.Select("route_id", "agency_id", "route_type", "route_color").
		From("routes").
		RunWith(c.DB).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying routes: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	routes := make(map[string]analysis.Route)
	for rows.Next() {
		var route analysis.Route
		var routeType int64
		var color sql.NullString
		if err := rows.Scan(&route.ID, &route.AgencyID, &routeType, &color); err != nil {
			return nil, fmt.Errorf("scanning route: %w", err)
		}
		route.Type = int(routeType)
		route.Color = color.String
		routes[route.ID] = route
	}
	return routes, rows.Err()
}

// StopRoutePairs returns the distinct (stop, route) pairs linked by at least
// one trip, prefiltered to the given route types. The full mode predicate
// (agency and colour filters) is applied by the caller.
func (c *Client) StopRoutePairs(ctx context.Context, routeTypes []int) ([]analysis.StopRoute, error) {
	rows, err := sq.Select("st.stop_id", "t.route_id").Distinct().
		From("stop_times st").
		Join("trips t ON t.trip_id = st.trip_id").
		Join("routes r ON r.route_id = t.route_id").
		Where(sq.Eq{"r.route_type": routeTypes}).
		RunWith(c.DB).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying stop/route pairs: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var pairs []analysis.StopRoute
	for rows.Next() {
		var pair analysis.StopRoute
		if err := rows.Scan(&pair.StopID, &pair.RouteID); err != nil {
			return nil, fmt.Errorf("scanning stop/route pair: %w", err)
		}
		pairs = append(pairs, pair)
	}
	return pairs, rows.Err()
}

// DepartureRows returns the distinct departure candidates for the route
// types, window, and analysis period: trips joined to their operating
// service dates and to stop times whose departure falls inside the window.
func (c *Client) DepartureRows(ctx context.Context, routeTypes []int, w analysis.Window, p analysis.Period) ([]analysis.DepartureRow, error) {
	rows, err := sq.Select("t.route_id", "t.trip_id", "st.stop_id", "sd.service_date", "st.departure_time").Distinct().
		From("stop_times st").
		Join("trips t ON t.trip_id = st.trip_id").
		Join("routes r ON r.route_id = t.route_id").
		Join("service_dates sd ON sd.service_id = t.service_id").
		Where(sq.Eq{"r.route_type": routeTypes}).
		Where(sq.GtOrEq{"st.departure_time": w.Start}).
		Where(sq.LtOrEq{"st.departure_time": w.End}).
		Where(sq.GtOrEq{"sd.service_date": formatFeedDate(p.Start)}).
		Where(sq.LtOrEq{"sd.service_date": formatFeedDate(p.End)}).
		RunWith(c.DB).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying departures: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var result []analysis.DepartureRow
	for rows.Next() {
		var row analysis.DepartureRow
		var dateStr string
		var departure int64
		if err := rows.Scan(&row.RouteID, &row.TripID, &row.StopID, &dateStr, &departure); err != nil {
			return nil, fmt.Errorf("scanning departure: %w", err)
		}
		row.Date, err = parseFeedDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("departure date: %w", err)
		}
		row.Departure = int(departure)
		result = append(result, row)
	}
	return result, rows.Err()
}

// StopDetails returns name and coordinates for the given stops.
func (c *Client) StopDetails(ctx context.Context, stopIDs []string) (map[string]analysis.StopDetail, error) {
	details := make(map[string]analysis.StopDetail, len(stopIDs))

	// SQLite caps the number of bound parameters, so look stops up in
	// chunks.
	const chunkSize = 500
	for start := 0; start < len(stopIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(stopIDs) {
			end = len(stopIDs)
		}

		rows, err := sq.Select("stop_id", "stop_name", "stop_lat", "stop_lon").
			From("stops").
			Where(sq.Eq{"stop_id": stopIDs[start:end]}).
			RunWith(c.DB).QueryContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying stops: %w", err)
		}

		for rows.Next() {
			var detail analysis.StopDetail
			var name sql.NullString
			if err := rows.Scan(&detail.ID, &name, &detail.Lat, &detail.Lon); err != nil {
				rows.Close() // nolint:errcheck
				return nil, fmt.Errorf("scanning stop: %w", err)
			}
			detail.Name = name.String
			details[detail.ID] = detail
		}
		if err := rows.Err(); err != nil {
			rows.Close() // nolint:errcheck
			return nil, err
		}
		rows.Close() // nolint:errcheck
	}
	return details, nil
}

func parseFeedDate(s string) (date.Date, error) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return date.Date{}, fmt.Errorf("bad date value %q: %w", s, err)
	}
	return date.NewAt(t), nil
}

func formatFeedDate(d date.Date) string {
	return d.UTC().Format("20060102")
}
