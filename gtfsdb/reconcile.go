package gtfsdb

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
)

// RequiredFiles are the GTFS files a feed must contain to be analysable. A
// missing file is fatal for that feed (the batch continues with the next).
var RequiredFiles = []string{
	"agency.txt", "calendar.txt", "calendar_dates.txt", "routes.txt",
	"shapes.txt", "stop_times.txt", "stops.txt", "trips.txt",
}

// expectedColumns lists, per GTFS file, the source columns the schema
// carries. Anything else observed in a feed is dropped on import and must be
// reported, never silently discarded.
var expectedColumns = map[string][]string{
	"agency.txt": {
		"agency_id", "agency_name", "agency_url", "agency_timezone",
		"agency_lang", "agency_phone", "agency_fare_url", "agency_email",
	},
	"routes.txt": {
		"route_id", "agency_id", "route_short_name", "route_long_name",
		"route_desc", "route_type", "route_url", "route_color",
		"route_text_color",
	},
	"stops.txt": {
		"stop_id", "stop_code", "stop_name", "stop_desc", "stop_lat",
		"stop_lon", "zone_id", "stop_url", "location_type", "stop_timezone",
		"wheelchair_boarding", "platform_code",
	},
	"calendar.txt": {
		"service_id", "monday", "tuesday", "wednesday", "thursday", "friday",
		"saturday", "sunday", "start_date", "end_date",
	},
	"calendar_dates.txt": {
		"service_id", "date", "exception_type",
	},
	"trips.txt": {
		"trip_id", "route_id", "service_id", "trip_headsign",
		"trip_short_name", "direction_id", "block_id", "shape_id",
	},
	"stop_times.txt": {
		"trip_id", "arrival_time", "departure_time", "stop_id",
		"stop_sequence", "stop_headsign", "pickup_type", "drop_off_type",
	},
	"shapes.txt": {
		"shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence",
	},
}

// ColumnDrop records one source column that the destination schema does not
// carry.
type ColumnDrop struct {
	Table  string
	Column string
}

func (d ColumnDrop) String() string {
	return fmt.Sprintf("%s: column %q not carried", d.Table, d.Column)
}

// ReconcileColumns preflights a GTFS archive: verifies every required file
// is present and computes the intersection of expected and observed columns
// per file. Observed columns outside the expected set are returned as typed
// warnings so the caller acknowledges what the import will drop. Legacy
// feeds missing newer columns (e.g. routes without route_color) need no
// retry path: absent columns simply import as NULL.
func ReconcileColumns(data []byte) ([]ColumnDrop, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var missing []string
	for _, name := range RequiredFiles {
		if _, ok := files[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("archive is missing required files: %s", strings.Join(missing, ", "))
	}

	var drops []ColumnDrop
	for _, name := range RequiredFiles {
		observed, err := readHeader(files[name])
		if err != nil {
			return nil, fmt.Errorf("reading %s header: %w", name, err)
		}

		expected := make(map[string]bool, len(expectedColumns[name]))
		for _, col := range expectedColumns[name] {
			expected[col] = true
		}
		for _, col := range observed {
			if !expected[col] {
				drops = append(drops, ColumnDrop{Table: name, Column: col})
			}
		}
	}

	sort.Slice(drops, func(i, j int) bool {
		if drops[i].Table != drops[j].Table {
			return drops[i].Table < drops[j].Table
		}
		return drops[i].Column < drops[j].Column
	})
	return drops, nil
}

func readHeader(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close() // nolint:errcheck

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(header))
	for _, col := range header {
		// Some feeds carry a UTF-8 byte order mark on the first column.
		col = strings.TrimPrefix(col, "\uFEFF")
		cols = append(cols, strings.TrimSpace(col))
	}
	return cols, nil
}
