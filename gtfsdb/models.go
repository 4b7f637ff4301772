package gtfsdb

import "database/sql"

// Agency represents a transit agency in the GTFS feed
type Agency struct {
	ID       string // agency_id
	Name     string // agency_name
	URL      string // agency_url
	Timezone string // agency_timezone
	Lang     sql.NullString
	Phone    sql.NullString
	FareURL  sql.NullString
	Email    sql.NullString
}

// Route represents a transit route in the GTFS feed
type Route struct {
	ID        string         // route_id
	AgencyID  string         // agency_id
	ShortName sql.NullString // route_short_name
	LongName  sql.NullString // route_long_name
	Desc      sql.NullString // route_desc
	Type      int64          // route_type
	URL       sql.NullString // route_url
	Color     sql.NullString // route_color
	TextColor sql.NullString // route_text_color
}

// Stop represents a transit stop or station in the GTFS feed
type Stop struct {
	ID                 string // stop_id
	Code               sql.NullString
	Name               sql.NullString
	Desc               sql.NullString
	Lat                float64 // stop_lat
	Lon                float64 // stop_lon
	ZoneID             sql.NullString
	URL                sql.NullString
	LocationType       sql.NullInt64
	Timezone           sql.NullString
	WheelchairBoarding sql.NullInt64
	PlatformCode       sql.NullString
}

// Calendar represents the weekly service pattern for a service_id
type Calendar struct {
	ServiceID string // service_id
	Monday    int64
	Tuesday   int64
	Wednesday int64
	Thursday  int64
	Friday    int64
	Saturday  int64
	Sunday    int64
	StartDate string // start_date (YYYYMMDD)
	EndDate   string // end_date (YYYYMMDD)
}

// CalendarDate represents a single-date service exception.
// ExceptionType is 1 for added service, 2 for removed service.
type CalendarDate struct {
	ServiceID     string // service_id
	Date          string // date (YYYYMMDD)
	ExceptionType int64  // exception_type
}

// Trip represents a journey made by a vehicle in the GTFS feed
type Trip struct {
	ID          string // trip_id
	RouteID     string // route_id
	ServiceID   string // service_id
	Headsign    sql.NullString
	ShortName   sql.NullString
	DirectionID sql.NullInt64
	BlockID     sql.NullString
	ShapeID     sql.NullString
}

// StopTime represents a vehicle arrival/departure at a specific stop.
// Times are elapsed seconds since the service day's midnight and may exceed
// 86400 for post-midnight trips.
type StopTime struct {
	TripID        string // trip_id
	ArrivalTime   int64  // arrival_time (seconds)
	DepartureTime int64  // departure_time (seconds)
	StopID        string // stop_id
	StopSequence  int64  // stop_sequence
	StopHeadsign  sql.NullString
	PickupType    sql.NullInt64
	DropOffType   sql.NullInt64
}

// Shape represents points that define a vehicle's path
type Shape struct {
	ID       string  // shape_id
	Lat      float64 // shape_pt_lat
	Lon      float64 // shape_pt_lon
	Sequence int64   // shape_pt_sequence
}
