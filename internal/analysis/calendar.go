package analysis

import (
	"sort"

	"github.com/rickb777/date"
)

// ServiceCalendar is one calendar.txt row: a weekly pattern valid over an
// inclusive date range.
type ServiceCalendar struct {
	ServiceID string
	Weekdays  [7]bool // indexed by time.Weekday (Sunday = 0)
	Start     date.Date
	End       date.Date
}

// ExceptionKind matches calendar_dates.txt exception_type values.
type ExceptionKind int

const (
	ServiceAdded   ExceptionKind = 1
	ServiceRemoved ExceptionKind = 2
)

// ServiceException is one calendar_dates.txt row: a single-date override of
// the weekly pattern.
type ServiceException struct {
	ServiceID string
	Date      date.Date
	Kind      ExceptionKind
}

// ServiceDate is one concrete (service, date) pair on which the service
// operates.
type ServiceDate struct {
	ServiceID string
	Date      date.Date
}

type serviceDateKey struct {
	serviceID string
	day       date.Date
}

// ExpandCalendars turns weekly patterns plus exception overrides into the
// explicit set of operating (service, date) pairs. Weekly expansion runs
// first over each calendar's inclusive range, then all REMOVED exceptions
// delete pairs (absent pairs are ignored), then all ADDED exceptions insert
// them (duplicates are idempotent). Applying removals before additions makes
// the result independent of the exceptions' input order: a pair carrying
// both kinds ends up present. A calendar with all seven flags false yields
// no base dates but can still gain dates through ADDED exceptions.
func ExpandCalendars(calendars []ServiceCalendar, exceptions []ServiceException) []ServiceDate {
	operating := make(map[serviceDateKey]struct{})

	for _, cal := range calendars {
		if cal.End.Before(cal.Start) {
			continue
		}
		for d := cal.Start; !d.After(cal.End); d = d.Add(1) {
			if cal.Weekdays[int(d.Weekday())] {
				operating[serviceDateKey{cal.ServiceID, d}] = struct{}{}
			}
		}
	}

	for _, exc := range exceptions {
		if exc.Kind == ServiceRemoved {
			delete(operating, serviceDateKey{exc.ServiceID, exc.Date})
		}
	}
	for _, exc := range exceptions {
		if exc.Kind == ServiceAdded {
			operating[serviceDateKey{exc.ServiceID, exc.Date}] = struct{}{}
		}
	}

	result := make([]ServiceDate, 0, len(operating))
	for key := range operating {
		result = append(result, ServiceDate{ServiceID: key.serviceID, Date: key.day})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ServiceID != result[j].ServiceID {
			return result[i].ServiceID < result[j].ServiceID
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result
}
