// Package calendar expands a month into hourly time-dimension rows.
package calendar

import (
	"fmt"
	"time"

	"github.com/tigerroll/dimtime/pkg/batch/support/util/exception"
)

// HoursPerDay is the number of rows generated per day.
const HoursPerDay = 24

// Row is one hour of the time dimension.
type Row struct {
	// SequenceID is the 1-based position of the row within one generation.
	SequenceID int64
	// Timestamp is the start of the hour as a UTC wall-clock value.
	Timestamp      time.Time
	Hour           int
	Day            int
	Month          int
	Year           int
	Quarter        int
	HalfYear       int
	PartitionYear  int
	PartitionMonth int
	PartitionDay   int
}

// DaysInMonth returns the number of days of month in year under the proleptic Gregorian calendar.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Quarter returns the quarter (1-4) of month.
func Quarter(month time.Month) int {
	return (int(month)-1)/3 + 1
}

// HalfYear returns the half-year (1-2) of month.
func HalfYear(month time.Month) int {
	return (int(month)-1)/6 + 1
}

// Generate returns one row per hour of the month, ordered by day then hour.
//
// Parameters:
//
//	year: The calendar year.
//	month: The month, January to December.
//
// Returns:
//
//	DaysInMonth*24 rows with sequence ids 1..n, and a DateRangeError when month is outside 1-12.
func Generate(year int, month time.Month) ([]Row, error) {
	if month < time.January || month > time.December {
		return nil, exception.NewDateRangeError("calendar", fmt.Sprintf("month %d of year %d is out of range", int(month), year), nil)
	}

	days := DaysInMonth(year, month)
	quarter, half := Quarter(month), HalfYear(month)
	rows := make([]Row, 0, days*HoursPerDay)
	for day := 1; day <= days; day++ {
		for hour := 0; hour < HoursPerDay; hour++ {
			rows = append(rows, Row{
				SequenceID:     int64(len(rows) + 1),
				Timestamp:      time.Date(year, month, day, hour, 0, 0, 0, time.UTC),
				Hour:           hour,
				Day:            day,
				Month:          int(month),
				Year:           year,
				Quarter:        quarter,
				HalfYear:       half,
				PartitionYear:  year,
				PartitionMonth: int(month),
				PartitionDay:   day,
			})
		}
	}
	return rows, nil
}
