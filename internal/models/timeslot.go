package models

import "time"

// DateKeyFormat is the canonical calendar-date wire format (YYYY-MM-DD).
const DateKeyFormat = "2006-01-02"

// Weekday keys are the canonical lowercase Indonesian day names used in
// persisted weekly schedules. Saturday and Sunday are not exam days.
const (
	DaySenin  = "senin"
	DaySelasa = "selasa"
	DayRabu   = "rabu"
	DayKamis  = "kamis"
	DayJumat  = "jumat"
)

// Weekdays lists the working weekdays in calendar order.
var Weekdays = []string{DaySenin, DaySelasa, DayRabu, DayKamis, DayJumat}

// Periods are the five fixed daily exam periods, in ordinal order.
var Periods = []string{"Jam ke-1", "Jam ke-2", "Jam ke-3", "Jam ke-4", "Jam ke-5"}

var periodOrdinals = map[string]int{
	"Jam ke-1": 1,
	"Jam ke-2": 2,
	"Jam ke-3": 3,
	"Jam ke-4": 4,
	"Jam ke-5": 5,
}

var weekdayKeys = map[time.Weekday]string{
	time.Monday:    DaySenin,
	time.Tuesday:   DaySelasa,
	time.Wednesday: DayRabu,
	time.Thursday:  DayKamis,
	time.Friday:    DayJumat,
}

// PeriodOrdinal returns the 1-based ordinal for a period label, or 0 for
// unknown labels.
func PeriodOrdinal(period string) int {
	return periodOrdinals[period]
}

// IsValidPeriod reports whether the label is one of the five fixed periods.
func IsValidPeriod(period string) bool {
	return periodOrdinals[period] != 0
}

// WeekdayKey maps a calendar weekday to its canonical schedule key. Weekend
// days return an empty string: no exams are ever scheduled on them.
func WeekdayKey(d time.Weekday) string {
	return weekdayKeys[d]
}

// MaxPeriodsFor returns the daily period cap: selasa and rabu end one period
// early, every other working day runs all five.
func MaxPeriodsFor(weekday string) int {
	if weekday == DaySelasa || weekday == DayRabu {
		return 4
	}
	return 5
}

// AvailableSlot is a derived open slot returned by the nearest-slot search.
// It is computed fresh per query and never persisted.
type AvailableSlot struct {
	Date           time.Time `json:"date"`
	DateKey        string    `json:"date_key"`
	Period         string    `json:"period"`
	Weekday        string    `json:"weekday"`
	DistanceInDays int       `json:"distance_in_days"`
}
