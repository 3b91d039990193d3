package service

import (
	"encoding/json"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
)

// WeeklySchedule maps canonical weekday keys to the period labels available
// on that day. Days without an entry have no availability.
type WeeklySchedule map[string][]string

// parseWeeklySchedule decodes a persisted weekly availability document.
// Malformed JSON degrades to an empty schedule so a single bad record can
// never abort a search across the whole horizon.
func parseWeeklySchedule(raw []byte) WeeklySchedule {
	if len(raw) == 0 {
		return WeeklySchedule{}
	}
	var schedule WeeklySchedule
	if err := json.Unmarshal(raw, &schedule); err != nil {
		return WeeklySchedule{}
	}
	if schedule == nil {
		return WeeklySchedule{}
	}
	return schedule
}

// periodsFor returns the schedule's periods for a weekday in ordinal order,
// deduplicated, with unknown labels dropped.
func periodsFor(schedule WeeklySchedule, weekday string) []string {
	raw := schedule[weekday]
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(raw))
	var periods []string
	for _, candidate := range models.Periods {
		for _, label := range raw {
			if label == candidate && !seen[label] {
				seen[label] = true
				periods = append(periods, label)
			}
		}
	}
	return periods
}

// validPeriods drops periods past the weekday's daily cap. Tuesday and
// Wednesday end one period early.
func validPeriods(periods []string, weekday string) []string {
	max := models.MaxPeriodsFor(weekday)
	var valid []string
	for _, period := range periods {
		if ord := models.PeriodOrdinal(period); ord >= 1 && ord <= max {
			valid = append(valid, period)
		}
	}
	return valid
}

// intersectPeriods keeps the periods present in both lists, preserving the
// order of the first.
func intersectPeriods(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	inB := make(map[string]bool, len(b))
	for _, period := range b {
		inB[period] = true
	}
	var out []string
	for _, period := range a {
		if inB[period] {
			out = append(out, period)
		}
	}
	return out
}
