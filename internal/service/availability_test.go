package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
)

func TestParseWeeklyScheduleDegradesOnBadInput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"malformed json", `{"senin": [`},
		{"wrong shape", `["senin"]`},
		{"null", `null`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			schedule := parseWeeklySchedule([]byte(tc.raw))
			assert.NotNil(t, schedule)
			assert.Empty(t, schedule)
		})
	}
}

func TestParseWeeklySchedule(t *testing.T) {
	schedule := parseWeeklySchedule([]byte(`{"senin": ["Jam ke-1", "Jam ke-3"], "jumat": ["Jam ke-5"]}`))
	assert.Equal(t, []string{"Jam ke-1", "Jam ke-3"}, schedule["senin"])
	assert.Equal(t, []string{"Jam ke-5"}, schedule["jumat"])
	assert.Nil(t, schedule["selasa"])
}

func TestPeriodsForOrdersAndDedupes(t *testing.T) {
	schedule := WeeklySchedule{
		"senin": {"Jam ke-4", "Jam ke-1", "Jam ke-4", "Jam ke-99", "Jam ke-2"},
	}
	assert.Equal(t, []string{"Jam ke-1", "Jam ke-2", "Jam ke-4"}, periodsFor(schedule, "senin"))
	assert.Nil(t, periodsFor(schedule, "kamis"))
}

func TestValidPeriodsAppliesDayCaps(t *testing.T) {
	all := []string{"Jam ke-1", "Jam ke-2", "Jam ke-3", "Jam ke-4", "Jam ke-5"}

	assert.Equal(t, all, validPeriods(all, models.DaySenin))
	assert.Equal(t, all[:4], validPeriods(all, models.DaySelasa))
	assert.Equal(t, all[:4], validPeriods(all, models.DayRabu))
	assert.Equal(t, all, validPeriods(all, models.DayKamis))
	assert.Equal(t, all, validPeriods(all, models.DayJumat))
}

func TestIntersectPeriods(t *testing.T) {
	a := []string{"Jam ke-1", "Jam ke-2", "Jam ke-3"}
	b := []string{"Jam ke-2", "Jam ke-3", "Jam ke-5"}
	assert.Equal(t, []string{"Jam ke-2", "Jam ke-3"}, intersectPeriods(a, b))
	assert.Nil(t, intersectPeriods(a, nil))
	assert.Nil(t, intersectPeriods(nil, b))
}
