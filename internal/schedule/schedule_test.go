package schedule

import (
	"encoding/json"
	"testing"

	"agentai-console/pkg/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(dow int, ranges ...string) models.OperatingDay {
	d := models.OperatingDay{DayOfWeek: dow, WorkingTimes: []models.WorkingTime{}}
	for i := 0; i+1 < len(ranges); i += 2 {
		d.WorkingTimes = append(d.WorkingTimes, models.WorkingTime{Start: ranges[i], End: ranges[i+1]})
	}
	return d
}

func TestAddDay_InsertsInOrderAndCopiesPreviousRanges(t *testing.T) {
	days := []models.OperatingDay{day(1, "08:00", "12:00"), day(5)}

	out, err := AddDay(days, 3)
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, []int{1, 3, 5}, []int{out[0].DayOfWeek, out[1].DayOfWeek, out[2].DayOfWeek})
	assert.Equal(t, []models.WorkingTime{{Start: "08:00", End: "12:00"}}, out[1].WorkingTimes)

	// the source slice is untouched
	assert.Len(t, days, 2)
}

func TestAddDay_FirstDayStartsEmpty(t *testing.T) {
	out, err := AddDay([]models.OperatingDay{day(4, "09:00", "10:00")}, 0)
	require.NoError(t, err)

	assert.Equal(t, 0, out[0].DayOfWeek)
	assert.NotNil(t, out[0].WorkingTimes)
	assert.Empty(t, out[0].WorkingTimes)
}

func TestAddDay_CopiedRangesAreIndependent(t *testing.T) {
	out, err := AddDay([]models.OperatingDay{day(1, "08:00", "12:00")}, 2)
	require.NoError(t, err)

	out[1].WorkingTimes[0].Start = "09:00"
	assert.Equal(t, "08:00", out[0].WorkingTimes[0].Start)
}

func TestAddDay_Rejects(t *testing.T) {
	_, err := AddDay([]models.OperatingDay{day(2)}, 2)
	assert.True(t, errors.Is(err, ErrDuplicateDay))

	_, err = AddDay(nil, 7)
	assert.ErrorIs(t, err, ErrDayOutOfRange)

	_, err = AddDay(nil, -1)
	assert.ErrorIs(t, err, ErrDayOutOfRange)
}

func TestRemoveDay_RemovesWholeEntry(t *testing.T) {
	out := RemoveDay([]models.OperatingDay{day(1, "08:00", "12:00"), day(2)}, 1)

	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].DayOfWeek)
}

func TestAddWorkingTime(t *testing.T) {
	out, err := AddWorkingTime([]models.OperatingDay{day(1)}, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.WorkingTime{{}}, out[0].WorkingTimes)

	out, err = AddWorkingTime(out, 1)
	require.NoError(t, err)
	assert.Len(t, out[0].WorkingTimes, 2)

	_, err = AddWorkingTime(out, 6)
	assert.ErrorIs(t, err, ErrDayNotFound)
}

func TestRemoveWorkingTime_LastRangeLeavesFullDay(t *testing.T) {
	out, err := RemoveWorkingTime([]models.OperatingDay{day(3, "08:00", "09:00")}, 3, 0)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.NotNil(t, out[0].WorkingTimes)
	assert.Empty(t, out[0].WorkingTimes)

	_, err = RemoveWorkingTime(out, 3, 0)
	assert.ErrorIs(t, err, ErrRangeNotFound)
}

func TestSetWorkingTime(t *testing.T) {
	out, err := SetWorkingTime([]models.OperatingDay{day(3, "", "")}, 3, 0, "10:00", "11:30")
	require.NoError(t, err)
	assert.Equal(t, models.WorkingTime{Start: "10:00", End: "11:30"}, out[0].WorkingTimes[0])
}

func TestAvailableDays(t *testing.T) {
	assert.Equal(t, []int{0, 2, 4, 5}, AvailableDays([]models.OperatingDay{day(1), day(3), day(6)}))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, AvailableDays(nil))
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		minutes int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"23:59", 23*60 + 59, false},
		{"09:05", 9*60 + 5, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"9:00", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
		{"+8:30", 0, true},
		{"-0:30", 0, true},
		{"08:+5", 0, true},
		{"+1:-0", 0, true},
		{" 8:30", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.minutes, got)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		days  []models.OperatingDay
		paths []string
	}{
		{"empty schedule", nil, nil},
		{"full day", []models.OperatingDay{day(0)}, nil},
		{"valid ranges", []models.OperatingDay{day(1, "08:00", "12:00", "13:00", "18:00")}, nil},
		{"duplicate weekday", []models.OperatingDay{day(1), day(1)}, []string{"operatingDays[1].dayOfWeek"}},
		{"weekday out of range", []models.OperatingDay{day(9)}, []string{"operatingDays[0].dayOfWeek"}},
		{"blank range", []models.OperatingDay{day(2, "", "")}, []string{"operatingDays[0].workingTimes[0]"}},
		{"bad hour", []models.OperatingDay{day(2, "25:00", "26:00")}, []string{
			"operatingDays[0].workingTimes[0].start",
			"operatingDays[0].workingTimes[0].end",
		}},
		{"signed times", []models.OperatingDay{day(1, "-0:30", "+9:00")}, []string{
			"operatingDays[0].workingTimes[0].start",
			"operatingDays[0].workingTimes[0].end",
		}},
		{"reversed", []models.OperatingDay{day(2, "12:00", "08:00")}, []string{"operatingDays[0].workingTimes[0].end"}},
		{"overlap", []models.OperatingDay{day(2, "08:00", "12:00", "11:00", "13:00")}, []string{"operatingDays[0].workingTimes[1]"}},
		{"nested overlap", []models.OperatingDay{day(2, "01:00", "10:00", "02:00", "03:00", "04:00", "05:00")}, []string{
			"operatingDays[0].workingTimes[1]",
			"operatingDays[0].workingTimes[2]",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var paths []string
			for _, p := range Validate(tt.days) {
				paths = append(paths, p.Path)
			}
			assert.Equal(t, tt.paths, paths)
		})
	}
}

func TestNormalize_EmptyStatesSurviveRoundTrip(t *testing.T) {
	allWeek, err := json.Marshal(models.Chatbot{OperatingDays: Normalize(nil)})
	require.NoError(t, err)
	assert.Contains(t, string(allWeek), `"operatingDays":[]`)

	var decoded models.Chatbot
	require.NoError(t, json.Unmarshal(allWeek, &decoded))
	assert.NotNil(t, decoded.OperatingDays)
	assert.Empty(t, decoded.OperatingDays)

	sunday, err := json.Marshal(models.Chatbot{OperatingDays: Normalize([]models.OperatingDay{{DayOfWeek: 0}})})
	require.NoError(t, err)
	assert.Contains(t, string(sunday), `"workingTimes":[]`)

	decoded = models.Chatbot{}
	require.NoError(t, json.Unmarshal(sunday, &decoded))
	require.Len(t, decoded.OperatingDays, 1)
	assert.Equal(t, 0, decoded.OperatingDays[0].DayOfWeek)
	assert.Empty(t, decoded.OperatingDays[0].WorkingTimes)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, AvailableDays(decoded.OperatingDays))
}
