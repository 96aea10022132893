// Package schedule edits and validates chatbot operating days.
//
// Two empty states matter here. A schedule with no days is open 24/7, and a
// day with no working times is open the whole day. Both are carried as empty
// (non-nil) slices so they survive JSON round-trips unchanged.
package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"agentai-console/pkg/models"

	"github.com/pkg/errors"
)

var (
	ErrDayOutOfRange  = errors.New("day of week must be between 0 and 6")
	ErrDuplicateDay   = errors.New("day of week already present")
	ErrDayNotFound    = errors.New("day of week not present")
	ErrRangeNotFound  = errors.New("working time not found")
	ErrInvalidTime    = errors.New("time must be HH:mm in 24h format")
	ErrRangeOrder     = errors.New("start must be before end")
	ErrRangesOverlap  = errors.New("working times overlap")
	ErrMissingBound   = errors.New("start and end are required")
)

// Problem is a validation failure located by a form field path.
type Problem struct {
	Path    string
	Message string
}

// Normalize returns a copy with non-nil slices everywhere.
func Normalize(days []models.OperatingDay) []models.OperatingDay {
	out := make([]models.OperatingDay, 0, len(days))
	for _, d := range days {
		times := make([]models.WorkingTime, len(d.WorkingTimes))
		copy(times, d.WorkingTimes)
		out = append(out, models.OperatingDay{DayOfWeek: d.DayOfWeek, WorkingTimes: times})
	}
	return out
}

// AvailableDays lists the weekdays not yet in the schedule, ascending.
func AvailableDays(days []models.OperatingDay) []int {
	used := make(map[int]bool, len(days))
	for _, d := range days {
		used[d.DayOfWeek] = true
	}
	var free []int
	for dow := 0; dow <= 6; dow++ {
		if !used[dow] {
			free = append(free, dow)
		}
	}
	return free
}

// AddDay inserts dow keeping weekday order. The new day starts with a copy of
// the ranges of the closest earlier day already in the schedule, if any.
func AddDay(days []models.OperatingDay, dow int) ([]models.OperatingDay, error) {
	if dow < 0 || dow > 6 {
		return nil, ErrDayOutOfRange
	}
	if indexOf(days, dow) >= 0 {
		return nil, errors.Wrapf(ErrDuplicateDay, "day %d", dow)
	}

	out := Normalize(days)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })

	pos := sort.Search(len(out), func(i int) bool { return out[i].DayOfWeek > dow })
	times := []models.WorkingTime{}
	if pos > 0 {
		times = append(times, out[pos-1].WorkingTimes...)
	}

	out = append(out, models.OperatingDay{})
	copy(out[pos+1:], out[pos:])
	out[pos] = models.OperatingDay{DayOfWeek: dow, WorkingTimes: times}
	return out, nil
}

// RemoveDay drops the whole entry for dow.
func RemoveDay(days []models.OperatingDay, dow int) []models.OperatingDay {
	out := make([]models.OperatingDay, 0, len(days))
	for _, d := range Normalize(days) {
		if d.DayOfWeek != dow {
			out = append(out, d)
		}
	}
	return out
}

// AddWorkingTime appends an empty range to dow.
func AddWorkingTime(days []models.OperatingDay, dow int) ([]models.OperatingDay, error) {
	out := Normalize(days)
	i := indexOf(out, dow)
	if i < 0 {
		return nil, errors.Wrapf(ErrDayNotFound, "day %d", dow)
	}
	out[i].WorkingTimes = append(out[i].WorkingTimes, models.WorkingTime{})
	return out, nil
}

// RemoveWorkingTime deletes range idx of dow. Removing the last range leaves
// the day open 24 hours.
func RemoveWorkingTime(days []models.OperatingDay, dow, idx int) ([]models.OperatingDay, error) {
	out := Normalize(days)
	i := indexOf(out, dow)
	if i < 0 {
		return nil, errors.Wrapf(ErrDayNotFound, "day %d", dow)
	}
	times := out[i].WorkingTimes
	if idx < 0 || idx >= len(times) {
		return nil, errors.Wrapf(ErrRangeNotFound, "day %d index %d", dow, idx)
	}
	out[i].WorkingTimes = append(times[:idx:idx], times[idx+1:]...)
	return out, nil
}

// SetWorkingTime replaces range idx of dow.
func SetWorkingTime(days []models.OperatingDay, dow, idx int, start, end string) ([]models.OperatingDay, error) {
	out := Normalize(days)
	i := indexOf(out, dow)
	if i < 0 {
		return nil, errors.Wrapf(ErrDayNotFound, "day %d", dow)
	}
	if idx < 0 || idx >= len(out[i].WorkingTimes) {
		return nil, errors.Wrapf(ErrRangeNotFound, "day %d index %d", dow, idx)
	}
	out[i].WorkingTimes[idx] = models.WorkingTime{Start: start, End: end}
	return out, nil
}

// ParseTime converts HH:mm into minutes since midnight.
func ParseTime(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || !twoDigits(hh) || !twoDigits(mm) {
		return 0, ErrInvalidTime
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidTime
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidTime
	}
	return h*60 + m, nil
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// ValidateTime checks a single HH:mm value.
func ValidateTime(s string) error {
	_, err := ParseTime(s)
	return err
}

// Validate reports every problem found in the schedule. Paths follow the
// form field naming, e.g. operatingDays[1].workingTimes[0].start.
func Validate(days []models.OperatingDay) []Problem {
	var problems []Problem
	seen := make(map[int]bool, len(days))

	for i, d := range days {
		dayPath := fmt.Sprintf("operatingDays[%d]", i)
		if d.DayOfWeek < 0 || d.DayOfWeek > 6 {
			problems = append(problems, Problem{Path: dayPath + ".dayOfWeek", Message: ErrDayOutOfRange.Error()})
			continue
		}
		if seen[d.DayOfWeek] {
			problems = append(problems, Problem{Path: dayPath + ".dayOfWeek", Message: ErrDuplicateDay.Error()})
			continue
		}
		seen[d.DayOfWeek] = true

		type span struct{ from, to, idx int }
		var spans []span
		for j, wt := range d.WorkingTimes {
			base := fmt.Sprintf("%s.workingTimes[%d]", dayPath, j)
			if wt.Start == "" || wt.End == "" {
				problems = append(problems, Problem{Path: base, Message: ErrMissingBound.Error()})
				continue
			}
			from, errStart := ParseTime(wt.Start)
			if errStart != nil {
				problems = append(problems, Problem{Path: base + ".start", Message: errStart.Error()})
			}
			to, errEnd := ParseTime(wt.End)
			if errEnd != nil {
				problems = append(problems, Problem{Path: base + ".end", Message: errEnd.Error()})
			}
			if errStart != nil || errEnd != nil {
				continue
			}
			if from >= to {
				problems = append(problems, Problem{Path: base + ".end", Message: ErrRangeOrder.Error()})
				continue
			}
			spans = append(spans, span{from, to, j})
		}

		sort.Slice(spans, func(a, b int) bool { return spans[a].from < spans[b].from })
		for k, reach := 1, 0; k < len(spans); k++ {
			reach = max(reach, spans[k-1].to)
			if spans[k].from < reach {
				problems = append(problems, Problem{
					Path:    fmt.Sprintf("%s.workingTimes[%d]", dayPath, spans[k].idx),
					Message: ErrRangesOverlap.Error(),
				})
			}
		}
	}
	return problems
}

func indexOf(days []models.OperatingDay, dow int) int {
	for i, d := range days {
		if d.DayOfWeek == dow {
			return i
		}
	}
	return -1
}
