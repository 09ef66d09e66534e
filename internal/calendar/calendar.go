// Package calendar groups tasks by day for the calendar view.
package calendar

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"focusflow/internal/models"
)

const dateLayout = "2006-01-02"

// Field selects which task date drives the grouping.
type Field string

const (
	FieldCreatedAt  Field = "createdAt"
	FieldTargetDate Field = "targetDate"
)

// ParseField accepts "created"/"createdAt" and "target"/"targetDate".
func ParseField(s string) (Field, bool) {
	switch strings.ToLower(s) {
	case "created", "createdat":
		return FieldCreatedAt, true
	case "target", "targetdate":
		return FieldTargetDate, true
	}
	return "", false
}

// Grouping indexes tasks by calendar date (YYYY-MM-DD). Tasks without a
// usable value for the field are listed in Unscheduled.
type Grouping struct {
	Field       Field
	ByDate      map[string][]models.Task
	Unscheduled []models.Task
}

// Group builds the index. Input order is preserved inside each bucket.
func Group(tasks []models.Task, field Field) Grouping {
	g := Grouping{
		Field:       field,
		ByDate:      make(map[string][]models.Task),
		Unscheduled: []models.Task{},
	}
	for _, t := range tasks {
		key, ok := DateKey(selectField(t, field))
		if !ok {
			g.Unscheduled = append(g.Unscheduled, t)
			continue
		}
		g.ByDate[key] = append(g.ByDate[key], t)
	}
	return g
}

func selectField(t models.Task, field Field) string {
	if field == FieldTargetDate {
		return t.TargetDate
	}
	return t.CreatedAt
}

// DateKey truncates an ISO timestamp or date at the "T" separator and checks
// that what remains is a calendar date.
func DateKey(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	day, _, _ := strings.Cut(value, "T")
	if _, err := time.Parse(dateLayout, day); err != nil {
		return "", false
	}
	return day, true
}

// Dates returns the grouped dates in ascending order.
func (g Grouping) Dates() []string {
	dates := make([]string, 0, len(g.ByDate))
	for d := range g.ByDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// On returns the tasks for one date.
func (g Grouping) On(date string) []models.Task {
	return g.ByDate[date]
}

// Day is one cell of a month grid. Blank cells pad the first week and have
// an empty Date.
type Day struct {
	Date  string
	Day   int
	Count int
}

// Blank reports whether the cell is padding before the first of the month.
func (d Day) Blank() bool {
	return d.Date == ""
}

// Badge is the count label shown on a day: empty for none, capped at "9+".
func (d Day) Badge() string {
	switch {
	case d.Count == 0:
		return ""
	case d.Count > 9:
		return "9+"
	}
	return strconv.Itoa(d.Count)
}

// MonthView lays out a month starting on Sunday, with task counts from g.
func MonthView(g Grouping, year int, month time.Month) []Day {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	cells := make([]Day, 0, int(first.Weekday())+daysInMonth)
	for i := 0; i < int(first.Weekday()); i++ {
		cells = append(cells, Day{})
	}
	for d := 1; d <= daysInMonth; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, time.UTC).Format(dateLayout)
		cells = append(cells, Day{Date: date, Day: d, Count: len(g.ByDate[date])})
	}
	return cells
}
