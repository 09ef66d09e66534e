package calendar

import (
	"testing"
	"time"

	"focusflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tasksFixture() []models.Task {
	return []models.Task{
		{ID: "a", Title: "A", CreatedAt: "2025-10-26T14:30:00.000Z", TargetDate: "2025-10-30"},
		{ID: "b", Title: "B", CreatedAt: "2025-10-26T09:00:00.000Z"},
		{ID: "c", Title: "C", CreatedAt: "2025-10-27T00:00:01.000Z", TargetDate: "2025-10-30"},
		{ID: "d", Title: "D", CreatedAt: "garbage", TargetDate: "2025-11-02"},
	}
}

func TestGroup_ByCreatedAt(t *testing.T) {
	g := Group(tasksFixture(), FieldCreatedAt)

	require.Equal(t, []string{"2025-10-26", "2025-10-27"}, g.Dates())
	on26 := g.On("2025-10-26")
	require.Len(t, on26, 2)
	assert.Equal(t, "a", on26[0].ID)
	assert.Equal(t, "b", on26[1].ID)
	require.Len(t, g.Unscheduled, 1)
	assert.Equal(t, "d", g.Unscheduled[0].ID)
}

func TestGroup_ByTargetDateExcludesMissing(t *testing.T) {
	g := Group(tasksFixture(), FieldTargetDate)

	for _, date := range g.Dates() {
		for _, task := range g.On(date) {
			assert.NotEqual(t, "b", task.ID, "task without target date in bucket %s", date)
		}
	}
	require.Len(t, g.Unscheduled, 1)
	assert.Equal(t, "b", g.Unscheduled[0].ID)
	assert.Len(t, g.On("2025-10-30"), 2)
	assert.Len(t, g.On("2025-11-02"), 1)
}

func TestGroup_DoesNotMutateInput(t *testing.T) {
	in := tasksFixture()
	_ = Group(in, FieldTargetDate)
	assert.Equal(t, tasksFixture(), in)
}

func TestDateKey(t *testing.T) {
	k, ok := DateKey("2025-10-26T14:30:00.000Z")
	require.True(t, ok)
	assert.Equal(t, "2025-10-26", k)

	k, ok = DateKey("2025-10-30")
	require.True(t, ok)
	assert.Equal(t, "2025-10-30", k)

	_, ok = DateKey("")
	assert.False(t, ok)
	_, ok = DateKey("2025-13-40")
	assert.False(t, ok)
}

func TestParseField(t *testing.T) {
	f, ok := ParseField("target")
	require.True(t, ok)
	assert.Equal(t, FieldTargetDate, f)
	f, ok = ParseField("createdAt")
	require.True(t, ok)
	assert.Equal(t, FieldCreatedAt, f)
	_, ok = ParseField("due")
	assert.False(t, ok)
}

func TestMonthView(t *testing.T) {
	g := Group(tasksFixture(), FieldTargetDate)
	cells := MonthView(g, 2025, time.October)

	// October 1st 2025 is a Wednesday
	require.Len(t, cells, 3+31)
	for i := 0; i < 3; i++ {
		assert.True(t, cells[i].Blank())
	}
	assert.Equal(t, "2025-10-01", cells[3].Date)
	day30 := cells[3+29]
	assert.Equal(t, "2025-10-30", day30.Date)
	assert.Equal(t, 2, day30.Count)
	assert.Equal(t, "2", day30.Badge())
	assert.Equal(t, "", cells[3].Badge())
}

func TestDayBadgeCapsAtNine(t *testing.T) {
	assert.Equal(t, "9", Day{Count: 9}.Badge())
	assert.Equal(t, "9+", Day{Count: 10}.Badge())
}
