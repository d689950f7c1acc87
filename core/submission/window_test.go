package submission

import (
	"slices"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixedWindow(now string) Window {
	t, err := time.Parse(time.RFC3339, now)
	if err != nil {
		panic(err)
	}
	return NewWindow(func() time.Time { return t }, time.UTC)
}

func TestWindow_Today(t *testing.T) {
	now := time.Date(2024, 1, 10, 20, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	assert.Equal(t, date("2024-01-10"), NewWindow(clock, time.UTC).Today())
	assert.Equal(t, date("2024-01-11"), NewWindow(clock, time.FixedZone("WIB", 7*3600)).Today())
	assert.Equal(t, date("2024-01-10"), NewWindow(clock, nil).Today())
	assert.Equal(t, now, NewWindow(clock, time.FixedZone("WIB", 7*3600)).Now())
}

func TestWindow_IsDue(t *testing.T) {
	w := fixedWindow("2024-01-10T12:00:00Z")
	lrn := Learner{ID: "l1", EnrolledOn: date("2024-01-05")}

	tests := []struct {
		date string
		want bool
	}{
		{"2024-01-04", false}, // before enrollment
		{"2024-01-05", true},
		{"2024-01-09", true},
		{"2024-01-10", true},
		{"2024-01-11", false}, // future
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, w.IsDue(lrn, date(tt.date)))
		})
	}
}

func TestWindow_HasDeadlinePassed(t *testing.T) {
	w := fixedWindow("2024-01-10T23:59:59Z")

	assert.True(t, w.HasDeadlinePassed(date("2023-12-31")))
	assert.True(t, w.HasDeadlinePassed(date("2024-01-09")))
	assert.False(t, w.HasDeadlinePassed(date("2024-01-10")))
	assert.False(t, w.HasDeadlinePassed(date("2024-01-11")))
}

func TestWindow_MissedDates(t *testing.T) {
	w := fixedWindow("2024-01-10T12:00:00Z")
	lrn := Learner{ID: "l1", EnrolledOn: date("2024-01-05")}
	submitted := map[civil.Date]bool{
		date("2024-01-06"): true,
		date("2024-01-08"): true,
	}

	tests := []struct {
		name     string
		from, to string
		want     []civil.Date
	}{
		{
			name: "clamped to enrollment and yesterday", from: "2024-01-01", to: "2024-01-20",
			want: []civil.Date{date("2024-01-05"), date("2024-01-07"), date("2024-01-09")},
		},
		{name: "inner range", from: "2024-01-06", to: "2024-01-08", want: []civil.Date{date("2024-01-07")}},
		{name: "today is never missed", from: "2024-01-10", to: "2024-01-10"},
		{name: "before enrollment", from: "2023-12-01", to: "2024-01-04"},
		{name: "inverted range", from: "2024-01-09", to: "2024-01-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := slices.Collect(w.MissedDates(lrn, date(tt.from), date(tt.to), submitted))
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("stops early", func(t *testing.T) {
		var got []civil.Date
		for d := range w.MissedDates(lrn, date("2024-01-01"), date("2024-01-20"), submitted) {
			got = append(got, d)
			if len(got) == 2 {
				break
			}
		}
		assert.Equal(t, []civil.Date{date("2024-01-05"), date("2024-01-07")}, got)
	})
}
