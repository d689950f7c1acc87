package submission

import (
	"iter"
	"time"

	"cloud.google.com/go/civil"
)

// Clock is the current time source. Tests inject a fixed one.
type Clock func() time.Time

// Window tells which calendar day it is and which days are open or closed for submission.
type Window struct {
	now Clock
	loc *time.Location
}

func NewWindow(now Clock, loc *time.Location) Window {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return Window{now: now, loc: loc}
}

// Now returns the current instant in UTC.
func (w Window) Now() time.Time {
	return w.now().UTC()
}

// Today returns the current calendar day in the configured timezone.
func (w Window) Today() civil.Date {
	return civil.DateOf(w.now().In(w.loc))
}

// IsDue reports whether the learner is expected to submit for date: enrolled and not in the future.
func (w Window) IsDue(lrn Learner, date civil.Date) bool {
	return !date.Before(lrn.EnrolledOn) && !date.After(w.Today())
}

// HasDeadlinePassed reports whether date's submission window is closed.
func (w Window) HasDeadlinePassed(date civil.Date) bool {
	return date.Before(w.Today())
}

// MissedDates yields, in ascending order, the days in [from, to] that have no submission
// and whose deadline has passed. Days before enrollment are never missed.
// submitted must hold the days that have a record.
func (w Window) MissedDates(lrn Learner, from, to civil.Date, submitted map[civil.Date]bool) iter.Seq[civil.Date] {
	if from.Before(lrn.EnrolledOn) {
		from = lrn.EnrolledOn
	}
	if yesterday := w.Today().AddDays(-1); to.After(yesterday) {
		to = yesterday
	}
	return func(yield func(civil.Date) bool) {
		for d := from; !d.After(to); d = d.AddDays(1) {
			if submitted[d] {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}
