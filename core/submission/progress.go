package submission

import (
	"cloud.google.com/go/civil"
)

const statsWindowDays = 7

// ComputeWeeklyStats derives the learner's progress over the 7 days ending at asOf.
// records may span any range; only those dated on or before asOf are considered.
func ComputeWeeklyStats(records []Record, asOf civil.Date) WeeklyStats {
	from := asOf.AddDays(-(statsWindowDays - 1))

	var (
		stats         WeeklyStats
		reviewedCount int
		starsSum      int
	)
	for _, rec := range records {
		if rec.SubmissionDate.Before(from) || rec.SubmissionDate.After(asOf) {
			continue
		}
		stats.CompletedCount++
		if rec.Stars != nil {
			reviewedCount++
			starsSum += *rec.Stars
		}
	}
	if reviewedCount > 0 {
		stats.AverageStars = float64(starsSum) / float64(reviewedCount)
	}
	stats.CurrentStreak = Streak(records, asOf)
	return stats
}

// Streak counts the consecutive submitted days ending at the latest submitted day on or before asOf.
func Streak(records []Record, asOf civil.Date) int {
	submitted := submittedDays(records)

	var (
		anchor civil.Date
		found  bool
	)
	for _, rec := range records {
		d := rec.SubmissionDate
		if d.After(asOf) {
			continue
		}
		if !found || d.After(anchor) {
			anchor, found = d, true
		}
	}
	if !found {
		return 0
	}

	var streak int
	for d := anchor; submitted[d]; d = d.AddDays(-1) {
		streak++
	}
	return streak
}

// Calendar returns the status of every day in [from, to].
func Calendar(w Window, lrn Learner, from, to civil.Date, records []Record) []CalendarDay {
	if to.Before(from) {
		return []CalendarDay{}
	}
	byDate := make(map[civil.Date]Record, len(records))
	for _, rec := range records {
		byDate[rec.SubmissionDate] = rec
	}
	today := w.Today()

	days := make([]CalendarDay, 0, to.DaysSince(from)+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		day := CalendarDay{Date: d}
		rec, ok := byDate[d]
		switch {
		case ok && rec.Stars != nil:
			day.Status = DayReviewed
			day.Stars = rec.Stars
		case ok:
			day.Status = DaySubmitted
		case d.Before(lrn.EnrolledOn):
			day.Status = DayNotEnrolled
		case d.After(today):
			day.Status = DayUpcoming
		case d == today:
			day.Status = DayOpen
		default:
			day.Status = DayMissed
		}
		days = append(days, day)
	}
	return days
}
