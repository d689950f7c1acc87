package submission

import (
	"cloud.google.com/go/civil"
	"github.com/kat-co/vala"

	"github.com/trezcool/kosakata/core"
)

// Policy holds the entry count and grading rules.
type Policy struct {
	BaselineEntryCount  int
	PenaltyPerMissedDay int
	StarMin             int
	StarMax             int
}

func NewPolicy(conf core.SubmissionConfig) (Policy, error) {
	err := vala.BeginValidation().Validate(
		vala.GreaterThan(conf.BaselineEntryCount, 0, "baselineEntryCount"),
		vala.GreaterThan(conf.PenaltyPerMissedDay, -1, "penaltyPerMissedDay"),
		vala.GreaterThan(conf.StarMin, -1, "starMin"),
		vala.GreaterThan(conf.StarMax, conf.StarMin, "starMax"),
	).Check()
	if err != nil {
		return Policy{}, err
	}
	return Policy{
		BaselineEntryCount:  conf.BaselineEntryCount,
		PenaltyPerMissedDay: conf.PenaltyPerMissedDay,
		StarMin:             conf.StarMin,
		StarMax:             conf.StarMax,
	}, nil
}

// RequiredEntryCount is the baseline plus the penalty owed for missedDays.
func (p Policy) RequiredEntryCount(missedDays int) int {
	return p.BaselineEntryCount + missedDays*p.PenaltyPerMissedDay
}

func (p Policy) validStars(stars int) bool {
	return stars >= p.StarMin && stars <= p.StarMax
}

// MissedDaysBefore counts the consecutive days without a record immediately preceding target.
// The backward scan stops at the first submitted day (reviewed or not) or at enrollment.
// history only needs to hold the learner's records dated before target.
func MissedDaysBefore(lrn Learner, target civil.Date, history []Record) int {
	submitted := submittedDays(history)

	var missed int
	for d := target.AddDays(-1); !d.Before(lrn.EnrolledOn); d = d.AddDays(-1) {
		if submitted[d] {
			break
		}
		missed++
	}
	return missed
}

func submittedDays(records []Record) map[civil.Date]bool {
	days := make(map[civil.Date]bool, len(records))
	for _, rec := range records {
		days[rec.SubmissionDate] = true
	}
	return days
}
