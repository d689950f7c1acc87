package submission

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/trezcool/kosakata/core"
)

// Learner is the acting student: identity plus the first day submissions are expected.
type Learner struct {
	ID         string
	EnrolledOn civil.Date
}

// WordEntry is one vocabulary item of a daily exercise. No field may be blank.
type WordEntry struct {
	Word        string `json:"word" validate:"required,notblank"`
	Meaning     string `json:"meaning" validate:"required,notblank"`
	Sentence    string `json:"sentence" validate:"required,notblank"`
	Description string `json:"description" validate:"required,notblank"`
}

func (we WordEntry) clean() WordEntry {
	return WordEntry{
		Word:        core.CleanString(we.Word),
		Meaning:     core.CleanString(we.Meaning),
		Sentence:    core.CleanString(we.Sentence),
		Description: core.CleanString(we.Description),
	}
}

// State is the review state of a Record.
type State string

const (
	StatePending  State = "pending"
	StateReviewed State = "reviewed"
)

// Record is a learner's submission for one calendar day.
// RequiredEntryCount is frozen at creation; Stars is nil until reviewed.
type Record struct {
	ID                 string      `json:"id"`
	LearnerID          string      `json:"learner_id"`
	SubmissionDate     civil.Date  `json:"submission_date"`
	Entries            []WordEntry `json:"entries"`
	RequiredEntryCount int         `json:"required_entry_count"`
	SubmittedAt        time.Time   `json:"submitted_at"` // UTC
	Stars              *int        `json:"stars"`
	Comment            *string     `json:"comment"`
	ReviewedBy         *string     `json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time  `json:"reviewed_at,omitempty"` // UTC
}

func (r Record) State() State {
	if r.Stars == nil {
		return StatePending
	}
	return StateReviewed
}

// Review holds what a reviewer sets on a Record.
type Review struct {
	Stars      int
	Comment    *string
	ReviewedBy string
	ReviewedAt time.Time
}

// NewSubmission contains information needed to create a Record.
type NewSubmission struct {
	Date    civil.Date  `json:"date"`
	Entries []WordEntry `json:"entries" validate:"required,dive"`
}

// UpdateSubmission defines what a learner may change on a pending Record.
type UpdateSubmission struct {
	Entries []WordEntry `json:"entries" validate:"required,dive"`
}

// ReviewSubmission is a reviewer's grade. Stars is required.
type ReviewSubmission struct {
	Stars   *int    `json:"stars" validate:"required"`
	Comment *string `json:"comment"`
}

// Requirement describes what is owed for a learner's submission on a date.
type Requirement struct {
	Date               civil.Date `json:"date"`
	Due                bool       `json:"due"`
	DeadlinePassed     bool       `json:"deadline_passed"`
	BaselineEntryCount int        `json:"baseline_entry_count"`
	MissedDays         int        `json:"missed_days"`
	PenaltyEntryCount  int        `json:"penalty_entry_count"`
	RequiredEntryCount int        `json:"required_entry_count"`
}

type WeeklyStats struct {
	CompletedCount int     `json:"completed_count"`
	AverageStars   float64 `json:"average_stars"`
	CurrentStreak  int     `json:"current_streak"`
}

// DayStatus is the per-day state shown on the learner's calendar.
type DayStatus string

const (
	DayNotEnrolled DayStatus = "not_enrolled"
	DayUpcoming    DayStatus = "upcoming"
	DayOpen        DayStatus = "open"
	DaySubmitted   DayStatus = "submitted"
	DayReviewed    DayStatus = "reviewed"
	DayMissed      DayStatus = "missed"
)

type CalendarDay struct {
	Date   civil.Date `json:"date"`
	Status DayStatus  `json:"status"`
	Stars  *int       `json:"stars,omitempty"`
}
