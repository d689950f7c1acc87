package submission

import (
	"context"
	"fmt"
	"iter"
	"time"

	"cloud.google.com/go/civil"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/kosakata/core"
)

const maxCalendarDays = 366

var (
	// errors
	ErrNotFound        = errors.New("submission not found")
	ErrRecordExists    = errors.New("a submission for this day already exists")
	ErrReviewed        = errors.New("submission has already been reviewed and can no longer be edited")
	ErrInvalidLearner  = errors.New("invalid learner")
	ErrNotDue          = errors.New("submissions for this day are not open")
	ErrInvalidRange    = errors.New("invalid date range")
	ErrStarsOutOfRange = errors.New("stars out of range")
)

type (
	// Repository is the record store. Implementations must guarantee that:
	//   - InsertRecord fails with ErrRecordExists when (LearnerID, SubmissionDate) is taken, even under concurrency
	//   - UpdateRecordEntries only applies when stars is still null (else ErrReviewed), atomically
	//   - ListRecords reads a consistent snapshot, ascending by date
	Repository interface {
		GetRecord(ctx context.Context, learnerID string, date civil.Date) (Record, error)
		GetRecordByID(ctx context.Context, id string) (Record, error)
		ListRecords(ctx context.Context, learnerID string, from, to civil.Date) ([]Record, error)
		ListPendingRecords(ctx context.Context, limit int) ([]Record, error)
		InsertRecord(ctx context.Context, rec Record) (Record, error)
		UpdateRecordEntries(ctx context.Context, id string, entries []WordEntry, submittedAt time.Time) (Record, error)
		SetRecordReview(ctx context.Context, id string, rv Review) (Record, error)
	}

	Service struct {
		repo       Repository
		policy     Policy
		window     Window
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(
	repo Repository,
	conf *core.Config,
	validate *validator.Validate,
	translator ut.Translator,
	now Clock,
) (*Service, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(validate, "validate"),
	).Check()
	if err != nil {
		return nil, err
	}

	policy, err := NewPolicy(conf.Submission)
	if err != nil {
		return nil, errors.Wrap(err, "loading submission policy")
	}
	loc, err := conf.Submission.Location()
	if err != nil {
		return nil, err
	}
	return &Service{
		repo:       repo,
		policy:     policy,
		window:     NewWindow(now, loc),
		validate:   validate,
		translator: translator,
	}, nil
}

func (svc *Service) Policy() Policy { return svc.policy }
func (svc *Service) Window() Window { return svc.window }
func (svc *Service) Today() civil.Date {
	return svc.window.Today()
}

func (svc *Service) IsDue(lrn Learner, date civil.Date) bool {
	return svc.window.IsDue(lrn, date)
}

func (svc *Service) HasDeadlinePassed(date civil.Date) bool {
	return svc.window.HasDeadlinePassed(date)
}

// MissedDates lazily yields the learner's missed days in [from, to], ascending.
func (svc *Service) MissedDates(ctx context.Context, lrn Learner, from, to civil.Date) (iter.Seq[civil.Date], error) {
	if err := checkLearner(lrn); err != nil {
		return nil, err
	}
	records, err := svc.repo.ListRecords(ctx, lrn.ID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "listing records")
	}
	return svc.window.MissedDates(lrn, from, to, submittedDays(records)), nil
}

// RequiredEntryCount computes how many entries the learner owes for date, from the current history.
func (svc *Service) RequiredEntryCount(ctx context.Context, lrn Learner, date civil.Date) (int, error) {
	missed, err := svc.missedDaysBefore(ctx, lrn, date)
	if err != nil {
		return 0, err
	}
	return svc.policy.RequiredEntryCount(missed), nil
}

// Requirement details what is owed for date, for display before a Record exists.
func (svc *Service) Requirement(ctx context.Context, lrn Learner, date civil.Date) (Requirement, error) {
	missed, err := svc.missedDaysBefore(ctx, lrn, date)
	if err != nil {
		return Requirement{}, err
	}
	return Requirement{
		Date:               date,
		Due:                svc.window.IsDue(lrn, date),
		DeadlinePassed:     svc.window.HasDeadlinePassed(date),
		BaselineEntryCount: svc.policy.BaselineEntryCount,
		MissedDays:         missed,
		PenaltyEntryCount:  missed * svc.policy.PenaltyPerMissedDay,
		RequiredEntryCount: svc.policy.RequiredEntryCount(missed),
	}, nil
}

func (svc *Service) missedDaysBefore(ctx context.Context, lrn Learner, date civil.Date) (int, error) {
	if err := checkLearner(lrn); err != nil {
		return 0, err
	}
	if !date.After(lrn.EnrolledOn) {
		return 0, nil
	}
	history, err := svc.repo.ListRecords(ctx, lrn.ID, lrn.EnrolledOn, date.AddDays(-1))
	if err != nil {
		return 0, errors.Wrap(err, "listing records")
	}
	return MissedDaysBefore(lrn, date, history), nil
}

// Create records the learner's submission for ns.Date.
// The required entry count in effect now is frozen on the Record.
func (svc *Service) Create(ctx context.Context, lrn Learner, ns NewSubmission) (Record, error) {
	if err := checkLearner(lrn); err != nil {
		return Record{}, err
	}
	if !ns.Date.IsValid() {
		return Record{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "invalid date"})
	}
	if !svc.window.IsDue(lrn, ns.Date) {
		return Record{}, core.NewValidationError(ErrNotDue, core.FieldError{Field: "date", Error: ErrNotDue.Error()})
	}

	if _, err := svc.repo.GetRecord(ctx, lrn.ID, ns.Date); err == nil {
		return Record{}, core.NewConflictError(ErrRecordExists)
	} else if errors.Cause(err) != ErrNotFound {
		return Record{}, errors.Wrap(err, "finding record")
	}

	ns.Entries = cleanEntries(ns.Entries)
	if err := svc.validate.Struct(ns); err != nil {
		return Record{}, core.TranslateValidationErrors(err, svc.translator)
	}
	required, err := svc.RequiredEntryCount(ctx, lrn, ns.Date)
	if err != nil {
		return Record{}, err
	}
	if err := checkEntryCount(ns.Entries, required); err != nil {
		return Record{}, err
	}

	rec, err := svc.repo.InsertRecord(ctx, Record{
		ID:                 uuid.New().String(),
		LearnerID:          lrn.ID,
		SubmissionDate:     ns.Date,
		Entries:            ns.Entries,
		RequiredEntryCount: required,
		SubmittedAt:        svc.window.Now(),
	})
	if err != nil {
		if errors.Cause(err) == ErrRecordExists {
			return Record{}, core.NewConflictError(ErrRecordExists)
		}
		return Record{}, errors.Wrap(err, "inserting record")
	}
	return rec, nil
}

// Update replaces the entries of a pending Record, checked against its frozen required count.
func (svc *Service) Update(ctx context.Context, id string, us UpdateSubmission) (Record, error) {
	rec, err := svc.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.Stars != nil {
		return Record{}, core.NewStateError(ErrReviewed)
	}

	us.Entries = cleanEntries(us.Entries)
	if err := svc.validate.Struct(us); err != nil {
		return Record{}, core.TranslateValidationErrors(err, svc.translator)
	}
	if err := checkEntryCount(us.Entries, rec.RequiredEntryCount); err != nil {
		return Record{}, err
	}

	rec, err = svc.repo.UpdateRecordEntries(ctx, id, us.Entries, svc.window.Now())
	if err != nil {
		switch errors.Cause(err) {
		case ErrReviewed: // graded in between
			return Record{}, core.NewStateError(ErrReviewed)
		case ErrNotFound:
			return Record{}, core.NewNotFoundError(ErrNotFound)
		}
		return Record{}, errors.Wrap(err, "updating record entries")
	}
	return rec, nil
}

// Review grades a Record. Re-grading a reviewed Record overwrites the previous grade.
// An unknown Record is reported before any problem with the grade.
// Whether reviewerID may grade this Record is not checked here.
func (svc *Service) Review(ctx context.Context, id, reviewerID string, rs ReviewSubmission) (Record, error) {
	if _, err := svc.Get(ctx, id); err != nil {
		return Record{}, err
	}
	if err := svc.validate.Struct(rs); err != nil {
		return Record{}, core.TranslateValidationErrors(err, svc.translator)
	}
	if !svc.policy.validStars(*rs.Stars) {
		return Record{}, core.NewValidationError(ErrStarsOutOfRange, core.FieldError{
			Field: "stars",
			Error: fmt.Sprintf("stars must be between %d and %d", svc.policy.StarMin, svc.policy.StarMax),
		})
	}

	var comment *string
	if rs.Comment != nil {
		if c := core.CleanString(*rs.Comment); c != "" {
			comment = &c
		}
	}

	rec, err := svc.repo.SetRecordReview(ctx, id, Review{
		Stars:      *rs.Stars,
		Comment:    comment,
		ReviewedBy: reviewerID,
		ReviewedAt: svc.window.Now(),
	})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Record{}, core.NewNotFoundError(ErrNotFound)
		}
		return Record{}, errors.Wrap(err, "setting record review")
	}
	return rec, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Record, error) {
	rec, err := svc.repo.GetRecordByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Record{}, core.NewNotFoundError(ErrNotFound)
		}
		return Record{}, errors.Wrap(err, "finding record by ID")
	}
	return rec, nil
}

func (svc *Service) GetForDate(ctx context.Context, lrn Learner, date civil.Date) (Record, error) {
	rec, err := svc.repo.GetRecord(ctx, lrn.ID, date)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Record{}, core.NewNotFoundError(ErrNotFound)
		}
		return Record{}, errors.Wrap(err, "finding record")
	}
	return rec, nil
}

// List returns the learner's records in [from, to], ascending by date.
func (svc *Service) List(ctx context.Context, lrn Learner, from, to civil.Date) ([]Record, error) {
	if to.Before(from) {
		return nil, core.NewValidationError(ErrInvalidRange)
	}
	records, err := svc.repo.ListRecords(ctx, lrn.ID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "listing records")
	}
	return records, nil
}

// PendingReviews returns the oldest records awaiting a grade.
func (svc *Service) PendingReviews(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	records, err := svc.repo.ListPendingRecords(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing pending records")
	}
	return records, nil
}

func (svc *Service) WeeklyStats(ctx context.Context, lrn Learner, asOf civil.Date) (WeeklyStats, error) {
	if err := checkLearner(lrn); err != nil {
		return WeeklyStats{}, err
	}
	if asOf.Before(lrn.EnrolledOn) {
		return WeeklyStats{}, nil
	}
	// the whole history is needed for the streak
	records, err := svc.repo.ListRecords(ctx, lrn.ID, lrn.EnrolledOn, asOf)
	if err != nil {
		return WeeklyStats{}, errors.Wrap(err, "listing records")
	}
	return ComputeWeeklyStats(records, asOf), nil
}

func (svc *Service) Calendar(ctx context.Context, lrn Learner, from, to civil.Date) ([]CalendarDay, error) {
	if err := checkLearner(lrn); err != nil {
		return nil, err
	}
	if to.Before(from) || to.DaysSince(from) >= maxCalendarDays {
		return nil, core.NewValidationError(ErrInvalidRange)
	}
	records, err := svc.repo.ListRecords(ctx, lrn.ID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "listing records")
	}
	return Calendar(svc.window, lrn, from, to, records), nil
}

func checkLearner(lrn Learner) error {
	if lrn.ID == "" || !lrn.EnrolledOn.IsValid() {
		return core.NewValidationError(ErrInvalidLearner)
	}
	return nil
}

func checkEntryCount(entries []WordEntry, required int) error {
	if len(entries) < required {
		return core.NewValidationError(nil, core.FieldError{
			Field: "entries",
			Error: fmt.Sprintf("at least %d vocabulary entries are required (got %d)", required, len(entries)),
		})
	}
	return nil
}

func cleanEntries(entries []WordEntry) []WordEntry {
	if entries == nil {
		return nil
	}
	cleaned := make([]WordEntry, 0, len(entries))
	for _, we := range entries {
		cleaned = append(cleaned, we.clean())
	}
	return cleaned
}
