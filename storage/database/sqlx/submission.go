package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kosakata/core"
	"github.com/trezcool/kosakata/core/submission"
)

const recordColumns = `id, learner_id, submission_date, entries, required_entry_count, submitted_at, stars, comment, reviewed_by, reviewed_at`

type recordRow struct {
	ID                 string         `db:"id"`
	LearnerID          string         `db:"learner_id"`
	SubmissionDate     string         `db:"submission_date"`
	Entries            types.JSONText `db:"entries"`
	RequiredEntryCount int            `db:"required_entry_count"`
	SubmittedAt        time.Time      `db:"submitted_at"`
	Stars              null.Int       `db:"stars"`
	Comment            null.String    `db:"comment"`
	ReviewedBy         null.String    `db:"reviewed_by"`
	ReviewedAt         null.Time      `db:"reviewed_at"`
}

type submissionRepository struct {
	exec core.DBExecutor
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(exec core.DBExecutor) submission.Repository {
	return &submissionRepository{exec: exec}
}

func marshalEntries(entries []submission.WordEntry) (types.JSONText, error) {
	if entries == nil {
		entries = []submission.WordEntry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling entries")
	}
	return types.JSONText(b), nil
}

func (repo *submissionRepository) toRow(rec submission.Record) (recordRow, error) {
	entries, err := marshalEntries(rec.Entries)
	if err != nil {
		return recordRow{}, err
	}
	return recordRow{
		ID:                 rec.ID,
		LearnerID:          rec.LearnerID,
		SubmissionDate:     rec.SubmissionDate.String(),
		Entries:            entries,
		RequiredEntryCount: rec.RequiredEntryCount,
		SubmittedAt:        rec.SubmittedAt.UTC(),
		Stars:              null.IntFromPtr(rec.Stars),
		Comment:            null.StringFromPtr(rec.Comment),
		ReviewedBy:         null.StringFromPtr(rec.ReviewedBy),
		ReviewedAt:         null.TimeFromPtr(rec.ReviewedAt),
	}, nil
}

func (repo *submissionRepository) fromRow(row recordRow) (submission.Record, error) {
	date, err := civil.ParseDate(row.SubmissionDate)
	if err != nil {
		return submission.Record{}, errors.Wrapf(err, "record %s: parsing submission_date", row.ID)
	}
	var entries []submission.WordEntry
	if err = row.Entries.Unmarshal(&entries); err != nil {
		return submission.Record{}, errors.Wrapf(err, "record %s: unmarshalling entries", row.ID)
	}
	rec := submission.Record{
		ID:                 row.ID,
		LearnerID:          row.LearnerID,
		SubmissionDate:     date,
		Entries:            entries,
		RequiredEntryCount: row.RequiredEntryCount,
		SubmittedAt:        row.SubmittedAt.UTC(),
		Stars:              row.Stars.Ptr(),
		Comment:            row.Comment.Ptr(),
		ReviewedBy:         row.ReviewedBy.Ptr(),
	}
	if row.ReviewedAt.Valid {
		at := row.ReviewedAt.Time.UTC()
		rec.ReviewedAt = &at
	}
	return rec, nil
}

func (repo *submissionRepository) fromRows(rows []recordRow) ([]submission.Record, error) {
	records := make([]submission.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (repo *submissionRepository) get(ctx context.Context, where string, args ...interface{}) (submission.Record, error) {
	var row recordRow
	q := repo.exec.Rebind(`SELECT ` + recordColumns + ` FROM submissions WHERE ` + where)
	if err := repo.exec.GetContext(ctx, &row, q, args...); err != nil {
		if isNoRows(err) {
			return submission.Record{}, submission.ErrNotFound
		}
		return submission.Record{}, errors.Wrap(err, "selecting record")
	}
	return repo.fromRow(row)
}

func (repo *submissionRepository) GetRecord(ctx context.Context, learnerID string, date civil.Date) (submission.Record, error) {
	return repo.get(ctx, `learner_id = ? AND submission_date = ?`, learnerID, date.String())
}

func (repo *submissionRepository) GetRecordByID(ctx context.Context, id string) (submission.Record, error) {
	return repo.get(ctx, `id = ?`, id)
}

// ListRecords relies on "YYYY-MM-DD" text sorting like the dates it encodes.
func (repo *submissionRepository) ListRecords(ctx context.Context, learnerID string, from, to civil.Date) ([]submission.Record, error) {
	q := repo.exec.Rebind(`SELECT ` + recordColumns + ` FROM submissions
		WHERE learner_id = ? AND submission_date >= ? AND submission_date <= ?
		ORDER BY submission_date`)

	var rows []recordRow
	if err := repo.exec.SelectContext(ctx, &rows, q, learnerID, from.String(), to.String()); err != nil {
		return nil, errors.Wrap(err, "selecting records")
	}
	return repo.fromRows(rows)
}

func (repo *submissionRepository) ListPendingRecords(ctx context.Context, limit int) ([]submission.Record, error) {
	q := `SELECT ` + recordColumns + ` FROM submissions WHERE stars IS NULL ORDER BY submitted_at, id`
	args := make([]interface{}, 0, 1)
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []recordRow
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting pending records")
	}
	return repo.fromRows(rows)
}

func (repo *submissionRepository) InsertRecord(ctx context.Context, rec submission.Record) (submission.Record, error) {
	row, err := repo.toRow(rec)
	if err != nil {
		return submission.Record{}, err
	}

	q := `INSERT INTO submissions (` + recordColumns + `)
		VALUES (:id, :learner_id, :submission_date, :entries, :required_entry_count, :submitted_at,
			:stars, :comment, :reviewed_by, :reviewed_at)`
	if _, err = sqlx.NamedExecContext(ctx, repo.exec, q, row); err != nil {
		if isUniqueViolation(err) {
			return submission.Record{}, submission.ErrRecordExists
		}
		return submission.Record{}, errors.Wrap(err, "inserting record")
	}
	return repo.GetRecordByID(ctx, rec.ID)
}

// UpdateRecordEntries only touches a record that is still pending; the check and the write are one statement.
func (repo *submissionRepository) UpdateRecordEntries(
	ctx context.Context,
	id string,
	entries []submission.WordEntry,
	submittedAt time.Time,
) (submission.Record, error) {
	data, err := marshalEntries(entries)
	if err != nil {
		return submission.Record{}, err
	}

	q := repo.exec.Rebind(`UPDATE submissions SET entries = ?, submitted_at = ? WHERE id = ? AND stars IS NULL`)
	res, err := repo.exec.ExecContext(ctx, q, data, submittedAt.UTC(), id)
	if err != nil {
		return submission.Record{}, errors.Wrap(err, "updating record entries")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return submission.Record{}, errors.Wrap(err, "updating record entries")
	}
	if n == 0 {
		// either unknown or already graded
		if _, err = repo.GetRecordByID(ctx, id); err != nil {
			return submission.Record{}, err
		}
		return submission.Record{}, submission.ErrReviewed
	}
	return repo.GetRecordByID(ctx, id)
}

func (repo *submissionRepository) SetRecordReview(ctx context.Context, id string, rv submission.Review) (submission.Record, error) {
	q := repo.exec.Rebind(`UPDATE submissions SET stars = ?, comment = ?, reviewed_by = ?, reviewed_at = ? WHERE id = ?`)
	res, err := repo.exec.ExecContext(ctx, q,
		rv.Stars,
		null.StringFromPtr(rv.Comment),
		null.NewString(rv.ReviewedBy, rv.ReviewedBy != ""),
		rv.ReviewedAt.UTC(),
		id,
	)
	if err != nil {
		return submission.Record{}, errors.Wrap(err, "setting record review")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return submission.Record{}, errors.Wrap(err, "setting record review")
	}
	if n == 0 {
		return submission.Record{}, submission.ErrNotFound
	}
	return repo.GetRecordByID(ctx, id)
}
