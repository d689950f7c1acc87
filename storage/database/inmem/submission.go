package inmemdb

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/trezcool/kosakata/core/submission"
)

type submissionRepository struct {
	db *submissionTable
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db.submission}
}

// copyRecord detaches a stored record from the table so callers cannot mutate it.
func copyRecord(rec *submission.Record) submission.Record {
	cp := *rec
	cp.Entries = append([]submission.WordEntry(nil), rec.Entries...)
	if rec.Stars != nil {
		stars := *rec.Stars
		cp.Stars = &stars
	}
	if rec.Comment != nil {
		comment := *rec.Comment
		cp.Comment = &comment
	}
	if rec.ReviewedBy != nil {
		by := *rec.ReviewedBy
		cp.ReviewedBy = &by
	}
	if rec.ReviewedAt != nil {
		at := *rec.ReviewedAt
		cp.ReviewedAt = &at
	}
	return cp
}

func (repo *submissionRepository) GetRecord(_ context.Context, learnerID string, date civil.Date) (submission.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if id, ok := repo.db.byKey[recordKey{learnerID, date.String()}]; ok {
		return copyRecord(repo.db.table[id]), nil
	}
	return submission.Record{}, submission.ErrNotFound
}

func (repo *submissionRepository) GetRecordByID(_ context.Context, id string) (submission.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[id]; ok {
		return copyRecord(rec), nil
	}
	return submission.Record{}, submission.ErrNotFound
}

func (repo *submissionRepository) ListRecords(_ context.Context, learnerID string, from, to civil.Date) ([]submission.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]submission.Record, 0)
	for _, rec := range repo.db.table {
		if rec.LearnerID != learnerID || rec.SubmissionDate.Before(from) || rec.SubmissionDate.After(to) {
			continue
		}
		records = append(records, copyRecord(rec))
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SubmissionDate.Before(records[j].SubmissionDate)
	})
	return records, nil
}

func (repo *submissionRepository) ListPendingRecords(_ context.Context, limit int) ([]submission.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]submission.Record, 0)
	for _, rec := range repo.db.table {
		if rec.Stars == nil {
			records = append(records, copyRecord(rec))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SubmittedAt.Before(records[j].SubmittedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (repo *submissionRepository) InsertRecord(_ context.Context, rec submission.Record) (submission.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := recordKey{rec.LearnerID, rec.SubmissionDate.String()}
	if _, exists := repo.db.byKey[key]; exists {
		return submission.Record{}, submission.ErrRecordExists
	}
	stored := copyRecord(&rec)
	repo.db.table[rec.ID] = &stored
	repo.db.byKey[key] = rec.ID
	return copyRecord(&stored), nil
}

func (repo *submissionRepository) UpdateRecordEntries(
	_ context.Context,
	id string,
	entries []submission.WordEntry,
	submittedAt time.Time,
) (submission.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.table[id]
	if !ok {
		return submission.Record{}, submission.ErrNotFound
	}
	if rec.Stars != nil {
		return submission.Record{}, submission.ErrReviewed
	}
	rec.Entries = append([]submission.WordEntry(nil), entries...)
	rec.SubmittedAt = submittedAt.UTC()
	return copyRecord(rec), nil
}

func (repo *submissionRepository) SetRecordReview(_ context.Context, id string, rv submission.Review) (submission.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.table[id]
	if !ok {
		return submission.Record{}, submission.ErrNotFound
	}
	stars := rv.Stars
	by := rv.ReviewedBy
	at := rv.ReviewedAt.UTC()
	rec.Stars = &stars
	rec.Comment = nil
	if rv.Comment != nil {
		comment := *rv.Comment
		rec.Comment = &comment
	}
	rec.ReviewedBy = &by
	rec.ReviewedAt = &at
	return copyRecord(rec), nil
}
