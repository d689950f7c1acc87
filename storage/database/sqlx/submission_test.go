package sqlxrepos

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kosakata/core/submission"
	"github.com/trezcool/kosakata/core/user"
	"github.com/trezcool/kosakata/tests"
)

var usrRepo user.Repository

func setupSubmissions(t *testing.T) (submission.Repository, user.User) {
	db := testutil.PrepareDB(t)
	usrRepo = NewUserRepository(db)
	lrn := testutil.CreateUser(t, usrRepo, "Student", "student", "student@test.cd", "", user.RoleStudent, testutil.Date("2024-01-01"))
	return NewSubmissionRepository(db), lrn
}

func Test_submissionRepository_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo, lrn := setupSubmissions(t)
	day := testutil.Date("2024-01-05")

	rec := testutil.CreateRecord(t, repo, lrn.ID, day, 5, nil)
	assert.Equal(t, day, rec.SubmissionDate)
	assert.Len(t, rec.Entries, 5)
	assert.Equal(t, 5, rec.RequiredEntryCount)
	assert.Nil(t, rec.Stars)
	assert.Nil(t, rec.Comment)
	assert.Equal(t, submission.StatePending, rec.State())
	assert.True(t, rec.SubmittedAt.Equal(testutil.Noon(day)))

	got, err := repo.GetRecord(ctx, lrn.ID, day)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	got, err = repo.GetRecordByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = repo.GetRecord(ctx, lrn.ID, day.AddDays(1))
	assert.Equal(t, submission.ErrNotFound, err)
	_, err = repo.GetRecordByID(ctx, uuid.New().String())
	assert.Equal(t, submission.ErrNotFound, err)
}

func Test_submissionRepository_InsertRecord_duplicate(t *testing.T) {
	repo, lrn := setupSubmissions(t)
	day := testutil.Date("2024-01-05")
	testutil.CreateRecord(t, repo, lrn.ID, day, 5, nil)

	_, err := repo.InsertRecord(context.Background(), submission.Record{
		ID:                 uuid.New().String(),
		LearnerID:          lrn.ID,
		SubmissionDate:     day,
		Entries:            testutil.Entries(6),
		RequiredEntryCount: 5,
		SubmittedAt:        time.Now(),
	})
	assert.Equal(t, submission.ErrRecordExists, err)
}

func Test_submissionRepository_InsertRecord_concurrent(t *testing.T) {
	repo, lrn := setupSubmissions(t)
	day := testutil.Date("2024-01-05")

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		dups int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.InsertRecord(context.Background(), submission.Record{
				ID:                 uuid.New().String(),
				LearnerID:          lrn.ID,
				SubmissionDate:     day,
				Entries:            testutil.Entries(5),
				RequiredEntryCount: 5,
				SubmittedAt:        time.Now(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				oks++
			case submission.ErrRecordExists:
				dups++
			default:
				t.Errorf("InsertRecord() unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, oks)
	assert.Equal(t, n-1, dups)
}

func Test_submissionRepository_ListRecords(t *testing.T) {
	ctx := context.Background()
	repo, lrn := setupSubmissions(t)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", "", "", user.RoleStudent, testutil.Date("2024-01-01"))

	d3 := testutil.CreateRecord(t, repo, lrn.ID, testutil.Date("2024-01-03"), 5, nil)
	d1 := testutil.CreateRecord(t, repo, lrn.ID, testutil.Date("2024-01-01"), 5, testutil.IntPtr(2))
	d10 := testutil.CreateRecord(t, repo, lrn.ID, testutil.Date("2024-01-10"), 5, nil)
	testutil.CreateRecord(t, repo, other.ID, testutil.Date("2024-01-03"), 5, nil)

	tests := []struct {
		name     string
		from, to string
		want     []submission.Record
	}{
		{name: "all", from: "2024-01-01", to: "2024-01-31", want: []submission.Record{d1, d3, d10}},
		{name: "inclusive bounds", from: "2024-01-03", to: "2024-01-10", want: []submission.Record{d3, d10}},
		{name: "single day", from: "2024-01-10", to: "2024-01-10", want: []submission.Record{d10}},
		{name: "none", from: "2024-01-04", to: "2024-01-09", want: []submission.Record{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListRecords(ctx, lrn.ID, testutil.Date(tt.from), testutil.Date(tt.to))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_submissionRepository_ListPendingRecords(t *testing.T) {
	repo, lrn := setupSubmissions(t)

	d2 := testutil.CreateRecord(t, repo, lrn.ID, testutil.Date("2024-01-02"), 5, nil)
	testutil.CreateRecord(t, repo, lrn.ID, testutil.Date("2024-01-03"), 5, testutil.IntPtr(0))
	d1 := testutil.CreateRecord(t, repo, lrn.ID, testutil.Date("2024-01-01"), 5, nil)

	got, err := repo.ListPendingRecords(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []submission.Record{d1, d2}, got)

	got, err = repo.ListPendingRecords(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []submission.Record{d1}, got)
}

func Test_submissionRepository_UpdateRecordEntries(t *testing.T) {
	ctx := context.Background()
	repo, lrn := setupSubmissions(t)
	pending := testutil.CreateRecord(t, repo, lrn.ID, testutil.Date("2024-01-02"), 5, nil)
	reviewed := testutil.CreateRecord(t, repo, lrn.ID, testutil.Date("2024-01-03"), 5, testutil.IntPtr(3))
	at := testutil.Noon(testutil.Date("2024-01-04"))

	got, err := repo.UpdateRecordEntries(ctx, pending.ID, testutil.Entries(7), at)
	require.NoError(t, err)
	assert.Len(t, got.Entries, 7)
	assert.True(t, got.SubmittedAt.Equal(at))
	assert.Equal(t, 5, got.RequiredEntryCount)

	_, err = repo.UpdateRecordEntries(ctx, reviewed.ID, testutil.Entries(7), at)
	assert.Equal(t, submission.ErrReviewed, err)

	unchanged, err := repo.GetRecordByID(ctx, reviewed.ID)
	require.NoError(t, err)
	assert.Len(t, unchanged.Entries, 5)

	_, err = repo.UpdateRecordEntries(ctx, uuid.New().String(), testutil.Entries(7), at)
	assert.Equal(t, submission.ErrNotFound, err)
}

func Test_submissionRepository_SetRecordReview(t *testing.T) {
	ctx := context.Background()
	repo, lrn := setupSubmissions(t)
	rec := testutil.CreateRecord(t, repo, lrn.ID, testutil.Date("2024-01-02"), 5, nil)
	at := testutil.Noon(testutil.Date("2024-01-03"))

	got, err := repo.SetRecordReview(ctx, rec.ID, submission.Review{
		Stars: 1, Comment: testutil.StrPtr("needs work"), ReviewedBy: "t1", ReviewedAt: at,
	})
	require.NoError(t, err)
	require.NotNil(t, got.Stars)
	assert.Equal(t, 1, *got.Stars)
	assert.Equal(t, "needs work", *got.Comment)
	assert.Equal(t, "t1", *got.ReviewedBy)
	assert.True(t, got.ReviewedAt.Equal(at))
	assert.Equal(t, submission.StateReviewed, got.State())

	// re-grade overwrites, the old comment is dropped
	got, err = repo.SetRecordReview(ctx, rec.ID, submission.Review{Stars: 3, ReviewedBy: "t2", ReviewedAt: at.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 3, *got.Stars)
	assert.Nil(t, got.Comment)
	assert.Equal(t, "t2", *got.ReviewedBy)

	_, err = repo.SetRecordReview(ctx, uuid.New().String(), submission.Review{Stars: 1, ReviewedAt: at})
	assert.Equal(t, submission.ErrNotFound, err)
}
