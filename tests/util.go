package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/kosakata/core"
	"github.com/trezcool/kosakata/core/submission"
	"github.com/trezcool/kosakata/core/user"
	"github.com/trezcool/kosakata/storage/database"
)

// NewConfig returns the default exercise rules (5 entries, +3 per missed day, 0-3 stars) in UTC.
func NewConfig() *core.Config {
	return &core.Config{
		Env:       "TEST",
		AppName:   "Kosakata",
		TestMode:  true,
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 15 * time.Minute,
			ShutdownTimeout:           time.Second,
		},
		Database: core.DatabaseConfig{Engine: database.EngineSQLite, Path: ":memory:"},
		Submission: core.SubmissionConfig{
			BaselineEntryCount:  5,
			PenaltyPerMissedDay: 3,
			StarMin:             0,
			StarMax:             3,
			Timezone:            "UTC",
		},
	}
}

// NewValidator returns a validator with every custom tag registered, and its translator.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// FixedClock always returns t.
func FixedClock(t time.Time) submission.Clock {
	return func() time.Time { return t }
}

// Noon returns 12:00 UTC of d.
func Noon(d civil.Date) time.Time {
	return d.In(time.UTC).Add(12 * time.Hour)
}

func Date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func IntPtr(i int) *int { return &i }

func StrPtr(s string) *string { return &s }

// PrepareDB opens a migrated in-memory sqlite database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	role user.Role,
	enrolledOn civil.Date,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:         uuid.New().String(),
		Name:       name,
		Username:   uname,
		Email:      email,
		Role:       role,
		EnrolledOn: enrolledOn,
		IsActive:   true,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// Entries returns n distinct, valid vocabulary entries.
func Entries(n int) []submission.WordEntry {
	entries := make([]submission.WordEntry, 0, n)
	for i := 1; i <= n; i++ {
		entries = append(entries, submission.WordEntry{
			Word:        fmt.Sprintf("word%d", i),
			Meaning:     fmt.Sprintf("meaning %d", i),
			Sentence:    fmt.Sprintf("This is sentence %d.", i),
			Description: fmt.Sprintf("description %d", i),
		})
	}
	return entries
}

// CreateRecord stores a record directly, bypassing the submission rules. stars may be nil.
func CreateRecord(
	t *testing.T,
	repo submission.Repository,
	learnerID string,
	date civil.Date,
	entryCount int,
	stars *int,
) submission.Record {
	rec, err := repo.InsertRecord(context.Background(), submission.Record{
		ID:                 uuid.New().String(),
		LearnerID:          learnerID,
		SubmissionDate:     date,
		Entries:            Entries(entryCount),
		RequiredEntryCount: entryCount,
		SubmittedAt:        Noon(date),
	})
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	if stars != nil {
		rec, err = repo.SetRecordReview(context.Background(), rec.ID, submission.Review{
			Stars:      *stars,
			ReviewedBy: "reviewer",
			ReviewedAt: Noon(date).Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("CreateRecord() failed: %v", err)
		}
	}
	return rec
}
