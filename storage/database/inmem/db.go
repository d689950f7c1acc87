package inmemdb

import (
	"sync"

	"github.com/trezcool/kosakata/core/submission"
	"github.com/trezcool/kosakata/core/user"
)

type (
	// DB is an in-memory store, used in tests and for local runs without a database.
	DB struct {
		user       *userTable
		submission *submissionTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	recordKey struct {
		learnerID string
		date      string
	}

	submissionTable struct {
		sync.RWMutex
		table map[string]*submission.Record
		byKey map[recordKey]string // unique (learner, date) index -> record ID
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		submission: &submissionTable{
			table: make(map[string]*submission.Record),
			byKey: make(map[recordKey]string),
		},
	}
	return db, nil
}
