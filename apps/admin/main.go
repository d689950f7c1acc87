package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kosakata/core"
	"github.com/trezcool/kosakata/core/submission"
	"github.com/trezcool/kosakata/core/user"
	"github.com/trezcool/kosakata/services/logger"
	"github.com/trezcool/kosakata/storage/database"
	"github.com/trezcool/kosakata/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	// set up DB; migrations are left to the migrate command
	if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
		logger.Fatal("setting up database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()
	if err = db.Ping(); err != nil {
		logger.Fatal("pinging database", err)
	}

	// set up services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	usrSvc, err := user.NewService(sqlxrepos.NewUserRepository(db), conf, nil)
	if err != nil {
		logger.Fatal("setting up user service", err)
	}
	subSvc, err := submission.NewService(sqlxrepos.NewSubmissionRepository(db), conf, validate, translator, nil)
	if err != nil {
		logger.Fatal("setting up submission service", err)
	}

	// start CLI
	cli := commandLine{
		db:         db,
		usrSvc:     usrSvc,
		subSvc:     subSvc,
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		logger.Close()
		os.Exit(1)
	}
}
