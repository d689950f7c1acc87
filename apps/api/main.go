package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/kosakata/apps/api/echo"
	"github.com/trezcool/kosakata/core"
	"github.com/trezcool/kosakata/core/submission"
	"github.com/trezcool/kosakata/core/user"
	"github.com/trezcool/kosakata/services/logger"
	"github.com/trezcool/kosakata/storage/database"
	"github.com/trezcool/kosakata/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := database.Setup(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	usrSvc, subSvc, err := newServices(db, conf, validate, translator)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up services: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	policy := subSvc.Policy()
	logger.Info("Submission rules loaded", map[string]interface{}{
		"baseline_entry_count":   policy.BaselineEntryCount,
		"penalty_per_missed_day": policy.PenaltyPerMissedDay,
		"timezone":               conf.Submission.Timezone,
	})

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("db").Set(conf.Database.Engine)

	debugSrv := &http.Server{Addr: conf.Server.DebugAddress, Handler: http.DefaultServeMux}
	go func() {
		if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			UserSvc:       usrSvc,
			SubmissionSvc: subSvc,
			Validate:      validate,
			Translator:    translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listeners to shutdown and shed load
		var g errgroup.Group
		g.Go(func() error {
			if err := server.Shutdown(ctx); err != nil {
				logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
				return server.Close()
			}
			return nil
		})
		g.Go(func() error {
			return debugSrv.Shutdown(ctx)
		})
		if err = g.Wait(); err != nil {
			logger.Error(fmt.Sprintf("could not force stop servers: %v", err), err)
		}
	}
}

func newServices(
	db *sqlx.DB,
	conf *core.Config,
	validate *validator.Validate,
	translator ut.Translator,
) (*user.Service, *submission.Service, error) {
	usrSvc, err := user.NewService(sqlxrepos.NewUserRepository(db), conf, nil)
	if err != nil {
		return nil, nil, err
	}
	subSvc, err := submission.NewService(
		sqlxrepos.NewSubmissionRepository(db),
		conf,
		validate,
		translator,
		nil, // wall clock
	)
	if err != nil {
		return nil, nil, err
	}
	return usrSvc, subSvc, nil
}
