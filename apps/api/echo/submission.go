package echoapi

import (
	"net/http"
	"slices"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kosakata/core"
	"github.com/trezcool/kosakata/core/submission"
	"github.com/trezcool/kosakata/core/user"
)

const learnerParam = "learner_id"

type submissionApi struct {
	svc    *submission.Service
	usrSvc *user.Service
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := submissionApi{
		svc:    deps.SubmissionSvc,
		usrSvc: deps.UserSvc,
	}

	// learners' endpoints; reviewers may read any learner's with ?learner_id=
	sg := g.Group("/submissions", jwt)
	sg.POST("", api.create, studentMiddleware)
	sg.GET("", api.list)
	sg.GET("/requirement", api.requirement)
	sg.GET("/stats", api.stats)
	sg.GET("/calendar", api.calendar)
	sg.GET("/missed", api.missed)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, studentMiddleware)

	rg := g.Group("/reviews", jwt, reviewerMiddleware)
	rg.GET("/pending", api.pending)
	rg.POST("/:id", api.review)
}

// Handlers

func (api *submissionApi) create(ctx echo.Context) error {
	lrn, err := api.contextLearner(ctx)
	if err != nil {
		return err
	}
	var data submission.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if data.Date.IsZero() {
		data.Date = api.svc.Today()
	}

	rec, err := api.svc.Create(ctx.Request().Context(), lrn, data)
	if err != nil {
		return err
	}
	submissionsCreated.Inc()
	submissionRequiredEntries.Observe(float64(rec.RequiredEntryCount))
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *submissionApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rec, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if rec.LearnerID != usr.ID {
		return errHttpNotFound
	}

	var data submission.UpdateSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubmission")
	}
	rec, err = api.svc.Update(ctx.Request().Context(), rec.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rec, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if rec.LearnerID != usr.ID && !usr.Role.CanReview() {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *submissionApi) list(ctx echo.Context) error {
	lrn, err := api.contextLearner(ctx)
	if err != nil {
		return err
	}
	from, err := dateParam(ctx, "from", lrn.EnrolledOn)
	if err != nil {
		return err
	}
	to, err := dateParam(ctx, "to", api.svc.Today())
	if err != nil {
		return err
	}

	records, err := api.svc.List(ctx.Request().Context(), lrn, from, to)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *submissionApi) requirement(ctx echo.Context) error {
	lrn, err := api.contextLearner(ctx)
	if err != nil {
		return err
	}
	date, err := dateParam(ctx, "date", api.svc.Today())
	if err != nil {
		return err
	}

	req, err := api.svc.Requirement(ctx.Request().Context(), lrn, date)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *submissionApi) stats(ctx echo.Context) error {
	lrn, err := api.contextLearner(ctx)
	if err != nil {
		return err
	}
	asOf, err := dateParam(ctx, "as_of", api.svc.Today())
	if err != nil {
		return err
	}

	stats, err := api.svc.WeeklyStats(ctx.Request().Context(), lrn, asOf)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *submissionApi) calendar(ctx echo.Context) error {
	lrn, err := api.contextLearner(ctx)
	if err != nil {
		return err
	}
	// current month by default; time.Date normalizes the month overflow
	today := api.svc.Today()
	first := civil.Date{Year: today.Year, Month: today.Month, Day: 1}
	last := civil.Date{Year: today.Year, Month: today.Month + 1, Day: 1}.AddDays(-1)

	from, err := dateParam(ctx, "from", first)
	if err != nil {
		return err
	}
	to, err := dateParam(ctx, "to", last)
	if err != nil {
		return err
	}

	days, err := api.svc.Calendar(ctx.Request().Context(), lrn, from, to)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, days)
}

func (api *submissionApi) missed(ctx echo.Context) error {
	lrn, err := api.contextLearner(ctx)
	if err != nil {
		return err
	}
	from, err := dateParam(ctx, "from", lrn.EnrolledOn)
	if err != nil {
		return err
	}
	to, err := dateParam(ctx, "to", api.svc.Today())
	if err != nil {
		return err
	}

	seq, err := api.svc.MissedDates(ctx.Request().Context(), lrn, from, to)
	if err != nil {
		return err
	}
	dates := slices.Collect(seq)
	if dates == nil {
		dates = []civil.Date{}
	}
	return ctx.JSON(http.StatusOK, MissedDatesResponse{Dates: dates, Count: len(dates)})
}

func (api *submissionApi) pending(ctx echo.Context) error {
	var limit int
	if v := ctx.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return core.NewValidationError(nil, core.FieldError{Field: "limit", Error: "must be a positive integer"})
		}
		limit = n
	}

	records, err := api.svc.PendingReviews(ctx.Request().Context(), limit)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *submissionApi) review(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data submission.ReviewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewSubmission")
	}

	rec, err := api.svc.Review(ctx.Request().Context(), ctx.Param("id"), usr.ID, data)
	if err != nil {
		return err
	}
	reviewsRecorded.WithLabelValues(strconv.Itoa(*rec.Stars)).Inc()
	return ctx.JSON(http.StatusOK, rec)
}

// contextLearner resolves whose submissions are requested: the authenticated student,
// or, for reviewers, the student named by ?learner_id=.
func (api *submissionApi) contextLearner(ctx echo.Context) (submission.Learner, error) {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return submission.Learner{}, errors.Wrap(err, "getting context user")
	}

	if id := ctx.QueryParam(learnerParam); id != "" && id != usr.ID {
		if !usr.Role.CanReview() {
			return submission.Learner{}, errHttpForbidden
		}
		usr, err = api.usrSvc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return submission.Learner{}, errHttpNotFound
			}
			return submission.Learner{}, errors.Wrap(err, "finding learner by ID")
		}
		if !usr.IsStudent() {
			return submission.Learner{}, errHttpNotFound
		}
	} else if !usr.IsStudent() {
		return submission.Learner{}, core.NewValidationError(nil, core.FieldError{Field: learnerParam, Error: "this field is required"})
	}
	return submission.Learner{ID: usr.ID, EnrolledOn: usr.EnrolledOn}, nil
}

// dateParam parses the "YYYY-MM-DD" query param name, or returns def when it is absent.
func dateParam(ctx echo.Context, name string, def civil.Date) (civil.Date, error) {
	v := ctx.QueryParam(name)
	if v == "" {
		return def, nil
	}
	d, err := civil.ParseDate(v)
	if err != nil {
		return civil.Date{}, core.NewValidationError(err, core.FieldError{Field: name, Error: "invalid date, expected YYYY-MM-DD"})
	}
	return d, nil
}

type MissedDatesResponse struct {
	Dates []civil.Date `json:"dates"`
	Count int          `json:"count"`
}
