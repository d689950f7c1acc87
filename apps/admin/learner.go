package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/trezcool/kosakata/core/submission"
	"github.com/trezcool/kosakata/core/user"
)

// getLearner finds the student holding uname (username or email).
func (cli *commandLine) getLearner(ctx context.Context, uname string) (user.User, submission.Learner, error) {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return user.User{}, submission.Learner{}, err
	}
	if !usr.IsStudent() {
		return user.User{}, submission.Learner{}, fmt.Errorf("%q is a %s, not a student", uname, usr.Role)
	}
	return usr, submission.Learner{ID: usr.ID, EnrolledOn: usr.EnrolledOn}, nil
}

// parseDateOr parses a "YYYY-MM-DD" flag value, or returns def when it is empty.
func parseDateOr(name, value string, def civil.Date) (civil.Date, error) {
	if value == "" {
		return def, nil
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid -%s %q, expected YYYY-MM-DD", name, value)
	}
	return d, nil
}
