package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/kosakata/core"
	"github.com/trezcool/kosakata/core/user"
)

// addUser creates a user.User, or resets the password of the one already holding the username or email.
func (cli *commandLine) addUser(nu user.NewUser) error {
	ctx := context.Background()

	for _, uname := range []string{nu.Username, nu.Email} {
		if uname == "" {
			continue
		}
		usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
		if err == nil {
			if _, err = cli.usrSvc.SetPassword(ctx, usr, nu.Password); err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "password updated for existing user %q\n", usr.ID)
			return nil
		}
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
	}

	if err := nu.Validate(cli.validate, cli.usrSvc); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s %q created, enrolled on %s\n", usr.Role, usr.ID, usr.EnrolledOn)
	return nil
}
