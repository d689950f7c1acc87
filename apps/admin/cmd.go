package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"cloud.google.com/go/civil"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/kosakata/core/submission"
	"github.com/trezcool/kosakata/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	usrSvc     *user.Service
	subSvc     *submission.Service
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -name NAME -username USERNAME -email EMAIL -role ROLE [-enrolled YYYY-MM-DD] - add a user, or reset an existing one's password")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run database migrations (up, down, status, version, redo, reset, up-to VERSION, down-to VERSION)")
	fmt.Fprintln(cli.out, "  export -username USERNAME|EMAIL [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-o FILE] - export a learner's submissions to a spreadsheet")
	fmt.Fprintln(cli.out, "  stats -username USERNAME|EMAIL [-asof YYYY-MM-DD] - print a learner's weekly progress")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "adduser":
		cmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		name := cmd.String("name", "", "The user's full name.")
		uname := cmd.String("username", "", "The user's username.")
		email := cmd.String("email", "", "The user's email.")
		role := cmd.String("role", user.RoleStudent.String(), "One of student, teacher or admin.")
		enrolled := cmd.String("enrolled", "", "A student's first day of submissions (YYYY-MM-DD). Defaults to today.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *uname == "" && *email == "" {
			cmd.Usage()
			return errHelp
		}
		r, err := user.ParseRole(*role)
		if err != nil {
			return err
		}
		var enrolledOn civil.Date
		if *enrolled != "" {
			if enrolledOn, err = civil.ParseDate(*enrolled); err != nil {
				return fmt.Errorf("invalid enrollment date %q, expected YYYY-MM-DD", *enrolled)
			}
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.addUser(user.NewUser{
			Name:            *name,
			Username:        *uname,
			Email:           *email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Role:            r,
			EnrolledOn:      enrolledOn,
		})

	case "resetpassword":
		cmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		uname := cmd.String("username", "", "The user's username or email. The password will be prompted next.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *uname == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*uname, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "export":
		cmd := flag.NewFlagSet("export", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		uname := cmd.String("username", "", "The learner's username or email.")
		from := cmd.String("from", "", "First day to export (YYYY-MM-DD). Defaults to the enrollment day.")
		to := cmd.String("to", "", "Last day to export (YYYY-MM-DD). Defaults to today.")
		out := cmd.String("o", "", "Output file. Defaults to USERNAME_FROM_TO.xlsx.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *uname == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.export(*uname, *from, *to, *out)

	case "stats":
		cmd := flag.NewFlagSet("stats", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		uname := cmd.String("username", "", "The learner's username or email.")
		asOf := cmd.String("asof", "", "Last day of the week (YYYY-MM-DD). Defaults to today.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *uname == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.stats(*uname, *asOf)

	default:
		cli.printUsage()
		return errHelp
	}
}
