package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) stats(uname, asOfStr string) error {
	ctx := context.Background()
	usr, lrn, err := cli.getLearner(ctx, uname)
	if err != nil {
		return err
	}
	asOf, err := parseDateOr("asof", asOfStr, cli.subSvc.Today())
	if err != nil {
		return err
	}

	stats, err := cli.subSvc.WeeklyStats(ctx, lrn, asOf)
	if err != nil {
		return err
	}
	req, err := cli.subSvc.Requirement(ctx, lrn, asOf)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s (%s), week ending %s\n", usr.Name, usr.Username, asOf)
	fmt.Fprintf(cli.out, "  completed:      %d/7\n", stats.CompletedCount)
	fmt.Fprintf(cli.out, "  average stars:  %.2f\n", stats.AverageStars)
	fmt.Fprintf(cli.out, "  current streak: %d\n", stats.CurrentStreak)
	fmt.Fprintf(cli.out, "  owed on %s: %d entries (%d missed days)\n", asOf, req.RequiredEntryCount, req.MissedDays)
	return nil
}
