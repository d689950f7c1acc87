package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/kosakata/core/submission"
)

const (
	recordsSheet  = "Sheet1"
	entriesSheet  = "Entries"
	calendarSheet = "Calendar"
)

var (
	recordsHeader  = []interface{}{"Date", "Required", "Entries", "Submitted At (UTC)", "Stars", "Comment", "Reviewed At (UTC)"}
	entriesHeader  = []interface{}{"Date", "Word", "Meaning", "Sentence", "Description"}
	calendarHeader = []interface{}{"Date", "Status", "Stars"}
)

// export writes the learner's records in [from, to] to an xlsx workbook:
// one row per record, one row per vocabulary entry and the day by day calendar.
func (cli *commandLine) export(uname, fromStr, toStr, path string) error {
	ctx := context.Background()
	usr, lrn, err := cli.getLearner(ctx, uname)
	if err != nil {
		return err
	}
	from, err := parseDateOr("from", fromStr, lrn.EnrolledOn)
	if err != nil {
		return err
	}
	to, err := parseDateOr("to", toStr, cli.subSvc.Today())
	if err != nil {
		return err
	}

	records, err := cli.subSvc.List(ctx, lrn, from, to)
	if err != nil {
		return err
	}
	// the whole history may span years: build the calendar from the records at hand
	days := submission.Calendar(cli.subSvc.Window(), lrn, from, to, records)

	if path == "" {
		path = fmt.Sprintf("%s_%s_%s.xlsx", strings.ReplaceAll(usr.Username, " ", "_"), from, to)
	}
	f, err := newWorkbook(records, days)
	if err != nil {
		return errors.Wrap(err, "building workbook")
	}
	defer func() { _ = f.Close() }()
	if err = f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "saving %s", path)
	}
	fmt.Fprintf(cli.out, "%d submissions exported to %s\n", len(records), path)
	return nil
}

func newWorkbook(records []submission.Record, days []submission.CalendarDay) (*excelize.File, error) {
	f := excelize.NewFile()
	if _, err := f.NewSheet(entriesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(calendarSheet); err != nil {
		return nil, err
	}

	recordRows := make([][]interface{}, 0, len(records)+1)
	recordRows = append(recordRows, recordsHeader)
	entryRows := [][]interface{}{entriesHeader}
	for _, rec := range records {
		row := []interface{}{
			rec.SubmissionDate.String(),
			rec.RequiredEntryCount,
			len(rec.Entries),
			rec.SubmittedAt.Format("2006-01-02 15:04:05"),
			"", "", "",
		}
		if rec.Stars != nil {
			row[4] = *rec.Stars
		}
		if rec.Comment != nil {
			row[5] = *rec.Comment
		}
		if rec.ReviewedAt != nil {
			row[6] = rec.ReviewedAt.Format("2006-01-02 15:04:05")
		}
		recordRows = append(recordRows, row)

		for _, we := range rec.Entries {
			entryRows = append(entryRows, []interface{}{rec.SubmissionDate.String(), we.Word, we.Meaning, we.Sentence, we.Description})
		}
	}

	calendarRows := make([][]interface{}, 0, len(days)+1)
	calendarRows = append(calendarRows, calendarHeader)
	for _, day := range days {
		row := []interface{}{day.Date.String(), string(day.Status), ""}
		if day.Stars != nil {
			row[2] = *day.Stars
		}
		calendarRows = append(calendarRows, row)
	}

	for sheet, rows := range map[string][][]interface{}{
		recordsSheet:  recordRows,
		entriesSheet:  entryRows,
		calendarSheet: calendarRows,
	} {
		if err := writeRows(f, sheet, rows); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err = f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing %s!%s", sheet, cell)
		}
	}
	return nil
}
