package console

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/blairfrandeen/titr/internal/calendar"
	"github.com/blairfrandeen/titr/internal/errors"
	"github.com/blairfrandeen/titr/internal/models"
	"github.com/blairfrandeen/titr/internal/parser"
	"github.com/blairfrandeen/titr/internal/reports"
)

var (
	brightStyle   = lipgloss.NewStyle().Bold(true)
	totalStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	goalMissStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	keyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

func commandSet() []*Command {
	return []*Command{
		{
			Name:    "add",
			Summary: "Add a new entry to the time log.",
			Help: `Add a new entry to the time log.

Format is "<duration> [<category> <task> <comment>]"
Duration is required and must be able to be converted to float
Category must be an integer; task must be a single character
Any text after the task is considered a comment.
All arguments other than duration are optional.

Some examples:
1 2 i this is one hour in category 2 in task 'i'
1 this is one hour on default task & category
.5 i this is half an hour in task 'i'
1 2 this is one hour in category 2
2.1     (2.1 hrs, default category & task, no comment)`,
			Enabled: true,
			Run:     runAddHelp,
		},
		{Name: "clear", Summary: "Delete all entered data.", Enabled: true, Run: runClear},
		{
			Name:    "clip",
			Aliases: []string{"copy"},
			Summary: "Copy output to clipboard.",
			Help: `Copy output to clipboard.

Output is copied in TSV (tab-separated values).`,
			Enabled: true,
			Run:     runClip,
		},
		{Name: "list", Aliases: []string{"ls"}, Summary: "Display available category & account codes.", Enabled: true, Run: runList},
		{Name: "preview", Aliases: []string{"p"}, Summary: "Preview time entries that have been entered so far.", Enabled: true, Run: runPreview},
		{Name: "scale", Aliases: []string{"s"}, Summary: "Scale time entries by weighted average to sum to a target total duration.", Enabled: true, Run: runScale},
		{
			Name:    "date",
			Aliases: []string{"d"},
			Summary: "Set the date for time entries and timecard.",
			Help: `Set the date for time entries and timecard.

Enter 'date' with no arguments to set date to today.
Enter 'date -<n>' where n is an integer to set date n days back from today
    for example 'date -1' will set it to yesterday.
Enter 'date yyyy-mm-dd' to set to any custom date.
Dates must not be in the future.`,
			Enabled: true,
			Run:     runDate,
		},
		{Name: "undo", Aliases: []string{"u", "z"}, Summary: "Undo last entry.", Enabled: true, Run: runUndo},
		{
			Name:    "write",
			Aliases: []string{"c", "commit"},
			Summary: "Permanently commit time entries to the database.",
			Help: `Permanently commit time entries to the database.

Database is in ~/.titr/titr.db by default. Run titr --testdb
to use a test database file in the working directory.`,
			Enabled: true,
			Run:     runWrite,
		},
		{
			Name:    "modes",
			Aliases: []string{"m"},
			Summary: "Show work mode summary for this week.",
			Help: `Show work mode summary for this week.

To show summary for a different week, set the date
to any day within the week of interest using the date command.

Weeks start on Monday.`,
			Enabled: true,
			Run:     runModes,
		},
		{
			Name:    "timecard",
			Aliases: []string{"tc"},
			Summary: "Show timecard summary for this week.",
			Help: `Show timecard summary for this week.

Incidental time is redistributed across the remaining tasks
in proportion to each task's share of the total.

To show summary for a different week, set the date
to any day within the week of interest using the date command.

Weeks start on Monday.`,
			Enabled: true,
			Run:     runTimecard,
		},
		{
			Name:    "deepwork",
			Aliases: []string{"dw"},
			Summary: "Show total deep work and deep work over past 365 days.",
			Enabled: true,
			Run:     runDeepWork,
		},
		{
			Name:    "outlook",
			Aliases: []string{"o"},
			Summary: "Import appointments from the calendar for the current date.",
			Help: `Import appointments from the calendar for the current date.

Reads the calendar export file configured in ~/.titr/titr.toml.
Each appointment is offered as a suggestion: accept it with a blank
line, override any part of it with a normal time entry, or skip it
with 'q'.`,
			Enabled: true,
			Run:     runOutlook,
		},
		{
			Name:    "import",
			Summary: "Import time entries from a csv file.",
			Help: `Import time entries from a csv file.

Usage: import <file> [header_row=<n>]

Rows are expected as date (m/d/yyyy), duration, task name,
category name, comment. The first n rows are skipped when
header_row is given.`,
			Enabled: true,
			Run:     runImport,
		},
		{
			Name:    "export",
			Summary: "Export database entries to csv.",
			Help: `Export database entries to csv.

Default export to titr_export.csv in working directory.
Export path can be specified as an argument.

Exports CSV file with header row.
Columns Date, Duration, Task, Category, and Comment.`,
			Enabled: true,
			Run:     runExport,
		},
		{Name: "history", Summary: "Display command history.", Hidden: true, Enabled: true, Run: runHistory},
		{Name: "quit", Aliases: []string{"q"}, Summary: "Exit the console.", Enabled: true, Run: runQuit},
		{Name: "help", Aliases: []string{"h", "wtf"}, Summary: "Display this help message.", Enabled: true, Run: runHelp},
		{Name: "null", Aliases: []string{""}, Summary: "Default command if no input given.", Hidden: true, Enabled: true, Run: runNull},
	}
}

// runAddEntry handles pattern-matched time entry lines. During calendar
// import the active suggestion fills any fields the line left out.
func runAddEntry(c *Console, line string) error {
	entry, err := parser.Parse(line, c.Session.Config)
	if err != nil {
		return err
	}
	if stored := c.Session.AddEntry(entry, c.importCtx); stored != nil {
		fmt.Fprintln(c.out, stored)
	}
	return nil
}

func runAddHelp(c *Console, _ []string, _ map[string]string) error {
	fmt.Fprintln(c.out, "Use 'help add' for assistance.")
	return nil
}

func runClear(c *Console, _ []string, _ map[string]string) error {
	c.Session.Clear()
	return nil
}

func runClip(c *Console, _ []string, _ map[string]string) error {
	if len(c.Session.Pending) == 0 {
		fmt.Fprintln(c.out, "No time has been entered.")
		return nil
	}
	var rows []string
	for _, entry := range c.Session.Pending {
		rows = append(rows, entry.TSV())
	}
	if err := clipboard.WriteAll(strings.Join(rows, "\n")); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	fmt.Fprintln(c.out, "TSV output copied to clipboard.")
	return nil
}

func runList(c *Console, _ []string, _ map[string]string) error {
	cfg := c.Session.Config
	fmt.Fprintln(c.out, brightStyle.Render("TASKS")+":")
	for _, key := range sortedStrings(cfg.Tasks) {
		fmt.Fprintf(c.out, "%s: %s\n", keyStyle.Render(key), cfg.Tasks[key])
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, brightStyle.Render("CATEGORIES")+":")
	for _, key := range sortedInts(cfg.Categories) {
		fmt.Fprintf(c.out, "%s: %s\n", keyStyle.Render(strconv.Itoa(key)), cfg.Categories[key])
	}
	fmt.Fprintln(c.out)
	return nil
}

func runPreview(c *Console, _ []string, _ map[string]string) error {
	var header strings.Builder
	for i, heading := range []string{"DATE", "HOURS", "TASK", "CATEGORY", "COMMENT"} {
		fmt.Fprintf(&header, "%-*s", models.ColumnWidths[i], heading)
	}
	fmt.Fprintln(c.out, brightStyle.Render(strings.TrimRight(header.String(), " ")))
	for _, entry := range c.Session.Pending {
		fmt.Fprintln(c.out, entry)
	}
	total := fmt.Sprintf("%-*s%-*.2f", models.ColumnWidths[0], "TOTAL",
		models.ColumnWidths[1], c.Session.TotalDuration())
	fmt.Fprintln(c.out, totalStyle.Render(strings.TrimRight(total, " ")))
	return nil
}

func runScale(c *Console, args []string, _ map[string]string) error {
	if len(args) == 0 {
		return errors.Input("Usage: scale <hours>")
	}
	before := c.Session.TotalDuration()
	changed, err := c.Session.Scale(args[0])
	if err != nil {
		return err
	}
	if !changed {
		if before == 0 {
			fmt.Fprintln(c.out, "No entries to scale / cannot scale from zero.")
		}
		return nil
	}
	fmt.Fprintf(c.out, "Scaling from %v hours to %s hours.\n", before, args[0])
	return nil
}

func runDate(c *Console, args []string, _ map[string]string) error {
	token := ""
	switch len(args) {
	case 0:
	case 1:
		token = args[0]
	default:
		return errors.Input("Too many arguments. See 'help date' for more info.")
	}
	if err := c.Session.SetDate(token); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Date set to %s\n", c.Session.Date().Format(models.DateFormat))
	return nil
}

func runUndo(c *Console, _ []string, _ map[string]string) error {
	c.Session.UndoLast()
	return nil
}

func runWrite(c *Console, _ []string, _ map[string]string) error {
	return c.writeDB("user")
}

// writeDB commits the pending entries under a new session row and clears
// them so they are not written twice.
func (c *Console) writeDB(inputType string) error {
	if len(c.Session.Pending) == 0 {
		return errors.Input("Nothing to commit. Get back to work.")
	}
	sessionID, err := c.Store.SessionMetadata(inputType)
	if err != nil {
		return err
	}
	if err := c.Store.WriteEntries(c.Session.Pending, sessionID); err != nil {
		return err
	}
	c.Session.Clear()
	fmt.Fprintf(c.out, "Committed entries to %s.\n", c.Store.Path())
	return nil
}

func runModes(c *Console, args []string, _ map[string]string) error {
	threshold := 0.005
	if len(args) > 0 {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return errors.Inputf("Cannot convert %s to float.", args[0])
		}
		threshold = v
	}
	start, end := reports.WeekOf(c.Session.Date())
	totals, err := c.Store.CategoryTotals(start, end.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	rows := reports.BuildModes(totals, threshold)
	if rows == nil {
		fmt.Fprintln(c.out, "No data available. Enter some data, or try different dates.")
		return nil
	}
	w := [3]int{22, 10, 10}
	fmt.Fprintln(c.out, brightStyle.Render(
		fmt.Sprintf("%-*s%-*s%s", w[0], "CATEGORY", w[1], "HOURS", "PERCENT")))
	for _, row := range rows {
		fmt.Fprintf(c.out, "%-*s%-*.2f%s\n", w[0], row.Category, w[1], row.Hours,
			fmt.Sprintf("%.2f%%", row.Percent*100))
	}
	return nil
}

func runTimecard(c *Console, _ []string, _ map[string]string) error {
	start, end := reports.WeekOf(c.Session.Date())
	totals, err := c.Store.TaskTotals(start, end)
	if err != nil {
		return err
	}
	card := reports.BuildTimecard(totals, c.Session.Config.IncidentalTasks)
	if card.Total <= 0 {
		fmt.Fprintln(c.out, "No time entered for this week.")
		return nil
	}
	w := [4]int{30, 8, 15, 12}
	fmt.Fprintln(c.out, brightStyle.Render(
		fmt.Sprintf("%-*s%-*s%-*s%s", w[0], "TASK", w[1], "HOURS", w[2], "ADJ. HOURS", "PERCENTAGE")))
	for _, row := range card.Rows {
		fmt.Fprintf(c.out, "%-*s%-*.2f%-*.2f%s\n", w[0], row.Name, w[1], row.Hours,
			w[2], row.AdjHours, fmt.Sprintf("%.2f%%", row.Percent*100))
	}
	fmt.Fprintln(c.out, totalStyle.Render(
		strings.TrimRight(fmt.Sprintf("%-*s%-*.2f", w[0], "", w[1], card.Total), " ")))
	return nil
}

func runDeepWork(c *Console, _ []string, _ map[string]string) error {
	total, last365, err := c.Store.DeepWorkHours()
	if err != nil {
		return err
	}
	if total <= 0 {
		fmt.Fprintln(c.out, "No deep work hours found.")
		return nil
	}
	goal := c.Session.Config.DeepWorkGoal
	goalStyle := totalStyle
	if last365 < goal {
		goalStyle = goalMissStyle
	}
	w := [4]int{15, 12, 18, 15}
	fmt.Fprintln(c.out, brightStyle.Render(
		fmt.Sprintf("%-*s%-*s%-*s%s", w[0], "DEEP WORK", w[1], "TOTAL", w[2], "LAST 365 DAYS", "GOAL")))
	fmt.Fprintf(c.out, "%-*s%-*.1f%s%-*.0f\n",
		w[0], "----------", w[1], total,
		goalStyle.Render(fmt.Sprintf("%-*.1f", w[2], last365)),
		w[3], goal)
	return nil
}

func runOutlook(c *Console, _ []string, _ map[string]string) error {
	return c.ImportCalendar()
}

// ImportCalendar walks the day's appointments, offering each as a
// pre-filled suggestion. A blank line accepts the suggestion as-is, a
// normal entry line overrides any part of it, and quit skips the rest.
func (c *Console) ImportCalendar() error {
	cfg := c.Session.Config
	date := c.Session.Date()
	events, err := c.Source.Events(date)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return errors.Inputf("No calendar events found for %s", date.Format(models.DateFormat))
	}

	c.SetEntryPattern(parser.BlankOrEntryPattern)
	suspended := []string{"date", "write", "quit"}
	for _, name := range suspended {
		c.Disable(name)
	}
	defer func() {
		c.SetEntryPattern(parser.EntryPattern)
		for _, name := range suspended {
			c.Enable(name)
		}
	}()

	fmt.Fprintf(c.out, "Found total of %d events for %s:\n", len(events), date.Format(models.DateFormat))
	for _, event := range events {
		if calendar.Skip(event, cfg.Calendar) {
			continue
		}
		ictx := calendar.Context(event, cfg)
		prompt := fmt.Sprintf("%s\n%s - %v hr > ",
			ictx.Comment, cfg.Categories[ictx.Category], math.Round(ictx.Duration*100)/100)
		c.importCtx = &ictx
		name, err := c.Run(prompt, []string{"add_entry", "null", "quit"})
		c.importCtx = nil
		if err != nil {
			return err
		}
		if name == "quit" {
			break
		}
	}
	return runPreview(c, nil, nil)
}

func runImport(c *Console, args []string, kwargs map[string]string) error {
	if len(args) == 0 {
		return errors.Input("Usage: import <file> [header_row=<n>]")
	}
	headerRows := 0
	if v, ok := kwargs["header_row"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Inputf("Invalid header_row %q.", v)
		}
		headerRows = n
	}
	result, err := c.Store.ImportCSV(args[0], headerRows)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Total of %d entries found totalling %v hours.\n", result.Rows, result.Hours)

	commit := false
	if err := huh.NewConfirm().
		Title("Commit imported entries to the database?").
		Value(&commit).
		Run(); err != nil {
		result.Rollback()
		return err
	}
	if !commit {
		return result.Rollback()
	}
	if err := result.Commit(); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Entries committed to database.")
	return nil
}

func runExport(c *Console, args []string, _ map[string]string) error {
	path := "titr_export.csv"
	if len(args) > 0 {
		path = args[0]
	}
	var buf bytes.Buffer
	n, err := c.Store.ExportCSV(&buf)
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(c.out, "No data to export.")
		return nil
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	fmt.Fprintf(c.out, "Exported %d rows to %s.\n", n, path)
	return nil
}

func runHistory(c *Console, _ []string, _ map[string]string) error {
	fmt.Fprintln(c.out, "Command History:")
	for _, item := range c.history {
		fmt.Fprintln(c.out, item)
	}
	return nil
}

func runQuit(_ *Console, _ []string, _ map[string]string) error { return nil }

func runNull(_ *Console, _ []string, _ map[string]string) error { return nil }

func runHelp(c *Console, args []string, _ map[string]string) error {
	if len(args) > 0 {
		if cmd, ok := c.aliases[args[0]]; ok {
			text := cmd.Help
			if text == "" {
				text = cmd.Summary
			}
			fmt.Fprintln(c.out, text)
			return nil
		}
	}
	for _, cmd := range sortedCommands(c.commands) {
		if cmd.Hidden {
			continue
		}
		names := append([]string{cmd.Name}, cmd.Aliases...)
		fmt.Fprintf(c.out, "%s\t\t%s\n", strings.Join(names, ", "), cmd.Summary)
	}
	return nil
}

func sortedStrings(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedInts(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
