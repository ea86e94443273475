package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/blairfrandeen/titr/internal/calendar"
	"github.com/blairfrandeen/titr/internal/config"
	"github.com/blairfrandeen/titr/internal/models"
	"github.com/blairfrandeen/titr/internal/session"
)

func testConfig() *config.Config {
	return &config.Config{
		MaxDuration:     9,
		DefaultCategory: 2,
		DefaultTask:     "d",
		Categories:      map[int]string{2: "Deep Work", 3: "Email", 4: "Meetings"},
		Tasks:           map[string]string{"i": "Incidental", "d": "Default Task"},
		IncidentalTasks: []string{"i"},
		Calendar: config.Calendar{
			SkipEventStatus: []int{0, 3},
			SkipAllDay:      true,
		},
	}
}

type stubSource struct {
	events []calendar.Appointment
}

func (s stubSource) Events(time.Time) ([]calendar.Appointment, error) {
	return s.events, nil
}

func testConsole(t *testing.T, input string) (*Console, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	c := New(session.New(testConfig()), nil, stubSource{}, strings.NewReader(input), out)
	return c, out
}

func TestRun_EntryThenQuit(t *testing.T) {
	c, out := testConsole(t, "1 2 i writing tests\nq\n")

	name, err := c.Run(">> ", []string{"quit"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if name != "quit" {
		t.Errorf("Run returned %q, want quit", name)
	}
	if len(c.Session.Pending) != 1 {
		t.Fatalf("pending = %d entries, want 1", len(c.Session.Pending))
	}
	entry := c.Session.Pending[0]
	if *entry.Category != 2 || *entry.Task != "i" || entry.Comment != "writing tests" {
		t.Errorf("entry = %v/%v/%q", *entry.Category, *entry.Task, entry.Comment)
	}
	if !strings.Contains(out.String(), "writing tests") {
		t.Error("accepted entry was not echoed")
	}
}

func TestRun_EOFBehavesAsQuit(t *testing.T) {
	c, _ := testConsole(t, "")
	name, err := c.Run(">> ", []string{"quit"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if name != "quit" {
		t.Errorf("Run returned %q, want quit", name)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	c, out := testConsole(t, "frobnicate\nq\n")
	if _, err := c.Run(">> ", []string{"quit"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(out.String(), "Command not recognized. Type 'h' for help or 'q' to quit.") {
		t.Errorf("missing unknown-command message, got %q", out.String())
	}
}

func TestRun_InputErrorKeepsLooping(t *testing.T) {
	c, out := testConsole(t, "99 2 i\nq\n")
	if _, err := c.Run(">> ", []string{"quit"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(out.String(), "Error: You're working too much.") {
		t.Errorf("missing input error, got %q", out.String())
	}
	if len(c.Session.Pending) != 0 {
		t.Errorf("pending = %d entries, want 0", len(c.Session.Pending))
	}
}

func TestRun_DisabledCommandStillBreaks(t *testing.T) {
	c, out := testConsole(t, "q\n")
	c.Disable("quit")

	name, err := c.Run(">> ", []string{"quit"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if name != "quit" {
		t.Errorf("Run returned %q, want quit", name)
	}
	if !strings.Contains(out.String(), "Disabled.") {
		t.Error("disabled command did not acknowledge")
	}
	if len(c.Session.Pending) != 0 {
		t.Error("disabled command ran anyway")
	}
}

func TestScaleCommand(t *testing.T) {
	c, out := testConsole(t, "2 2 i\n2 3 i\ns 5\nq\n")
	if _, err := c.Run(">> ", []string{"quit"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := c.Session.TotalDuration(); got != 5 {
		t.Errorf("total after scale = %v, want 5", got)
	}
	if !strings.Contains(out.String(), "Scaling from 4 hours to 5 hours.") {
		t.Errorf("missing scaling message, got %q", out.String())
	}
}

func TestDateCommand(t *testing.T) {
	c, out := testConsole(t, "d -1\nq\n")
	if _, err := c.Run(">> ", []string{"quit"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	yesterday := time.Now().AddDate(0, 0, -1).Format(models.DateFormat)
	if !strings.Contains(out.String(), "Date set to "+yesterday) {
		t.Errorf("missing date message, got %q", out.String())
	}
	if got := c.Session.Date().Format(models.DateFormat); got != yesterday {
		t.Errorf("session date = %s, want %s", got, yesterday)
	}
}

func TestDateCommand_TooManyArguments(t *testing.T) {
	c, out := testConsole(t, "d - 1\nq\n")
	if _, err := c.Run(">> ", []string{"quit"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(out.String(), "Error: Too many arguments.") {
		t.Errorf("missing argument error, got %q", out.String())
	}
}

func TestUndoAndClearCommands(t *testing.T) {
	c, _ := testConsole(t, "1\n2\nu\nq\n")
	if _, err := c.Run(">> ", []string{"quit"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(c.Session.Pending) != 1 || c.Session.Pending[0].Duration != 1 {
		t.Errorf("pending after undo = %v", c.Session.Pending)
	}

	c, _ = testConsole(t, "1\n2\nclear\nq\n")
	if _, err := c.Run(">> ", []string{"quit"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(c.Session.Pending) != 0 {
		t.Errorf("pending after clear = %d entries, want 0", len(c.Session.Pending))
	}
}

func TestPreviewCommand(t *testing.T) {
	c, out := testConsole(t, "1.5 2 i some comment\np\nq\n")
	if _, err := c.Run(">> ", []string{"quit"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	for _, want := range []string{"DATE", "HOURS", "TASK", "CATEGORY", "COMMENT", "TOTAL", "Incidental", "some comment"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("preview output missing %q", want)
		}
	}
}

func TestHelpCommand(t *testing.T) {
	c, out := testConsole(t, "h\nq\n")
	if _, err := c.Run(">> ", []string{"quit"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "quit, q\t\tExit the console.") {
		t.Errorf("help output missing quit row, got %q", got)
	}
	if !strings.Contains(got, "scale, s") {
		t.Error("help output missing scale row")
	}
	if strings.Contains(got, "null") || strings.Contains(got, "history") {
		t.Error("help output lists hidden commands")
	}
}

func TestHelpCommand_SpecificCommand(t *testing.T) {
	c, out := testConsole(t, "help add\nq\n")
	if _, err := c.Run(">> ", []string{"quit"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(out.String(), "Format is \"<duration> [<category> <task> <comment>]\"") {
		t.Errorf("full add help not shown, got %q", out.String())
	}
}

func TestImportCalendar(t *testing.T) {
	day := time.Now()
	source := stubSource{events: []calendar.Appointment{
		{Subject: "Standup", Start: day, Minutes: 30, BusyStatus: 2},
		{Subject: "Focus block", Start: day, Minutes: 60, BusyStatus: 0}, // skipped: free
		{Subject: "Review", Start: day, Minutes: 60, BusyStatus: 2},
		{Subject: "Retro", Start: day, Minutes: 45, BusyStatus: 2},
	}}

	out := &bytes.Buffer{}
	// Accept the first suggestion as-is, enter zero to skip the next,
	// then quit out of the rest.
	in := strings.NewReader("\n0\nq\n")
	c := New(session.New(testConfig()), nil, source, in, out)

	if err := c.ImportCalendar(); err != nil {
		t.Fatalf("ImportCalendar returned error: %v", err)
	}

	if !strings.Contains(out.String(), "Found total of 4 events") {
		t.Errorf("missing event count, got %q", out.String())
	}
	if len(c.Session.Pending) != 1 {
		t.Fatalf("pending = %d entries, want 1", len(c.Session.Pending))
	}
	entry := c.Session.Pending[0]
	if entry.Duration != 0.5 || entry.Comment != "Standup" {
		t.Errorf("entry = %v/%q, want 0.5/Standup", entry.Duration, entry.Comment)
	}

	// The import restores the commands it suspended and the strict
	// entry pattern.
	if cmd := c.aliases["quit"]; !cmd.Enabled {
		t.Error("quit still disabled after import")
	}
	if name, _ := c.dispatch(""); name != "null" {
		t.Errorf("blank line dispatched to %q, want null command", name)
	}
}

func TestImportCalendar_NoEvents(t *testing.T) {
	c, _ := testConsole(t, "")
	err := c.ImportCalendar()
	if err == nil {
		t.Fatal("ImportCalendar returned no error with no events")
	}
	if !strings.Contains(err.Error(), "No calendar events found") {
		t.Errorf("error = %v", err)
	}
}

func TestSplitKwargs(t *testing.T) {
	args, kwargs := splitKwargs([]string{"file.csv", "header_row=2", "-1"})
	if len(args) != 2 || args[0] != "file.csv" || args[1] != "-1" {
		t.Errorf("args = %v, want [file.csv -1]", args)
	}
	if kwargs["header_row"] != "2" {
		t.Errorf("kwargs = %v, want header_row=2", kwargs)
	}
}

func TestHistoryCommand(t *testing.T) {
	c, out := testConsole(t, "1 2 i\np\nhistory\nq\n")
	if _, err := c.Run(">> ", []string{"quit"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Command History:") {
		t.Error("missing history header")
	}
	if !strings.Contains(got, "add_entry") || !strings.Contains(got, "preview") {
		t.Errorf("history missing entries, got %q", got)
	}
}
