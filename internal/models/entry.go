package models

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
const DateFormat = "2006-01-02"

// ColumnWidths are the display widths for the date, hours, task, category
// and comment columns of the entry preview table.
var ColumnWidths = [5]int{12, 8, 22, 22, 24}

// TimeEntry is one unit of tracked work: pending in a console session
// until it is committed to the database.
//
// Category and Task are nil until set by the parser or defaulted by the
// session. PersistedID is set only when the entry shadows an existing
// database row, in which case committing updates that row instead of
// inserting a new one.
type TimeEntry struct {
	Duration    float64
	Category    *int
	Task        *string
	Date        time.Time
	StartTS     *time.Time
	EndTS       *time.Time
	PersistedID *int64
	Comment     string

	// Display names, resolved when the entry is accepted into a session.
	CategoryName string
	TaskName     string
}

// NewEntry returns an entry with only a duration, the shape produced by
// input lines like "1.5" with no further arguments.
func NewEntry(duration float64) *TimeEntry {
	return &TimeEntry{Duration: duration}
}

// WithCategory sets the category key.
func (e *TimeEntry) WithCategory(key int) *TimeEntry {
	e.Category = &key
	return e
}

// WithTask sets the task key.
func (e *TimeEntry) WithTask(key string) *TimeEntry {
	e.Task = &key
	return e
}

// TSV renders the entry as a clipboard-friendly tab-separated row.
func (e *TimeEntry) TSV() string {
	return strings.Join([]string{
		e.Date.Format(DateFormat),
		fmt.Sprintf("%v", e.Duration),
		e.TaskName,
		e.CategoryName,
		e.Comment,
	}, "\t")
}

// String renders the entry as one row of the preview table.
func (e *TimeEntry) String() string {
	return strings.TrimRight(fmt.Sprintf("%-*s%-*.2f%-*s%-*s%s",
		ColumnWidths[0], e.Date.Format(DateFormat),
		ColumnWidths[1], e.Duration,
		ColumnWidths[2], shorten(e.TaskName, ColumnWidths[2]-1),
		ColumnWidths[3], shorten(e.CategoryName, ColumnWidths[3]-1),
		e.Comment), " ")
}

func shorten(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return strings.TrimRight(s[:width-3], " ") + "..."
}

// TaskTotal is one row of the weekly timecard query: total hours grouped
// by task.
type TaskTotal struct {
	Name  string
	Hours float64
	Key   string
}

// CategoryTotal is one row of the work-modes query: total hours grouped
// by category.
type CategoryTotal struct {
	Name  string
	Hours float64
}
