package models

import (
	"strings"
	"testing"
	"time"
)

func testEntry() *TimeEntry {
	entry := NewEntry(1.5).WithCategory(2).WithTask("i")
	entry.Date = time.Date(2024, 6, 3, 0, 0, 0, 0, time.Local)
	entry.Comment = "a comment"
	entry.CategoryName = "Deep Work"
	entry.TaskName = "Incidental"
	return entry
}

func TestNewEntry(t *testing.T) {
	entry := NewEntry(2.5)
	if entry.Duration != 2.5 {
		t.Errorf("duration = %v, want 2.5", entry.Duration)
	}
	if entry.Category != nil || entry.Task != nil {
		t.Error("category and task should start unset")
	}
}

func TestWithCategoryAndTask(t *testing.T) {
	entry := NewEntry(1).WithCategory(3).WithTask("d")
	if entry.Category == nil || *entry.Category != 3 {
		t.Errorf("category = %v, want 3", entry.Category)
	}
	if entry.Task == nil || *entry.Task != "d" {
		t.Errorf("task = %v, want d", entry.Task)
	}
}

func TestTSV(t *testing.T) {
	got := testEntry().TSV()
	want := "2024-06-03\t1.5\tIncidental\tDeep Work\ta comment"
	if got != want {
		t.Errorf("TSV = %q, want %q", got, want)
	}
}

func TestString_ColumnLayout(t *testing.T) {
	got := testEntry().String()
	if !strings.HasPrefix(got, "2024-06-03") {
		t.Errorf("row does not start with the date: %q", got)
	}
	if !strings.HasSuffix(got, "a comment") {
		t.Errorf("row does not end with the comment: %q", got)
	}
	// Duration column starts after the date column.
	if got[ColumnWidths[0]:ColumnWidths[0]+4] != "1.50" {
		t.Errorf("duration column = %q, want 1.50", got[ColumnWidths[0]:ColumnWidths[0]+4])
	}
}

func TestString_LongFieldsShortened(t *testing.T) {
	entry := testEntry()
	entry.TaskName = strings.Repeat("x", 40)
	got := entry.String()
	if !strings.Contains(got, "...") {
		t.Errorf("long task name not shortened: %q", got)
	}
	if strings.Contains(got, entry.TaskName) {
		t.Error("full-length task name leaked into the row")
	}
}
