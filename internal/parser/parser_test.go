package parser

import (
	"testing"

	"github.com/blairfrandeen/titr/internal/config"
	"github.com/blairfrandeen/titr/internal/errors"
)

func testConfig() *config.Config {
	return &config.Config{
		MaxDuration:     9,
		DefaultCategory: 2,
		DefaultTask:     "d",
		Categories:      map[int]string{2: "Deep Work", 3: "Email", 4: "Meetings"},
		Tasks:           map[string]string{"i": "Incidental", "d": "Default Task"},
	}
}

func TestParse_Classification(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		line     string
		duration float64
		category int // 0 means unset
		task     string
		comment  string
	}{
		{line: "3", duration: 3},
		{line: "1 2 i", duration: 1, category: 2, task: "i"},
		{line: "7 2 i test string", duration: 7, category: 2, task: "i", comment: "test string"},
		{line: `.87 i a really "fun" meeting?`, duration: 0.87, task: "i", comment: `a really "fun" meeting?`},
		{line: ".5 2 doing it right", duration: 0.5, category: 2, comment: "doing it right"},
		{line: "1 onewordcomment", duration: 1, comment: "onewordcomment"},
		{line: "1 2", duration: 1, category: 2},
		{line: "1 i", duration: 1, task: "i"},
		{line: "1 I", duration: 1, task: "I"},
		{line: "0 2 i no entry", duration: 0, category: 2, task: "i", comment: "no entry"},
		{line: "0", duration: 0},
		// An unknown first argument folds everything into the comment,
		// even tokens that would have matched a task key later.
		{line: "1 5 i not a category", duration: 1, comment: "5 i not a category"},
		{line: "1 x 2 tokens out of order", duration: 1, comment: "x 2 tokens out of order"},
		// "2.0" is a float but not an integer key, so it degrades to comment.
		{line: "1 2.0 i", duration: 1, comment: "2.0 i"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			entry, err := Parse(tt.line, cfg)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.line, err)
			}
			if entry == nil {
				t.Fatalf("Parse(%q) returned nil entry", tt.line)
			}
			if entry.Duration != tt.duration {
				t.Errorf("duration = %v, want %v", entry.Duration, tt.duration)
			}
			if tt.category == 0 && entry.Category != nil {
				t.Errorf("category = %d, want unset", *entry.Category)
			}
			if tt.category != 0 && (entry.Category == nil || *entry.Category != tt.category) {
				t.Errorf("category = %v, want %d", entry.Category, tt.category)
			}
			if tt.task == "" && entry.Task != nil {
				t.Errorf("task = %q, want unset", *entry.Task)
			}
			if tt.task != "" && (entry.Task == nil || *entry.Task != tt.task) {
				t.Errorf("task = %v, want %q", entry.Task, tt.task)
			}
			if entry.Comment != tt.comment {
				t.Errorf("comment = %q, want %q", entry.Comment, tt.comment)
			}
		})
	}
}

func TestParse_BlankLine(t *testing.T) {
	entry, err := Parse("", testConfig())
	if err != nil {
		t.Fatalf("Parse(\"\") returned error: %v", err)
	}
	if entry != nil {
		t.Errorf("Parse(\"\") = %v, want nil", entry)
	}
}

func TestParse_InvalidDurations(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		line string
		want string
	}{
		{"99 3 i working too much", "You're working too much."},
		{"-1 2 i", "You can't unwork."},
		{"nan lol", "Nice try, but I'm nan-plussed."},
		{"hi there!", `could not convert "hi" to a number`},
		{"e9 34 q wtf", `could not convert "e9" to a number`},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			entry, err := Parse(tt.line, cfg)
			if entry != nil {
				t.Errorf("Parse(%q) returned an entry, want nil", tt.line)
			}
			if err == nil {
				t.Fatalf("Parse(%q) returned no error, want %q", tt.line, tt.want)
			}
			if !errors.IsInput(err) {
				t.Errorf("Parse(%q) error is not an input error: %v", tt.line, err)
			}
			if err.Error() != tt.want {
				t.Errorf("error = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestEntryPattern(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"1 2 i comment", true},
		{".5", true},
		{"-1", true},
		{"q", false},
		{"scale 5", false},
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		if got := EntryPattern(tt.line); got != tt.want {
			t.Errorf("EntryPattern(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestBlankOrEntryPattern(t *testing.T) {
	if !BlankOrEntryPattern("") {
		t.Error("BlankOrEntryPattern(\"\") = false, want true")
	}
	if !BlankOrEntryPattern("1 2 i") {
		t.Error("BlankOrEntryPattern(\"1 2 i\") = false, want true")
	}
	if BlankOrEntryPattern("q") {
		t.Error("BlankOrEntryPattern(\"q\") = true, want false")
	}
}
