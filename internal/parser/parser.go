// Package parser turns one line of raw console input into a time entry.
//
// The grammar is:
//
//	<duration> [<category> <task>] [<comment>...]
//
// where duration is any float token, category is an integer key from the
// configured category table, and task is a key from the configured task
// table (case-insensitive). Arguments after the duration are classified by
// an ordered chain of checks with no backtracking: the first rule that
// matches wins, and anything that matches no rule becomes free-text
// comment rather than an error.
package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/blairfrandeen/titr/internal/config"
	"github.com/blairfrandeen/titr/internal/errors"
	"github.com/blairfrandeen/titr/internal/models"
)

// Parse classifies one line of input. It returns (nil, nil) for a blank
// line, an entry for a well-formed line, and an InputError when the
// duration token is invalid. Parse never touches session state; it only
// reads cfg.
func Parse(line string, cfg *config.Config) (*models.TimeEntry, error) {
	if line == "" {
		return nil, nil
	}

	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil, nil
	}

	duration, err := strconv.ParseFloat(tokens[0], 64)
	if err != nil {
		return nil, errors.Inputf("could not convert %q to a number", tokens[0])
	}
	if math.IsNaN(duration) {
		return nil, errors.Input("Nice try, but I'm nan-plussed.")
	}
	if duration > cfg.MaxDuration {
		return nil, errors.Input("You're working too much.")
	}
	if duration < 0 {
		return nil, errors.Input("You can't unwork.")
	}

	entry := models.NewEntry(duration)
	args := tokens[1:]

	// Rule order matters: a token that parses as a known category key
	// claims its slot even when a later token would have matched a task.
	catKey, isCategory := categoryKey(args, cfg)
	switch {
	case len(args) == 0:
		// Duration only. Category and task default later, at acceptance.

	case isCategory && len(args) >= 2 && cfg.ValidTask(args[1]):
		entry.WithCategory(catKey).WithTask(args[1])
		entry.Comment = strings.Join(args[2:], " ")

	case isCategory:
		entry.WithCategory(catKey)
		entry.Comment = strings.Join(args[1:], " ")

	case !isFloat(args[0]) && cfg.ValidTask(args[0]):
		entry.WithTask(args[0])
		entry.Comment = strings.Join(args[1:], " ")

	default:
		// Unrecognized shapes degrade to "everything is a comment".
		entry.Comment = strings.Join(args, " ")
	}

	entry.Comment = strings.TrimSpace(entry.Comment)
	return entry, nil
}

// EntryPattern reports whether a line should be treated as a time entry:
// its first token parses as a float.
func EntryPattern(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	return isFloat(fields[0])
}

// BlankOrEntryPattern additionally matches the empty line. It replaces
// EntryPattern during the calendar-import workflow, where a blank line
// means "take the suggestion as-is".
func BlankOrEntryPattern(line string) bool {
	return strings.TrimSpace(line) == "" || EntryPattern(line)
}

func categoryKey(args []string, cfg *config.Config) (int, bool) {
	if len(args) == 0 {
		return 0, false
	}
	key, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, false
	}
	return key, cfg.ValidCategory(key)
}

func isFloat(token string) bool {
	_, err := strconv.ParseFloat(token, 64)
	return err == nil
}
