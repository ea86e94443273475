// Package session owns the in-memory state of one interactive run: the
// pending time entries and the date cursor.
package session

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/blairfrandeen/titr/internal/calendar"
	"github.com/blairfrandeen/titr/internal/config"
	"github.com/blairfrandeen/titr/internal/errors"
	"github.com/blairfrandeen/titr/internal/models"
)

// Session holds the pending entries of one interactive run. Entries are
// kept in insertion order, which is also display and undo order. The date
// cursor starts at today and never moves past it.
type Session struct {
	Config  *config.Config
	Pending []*models.TimeEntry

	date time.Time
}

// New returns a session with an empty pending list and the cursor on
// today. Today is computed here and again on every reset, never cached
// for the life of the process.
func New(cfg *config.Config) *Session {
	return &Session{
		Config: cfg,
		date:   today(),
	}
}

// Date returns the current date cursor.
func (s *Session) Date() time.Time { return s.date }

// AddEntry accepts a parsed entry into the pending list, blending with
// the calendar import context when one is active.
//
// With an active context, a nil parse is synthesized entirely from the
// context, and a partial parse has only its missing fields filled in:
// duration, then category, then comment. Fields present in the parse are
// never overwritten. A resulting duration of zero means "skip": nothing
// is appended and nil is returned.
//
// Accepted entries get the session defaults for unset category and task,
// the cursor date when no date is set, and their resolved display names.
func (s *Session) AddEntry(parsed *models.TimeEntry, ictx *calendar.ImportContext) *models.TimeEntry {
	if ictx != nil {
		if parsed == nil {
			parsed = models.NewEntry(ictx.Duration)
		}
		if parsed.Category == nil {
			category := ictx.Category
			parsed.Category = &category
		}
		if parsed.Comment == "" {
			parsed.Comment = ictx.Comment
		}
	}
	if parsed == nil || parsed.Duration == 0 {
		return nil
	}

	if parsed.Category == nil {
		category := s.Config.DefaultCategory
		parsed.Category = &category
	}
	if parsed.Task == nil {
		task := s.Config.DefaultTask
		parsed.Task = &task
	}
	return s.accept(parsed)
}

// AddRaw appends an entry without applying the session's default category
// and task, used by the timed-activity workflow where unset fields must
// stay unset until the timer is stopped. Date stamping and display-name
// resolution still apply.
func (s *Session) AddRaw(entry *models.TimeEntry) *models.TimeEntry {
	return s.accept(entry)
}

func (s *Session) accept(entry *models.TimeEntry) *models.TimeEntry {
	if entry.Date.IsZero() {
		entry.Date = s.date
	}
	if entry.Category != nil && *entry.Category != 0 {
		entry.CategoryName = s.Config.Categories[*entry.Category]
	}
	if entry.Task != nil && *entry.Task != "" {
		entry.TaskName = s.Config.Tasks[strings.ToLower(*entry.Task)]
	}
	s.Pending = append(s.Pending, entry)
	return entry
}

// Clear empties the pending list. No confirmation is asked.
func (s *Session) Clear() {
	s.Pending = nil
}

// UndoLast removes the most recent pending entry. A no-op when the list
// is empty.
func (s *Session) UndoLast() {
	if len(s.Pending) == 0 {
		return
	}
	s.Pending = s.Pending[:len(s.Pending)-1]
}

// Scale rescales every pending entry so the durations sum to the target
// total while preserving their relative proportions: each entry absorbs
// a share of the adjustment proportional to its share of the current
// total. It returns whether any entry changed. Scaling to the current
// total is an exact no-op, and an empty or all-zero pending list cannot
// be scaled (reported by the false return, not an error).
func (s *Session) Scale(target string) (bool, error) {
	targetTotal, err := strconv.ParseFloat(target, 64)
	if err != nil {
		return false, errors.Inputf("cannot convert %q to a number", target)
	}
	if targetTotal == 0 {
		return false, errors.Input("cannot scale to zero")
	}

	var unscaledTotal float64
	for _, entry := range s.Pending {
		unscaledTotal += entry.Duration
	}
	delta := targetTotal - unscaledTotal
	if delta == 0 {
		return false, nil
	}
	if unscaledTotal == 0 {
		return false, nil
	}

	for _, entry := range s.Pending {
		entry.Duration = entry.Duration + delta*entry.Duration/unscaledTotal
	}
	return true, nil
}

// SetDate moves the date cursor. An empty token resets it to today; an
// integer token n <= 0 moves it n days back from today; a YYYY-MM-DD
// token sets it to that date. The cursor can never be in the future.
func (s *Session) SetDate(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		s.date = today()
		return nil
	}

	if offset, err := strconv.Atoi(token); err == nil {
		if offset > 0 {
			return errors.Input("date cannot be in the future")
		}
		s.date = today().AddDate(0, 0, offset)
		return nil
	}

	date, err := time.ParseInLocation(models.DateFormat, token, time.Local)
	if err != nil {
		return errors.Inputf("invalid date: %q", token)
	}
	if date.After(today()) {
		return errors.Input("date cannot be in the future")
	}
	s.date = date
	return nil
}

// TotalDuration returns the sum of pending durations, rounded to two
// decimal places for display.
func (s *Session) TotalDuration() float64 {
	var total float64
	for _, entry := range s.Pending {
		total += entry.Duration
	}
	return math.Round(total*100) / 100
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
}
