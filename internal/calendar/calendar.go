// Package calendar supplies appointment data for the import workflow.
// The original data source is a desktop calendar application; here the
// collaborator is a Source, and the shipped implementation reads a JSON
// export file.
package calendar

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/blairfrandeen/titr/internal/config"
)

// Appointment is one calendar event as found in an export file.
type Appointment struct {
	Subject    string    `json:"subject"`
	Start      time.Time `json:"start"`
	Minutes    float64   `json:"duration_minutes"`
	Categories string    `json:"categories"`
	BusyStatus int       `json:"busy_status"`
	AllDay     bool      `json:"all_day"`
}

// ImportContext is the blending tuple active while iterating calendar
// suggestions: it fills the gaps of a partial or absent manual entry.
type ImportContext struct {
	Duration float64
	Category int
	Comment  string
}

// Source yields the appointments for a given day.
type Source interface {
	Events(date time.Time) ([]Appointment, error)
}

// FileSource reads appointments from a JSON export file containing an
// array of Appointment objects.
type FileSource struct {
	Path string
}

func (s FileSource) Events(date time.Time) ([]Appointment, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("no calendar export file configured")
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar export: %w", err)
	}
	var all []Appointment
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse calendar export %s: %w", s.Path, err)
	}

	var events []Appointment
	for _, a := range all {
		if sameDate(a.Start.Local(), date) {
			events = append(events, a)
		}
	}
	return events, nil
}

// Skip reports whether an appointment is excluded by the configured skip
// rules: all-day events, skip-listed subjects, and skip-listed busy
// status codes.
func Skip(a Appointment, cal config.Calendar) bool {
	if a.AllDay && cal.SkipAllDay {
		return true
	}
	for _, name := range cal.SkipEventNames {
		if a.Subject == name {
			return true
		}
	}
	for _, status := range cal.SkipEventStatus {
		if a.BusyStatus == status {
			return true
		}
	}
	return false
}

// Context builds the blending tuple for an appointment: duration in
// hours, the category key whose name matches the appointment's first
// category label (the default category when none matches), and the
// subject as the comment.
func Context(a Appointment, cfg *config.Config) ImportContext {
	label := strings.TrimSpace(strings.SplitN(a.Categories, ",", 2)[0])
	category := cfg.DefaultCategory
	for key, name := range cfg.Categories {
		if name == label {
			category = key
			break
		}
	}
	return ImportContext{
		Duration: a.Minutes / 60,
		Category: category,
		Comment:  a.Subject,
	}
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
