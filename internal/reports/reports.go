// Package reports computes the weekly timecard, work-mode, and deep-work
// summaries from aggregated storage rows.
package reports

import (
	"math"
	"sort"
	"time"

	"github.com/blairfrandeen/titr/internal/models"
)

// WeekOf returns the Monday and Sunday bounding the week that contains
// date. Weeks start on Monday.
func WeekOf(date time.Time) (start, end time.Time) {
	daysSinceMonday := (int(date.Weekday()) + 6) % 7
	start = date.AddDate(0, 0, -daysSinceMonday)
	return start, start.AddDate(0, 0, 6)
}

// TimecardRow is one task's line on the weekly timecard. Incidental tasks
// show zero adjusted hours; their time is redistributed across the other
// tasks in proportion to each task's share of the non-incidental total.
type TimecardRow struct {
	Name       string
	Hours      float64
	AdjHours   float64
	Percent    float64
	Incidental bool
}

// Timecard is the weekly per-task summary.
type Timecard struct {
	Rows  []TimecardRow
	Total float64
}

// BuildTimecard computes adjusted hours and percentages from the weekly
// task totals. When all logged time is incidental the percentages are
// NaN, mirroring the undefined share of an empty denominator.
func BuildTimecard(totals []models.TaskTotal, incidentalKeys []string) Timecard {
	incidental := make(map[string]bool, len(incidentalKeys))
	for _, key := range incidentalKeys {
		incidental[key] = true
	}

	var card Timecard
	var incidentalHours float64
	for _, total := range totals {
		card.Total += total.Hours
		if incidental[total.Key] {
			incidentalHours += total.Hours
		}
	}

	for _, total := range totals {
		row := TimecardRow{Name: total.Name, Hours: total.Hours, Incidental: incidental[total.Key]}
		if !row.Incidental {
			denominator := card.Total - incidentalHours
			if denominator == 0 {
				row.Percent = math.NaN()
			} else {
				row.Percent = total.Hours / denominator
			}
			row.AdjHours = total.Hours + incidentalHours*row.Percent
		}
		card.Rows = append(card.Rows, row)
	}
	return card
}

// ModeRow is one category's share of the week's hours.
type ModeRow struct {
	Category string
	Hours    float64
	Percent  float64
}

// BuildModes computes each category's share of total hours, grouping
// categories below threshold into an "Other" row. Rows are sorted by
// category name with Other last.
func BuildModes(totals []models.CategoryTotal, threshold float64) []ModeRow {
	var totalHours float64
	for _, total := range totals {
		totalHours += total.Hours
	}
	if totalHours == 0 {
		return nil
	}

	var rows []ModeRow
	var other ModeRow
	for _, total := range totals {
		percent := total.Hours / totalHours
		if percent < threshold {
			other.Hours += total.Hours
			other.Percent += percent
			continue
		}
		rows = append(rows, ModeRow{Category: total.Name, Hours: total.Hours, Percent: percent})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Category < rows[j].Category })
	if other.Hours > 0 {
		other.Category = "Other"
		rows = append(rows, other)
	}
	return rows
}
