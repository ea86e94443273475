package console

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/blairfrandeen/titr/internal/parser"
)

// StartTimedActivity records a zero-duration entry with a start timestamp
// and commits it immediately. The arguments use the normal entry grammar
// minus the leading duration.
func (c *Console) StartTimedActivity(argstr string) error {
	entry, err := parser.Parse(strings.TrimSpace("0 "+argstr), c.Session.Config)
	if err != nil {
		return err
	}
	now := time.Now()
	entry.StartTS = &now
	c.Session.AddRaw(entry)

	fmt.Fprintf(c.out, "Starting activity timer at %s\n", now.Format("01/02/06 15:04:05"))
	fmt.Fprintf(c.out, "Task: %s. Category: %s. Comment: %s\n",
		entry.TaskName, entry.CategoryName, entry.Comment)
	return c.writeDB("command")
}

// EndTimedActivity closes the most recent open timed activity: the
// duration becomes the wall-clock time elapsed since start, comments are
// merged, and task and category prefer the closing arguments over the
// values recorded at start.
func (c *Console) EndTimedActivity(argstr string) error {
	timer, err := c.Store.FindOpenTimer()
	if err != nil {
		return err
	}
	if timer == nil {
		fmt.Fprintln(c.out, "No tasks in progress. Use titr --start to start one.")
		return nil
	}

	entry, err := parser.Parse(strings.TrimSpace("0 "+argstr), c.Session.Config)
	if err != nil {
		return err
	}
	now := time.Now()
	entry.PersistedID = &timer.ID
	entry.Date = now
	entry.StartTS = &timer.StartTS
	entry.EndTS = &now
	entry.Duration = now.Sub(timer.StartTS).Hours()
	entry.Comment = strings.TrimSpace(timer.Comment + " " + entry.Comment)
	if entry.Category == nil {
		key := c.Session.Config.DefaultCategory
		if n, err := strconv.Atoi(timer.CategoryKey); err == nil {
			key = n
		}
		entry.Category = &key
	}
	if entry.Task == nil {
		task := timer.TaskKey
		if task == "" {
			task = c.Session.Config.DefaultTask
		}
		entry.Task = &task
	}
	c.Session.AddRaw(entry)

	fmt.Fprintln(c.out, "The following entry will be added to the database:")
	fmt.Fprintln(c.out, entry)

	choice := "commit"
	if err := huh.NewSelect[string]().
		Title("Commit this entry?").
		Options(
			huh.NewOption("Commit", "commit"),
			huh.NewOption("Delete the timed entry", "delete"),
			huh.NewOption("Exit without changes", "cancel"),
		).
		Value(&choice).
		Run(); err != nil {
		return err
	}
	switch choice {
	case "commit":
		return c.writeDB("command")
	case "delete":
		return c.Store.DeleteEntry(timer.ID)
	}
	return nil
}
