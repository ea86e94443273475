package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/blairfrandeen/titr/internal/calendar"
	"github.com/blairfrandeen/titr/internal/config"
	"github.com/blairfrandeen/titr/internal/console"
	"github.com/blairfrandeen/titr/internal/constants"
	"github.com/blairfrandeen/titr/internal/errors"
	"github.com/blairfrandeen/titr/internal/logger"
	"github.com/blairfrandeen/titr/internal/session"
	"github.com/blairfrandeen/titr/internal/storage"
)

var CLI struct {
	Version kong.VersionFlag `help:"Show version and exit."`
	Outlook bool             `short:"o" xor:"mode" help:"Import calendar appointments before starting the console."`
	Start   *string          `xor:"mode" placeholder:"\"<category> <task> <comment>\"" help:"Start timing an activity and exit."`
	End     *string          `xor:"mode" placeholder:"\"<comment>\"" help:"Stop the activity in progress and exit."`
	Testdb  bool             `help:"Use a test database file in the working directory."`
	Debug   bool             `help:"Enable debug logging."`
}

func main() {
	kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("A console-based time tracker."),
		kong.UsageOnError(),
		kong.Vars{"version": constants.Version},
	)

	fmt.Printf("Welcome to titr. Version %s. DB v%d.\n%s\n",
		constants.Version, constants.SchemaVersion, constants.Repo)

	dir, err := config.Dir()
	if err != nil {
		errors.Fatal(err)
	}
	if err := logger.Init(dir, CLI.Debug); err != nil {
		errors.Fatal(err)
	}

	cfgPath, err := config.DefaultPath()
	if err != nil {
		errors.Fatal(err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		errors.Fatal(err)
	}

	dbPath := filepath.Join(dir, "titr.db")
	if CLI.Testdb {
		dbPath = "titr_test.db"
		fmt.Printf("Using test database: %s\n", dbPath)
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		errors.Fatal(err)
	}
	defer store.Close()
	if err := store.PopulateLookups(cfg); err != nil {
		errors.Fatal(err)
	}

	sess := session.New(cfg)
	source := calendar.FileSource{Path: cfg.Calendar.ExportFile}
	c := console.New(sess, store, source, os.Stdin, os.Stdout)

	switch {
	case CLI.Start != nil:
		if err := c.StartTimedActivity(*CLI.Start); err != nil {
			errors.Fatal(err)
		}
		return
	case CLI.End != nil:
		if err := c.EndTimedActivity(*CLI.End); err != nil {
			errors.Fatal(err)
		}
		return
	}

	if CLI.Outlook {
		if err := c.ImportCalendar(); err != nil {
			fmt.Println(errors.Format(err))
		}
	}

	if _, err := c.Run(">> ", []string{"quit"}); err != nil {
		errors.Fatal(err)
	}
}
