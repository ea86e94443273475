package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"

	"github.com/blairfrandeen/titr/internal/logger"
)

const fileName = "titr.toml"

// Calendar holds the options for the calendar-import workflow.
type Calendar struct {
	ExportFile      string   `toml:"export_file"`
	CalendarName    string   `toml:"calendar_name"`
	SkipEventNames  []string `toml:"skip_event_names"`
	SkipEventStatus []int    `toml:"skip_event_status"`
	SkipAllDay      bool     `toml:"skip_all_day_events"`
}

// Config is the validated view of the configuration file consumed by the
// parser and the console session. It is immutable for the life of a session.
type Config struct {
	MaxDuration     float64
	DefaultCategory int
	DefaultTask     string
	DeepWorkGoal    float64
	Categories      map[int]string
	Tasks           map[string]string
	IncidentalTasks []string
	Calendar        Calendar
	SourceFile      string
}

// fileConfig mirrors the on-disk TOML layout. Category keys arrive as
// strings and are validated into ints by Load.
type fileConfig struct {
	General struct {
		MaxDuration     float64 `toml:"max_duration"`
		DefaultCategory int     `toml:"default_category"`
		DefaultTask     string  `toml:"default_task"`
		DeepWorkGoal    float64 `toml:"deep_work_goal"`
	} `toml:"general"`
	Categories map[string]string `toml:"categories"`
	Tasks      map[string]string `toml:"tasks"`
	Incidental struct {
		Keys []string `toml:"keys"`
	} `toml:"incidental"`
	Calendar Calendar `toml:"calendar"`
}

// Dir returns the titr configuration directory (~/.titr), creating it if
// necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	dir := filepath.Join(home, ".titr")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Load reads and validates the configuration file at path, writing a
// default file first if none exists. Unusable category or task keys are
// skipped with a warning; a default category or task that is missing from
// its table is repaired to the lowest key in the table.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := WriteDefault(path); err != nil {
			return nil, err
		}
		logger.Info("Created default config file", "path", path)
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg := &Config{
		MaxDuration:     fc.General.MaxDuration,
		DefaultCategory: fc.General.DefaultCategory,
		DefaultTask:     fc.General.DefaultTask,
		DeepWorkGoal:    fc.General.DeepWorkGoal,
		Categories:      make(map[int]string),
		Tasks:           make(map[string]string),
		IncidentalTasks: fc.Incidental.Keys,
		Calendar:        fc.Calendar,
		SourceFile:      path,
	}

	for key, name := range fc.Categories {
		catKey, err := strconv.Atoi(key)
		if err != nil {
			logger.Warn("Skipped category key: not an integer", "key", key, "file", path)
			continue
		}
		cfg.Categories[catKey] = name
	}
	for key, name := range fc.Tasks {
		if len([]rune(key)) != 1 {
			logger.Warn("Skipped task key: must be a single character", "key", key, "file", path)
			continue
		}
		if unicode.IsDigit([]rune(key)[0]) {
			logger.Warn("Skipped task key: digits not allowed", "key", key, "file", path)
			continue
		}
		cfg.Tasks[strings.ToLower(key)] = name
	}

	if len(cfg.Categories) == 0 || len(cfg.Tasks) == 0 {
		return nil, fmt.Errorf("config file %s has no usable categories or tasks", path)
	}

	if _, ok := cfg.Categories[cfg.DefaultCategory]; !ok {
		repaired := sortedCategoryKeys(cfg.Categories)[0]
		logger.Warn("Default category not found, using lowest key",
			"default", cfg.DefaultCategory, "using", repaired, "file", path)
		cfg.DefaultCategory = repaired
	}
	if _, ok := cfg.Tasks[strings.ToLower(cfg.DefaultTask)]; !ok {
		repaired := sortedTaskKeys(cfg.Tasks)[0]
		logger.Warn("Default task not found, using lowest key",
			"default", cfg.DefaultTask, "using", repaired, "file", path)
		cfg.DefaultTask = repaired
	}
	cfg.DefaultTask = strings.ToLower(cfg.DefaultTask)

	return cfg, nil
}

// ValidCategory reports whether key names a configured category.
func (c *Config) ValidCategory(key int) bool {
	_, ok := c.Categories[key]
	return ok
}

// ValidTask reports whether key (case-folded) names a configured task.
func (c *Config) ValidTask(key string) bool {
	_, ok := c.Tasks[strings.ToLower(key)]
	return ok
}

// DefaultPath returns the default config file location under Dir.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// WriteDefault writes a starter configuration file. It refuses to clobber
// an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfig), 0600)
}

const defaultConfig = `[general]
max_duration = 9.0
default_category = 2
default_task = "d"
deep_work_goal = 300.0

[categories]
2 = "Deep Work"
3 = "Email"
4 = "Meetings"

[tasks]
i = "Incidental"
d = "Default Task"

[incidental]
keys = ["i"]

[calendar]
export_file = ""
calendar_name = "Calendar"
skip_event_names = []
# busy status codes: 0 = free, 1 = tentative, 2 = busy,
# 3 = out of office, 4 = working elsewhere
skip_event_status = [0, 3]
skip_all_day_events = true
`

func sortedCategoryKeys(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedTaskKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
