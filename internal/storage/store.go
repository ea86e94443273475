// Package storage persists committed time entries in a local SQLite
// database.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/blairfrandeen/titr/internal/config"
	"github.com/blairfrandeen/titr/internal/constants"
	"github.com/blairfrandeen/titr/internal/logger"
	"github.com/blairfrandeen/titr/internal/models"
)

const timestampFormat = time.RFC3339Nano

type Store struct {
	path string
	db   *sql.DB
}

// Open opens (creating if necessary) the database at path, creates any
// missing tables, and migrates older schema versions.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{path: path, db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) initialize() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS time_log(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date DATE,
			duration FLOAT,
			category_id INT,
			task_id INT,
			session_id INT,
			comment TEXT,
			start_ts TIMESTAMP,
			end_ts TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS categories(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_key TEXT,
			name TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS tasks(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_key TEXT,
			name TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS sessions(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			titr_version TEXT,
			user TEXT,
			platform TEXT,
			ts TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			input_type TEXT
		)`,
	}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	var userVersion int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&userVersion); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if userVersion != constants.SchemaVersion {
		if err := s.migrate(userVersion); err != nil {
			return err
		}
	}
	return nil
}

// migrate upgrades an older database in place and stamps the current
// schema version.
func (s *Store) migrate(from int) error {
	logger.Info("Migrating database", "from", from, "to", constants.SchemaVersion)

	if from < 1 {
		cols, err := s.columnNames("tasks")
		if err != nil {
			return err
		}
		if !contains(cols, "user_key") {
			if _, err := s.db.Exec("ALTER TABLE tasks RENAME COLUMN key TO user_key"); err != nil {
				return fmt.Errorf("failed to rename tasks.key: %w", err)
			}
		}
		cols, err = s.columnNames("categories")
		if err != nil {
			return err
		}
		if !contains(cols, "user_key") {
			if _, err := s.db.Exec("ALTER TABLE categories ADD COLUMN user_key TEXT"); err != nil {
				return fmt.Errorf("failed to add categories.user_key: %w", err)
			}
		}
		cols, err = s.columnNames("sessions")
		if err != nil {
			return err
		}
		if !contains(cols, "input_type") {
			if _, err := s.db.Exec("ALTER TABLE sessions ADD COLUMN input_type TEXT"); err != nil {
				return fmt.Errorf("failed to add sessions.input_type: %w", err)
			}
		}
	}

	if from < 2 {
		cols, err := s.columnNames("time_log")
		if err != nil {
			return err
		}
		if !contains(cols, "start_ts") {
			if _, err := s.db.Exec("ALTER TABLE time_log ADD COLUMN start_ts TEXT"); err != nil {
				return fmt.Errorf("failed to add time_log.start_ts: %w", err)
			}
		}
		if !contains(cols, "end_ts") {
			if _, err := s.db.Exec("ALTER TABLE time_log ADD COLUMN end_ts TEXT"); err != nil {
				return fmt.Errorf("failed to add time_log.end_ts: %w", err)
			}
		}
	}

	_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version=%d", constants.SchemaVersion))
	return err
}

func (s *Store) columnNames(table string) ([]string, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

// PopulateLookups syncs the category and task tables with the configured
// lists. Names already present keep their row id; user keys are enforced
// unique by clearing the key from any other row that holds it.
func (s *Store) PopulateLookups(cfg *config.Config) error {
	for key, name := range cfg.Categories {
		userKey := strconv.Itoa(key)
		if _, err := upsertLookup(s.db, "categories", name, &userKey); err != nil {
			return err
		}
	}
	for key, name := range cfg.Tasks {
		userKey := key
		if _, err := upsertLookup(s.db, "tasks", name, &userKey); err != nil {
			return err
		}
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// upsertLookup writes one row of a lookup table (categories or tasks),
// updating the existing row when the name is already known. Returns the
// row id.
func upsertLookup(q querier, table, name string, userKey *string) (int64, error) {
	var id int64
	err := q.QueryRow(
		fmt.Sprintf("SELECT id FROM %s WHERE name = ?", table), name).Scan(&id)
	if err == sql.ErrNoRows {
		var maxID sql.NullInt64
		if err := q.QueryRow(
			fmt.Sprintf("SELECT MAX(id) FROM %s", table)).Scan(&maxID); err != nil {
			return 0, err
		}
		id = 1
		if maxID.Valid {
			id = maxID.Int64 + 1
		}
	} else if err != nil {
		return 0, err
	}

	if userKey != nil {
		if _, err := q.Exec(
			fmt.Sprintf("REPLACE INTO %s (id, user_key, name) VALUES (?, ?, ?)", table),
			id, *userKey, name); err != nil {
			return 0, err
		}
		if _, err := q.Exec(
			fmt.Sprintf("UPDATE %s SET user_key = NULL WHERE id != ? AND user_key = ?", table),
			id, *userKey); err != nil {
			return 0, err
		}
	} else {
		if _, err := q.Exec(
			fmt.Sprintf("INSERT OR REPLACE INTO %s (id, name) VALUES (?, ?)", table),
			id, name); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// SessionMetadata records a new row in the sessions table and returns its
// id. Every commit batch is tagged with a session id.
func (s *Store) SessionMetadata(inputType string) (int64, error) {
	username := ""
	if u, err := user.Current(); err == nil {
		username = u.Username
	} else if host, err := os.Hostname(); err == nil {
		username = host
	}

	result, err := s.db.Exec(
		"INSERT INTO sessions (titr_version, user, platform, input_type) VALUES (?, ?, ?, ?)",
		constants.Version, username, platform(), inputType)
	if err != nil {
		return 0, fmt.Errorf("failed to record session: %w", err)
	}
	return result.LastInsertId()
}

// WriteEntries commits pending entries under the given session id.
// Entries carrying a persisted id update their existing row; all others
// insert.
func (s *Store) WriteEntries(entries []*models.TimeEntry, sessionID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, entry := range entries {
		categoryID, err := lookupID(tx, "categories", categoryUserKey(entry))
		if err != nil {
			return err
		}
		taskID, err := lookupID(tx, "tasks", taskUserKey(entry))
		if err != nil {
			return err
		}

		params := []interface{}{
			entry.Date.Format(models.DateFormat),
			entry.Duration,
			categoryID,
			taskID,
			entry.Comment,
			sessionID,
			formatTS(entry.StartTS),
			formatTS(entry.EndTS),
		}
		if entry.PersistedID != nil {
			params = append(params, *entry.PersistedID)
			_, err = tx.Exec(`UPDATE time_log
				SET (date, duration, category_id, task_id, comment, session_id, start_ts, end_ts) =
				    (?, ?, ?, ?, ?, ?, ?, ?)
				WHERE id = ?`, params...)
		} else {
			_, err = tx.Exec(`INSERT INTO time_log
				(date, duration, category_id, task_id, comment, session_id, start_ts, end_ts)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, params...)
		}
		if err != nil {
			return fmt.Errorf("failed to write time log entry: %w", err)
		}
	}
	return tx.Commit()
}

// OpenTimer is a started-but-not-stopped timed activity: a zero-duration
// row with a start timestamp and no end.
type OpenTimer struct {
	ID          int64
	StartTS     time.Time
	Comment     string
	TaskKey     string
	CategoryKey string
}

// FindOpenTimer returns the most recent open timed activity, or nil when
// none is in progress.
func (s *Store) FindOpenTimer() (*OpenTimer, error) {
	var (
		timer   OpenTimer
		startTS string
		comment sql.NullString
	)
	err := s.db.QueryRow(`SELECT l.id, l.start_ts, l.comment FROM time_log l
		JOIN sessions s ON s.id = l.session_id
		WHERE l.duration = 0
		AND l.end_ts IS NULL
		AND s.input_type = 'command'
		ORDER BY l.id DESC LIMIT 1`).Scan(&timer.ID, &startTS, &comment)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	timer.Comment = comment.String
	timer.StartTS, err = time.Parse(timestampFormat, startTS)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start timestamp %q: %w", startTS, err)
	}

	var key sql.NullString
	err = s.db.QueryRow(`SELECT t.user_key FROM time_log l
		JOIN tasks t ON t.id = l.task_id
		WHERE l.id = ?`, timer.ID).Scan(&key)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	timer.TaskKey = key.String

	key = sql.NullString{}
	err = s.db.QueryRow(`SELECT c.user_key FROM time_log l
		JOIN categories c ON c.id = l.category_id
		WHERE l.id = ?`, timer.ID).Scan(&key)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	timer.CategoryKey = key.String

	return &timer, nil
}

// DeleteEntry removes a time log row by id.
func (s *Store) DeleteEntry(id int64) error {
	_, err := s.db.Exec("DELETE FROM time_log WHERE id = ?", id)
	return err
}

// TaskTotals returns total hours grouped by task for dates in
// [start, end], both inclusive.
func (s *Store) TaskTotals(start, end time.Time) ([]models.TaskTotal, error) {
	rows, err := s.db.Query(`SELECT t.name, sum(l.duration), t.user_key
		FROM time_log l
		JOIN tasks t ON t.id = l.task_id
		WHERE l.date >= ? AND l.date <= ?
		GROUP BY l.task_id`,
		start.Format(models.DateFormat), end.Format(models.DateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []models.TaskTotal
	for rows.Next() {
		var (
			total models.TaskTotal
			key   sql.NullString
		)
		if err := rows.Scan(&total.Name, &total.Hours, &key); err != nil {
			return nil, err
		}
		total.Key = key.String
		totals = append(totals, total)
	}
	return totals, rows.Err()
}

// CategoryTotals returns total hours grouped by category for dates in
// [start, end), end exclusive.
func (s *Store) CategoryTotals(start, end time.Time) ([]models.CategoryTotal, error) {
	rows, err := s.db.Query(`SELECT c.name, sum(l.duration)
		FROM time_log l
		JOIN categories c ON c.id = l.category_id
		WHERE l.date >= ? AND l.date < ?
		GROUP BY c.name
		ORDER BY c.name`,
		start.Format(models.DateFormat), end.Format(models.DateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []models.CategoryTotal
	for rows.Next() {
		var total models.CategoryTotal
		if err := rows.Scan(&total.Name, &total.Hours); err != nil {
			return nil, err
		}
		totals = append(totals, total)
	}
	return totals, rows.Err()
}

// DeepWorkHours returns total hours logged against the Deep Work
// category, all-time and over the trailing 365 days.
func (s *Store) DeepWorkHours() (total, last365 float64, err error) {
	const query = `SELECT sum(duration) FROM time_log l
		JOIN categories c ON l.category_id = c.id
		WHERE c.name = 'Deep Work'`

	var sum sql.NullFloat64
	if err = s.db.QueryRow(query).Scan(&sum); err != nil {
		return 0, 0, err
	}
	if !sum.Valid {
		return 0, 0, nil
	}
	total = sum.Float64

	yearAgo := time.Now().AddDate(0, 0, -365).Format(models.DateFormat)
	sum = sql.NullFloat64{}
	if err = s.db.QueryRow(query+" AND date >= ?", yearAgo).Scan(&sum); err != nil {
		return 0, 0, err
	}
	return total, sum.Float64, nil
}

func lookupID(tx *sql.Tx, table string, userKey *string) (sql.NullInt64, error) {
	var id sql.NullInt64
	if userKey == nil {
		return id, nil
	}
	err := tx.QueryRow(
		fmt.Sprintf("SELECT id FROM %s WHERE user_key = ?", table), *userKey).Scan(&id)
	if err == sql.ErrNoRows {
		return sql.NullInt64{}, nil
	}
	if err != nil {
		return id, err
	}
	return id, nil
}

func categoryUserKey(entry *models.TimeEntry) *string {
	if entry.Category == nil {
		return nil
	}
	key := strconv.Itoa(*entry.Category)
	return &key
}

func taskUserKey(entry *models.TimeEntry) *string {
	if entry.Task == nil {
		return nil
	}
	key := strings.ToLower(*entry.Task)
	return &key
}

func formatTS(ts *time.Time) interface{} {
	if ts == nil {
		return nil
	}
	return ts.Format(timestampFormat)
}

func platform() string {
	return runtime.GOOS
}
