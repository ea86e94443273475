package storage

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/blairfrandeen/titr/internal/logger"
	"github.com/blairfrandeen/titr/internal/models"
)

// csvDateFormat is the M/D/YYYY date layout used by spreadsheet exports.
const csvDateFormat = "1/2/2006"

// ImportResult holds a staged CSV import. Nothing is visible to other
// readers until Commit is called; Rollback discards the staged rows.
type ImportResult struct {
	Rows  int
	Hours float64

	tx *sql.Tx
}

func (r *ImportResult) Commit() error   { return r.tx.Commit() }
func (r *ImportResult) Rollback() error { return r.tx.Rollback() }

// ImportCSV stages time entries from a CSV file. Rows are expected as
// date, duration, task name, category name, comment; the first headerRows
// rows are skipped. Rows with an unparseable date or duration are skipped
// with a warning. The staged rows are committed or discarded through the
// returned ImportResult.
func (s *Store) ImportCSV(path string, headerRows int) (*ImportResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sessionID, err := s.SessionMetadata("import_from_csv")
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	result := &ImportResult{tx: tx}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rowNum++
		if rowNum <= headerRows {
			continue
		}
		if len(row) < 5 {
			logger.Warn("Skipped CSV row: too few columns", "row", rowNum, "columns", len(row))
			continue
		}

		date, err := time.ParseInLocation(csvDateFormat, row[0], time.Local)
		if err != nil {
			logger.Warn("Skipped CSV row: invalid date", "row", rowNum, "date", row[0])
			continue
		}
		duration, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			logger.Warn("Skipped CSV row: invalid duration", "row", rowNum, "duration", row[1])
			continue
		}

		taskID, err := upsertLookup(tx, "tasks", row[2], nil)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		categoryID, err := upsertLookup(tx, "categories", row[3], nil)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		_, err = tx.Exec(`INSERT INTO time_log
			(date, duration, category_id, task_id, comment, session_id)
			VALUES (?, ?, ?, ?, ?, ?)`,
			date.Format(models.DateFormat), duration, categoryID, taskID, row[4], sessionID)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to stage CSV row: %w", err)
		}
		result.Rows++
		result.Hours += duration
	}

	return result, nil
}

// ExportCSV writes every committed time entry to w as CSV with a header
// row. Returns the number of data rows written.
func (s *Store) ExportCSV(w io.Writer) (int, error) {
	rows, err := s.db.Query(`SELECT l.date, l.duration, t.name, c.name, l.comment
		FROM time_log l
		JOIN categories c ON c.id = l.category_id
		JOIN tasks t ON t.id = l.task_id
		ORDER BY l.id`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Date", "Duration", "Task", "Category", "Comment"}); err != nil {
		return 0, err
	}

	count := 0
	for rows.Next() {
		var (
			date, task, category string
			duration             float64
			comment              sql.NullString
		)
		if err := rows.Scan(&date, &duration, &task, &category, &comment); err != nil {
			return count, err
		}
		record := []string{
			date,
			strconv.FormatFloat(duration, 'f', -1, 64),
			task,
			category,
			comment.String,
		}
		if err := writer.Write(record); err != nil {
			return count, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, err
	}
	writer.Flush()
	return count, writer.Error()
}
