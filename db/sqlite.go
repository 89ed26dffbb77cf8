package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"heartrisk/patient"
)

// OutcomeColumn is the label column of the reference dataset.
const OutcomeColumn = "DEATH_EVENT"

var ErrUnknownColumn = errors.New("unknown column")

// Row holds one dataset row in StoreColumns order.
type Row []float64

// Store keeps the reference dataset in SQLite.
type Store struct {
	database *sql.DB
}

// StoreColumns returns the twelve features followed by the outcome column.
func StoreColumns() []string {
	return append(patient.Columns(), OutcomeColumn)
}

// Open opens (or creates) the store at path. ":memory:" keeps the data in
// the process; the pool is pinned to one connection so every query sees it.
func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		database.SetMaxOpenConns(1)
		database.SetMaxIdleConns(1)
		database.SetConnMaxLifetime(0)
	}

	definitions := make([]string, 0, len(StoreColumns()))
	for _, column := range patient.Columns() {
		definitions = append(definitions, fmt.Sprintf("%s REAL NOT NULL", quote(column)))
	}
	definitions = append(definitions, fmt.Sprintf("%s INTEGER NOT NULL", quote(OutcomeColumn)))

	query := fmt.Sprintf(`
    CREATE TABLE IF NOT EXISTS clinical_records (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        %s
    );
    CREATE INDEX IF NOT EXISTS idx_clinical_records_outcome ON clinical_records (%s);
    `, strings.Join(definitions, ",\n        "), quote(OutcomeColumn))

	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, err
	}
	return &Store{database: database}, nil
}

func (s *Store) Close() error {
	return s.database.Close()
}

// ReplaceRecords clears the table and inserts rows in one transaction.
func (s *Store) ReplaceRecords(ctx context.Context, rows []Row) error {
	columns := StoreColumns()
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = quote(column)
		placeholders[i] = "?"
	}

	tx, err := s.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM clinical_records`); err != nil {
		tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO clinical_records (%s) VALUES (%s)`,
		strings.Join(quoted, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	args := make([]interface{}, len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			tx.Rollback()
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(columns))
		}
		for j, v := range row {
			args[j] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.database.QueryRowContext(ctx, `SELECT COUNT(*) FROM clinical_records`).Scan(&n)
	return n, err
}

// QueryHead returns the first limit rows in insertion order.
func (s *Store) QueryHead(ctx context.Context, limit int) ([]Row, error) {
	columns := StoreColumns()
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = quote(column)
	}
	rows, err := s.database.QueryContext(ctx, fmt.Sprintf(`
        SELECT %s
        FROM clinical_records
        ORDER BY id
        LIMIT ?`, strings.Join(quoted, ", ")), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]Row, 0, limit)
	for rows.Next() {
		row := make(Row, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Aggregate holds the SQL-side summary of one column.
type Aggregate struct {
	Count int
	Mean  float64
	Min   float64
	Max   float64
}

func (s *Store) Aggregate(ctx context.Context, column string) (Aggregate, error) {
	if err := checkColumn(column); err != nil {
		return Aggregate{}, err
	}
	var (
		agg          Aggregate
		mean, lo, hi sql.NullFloat64
	)
	q := quote(column)
	err := s.database.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(%s), AVG(%s), MIN(%s), MAX(%s) FROM clinical_records`, q, q, q, q),
	).Scan(&agg.Count, &mean, &lo, &hi)
	if err != nil {
		return Aggregate{}, err
	}
	if mean.Valid {
		agg.Mean = mean.Float64
	}
	if lo.Valid {
		agg.Min = lo.Float64
	}
	if hi.Valid {
		agg.Max = hi.Float64
	}
	return agg, nil
}

// SortedValues returns every value of column in ascending order.
func (s *Store) SortedValues(ctx context.Context, column string) ([]float64, error) {
	if err := checkColumn(column); err != nil {
		return nil, err
	}
	q := quote(column)
	rows, err := s.database.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM clinical_records ORDER BY %s`, q, q))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]float64, 0)
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// OutcomeCounts returns the number of rows per outcome label.
func (s *Store) OutcomeCounts(ctx context.Context) (map[int]int, error) {
	rows, err := s.database.QueryContext(ctx, fmt.Sprintf(`
        SELECT %s, COUNT(*)
        FROM clinical_records
        GROUP BY %s`, quote(OutcomeColumn), quote(OutcomeColumn)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var label, n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

func checkColumn(column string) error {
	for _, c := range StoreColumns() {
		if c == column {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
}

func quote(column string) string {
	return `"` + column + `"`
}
