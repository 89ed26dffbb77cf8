// Package dataset exposes the reference clinical records shown next to a
// prediction: a preview of the first rows, per-column summary statistics and
// the outcome class balance.
package dataset

import (
	"context"
	"fmt"
	"math"

	"heartrisk/db"
)

// Dataset is a loaded reference dataset backed by a db.Store.
type Dataset struct {
	store   *db.Store
	columns []string
	rows    int
}

// Table is a slice of rows in dataset column order.
type Table struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// ColumnSummary holds count, mean, std, min, quartiles and max of one column.
type ColumnSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"25%"`
	Median float64 `json:"50%"`
	Q75    float64 `json:"75%"`
	Max    float64 `json:"max"`
}

// Balance counts rows per outcome.
type Balance struct {
	Survived int `json:"survived"`
	Died     int `json:"died"`
	Total    int `json:"total"`
}

// Load reads the CSV at path into store, replacing what it held.
func Load(ctx context.Context, path string, store *db.Store) (*Dataset, error) {
	table, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}
	if err := store.ReplaceRecords(ctx, table.rows); err != nil {
		return nil, fmt.Errorf("store %s: %w", path, err)
	}
	return &Dataset{store: store, columns: table.header, rows: len(table.rows)}, nil
}

// Columns returns every column in file order, outcome included.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// FeatureColumns returns the columns other than the outcome, in file order.
func (d *Dataset) FeatureColumns() []string {
	out := make([]string, 0, len(d.columns)-1)
	for _, c := range d.columns {
		if c != db.OutcomeColumn {
			out = append(out, c)
		}
	}
	return out
}

func (d *Dataset) Len() int {
	return d.rows
}

// Head returns the first n rows.
func (d *Dataset) Head(ctx context.Context, n int) (Table, error) {
	if n < 0 {
		n = 0
	}
	rows, err := d.store.QueryHead(ctx, n)
	if err != nil {
		return Table{}, err
	}
	slot := slots()
	out := Table{Columns: d.Columns(), Rows: make([][]float64, len(rows))}
	for i, row := range rows {
		ordered := make([]float64, len(d.columns))
		for j, c := range d.columns {
			ordered[j] = row[slot[c]]
		}
		out.Rows[i] = ordered
	}
	return out, nil
}

// Describe summarises every column. Std is the sample standard deviation and
// quartiles interpolate linearly between the closest ranks.
func (d *Dataset) Describe(ctx context.Context) ([]ColumnSummary, error) {
	summaries := make([]ColumnSummary, 0, len(d.columns))
	for _, column := range d.columns {
		agg, err := d.store.Aggregate(ctx, column)
		if err != nil {
			return nil, err
		}
		values, err := d.store.SortedValues(ctx, column)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, ColumnSummary{
			Column: column,
			Count:  agg.Count,
			Mean:   agg.Mean,
			Std:    sampleStd(values, agg.Mean),
			Min:    agg.Min,
			Q25:    quantile(values, 0.25),
			Median: quantile(values, 0.5),
			Q75:    quantile(values, 0.75),
			Max:    agg.Max,
		})
	}
	return summaries, nil
}

// ClassBalance counts survivors and death events; the two always add up to
// the row count.
func (d *Dataset) ClassBalance(ctx context.Context) (Balance, error) {
	counts, err := d.store.OutcomeCounts(ctx)
	if err != nil {
		return Balance{}, err
	}
	b := Balance{Survived: counts[0], Died: counts[1]}
	b.Total = b.Survived + b.Died
	return b, nil
}

func slots() map[string]int {
	columns := db.StoreColumns()
	m := make(map[string]int, len(columns))
	for i, c := range columns {
		m[c] = i
	}
	return m
}

func sampleStd(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
