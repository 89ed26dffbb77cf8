package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"heartrisk/db"
)

var (
	ErrMissingColumn    = errors.New("missing column")
	ErrUnexpectedColumn = errors.New("unexpected column")
)

// csvTable is a parsed reference CSV. Rows are in db.StoreColumns order;
// header keeps the file's own column order.
type csvTable struct {
	header []string
	rows   []db.Row
}

func readCSVFile(path string) (*csvTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	table, err := readCSV(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return table, nil
}

func readCSV(r io.Reader) (*csvTable, error) {
	bufReader := bufio.NewReaderSize(r, 64*1024)

	// Skip UTF-8 BOM if present
	if bom, err := bufReader.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("empty file")
		}
		return nil, err
	}

	storeColumns := db.StoreColumns()
	position := make(map[string]int, len(storeColumns))
	for i, name := range storeColumns {
		position[name] = i
	}

	// colIdx maps each file column to its slot in a db.Row.
	colIdx := make([]int, len(header))
	seen := make(map[string]bool, len(header))
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		header[i] = name
		slot, ok := position[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnexpectedColumn, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
		colIdx[i] = slot
	}
	for _, name := range storeColumns {
		if !seen[name] {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	table := &csvTable{header: header}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		row := make(db.Row, len(storeColumns))
		for i, raw := range record {
			value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, header[i], err)
			}
			row[colIdx[i]] = value
		}
		outcome := row[position[db.OutcomeColumn]]
		if outcome != 0 && outcome != 1 {
			return nil, fmt.Errorf("line %d: %s must be 0 or 1, got %v", line, db.OutcomeColumn, outcome)
		}
		table.rows = append(table.rows, row)
	}
	return table, nil
}
