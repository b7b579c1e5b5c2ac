package cyclerepo

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yanqian/cyclegpt/internal/domain/cycle"
	"github.com/yanqian/cyclegpt/internal/infra/dataset"
)

const (
	colUserID      = "User ID"
	colAge         = "Age"
	colBMI         = "BMI"
	colStress      = "Stress Level"
	colSleep       = "Sleep Hours"
	colCycleLength = "Cycle Length"
	colCycleStart  = "Cycle Start Date"
	colNextStart   = "Next Cycle Start Date"
	colDiet        = "Diet"
	colExercise    = "Exercise Frequency"
)

var requiredColumns = []string{
	colUserID, colAge, colBMI, colStress, colSleep,
	colCycleLength, colCycleStart, colDiet, colExercise,
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"01/02/2006",
}

// LoadRecords opens src and parses it as a cycle CSV.
func LoadRecords(ctx context.Context, src dataset.Source) ([]cycle.Record, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	records, err := ParseCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src, err)
	}
	return records, nil
}

// ParseCSV reads cycle records from a CSV with a header row. Columns are
// matched by name; unknown columns are ignored.
func ParseCSV(r io.Reader) ([]cycle.Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var records []cycle.Record
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string, index map[string]int) (cycle.Record, error) {
	p := rowParser{row: row, index: index}
	rec := cycle.Record{
		UserID:            p.integer(colUserID),
		Age:               p.float(colAge),
		BMI:               p.float(colBMI),
		StressLevel:       p.float(colStress),
		SleepHours:        p.float(colSleep),
		CycleLength:       p.float(colCycleLength),
		Diet:              p.text(colDiet),
		ExerciseFrequency: p.text(colExercise),
		CycleStart:        p.date(colCycleStart, true),
		NextCycleStart:    p.date(colNextStart, false),
	}
	return rec, p.err
}

// rowParser records the first conversion error so parseRow stays flat.
type rowParser struct {
	row   []string
	index map[string]int
	err   error
}

func (p *rowParser) text(col string) string {
	i, ok := p.index[col]
	if !ok || i >= len(p.row) {
		return ""
	}
	return strings.TrimSpace(p.row[i])
}

func (p *rowParser) float(col string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.text(col), 64)
	if err != nil {
		p.err = fmt.Errorf("column %q: %w", col, err)
	}
	return v
}

func (p *rowParser) integer(col string) int64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(p.text(col), 10, 64)
	if err != nil {
		p.err = fmt.Errorf("column %q: %w", col, err)
	}
	return v
}

func (p *rowParser) date(col string, required bool) cycle.Date {
	if p.err != nil {
		return cycle.Date{}
	}
	raw := p.text(col)
	if raw == "" {
		if required {
			p.err = fmt.Errorf("column %q is empty", col)
		}
		return cycle.Date{}
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return cycle.DateOf(ts)
		}
	}
	p.err = fmt.Errorf("column %q: unrecognized date %q", col, raw)
	return cycle.Date{}
}
