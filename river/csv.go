package river

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/riverlevel/riverlevel/lttb"
)

// TimestampLayout is the layout of the timestamp column of gauge CSV files.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Reading is a parsed gauge CSV file.
type Reading struct {
	Points []lttb.Point
	First  time.Time
	Last   time.Time
}

// ParseCSV reads a gauge CSV file: a header row followed by
// "timestamp,height" rows. Rows with fewer than two columns are skipped.
// Points are indexed by row number starting at 1.
func ParseCSV(r io.Reader) (*Reading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("river: CSV appears empty")
		}
		return nil, fmt.Errorf("river: unable to read CSV header: %w", err)
	}

	reading := &Reading{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("river: unable to read CSV: %w", err)
		}
		if len(row) < 2 {
			continue
		}

		line, _ := cr.FieldPos(0)
		ts, err := time.Parse(TimestampLayout, strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("river: line %d: %w", line, err)
		}
		height, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("river: line %d: %w", line, err)
		}

		if len(reading.Points) == 0 {
			reading.First = ts
		}
		reading.Last = ts
		reading.Points = append(reading.Points, lttb.Point{Index: len(reading.Points) + 1, Value: height})
	}

	if len(reading.Points) == 0 {
		return nil, errors.New("river: CSV contained no data rows")
	}
	return reading, nil
}
