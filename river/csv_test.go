package river

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riverlevel/riverlevel/lttb"
)

const sampleCSV = `Timestamp (UTC),Height (m)
2024-01-02T10:00:00Z,3.01
2024-01-02T10:15:00Z,3.05

2024-01-02T10:30:00Z, 3.10
`

func TestParseCSV(t *testing.T) {
	reading, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Equal(t, []lttb.Point{{Index: 1, Value: 3.01}, {Index: 2, Value: 3.05}, {Index: 3, Value: 3.10}}, reading.Points)
	require.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), reading.First)
	require.Equal(t, time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC), reading.Last)
}

func TestParseCSVSkipsShortRows(t *testing.T) {
	in := "ts,h\n2024-01-02T10:00:00Z,1\nfooter\n2024-01-02T10:15:00Z,2\n"
	reading, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []lttb.Point{{Index: 1, Value: 1}, {Index: 2, Value: 2}}, reading.Points)
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "appears empty"},
		{"header only", "ts,h\n", "no data rows"},
		{"bad timestamp", "ts,h\n02/01/2024 10:00,1\n", "line 2"},
		{"bad height", "ts,h\n2024-01-02T10:00:00Z,high\n", "line 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.in))
			require.ErrorContains(t, err, tt.want)
		})
	}
}
