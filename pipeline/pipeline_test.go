package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/riverlevel/riverlevel/config"
	"github.com/riverlevel/riverlevel/framebuf"
	"github.com/riverlevel/riverlevel/publish"
	"github.com/riverlevel/riverlevel/river"
)

func gaugeCSV(n int) string {
	var sb strings.Builder
	sb.WriteString("Timestamp (UTC),Height (m)\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * 15 * time.Minute)
		fmt.Fprintf(&sb, "%s,%.3f\n", ts.Format(river.TimestampLayout), 3+float64(i%7)/10)
	}
	return sb.String()
}

func testConfig(url string) config.Configuration {
	cfg := config.Default()
	cfg.Threshold = 10
	cfg.Fetch.InitialInterval = time.Millisecond
	cfg.Stations = []config.StationConfiguration{
		{Name: "Marlow", URL: url, TopOfNormalRangeM: 3.23, HighestEverRecordedM: 4.73, YAxisBottomM: 2.5, YAxisTopM: 5},
		{Name: "Cookham", TopOfNormalRangeM: 0.6, HighestEverRecordedM: 1.46},
	}
	return cfg
}

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(gaugeCSV(96)))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := testConfig(srv.URL)
	cfg.Output.TwoColor = true
	now := time.Date(2024, 1, 2, 0, 5, 0, 0, time.UTC)

	res, err := Run(context.Background(), cfg, &publish.FileSink{Dir: dir}, Options{
		Logger: zaptest.NewLogger(t),
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)
	require.Equal(t, now, res.Document.UTCTime)
	require.Len(t, res.Document.Stations, 2)
	require.Len(t, res.Document.Stations[0].HeightsM, 10)
	require.Equal(t, "missing url", res.Document.Stations[1].Error)

	fb, err := os.ReadFile(filepath.Join(dir, publish.FramebufferName))
	require.NoError(t, err)
	planes, err := framebuf.Validate(fb)
	require.NoError(t, err)
	require.Equal(t, 2, planes)

	f, err := os.Open(filepath.Join(dir, publish.DocumentName))
	require.NoError(t, err)
	defer f.Close()
	doc, err := river.DecodeDocument(f)
	require.NoError(t, err)
	require.Equal(t, res.Document.Stations[0].HeightsM, doc.Stations[0].HeightsM)

	_, err = os.Stat(filepath.Join(dir, publish.ImageName))
	require.NoError(t, err)
}

func TestRunFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := t.TempDir()
	core, logs := observer.New(zapcore.DebugLevel)
	_, err := Run(context.Background(), testConfig(srv.URL), &publish.FileSink{Dir: dir}, Options{Logger: zap.New(core)})
	require.ErrorContains(t, err, "404")

	logged := logs.FilterMessage("build failed").All()
	require.Len(t, logged, 1)
	require.Equal(t, "pipeline", logged[0].LoggerName)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRunInsufficientData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(gaugeCSV(5)))
	}))
	defer srv.Close()

	_, err := Run(context.Background(), testConfig(srv.URL), &publish.FileSink{Dir: t.TempDir()}, Options{})
	require.ErrorIs(t, err, river.ErrInsufficientData)
}

func TestStations(t *testing.T) {
	stations := Stations(config.Default().Stations)
	require.Len(t, stations, 2)
	require.Equal(t, river.Station{
		Name:                 "Cookham Upstream",
		URL:                  "https://check-for-flooding.service.gov.uk/station-csv/7162",
		TopOfNormalRangeM:    0.6,
		HighestEverRecordedM: 1.46,
		YAxisTopM:            2.0,
	}, stations[1])
}
